// Package manifest parses the declarative metadata-add format, validates it
// against current database state in a read-only preflight pass, and applies
// it within one database transaction in strict dependency order.
package manifest

import (
	"time"

	"github.com/rileyleff/sapfluxd/internal/model"
)

// AddProject, AddSite, ... are one "add" operation per manifest entity kind,
// referencing parents by code — never by surrogate key — per spec §3/§4.7.
type AddProject struct {
	Code string
}

type AddSite struct {
	Code        string
	ProjectCode string
	Timezone    string
}

type AddZone struct {
	Code     string
	SiteCode string
}

type AddPlot struct {
	Code     string
	ZoneCode string
}

type AddSpecies struct {
	Code string
}

type AddPlant struct {
	Code        string
	PlotCode    string
	SpeciesCode string
}

type AddStem struct {
	Code      string
	PlantCode string
}

type AddDataloggerType struct {
	Code string
}

type AddDatalogger struct {
	Code               string
	DataloggerTypeCode string
}

type AddDataloggerAlias struct {
	Alias          string
	DataloggerCode string
	Start          time.Time
	End            time.Time // zero means open-ended
}

type AddSensorType struct {
	Code string
}

type AddThermistorPair struct {
	SensorTypeCode string
	Name           string
	Depth          model.Depth
}

type AddDeployment struct {
	DataloggerCode string
	SDIAddress     string
	SensorTypeCode string
	StemCode       string
	ProjectCode    string
	Start          time.Time
	End            time.Time // zero means open-ended
	Included       bool
	Installation   map[string]any
}

// AddParameterOverride's ScopeCode is the code of the entity named by Level
// (empty for LevelDefault).
type AddParameterOverride struct {
	ParameterCode string
	Level         model.OverrideLevel
	ScopeCode     string
	Value         model.ParameterValue
}

// Manifest is the fully parsed, typed set of add operations, grouped by
// entity kind. Field order matches the strict dependency order §4.7 requires
// at apply time.
type Manifest struct {
	Projects           []AddProject
	Sites              []AddSite
	Zones              []AddZone
	Plots              []AddPlot
	Species            []AddSpecies
	Plants             []AddPlant
	Stems              []AddStem
	DataloggerTypes    []AddDataloggerType
	Dataloggers        []AddDatalogger
	DataloggerAliases  []AddDataloggerAlias
	SensorTypes        []AddSensorType
	ThermistorPairs    []AddThermistorPair
	Deployments        []AddDeployment
	ParameterOverrides []AddParameterOverride
}

// EntityCounts tallies adds per entity kind for the transaction receipt.
type EntityCounts struct {
	Projects           int
	Sites              int
	Zones              int
	Plots              int
	Species            int
	Plants             int
	Stems              int
	DataloggerTypes    int
	Dataloggers        int
	DataloggerAliases  int
	SensorTypes        int
	ThermistorPairs    int
	Deployments        int
	ParameterOverrides int
}

func (m *Manifest) counts() EntityCounts {
	return EntityCounts{
		Projects:           len(m.Projects),
		Sites:              len(m.Sites),
		Zones:              len(m.Zones),
		Plots:              len(m.Plots),
		Species:            len(m.Species),
		Plants:             len(m.Plants),
		Stems:              len(m.Stems),
		DataloggerTypes:    len(m.DataloggerTypes),
		Dataloggers:        len(m.Dataloggers),
		DataloggerAliases:  len(m.DataloggerAliases),
		SensorTypes:        len(m.SensorTypes),
		ThermistorPairs:    len(m.ThermistorPairs),
		Deployments:        len(m.Deployments),
		ParameterOverrides: len(m.ParameterOverrides),
	}
}
