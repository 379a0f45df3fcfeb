// Package model holds the domain types shared across the pipeline: the
// metadata hierarchy (projects through stems), instrumentation (dataloggers,
// sensor types, deployments), parameters, and the transaction/output
// bookkeeping types. Nothing in this package talks to Postgres or the object
// store directly — it is the vocabulary the rest of the pipeline shares.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Depth is the closed enum of thermistor positions relative to the heater.
type Depth string

const (
	DepthInner Depth = "Inner"
	DepthOuter Depth = "Outer"
)

// Project is the top of the hierarchy.
type Project struct {
	ID   int64
	Code string
}

// Site belongs to a Project and carries the IANA timezone used to resolve
// naive anchor timestamps during timestamp correction.
type Site struct {
	ID        int64
	ProjectID int64
	Code      string
	Timezone  string // IANA zone name, e.g. "America/New_York"
}

// Zone belongs to a Site.
type Zone struct {
	ID     int64
	SiteID int64
	Code   string
}

// Plot belongs to a Zone.
type Plot struct {
	ID     int64
	ZoneID int64
	Code   string
}

// Species is referenced by Plants.
type Species struct {
	ID   int64
	Code string
}

// Plant belongs to a Plot and is unique by (PlotID, Code).
type Plant struct {
	ID        int64
	PlotID    int64
	Code      string
	SpeciesID int64
}

// Stem belongs to a Plant and is unique by (PlantID, Code).
type Stem struct {
	ID      int64
	PlantID int64
	Code    string
}

// DataloggerType names a family of logger hardware.
type DataloggerType struct {
	ID   int64
	Code string
}

// Datalogger is a physical unit identified by a canonical code.
type Datalogger struct {
	ID               int64
	DataloggerTypeID int64
	Code             string
}

// DataloggerAlias is an alternate code for a Datalogger, valid only during
// [Start, End). End is zero-value when open-ended.
type DataloggerAlias struct {
	ID           int64
	DataloggerID int64
	Alias        string
	Start        time.Time
	End          time.Time // zero value means open-ended
}

// Active reports whether the alias covers t. A zero End means open-ended.
func (a DataloggerAlias) Active(t time.Time) bool {
	if t.Before(a.Start) {
		return false
	}
	if a.End.IsZero() {
		return true
	}
	return t.Before(a.End)
}

// SensorType names a model of SDI-12 sap-flux sensor and its thermistor
// pairs (name, depth).
type SensorType struct {
	ID          int64
	Code        string
	Thermistors []ThermistorPair
}

// ThermistorPair names one of a sensor's physical thermistor positions.
type ThermistorPair struct {
	ID           int64
	SensorTypeID int64
	Name         string
	Depth        Depth
}

// Deployment binds a Datalogger + SDI address + SensorType to a Stem within
// a Project over a half-open active time range [Start, End).
type Deployment struct {
	ID           int64
	DataloggerID int64
	SDIAddress   string
	SensorTypeID int64
	StemID       int64
	ProjectID    int64
	Start        time.Time
	End          time.Time // zero value means open-ended
	Included     bool
	Installation map[string]any // free-form installation metadata
}

// Active reports whether the deployment covers t.
func (d Deployment) Active(t time.Time) bool {
	if t.Before(d.Start) {
		return false
	}
	if d.End.IsZero() {
		return true
	}
	return t.Before(d.End)
}

// Overlaps reports whether two half-open intervals overlap or touch at a
// shared boundary — per spec, touching endpoints are also forbidden.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	aOpen := aEnd.IsZero()
	bOpen := bEnd.IsZero()
	if !aOpen && aEnd.Before(bStart) {
		return false
	}
	if !bOpen && bEnd.Before(aStart) {
		return false
	}
	return true
}

// ParameterValueKind discriminates the JSON-typed parameter value.
type ParameterValueKind string

const (
	ParamNumber ParameterValueKind = "number"
	ParamString ParameterValueKind = "string"
	ParamBool   ParameterValueKind = "bool"
)

// ParameterValue is a JSON-typed scalar that survives numeric round-trip
// without lossy string conversion.
type ParameterValue struct {
	Kind   ParameterValueKind
	Number float64
	Str    string
	Bool   bool
}

// Parameter is a code/unit pair; its value is resolved per-row by the
// cascade in package resolve.
type Parameter struct {
	ID   int64
	Code string
	Unit string
}

// OverrideLevel names a level in the parameter cascade, most specific first.
type OverrideLevel string

const (
	LevelDeployment OverrideLevel = "deployment_override"
	LevelStem       OverrideLevel = "stem_override"
	LevelPlant      OverrideLevel = "plant_override"
	LevelPlot       OverrideLevel = "plot_override"
	LevelZone       OverrideLevel = "zone_override"
	LevelSite       OverrideLevel = "site_override"
	LevelSpecies    OverrideLevel = "species_override"
	LevelDefault    OverrideLevel = "global_default"
)

// CascadeOrder is the strict precedence order, most specific to least.
var CascadeOrder = []OverrideLevel{
	LevelDeployment, LevelStem, LevelPlant, LevelPlot, LevelZone, LevelSite, LevelSpecies, LevelDefault,
}

// ParameterOverride binds a value to any subset of the hierarchy/deployment
// keys. At most one of the *ID fields is non-zero for a given override,
// corresponding to its Level; a global_default override sets none of them.
type ParameterOverride struct {
	ID                     int64
	ParameterID            int64
	Level                  OverrideLevel
	DeploymentID           int64
	StemID                 int64
	PlantID                int64
	PlotID                 int64
	ZoneID                 int64
	SiteID                 int64
	SpeciesID              int64
	Value                  ParameterValue
	EffectiveTransactionID uuid.UUID
}

// TransactionOutcome is the closed set of states for a Transaction: PENDING
// while it runs, then one of the terminal states ACCEPTED or REJECTED.
type TransactionOutcome string

const (
	OutcomePending  TransactionOutcome = "PENDING"
	OutcomeAccepted TransactionOutcome = "ACCEPTED"
	OutcomeRejected TransactionOutcome = "REJECTED"
)

// Transaction is the audit row for one ingestion request.
type Transaction struct {
	ID          uuid.UUID
	User        string
	Message     string
	AttemptedAt time.Time
	Outcome     TransactionOutcome
	Receipt     []byte // JSON-encoded Receipt
}

// Output references the artifacts produced by one successful transaction.
type Output struct {
	ID              uuid.UUID
	TransactionID   uuid.UUID
	ArtifactKey     string
	ReproBundleKey  string
	RowCount        int64
	IsLatest        bool
	CreatedAt       time.Time
}

// RawFile is the metadata row for one content-addressed upload.
type RawFile struct {
	Hash                 string // hex-encoded content hash, also the object-store key suffix
	IncludeInPipeline    bool
	IngestingTransaction uuid.UUID
}
