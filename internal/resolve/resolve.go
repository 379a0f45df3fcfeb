// Package resolve implements the parameter cascade: for every row and every
// required parameter code, coalesce override values from most specific to
// least specific and attach both the resolved value and the winning level.
package resolve

import (
	"fmt"

	"github.com/rileyleff/sapfluxd/internal/enrich"
	"github.com/rileyleff/sapfluxd/internal/model"
)

// Overrides is one batch's full set of parameter overrides, read once and
// joined against every row — per spec §4.5, never re-queried per row.
type Overrides struct {
	Parameters map[int64]model.Parameter
	ByLevel    map[model.OverrideLevel]map[overrideKey]model.ParameterValue
	Defaults   map[int64]model.ParameterValue // keyed by ParameterID, the global_default level
}

type overrideKey struct {
	parameterID int64
	scopeID     int64
}

// NewOverrides indexes a flat override list for cascade lookup.
func NewOverrides(params []model.Parameter, overrides []model.ParameterOverride) *Overrides {
	o := &Overrides{
		Parameters: map[int64]model.Parameter{},
		ByLevel:    map[model.OverrideLevel]map[overrideKey]model.ParameterValue{},
		Defaults:   map[int64]model.ParameterValue{},
	}
	for _, p := range params {
		o.Parameters[p.ID] = p
	}
	for _, ov := range overrides {
		if ov.Level == model.LevelDefault {
			o.Defaults[ov.ParameterID] = ov.Value
			continue
		}
		scopeID := scopeIDFor(ov)
		if o.ByLevel[ov.Level] == nil {
			o.ByLevel[ov.Level] = map[overrideKey]model.ParameterValue{}
		}
		o.ByLevel[ov.Level][overrideKey{parameterID: ov.ParameterID, scopeID: scopeID}] = ov.Value
	}
	return o
}

func scopeIDFor(ov model.ParameterOverride) int64 {
	switch ov.Level {
	case model.LevelDeployment:
		return ov.DeploymentID
	case model.LevelStem:
		return ov.StemID
	case model.LevelPlant:
		return ov.PlantID
	case model.LevelPlot:
		return ov.PlotID
	case model.LevelZone:
		return ov.ZoneID
	case model.LevelSite:
		return ov.SiteID
	case model.LevelSpecies:
		return ov.SpeciesID
	default:
		return 0
	}
}

// RowScope holds the scope id an enriched row presents at each cascade
// level — resolve needs the row's hierarchy-entity ids, not just their
// human-readable codes, so Resolve copies them from each enriched row.
type RowScope struct {
	DeploymentID int64
	StemID       int64
	PlantID      int64
	PlotID       int64
	ZoneID       int64
	SiteID       int64
	SpeciesID    int64
}

func scopeIDForLevel(s RowScope, level model.OverrideLevel) int64 {
	switch level {
	case model.LevelDeployment:
		return s.DeploymentID
	case model.LevelStem:
		return s.StemID
	case model.LevelPlant:
		return s.PlantID
	case model.LevelPlot:
		return s.PlotID
	case model.LevelZone:
		return s.ZoneID
	case model.LevelSite:
		return s.SiteID
	case model.LevelSpecies:
		return s.SpeciesID
	default:
		return 0
	}
}

// Row is an enriched row with its resolved parameter values attached, keyed
// by parameter code.
type Row struct {
	enrich.Row
	Parameters map[string]Resolved
}

// Resolved is one parameter's cascade outcome for one row.
type Resolved struct {
	Value  model.ParameterValue
	Source model.OverrideLevel
}

// Resolve attaches every required parameter's cascade outcome to every row.
func Resolve(rows []enrich.Row, o *Overrides, requiredCodes []string) ([]Row, error) {
	codeToID := map[string]int64{}
	for id, p := range o.Parameters {
		codeToID[p.Code] = id
	}
	for _, code := range requiredCodes {
		if _, ok := codeToID[code]; !ok {
			return nil, fmt.Errorf("required parameter %q has no registered definition", code)
		}
	}

	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		scope := RowScope{
			DeploymentID: r.DeploymentID,
			StemID:       r.StemID,
			PlantID:      r.PlantID,
			PlotID:       r.PlotID,
			ZoneID:       r.ZoneID,
			SiteID:       r.SiteID,
			SpeciesID:    r.SpeciesID,
		}
		resolved := make(map[string]Resolved, len(requiredCodes))
		for _, code := range requiredCodes {
			paramID := codeToID[code]
			val, src, err := o.resolveOne(paramID, scope)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", code, err)
			}
			resolved[code] = Resolved{Value: val, Source: src}
		}
		out = append(out, Row{Row: r, Parameters: resolved})
	}
	return out, nil
}

func (o *Overrides) resolveOne(paramID int64, scope RowScope) (model.ParameterValue, model.OverrideLevel, error) {
	for _, level := range model.CascadeOrder {
		if level == model.LevelDefault {
			continue
		}
		scopeID := scopeIDForLevel(scope, level)
		if scopeID == 0 {
			continue
		}
		byScope := o.ByLevel[level]
		if byScope == nil {
			continue
		}
		if val, ok := byScope[overrideKey{parameterID: paramID, scopeID: scopeID}]; ok {
			return val, level, nil
		}
	}
	if val, ok := o.Defaults[paramID]; ok {
		return val, model.LevelDefault, nil
	}
	return model.ParameterValue{}, "", fmt.Errorf("no override at any cascade level and no global default")
}
