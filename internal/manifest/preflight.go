package manifest

import (
	"fmt"

	"github.com/rileyleff/sapfluxd/internal/model"
)

// PlantKey/StemKey mirror the scoped-unique keys spec §4.7 names explicitly:
// plants and stems are unique within their parent, not globally.
type PlantKey struct {
	PlotCode string
	Code     string
}

type StemKey struct {
	PlantCode string
	Code      string
}

type ThermistorKey struct {
	SensorTypeCode string
	Name           string
}

// CurrentState is the in-memory snapshot of existing DB state Preflight
// validates a Manifest against — loaded once per transaction, per spec's
// "load current state into in-memory maps" instruction.
type CurrentState struct {
	Projects        map[string]bool
	Sites           map[string]bool
	Zones           map[string]bool
	Plots           map[string]bool
	Species         map[string]bool
	Plants          map[PlantKey]bool
	Stems           map[StemKey]bool
	DataloggerTypes map[string]bool
	Dataloggers     map[string]bool
	SensorTypes     map[string]bool
	ThermistorPairs map[ThermistorKey]bool
	Parameters      map[string]bool

	// Aliases and Deployments need interval overlap checks, not just
	// membership, so they're kept as lists rather than sets.
	Aliases     []model.DataloggerAlias
	AliasCodes  map[int64]string // DataloggerID -> canonical code, for grouping existing deployments by datalogger code
	Deployments []model.Deployment
}

// ValidationError is one rejected manifest entry. Preflight accumulates all
// of them rather than stopping at the first, so a single rejected manifest
// reports everything wrong with it at once.
type ValidationError struct {
	Kind   string // e.g. "site", "deployment"
	Code   string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Code, e.Reason)
}

// Report is Preflight's output: per-entity accepted counts plus every
// validation error found.
type Report struct {
	Counts EntityCounts
	Errors []ValidationError
}

func (r *Report) OK() bool { return len(r.Errors) == 0 }

func (r *Report) reject(kind, code, reason string) {
	r.Errors = append(r.Errors, ValidationError{Kind: kind, Code: code, Reason: reason})
}

// Preflight validates every add operation against the manifest's own
// sibling entries (for parent resolution and intra-manifest duplicates) and
// against CurrentState (for duplicates and overlaps against the DB). It
// never mutates state; Apply does the writing.
func Preflight(m *Manifest, cur *CurrentState) *Report {
	r := &Report{}

	projectCodes := map[string]bool{}
	for _, p := range m.Projects {
		if cur.Projects[p.Code] || projectCodes[p.Code] {
			r.reject("project", p.Code, "duplicate")
			continue
		}
		projectCodes[p.Code] = true
	}

	siteCodes := map[string]bool{}
	for _, s := range m.Sites {
		if cur.Sites[s.Code] || siteCodes[s.Code] {
			r.reject("site", s.Code, "duplicate")
			continue
		}
		if !cur.Projects[s.ProjectCode] && !projectCodes[s.ProjectCode] {
			r.reject("site", s.Code, fmt.Sprintf("unknown project %q", s.ProjectCode))
			continue
		}
		siteCodes[s.Code] = true
	}

	zoneCodes := map[string]bool{}
	for _, z := range m.Zones {
		if cur.Zones[z.Code] || zoneCodes[z.Code] {
			r.reject("zone", z.Code, "duplicate")
			continue
		}
		if !cur.Sites[z.SiteCode] && !siteCodes[z.SiteCode] {
			r.reject("zone", z.Code, fmt.Sprintf("unknown site %q", z.SiteCode))
			continue
		}
		zoneCodes[z.Code] = true
	}

	plotCodes := map[string]bool{}
	for _, p := range m.Plots {
		if cur.Plots[p.Code] || plotCodes[p.Code] {
			r.reject("plot", p.Code, "duplicate")
			continue
		}
		if !cur.Zones[p.ZoneCode] && !zoneCodes[p.ZoneCode] {
			r.reject("plot", p.Code, fmt.Sprintf("unknown zone %q", p.ZoneCode))
			continue
		}
		plotCodes[p.Code] = true
	}

	speciesCodes := map[string]bool{}
	for _, s := range m.Species {
		if cur.Species[s.Code] || speciesCodes[s.Code] {
			r.reject("species", s.Code, "duplicate")
			continue
		}
		speciesCodes[s.Code] = true
	}

	plantKeys := map[PlantKey]bool{}
	for _, p := range m.Plants {
		k := PlantKey{PlotCode: p.PlotCode, Code: p.Code}
		if cur.Plants[k] || plantKeys[k] {
			r.reject("plant", p.Code, fmt.Sprintf("duplicate within plot %q", p.PlotCode))
			continue
		}
		if !cur.Plots[p.PlotCode] && !plotCodes[p.PlotCode] {
			r.reject("plant", p.Code, fmt.Sprintf("unknown plot %q", p.PlotCode))
			continue
		}
		if !cur.Species[p.SpeciesCode] && !speciesCodes[p.SpeciesCode] {
			r.reject("plant", p.Code, fmt.Sprintf("unknown species %q", p.SpeciesCode))
			continue
		}
		plantKeys[k] = true
	}

	stemKeys := map[StemKey]bool{}
	for _, s := range m.Stems {
		k := StemKey{PlantCode: s.PlantCode, Code: s.Code}
		if cur.Stems[k] || stemKeys[k] {
			r.reject("stem", s.Code, fmt.Sprintf("duplicate within plant %q", s.PlantCode))
			continue
		}
		plantExists := false
		for pk := range plantKeys {
			if pk.Code == s.PlantCode {
				plantExists = true
				break
			}
		}
		for pk := range cur.Plants {
			if pk.Code == s.PlantCode {
				plantExists = true
				break
			}
		}
		if !plantExists {
			r.reject("stem", s.Code, fmt.Sprintf("unknown plant %q", s.PlantCode))
			continue
		}
		stemKeys[k] = true
	}

	dataloggerTypeCodes := map[string]bool{}
	for _, dt := range m.DataloggerTypes {
		if cur.DataloggerTypes[dt.Code] || dataloggerTypeCodes[dt.Code] {
			r.reject("datalogger_type", dt.Code, "duplicate")
			continue
		}
		dataloggerTypeCodes[dt.Code] = true
	}

	dataloggerCodes := map[string]bool{}
	for _, d := range m.Dataloggers {
		if cur.Dataloggers[d.Code] || dataloggerCodes[d.Code] {
			r.reject("datalogger", d.Code, "duplicate")
			continue
		}
		if !cur.DataloggerTypes[d.DataloggerTypeCode] && !dataloggerTypeCodes[d.DataloggerTypeCode] {
			r.reject("datalogger", d.Code, fmt.Sprintf("unknown datalogger type %q", d.DataloggerTypeCode))
			continue
		}
		dataloggerCodes[d.Code] = true
	}

	preflightAliasIntervals(r, m, cur)

	sensorTypeCodes := map[string]bool{}
	for _, st := range m.SensorTypes {
		if cur.SensorTypes[st.Code] || sensorTypeCodes[st.Code] {
			r.reject("sensor_type", st.Code, "duplicate")
			continue
		}
		sensorTypeCodes[st.Code] = true
	}

	thermKeys := map[ThermistorKey]bool{}
	for _, tp := range m.ThermistorPairs {
		k := ThermistorKey{SensorTypeCode: tp.SensorTypeCode, Name: tp.Name}
		if cur.ThermistorPairs[k] || thermKeys[k] {
			r.reject("thermistor_pair", tp.Name, fmt.Sprintf("duplicate within sensor type %q", tp.SensorTypeCode))
			continue
		}
		if !cur.SensorTypes[tp.SensorTypeCode] && !sensorTypeCodes[tp.SensorTypeCode] {
			r.reject("thermistor_pair", tp.Name, fmt.Sprintf("unknown sensor type %q", tp.SensorTypeCode))
			continue
		}
		thermKeys[k] = true
	}

	preflightDeploymentIntervals(r, m, cur, dataloggerCodes, sensorTypeCodes, stemKeys, projectCodes)

	for _, o := range m.ParameterOverrides {
		if !cur.Parameters[o.ParameterCode] {
			r.reject("parameter_override", o.ParameterCode, "unknown parameter code")
		}
	}

	r.Counts = m.counts()
	return r
}

func preflightAliasIntervals(r *Report, m *Manifest, cur *CurrentState) {
	byAlias := map[string][]model.DataloggerAlias{}
	for _, a := range cur.Aliases {
		byAlias[a.Alias] = append(byAlias[a.Alias], a)
	}
	for _, a := range m.DataloggerAliases {
		for _, existing := range byAlias[a.Alias] {
			if model.Overlaps(a.Start, a.End, existing.Start, existing.End) {
				r.reject("datalogger_alias", a.Alias, "overlaps an existing interval")
			}
		}
		byAlias[a.Alias] = append(byAlias[a.Alias], model.DataloggerAlias{Alias: a.Alias, Start: a.Start, End: a.End})
	}
}

func preflightDeploymentIntervals(r *Report, m *Manifest, cur *CurrentState, newDataloggers, newSensorTypes map[string]bool, newStems map[StemKey]bool, newProjects map[string]bool) {
	// Group existing deployments by (datalogger_code, sdi_address). The
	// current-state snapshot doesn't retain datalogger codes on Deployment
	// (it's keyed by numeric id in the DB), so the caller is expected to
	// populate cur.Deployments with DataloggerID already resolved and to
	// pass matching code lookups; here we compare purely within the
	// manifest plus whatever the caller denormalized into cur.Deployments
	// via AliasCodes.
	existingGrouped := map[string][]model.Deployment{}
	for _, d := range cur.Deployments {
		code := cur.AliasCodes[d.DataloggerID]
		k := code + "\x00" + d.SDIAddress
		existingGrouped[k] = append(existingGrouped[k], d)
	}

	for _, d := range m.Deployments {
		if !cur.Dataloggers[d.DataloggerCode] && !newDataloggers[d.DataloggerCode] {
			r.reject("deployment", d.DataloggerCode+"/"+d.SDIAddress, fmt.Sprintf("unknown datalogger %q", d.DataloggerCode))
			continue
		}
		if !cur.SensorTypes[d.SensorTypeCode] && !newSensorTypes[d.SensorTypeCode] {
			r.reject("deployment", d.DataloggerCode+"/"+d.SDIAddress, fmt.Sprintf("unknown sensor type %q", d.SensorTypeCode))
			continue
		}
		stemOK := false
		for sk := range newStems {
			if sk.Code == d.StemCode {
				stemOK = true
				break
			}
		}
		for sk := range cur.Stems {
			if sk.Code == d.StemCode {
				stemOK = true
				break
			}
		}
		if !stemOK {
			r.reject("deployment", d.DataloggerCode+"/"+d.SDIAddress, fmt.Sprintf("unknown stem %q", d.StemCode))
			continue
		}
		if !cur.Projects[d.ProjectCode] && !newProjects[d.ProjectCode] {
			r.reject("deployment", d.DataloggerCode+"/"+d.SDIAddress, fmt.Sprintf("unknown project %q", d.ProjectCode))
			continue
		}

		k := d.DataloggerCode + "\x00" + d.SDIAddress
		for _, existing := range existingGrouped[k] {
			if model.Overlaps(d.Start, d.End, existing.Start, existing.End) {
				r.reject("deployment", d.DataloggerCode+"/"+d.SDIAddress, "overlaps an existing interval")
			}
		}
		existingGrouped[k] = append(existingGrouped[k], model.Deployment{Start: d.Start, End: d.End})
	}
}
