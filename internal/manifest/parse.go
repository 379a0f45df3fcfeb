package manifest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gravwell/gcfg"

	"github.com/rileyleff/sapfluxd/internal/model"
)

// rawManifest mirrors the teacher's section-per-named-instance config style
// (see gravwell's HttpIngester cfgReadType): a gcfg map section's key is the
// entity's code, and nested structs carry the entity's own fields plus
// parent-code references.
type rawManifest struct {
	Project           map[string]*struct{}
	Site              map[string]*rawSite
	Zone              map[string]*rawZone
	Plot              map[string]*rawPlot
	Species           map[string]*struct{}
	Plant             map[string]*rawPlant
	Stem              map[string]*rawStem
	DataloggerType    map[string]*struct{}
	Datalogger        map[string]*rawDatalogger
	DataloggerAlias   map[string]*rawAlias
	SensorType        map[string]*struct{}
	ThermistorPair    map[string]*rawThermistorPair
	Deployment        map[string]*rawDeployment
	ParameterOverride map[string]*rawOverride
}

type rawSite struct {
	Project  string
	Timezone string
}

type rawZone struct {
	Site string
}

type rawPlot struct {
	Zone string
}

type rawPlant struct {
	Plot    string
	Species string
}

type rawStem struct {
	Plant string
}

type rawDatalogger struct {
	DataloggerType string
}

type rawAlias struct {
	Datalogger string
	Start      string
	End        string
}

type rawThermistorPair struct {
	SensorType string
	Depth      string
}

type rawDeployment struct {
	Datalogger   string
	SDIAddress   string
	SensorType   string
	Stem         string
	Project      string
	Start        string
	End          string
	Included     bool
	Installation []string // "key=value" entries, value type-inferred
}

type rawOverride struct {
	Parameter string
	Level     string
	Scope     string
	Value     string // type-inferred the same way installation values are
}

// Parse decodes manifest text (the declarative gcfg-style add format) into a
// typed Manifest. Parent references are resolved against the manifest's own
// sibling entries and against current DB state later, in Preflight — Parse
// only validates syntax and per-entity field types.
func Parse(text string) (*Manifest, error) {
	var raw rawManifest
	if err := gcfg.ReadStringInto(&raw, text); err != nil {
		return nil, fmt.Errorf("manifest syntax error: %w", err)
	}

	m := &Manifest{}
	for _, code := range sortedKeys(raw.Project) {
		m.Projects = append(m.Projects, AddProject{Code: code})
	}
	for _, code := range sortedKeysSite(raw.Site) {
		s := raw.Site[code]
		m.Sites = append(m.Sites, AddSite{Code: code, ProjectCode: s.Project, Timezone: s.Timezone})
	}
	for _, code := range sortedKeysZone(raw.Zone) {
		m.Zones = append(m.Zones, AddZone{Code: code, SiteCode: raw.Zone[code].Site})
	}
	for _, code := range sortedKeysPlot(raw.Plot) {
		m.Plots = append(m.Plots, AddPlot{Code: code, ZoneCode: raw.Plot[code].Zone})
	}
	for _, code := range sortedKeys(raw.Species) {
		m.Species = append(m.Species, AddSpecies{Code: code})
	}
	for _, code := range sortedKeysPlant(raw.Plant) {
		p := raw.Plant[code]
		m.Plants = append(m.Plants, AddPlant{Code: code, PlotCode: p.Plot, SpeciesCode: p.Species})
	}
	for _, code := range sortedKeysStem(raw.Stem) {
		m.Stems = append(m.Stems, AddStem{Code: code, PlantCode: raw.Stem[code].Plant})
	}
	for _, code := range sortedKeys(raw.DataloggerType) {
		m.DataloggerTypes = append(m.DataloggerTypes, AddDataloggerType{Code: code})
	}
	for _, code := range sortedKeysDatalogger(raw.Datalogger) {
		m.Dataloggers = append(m.Dataloggers, AddDatalogger{Code: code, DataloggerTypeCode: raw.Datalogger[code].DataloggerType})
	}
	for _, alias := range sortedKeysAlias(raw.DataloggerAlias) {
		a := raw.DataloggerAlias[alias]
		start, end, err := parseInterval(a.Start, a.End)
		if err != nil {
			return nil, fmt.Errorf("datalogger alias %q: %w", alias, err)
		}
		m.DataloggerAliases = append(m.DataloggerAliases, AddDataloggerAlias{
			Alias: alias, DataloggerCode: a.Datalogger, Start: start, End: end,
		})
	}
	for _, code := range sortedKeys(raw.SensorType) {
		m.SensorTypes = append(m.SensorTypes, AddSensorType{Code: code})
	}
	for _, name := range sortedKeysThermistorPair(raw.ThermistorPair) {
		tp := raw.ThermistorPair[name]
		depth, err := parseDepth(tp.Depth)
		if err != nil {
			return nil, fmt.Errorf("thermistor pair %q: %w", name, err)
		}
		m.ThermistorPairs = append(m.ThermistorPairs, AddThermistorPair{SensorTypeCode: tp.SensorType, Name: name, Depth: depth})
	}
	for _, name := range sortedKeysDeployment(raw.Deployment) {
		d := raw.Deployment[name]
		start, end, err := parseInterval(d.Start, d.End)
		if err != nil {
			return nil, fmt.Errorf("deployment %q: %w", name, err)
		}
		installation := map[string]any{}
		for _, kv := range d.Installation {
			k, v, err := parseKeyValue(kv)
			if err != nil {
				return nil, fmt.Errorf("deployment %q installation metadata: %w", name, err)
			}
			installation[k] = v
		}
		m.Deployments = append(m.Deployments, AddDeployment{
			DataloggerCode: d.Datalogger,
			SDIAddress:     d.SDIAddress,
			SensorTypeCode: d.SensorType,
			StemCode:       d.Stem,
			ProjectCode:    d.Project,
			Start:          start,
			End:            end,
			Included:       d.Included,
			Installation:   installation,
		})
	}
	for _, name := range sortedKeysOverride(raw.ParameterOverride) {
		o := raw.ParameterOverride[name]
		level := model.OverrideLevel(o.Level)
		val, err := inferValue(o.Value)
		if err != nil {
			return nil, fmt.Errorf("parameter override %q: %w", name, err)
		}
		m.ParameterOverrides = append(m.ParameterOverrides, AddParameterOverride{
			ParameterCode: o.Parameter, Level: level, ScopeCode: o.Scope, Value: val,
		})
	}
	return m, nil
}

func parseInterval(startRaw, endRaw string) (time.Time, time.Time, error) {
	if strings.TrimSpace(startRaw) == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("missing Start")
	}
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid Start %q: %w", startRaw, err)
	}
	if strings.TrimSpace(endRaw) == "" {
		return start, time.Time{}, nil
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid End %q: %w", endRaw, err)
	}
	return start, end, nil
}

func parseDepth(s string) (model.Depth, error) {
	switch model.Depth(s) {
	case model.DepthInner, model.DepthOuter:
		return model.Depth(s), nil
	default:
		return "", fmt.Errorf("unknown depth %q", s)
	}
}

func parseKeyValue(kv string) (string, any, error) {
	parts := strings.SplitN(kv, "=", 2)
	if len(parts) != 2 {
		return "", nil, fmt.Errorf("expected key=value, got %q", kv)
	}
	val, err := inferValue(parts[1])
	if err != nil {
		return "", nil, err
	}
	var plain any
	switch val.Kind {
	case model.ParamNumber:
		plain = val.Number
	case model.ParamBool:
		plain = val.Bool
	default:
		plain = val.Str
	}
	return strings.TrimSpace(parts[0]), plain, nil
}

// inferValue tries numeric, then boolean, falling back to string — matching
// the typed-JSON-value requirement in spec §4.5 without requiring the
// manifest author to annotate a type explicitly.
func inferValue(raw string) (model.ParameterValue, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.ParameterValue{}, fmt.Errorf("empty value")
	}
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return model.ParameterValue{Kind: model.ParamNumber, Number: n}, nil
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return model.ParameterValue{Kind: model.ParamBool, Bool: b}, nil
	}
	return model.ParameterValue{Kind: model.ParamString, Str: raw}, nil
}

func sortedKeys(m map[string]*struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysSite(m map[string]*rawSite) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysZone(m map[string]*rawZone) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysPlot(m map[string]*rawPlot) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysPlant(m map[string]*rawPlant) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysStem(m map[string]*rawStem) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysDatalogger(m map[string]*rawDatalogger) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysAlias(m map[string]*rawAlias) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysThermistorPair(m map[string]*rawThermistorPair) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysDeployment(m map[string]*rawDeployment) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysOverride(m map[string]*rawOverride) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
