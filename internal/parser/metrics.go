package parser

import "strings"

// metricField names one of the ten canonical measured thermistor metrics.
// Each family parser maps its own column-naming convention onto this set;
// anything that doesn't map is either a derived (firmware-computed) metric
// we recognize and drop, or an unknown column, which is a Validation error.
type metricField int

const (
	fieldAlpha metricField = iota
	fieldBeta
	fieldTMaxDownstream
	fieldTMaxUpstream
	fieldPrePulseDownstream
	fieldMaxRiseDownstream
	fieldPostPulseDownstream
	fieldPrePulseUpstream
	fieldMaxRiseUpstream
	fieldPostPulseUpstream
)

func setMetric(t *Thermistors, f metricField, v *float64) {
	switch f {
	case fieldAlpha:
		t.Alpha = v
	case fieldBeta:
		t.Beta = v
	case fieldTMaxDownstream:
		t.TimeToMaxTempDownstreamS = v
	case fieldTMaxUpstream:
		t.TimeToMaxTempUpstreamS = v
	case fieldPrePulseDownstream:
		t.PrePulseTempDownstreamC = v
	case fieldMaxRiseDownstream:
		t.MaxTempRiseDownstreamC = v
	case fieldPostPulseDownstream:
		t.PostPulseTempDownstreamC = v
	case fieldPrePulseUpstream:
		t.PrePulseTempUpstreamC = v
	case fieldMaxRiseUpstream:
		t.MaxTempRiseUpstreamC = v
	case fieldPostPulseUpstream:
		t.PostPulseTempUpstreamC = v
	}
}

// isDerivedMetricName reports whether name is one of the firmware-computed
// quantities that must never appear in parser output (total sap flow, sap
// flux density, heat velocity).
func isDerivedMetricName(name string) bool {
	for _, p := range DerivedColumnPrefixes {
		if strings.Contains(strings.ToLower(name), strings.ToLower(p)) {
			return true
		}
	}
	return false
}
