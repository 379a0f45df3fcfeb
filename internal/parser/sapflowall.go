package parser

import (
	"regexp"
	"strings"

	"github.com/rileyleff/sapfluxd/internal/model"
)

// sapFlowAllColumn is `S{addr}_{Metric}{Depth}`, e.g. "S0_AlphaOut",
// "S1_TMaxDIn". Derived firmware metrics follow the same shape
// ("S0_VhOut") and are recognized so a malformed/derived-only file produces
// a clean Validation error rather than silently yielding zero sensors.
var sapFlowAllColumnRE = regexp.MustCompile(`^S([a-zA-Z0-9])_([A-Za-z]+)$`)

// SapFlowAll implements Parser for the "S{addr}_{Metric}" column family.
// Logger identity is carried in the header's logger_name field
// (e.g. "CR300Series_420" -> "420"), not in a per-row column.
type SapFlowAll struct{}

func (SapFlowAll) Family() Family { return FamilySapFlowAll }

func (p SapFlowAll) Parse(data []byte) (*ParsedFile, error) {
	rt, err := decodeTOA5Envelope(data)
	if err != nil {
		return nil, err
	}

	matchedAny := false
	for _, f := range rt.fields {
		if sapFlowAllColumnRE.MatchString(f) {
			matchedAny = true
			break
		}
	}
	if !matchedAny {
		return nil, formatMismatch("no column matches the S{addr}_{Metric} naming convention")
	}

	if err := requireColumns(rt, "TIMESTAMP", "RECORD"); err != nil {
		return nil, err
	}
	tsCol, recCol := rt.col("TIMESTAMP"), rt.col("RECORD")
	battCol, panelCol := rt.col("BattV_Min"), rt.col("PTemp_Avg")

	loggerName := rt.loggerName()
	loggerID := loggerIDFromName(loggerName)
	if loggerID == "" {
		return nil, validationErr(0, "logger_name %q yields an empty logger id", loggerName)
	}

	sensorCols := map[string]map[string]int{} // addr -> canonical column name -> field index
	for i, f := range rt.fields {
		m := sapFlowAllColumnRE.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		addr, metric := m[1], m[2]
		if !validSDIAddress(addr) {
			return nil, validationErr(0, "sensor column %q has invalid SDI address %q", f, addr)
		}
		if isDerivedMetricName(metric) {
			continue // recognized, dropped
		}
		if sensorCols[addr] == nil {
			sensorCols[addr] = map[string]int{}
		}
		sensorCols[addr][metric] = i
	}
	if len(sensorCols) == 0 {
		return nil, validationErr(0, "file contains no measured (non-derived) sensor columns")
	}

	pf := &ParsedFile{
		Header: Header{LoggerFamily: string(FamilySapFlowAll), LoggerName: loggerName, TableName: lastEnvField(rt.env)},
	}

	var records []int64
	for i, row := range rt.rows {
		ln := rt.rowLines[i]
		ts, err := parseNaiveTimestamp(cellOrEmpty(row, tsCol))
		if err != nil {
			return nil, dataRowErr(ln, "TIMESTAMP", "%v", err)
		}
		rec, err := parseRecord(cellOrEmpty(row, recCol), ln)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)

		var batt, panel *float64
		if battCol >= 0 {
			if batt, err = parseNullableFloat(cellOrEmpty(row, battCol)); err != nil {
				return nil, errAtLine(err, ln, "BattV_Min")
			}
		}
		if panelCol >= 0 {
			if panel, err = parseNullableFloat(cellOrEmpty(row, panelCol)); err != nil {
				return nil, errAtLine(err, ln, "PTemp_Avg")
			}
		}
		pf.LoggerRows = append(pf.LoggerRows, LoggerRow{
			Timestamp:         ts,
			Record:            rec,
			BatteryVoltageV:   batt,
			PanelTemperatureC: panel,
			LoggerID:          loggerID,
		})
	}
	if err := checkRecordMonotonic(records, func(i int) int { return rt.rowLines[i] }); err != nil {
		return nil, err
	}

	for addr, cols := range sensorCols {
		st := SensorTable{SDIAddress: addr, Depths: map[model.Depth][]Thermistors{}}
		byDepth := map[model.Depth]map[metricField]int{}
		for metric, idx := range cols {
			field, depth, ok := decodeMetricDepth(metric)
			if !ok {
				return nil, validationErr(0, "non-canonical sensor column \"S%s_%s\"", addr, metric)
			}
			if byDepth[depth] == nil {
				byDepth[depth] = map[metricField]int{}
			}
			byDepth[depth][field] = idx
		}
		for depth, fields := range byDepth {
			vals := make([]Thermistors, len(rt.rows))
			for i, row := range rt.rows {
				ln := rt.rowLines[i]
				var t Thermistors
				for field, idx := range fields {
					v, err := parseNullableFloat(cellOrEmpty(row, idx))
					if err != nil {
						return nil, dataRowErr(ln, rt.fields[idx], "%v", err)
					}
					setMetric(&t, field, v)
				}
				vals[i] = t
			}
			st.Depths[depth] = vals
		}
		pf.Sensors = append(pf.Sensors, st)
	}
	return pf, nil
}

// decodeMetricDepth splits a metric token like "AlphaOut" into its field and
// depth: an "Out" or "In" suffix names the depth, and the remaining root
// must be one of the metricTokens below.
func decodeMetricDepth(metric string) (metricField, model.Depth, bool) {
	for _, suffix := range []struct {
		s string
		d model.Depth
	}{
		{"Out", model.DepthOuter},
		{"In", model.DepthInner},
	} {
		if strings.HasSuffix(metric, suffix.s) {
			root := strings.TrimSuffix(metric, suffix.s)
			if f, ok := metricTokens[root]; ok {
				return f, suffix.d, true
			}
		}
	}
	return 0, "", false
}

var metricTokens = map[string]metricField{
	"Alpha": fieldAlpha,
	"Beta":  fieldBeta,
	"TMaxD": fieldTMaxDownstream,
	"TMaxU": fieldTMaxUpstream,
	"PreD":  fieldPrePulseDownstream,
	"RiseD": fieldMaxRiseDownstream,
	"PostD": fieldPostPulseDownstream,
	"PreU":  fieldPrePulseUpstream,
	"RiseU": fieldMaxRiseUpstream,
	"PostU": fieldPostPulseUpstream,
}
