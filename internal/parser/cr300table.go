package parser

import (
	"regexp"

	"github.com/rileyleff/sapfluxd/internal/model"
)

// cr300ColumnRE matches "{Metric}{Depth}_S{addr}", e.g. "AlphaOut_S0".
var cr300ColumnRE = regexp.MustCompile(`^([A-Za-z]+)_S([a-zA-Z0-9])$`)

// CR300Table implements Parser for CR300-family tables that carry an
// explicit per-row "id" column and suffix each sensor column with its SDI
// address ("AlphaOut_S0"). The metric part must end in an Out or In depth
// suffix; a column without one, such as "Alpha_S0", is rejected as
// non-canonical.
type CR300Table struct{}

func (CR300Table) Family() Family { return FamilyCR300Table }

func (p CR300Table) Parse(data []byte) (*ParsedFile, error) {
	rt, err := decodeTOA5Envelope(data)
	if err != nil {
		return nil, err
	}

	matchedAny := false
	for _, f := range rt.fields {
		if cr300ColumnRE.MatchString(f) {
			matchedAny = true
			break
		}
	}
	if !matchedAny {
		return nil, formatMismatch("no column matches the {Metric}_S{addr} naming convention")
	}
	if err := requireColumns(rt, "TIMESTAMP", "RECORD", "id"); err != nil {
		return nil, err
	}
	tsCol, recCol, idCol := rt.col("TIMESTAMP"), rt.col("RECORD"), rt.col("id")
	battCol, panelCol := rt.col("BattV_Min"), rt.col("PTemp_Avg")

	idValues := make([]string, len(rt.rows))
	for i, row := range rt.rows {
		idValues[i] = cellOrEmpty(row, idCol)
	}
	loggerID, err := resolveRowLoggerIDs(idValues, func(i int) int { return rt.rowLines[i] })
	if err != nil {
		return nil, err
	}

	sensorCols := map[string]map[string]int{}
	for i, f := range rt.fields {
		m := cr300ColumnRE.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		metric, addr := m[1], m[2]
		if !validSDIAddress(addr) {
			return nil, validationErr(0, "sensor column %q has invalid SDI address %q", f, addr)
		}
		if isDerivedMetricName(metric) {
			continue
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
		Header: Header{LoggerFamily: string(FamilyCR300Table), LoggerName: rt.loggerName(), TableName: lastEnvField(rt.env)},
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
				return nil, validationErr(0, "non-canonical sensor column \"%s_S%s\"", metric, addr)
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
