package parser

import (
	"regexp"

	"github.com/rileyleff/sapfluxd/internal/model"
)

// cr200ColumnRE matches the legacy "derived-suffix" naming used by CR200
// loggers and older CR300 programs: "{Metric}{Depth}{addr}", e.g.
// "AlphaOut0", "TMaxDIn1".
var cr200ColumnRE = regexp.MustCompile(`^([A-Za-z]+)([a-zA-Z0-9])$`)

// CR200Table implements Parser for the legacy column family where the SDI
// address is a bare trailing character and logger identity comes from a
// per-row "id" column.
type CR200Table struct{}

func (CR200Table) Family() Family { return FamilyCR200Table }

func (p CR200Table) Parse(data []byte) (*ParsedFile, error) {
	rt, err := decodeTOA5Envelope(data)
	if err != nil {
		return nil, err
	}

	matchedAny := false
	for _, f := range rt.fields {
		if m := cr200ColumnRE.FindStringSubmatch(f); m != nil {
			if _, _, ok := decodeMetricDepth(m[1]); ok {
				matchedAny = true
				break
			}
			if isDerivedMetricName(m[1]) {
				matchedAny = true
				break
			}
		}
	}
	if !matchedAny {
		return nil, formatMismatch("no column matches the legacy {Metric}{Depth}{addr} naming convention")
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
		if i == tsCol || i == recCol || i == idCol || i == battCol || i == panelCol {
			continue
		}
		m := cr200ColumnRE.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		metric, addr := m[1], m[2]
		if isDerivedMetricName(metric) {
			continue
		}
		if !validSDIAddress(addr) {
			return nil, validationErr(0, "sensor column %q has invalid SDI address %q", f, addr)
		}
		if _, _, ok := decodeMetricDepth(metric); !ok {
			return nil, validationErr(0, "non-canonical sensor column %q", f)
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
		Header: Header{LoggerFamily: string(FamilyCR200Table), LoggerName: rt.loggerName(), TableName: lastEnvField(rt.env)},
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
			field, depth, _ := decodeMetricDepth(metric)
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
