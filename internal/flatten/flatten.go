// Package flatten collapses the hierarchical parser.ParsedFile into one row
// per (timestamp, record, logger, sdi_address, thermistor_depth), broadcasting
// logger-level columns and stacking thermistor-pair columns. The file hash is
// attached so the timestamp fixer can compute file-set signatures downstream.
package flatten

import (
	"fmt"
	"time"

	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/parser"
)

// Row is one flattened measurement: the logger-level columns broadcast
// across every (sdi_address, depth) combination present in the source file,
// plus that combination's stacked thermistor columns.
type Row struct {
	Timestamp         time.Time // naive, logger-local — corrected in internal/timestampfix
	Record            int64
	LoggerID          string
	SDIAddress        string
	Depth             model.Depth
	BatteryVoltageV   *float64
	PanelTemperatureC *float64
	FileHash          string
	parser.Thermistors
}

// SchemaMismatchError is a fatal pipeline error: a ParsedFile breaks the
// shape the parser family contract guarantees. It is raised when a file has
// no hash assigned, when a sensor emits a depth outside the closed enum, or
// when a sensor depth's row count differs from the file's logger table;
// kept as a defensive, explicit check per spec §4.2 rather than relying
// solely on the type system.
type SchemaMismatchError struct {
	FileHash string
	Reason   string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("schema mismatch in file %s: %s", e.FileHash, e.Reason)
}

var validDepths = map[model.Depth]bool{model.DepthInner: true, model.DepthOuter: true}

// Flatten collapses a batch of already-hashed ParsedFiles into flattened
// rows. Every pf.Hash must be set by the caller (the orchestrator assigns it
// at upload time, not the parser).
func Flatten(files []*parser.ParsedFile) ([]Row, error) {
	var out []Row
	for _, pf := range files {
		if pf.Hash == "" {
			return nil, &SchemaMismatchError{FileHash: "", Reason: "ParsedFile has no hash assigned"}
		}
		for _, st := range pf.Sensors {
			for depth, vals := range st.Depths {
				if !validDepths[depth] {
					return nil, &SchemaMismatchError{FileHash: pf.Hash, Reason: fmt.Sprintf("unknown depth %q", depth)}
				}
				if len(vals) != len(pf.LoggerRows) {
					return nil, &SchemaMismatchError{FileHash: pf.Hash, Reason: fmt.Sprintf("sensor %s depth %s has %d rows, logger table has %d", st.SDIAddress, depth, len(vals), len(pf.LoggerRows))}
				}
				for i, lr := range pf.LoggerRows {
					out = append(out, Row{
						Timestamp:         lr.Timestamp,
						Record:            lr.Record,
						LoggerID:          lr.LoggerID,
						SDIAddress:        st.SDIAddress,
						Depth:             depth,
						BatteryVoltageV:   lr.BatteryVoltageV,
						PanelTemperatureC: lr.PanelTemperatureC,
						FileHash:          pf.Hash,
						Thermistors:       vals[i],
					})
				}
			}
		}
	}
	return out, nil
}
