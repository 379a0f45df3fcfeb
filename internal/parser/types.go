package parser

import (
	"time"

	"github.com/rileyleff/sapfluxd/internal/model"
)

// Header carries the file-level metadata every TOA5 family shares.
type Header struct {
	LoggerFamily string // the parsing Family, e.g. "SapFlowAll", "CR300Table"
	LoggerName   string // raw logger_name field, e.g. "CR300Series_420"
	TableName    string
}

// LoggerRow is one row of the canonical logger-level table. Column order is
// fixed by spec: (timestamp, record, battery_voltage_v, panel_temperature_c,
// logger_id).
type LoggerRow struct {
	Timestamp         time.Time
	Record            int64
	BatteryVoltageV   *float64
	PanelTemperatureC *float64
	LoggerID          string
}

// Thermistors holds the measured-only metric set for one depth, parallel in
// index to the owning SensorTable's rows.
type Thermistors struct {
	Alpha                        *float64
	Beta                         *float64
	TimeToMaxTempDownstreamS     *float64
	TimeToMaxTempUpstreamS       *float64
	PrePulseTempDownstreamC      *float64
	MaxTempRiseDownstreamC       *float64
	PostPulseTempDownstreamC     *float64
	PrePulseTempUpstreamC        *float64
	MaxTempRiseUpstreamC         *float64
	PostPulseTempUpstreamC       *float64
}

// SensorTable is one SDI-12 address's thermistor readings, one Thermistors
// value per depth per row index (parallel to the owning ParsedFile's
// LoggerRows).
type SensorTable struct {
	SDIAddress string
	// Depths maps each depth present in this sensor's type to a slice of
	// Thermistors readings, index-aligned with LoggerRows.
	Depths map[model.Depth][]Thermistors
}

// ParsedFile is the canonical, measured-only in-memory representation of one
// raw TOA5 file. Hash is assigned by the orchestrator after content hashing,
// not by the parser.
type ParsedFile struct {
	Hash       string
	Header     Header
	LoggerRows []LoggerRow
	Sensors    []SensorTable
}

// Family names one of the three supported input families.
type Family string

const (
	FamilySapFlowAll  Family = "SapFlowAll"
	FamilyCR300Table  Family = "CR300Table"
	FamilyCR200Table  Family = "CR200Table"
)

// Parser converts raw TOA5 bytes into a ParsedFile, or returns a
// FormatMismatch *Error so the caller can try the next family.
type Parser interface {
	Family() Family
	Parse(data []byte) (*ParsedFile, error)
}

// DerivedColumnPrefixes are firmware-computed metrics that must never survive
// into a ParsedFile. Parsers recognize them (to produce clean errors on
// malformed headers) but always drop them.
var DerivedColumnPrefixes = []string{
	"TotalSapFlow", "total_sap_flow",
	"SapFluxDensity", "sap_flux_density_cmh",
	"Vh", "vh_",
}
