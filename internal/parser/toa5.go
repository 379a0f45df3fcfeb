package parser

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// rawTable is the result of decoding the generic TOA5 envelope: a four-line
// header (environment line, field names, units, processing types) followed
// by CSV data rows. Family-specific parsers interpret the field names to
// build a ParsedFile; this file only understands the envelope, not the
// column semantics.
type rawTable struct {
	env       []string // line 1: "TOA5","logger_name","logger_model",...
	fields    []string // line 2
	units     []string // line 3
	procTypes []string // line 4
	rows      [][]string
	// rowLines maps rows[i] back to its 1-indexed line number in the source
	// file, for error messages.
	rowLines []int
}

// decodeTOA5Envelope parses the four-line TOA5 header plus CSV body shared by
// every supported family. It returns a FormatMismatch error if the input
// does not look like TOA5 at all.
func decodeTOA5Envelope(data []byte) (*rawTable, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var lines [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			break
		}
		lines = append(lines, rec)
	}
	if len(lines) < 4 {
		return nil, formatMismatch("file has fewer than 4 header lines")
	}
	if len(lines[0]) == 0 || lines[0][0] != "TOA5" {
		return nil, formatMismatch("first header field is %q, want \"TOA5\"", firstOrEmpty(lines[0]))
	}

	rt := &rawTable{
		env:       lines[0],
		fields:    lines[1],
		units:     lines[2],
		procTypes: lines[3],
	}
	for i, rec := range lines[4:] {
		rt.rows = append(rt.rows, rec)
		rt.rowLines = append(rt.rowLines, i+5)
	}
	return rt, nil
}

func firstOrEmpty(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[0]
}

// loggerName extracts the logger_name field (index 1) of the TOA5
// environment line.
func (rt *rawTable) loggerName() string {
	if len(rt.env) > 1 {
		return rt.env[1]
	}
	return ""
}

// col returns the index of a column by exact name, or -1.
func (rt *rawTable) col(name string) int {
	for i, f := range rt.fields {
		if f == name {
			return i
		}
	}
	return -1
}

// isNullSentinel reports whether a raw cell value represents a logger-level
// null: -99, NAN, NaN, and also lowercase nan since loggers differ in
// firmware revision. Other spellings such as "Nan" are not sentinels.
func isNullSentinel(s string) bool {
	switch strings.TrimSpace(s) {
	case "-99", "NAN", "NaN", "nan":
		return true
	}
	return false
}

// parseNullableFloat parses a cell that may be a null sentinel.
func parseNullableFloat(s string) (*float64, error) {
	if isNullSentinel(s) {
		return nil, nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
