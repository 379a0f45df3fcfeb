package parser

import (
	"strconv"
	"strings"
	"time"
)

// timeLayouts are tried in order; TOA5 almost always emits the first but
// some CR200 firmware drops fractional seconds entirely.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
}

func parseNaiveTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// validSDIAddress reports whether s is exactly one character from [a-zA-Z0-9].
func validSDIAddress(s string) bool {
	if len(s) != 1 {
		return false
	}
	c := s[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// loggerIDFromName derives a logger id by splitting logger_name on '_' and
// taking the last segment, per spec §4.1.
func loggerIDFromName(loggerName string) string {
	parts := strings.Split(loggerName, "_")
	return parts[len(parts)-1]
}

// resolveRowLoggerIDs enforces the single-value invariant for a per-row
// logger id column: every non-empty value across rows must be identical.
// Returns the unique value.
func resolveRowLoggerIDs(values []string, line func(i int) int) (string, error) {
	seen := map[string]bool{}
	var unique string
	for i, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || isNullSentinel(v) {
			continue
		}
		if !seen[v] {
			seen[v] = true
			unique = v
		}
	}
	if len(seen) > 1 {
		var distinct []string
		for k := range seen {
			distinct = append(distinct, k)
		}
		return "", inconsistentIDErr(line(0), "row logger id column has %d distinct values: %v", len(seen), distinct)
	}
	return unique, nil
}

// checkRecordMonotonic enforces the strictly-+1 sequence invariant.
func checkRecordMonotonic(records []int64, line func(i int) int) error {
	if len(records) == 0 {
		return nil
	}
	for i := 1; i < len(records); i++ {
		if records[i] != records[i-1]+1 {
			return nonMonotonicErr(line(i), "record %d does not immediately follow %d", records[i], records[i-1])
		}
	}
	return nil
}

func parseRecord(s string, ln int) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, dataRowErr(ln, "record", "invalid record number %q: %v", s, err)
	}
	return v, nil
}

// lastEnvField returns the table_name field, the last field of the TOA5
// environment line.
func lastEnvField(env []string) string {
	if len(env) == 0 {
		return ""
	}
	return strings.Trim(env[len(env)-1], `"`)
}

func cellOrEmpty(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// requireColumns returns Validation errors for every name in names missing
// from rt.fields.
func requireColumns(rt *rawTable, names ...string) error {
	var missing []string
	for _, n := range names {
		if rt.col(n) < 0 {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return validationErr(0, "missing required column(s): %s", strings.Join(missing, ", "))
	}
	return nil
}

// errAtLine wraps err (if non-nil) with context about which row it came
// from, used by family parsers when delegating to common float/record
// parsing helpers that don't know the line number.
func errAtLine(err error, ln int, column string) error {
	if err == nil {
		return nil
	}
	return dataRowErr(ln, column, "%v", err)
}
