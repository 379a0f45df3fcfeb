package timestampfix

import (
	"sort"
	"strings"

	"github.com/rileyleff/sapfluxd/internal/flatten"
)

type recordKey struct {
	loggerID string
	record   int64
}

type rowKey struct {
	recordKey
	sdiAddress string
	depth      string
}

// dedupe collapses rows across files: a row identified by
// (logger_id, record, sdi_address, depth) survives once, and is tagged with
// the sorted, joined set of distinct file hashes its (logger_id, record)
// pair appeared in across the whole batch.
func dedupe(rows []flatten.Row) []dedupedRow {
	fileSets := map[recordKey]map[string]bool{}
	for _, r := range rows {
		k := recordKey{loggerID: r.LoggerID, record: r.Record}
		if fileSets[k] == nil {
			fileSets[k] = map[string]bool{}
		}
		fileSets[k][r.FileHash] = true
	}

	seen := map[rowKey]bool{}
	var out []dedupedRow
	for _, r := range rows {
		rk := rowKey{recordKey: recordKey{loggerID: r.LoggerID, record: r.Record}, sdiAddress: r.SDIAddress, depth: string(r.Depth)}
		if seen[rk] {
			continue
		}
		seen[rk] = true
		out = append(out, dedupedRow{
			Row:       r,
			Signature: fileSetSignature(fileSets[rk.recordKey]),
		})
	}
	return out
}

type dedupedRow struct {
	flatten.Row
	Signature string
}

// fileSetSignature renders the sorted, joined set of distinct file hashes as
// a single comparable string — two (logger_id, record) pairs seen in the
// exact same set of files produce the exact same signature.
func fileSetSignature(set map[string]bool) string {
	hashes := make([]string, 0, len(set))
	for h := range set {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	return strings.Join(hashes, ",")
}
