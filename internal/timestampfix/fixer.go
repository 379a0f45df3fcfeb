// Package timestampfix implements the implied-visit chunking algorithm that
// recovers a trustworthy UTC timestamp for timezone-naive, drifting logger
// clocks. See spec §4.3 for the full algorithm description.
package timestampfix

import (
	"fmt"
	"sort"
	"time"

	"github.com/rileyleff/sapfluxd/internal/flatten"
)

// DeploymentLookup resolves the IANA site timezone that applies to a given
// logger at a given naive anchor instant, matching either the logger's
// canonical code or a time-valid alias. Implemented by internal/enrich
// against the transaction's metadata snapshot.
type DeploymentLookup interface {
	ActiveTimezoneForLogger(loggerID string, anchor time.Time) (tz string, ok bool)
}

// Row is one timestamp-corrected measurement: the deduplicated flattened
// row plus its resolved UTC timestamp and retained file-set signature.
type Row struct {
	flatten.Row
	TimestampUTC     time.Time
	FileSetSignature string
}

// Skip records an implied-visit group dropped because its logger had no
// active deployment at the anchor time. Informational, not an error — it is
// surfaced in the transaction receipt's skipped_chunks list.
type Skip struct {
	LoggerID         string
	AnchorTime       time.Time
	FileSetSignature string
	RowCount         int
	Reason           string
}

type chunkKey struct {
	loggerID  string
	signature string
}

// Fix runs the full implied-visit algorithm: dedupe, chunk, resolve each
// chunk's anchor + UTC offset, and join the offset back onto every row in
// the chunk. Groups whose logger has no active deployment at the anchor
// time are skipped, not failed.
func Fix(rows []flatten.Row, lookup DeploymentLookup) ([]Row, []Skip, error) {
	deduped := dedupe(rows)

	chunks := map[chunkKey][]dedupedRow{}
	var order []chunkKey
	for _, r := range deduped {
		k := chunkKey{loggerID: r.LoggerID, signature: r.Signature}
		if _, ok := chunks[k]; !ok {
			order = append(order, k)
		}
		chunks[k] = append(chunks[k], r)
	}
	// Deterministic iteration order for reproducible receipts.
	sort.Slice(order, func(i, j int) bool {
		if order[i].loggerID != order[j].loggerID {
			return order[i].loggerID < order[j].loggerID
		}
		return order[i].signature < order[j].signature
	})

	var out []Row
	var skips []Skip
	for _, k := range order {
		group := chunks[k]
		anchor := anchorTimestamp(group)

		tz, ok := lookup.ActiveTimezoneForLogger(k.loggerID, anchor)
		if !ok {
			skips = append(skips, Skip{
				LoggerID:         k.loggerID,
				AnchorTime:       anchor,
				FileSetSignature: k.signature,
				RowCount:         len(group),
				Reason:           "no active deployment for this logger at the anchor time",
			})
			continue
		}
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid timezone %q for logger %s: %w", tz, k.loggerID, err)
		}
		offset, _, _ := resolveOffset(loc, anchor)
		for _, r := range group {
			out = append(out, Row{
				Row:              r.Row,
				TimestampUTC:     r.Timestamp.Add(-time.Duration(offset) * time.Second).UTC(),
				FileSetSignature: r.Signature,
			})
		}
	}
	return out, skips, nil
}

// anchorTimestamp is the naive timestamp of the row with the minimum record
// in the group — the moment the field visit implies the clock was
// synchronized.
func anchorTimestamp(group []dedupedRow) time.Time {
	min := group[0]
	for _, r := range group[1:] {
		if r.Record < min.Record {
			min = r
		}
	}
	return min.Timestamp
}
