package timestampfix

import (
	"testing"
	"time"

	"github.com/rileyleff/sapfluxd/internal/flatten"
	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/stretchr/testify/require"
)

type staticLookup struct {
	tz map[string]string
}

func (s staticLookup) ActiveTimezoneForLogger(loggerID string, _ time.Time) (string, bool) {
	tz, ok := s.tz[loggerID]
	return tz, ok
}

func row(loggerID string, record int64, ts time.Time, hash string) flatten.Row {
	return flatten.Row{
		Timestamp:  ts,
		Record:     record,
		LoggerID:   loggerID,
		SDIAddress: "0",
		Depth:      model.DepthOuter,
		FileHash:   hash,
	}
}

func TestFixGroupsBySignatureAndAnchorsOnMinRecord(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := []flatten.Row{
		row("420", 2, base.Add(30*time.Minute), "fileA"),
		row("420", 1, base, "fileA"), // lowest record -> anchor
		row("420", 3, base.Add(60*time.Minute), "fileA"),
	}
	lookup := staticLookup{tz: map[string]string{"420": "America/New_York"}}

	out, skips, err := Fix(rows, lookup)
	require.NoError(t, err)
	require.Empty(t, skips)
	require.Len(t, out, 3)

	_, offset := base.In(mustLoc(t, "America/New_York")).Zone()
	for _, r := range out {
		require.Equal(t, r.Timestamp.Add(-time.Duration(offset)*time.Second).UTC(), r.TimestampUTC)
	}
}

func TestFixSkipsLoggerWithNoActiveDeployment(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := []flatten.Row{row("999", 1, base, "fileA")}
	lookup := staticLookup{tz: map[string]string{}}

	out, skips, err := Fix(rows, lookup)
	require.NoError(t, err)
	require.Empty(t, out)
	require.Len(t, skips, 1)
	require.Equal(t, "999", skips[0].LoggerID)
	require.Equal(t, 1, skips[0].RowCount)
}

func TestFixSeparatesChunksByFileSetSignature(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	rows := []flatten.Row{
		row("420", 1, base, "fileA"),
		row("420", 2, base.Add(30*time.Minute), "fileA"),
		// A later visit re-reads overlapping records from a new file, forming
		// a second implied-visit chunk with its own anchor.
		row("420", 10, base.Add(24*time.Hour), "fileB"),
		row("420", 11, base.Add(24*time.Hour+30*time.Minute), "fileB"),
	}
	lookup := staticLookup{tz: map[string]string{"420": "America/New_York"}}

	out, skips, err := Fix(rows, lookup)
	require.NoError(t, err)
	require.Empty(t, skips)
	require.Len(t, out, 4)

	sigs := map[string]bool{}
	for _, r := range out {
		sigs[r.FileSetSignature] = true
	}
	require.Len(t, sigs, 2)
}

func TestResolveOffsetSpringForwardGapUsesOffsetBeforeGap(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	// 2024-03-10 02:30 local does not exist (clocks jump 02:00 -> 03:00).
	naive := time.Date(2024, 3, 10, 2, 30, 0, 0, time.UTC)
	offset, gap, ambiguous := resolveOffset(loc, naive)
	require.True(t, gap)
	require.False(t, ambiguous)
	require.Equal(t, -18000, offset) // EST
}

func TestResolveOffsetFallBackAmbiguousUsesLaterOffset(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	// 2024-11-03 01:30 local occurs twice (EDT then EST).
	naive := time.Date(2024, 11, 3, 1, 30, 0, 0, time.UTC)
	offset, gap, ambiguous := resolveOffset(loc, naive)
	require.False(t, gap)
	require.True(t, ambiguous)
	require.Equal(t, -18000, offset) // EST, the later (standard time) offset
}

func TestResolveOffsetOrdinaryInstantIsUnambiguous(t *testing.T) {
	loc := mustLoc(t, "America/New_York")
	naive := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	offset, gap, ambiguous := resolveOffset(loc, naive)
	require.False(t, gap)
	require.False(t, ambiguous)
	require.Equal(t, -18000, offset)
}

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}
