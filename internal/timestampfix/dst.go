package timestampfix

import "time"

// resolveOffset determines the UTC offset, in seconds east of UTC, that
// applies to a naive local wall-clock time in loc.
//
// DST fallback policy (documented per spec §4.3/§9, since the exact IANA
// fallback rule is otherwise underspecified):
//   - spring-forward gap (no valid local time): use the offset in effect
//     just before the gap.
//   - fall-back ambiguous hour (two valid offsets): use the later offset,
//     i.e. standard time, deterministically.
func resolveOffset(loc *time.Location, naive time.Time) (offsetSeconds int, gap, ambiguous bool) {
	// Treat the naive wall-clock components as a fixed instant so we can
	// probe the zone table on either side of it without caring what offset
	// Go's own (implementation-defined) resolution would have picked.
	asInstant := time.Date(naive.Year(), naive.Month(), naive.Day(), naive.Hour(), naive.Minute(), naive.Second(), naive.Nanosecond(), time.UTC)

	before := asInstant.Add(-36 * time.Hour).In(loc)
	after := asInstant.Add(36 * time.Hour).In(loc)
	_, offBefore := before.Zone()
	_, offAfter := after.Zone()

	tryOffset := func(off int) bool {
		instant := asInstant.Add(-time.Duration(off) * time.Second)
		wall := instant.In(loc)
		return sameWallClock(wall, naive)
	}

	beforeValid := tryOffset(offBefore)
	afterValid := tryOffset(offAfter)

	switch {
	case beforeValid && afterValid:
		if offBefore == offAfter {
			return offBefore, false, false
		}
		// Ambiguous fall-back hour: pick the later (standard time) offset.
		return offAfter, false, true
	case beforeValid:
		return offBefore, false, false
	case afterValid:
		return offAfter, false, false
	default:
		// Spring-forward gap: no offset reproduces this wall clock. Fall
		// back to the offset in effect just before the gap.
		return offBefore, true, false
	}
}

func sameWallClock(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}
