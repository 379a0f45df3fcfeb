package calc

import (
	"sort"
	"strings"
	"time"

	"github.com/rileyleff/sapfluxd/internal/resolve"
)

// Reason codes for the pipe-delimited quality_explanation column.
const (
	ReasonTimestampBeforeDeployment    = "timestamp_before_deployment"
	ReasonTimestampAfterDeployment     = "timestamp_after_deployment"
	ReasonTimestampFuture              = "timestamp_future"
	ReasonRecordGapGtQualityGapYears   = "record_gap_gt_quality_gap_years"
	ReasonFluxAboveMax                 = "sap_flux_density_above_quality_max_flux_cm_hr"
	ReasonFluxBelowMin                 = "sap_flux_density_below_quality_min_flux_cm_hr"

	qualitySuspect = "SUSPECT"
)

// DeploymentWindow is the subset of deployment data the quality filter
// needs, supplied per row since resolve.Row doesn't carry deployment start/
// end directly (only enrich's hierarchy join does, upstream).
type DeploymentWindow struct {
	Start time.Time
	End   time.Time // zero means open-ended
}

// ApplyQuality evaluates the six rules from spec §4.6 against every row,
// comparing consecutive records per logger for the gap rule. now is
// injected by the caller so the check is deterministic and testable.
func ApplyQuality(rows []Row, windows func(resolve.Row) DeploymentWindow, now time.Time) {
	byLogger := map[string][]int{}
	for i, r := range rows {
		byLogger[r.LoggerID] = append(byLogger[r.LoggerID], i)
	}
	for _, idxs := range byLogger {
		sort.Slice(idxs, func(a, b int) bool { return rows[idxs[a]].Record < rows[idxs[b]].Record })
		for i := 1; i < len(idxs); i++ {
			prev := rows[idxs[i-1]]
			cur := &rows[idxs[i]]
			// quality_gap_years is cascaded per row, not per logger, so it's
			// resolved fresh for cur rather than reused from the first row in
			// the logger's sequence — stems/deployments sharing one logger_id
			// can legitimately carry different values.
			gapYears := numParam(cur.Row, ParamQualityGapYears)
			elapsed := cur.TimestampUTC.Sub(prev.TimestampUTC)
			if gapYears > 0 && elapsed > yearsToDuration(gapYears) {
				addReason(cur, ReasonRecordGapGtQualityGapYears)
			}
		}
	}

	for i := range rows {
		r := &rows[i]
		win := windows(r.Row)

		startGrace := time.Duration(numParam(r.Row, ParamQualityDeploymentStartGraceMinutes)) * time.Minute
		endGrace := time.Duration(numParam(r.Row, ParamQualityDeploymentEndGraceMinutes)) * time.Minute
		futureLead := time.Duration(numParam(r.Row, ParamQualityFutureLeadMinutes)) * time.Minute
		maxFlux := numParam(r.Row, ParamQualityMaxFluxCmHr)
		minFlux := numParam(r.Row, ParamQualityMinFluxCmHr)

		if !win.Start.IsZero() && r.TimestampUTC.Before(win.Start.Add(-startGrace)) {
			addReason(r, ReasonTimestampBeforeDeployment)
		}
		if !win.End.IsZero() && r.TimestampUTC.After(win.End.Add(endGrace)) {
			addReason(r, ReasonTimestampAfterDeployment)
		}
		if r.TimestampUTC.After(now.Add(futureLead)) {
			addReason(r, ReasonTimestampFuture)
		}
		if r.SapFluxDensityJDMACmHr != nil {
			if *r.SapFluxDensityJDMACmHr > maxFlux {
				addReason(r, ReasonFluxAboveMax)
			}
			if *r.SapFluxDensityJDMACmHr < minFlux {
				addReason(r, ReasonFluxBelowMin)
			}
		}
	}
}

func addReason(r *Row, reason string) {
	suspect := qualitySuspect
	r.Quality = &suspect
	if r.QualityExplanation == "" {
		r.QualityExplanation = reason
		return
	}
	r.QualityExplanation = strings.Join([]string{r.QualityExplanation, reason}, "|")
}

func yearsToDuration(years float64) time.Duration {
	const hoursPerYear = 24 * 365.25
	return time.Duration(years * hoursPerYear * float64(time.Hour))
}
