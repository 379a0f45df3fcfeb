package calc

import (
	"testing"
	"time"

	"github.com/rileyleff/sapfluxd/internal/enrich"
	"github.com/rileyleff/sapfluxd/internal/flatten"
	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/resolve"
	"github.com/rileyleff/sapfluxd/internal/timestampfix"
	"github.com/stretchr/testify/require"
)

func qualityParams() map[string]float64 {
	return map[string]float64{
		ParamQualityDeploymentStartGraceMinutes: 0,
		ParamQualityDeploymentEndGraceMinutes:   0,
		ParamQualityFutureLeadMinutes:           0,
		ParamQualityGapYears:                    1,
		ParamQualityMaxFluxCmHr:                 100,
		ParamQualityMinFluxCmHr:                 -10,
	}
}

func qualityRow(loggerID string, record int64, ts time.Time, flux *float64) Row {
	rr := resolve.Row{
		Row: enrich.Row{
			Row: timestampfix.Row{
				Row:          flatten.Row{LoggerID: loggerID, Record: record},
				TimestampUTC: ts,
			},
		},
		Parameters: map[string]resolve.Resolved{},
	}
	for k, v := range qualityParams() {
		rr.Parameters[k] = resolve.Resolved{Value: model.ParameterValue{Kind: model.ParamNumber, Number: v}}
	}
	return Row{Row: rr, Result: Result{SapFluxDensityJDMACmHr: flux}}
}

func fixedWindow(start, end time.Time) func(resolve.Row) DeploymentWindow {
	return func(resolve.Row) DeploymentWindow { return DeploymentWindow{Start: start, End: end} }
}

func qualityRowWithGapYears(loggerID string, record int64, ts time.Time, flux *float64, gapYears float64) Row {
	r := qualityRow(loggerID, record, ts, flux)
	r.Parameters[ParamQualityGapYears] = resolve.Resolved{Value: model.ParameterValue{Kind: model.ParamNumber, Number: gapYears}}
	return r
}

func TestApplyQualityFlagsTimestampBeforeDeployment(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rows := []Row{qualityRow("420", 1, start.Add(-time.Hour), f(1))}
	ApplyQuality(rows, fixedWindow(start, time.Time{}), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, rows[0].Quality)
	require.Equal(t, ReasonTimestampBeforeDeployment, rows[0].QualityExplanation)
}

func TestApplyQualityFlagsFutureTimestamp(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Row{qualityRow("420", 1, now.Add(48*time.Hour), f(1))}
	ApplyQuality(rows, fixedWindow(time.Time{}, time.Time{}), now)
	require.NotNil(t, rows[0].Quality)
	require.Contains(t, rows[0].QualityExplanation, ReasonTimestampFuture)
}

func TestApplyQualityFlagsFluxOutOfRange(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Row{
		qualityRow("420", 1, now.Add(-time.Hour), f(500)),
		qualityRow("420", 2, now.Add(-time.Minute), f(-50)),
	}
	ApplyQuality(rows, fixedWindow(time.Time{}, time.Time{}), now)
	require.Equal(t, ReasonFluxAboveMax, rows[0].QualityExplanation)
	require.Equal(t, ReasonFluxBelowMin, rows[1].QualityExplanation)
}

func TestApplyQualityFlagsRecordGapExceedingYears(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Row{
		qualityRow("420", 1, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), f(1)),
		qualityRow("420", 2, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), f(1)),
	}
	ApplyQuality(rows, fixedWindow(time.Time{}, time.Time{}), now)
	require.Nil(t, rows[0].Quality)
	require.Equal(t, ReasonRecordGapGtQualityGapYears, rows[1].QualityExplanation)
}

func TestApplyQualityResolvesGapYearsPerRowNotFromFirstRow(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	// The first row in record order carries a lenient 100-year threshold,
	// but the second row (a different stem/deployment sharing this
	// logger_id) cascades its own strict 1-year threshold. A 2-year gap
	// between them must be judged against the second row's own value, not
	// hoisted from the first row's.
	rows := []Row{
		qualityRowWithGapYears("420", 1, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), f(1), 100),
		qualityRowWithGapYears("420", 2, time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC), f(1), 1),
	}
	ApplyQuality(rows, fixedWindow(time.Time{}, time.Time{}), now)
	require.Nil(t, rows[0].Quality)
	require.Equal(t, ReasonRecordGapGtQualityGapYears, rows[1].QualityExplanation)
}

func TestApplyQualityLeavesGoodRowsUnflagged(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []Row{qualityRow("420", 1, now.Add(-time.Hour), f(5))}
	ApplyQuality(rows, fixedWindow(time.Time{}, time.Time{}), now)
	require.Nil(t, rows[0].Quality)
	require.Empty(t, rows[0].QualityExplanation)
}
