package calc

import (
	"math"
	"testing"

	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/resolve"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func paramRow(values map[string]float64) resolve.Row {
	params := make(map[string]resolve.Resolved, len(values))
	for k, v := range values {
		params[k] = resolve.Resolved{Value: model.ParameterValue{Kind: model.ParamNumber, Number: v}, Source: model.LevelDefault}
	}
	return resolve.Row{Parameters: params}
}

func defaultParams() map[string]float64 {
	return map[string]float64{
		ParamThermalDiffusivityK:  0.0025,
		ParamDistanceDownstreamCm: 0.6,
		ParamDistanceUpstreamCm:   0.6,
		ParamPulseDurationT0S:     3,
		ParamWoundCorrectionA:     1,
		ParamWoundCorrectionB:     0,
		ParamWoundCorrectionC:     0,
		ParamWoodDensityDry:       450,
		ParamSpecificHeatWood:     1500,
		ParamMoistureContent:      0.5,
		ParamSpecificHeatWater:    4182,
		ParamWoodDensityFresh:     700,
	}
}

func TestComputeHRMBranch(t *testing.T) {
	r := paramRow(defaultParams())
	alpha := 0.1
	res := Compute(r, &alpha, nil)
	require.NotNil(t, res.VhHRMCmHr)
	require.NotNil(t, res.JHRMCmHr)
	require.Nil(t, res.VhTmaxCmHr)
	require.Equal(t, MethodHRM, res.CalculationMethodUsed)
	require.Equal(t, res.JHRMCmHr, res.SapFluxDensityJDMACmHr)
}

func TestComputeTmaxGuardsInvalidDomain(t *testing.T) {
	r := paramRow(defaultParams())
	tm := 2.0 // tm <= t0 (3) -> guard fires
	res := Compute(r, nil, &tm)
	require.Nil(t, res.VhTmaxCmHr)
	require.Nil(t, res.JTmaxCmHr)
}

func TestComputeTmaxBranchWhenValid(t *testing.T) {
	r := paramRow(defaultParams())
	tm := 20.0
	res := Compute(r, nil, &tm)
	require.NotNil(t, res.VhTmaxCmHr)
	require.False(t, math.IsNaN(*res.VhTmaxCmHr))
	require.NotNil(t, res.JTmaxCmHr)
}

func TestWoundCorrectIdentityWhenLinearOnly(t *testing.T) {
	v := woundCorrect(1, 0, 0, 5.0)
	require.Equal(t, 5.0, v)
}

func TestPecletSwitchPrefersHRMWhenBetaLessThanOne(t *testing.T) {
	params := defaultParams()
	// Small alpha keeps v_h_hrm, and therefore beta, tiny.
	r := paramRow(params)
	alpha := 0.01
	tm := 20.0
	res := Compute(r, &alpha, &tm)
	require.NotNil(t, res.Peclet)
	require.LessOrEqual(t, *res.Peclet, 1.0)
	require.Equal(t, MethodHRM, res.CalculationMethodUsed)
}

func TestPecletSwitchPrefersTmaxWhenBetaGreaterThanOne(t *testing.T) {
	params := defaultParams()
	// Large alpha pushes v_h_hrm, and therefore beta, above 1.
	r := paramRow(params)
	alpha := 5.0
	tm := 20.0
	res := Compute(r, &alpha, &tm)
	require.NotNil(t, res.JHRMCmHr)
	require.NotNil(t, res.JTmaxCmHr)
	require.NotNil(t, res.Peclet)
	require.Greater(t, *res.Peclet, 1.0)
	require.Equal(t, MethodTmax, res.CalculationMethodUsed)
	require.Equal(t, res.JTmaxCmHr, res.SapFluxDensityJDMACmHr)
}
