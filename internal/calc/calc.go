// Package calc implements the Dual Method Approach with Péclet transition
// (DMA-Péclet): HRM and Tmax heat velocities computed in parallel, wound
// correction, conversion to sap flux density, and the β-threshold switch
// between the two branches.
package calc

import (
	"math"

	"github.com/rileyleff/sapfluxd/internal/resolve"
)

const (
	cmPerM         = 100.0
	secondsPerHour = 3600.0
	// cmPerHourToMPerS converts a cm/h velocity to m/s: divide by (100 cm/m)
	// and by (3600 s/h).
	cmPerHourToMPerS = 1.0 / (cmPerM * secondsPerHour)
	mPerSToCmPerHour = cmPerM * secondsPerHour
)

// Method names which branch of the DMA-Péclet switch produced the final
// value for a row.
type Method string

const (
	MethodHRM  Method = "HRM"
	MethodTmax Method = "Tmax"
)

// Result holds every intermediate and final value the calculator emits per
// row, per spec §4.6.
type Result struct {
	VhHRMCmHr   *float64
	VhTmaxCmHr  *float64
	VcHRMCmHr   *float64
	VcTmaxCmHr  *float64
	JHRMCmHr    *float64
	JTmaxCmHr   *float64
	SapFluxDensityJDMACmHr *float64
	CalculationMethodUsed  Method
	Peclet                 *float64
}

// Row is a resolved row with its calculated sap-flux values and quality
// flags attached.
type Row struct {
	resolve.Row
	Result
	Quality            *string
	QualityExplanation string
}

func numParam(r resolve.Row, code string) float64 {
	return r.Parameters[code].Value.Number
}

// heatVelocityHRM implements the Heat Ratio Method: v_h = (2·k·α)/(x_d+x_u)·3600.
func heatVelocityHRM(k, alpha, xd, xu float64) *float64 {
	denom := xd + xu
	if denom == 0 {
		return nil
	}
	v := (2 * k * alpha) / denom * secondsPerHour
	return &v
}

// heatVelocityTmax implements the Maximum-Temperature Method. Returns nil
// (never NaN) when t_m <= t_0 or the discriminant is negative — both
// indicate the convection-dominated model isn't valid for this pulse.
func heatVelocityTmax(k, xd, t0, tm float64) *float64 {
	if tm <= t0 {
		return nil
	}
	term1 := (4 * k / t0) * math.Log(1-t0/tm)
	term2 := (xd * xd) / (tm * (tm - t0))
	discriminant := term1 + term2
	if discriminant < 0 {
		return nil
	}
	v := math.Sqrt(discriminant) * secondsPerHour
	return &v
}

// woundCorrect applies the polynomial wound correction v_c = a·v + b·v² + c·v³.
func woundCorrect(a, b, c, v float64) float64 {
	return a*v + b*v*v + c*v*v*v
}

// fluxDensity converts a wound-corrected velocity (cm/h) to sap flux density
// (cm/h), round-tripping through m/s per spec §4.6:
// J = v_c · ρ_d · (c_d + m_c·c_w) / (ρ_w · c_w).
func fluxDensity(vcCmHr, rhoDry, cDry, moistureContent, cWater, rhoFresh float64) float64 {
	vMS := vcCmHr * cmPerHourToMPerS
	jMS := vMS * rhoDry * (cDry + moistureContent*cWater) / (rhoFresh * cWater)
	return jMS * mPerSToCmPerHour
}

// Compute runs the DMA-Péclet calculation for one resolved row. alpha and tm
// (measured time-to-max-temperature) are the row's measured thermistor
// metrics, passed in by the caller; t0 (pulse duration) and the other
// inputs are cascaded parameters read from the row.
func Compute(r resolve.Row, alpha, tm *float64) Result {
	k := numParam(r, ParamThermalDiffusivityK)
	xd := numParam(r, ParamDistanceDownstreamCm)
	xu := numParam(r, ParamDistanceUpstreamCm)
	t0 := numParam(r, ParamPulseDurationT0S)
	a := numParam(r, ParamWoundCorrectionA)
	b := numParam(r, ParamWoundCorrectionB)
	c := numParam(r, ParamWoundCorrectionC)
	rhoDry := numParam(r, ParamWoodDensityDry)
	cDry := numParam(r, ParamSpecificHeatWood)
	mc := numParam(r, ParamMoistureContent)
	cWater := numParam(r, ParamSpecificHeatWater)
	rhoFresh := numParam(r, ParamWoodDensityFresh)

	var res Result
	if alpha != nil {
		res.VhHRMCmHr = heatVelocityHRM(k, *alpha, xd, xu)
	}
	if tm != nil {
		res.VhTmaxCmHr = heatVelocityTmax(k, xd, t0, *tm)
	}

	if res.VhHRMCmHr != nil {
		vc := woundCorrect(a, b, c, *res.VhHRMCmHr)
		res.VcHRMCmHr = &vc
		j := fluxDensity(vc, rhoDry, cDry, mc, cWater, rhoFresh)
		res.JHRMCmHr = &j
	}
	if res.VhTmaxCmHr != nil {
		vc := woundCorrect(a, b, c, *res.VhTmaxCmHr)
		res.VcTmaxCmHr = &vc
		j := fluxDensity(vc, rhoDry, cDry, mc, cWater, rhoFresh)
		res.JTmaxCmHr = &j
	}

	peclet := pecletProxy(res.VhHRMCmHr, xd, k)
	res.Peclet = peclet

	switch {
	case peclet != nil && *peclet <= 1 && res.JHRMCmHr != nil:
		res.CalculationMethodUsed = MethodHRM
		res.SapFluxDensityJDMACmHr = res.JHRMCmHr
	case res.JTmaxCmHr != nil:
		res.CalculationMethodUsed = MethodTmax
		res.SapFluxDensityJDMACmHr = res.JTmaxCmHr
	case res.JHRMCmHr != nil:
		res.CalculationMethodUsed = MethodHRM
		res.SapFluxDensityJDMACmHr = res.JHRMCmHr
	}
	return res
}

// pecletProxy computes the dimensionless Péclet-proxy β = (v_h · x_d)/(2·k)
// used to switch between the conduction-dominated (HRM, β ≤ 1) and
// convection-dominated (Tmax) regimes. v_h is converted back to cm/s (from
// cm/h) to match k's cm²/s units before the ratio is taken.
func pecletProxy(vhHRMCmHr *float64, xd, k float64) *float64 {
	if vhHRMCmHr == nil || k == 0 {
		return nil
	}
	vCmS := *vhHRMCmHr / secondsPerHour
	beta := (vCmS * xd) / (2 * k)
	return &beta
}
