package calc

// Parameter codes resolved per row by the cascade in package resolve. The
// calculator never hardcodes a numeric constant for anything site-, probe-,
// or species-dependent — everything that varies by install or species is a
// cascaded parameter with a documented global default.
const (
	ParamThermalDiffusivityK  = "thermal_diffusivity_k"
	ParamDistanceDownstreamCm = "probe_distance_downstream_cm"
	ParamDistanceUpstreamCm   = "probe_distance_upstream_cm"
	ParamPulseDurationT0S     = "heat_pulse_duration_s"

	ParamWoundCorrectionA = "wound_correction_a"
	ParamWoundCorrectionB = "wound_correction_b"
	ParamWoundCorrectionC = "wound_correction_c"

	ParamWoodDensityDry   = "wood_density_dry_kg_m3"
	ParamSpecificHeatWood = "specific_heat_dry_wood_j_kg_c"
	ParamMoistureContent  = "wood_moisture_content_fraction"
	ParamSpecificHeatWater = "specific_heat_water_j_kg_c"
	ParamWoodDensityFresh = "wood_density_fresh_kg_m3"

	ParamQualityDeploymentStartGraceMinutes = "quality_deployment_start_grace_minutes"
	ParamQualityDeploymentEndGraceMinutes   = "quality_deployment_end_grace_minutes"
	ParamQualityFutureLeadMinutes           = "quality_future_lead_minutes"
	ParamQualityGapYears                    = "quality_gap_years"
	ParamQualityMaxFluxCmHr                 = "quality_max_flux_cm_hr"
	ParamQualityMinFluxCmHr                 = "quality_min_flux_cm_hr"
)

// RequiredParameterCodes is the full set of parameter codes the calculator
// and quality filter need resolved on every row.
var RequiredParameterCodes = []string{
	ParamThermalDiffusivityK,
	ParamDistanceDownstreamCm,
	ParamDistanceUpstreamCm,
	ParamPulseDurationT0S,
	ParamWoundCorrectionA,
	ParamWoundCorrectionB,
	ParamWoundCorrectionC,
	ParamWoodDensityDry,
	ParamSpecificHeatWood,
	ParamMoistureContent,
	ParamSpecificHeatWater,
	ParamWoodDensityFresh,
	ParamQualityDeploymentStartGraceMinutes,
	ParamQualityDeploymentEndGraceMinutes,
	ParamQualityFutureLeadMinutes,
	ParamQualityGapYears,
	ParamQualityMaxFluxCmHr,
	ParamQualityMinFluxCmHr,
}
