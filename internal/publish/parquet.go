// Package publish materializes a transaction's resolved, calculated rows
// into the two artifacts spec §4.8 commits: an analysis-ready Parquet table
// and a reproducibility bundle zip.
package publish

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/rileyleff/sapfluxd/internal/calc"
)

// WriteParquet encodes rows as one dynamically-schemaed Parquet file,
// expanding installationKeys (the sorted union computed by
// internal/enrich.InstallationKeys) into one nullable column per key.
func WriteParquet(rows []calc.Row, installationKeys []string) ([]byte, error) {
	schema := buildSchema(installationKeys)
	buf := &bytes.Buffer{}
	w := parquet.NewWriter(buf, schema)
	for i, r := range rows {
		if _, err := w.Write(rowToMap(r, installationKeys)); err != nil {
			return nil, fmt.Errorf("publish: write row %d: %w", i, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("publish: close writer: %w", err)
	}
	return buf.Bytes(), nil
}

func rowToMap(r calc.Row, installationKeys []string) map[string]any {
	m := map[string]any{
		"timestamp_utc":    r.TimestampUTC,
		"record":           r.Record,
		"logger_id":        r.LoggerID,
		"sdi_address":      r.SDIAddress,
		"depth":            string(r.Depth),
		"file_hash":        r.FileHash,
		"deployment_id":    r.DeploymentID,
		"project_code":     r.ProjectCode,
		"site_code":        r.SiteCode,
		"site_timezone":    r.SiteTimezone,
		"zone_name":        r.ZoneName,
		"plot_name":        r.PlotName,
		"plant_code":       r.PlantCode,
		"stem_code":        r.StemCode,
		"sensor_type_code": r.SensorTypeCode,
		"species_code":     r.SpeciesCode,

		"vh_hrm_cm_hr":                 r.VhHRMCmHr,
		"vh_tmax_cm_hr":                r.VhTmaxCmHr,
		"vc_hrm_cm_hr":                 r.VcHRMCmHr,
		"vc_tmax_cm_hr":                r.VcTmaxCmHr,
		"j_hrm_cm_hr":                  r.JHRMCmHr,
		"j_tmax_cm_hr":                 r.JTmaxCmHr,
		"sap_flux_density_j_dma_cm_hr": r.SapFluxDensityJDMACmHr,
		"calculation_method_used":      string(r.CalculationMethodUsed),
		"peclet":                       r.Peclet,
		"quality":                      r.Quality,
		"quality_explanation":          r.QualityExplanation,
	}
	for _, key := range installationKeys {
		v, ok := r.InstallationMeta[key]
		if !ok || v == nil {
			m["installation_"+key] = (*string)(nil)
			continue
		}
		s := fmt.Sprint(v)
		m["installation_"+key] = &s
	}
	return m
}
