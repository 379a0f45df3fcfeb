package publish

import (
	"github.com/parquet-go/parquet-go"
)

// fixedColumns lists the statically-known output columns: those spec §4.5
// attaches plus the calculator's own output columns. parquet.Group is a
// map, so the written file orders columns by name, not as listed here.
var fixedColumns = parquet.Group{
	"timestamp_utc":     parquet.Timestamp(parquet.Microsecond),
	"record":            parquet.Int64(),
	"logger_id":         parquet.String(),
	"sdi_address":       parquet.String(),
	"depth":             parquet.String(),
	"file_hash":         parquet.String(),
	"deployment_id":     parquet.Int64(),
	"project_code":      parquet.String(),
	"site_code":         parquet.String(),
	"site_timezone":     parquet.String(),
	"zone_name":         parquet.String(),
	"plot_name":         parquet.String(),
	"plant_code":        parquet.String(),
	"stem_code":         parquet.String(),
	"sensor_type_code":  parquet.String(),
	"species_code":      parquet.String(),

	"vh_hrm_cm_hr":                 parquet.Optional(parquet.Double()),
	"vh_tmax_cm_hr":                parquet.Optional(parquet.Double()),
	"vc_hrm_cm_hr":                 parquet.Optional(parquet.Double()),
	"vc_tmax_cm_hr":                parquet.Optional(parquet.Double()),
	"j_hrm_cm_hr":                  parquet.Optional(parquet.Double()),
	"j_tmax_cm_hr":                 parquet.Optional(parquet.Double()),
	"sap_flux_density_j_dma_cm_hr": parquet.Optional(parquet.Double()),
	"calculation_method_used":      parquet.String(),
	"peclet":                       parquet.Optional(parquet.Double()),
	"quality":                      parquet.Optional(parquet.String()),
	"quality_explanation":          parquet.String(),
}

// buildSchema adds one nullable string column per discovered installation
// metadata key, per spec §4.5's dynamic column expansion. Installation
// values are stringified rather than typed per-column because a single key
// can hold a number on one deployment and a string on another (see
// internal/manifest's type-inferring parser) — a fixed physical schema
// needs one stable Parquet type per column, so the value's own JSON-ish
// type is preserved in the string rather than forcing a column-wide type.
func buildSchema(installationKeys []string) *parquet.Schema {
	group := make(parquet.Group, len(fixedColumns)+len(installationKeys))
	for name, node := range fixedColumns {
		group[name] = node
	}
	for _, key := range installationKeys {
		group["installation_"+key] = parquet.Optional(parquet.String())
	}
	return parquet.NewSchema("sapflux_row", group)
}
