package publish

import (
	"bytes"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/rileyleff/sapfluxd/internal/calc"
	"github.com/rileyleff/sapfluxd/internal/enrich"
	"github.com/rileyleff/sapfluxd/internal/flatten"
	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/resolve"
	"github.com/rileyleff/sapfluxd/internal/timestampfix"
)

func zipEntryNames(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func sampleRow() calc.Row {
	flux := 1.25
	quality := "ok"
	return calc.Row{
		Result: calc.Result{
			SapFluxDensityJDMACmHr: &flux,
			CalculationMethodUsed:  calc.MethodHRM,
		},
		Quality:            &quality,
		QualityExplanation: "",
		Row: resolve.Row{
			Row: enrich.Row{
				Row: timestampfix.Row{
					Row: flatten.Row{
						Timestamp:  time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
						Record:     1,
						LoggerID:   "L1",
						SDIAddress: "0",
						Depth:      model.DepthOuter,
						FileHash:   "abc123",
					},
					TimestampUTC:     time.Date(2024, 6, 1, 16, 0, 0, 0, time.UTC),
					FileSetSignature: "sig1",
				},
				DeploymentID:   7,
				ProjectCode:    "proj",
				SiteCode:       "site",
				SiteTimezone:   "America/New_York",
				ZoneName:       "zone",
				PlotName:       "plot",
				PlantCode:      "plant1",
				StemCode:       "stem1",
				SensorTypeCode: "SFM1x",
				SpeciesCode:    "quve",
				InstallationMeta: map[string]any{
					"probe_serial": "SN-42",
					"azimuth_deg":  180.0,
				},
			},
			Parameters: map[string]resolve.Resolved{},
		},
	}
}

func TestWriteParquetProducesNonEmptyBytes(t *testing.T) {
	rows := []calc.Row{sampleRow()}
	out, err := WriteParquet(rows, []string{"azimuth_deg", "probe_serial"})
	require.NoError(t, err)
	require.NotEmpty(t, out)
	// Parquet files begin and end with the 4-byte magic "PAR1".
	require.Equal(t, "PAR1", string(out[:4]))
	require.Equal(t, "PAR1", string(out[len(out)-4:]))
}

func TestRowToMapIncludesInstallationColumns(t *testing.T) {
	r := sampleRow()
	m := rowToMap(r, []string{"azimuth_deg", "probe_serial", "missing_key"})

	require.Equal(t, "plant1", m["plant_code"])
	require.Equal(t, "stem1", m["stem_code"])

	probe, ok := m["installation_probe_serial"].(*string)
	require.True(t, ok)
	require.Equal(t, "SN-42", *probe)

	missing, ok := m["installation_missing_key"].(*string)
	require.True(t, ok)
	require.Nil(t, missing)
}

func TestWriteReproBundleIncludesProvenanceFiles(t *testing.T) {
	data, err := WriteReproBundle(BundleInputs{
		TransactionID:    "txn-1",
		ManifestText:     "[project]\ncode = \"proj\"\n",
		RawFileHashes:    []string{"abc123", "def456"},
		ReceiptJSON:      []byte(`{"outcome":"ACCEPTED"}`),
		InstallationKeys: []string{"azimuth_deg", "probe_serial"},
		GeneratedAt:      time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, data)

	names := zipEntryNames(t, data)
	require.ElementsMatch(t, []string{
		"manifest.toml", "receipt.json", "raw_file_hashes.txt",
		"installation_keys.txt", "PROVENANCE",
	}, names)
}
