package flatten

import (
	"testing"
	"time"

	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/parser"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestFlattenBroadcastsAndStacks(t *testing.T) {
	ts0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pf := &parser.ParsedFile{
		Hash: "abc123",
		LoggerRows: []parser.LoggerRow{
			{Timestamp: ts0, Record: 1, LoggerID: "420", BatteryVoltageV: f(12.6)},
			{Timestamp: ts0.Add(30 * time.Minute), Record: 2, LoggerID: "420", BatteryVoltageV: f(12.5)},
		},
		Sensors: []parser.SensorTable{
			{
				SDIAddress: "0",
				Depths: map[model.Depth][]parser.Thermistors{
					model.DepthOuter: {{Alpha: f(0.5)}, {Alpha: f(0.51)}},
				},
			},
			{
				SDIAddress: "1",
				Depths: map[model.Depth][]parser.Thermistors{
					model.DepthOuter: {{Alpha: f(0.6)}, {Alpha: f(0.61)}},
					model.DepthInner: {{Alpha: f(0.7)}, {Alpha: f(0.71)}},
				},
			},
		},
	}

	rows, err := Flatten([]*parser.ParsedFile{pf})
	require.NoError(t, err)
	// 2 records * (1 depth for addr0 + 2 depths for addr1) = 6 rows
	require.Len(t, rows, 6)
	for _, r := range rows {
		require.Equal(t, "420", r.LoggerID)
		require.Equal(t, "abc123", r.FileHash)
		require.NotNil(t, r.BatteryVoltageV)
	}
}

func TestFlattenRejectsMissingHash(t *testing.T) {
	pf := &parser.ParsedFile{}
	_, err := Flatten([]*parser.ParsedFile{pf})
	require.Error(t, err)
}

func TestFlattenRejectsRowCountMismatch(t *testing.T) {
	pf := &parser.ParsedFile{
		Hash: "h1",
		LoggerRows: []parser.LoggerRow{
			{Record: 1}, {Record: 2},
		},
		Sensors: []parser.SensorTable{
			{SDIAddress: "0", Depths: map[model.Depth][]parser.Thermistors{
				model.DepthOuter: {{Alpha: f(0.5)}},
			}},
		},
	}
	_, err := Flatten([]*parser.ParsedFile{pf})
	require.Error(t, err)
	var schemaErr *SchemaMismatchError
	require.ErrorAs(t, err, &schemaErr)
}
