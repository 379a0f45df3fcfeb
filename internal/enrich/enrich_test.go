package enrich

import (
	"testing"
	"time"

	"github.com/rileyleff/sapfluxd/internal/flatten"
	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/timestampfix"
	"github.com/stretchr/testify/require"
)

func baseCatalog() *Catalog {
	return &Catalog{
		Projects:    map[int64]model.Project{1: {ID: 1, Code: "proj"}},
		Sites:       map[int64]model.Site{1: {ID: 1, ProjectID: 1, Code: "site", Timezone: "America/New_York"}},
		Zones:       map[int64]model.Zone{1: {ID: 1, SiteID: 1, Code: "zone"}},
		Plots:       map[int64]model.Plot{1: {ID: 1, ZoneID: 1, Code: "plot"}},
		Species:     map[int64]model.Species{1: {ID: 1, Code: "species"}},
		Plants:      map[int64]model.Plant{1: {ID: 1, PlotID: 1, Code: "plant", SpeciesID: 1}},
		Stems:       map[int64]model.Stem{1: {ID: 1, PlantID: 1, Code: "stem"}},
		SensorTypes: map[int64]model.SensorType{1: {ID: 1, Code: "sensorType"}},
		Dataloggers: map[int64]model.Datalogger{1: {ID: 1, DataloggerTypeID: 1, Code: "420"}},
		Deployments: []model.Deployment{
			{ID: 1, DataloggerID: 1, SDIAddress: "0", SensorTypeID: 1, StemID: 1, ProjectID: 1,
				Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Included: true,
				Installation: map[string]any{"heater_watts": 1.5}},
		},
	}
}

func tsRow(loggerID, sdi string, ts time.Time) timestampfix.Row {
	return timestampfix.Row{
		Row: flatten.Row{
			LoggerID:   loggerID,
			SDIAddress: sdi,
			Depth:      model.DepthOuter,
		},
		TimestampUTC: ts,
	}
}

func TestEnrichAttachesHierarchyAndInstallationMeta(t *testing.T) {
	cat := baseCatalog()
	rows := []timestampfix.Row{tsRow("420", "0", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))}

	out, err := Enrich(rows, cat)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "proj", out[0].ProjectCode)
	require.Equal(t, "site", out[0].SiteCode)
	require.Equal(t, "America/New_York", out[0].SiteTimezone)
	require.Equal(t, 1.5, out[0].InstallationMeta["heater_watts"])
}

func TestEnrichFailsFastOnAmbiguousMatch(t *testing.T) {
	cat := baseCatalog()
	// A second, overlapping deployment for the same (logger, sdi) is a data
	// integrity violation that should never reach this package in practice,
	// but enrich must still fail fast rather than silently pick one.
	cat.Deployments = append(cat.Deployments, model.Deployment{
		ID: 2, DataloggerID: 1, SDIAddress: "0", SensorTypeID: 1, StemID: 1, ProjectID: 1,
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Included: true,
	})
	rows := []timestampfix.Row{tsRow("420", "0", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))}

	_, err := Enrich(rows, cat)
	require.Error(t, err)
	var integrityErr *IntegrityError
	require.ErrorAs(t, err, &integrityErr)
}

func TestEnrichErrorsWhenAliasWindowHasNoActiveDeployment(t *testing.T) {
	cat := baseCatalog()
	cat.Aliases = []model.DataloggerAlias{
		{ID: 1, DataloggerID: 1, Alias: "OLD420", Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	rows := []timestampfix.Row{tsRow("OLD420", "0", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))}

	// OLD420 resolves to datalogger 1, but its deployment starts 2024-01-01,
	// so no deployment is active at the row's 2023 timestamp and Enrich
	// returns the "no match" error.
	_, err := Enrich(rows, cat)
	require.Error(t, err)
}

func TestInstallationKeysUnionsAcrossBatch(t *testing.T) {
	rows := []Row{
		{InstallationMeta: map[string]any{"a": 1}},
		{InstallationMeta: map[string]any{"b": 2}},
	}
	require.Equal(t, []string{"a", "b"}, InstallationKeys(rows))
}
