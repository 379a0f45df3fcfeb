package manifest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
[Project "demo"]

[Site "site1"]
Project = demo
Timezone = America/New_York

[Zone "zoneA"]
Site = site1

[Plot "plotA"]
Zone = zoneA

[Species "acru"]

[Plant "p1"]
Plot = plotA
Species = acru

[Stem "s1"]
Plant = p1

[DataloggerType "cr300"]

[Datalogger "420"]
DataloggerType = cr300

[SensorType "sfs100"]

[ThermistorPair "inner1"]
SensorType = sfs100
Depth = Inner

[Deployment "dep1"]
Datalogger = 420
SDIAddress = 0
SensorType = sfs100
Stem = s1
Project = demo
Start = 2024-01-01T00:00:00Z
Included = true
Installation = heater_watts=1.5
`

func TestParseSampleManifest(t *testing.T) {
	m, err := Parse(sampleManifest)
	require.NoError(t, err)
	require.Len(t, m.Projects, 1)
	require.Equal(t, "demo", m.Projects[0].Code)
	require.Len(t, m.Sites, 1)
	require.Equal(t, "America/New_York", m.Sites[0].Timezone)
	require.Len(t, m.Deployments, 1)
	require.Equal(t, 1.5, m.Deployments[0].Installation["heater_watts"])
	require.True(t, m.Deployments[0].Included)
	require.Equal(t, model.DepthInner, m.ThermistorPairs[0].Depth)
}

func emptyState() *CurrentState {
	return &CurrentState{
		Projects:        map[string]bool{},
		Sites:           map[string]bool{},
		Zones:           map[string]bool{},
		Plots:           map[string]bool{},
		Species:         map[string]bool{},
		Plants:          map[PlantKey]bool{},
		Stems:           map[StemKey]bool{},
		DataloggerTypes: map[string]bool{},
		Dataloggers:     map[string]bool{},
		SensorTypes:     map[string]bool{},
		ThermistorPairs: map[ThermistorKey]bool{},
		Parameters:      map[string]bool{},
		AliasCodes:      map[int64]string{},
	}
}

func TestPreflightAcceptsWellFormedManifest(t *testing.T) {
	m, err := Parse(sampleManifest)
	require.NoError(t, err)
	report := Preflight(m, emptyState())
	require.True(t, report.OK(), "%v", report.Errors)
	require.Equal(t, 1, report.Counts.Deployments)
}

func TestPreflightRejectsDuplicateAgainstCurrentState(t *testing.T) {
	m, err := Parse(sampleManifest)
	require.NoError(t, err)
	cur := emptyState()
	cur.Projects["demo"] = true
	report := Preflight(m, cur)
	require.False(t, report.OK())
}

func TestPreflightRejectsUnknownParent(t *testing.T) {
	m, err := Parse(`
[Zone "orphan"]
Site = nonexistent
`)
	require.NoError(t, err)
	report := Preflight(m, emptyState())
	require.False(t, report.OK())
}

func TestPreflightRejectsOverlappingDeploymentIntervals(t *testing.T) {
	m, err := Parse(sampleManifest)
	require.NoError(t, err)
	cur := emptyState()
	cur.Dataloggers["420"] = true
	cur.SensorTypes["sfs100"] = true
	cur.Stems[StemKey{PlantCode: "p1", Code: "s1"}] = true
	cur.Projects["demo"] = true
	cur.Deployments = []model.Deployment{
		{DataloggerID: 1, SDIAddress: "0", Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	cur.AliasCodes[1] = "420"

	report := Preflight(m, cur)
	require.False(t, report.OK())
	require.Contains(t, report.Errors, ValidationError{Kind: "deployment", Code: "420/0", Reason: "overlaps an existing interval"})
}

type fakeInserter struct {
	nextID     int64
	parameters map[string]int64
}

func newFakeInserter() *fakeInserter {
	return &fakeInserter{parameters: map[string]int64{"alpha_k": 1}}
}

func (f *fakeInserter) alloc() int64 { f.nextID++; return f.nextID }

func (f *fakeInserter) InsertProject(ctx context.Context, code string) (int64, error) { return f.alloc(), nil }
func (f *fakeInserter) InsertSite(ctx context.Context, projectID int64, code, timezone string) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertZone(ctx context.Context, siteID int64, code string) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertPlot(ctx context.Context, zoneID int64, code string) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertSpecies(ctx context.Context, code string) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertPlant(ctx context.Context, plotID, speciesID int64, code string) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertStem(ctx context.Context, plantID int64, code string) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertDataloggerType(ctx context.Context, code string) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertDatalogger(ctx context.Context, dataloggerTypeID int64, code string) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertDataloggerAlias(ctx context.Context, a model.DataloggerAlias) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertSensorType(ctx context.Context, code string) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertThermistorPair(ctx context.Context, sensorTypeID int64, name string, depth model.Depth) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertDeployment(ctx context.Context, d model.Deployment) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) InsertParameterOverride(ctx context.Context, o model.ParameterOverride) (int64, error) {
	return f.alloc(), nil
}
func (f *fakeInserter) ResolveParameterID(ctx context.Context, code string) (int64, error) {
	return f.parameters[code], nil
}

func TestApplyInsertsInDependencyOrderAndResolvesParents(t *testing.T) {
	m, err := Parse(sampleManifest)
	require.NoError(t, err)
	ins := newFakeInserter()
	err = Apply(context.Background(), ins, m, uuid.New())
	require.NoError(t, err)
}

func TestApplyFailsWhenParentMissingFromManifestAndState(t *testing.T) {
	m := &Manifest{Zones: []AddZone{{Code: "z1", SiteCode: "nosite"}}}
	ins := newFakeInserter()
	err := Apply(context.Background(), ins, m, uuid.New())
	require.Error(t, err)
}
