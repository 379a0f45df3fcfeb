package manifest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rileyleff/sapfluxd/internal/model"
)

// Inserter is implemented by internal/db's transaction wrapper. Apply calls
// these in strict dependency order so every foreign key resolves at insert
// time, per spec §4.7 — it never sees a *sql.Tx or pgx.Tx directly, keeping
// this package testable without a live database.
type Inserter interface {
	InsertProject(ctx context.Context, code string) (int64, error)
	InsertSite(ctx context.Context, projectID int64, code, timezone string) (int64, error)
	InsertZone(ctx context.Context, siteID int64, code string) (int64, error)
	InsertPlot(ctx context.Context, zoneID int64, code string) (int64, error)
	InsertSpecies(ctx context.Context, code string) (int64, error)
	InsertPlant(ctx context.Context, plotID, speciesID int64, code string) (int64, error)
	InsertStem(ctx context.Context, plantID int64, code string) (int64, error)
	InsertDataloggerType(ctx context.Context, code string) (int64, error)
	InsertDatalogger(ctx context.Context, dataloggerTypeID int64, code string) (int64, error)
	InsertDataloggerAlias(ctx context.Context, a model.DataloggerAlias) (int64, error)
	InsertSensorType(ctx context.Context, code string) (int64, error)
	InsertThermistorPair(ctx context.Context, sensorTypeID int64, name string, depth model.Depth) (int64, error)
	InsertDeployment(ctx context.Context, d model.Deployment) (int64, error)
	InsertParameterOverride(ctx context.Context, o model.ParameterOverride) (int64, error)

	ResolveParameterID(ctx context.Context, code string) (int64, error)
}

// idIndex accumulates the surrogate ids assigned to entities added in this
// manifest, keyed by code, so later entities in the same manifest can
// resolve their parent references without a second DB round trip.
type idIndex struct {
	projects        map[string]int64
	sites           map[string]int64
	zones           map[string]int64
	plots           map[string]int64
	species         map[string]int64
	plants          map[PlantKey]int64
	stems           map[StemKey]int64
	dataloggerTypes map[string]int64
	dataloggers     map[string]int64
	sensorTypes     map[string]int64
	deployments     map[string]int64 // keyed by "dataloggerCode/sdiAddress"
}

func newIDIndex() *idIndex {
	return &idIndex{
		projects:        map[string]int64{},
		sites:           map[string]int64{},
		zones:           map[string]int64{},
		plots:           map[string]int64{},
		species:         map[string]int64{},
		plants:          map[PlantKey]int64{},
		stems:           map[StemKey]int64{},
		dataloggerTypes: map[string]int64{},
		dataloggers:     map[string]int64{},
		sensorTypes:     map[string]int64{},
		deployments:     map[string]int64{},
	}
}

// Apply inserts every entity in m via ins, in the dependency order spec
// §4.7 fixes: projects, sites, zones, plots, species, plants, stems,
// datalogger types, dataloggers, datalogger aliases, sensor types, sensor
// thermistor pairs, deployments, parameter overrides.
func Apply(ctx context.Context, ins Inserter, m *Manifest, transactionID uuid.UUID) error {
	idx := newIDIndex()

	for _, p := range m.Projects {
		id, err := ins.InsertProject(ctx, p.Code)
		if err != nil {
			return fmt.Errorf("insert project %q: %w", p.Code, err)
		}
		idx.projects[p.Code] = id
	}
	for _, s := range m.Sites {
		projectID, ok := idx.projects[s.ProjectCode]
		if !ok {
			return fmt.Errorf("site %q: project %q not resolved", s.Code, s.ProjectCode)
		}
		id, err := ins.InsertSite(ctx, projectID, s.Code, s.Timezone)
		if err != nil {
			return fmt.Errorf("insert site %q: %w", s.Code, err)
		}
		idx.sites[s.Code] = id
	}
	for _, z := range m.Zones {
		siteID, ok := idx.sites[z.SiteCode]
		if !ok {
			return fmt.Errorf("zone %q: site %q was not inserted in this manifest and is not pre-resolved", z.Code, z.SiteCode)
		}
		id, err := ins.InsertZone(ctx, siteID, z.Code)
		if err != nil {
			return fmt.Errorf("insert zone %q: %w", z.Code, err)
		}
		idx.zones[z.Code] = id
	}
	for _, p := range m.Plots {
		zoneID, ok := idx.zones[p.ZoneCode]
		if !ok {
			return fmt.Errorf("plot %q: zone %q not resolved", p.Code, p.ZoneCode)
		}
		id, err := ins.InsertPlot(ctx, zoneID, p.Code)
		if err != nil {
			return fmt.Errorf("insert plot %q: %w", p.Code, err)
		}
		idx.plots[p.Code] = id
	}
	for _, s := range m.Species {
		id, err := ins.InsertSpecies(ctx, s.Code)
		if err != nil {
			return fmt.Errorf("insert species %q: %w", s.Code, err)
		}
		idx.species[s.Code] = id
	}
	for _, p := range m.Plants {
		plotID, ok := idx.plots[p.PlotCode]
		if !ok {
			return fmt.Errorf("plant %q: plot %q not resolved", p.Code, p.PlotCode)
		}
		speciesID, ok := idx.species[p.SpeciesCode]
		if !ok {
			return fmt.Errorf("plant %q: species %q not resolved", p.Code, p.SpeciesCode)
		}
		id, err := ins.InsertPlant(ctx, plotID, speciesID, p.Code)
		if err != nil {
			return fmt.Errorf("insert plant %q: %w", p.Code, err)
		}
		idx.plants[PlantKey{PlotCode: p.PlotCode, Code: p.Code}] = id
	}
	for _, s := range m.Stems {
		var plantID int64
		found := false
		for pk, id := range idx.plants {
			if pk.Code == s.PlantCode {
				plantID, found = id, true
				break
			}
		}
		if !found {
			return fmt.Errorf("stem %q: plant %q not resolved", s.Code, s.PlantCode)
		}
		id, err := ins.InsertStem(ctx, plantID, s.Code)
		if err != nil {
			return fmt.Errorf("insert stem %q: %w", s.Code, err)
		}
		idx.stems[StemKey{PlantCode: s.PlantCode, Code: s.Code}] = id
	}
	for _, dt := range m.DataloggerTypes {
		id, err := ins.InsertDataloggerType(ctx, dt.Code)
		if err != nil {
			return fmt.Errorf("insert datalogger type %q: %w", dt.Code, err)
		}
		idx.dataloggerTypes[dt.Code] = id
	}
	for _, d := range m.Dataloggers {
		typeID, ok := idx.dataloggerTypes[d.DataloggerTypeCode]
		if !ok {
			return fmt.Errorf("datalogger %q: type %q not resolved", d.Code, d.DataloggerTypeCode)
		}
		id, err := ins.InsertDatalogger(ctx, typeID, d.Code)
		if err != nil {
			return fmt.Errorf("insert datalogger %q: %w", d.Code, err)
		}
		idx.dataloggers[d.Code] = id
	}
	for _, a := range m.DataloggerAliases {
		dataloggerID, ok := idx.dataloggers[a.DataloggerCode]
		if !ok {
			return fmt.Errorf("datalogger alias %q: datalogger %q not resolved", a.Alias, a.DataloggerCode)
		}
		_, err := ins.InsertDataloggerAlias(ctx, model.DataloggerAlias{
			DataloggerID: dataloggerID, Alias: a.Alias, Start: a.Start, End: a.End,
		})
		if err != nil {
			return fmt.Errorf("insert datalogger alias %q: %w", a.Alias, err)
		}
	}
	for _, st := range m.SensorTypes {
		id, err := ins.InsertSensorType(ctx, st.Code)
		if err != nil {
			return fmt.Errorf("insert sensor type %q: %w", st.Code, err)
		}
		idx.sensorTypes[st.Code] = id
	}
	for _, tp := range m.ThermistorPairs {
		sensorTypeID, ok := idx.sensorTypes[tp.SensorTypeCode]
		if !ok {
			return fmt.Errorf("thermistor pair %q: sensor type %q not resolved", tp.Name, tp.SensorTypeCode)
		}
		if _, err := ins.InsertThermistorPair(ctx, sensorTypeID, tp.Name, tp.Depth); err != nil {
			return fmt.Errorf("insert thermistor pair %q: %w", tp.Name, err)
		}
	}
	for _, d := range m.Deployments {
		dataloggerID, ok := idx.dataloggers[d.DataloggerCode]
		if !ok {
			return fmt.Errorf("deployment %s/%s: datalogger %q not resolved", d.DataloggerCode, d.SDIAddress, d.DataloggerCode)
		}
		sensorTypeID, ok := idx.sensorTypes[d.SensorTypeCode]
		if !ok {
			return fmt.Errorf("deployment %s/%s: sensor type %q not resolved", d.DataloggerCode, d.SDIAddress, d.SensorTypeCode)
		}
		var stemID int64
		found := false
		for sk, id := range idx.stems {
			if sk.Code == d.StemCode {
				stemID, found = id, true
				break
			}
		}
		if !found {
			return fmt.Errorf("deployment %s/%s: stem %q not resolved", d.DataloggerCode, d.SDIAddress, d.StemCode)
		}
		projectID, ok := idx.projects[d.ProjectCode]
		if !ok {
			return fmt.Errorf("deployment %s/%s: project %q not resolved", d.DataloggerCode, d.SDIAddress, d.ProjectCode)
		}
		deploymentID, err := ins.InsertDeployment(ctx, model.Deployment{
			DataloggerID: dataloggerID,
			SDIAddress:   d.SDIAddress,
			SensorTypeID: sensorTypeID,
			StemID:       stemID,
			ProjectID:    projectID,
			Start:        d.Start,
			End:          d.End,
			Included:     d.Included,
			Installation: d.Installation,
		})
		if err != nil {
			return fmt.Errorf("insert deployment %s/%s: %w", d.DataloggerCode, d.SDIAddress, err)
		}
		idx.deployments[d.DataloggerCode+"/"+d.SDIAddress] = deploymentID
	}
	for _, o := range m.ParameterOverrides {
		paramID, err := ins.ResolveParameterID(ctx, o.ParameterCode)
		if err != nil {
			return fmt.Errorf("parameter override for %q: %w", o.ParameterCode, err)
		}
		ov := model.ParameterOverride{
			ParameterID:            paramID,
			Level:                  o.Level,
			Value:                  o.Value,
			EffectiveTransactionID: transactionID,
		}
		if err := attachScope(&ov, o, idx); err != nil {
			return err
		}
		if _, err := ins.InsertParameterOverride(ctx, ov); err != nil {
			return fmt.Errorf("insert parameter override for %q: %w", o.ParameterCode, err)
		}
	}
	return nil
}

func attachScope(ov *model.ParameterOverride, o AddParameterOverride, idx *idIndex) error {
	switch o.Level {
	case model.LevelDeployment:
		// ScopeCode for a deployment-level override is "datalogger/sdi_address",
		// matching the composite key deployments are tracked under (deployments
		// have no single natural code).
		if id, ok := idx.deployments[o.ScopeCode]; ok {
			ov.DeploymentID = id
			return nil
		}
	case model.LevelStem:
		for sk, id := range idx.stems {
			if sk.Code == o.ScopeCode {
				ov.StemID = id
				return nil
			}
		}
	case model.LevelPlant:
		for pk, id := range idx.plants {
			if pk.Code == o.ScopeCode {
				ov.PlantID = id
				return nil
			}
		}
	case model.LevelPlot:
		if id, ok := idx.plots[o.ScopeCode]; ok {
			ov.PlotID = id
			return nil
		}
	case model.LevelZone:
		if id, ok := idx.zones[o.ScopeCode]; ok {
			ov.ZoneID = id
			return nil
		}
	case model.LevelSite:
		if id, ok := idx.sites[o.ScopeCode]; ok {
			ov.SiteID = id
			return nil
		}
	case model.LevelSpecies:
		if id, ok := idx.species[o.ScopeCode]; ok {
			ov.SpeciesID = id
			return nil
		}
	case model.LevelDefault:
		return nil
	}
	return fmt.Errorf("parameter override scope %q not resolved for level %s", o.ScopeCode, o.Level)
}
