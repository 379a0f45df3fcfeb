package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rileyleff/sapfluxd/internal/enrich"
	"github.com/rileyleff/sapfluxd/internal/manifest"
	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/resolve"
)

// Tx wraps one pgx transaction, holding the ingestion advisory lock for its
// whole lifetime. It implements manifest.Inserter directly.
type Tx struct {
	pgxTx pgx.Tx
}

func (t *Tx) Commit(ctx context.Context) error   { return t.pgxTx.Commit(ctx) }
func (t *Tx) Rollback(ctx context.Context) error { return t.pgxTx.Rollback(ctx) }

func (t *Tx) InsertProject(ctx context.Context, code string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx, `INSERT INTO projects (code) VALUES ($1) RETURNING id`, code).Scan(&id)
	return id, err
}

func (t *Tx) InsertSite(ctx context.Context, projectID int64, code, timezone string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx,
		`INSERT INTO sites (project_id, code, timezone) VALUES ($1, $2, $3) RETURNING id`,
		projectID, code, timezone).Scan(&id)
	return id, err
}

func (t *Tx) InsertZone(ctx context.Context, siteID int64, code string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx, `INSERT INTO zones (site_id, code) VALUES ($1, $2) RETURNING id`, siteID, code).Scan(&id)
	return id, err
}

func (t *Tx) InsertPlot(ctx context.Context, zoneID int64, code string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx, `INSERT INTO plots (zone_id, code) VALUES ($1, $2) RETURNING id`, zoneID, code).Scan(&id)
	return id, err
}

func (t *Tx) InsertSpecies(ctx context.Context, code string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx, `INSERT INTO species (code) VALUES ($1) RETURNING id`, code).Scan(&id)
	return id, err
}

func (t *Tx) InsertPlant(ctx context.Context, plotID, speciesID int64, code string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx,
		`INSERT INTO plants (plot_id, code, species_id) VALUES ($1, $2, $3) RETURNING id`,
		plotID, code, speciesID).Scan(&id)
	return id, err
}

func (t *Tx) InsertStem(ctx context.Context, plantID int64, code string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx, `INSERT INTO stems (plant_id, code) VALUES ($1, $2) RETURNING id`, plantID, code).Scan(&id)
	return id, err
}

func (t *Tx) InsertDataloggerType(ctx context.Context, code string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx, `INSERT INTO datalogger_types (code) VALUES ($1) RETURNING id`, code).Scan(&id)
	return id, err
}

func (t *Tx) InsertDatalogger(ctx context.Context, dataloggerTypeID int64, code string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx,
		`INSERT INTO dataloggers (datalogger_type_id, code) VALUES ($1, $2) RETURNING id`,
		dataloggerTypeID, code).Scan(&id)
	return id, err
}

func (t *Tx) InsertDataloggerAlias(ctx context.Context, a model.DataloggerAlias) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx,
		`INSERT INTO datalogger_aliases (datalogger_id, alias, start_at, end_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		a.DataloggerID, a.Alias, a.Start, nullableTime(a.End)).Scan(&id)
	return id, err
}

func (t *Tx) InsertSensorType(ctx context.Context, code string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx, `INSERT INTO sensor_types (code) VALUES ($1) RETURNING id`, code).Scan(&id)
	return id, err
}

func (t *Tx) InsertThermistorPair(ctx context.Context, sensorTypeID int64, name string, depth model.Depth) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx,
		`INSERT INTO thermistor_pairs (sensor_type_id, name, depth) VALUES ($1, $2, $3) RETURNING id`,
		sensorTypeID, name, string(depth)).Scan(&id)
	return id, err
}

func (t *Tx) InsertDeployment(ctx context.Context, d model.Deployment) (int64, error) {
	installation, err := json.Marshal(d.Installation)
	if err != nil {
		return 0, fmt.Errorf("marshal installation metadata: %w", err)
	}
	var id int64
	err = t.pgxTx.QueryRow(ctx,
		`INSERT INTO deployments (datalogger_id, sdi_address, sensor_type_id, stem_id, project_id, start_at, end_at, included, installation)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		d.DataloggerID, d.SDIAddress, d.SensorTypeID, d.StemID, d.ProjectID, d.Start, nullableTime(d.End), d.Included, installation,
	).Scan(&id)
	return id, err
}

func (t *Tx) InsertParameterOverride(ctx context.Context, o model.ParameterOverride) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx,
		`INSERT INTO parameter_overrides
			(parameter_id, level, deployment_id, stem_id, plant_id, plot_id, zone_id, site_id, species_id,
			 value_kind, value_number, value_str, value_bool, effective_transaction_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14) RETURNING id`,
		o.ParameterID, string(o.Level),
		nullableID(o.DeploymentID), nullableID(o.StemID), nullableID(o.PlantID), nullableID(o.PlotID),
		nullableID(o.ZoneID), nullableID(o.SiteID), nullableID(o.SpeciesID),
		string(o.Value.Kind), o.Value.Number, o.Value.Str, o.Value.Bool, o.EffectiveTransactionID,
	).Scan(&id)
	return id, err
}

func (t *Tx) ResolveParameterID(ctx context.Context, code string) (int64, error) {
	var id int64
	err := t.pgxTx.QueryRow(ctx, `SELECT id FROM parameters WHERE code = $1`, code).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolve parameter %q: %w", code, err)
	}
	return id, nil
}

var _ manifest.Inserter = (*Tx)(nil)

// nullableTime turns a zero time.Time (open-ended End) into a nil driver
// value instead of the zero-value timestamp.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

// LoadCatalog reads every hierarchy, instrumentation, and deployment row
// into the in-memory snapshot internal/enrich and internal/timestampfix
// join against — one read per transaction, per spec §4.4/§4.5.
func (t *Tx) LoadCatalog(ctx context.Context) (*enrich.Catalog, error) {
	cat := &enrich.Catalog{
		Projects:    map[int64]model.Project{},
		Sites:       map[int64]model.Site{},
		Zones:       map[int64]model.Zone{},
		Plots:       map[int64]model.Plot{},
		Plants:      map[int64]model.Plant{},
		Stems:       map[int64]model.Stem{},
		Species:     map[int64]model.Species{},
		SensorTypes: map[int64]model.SensorType{},
		Dataloggers: map[int64]model.Datalogger{},
	}

	rows, err := t.pgxTx.Query(ctx, `SELECT id, code FROM projects`)
	if err != nil {
		return nil, fmt.Errorf("load projects: %w", err)
	}
	for rows.Next() {
		var p model.Project
		if err := rows.Scan(&p.ID, &p.Code); err != nil {
			rows.Close()
			return nil, err
		}
		cat.Projects[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT id, project_id, code, timezone FROM sites`)
	if err != nil {
		return nil, fmt.Errorf("load sites: %w", err)
	}
	for rows.Next() {
		var s model.Site
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Code, &s.Timezone); err != nil {
			rows.Close()
			return nil, err
		}
		cat.Sites[s.ID] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT id, site_id, code FROM zones`)
	if err != nil {
		return nil, fmt.Errorf("load zones: %w", err)
	}
	for rows.Next() {
		var z model.Zone
		if err := rows.Scan(&z.ID, &z.SiteID, &z.Code); err != nil {
			rows.Close()
			return nil, err
		}
		cat.Zones[z.ID] = z
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT id, zone_id, code FROM plots`)
	if err != nil {
		return nil, fmt.Errorf("load plots: %w", err)
	}
	for rows.Next() {
		var p model.Plot
		if err := rows.Scan(&p.ID, &p.ZoneID, &p.Code); err != nil {
			rows.Close()
			return nil, err
		}
		cat.Plots[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT id, code FROM species`)
	if err != nil {
		return nil, fmt.Errorf("load species: %w", err)
	}
	for rows.Next() {
		var s model.Species
		if err := rows.Scan(&s.ID, &s.Code); err != nil {
			rows.Close()
			return nil, err
		}
		cat.Species[s.ID] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT id, plot_id, code, species_id FROM plants`)
	if err != nil {
		return nil, fmt.Errorf("load plants: %w", err)
	}
	for rows.Next() {
		var p model.Plant
		if err := rows.Scan(&p.ID, &p.PlotID, &p.Code, &p.SpeciesID); err != nil {
			rows.Close()
			return nil, err
		}
		cat.Plants[p.ID] = p
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT id, plant_id, code FROM stems`)
	if err != nil {
		return nil, fmt.Errorf("load stems: %w", err)
	}
	for rows.Next() {
		var s model.Stem
		if err := rows.Scan(&s.ID, &s.PlantID, &s.Code); err != nil {
			rows.Close()
			return nil, err
		}
		cat.Stems[s.ID] = s
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT id, datalogger_type_id, code FROM dataloggers`)
	if err != nil {
		return nil, fmt.Errorf("load dataloggers: %w", err)
	}
	for rows.Next() {
		var d model.Datalogger
		if err := rows.Scan(&d.ID, &d.DataloggerTypeID, &d.Code); err != nil {
			rows.Close()
			return nil, err
		}
		cat.Dataloggers[d.ID] = d
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT id, sensor_type_id, name, depth FROM thermistor_pairs`)
	if err != nil {
		return nil, fmt.Errorf("load thermistor pairs: %w", err)
	}
	thermBySensorType := map[int64][]model.ThermistorPair{}
	for rows.Next() {
		var tp model.ThermistorPair
		var depth string
		if err := rows.Scan(&tp.ID, &tp.SensorTypeID, &tp.Name, &depth); err != nil {
			rows.Close()
			return nil, err
		}
		tp.Depth = model.Depth(depth)
		thermBySensorType[tp.SensorTypeID] = append(thermBySensorType[tp.SensorTypeID], tp)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT id, code FROM sensor_types`)
	if err != nil {
		return nil, fmt.Errorf("load sensor types: %w", err)
	}
	for rows.Next() {
		var st model.SensorType
		if err := rows.Scan(&st.ID, &st.Code); err != nil {
			rows.Close()
			return nil, err
		}
		st.Thermistors = thermBySensorType[st.ID]
		cat.SensorTypes[st.ID] = st
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT datalogger_id, alias, start_at, end_at FROM datalogger_aliases`)
	if err != nil {
		return nil, fmt.Errorf("load datalogger aliases: %w", err)
	}
	for rows.Next() {
		var a model.DataloggerAlias
		var end *time.Time
		if err := rows.Scan(&a.DataloggerID, &a.Alias, &a.Start, &end); err != nil {
			rows.Close()
			return nil, err
		}
		if end != nil {
			a.End = *end
		}
		cat.Aliases = append(cat.Aliases, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx,
		`SELECT id, datalogger_id, sdi_address, sensor_type_id, stem_id, project_id, start_at, end_at, included, installation
		 FROM deployments`)
	if err != nil {
		return nil, fmt.Errorf("load deployments: %w", err)
	}
	for rows.Next() {
		var d model.Deployment
		var end *time.Time
		var installation []byte
		if err := rows.Scan(&d.ID, &d.DataloggerID, &d.SDIAddress, &d.SensorTypeID, &d.StemID, &d.ProjectID,
			&d.Start, &end, &d.Included, &installation); err != nil {
			rows.Close()
			return nil, err
		}
		if end != nil {
			d.End = *end
		}
		if len(installation) > 0 {
			if err := json.Unmarshal(installation, &d.Installation); err != nil {
				rows.Close()
				return nil, fmt.Errorf("unmarshal installation metadata for deployment %d: %w", d.ID, err)
			}
		}
		cat.Deployments = append(cat.Deployments, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cat, nil
}

// LoadCurrentState builds the snapshot internal/manifest's Preflight checks
// a manifest against. One read per entity kind, mirroring LoadCatalog.
func (t *Tx) LoadCurrentState(ctx context.Context) (*manifest.CurrentState, error) {
	cur := &manifest.CurrentState{
		Projects:        map[string]bool{},
		Sites:           map[string]bool{},
		Zones:           map[string]bool{},
		Plots:           map[string]bool{},
		Species:         map[string]bool{},
		Plants:          map[manifest.PlantKey]bool{},
		Stems:           map[manifest.StemKey]bool{},
		DataloggerTypes: map[string]bool{},
		Dataloggers:     map[string]bool{},
		SensorTypes:     map[string]bool{},
		ThermistorPairs: map[manifest.ThermistorKey]bool{},
		Parameters:      map[string]bool{},
		AliasCodes:      map[int64]string{},
	}

	if err := loadCodeSet(ctx, t.pgxTx, `SELECT code FROM projects`, cur.Projects); err != nil {
		return nil, err
	}
	if err := loadCodeSet(ctx, t.pgxTx, `SELECT code FROM sites`, cur.Sites); err != nil {
		return nil, err
	}
	if err := loadCodeSet(ctx, t.pgxTx, `SELECT code FROM zones`, cur.Zones); err != nil {
		return nil, err
	}
	if err := loadCodeSet(ctx, t.pgxTx, `SELECT code FROM plots`, cur.Plots); err != nil {
		return nil, err
	}
	if err := loadCodeSet(ctx, t.pgxTx, `SELECT code FROM species`, cur.Species); err != nil {
		return nil, err
	}
	if err := loadCodeSet(ctx, t.pgxTx, `SELECT code FROM datalogger_types`, cur.DataloggerTypes); err != nil {
		return nil, err
	}
	if err := loadCodeSet(ctx, t.pgxTx, `SELECT code FROM dataloggers`, cur.Dataloggers); err != nil {
		return nil, err
	}
	if err := loadCodeSet(ctx, t.pgxTx, `SELECT code FROM sensor_types`, cur.SensorTypes); err != nil {
		return nil, err
	}
	if err := loadCodeSet(ctx, t.pgxTx, `SELECT code FROM parameters`, cur.Parameters); err != nil {
		return nil, err
	}

	rows, err := t.pgxTx.Query(ctx,
		`SELECT pl.code, pt.code FROM plants pl JOIN plots pt ON pt.id = pl.plot_id`)
	if err != nil {
		return nil, fmt.Errorf("load plants: %w", err)
	}
	for rows.Next() {
		var plantCode, plotCode string
		if err := rows.Scan(&plantCode, &plotCode); err != nil {
			rows.Close()
			return nil, err
		}
		cur.Plants[manifest.PlantKey{PlotCode: plotCode, Code: plantCode}] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx,
		`SELECT st.code, pl.code FROM stems st JOIN plants pl ON pl.id = st.plant_id`)
	if err != nil {
		return nil, fmt.Errorf("load stems: %w", err)
	}
	for rows.Next() {
		var stemCode, plantCode string
		if err := rows.Scan(&stemCode, &plantCode); err != nil {
			rows.Close()
			return nil, err
		}
		cur.Stems[manifest.StemKey{PlantCode: plantCode, Code: stemCode}] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx,
		`SELECT tp.name, st.code FROM thermistor_pairs tp JOIN sensor_types st ON st.id = tp.sensor_type_id`)
	if err != nil {
		return nil, fmt.Errorf("load thermistor pairs: %w", err)
	}
	for rows.Next() {
		var name, sensorTypeCode string
		if err := rows.Scan(&name, &sensorTypeCode); err != nil {
			rows.Close()
			return nil, err
		}
		cur.ThermistorPairs[manifest.ThermistorKey{SensorTypeCode: sensorTypeCode, Name: name}] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx, `SELECT datalogger_id, alias, start_at, end_at FROM datalogger_aliases`)
	if err != nil {
		return nil, fmt.Errorf("load datalogger aliases: %w", err)
	}
	for rows.Next() {
		var a model.DataloggerAlias
		var end *time.Time
		if err := rows.Scan(&a.DataloggerID, &a.Alias, &a.Start, &end); err != nil {
			rows.Close()
			return nil, err
		}
		if end != nil {
			a.End = *end
		}
		cur.Aliases = append(cur.Aliases, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = t.pgxTx.Query(ctx,
		`SELECT d.id, d.datalogger_id, d.sdi_address, d.start_at, d.end_at, dl.code
		 FROM deployments d JOIN dataloggers dl ON dl.id = d.datalogger_id`)
	if err != nil {
		return nil, fmt.Errorf("load deployments: %w", err)
	}
	for rows.Next() {
		var d model.Deployment
		var end *time.Time
		var code string
		if err := rows.Scan(&d.ID, &d.DataloggerID, &d.SDIAddress, &d.Start, &end, &code); err != nil {
			rows.Close()
			return nil, err
		}
		if end != nil {
			d.End = *end
		}
		cur.Deployments = append(cur.Deployments, d)
		cur.AliasCodes[d.DataloggerID] = code
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cur, nil
}

func loadCodeSet(ctx context.Context, tx pgx.Tx, query string, into map[string]bool) error {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("query %q: %w", query, err)
	}
	defer rows.Close()
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return err
		}
		into[code] = true
	}
	return rows.Err()
}

func (t *Tx) InsertOutput(ctx context.Context, out model.Output) error {
	if out.IsLatest {
		if _, err := t.pgxTx.Exec(ctx, `UPDATE outputs SET is_latest = false WHERE is_latest`); err != nil {
			return fmt.Errorf("clear previous latest output: %w", err)
		}
	}
	_, err := t.pgxTx.Exec(ctx,
		`INSERT INTO outputs (id, transaction_id, artifact_key, repro_bundle_key, row_count, is_latest, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		out.ID, out.TransactionID, out.ArtifactKey, out.ReproBundleKey, out.RowCount, out.IsLatest, out.CreatedAt)
	return err
}

func (t *Tx) InsertRawFile(ctx context.Context, rf model.RawFile) error {
	_, err := t.pgxTx.Exec(ctx,
		`INSERT INTO raw_files (hash, include_in_pipeline, ingesting_transaction) VALUES ($1, $2, $3)
		 ON CONFLICT (hash) DO NOTHING`,
		rf.Hash, rf.IncludeInPipeline, rf.IngestingTransaction)
	return err
}

func (t *Tx) RawFileExists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := t.pgxTx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM raw_files WHERE hash = $1)`, hash).Scan(&exists)
	return exists, err
}

func (t *Tx) LoadParameters(ctx context.Context) ([]model.Parameter, error) {
	rows, err := t.pgxTx.Query(ctx, `SELECT id, code, unit FROM parameters`)
	if err != nil {
		return nil, fmt.Errorf("load parameters: %w", err)
	}
	defer rows.Close()
	var out []model.Parameter
	for rows.Next() {
		var p model.Parameter
		if err := rows.Scan(&p.ID, &p.Code, &p.Unit); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (t *Tx) LoadParameterOverrides(ctx context.Context) ([]model.ParameterOverride, error) {
	rows, err := t.pgxTx.Query(ctx,
		`SELECT parameter_id, level, deployment_id, stem_id, plant_id, plot_id, zone_id, site_id, species_id,
		        value_kind, value_number, value_str, value_bool, effective_transaction_id
		 FROM parameter_overrides`)
	if err != nil {
		return nil, fmt.Errorf("load parameter overrides: %w", err)
	}
	defer rows.Close()
	var out []model.ParameterOverride
	for rows.Next() {
		var o model.ParameterOverride
		var level string
		var kind string
		var deploymentID, stemID, plantID, plotID, zoneID, siteID, speciesID *int64
		var number *float64
		var str *string
		var boolean *bool
		if err := rows.Scan(&o.ParameterID, &level, &deploymentID, &stemID, &plantID, &plotID, &zoneID, &siteID, &speciesID,
			&kind, &number, &str, &boolean, &o.EffectiveTransactionID); err != nil {
			return nil, err
		}
		o.Level = model.OverrideLevel(level)
		o.Value.Kind = model.ParameterValueKind(kind)
		if number != nil {
			o.Value.Number = *number
		}
		if str != nil {
			o.Value.Str = *str
		}
		if boolean != nil {
			o.Value.Bool = *boolean
		}
		if deploymentID != nil {
			o.DeploymentID = *deploymentID
		}
		if stemID != nil {
			o.StemID = *stemID
		}
		if plantID != nil {
			o.PlantID = *plantID
		}
		if plotID != nil {
			o.PlotID = *plotID
		}
		if zoneID != nil {
			o.ZoneID = *zoneID
		}
		if siteID != nil {
			o.SiteID = *siteID
		}
		if speciesID != nil {
			o.SpeciesID = *speciesID
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// LoadOverrides is a convenience wrapper combining LoadParameters and
// LoadParameterOverrides into the index internal/resolve operates on.
func (t *Tx) LoadOverrides(ctx context.Context) (*resolve.Overrides, error) {
	params, err := t.LoadParameters(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := t.LoadParameterOverrides(ctx)
	if err != nil {
		return nil, err
	}
	return resolve.NewOverrides(params, overrides), nil
}
