package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rileyleff/sapfluxd/internal/calc"
	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/parser"
)

func compiledParserFamilyNames() []string {
	families := parser.DefaultFamily()
	names := make([]string, len(families))
	for i, f := range families {
		names[i] = string(f.Family())
	}
	return names
}

// seedParameter is one literature default for a required calculator
// parameter, used to populate the parameters/parameter_overrides tables the
// first time a fresh database is brought up. Values mirror the ones
// internal/calc's own tests exercise the formulas against.
type seedParameter struct {
	code  string
	unit  string
	value float64
}

var seedParameters = []seedParameter{
	{calc.ParamThermalDiffusivityK, "cm2_s", 0.0025},
	{calc.ParamDistanceDownstreamCm, "cm", 0.6},
	{calc.ParamDistanceUpstreamCm, "cm", 0.6},
	{calc.ParamPulseDurationT0S, "s", 3},
	{calc.ParamWoundCorrectionA, "dimensionless", 1},
	{calc.ParamWoundCorrectionB, "dimensionless", 0},
	{calc.ParamWoundCorrectionC, "dimensionless", 0},
	{calc.ParamWoodDensityDry, "kg_m3", 450},
	{calc.ParamSpecificHeatWood, "j_kg_c", 1500},
	{calc.ParamMoistureContent, "fraction", 0.5},
	{calc.ParamSpecificHeatWater, "j_kg_c", 4182},
	{calc.ParamWoodDensityFresh, "kg_m3", 700},
	{calc.ParamQualityDeploymentStartGraceMinutes, "minutes", 0},
	{calc.ParamQualityDeploymentEndGraceMinutes, "minutes", 0},
	{calc.ParamQualityFutureLeadMinutes, "minutes", 0},
	{calc.ParamQualityGapYears, "years", 1},
	{calc.ParamQualityMaxFluxCmHr, "cm_hr", 100},
	{calc.ParamQualityMinFluxCmHr, "cm_hr", -10},
}

// SeedReport summarizes what Seed found already present versus newly
// inserted, so /admin/seed can report it instead of silently no-oping on a
// database that was already seeded.
type SeedReport struct {
	ParserFamilies     []string
	ParametersSeeded   int
	ParametersExisting int
}

// Seed populates the parameter catalog's global defaults from the in-binary
// registry in this file, and reports the parser families compiled into the
// binary (spec §6's "/admin/seed populates the inventory of parsers, data
// formats, and parameter defaults"). Parser families and data formats are
// never persisted to the database — they are compiled-in per spec §4.1 — so
// Seed's only durable effect is the parameters/parameter_overrides rows;
// the parser family list is reported for visibility only.
func (s *Store) Seed(ctx context.Context) (SeedReport, error) {
	report := SeedReport{ParserFamilies: compiledParserFamilyNames()}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return report, fmt.Errorf("db: seed begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range seedParameters {
		var paramID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO parameters (code, unit) VALUES ($1, $2)
			 ON CONFLICT (code) DO NOTHING RETURNING id`,
			p.code, p.unit).Scan(&paramID)
		if err != nil {
			// ON CONFLICT DO NOTHING leaves no row for Scan when the code
			// already exists; look it up instead.
			if lookupErr := tx.QueryRow(ctx, `SELECT id FROM parameters WHERE code = $1`, p.code).Scan(&paramID); lookupErr != nil {
				return report, fmt.Errorf("db: seed parameter %q: %w", p.code, lookupErr)
			}
		}

		var overrideExists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM parameter_overrides WHERE parameter_id = $1 AND level = $2)`,
			paramID, string(model.LevelDefault)).Scan(&overrideExists); err != nil {
			return report, fmt.Errorf("db: check existing default for %q: %w", p.code, err)
		}
		if overrideExists {
			report.ParametersExisting++
			continue
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO parameter_overrides
				(parameter_id, level, value_kind, value_number, effective_transaction_id)
			 VALUES ($1, $2, $3, $4, $5)`,
			paramID, string(model.LevelDefault), string(model.ParamNumber), p.value, uuid.Nil,
		); err != nil {
			return report, fmt.Errorf("db: seed default for %q: %w", p.code, err)
		}
		report.ParametersSeeded++
	}

	if err := tx.Commit(ctx); err != nil {
		return report, fmt.Errorf("db: seed commit: %w", err)
	}
	return report, nil
}
