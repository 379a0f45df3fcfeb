// Package enrich attaches hierarchy metadata to timestamp-corrected rows: the
// deployment active for each row's (logger_id, sdi_address, timestamp_utc),
// the hierarchy chain above it, and the deployment's free-form installation
// metadata, dynamically expanded into columns across the batch.
package enrich

import (
	"fmt"
	"sort"
	"time"

	"github.com/rileyleff/sapfluxd/internal/model"
	"github.com/rileyleff/sapfluxd/internal/timestampfix"
)

// Row is one enriched, timestamp-corrected measurement.
type Row struct {
	timestampfix.Row

	DeploymentID     int64
	ProjectCode      string
	SiteID           int64
	SiteCode         string
	SiteTimezone     string
	ZoneID           int64
	ZoneName         string
	PlotID           int64
	PlotName         string
	PlantID          int64
	PlantCode        string
	StemID           int64
	StemCode         string
	SensorTypeCode   string
	SpeciesID        int64
	SpeciesCode      string
	InstallationMeta map[string]any
}

// IntegrityError reports a row for which more than one active deployment
// matched — structurally impossible given the hierarchy invariants, so
// treated as a fatal pipeline error rather than an ambiguous pick.
type IntegrityError struct {
	LoggerID     string
	SDIAddress   string
	TimestampUTC time.Time
	Matches      int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("ambiguous deployment for logger %s sdi %s at %s: %d active matches",
		e.LoggerID, e.SDIAddress, e.TimestampUTC.Format(time.RFC3339), e.Matches)
}

// Catalog is the read-only metadata snapshot an enrichment pass is run
// against — one read per batch per spec §4.4/§4.5.
type Catalog struct {
	Projects     map[int64]model.Project
	Sites        map[int64]model.Site
	Zones        map[int64]model.Zone
	Plots        map[int64]model.Plot
	Plants       map[int64]model.Plant
	Stems        map[int64]model.Stem
	Species      map[int64]model.Species
	SensorTypes  map[int64]model.SensorType
	Dataloggers  map[int64]model.Datalogger
	Aliases      []model.DataloggerAlias
	Deployments  []model.Deployment
}

// ActiveTimezoneForLogger implements timestampfix.DeploymentLookup: any
// deployment active for the logger at the anchor time (regardless of sdi
// address) is sufficient to resolve the site's timezone, since every
// deployment of one logger shares the same site for the purposes of clock
// correction.
func (c *Catalog) ActiveTimezoneForLogger(loggerID string, anchor time.Time) (string, bool) {
	dataloggerID, ok := c.resolveDataloggerID(loggerID, anchor)
	if !ok {
		return "", false
	}
	for _, d := range c.Deployments {
		if d.DataloggerID != dataloggerID || !d.Active(anchor) {
			continue
		}
		stem, ok := c.Stems[d.StemID]
		if !ok {
			continue
		}
		plant, ok := c.Plants[stem.PlantID]
		if !ok {
			continue
		}
		plot, ok := c.Plots[plant.PlotID]
		if !ok {
			continue
		}
		zone, ok := c.Zones[plot.ZoneID]
		if !ok {
			continue
		}
		site, ok := c.Sites[zone.SiteID]
		if !ok {
			continue
		}
		return site.Timezone, true
	}
	return "", false
}

// resolveDataloggerID matches loggerID against canonical datalogger codes
// first, then alias codes whose active range contains t.
func (c *Catalog) resolveDataloggerID(loggerID string, t time.Time) (int64, bool) {
	for id, dl := range c.Dataloggers {
		if dl.Code == loggerID {
			return id, true
		}
	}
	for _, a := range c.Aliases {
		if a.Alias == loggerID && a.Active(t) {
			return a.DataloggerID, true
		}
	}
	return 0, false
}

// matchingDeployments returns every deployment active for (loggerID,
// sdiAddress) at t, resolving loggerID through the same canonical-then-alias
// path as ActiveTimezoneForLogger.
func (c *Catalog) matchingDeployments(loggerID, sdiAddress string, t time.Time) []model.Deployment {
	dataloggerID, ok := c.resolveDataloggerID(loggerID, t)
	if !ok {
		return nil
	}
	var out []model.Deployment
	for _, d := range c.Deployments {
		if d.DataloggerID == dataloggerID && d.SDIAddress == sdiAddress && d.Active(t) {
			out = append(out, d)
		}
	}
	return out
}

// Enrich attaches hierarchy metadata to every row. timestampfix.Fix only
// skips groups whose logger has no active deployment at the group's anchor
// time; a row whose (logger, sdi address) has no deployment active at its
// own timestamp still arrives here and is treated as an error rather than
// dropped.
func Enrich(rows []timestampfix.Row, cat *Catalog) ([]Row, error) {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		matches := cat.matchingDeployments(r.LoggerID, r.SDIAddress, r.TimestampUTC)
		if len(matches) == 0 {
			return nil, fmt.Errorf("no active deployment for logger %s sdi %s at %s", r.LoggerID, r.SDIAddress, r.TimestampUTC)
		}
		if len(matches) > 1 {
			return nil, &IntegrityError{LoggerID: r.LoggerID, SDIAddress: r.SDIAddress, TimestampUTC: r.TimestampUTC, Matches: len(matches)}
		}
		d := matches[0]

		enriched, err := cat.enrichOne(r, d)
		if err != nil {
			return nil, err
		}
		out = append(out, enriched)
	}
	return out, nil
}

func (c *Catalog) enrichOne(r timestampfix.Row, d model.Deployment) (Row, error) {
	stem, ok := c.Stems[d.StemID]
	if !ok {
		return Row{}, fmt.Errorf("deployment %d references unknown stem %d", d.ID, d.StemID)
	}
	plant, ok := c.Plants[stem.PlantID]
	if !ok {
		return Row{}, fmt.Errorf("stem %d references unknown plant %d", stem.ID, stem.PlantID)
	}
	plot, ok := c.Plots[plant.PlotID]
	if !ok {
		return Row{}, fmt.Errorf("plant %d references unknown plot %d", plant.ID, plant.PlotID)
	}
	zone, ok := c.Zones[plot.ZoneID]
	if !ok {
		return Row{}, fmt.Errorf("plot %d references unknown zone %d", plot.ID, plot.ZoneID)
	}
	site, ok := c.Sites[zone.SiteID]
	if !ok {
		return Row{}, fmt.Errorf("zone %d references unknown site %d", zone.ID, zone.SiteID)
	}
	project, ok := c.Projects[d.ProjectID]
	if !ok {
		return Row{}, fmt.Errorf("deployment %d references unknown project %d", d.ID, d.ProjectID)
	}
	species, ok := c.Species[plant.SpeciesID]
	if !ok {
		return Row{}, fmt.Errorf("plant %d references unknown species %d", plant.ID, plant.SpeciesID)
	}
	sensorType, ok := c.SensorTypes[d.SensorTypeID]
	if !ok {
		return Row{}, fmt.Errorf("deployment %d references unknown sensor type %d", d.ID, d.SensorTypeID)
	}

	return Row{
		Row:              r,
		DeploymentID:     d.ID,
		ProjectCode:      project.Code,
		SiteID:           site.ID,
		SiteCode:         site.Code,
		SiteTimezone:     site.Timezone,
		ZoneID:           zone.ID,
		ZoneName:         zone.Code,
		PlotID:           plot.ID,
		PlotName:         plot.Code,
		PlantID:          plant.ID,
		PlantCode:        plant.Code,
		StemID:           stem.ID,
		StemCode:         stem.Code,
		SensorTypeCode:   sensorType.Code,
		SpeciesID:        species.ID,
		SpeciesCode:      species.Code,
		InstallationMeta: d.Installation,
	}, nil
}

// InstallationKeys returns the sorted union of installation-metadata keys
// present across every row's deployment in the batch — the dynamic column
// set the publisher materializes, with null for rows whose deployment lacks
// a given key.
func InstallationKeys(rows []Row) []string {
	seen := map[string]bool{}
	for _, r := range rows {
		for k := range r.InstallationMeta {
			seen[k] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
