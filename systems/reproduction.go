package systems

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/succession/cohort"
	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/params"
)

// SufficientLight draws whether a seedling of sp gets enough light at the
// site's current shade class.
func (e *Engine) SufficientLight(sp *params.Species, site *components.SiteState) bool {
	p, ok := e.tables.Light.Probability(sp.ShadeTolerance, site.Shade)
	if !ok {
		slog.Warn("no sufficient light data", "species", sp.Name, "shade_tolerance", sp.ShadeTolerance, "shade", site.Shade)
	}
	return site.Uniform() < p
}

// Establish draws whether sp establishes at the site this year, using the
// establishment probability scaled by the current modifier.
func (e *Engine) Establish(sp *params.Species, site *components.SiteState, year int) bool {
	p := e.tables.Dynamic.At(max(year, 0)).Get(sp, site.Ecoregion).ProbEstablish
	p *= e.tables.Dynamic.EstablishModifier(sp, site.Ecoregion)
	return site.Uniform() < p
}

// PlantingEstablish reports whether planted sp can establish at the site.
func (e *Engine) PlantingEstablish(sp *params.Species, site *components.SiteState, year int) bool {
	return e.tables.Dynamic.At(max(year, 0)).Get(sp, site.Ecoregion).ProbEstablish > 0
}

// MaturePresent reports whether a sexually mature cohort of sp is at the site.
func (e *Engine) MaturePresent(sp *params.Species, site *components.SiteState) bool {
	return site.Cohorts.IsMaturePresent(sp)
}

// AddNewCohort establishes an age 1 cohort of sp at the site.
func (e *Engine) AddNewCohort(sp *params.Species, site *components.SiteState, year int) *cohort.Cohort {
	b := e.InitialCohortBiomass(sp, site.Cohorts, site.Ecoregion, year)
	return site.Cohorts.Add(sp, 1, b)
}

// InitialCohortBiomass is the biomass of a new cohort of sp:
// maxANPP * exp(-1.6 * B / B_MAX), bounded to [2, maxANPP], where B sums
// the cohorts at least one timestep old. New cohorts start smaller on
// crowded sites.
func (e *Engine) InitialCohortBiomass(sp *params.Species, cohorts *cohort.SiteCohorts, eco *params.Ecoregion, year int) int {
	data := e.tables.Dynamic.At(max(year, 0))
	bAct := cohorts.BiomassWhere(func(c *cohort.Cohort) bool {
		return c.Age >= e.timestep && c.Age > 1
	})

	ratio := 0.0
	if bMax := data.EcoregionMaxBiomass(eco); bMax > 0 {
		ratio = float64(bAct) / bMax
	}
	maxANPP := data.Get(sp, eco).MaxANPP
	b := maxANPP * math.Exp(-1.6*ratio)
	b = math.Min(maxANPP, b)
	b = math.Max(2, b)
	return int(b)
}
