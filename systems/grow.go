package systems

import (
	"log/slog"

	"github.com/pthm-cable/succession/cohort"
	"github.com/pthm-cable/succession/components"
)

// ResetAnnualValues starts a new year at a site.
func (e *Engine) ResetAnnualValues(site *components.SiteState) {
	site.AGNPP = 0
	site.Defoliation = 0
	site.TotalBiomass = site.Cohorts.BiomassWhere(func(c *cohort.Cohort) bool {
		return c.Age >= e.timestep
	})
	site.PreviousYearMortality = int(site.CurrentYearMortality)
	site.CurrentYearMortality = 0
	site.Disturbed = false
}

// GrowCohorts grows every cohort at the site for the given number of years,
// starting at currentTime, and decays the dead pools after each year.
// currentTime <= 0 marks spin-up growth.
//
// Cohorts younger than the succession timestep when the call starts stop
// aging at the timestep, so a cohort established during a timestep is one
// timestep old at its end.
func (e *Engine) GrowCohorts(site *components.SiteState, years, currentTime int) error {
	young := make(map[*cohort.Cohort]bool)
	if e.timestep > 1 {
		site.Cohorts.Each(func(c *cohort.Cohort) {
			if c.Age < e.timestep {
				young[c] = true
			}
		})
	}

	for y := 1; y <= years; y++ {
		year := 0
		if currentTime > 0 {
			year = currentTime + y - 1
		}
		e.ResetAnnualValues(site)
		if err := e.growYear(site, year, young); err != nil {
			return err
		}
		site.WoodyDebris.Decompose()
		site.Litter.Decompose()
	}
	if len(young) > 0 {
		site.Cohorts.MergeSameAge()
	}
	return nil
}

// growYear grows each species' cohorts youngest first, then removes the
// cohorts that died.
func (e *Engine) growYear(site *components.SiteState, year int, young map[*cohort.Cohort]bool) error {
	for _, g := range site.Cohorts.Species() {
		for i := len(g.Cohorts) - 1; i >= 0; i-- {
			c := g.Cohorts[i]
			if !young[c] || c.Age < e.timestep {
				c.Age++
			}
			change, err := e.ComputeChange(c, site, year)
			if err != nil {
				return err
			}
			c.Biomass += change.BiomassDelta
			c.ANPP = change.ANPP
		}
	}

	removed := site.Cohorts.RemoveWhere(func(c *cohort.Cohort) bool {
		return c.Biomass <= 0 || c.Age > c.Species.Longevity
	})
	for _, c := range removed {
		if e.calibrate {
			slog.Debug("cohort died", "year", year, "species", c.Species.Name, "age", c.Age, "biomass", c.Biomass)
		}
		if err := e.CohortMortality(site, MortalityEvent{Cohort: c}); err != nil {
			return err
		}
	}
	return nil
}
