package systems

import (
	"fmt"
	"math"

	"github.com/pthm-cable/succession/cohort"
	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/params"
)

// ComputeShade returns the site's shade class, 0..5, from the biomass of
// cohorts older than five years relative to the ecoregion's maximum.
func (e *Engine) ComputeShade(site *components.SiteState, year int) (int, error) {
	if year < 0 {
		year = 0
	}
	bMax := e.tables.Dynamic.At(year).EcoregionMaxBiomass(site.Ecoregion)

	bAct := float64(site.Cohorts.BiomassWhere(func(c *cohort.Cohort) bool { return c.Age > 5 }))
	bAct = math.Min(bMax-float64(site.PreviousYearMortality), bAct)

	relative := 0.0
	if bMax > 0 {
		relative = bAct / bMax
	}

	for shade := params.NumShadeClasses; shade >= 1; shade-- {
		threshold, ok := site.Ecoregion.MinRelative(shade)
		if !ok {
			return 0, fmt.Errorf("%w: ecoregion %s, shade class %d", ErrMinRelativeBiomass, site.Ecoregion.Name, shade)
		}
		if relative >= threshold {
			return shade, nil
		}
	}
	return 0, nil
}
