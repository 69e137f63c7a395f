package systems

import (
	"math"

	"github.com/pthm-cable/succession/cohort"
)

const competitionPower = 0.95

func competitionWeight(biomass int) float64 {
	return math.Max(math.Pow(float64(biomass), competitionPower), 1)
}

// CompetitionFraction is c's share of site growing space: its biomass
// raised to 0.95 over the same sum for every cohort at the site. A
// same-species cohort exactly one year younger is left out of the sum.
//
// The sum reads the cohorts as they are right now. During an annual pass
// cohorts already grown this year carry their new biomass and age, so the
// result depends on growth order.
func CompetitionFraction(cohorts *cohort.SiteCohorts, c *cohort.Cohort) float64 {
	own := competitionWeight(c.Biomass)
	total := own
	cohorts.Each(func(x *cohort.Cohort) {
		if x == c {
			return
		}
		if x.Species == c.Species && x.Age+1 == c.Age {
			return
		}
		total += competitionWeight(x.Biomass)
	})
	return own / total
}
