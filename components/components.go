// Package components defines the ECS components of a landscape site.
package components

import (
	"github.com/pthm-cable/succession/cohort"
	"github.com/pthm-cable/succession/params"
	"github.com/pthm-cable/succession/pool"
)

// Uniform is a source of uniform random numbers in [0, 1).
// gonum's distuv.Uniform satisfies it.
type Uniform interface {
	Rand() float64
}

// SiteState is the succession state of one active site.
type SiteState struct {
	Ecoregion *params.Ecoregion
	Cohorts   *cohort.SiteCohorts

	WoodyDebris pool.Pool
	Litter      pool.Pool

	// TotalBiomass is the non-young cohort biomass at the start of the
	// current year. Competition for growing space is measured against it.
	TotalBiomass int

	PreviousYearMortality int
	CurrentYearMortality  float64

	AGNPP       float64
	Defoliation float64

	// CapacityReduction is the fraction of growing space removed by
	// harvest, 0 when none.
	CapacityReduction float64

	Shade int

	// Disturbed is set once the first cohort of a disturbance event has
	// been processed, so pool reductions happen once per event.
	Disturbed bool

	// CommunityCode is the initial communities map code of the site.
	CommunityCode int

	Rand Uniform
}

// NewSiteState returns an empty site in ecoregion e.
func NewSiteState(e *params.Ecoregion, rnd Uniform) SiteState {
	return SiteState{
		Ecoregion: e,
		Cohorts:   cohort.New(),
		Rand:      rnd,
	}
}

// Uniform draws from the site's random stream. A site without a stream
// always draws 1, so probability checks never pass.
func (s *SiteState) Uniform() float64 {
	if s.Rand == nil {
		return 1
	}
	return s.Rand.Rand()
}
