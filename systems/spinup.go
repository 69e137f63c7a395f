package systems

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/succession/cohort"
	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/params"
	"github.com/pthm-cable/succession/pool"
)

type spinUpKey struct {
	community int
	ecoregion int
}

// InitialBiomass is the spun-up state of an initial community in one
// ecoregion. It is shared by every site with the same pair and must be
// cloned before use.
type InitialBiomass struct {
	Cohorts     *cohort.SiteCohorts
	WoodyDebris pool.Pool
	Litter      pool.Pool
}

// SpinUp derives cohort biomass and dead pools for an age-only community
// by replaying growth from the birth of its oldest cohort to year 0.
// Results are cached by community and ecoregion map code for the life of
// the engine.
func (e *Engine) SpinUp(community *params.Community, eco *params.Ecoregion) (*InitialBiomass, error) {
	if !eco.Active {
		return nil, fmt.Errorf("%w: community %d, ecoregion %s", ErrInactiveEcoregion, community.MapCode, eco.Name)
	}

	e.spinMu.Lock()
	defer e.spinMu.Unlock()

	key := spinUpKey{community: community.MapCode, ecoregion: eco.MapCode}
	if ib, ok := e.spinCache[key]; ok {
		return ib, nil
	}

	sorted, ok := e.sorted[community.MapCode]
	if !ok {
		sorted = e.binAges(community.SortedByAge())
		e.sorted[community.MapCode] = sorted
	}

	site := components.NewSiteState(eco, nil)
	if err := e.replay(&site, sorted); err != nil {
		return nil, fmt.Errorf("spin-up of community %d in %s: %w", community.MapCode, eco.Name, err)
	}

	ib := &InitialBiomass{
		Cohorts:     site.Cohorts,
		WoodyDebris: site.WoodyDebris.Clone(),
		Litter:      site.Litter.Clone(),
	}
	e.spinCache[key] = ib

	slog.Debug("spun up community",
		"community", community.MapCode,
		"ecoregion", eco.Name,
		"cohorts", ib.Cohorts.Len(),
		"biomass", ib.Cohorts.TotalBiomass(),
	)
	return ib, nil
}

// replay grows the scratch site from the oldest record's birth to year 0,
// adding each record as an age 1 cohort in the step it was born.
func (e *Engine) replay(site *components.SiteState, records []params.CommunityCohort) error {
	if len(records) == 0 {
		return nil
	}
	t := e.timestep
	// With a one-year step the last growth call would age every cohort one
	// year past its record.
	end := 0
	if t == 1 {
		end = -1
	}

	next := 0
	for time := -records[0].Age; time <= end; time += t {
		if err := e.GrowCohorts(site, t, 0); err != nil {
			return err
		}
		for next < len(records) && records[next].Age == -time {
			r := records[next]
			b := e.InitialCohortBiomass(r.Species, site.Cohorts, site.Ecoregion, 0)
			site.Cohorts.Add(r.Species, 1, b)
			next++
		}
	}
	if next < len(records) {
		return fmt.Errorf("%d cohorts never reached their recorded age", len(records)-next)
	}
	return nil
}

// binAges rounds record ages up to whole timesteps so every record falls
// on a step of the replay.
func (e *Engine) binAges(records []params.CommunityCohort) []params.CommunityCohort {
	t := e.timestep
	if t == 1 {
		return records
	}
	for i := range records {
		r := &records[i]
		binned := (r.Age + t - 1) / t * t
		if binned > r.Species.Longevity {
			slog.Warn("initial cohort age rounds past longevity and will not survive spin-up",
				"species", r.Species.Name,
				"age", r.Age,
				"binned_age", binned,
				"longevity", r.Species.Longevity,
				"timestep", t,
			)
		}
		r.Age = binned
	}
	return records
}

// InitializeSite installs a community at a site. With spin-up the cached
// spun-up state is cloned in; without it the community's recorded biomass
// is used as-is.
func (e *Engine) InitializeSite(site *components.SiteState, community *params.Community, spinUp bool) error {
	site.CommunityCode = community.MapCode
	if !spinUp {
		if !site.Ecoregion.Active {
			return fmt.Errorf("%w: community %d, ecoregion %s", ErrInactiveEcoregion, community.MapCode, site.Ecoregion.Name)
		}
		site.Cohorts = cohort.New()
		for _, r := range community.Cohorts {
			site.Cohorts.Add(r.Species, r.Age, r.Biomass)
		}
		return nil
	}

	ib, err := e.SpinUp(community, site.Ecoregion)
	if err != nil {
		return err
	}
	site.Cohorts = ib.Cohorts.Clone()
	site.WoodyDebris = ib.WoodyDebris.Clone()
	site.Litter = ib.Litter.Clone()
	return nil
}
