package systems

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/succession/cohort"
	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/params"
)

// Disturbance identifies what killed or damaged a cohort.
type Disturbance uint8

const (
	NoDisturbance Disturbance = iota // senescence or growth mortality
	Fire
	Harvest
	OtherDisturbance
)

func (d Disturbance) String() string {
	switch d {
	case NoDisturbance:
		return "none"
	case Fire:
		return "fire"
	case Harvest:
		return "harvest"
	case OtherDisturbance:
		return "other"
	}
	return fmt.Sprintf("Disturbance(%d)", d)
}

// MortalityEvent reports that a cohort died or lost biomass.
// Reduction is the biomass the disturbance removed; it is ignored when
// Disturbance is NoDisturbance, in which case the whole cohort died.
type MortalityEvent struct {
	Cohort      *cohort.Cohort
	Disturbance Disturbance
	Reduction   int
}

// CohortMortality moves the biomass lost in ev into the site's dead pools,
// split into foliage and wood by the cohort's non-woody fraction.
//
// Harvest and fire remove part of that biomass from the site, and the first
// event of a disturbance at a site also reduces the dead pools already on
// the ground. That reduction happens once until EndDisturbance or the next
// annual reset. The mortality observer receives the event last.
func (e *Engine) CohortMortality(site *components.SiteState, ev MortalityEvent) error {
	c := ev.Cohort
	nonWoody := NonWoodyFraction(c)

	killed := float64(c.Biomass)
	if ev.Disturbance != NoDisturbance {
		killed = float64(ev.Reduction)
	}
	foliar := killed * nonWoody
	wood := killed * (1 - nonWoody)

	switch ev.Disturbance {
	case Harvest:
		removal := params.HarvestReductions{CohortWood: 1}
		if name, ok := e.harvest.Prescription(site); ok {
			r, err := e.tables.Harvest.Lookup(name)
			if err != nil {
				return err
			}
			if !site.Disturbed {
				if err := reducePools(site, r.FineLitter, r.CoarseLitter); err != nil {
					return fmt.Errorf("harvest %s: %w", name, err)
				}
			}
			removal = r
		}
		wood -= wood * removal.CohortWood
		foliar -= foliar * removal.CohortLeaf
		e.regen.CheckForResprouting(c, site)

	case Fire:
		if ev.Reduction >= c.Biomass {
			e.regen.CheckForPostFireRegen(c, site)
		}
		if severity, ok := e.fire.Severity(site); ok && severity > 0 {
			r, err := e.tables.Fire.Lookup(severity)
			if err != nil {
				return err
			}
			if !site.Disturbed {
				if err := reducePools(site, r.FineLitter, r.CoarseLitter); err != nil {
					return fmt.Errorf("fire severity %d: %w", severity, err)
				}
			}
			wood -= wood * r.CoarseLitter
			foliar -= foliar * r.FineLitter
		}

	case OtherDisturbance:
		e.regen.CheckForResprouting(c, site)
	}

	if e.calibrate {
		slog.Debug("cohort mortality",
			"species", c.Species.Name,
			"age", c.Age,
			"disturbance", ev.Disturbance,
			"reduction", ev.Reduction,
			"wood", wood,
			"foliar", foliar,
		)
	}

	e.addWoody(site, c.Species, wood)
	e.addLitter(site, c.Species, foliar)
	e.deaths.CohortDied(site, ev, wood, foliar)

	if ev.Disturbance != NoDisturbance {
		site.Disturbed = true
	}
	return nil
}

func reducePools(site *components.SiteState, litter, woody float64) error {
	if _, err := site.Litter.ReduceMass(litter); err != nil {
		return err
	}
	_, err := site.WoodyDebris.ReduceMass(woody)
	return err
}

// EndDisturbance marks the end of a disturbance event at a site, so the
// next event reduces the dead pools again.
func (e *Engine) EndDisturbance(site *components.SiteState) {
	site.Disturbed = false
}

// DamageCohort removes up to reduction biomass from c by disturbance d,
// records the loss with CohortMortality and removes the cohort from the
// site when nothing is left. It returns the biomass removed.
func (e *Engine) DamageCohort(site *components.SiteState, c *cohort.Cohort, d Disturbance, reduction int) (int, error) {
	if d == NoDisturbance {
		return 0, fmt.Errorf("damaging %s age %d: no disturbance given", c.Species.Name, c.Age)
	}
	if reduction > c.Biomass {
		reduction = c.Biomass
	}
	if reduction <= 0 {
		return 0, nil
	}
	if err := e.CohortMortality(site, MortalityEvent{Cohort: c, Disturbance: d, Reduction: reduction}); err != nil {
		return 0, err
	}
	c.Biomass -= reduction
	if c.Biomass == 0 {
		site.Cohorts.RemoveWhere(func(x *cohort.Cohort) bool { return x == c })
	}
	return reduction, nil
}
