// Package systems implements cohort growth and mortality, the dead-pool
// bookkeeping, spin-up of initial communities and the site queries the
// reproduction module relies on.
package systems

import (
	"errors"
	"sync"

	"github.com/pthm-cable/succession/cohort"
	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/params"
)

// Fatal consistency errors. A run that hits one of these must stop.
var (
	ErrMortalityExceedsBiomass = errors.New("mortality exceeds cohort biomass")
	ErrCompetitionIndex        = errors.New("competition index outside (0, 1]")
	ErrMinRelativeBiomass      = errors.New("minimum relative biomass not defined")
	ErrInactiveEcoregion       = errors.New("initial community on inactive ecoregion")
)

// GrowthReducer reports the fraction by which a disturbance suppresses a
// cohort's growth this year.
type GrowthReducer interface {
	GrowthReduction(c *cohort.Cohort, site *components.SiteState) float64
}

// Defoliator reports the fraction of a cohort's new foliage lost to
// defoliators this year.
type Defoliator interface {
	Defoliation(site *components.SiteState, c *cohort.Cohort, cohortBiomass, siteBiomass int) float64
}

// HarvestSource reports the harvest prescription applied to a site.
type HarvestSource interface {
	Prescription(site *components.SiteState) (string, bool)
}

// FireSource reports the severity of the fire that burned a site.
type FireSource interface {
	Severity(site *components.SiteState) (int, bool)
}

// Regeneration is the host's reproduction module.
type Regeneration interface {
	CheckForResprouting(c *cohort.Cohort, site *components.SiteState)
	CheckForPostFireRegen(c *cohort.Cohort, site *components.SiteState)
}

// MortalityObserver is told about every cohort death or partial loss the
// engine records, with the wood and foliage that went into the dead pools.
type MortalityObserver interface {
	CohortDied(site *components.SiteState, ev MortalityEvent, wood, foliar float64)
}

type noGrowthReduction struct{}

func (noGrowthReduction) GrowthReduction(*cohort.Cohort, *components.SiteState) float64 { return 0 }

type noDefoliation struct{}

func (noDefoliation) Defoliation(*components.SiteState, *cohort.Cohort, int, int) float64 { return 0 }

type noHarvest struct{}

func (noHarvest) Prescription(*components.SiteState) (string, bool) { return "", false }

type noFire struct{}

func (noFire) Severity(*components.SiteState) (int, bool) { return 0, false }

type noRegeneration struct{}

func (noRegeneration) CheckForResprouting(*cohort.Cohort, *components.SiteState)   {}
func (noRegeneration) CheckForPostFireRegen(*cohort.Cohort, *components.SiteState) {}

type noObserver struct{}

func (noObserver) CohortDied(*components.SiteState, MortalityEvent, float64, float64) {}

// Engine grows the cohorts of a site and keeps its dead pools.
// It holds no per-site state, so different sites may be grown concurrently.
type Engine struct {
	tables    *params.Tables
	timestep  int
	calibrate bool

	growth  GrowthReducer
	defol   Defoliator
	harvest HarvestSource
	fire    FireSource
	regen   Regeneration
	deaths  MortalityObserver

	// ageMortality replaces the age-mortality curve when set.
	ageMortality func(c *cohort.Cohort) float64

	// competition replaces CompetitionFraction when set.
	competition func(cohorts *cohort.SiteCohorts, c *cohort.Cohort) float64

	spinMu    sync.Mutex
	spinCache map[spinUpKey]*InitialBiomass
	sorted    map[int][]params.CommunityCohort
}

// Option configures an Engine.
type Option func(*Engine)

// WithGrowthReducer sets the growth reduction collaborator.
func WithGrowthReducer(g GrowthReducer) Option { return func(e *Engine) { e.growth = g } }

// WithDefoliator sets the defoliation collaborator.
func WithDefoliator(d Defoliator) Option { return func(e *Engine) { e.defol = d } }

// WithHarvest sets the harvest prescription source.
func WithHarvest(h HarvestSource) Option { return func(e *Engine) { e.harvest = h } }

// WithFire sets the fire severity source.
func WithFire(f FireSource) Option { return func(e *Engine) { e.fire = f } }

// WithRegeneration sets the reproduction module.
func WithRegeneration(r Regeneration) Option { return func(e *Engine) { e.regen = r } }

// WithMortalityObserver sets the receiver of cohort mortality events.
func WithMortalityObserver(o MortalityObserver) Option { return func(e *Engine) { e.deaths = o } }

// WithCalibrate turns on per-cohort debug traces.
func WithCalibrate(on bool) Option { return func(e *Engine) { e.calibrate = on } }

// NewEngine returns an engine for the given succession timestep in years.
func NewEngine(tables *params.Tables, timestep int, opts ...Option) *Engine {
	if timestep < 1 {
		timestep = 1
	}
	e := &Engine{
		tables:    tables,
		timestep:  timestep,
		growth:    noGrowthReduction{},
		defol:     noDefoliation{},
		harvest:   noHarvest{},
		fire:      noFire{},
		regen:     noRegeneration{},
		deaths:    noObserver{},
		spinCache: make(map[spinUpKey]*InitialBiomass),
		sorted:    make(map[int][]params.CommunityCohort),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timestep returns the succession timestep in years.
func (e *Engine) Timestep() int { return e.timestep }

// Tables returns the parameter tables.
func (e *Engine) Tables() *params.Tables { return e.tables }
