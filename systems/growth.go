package systems

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/pthm-cable/succession/cohort"
	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/params"
	"github.com/pthm-cable/succession/pool"
)

// leafFraction is the share of ANPP that goes into foliage, for every
// species.
const leafFraction = 0.35

// AnnualChange is the result of growing one cohort for one year.
type AnnualChange struct {
	BiomassDelta int
	ANPP         int

	// MortalityWithoutLeafLitter is the woody part of this year's
	// mortality.
	MortalityWithoutLeafLitter int
}

type growthTerms struct {
	bAP       float64 // actual over potential biomass
	indexC    float64 // competition index
	actual    float64 // actual ANPP
	reduction float64 // external growth reduction
}

// ComputeChange grows c for one year and deposits its litter and woody
// mortality in the site's dead pools. year is the simulated year; years
// <= 0 are spin-up years, which use year 0 data and never draw
// catastrophic mortality. The caller applies the returned delta.
func (e *Engine) ComputeChange(c *cohort.Cohort, site *components.SiteState, year int) (AnnualChange, error) {
	if year < 0 {
		year = 0
	}
	data := e.tables.Dynamic.At(year).Get(c.Species, site.Ecoregion)
	siteBiomass := site.TotalBiomass

	mAge := e.computeAgeMortality(c)

	g, err := e.computeActualANPP(c, site, data)
	if err != nil {
		return AnnualChange{}, err
	}
	anpp := int(g.actual)
	site.AGNPP += g.actual

	actual := math.Max(1, g.actual-mAge)

	mGrowth := computeGrowthMortality(c, data.MaxANPP, g)
	mGrowth = math.Max(0, mGrowth-mAge)
	mGrowth = math.Min(mGrowth, actual)

	total := mAge + mGrowth
	if total > float64(c.Biomass) {
		return AnnualChange{}, fmt.Errorf("%w: %s age %d biomass %d, mortality %.2f (age %.2f, growth %.2f)",
			ErrMortalityExceedsBiomass, c.Species.Name, c.Age, c.Biomass, total, mAge, mGrowth)
	}

	defoliationLoss := 0.0
	if f := clamp01(e.defol.Defoliation(site, c, c.Biomass, siteBiomass)); f > 0 {
		defoliationLoss = leafFraction * actual * f
		site.Defoliation += defoliationLoss
	}

	if year > 0 && site.Uniform() < data.ProbMortality {
		total = float64(c.Biomass)
	}
	site.CurrentYearMortality += total

	delta := int(actual - total - defoliationLoss)
	newBiomass := c.Biomass + delta

	mWood := e.depositDeadBiomass(c.Species, site, actual, total, newBiomass)

	if e.calibrate && year > 0 {
		slog.Debug("cohort growth",
			"year", year,
			"species", c.Species.Name,
			"age", c.Age,
			"biomass", c.Biomass,
			"site_biomass", siteBiomass,
			"b_ap", g.bAP,
			"index_c", g.indexC,
			"anpp", actual,
			"mortality", total,
			"defoliation", defoliationLoss,
			"delta", delta,
		)
	}

	return AnnualChange{BiomassDelta: delta, ANPP: anpp, MortalityWithoutLeafLitter: mWood}, nil
}

func (e *Engine) computeAgeMortality(c *cohort.Cohort) float64 {
	if e.ageMortality != nil {
		return e.ageMortality(c)
	}
	return AgeMortality(c.Biomass, c.Age, c.Species.Longevity, c.Species.MortalityCurve)
}

// AgeMortality is biomass * exp(age/longevity * d) / exp(d), capped at
// biomass.
func AgeMortality(biomass, age, longevity int, d float64) float64 {
	if biomass <= 0 {
		return 0
	}
	b := float64(biomass)
	m := b * math.Exp(float64(age)/float64(longevity)*d) / math.Exp(d)
	if m < 0 {
		return 0
	}
	return math.Min(m, b)
}

func (e *Engine) computeActualANPP(c *cohort.Cohort, site *components.SiteState, data params.SpeciesEcoregionValues) (growthTerms, error) {
	g := growthTerms{reduction: clamp01(e.growth.GrowthReduction(c, site))}
	b := float64(c.Biomass)

	capacity := 1.0
	if site.CapacityReduction > 0 {
		capacity = 1 - site.CapacityReduction
	}
	maxBiomass := data.MaxBiomass * capacity

	potential := math.Max(1, maxBiomass-float64(site.TotalBiomass)+b)
	if capacity >= 1 {
		potential = math.Max(potential, float64(site.PreviousYearMortality))
	}
	g.bAP = b / potential

	if e.competition != nil {
		g.indexC = e.competition(site.Cohorts, c)
	} else {
		g.indexC = CompetitionFraction(site.Cohorts, c)
	}
	if math.IsNaN(g.indexC) || (g.indexC <= 0 && c.Biomass > 0) || g.indexC > 1 {
		return g, fmt.Errorf("%w: %.4f for %s age %d biomass %d",
			ErrCompetitionIndex, g.indexC, c.Species.Name, c.Age, c.Biomass)
	}

	shape := math.Pow(g.bAP, c.Species.GrowthCurve)
	g.actual = data.MaxANPP * math.E * shape * math.Exp(-shape) * g.indexC
	g.actual = math.Min(data.MaxANPP*g.indexC, g.actual)
	if g.reduction > 0 {
		g.actual *= 1 - g.reduction
	}
	return g, nil
}

func computeGrowthMortality(c *cohort.Cohort, maxANPP float64, g growthTerms) float64 {
	var m float64
	if g.bAP > 1 {
		m = maxANPP * g.indexC
	} else {
		m = maxANPP * (2 * g.bAP) / (1 + g.bAP) * g.indexC
	}
	m = math.Min(float64(c.Biomass), m)
	m = math.Min(maxANPP*g.indexC, m)
	if g.reduction > 0 {
		m *= 1 - g.reduction
	}
	return m
}

// depositDeadBiomass puts this year's leaf production into litter and
// splits the rest of the mortality between litter and woody debris in
// proportion to the standing non-woody biomass the leaf longevity implies.
// It returns the woody mortality.
func (e *Engine) depositDeadBiomass(sp *params.Species, site *components.SiteState, actualANPP, mortality float64, newBiomass int) int {
	annualLeaf := actualANPP * leafFraction
	e.addLitter(site, sp, annualLeaf)

	mortality -= annualLeaf

	standingNonWood := math.Max(0, annualLeaf*sp.LeafLongevity-annualLeaf)
	fraction := 0.0
	if newBiomass > 0 {
		fraction = math.Min(1, standingNonWood/float64(newBiomass))
	}

	mNonWood := math.Max(0, mortality*fraction)
	mWood := math.Max(0, mortality-mNonWood)

	if mWood > 0 {
		e.addWoody(site, sp, mWood)
	}
	if mNonWood > 0 {
		e.addLitter(site, sp, mNonWood)
	}
	return int(mWood)
}

// StandingLeafBiomass estimates the foliage carried by a cohort from its
// ANPP, bounded to 2.5%..35% of its biomass.
func StandingLeafBiomass(anpp float64, c *cohort.Cohort) float64 {
	b := float64(c.Biomass)
	leaf := anpp * leafFraction * c.Species.LeafLongevity
	leaf = math.Max(leaf, b*0.025)
	return math.Min(leaf, b*leafFraction)
}

// NonWoodyFraction is the share of a cohort's biomass that is foliage.
func NonWoodyFraction(c *cohort.Cohort) float64 {
	if c.Biomass <= 0 {
		return 0
	}
	return StandingLeafBiomass(float64(c.ANPP), c) / float64(c.Biomass)
}

func (e *Engine) addWoody(site *components.SiteState, sp *params.Species, mass float64) {
	site.WoodyDebris.AddMass(mass, sp.WoodyDecayRate)
}

func (e *Engine) addLitter(site *components.SiteState, sp *params.Species, mass float64) {
	site.Litter.AddMass(mass, pool.LitterDecayRate(site.Ecoregion.AET, sp.LeafLignin))
}

func clamp01(v float64) float64 {
	switch {
	case v != v || v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
