package systems

import (
	"testing"

	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/params"
)

// fixedUniform always draws the same value.
type fixedUniform float64

func (f fixedUniform) Rand() float64 { return float64(f) }

type fixture struct {
	tables *params.Tables
	oak    *params.Species
	pine   *params.Species
	eco    *params.Ecoregion
	off    *params.Ecoregion
}

// newFixture builds two species in one active and one inactive ecoregion.
// oak matches the worked example: maxANPP 100, maxBiomass 1000, growth
// shape 0.5, longevity 100, mortality shape 10.
func newFixture(t *testing.T, oakMortality float64) *fixture {
	t.Helper()
	oak := &params.Species{Name: "oak", Longevity: 100, Maturity: 20, ShadeTolerance: 3, FireTolerance: 2,
		LeafLongevity: 1, WoodyDecayRate: 0.1, MortalityCurve: 10, GrowthCurve: 0.5, LeafLignin: 0.2}
	pine := &params.Species{Name: "pine", Longevity: 80, Maturity: 10, ShadeTolerance: 1, FireTolerance: 4,
		LeafLongevity: 3, WoodyDecayRate: 0.05, MortalityCurve: 12, GrowthCurve: 0.3, LeafLignin: 0.3}
	eco := &params.Ecoregion{Name: "upland", MapCode: 1, Active: true, AET: 600,
		MinRelativeBiomass: map[int]float64{1: 0.2, 2: 0.4, 3: 0.5, 4: 0.7, 5: 0.9}}
	off := &params.Ecoregion{Name: "lake", MapCode: 9, Active: false}

	records := []params.SpeciesEcoregionRecord{
		{Year: 0, EcoregionName: "upland", SpeciesCode: "oak", ProbEstablish: 0.6, ProbMortality: oakMortality, ANPPmax: 100, BiomassMax: 1000},
		{Year: 0, EcoregionName: "upland", SpeciesCode: "pine", ProbEstablish: 0.3, ANPPmax: 80, BiomassMax: 800},
	}
	tables, err := params.NewTables([]*params.Species{oak, pine}, []*params.Ecoregion{eco, off}, records)
	if err != nil {
		t.Fatal(err)
	}

	var light []params.SufficientLight
	for tol := 1; tol <= params.NumShadeClasses; tol++ {
		var p [params.NumShadeClasses + 1]float64
		for shade := range p {
			if shade <= tol {
				p[shade] = 1
			}
		}
		row, err := params.NewSufficientLight(tol, p)
		if err != nil {
			t.Fatal(err)
		}
		light = append(light, row)
	}
	if tables.Light, err = params.NewLightTable(light); err != nil {
		t.Fatal(err)
	}

	fire, err := params.NewFireReductions(3, 0.5, 0.8)
	if err != nil {
		t.Fatal(err)
	}
	if tables.Fire, err = params.NewFireTable([]params.FireReductions{fire}); err != nil {
		t.Fatal(err)
	}
	clearcut, err := params.NewHarvestReductions("clearcut", 0.3, 0.4, 1.0, 0.0)
	if err != nil {
		t.Fatal(err)
	}
	thin, err := params.NewHarvestReductions("thin*", 0.1, 0.1, 0.5, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	tables.Harvest = params.NewHarvestTable([]params.HarvestReductions{clearcut, thin})

	return &fixture{tables: tables, oak: oak, pine: pine, eco: eco, off: off}
}

func (f *fixture) site(rnd components.Uniform) *components.SiteState {
	s := components.NewSiteState(f.eco, rnd)
	return &s
}

type harvestAt string

func (h harvestAt) Prescription(*components.SiteState) (string, bool) { return string(h), h != "" }

type fireAt int

func (f fireAt) Severity(*components.SiteState) (int, bool) { return int(f), f > 0 }
