package systems

import (
	"errors"
	"math"
	"testing"

	"github.com/pthm-cable/succession/cohort"
	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/params"
)

type regenRecorder struct {
	resprout []*cohort.Cohort
	postFire []*cohort.Cohort
}

func (r *regenRecorder) CheckForResprouting(c *cohort.Cohort, _ *components.SiteState) {
	r.resprout = append(r.resprout, c)
}

func (r *regenRecorder) CheckForPostFireRegen(c *cohort.Cohort, _ *components.SiteState) {
	r.postFire = append(r.postFire, c)
}

// seededSite returns a site with 100 g m-2 in each dead pool and one oak
// cohort whose standing foliage is at the 2.5% floor.
func seededSite(f *fixture) (*components.SiteState, *cohort.Cohort) {
	site := f.site(nil)
	site.Litter.AddMass(100, 0.5)
	site.WoodyDebris.AddMass(100, 0.1)
	c := site.Cohorts.Add(f.oak, 40, 200)
	return site, c
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCohortMortalityConservesBiomass(t *testing.T) {
	f := newFixture(t, 0)
	e := NewEngine(f.tables, 10)
	site := f.site(nil)
	c := site.Cohorts.Add(f.oak, 40, 200)
	c.ANPP = 40 // standing leaf 14, 7% of biomass

	if err := e.CohortMortality(site, MortalityEvent{Cohort: c}); err != nil {
		t.Fatal(err)
	}
	if !near(site.Litter.Mass, 14) || !near(site.WoodyDebris.Mass, 186) {
		t.Errorf("litter %v woody %v, want 14 and 186", site.Litter.Mass, site.WoodyDebris.Mass)
	}
	if site.Disturbed {
		t.Error("senescence must not mark the site disturbed")
	}
}

func TestHarvestReducesPoolsOnce(t *testing.T) {
	f := newFixture(t, 0)
	regen := &regenRecorder{}
	e := NewEngine(f.tables, 10, WithHarvest(harvestAt("clearcut")), WithRegeneration(regen))
	site, c := seededSite(f)
	other := site.Cohorts.Add(f.pine, 20, 200)

	if err := e.CohortMortality(site, MortalityEvent{Cohort: c, Disturbance: Harvest, Reduction: 200}); err != nil {
		t.Fatal(err)
	}
	// Pools lose 40% of litter and 30% of wood; all cohort wood leaves the
	// site and its 5 g of foliage stays.
	if !near(site.Litter.Mass, 65) || !near(site.WoodyDebris.Mass, 70) {
		t.Fatalf("after first cohort: litter %v woody %v, want 65 and 70", site.Litter.Mass, site.WoodyDebris.Mass)
	}
	if !site.Disturbed {
		t.Fatal("site not marked disturbed")
	}

	if err := e.CohortMortality(site, MortalityEvent{Cohort: other, Disturbance: Harvest, Reduction: 200}); err != nil {
		t.Fatal(err)
	}
	if !near(site.Litter.Mass, 70) || !near(site.WoodyDebris.Mass, 70) {
		t.Errorf("after second cohort: litter %v woody %v, want 70 and 70", site.Litter.Mass, site.WoodyDebris.Mass)
	}
	if len(regen.resprout) != 2 {
		t.Errorf("resprouting checked %d times, want 2", len(regen.resprout))
	}

	e.EndDisturbance(site)
	if err := e.CohortMortality(site, MortalityEvent{Cohort: other, Disturbance: Harvest, Reduction: 0}); err != nil {
		t.Fatal(err)
	}
	if !near(site.Litter.Mass, 42) || !near(site.WoodyDebris.Mass, 49) {
		t.Errorf("after new event: litter %v woody %v, want 42 and 49", site.Litter.Mass, site.WoodyDebris.Mass)
	}
}

func TestHarvestWithoutPrescription(t *testing.T) {
	f := newFixture(t, 0)
	e := NewEngine(f.tables, 10)
	site, c := seededSite(f)

	if err := e.CohortMortality(site, MortalityEvent{Cohort: c, Disturbance: Harvest, Reduction: 200}); err != nil {
		t.Fatal(err)
	}
	if !near(site.Litter.Mass, 105) || !near(site.WoodyDebris.Mass, 100) {
		t.Errorf("litter %v woody %v, want 105 and 100", site.Litter.Mass, site.WoodyDebris.Mass)
	}
}

func TestHarvestWildcardPrescription(t *testing.T) {
	f := newFixture(t, 0)
	e := NewEngine(f.tables, 10, WithHarvest(harvestAt("thinning")))
	site, c := seededSite(f)

	if err := e.CohortMortality(site, MortalityEvent{Cohort: c, Disturbance: Harvest, Reduction: 200}); err != nil {
		t.Fatal(err)
	}
	// thin*: pools lose 10%, half of the cohort's wood and foliage stays.
	if !near(site.Litter.Mass, 92.5) || !near(site.WoodyDebris.Mass, 187.5) {
		t.Errorf("litter %v woody %v, want 92.5 and 187.5", site.Litter.Mass, site.WoodyDebris.Mass)
	}
}

func TestHarvestUnknownPrescription(t *testing.T) {
	f := newFixture(t, 0)
	e := NewEngine(f.tables, 10, WithHarvest(harvestAt("selection")))
	site, c := seededSite(f)

	err := e.CohortMortality(site, MortalityEvent{Cohort: c, Disturbance: Harvest, Reduction: 200})
	if !errors.Is(err, params.ErrUnknownPrescription) {
		t.Fatalf("err = %v, want ErrUnknownPrescription", err)
	}
	if !near(site.Litter.Mass, 100) || !near(site.WoodyDebris.Mass, 100) {
		t.Error("a failed harvest must not touch the dead pools")
	}
}

func TestFireMortality(t *testing.T) {
	f := newFixture(t, 0)

	tests := []struct {
		name      string
		reduction int
		litter    float64
		woody     float64
		postFire  int
	}{
		// Pools keep 20% litter and 50% wood; the cohort's wood and foliage
		// are consumed in the same proportions.
		{"whole cohort", 200, 20 + 5*0.2, 50 + 195*0.5, 1},
		{"partial", 80, 20 + 2*0.2, 50 + 78*0.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regen := &regenRecorder{}
			e := NewEngine(f.tables, 10, WithFire(fireAt(3)), WithRegeneration(regen))
			site, c := seededSite(f)
			if err := e.CohortMortality(site, MortalityEvent{Cohort: c, Disturbance: Fire, Reduction: tt.reduction}); err != nil {
				t.Fatal(err)
			}
			if !near(site.Litter.Mass, tt.litter) || !near(site.WoodyDebris.Mass, tt.woody) {
				t.Errorf("litter %v woody %v, want %v and %v", site.Litter.Mass, site.WoodyDebris.Mass, tt.litter, tt.woody)
			}
			if len(regen.postFire) != tt.postFire {
				t.Errorf("post-fire regeneration checked %d times, want %d", len(regen.postFire), tt.postFire)
			}
			if len(regen.resprout) != 0 {
				t.Error("fire must not check resprouting")
			}
		})
	}
}

func TestFireUnknownSeverity(t *testing.T) {
	f := newFixture(t, 0)
	e := NewEngine(f.tables, 10, WithFire(fireAt(2)))
	site, c := seededSite(f)

	err := e.CohortMortality(site, MortalityEvent{Cohort: c, Disturbance: Fire, Reduction: 10})
	if !errors.Is(err, params.ErrUnknownSeverity) {
		t.Fatalf("err = %v, want ErrUnknownSeverity", err)
	}
}

func TestOtherDisturbance(t *testing.T) {
	f := newFixture(t, 0)
	regen := &regenRecorder{}
	e := NewEngine(f.tables, 10, WithRegeneration(regen))
	site, c := seededSite(f)

	if err := e.CohortMortality(site, MortalityEvent{Cohort: c, Disturbance: OtherDisturbance, Reduction: 100}); err != nil {
		t.Fatal(err)
	}
	if !near(site.Litter.Mass, 102.5) || !near(site.WoodyDebris.Mass, 197.5) {
		t.Errorf("litter %v woody %v, want 102.5 and 197.5", site.Litter.Mass, site.WoodyDebris.Mass)
	}
	if len(regen.resprout) != 1 || !site.Disturbed {
		t.Errorf("resprout checks %d, disturbed %v", len(regen.resprout), site.Disturbed)
	}
}

func TestDamageCohort(t *testing.T) {
	f := newFixture(t, 0)
	e := NewEngine(f.tables, 10)
	site, c := seededSite(f)

	got, err := e.DamageCohort(site, c, OtherDisturbance, 50)
	if err != nil {
		t.Fatal(err)
	}
	if got != 50 || c.Biomass != 150 || site.Cohorts.Len() != 1 {
		t.Fatalf("partial damage: removed %d, biomass %d, cohorts %d", got, c.Biomass, site.Cohorts.Len())
	}

	got, err = e.DamageCohort(site, c, OtherDisturbance, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if got != 150 || site.Cohorts.Len() != 0 {
		t.Errorf("lethal damage: removed %d, cohorts left %d", got, site.Cohorts.Len())
	}

	if _, err := e.DamageCohort(site, c, NoDisturbance, 10); err == nil {
		t.Error("damage without a disturbance accepted")
	}
}

func TestDisturbanceString(t *testing.T) {
	for d, want := range map[Disturbance]string{
		NoDisturbance:    "none",
		Fire:             "fire",
		Harvest:          "harvest",
		OtherDisturbance: "other",
		Disturbance(9):   "Disturbance(9)",
	} {
		if got := d.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", d, got, want)
		}
	}
}

type deathRecord struct {
	ev           MortalityEvent
	wood, foliar float64
}

type deathRecorder struct{ deaths []deathRecord }

func (r *deathRecorder) CohortDied(_ *components.SiteState, ev MortalityEvent, wood, foliar float64) {
	r.deaths = append(r.deaths, deathRecord{ev: ev, wood: wood, foliar: foliar})
}

func TestMortalityObserver(t *testing.T) {
	f := newFixture(t, 0)

	t.Run("senescence", func(t *testing.T) {
		deaths := &deathRecorder{}
		e := NewEngine(f.tables, 10, WithMortalityObserver(deaths))
		site := f.site(nil)
		site.Cohorts.Add(f.oak, 100, 5000)

		if err := e.GrowCohorts(site, 1, 5); err != nil {
			t.Fatal(err)
		}
		if site.Cohorts.Len() != 0 {
			t.Fatalf("%d cohorts left, want 0", site.Cohorts.Len())
		}
		if len(deaths.deaths) != 1 {
			t.Fatalf("observed %d deaths, want 1", len(deaths.deaths))
		}
		d := deaths.deaths[0]
		if d.ev.Disturbance != NoDisturbance || d.ev.Cohort.Species != f.oak {
			t.Errorf("event = %+v", d.ev)
		}
		if !near(d.wood+d.foliar, float64(d.ev.Cohort.Biomass)) {
			t.Errorf("wood %v + foliar %v, want the cohort's %d", d.wood, d.foliar, d.ev.Cohort.Biomass)
		}
	})

	tests := []struct {
		name         string
		opts         []Option
		ev           func(c *cohort.Cohort) MortalityEvent
		wood, foliar float64
	}{
		{
			"harvest",
			[]Option{WithHarvest(harvestAt("clearcut"))},
			func(c *cohort.Cohort) MortalityEvent {
				return MortalityEvent{Cohort: c, Disturbance: Harvest, Reduction: 200}
			},
			0, 5,
		},
		{
			"fire",
			[]Option{WithFire(fireAt(3))},
			func(c *cohort.Cohort) MortalityEvent {
				return MortalityEvent{Cohort: c, Disturbance: Fire, Reduction: 200}
			},
			97.5, 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deaths := &deathRecorder{}
			e := NewEngine(f.tables, 10, append(tt.opts, WithMortalityObserver(deaths))...)
			site, c := seededSite(f)
			ev := tt.ev(c)
			if err := e.CohortMortality(site, ev); err != nil {
				t.Fatal(err)
			}
			if len(deaths.deaths) != 1 {
				t.Fatalf("observed %d events, want 1", len(deaths.deaths))
			}
			d := deaths.deaths[0]
			if d.ev != ev {
				t.Errorf("event = %+v, want %+v", d.ev, ev)
			}
			if !near(d.wood, tt.wood) || !near(d.foliar, tt.foliar) {
				t.Errorf("wood %v foliar %v, want %v and %v", d.wood, d.foliar, tt.wood, tt.foliar)
			}
		})
	}
}
