package sim

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/succession/config"
	"github.com/pthm-cable/succession/params"
	"github.com/pthm-cable/succession/systems"
)

const (
	speciesCSV = `SpeciesCode,Longevity,SexualMaturity,ShadeTolerance,FireTolerance,LeafLongevity,WoodDecayRate,MortalityCurve,GrowthCurve,LeafLignin
oak,200,30,3,2,1,0.1,10,0.5,0.2
pine,80,10,1,4,3,0.05,12,0.3,0.3
`
	speciesEcoCSV = `Year,EcoregionName,SpeciesCode,ProbEstablish,ProbMortality,ANPPmax,BiomassMax
0,upland,oak,0.6,0,600,15000
0,upland,pine,0.3,0,500,12000
10,upland,oak,0.6,0,650,16000
`
	communitiesCSV = `MapCode,SpeciesCode,CohortAge,CohortBiomass
1,oak,30,3000
2,oak,10,500
2,pine,20,1200
`
	// (1,1) is water.
	ecoregionsMap = "1, 1\n1, 0\n"
	communityMap  = "# initial communities\n1,2\n2,0\n"

	configYAML = `succession:
  timestep: 10
  spinup_cohorts: true
ecoregions:
  - {name: water, map_code: 0, active: false}
  - name: upland
    map_code: 1
    active: true
    aet: 600
    min_relative_biomass: [0.2, 0.4, 0.5, 0.7, 0.9]
output:
  dir: ""
  anpp_maps: true
run:
  duration: 20
  seed: 3
  workers: 2
`
)

// writeInputs writes a complete input set into a temp dir and loads its
// config. Entries in override replace the named files.
func writeInputs(t *testing.T, override map[string]string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"species.csv":                 speciesCSV,
		"species_ecoregion.csv":       speciesEcoCSV,
		"initial_communities.csv":     communitiesCSV,
		"ecoregions_map.csv":          ecoregionsMap,
		"initial_communities_map.csv": communityMap,
		"succession.yaml":             configYAML,
	}
	for name, data := range override {
		files[name] = data
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
	}
	cfg, err := config.Load(filepath.Join(dir, "succession.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestSimulationRun(t *testing.T) {
	cfg := writeInputs(t, nil)
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Landscape().ActiveCount(); got != 3 {
		t.Fatalf("ActiveCount = %d, want 3", got)
	}

	outDir := filepath.Join(t.TempDir(), "out")
	if err := s.OpenOutput(outDir); err != nil {
		t.Fatal(err)
	}
	var years []int
	if err := s.Run(context.Background(), cfg.Run.Duration, func(year int) { years = append(years, year) }); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	if fmt.Sprint(years) != "[10 20]" {
		t.Errorf("progress years = %v, want [10 20]", years)
	}
	if s.Time() != 20 {
		t.Errorf("Time = %d, want 20", s.Time())
	}

	data, err := os.ReadFile(filepath.Join(outDir, "Biomass-succession-log.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("log has %d lines, want header + one row per step:\n%s", len(lines), data)
	}
	for i, prefix := range []string{"10,upland,3,", "20,upland,3,"} {
		if !strings.HasPrefix(lines[i+1], prefix) {
			t.Errorf("log row %d = %q, want prefix %q", i+1, lines[i+1], prefix)
		}
	}
	for _, name := range []string{"biomass-anpp-10.png", "biomass-anpp-20.png", "perf.csv", "config.yaml", "snapshot_20.json"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}

	for _, site := range s.Landscape().Sites() {
		if site.State.Cohorts.TotalBiomass() <= 0 {
			t.Errorf("site %d has no biomass after the run", site.Location.ID)
		}
		if site.State.Shade < 0 || site.State.Shade > params.NumShadeClasses {
			t.Errorf("site %d shade = %d", site.Location.ID, site.State.Shade)
		}
	}
}

func TestSimulationDeterministic(t *testing.T) {
	snapshot := func() []string {
		cfg := writeInputs(t, map[string]string{
			"species_ecoregion.csv": strings.ReplaceAll(speciesEcoCSV, ",0,", ",0.05,"),
		})
		s, err := New(cfg)
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Run(context.Background(), 40, nil); err != nil {
			t.Fatal(err)
		}
		var out []string
		for _, site := range s.Landscape().Sites() {
			st := site.State
			out = append(out, fmt.Sprintf("%d:%d:%.6f:%.6f", site.Location.ID,
				st.Cohorts.TotalBiomass(), st.Litter.Mass, st.WoodyDebris.Mass))
		}
		return out
	}

	a, b := snapshot(), snapshot()
	if strings.Join(a, " ") != strings.Join(b, " ") {
		t.Errorf("runs with the same seed differ:\n%v\n%v", a, b)
	}
}

func TestInitialBiomass(t *testing.T) {
	s, err := New(writeInputs(t, nil))
	if err != nil {
		t.Fatal(err)
	}
	rows := s.InitialBiomass()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2: %+v", len(rows), rows)
	}

	tests := []struct {
		community, sites, cohorts int
	}{
		{1, 1, 1},
		{2, 2, 2},
	}
	for i, tt := range tests {
		r := rows[i]
		if r.Community != tt.community || r.Ecoregion != "upland" {
			t.Errorf("row %d = %+v", i, r)
			continue
		}
		if r.Sites != tt.sites || r.Cohorts != tt.cohorts {
			t.Errorf("community %d: sites %d cohorts %d, want %d and %d",
				r.Community, r.Sites, r.Cohorts, tt.sites, tt.cohorts)
		}
		if r.Biomass <= 0 {
			t.Errorf("community %d: biomass %d", r.Community, r.Biomass)
		}
	}
}

func TestRecordedInitialBiomass(t *testing.T) {
	cfg := writeInputs(t, nil)
	cfg.Succession.SpinupCohorts = false
	s, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range s.InitialBiomass() {
		want := map[int]int{1: 3000, 2: 1700}[r.Community]
		if r.Biomass != want {
			t.Errorf("community %d biomass = %d, want %d", r.Community, r.Biomass, want)
		}
	}
}

func TestNewRejectsBadMaps(t *testing.T) {
	tests := []struct {
		name     string
		override map[string]string
		want     string
	}{
		{"unknown ecoregion", map[string]string{"ecoregions_map.csv": "1,7\n1,0\n"}, "unknown map code 7"},
		{"unknown community", map[string]string{"initial_communities_map.csv": "1,2\n5,0\n"}, "unknown map code 5"},
		{"size mismatch", map[string]string{"initial_communities_map.csv": "1,2,2\n2,0,0\n"}, "2x2"},
		{"missing map", map[string]string{"succession.yaml": configYAML + "inputs:\n  ecoregions_map: nope.csv\n"}, "nope.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(writeInputs(t, tt.override))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("New error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	s, err := New(writeInputs(t, nil))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx, 20, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
	if s.Time() != 0 {
		t.Errorf("Time = %d after cancelled run, want 0", s.Time())
	}
}

func TestIsFatal(t *testing.T) {
	wrapped := fmt.Errorf("year 10, site 3: %w", systems.ErrMortalityExceedsBiomass)
	if !IsFatal(wrapped) {
		t.Error("wrapped mortality error should be fatal")
	}
	if !IsFatal(params.ErrUnknownPrescription) {
		t.Error("unknown prescription should be fatal")
	}
	if IsFatal(errors.New("disk full")) {
		t.Error("unrelated error reported fatal")
	}
}

func TestReadGrid(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(data), 0644); err != nil {
			t.Fatal(err)
		}
		return p
	}

	g, err := ReadGrid(write("ok.csv", "# header comment\n1, 2, 3\n4,5,6\n"))
	if err != nil {
		t.Fatal(err)
	}
	if g.Rows != 2 || g.Cols != 3 || g.At(1, 2) != 6 || g.At(0, 1) != 2 {
		t.Errorf("grid = %+v", g)
	}

	for name, data := range map[string]string{
		"ragged.csv": "1,2\n3\n",
		"text.csv":   "1,x\n",
		"empty.csv":  "# nothing\n",
	} {
		if _, err := ReadGrid(write(name, data)); err == nil {
			t.Errorf("ReadGrid(%s) succeeded", name)
		}
	}
}
