package params

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// SpeciesEcoregionRecord is one row of the species x ecoregion input table.
// Rows for a year replace the values of every earlier year.
type SpeciesEcoregionRecord struct {
	Year          int     `csv:"Year"`
	EcoregionName string  `csv:"EcoregionName"`
	SpeciesCode   string  `csv:"SpeciesCode"`
	ProbEstablish float64 `csv:"ProbEstablish"`
	ProbMortality float64 `csv:"ProbMortality"`
	ANPPmax       float64 `csv:"ANPPmax"`
	BiomassMax    float64 `csv:"BiomassMax"`
}

// SpeciesEcoregionValues are the values in effect for one species in one
// ecoregion.
type SpeciesEcoregionValues struct {
	ProbEstablish float64
	ProbMortality float64
	MaxANPP       float64
	MaxBiomass    float64
}

// YearData is an immutable snapshot of the species x ecoregion table for
// the years from Year until the next data year.
type YearData struct {
	Year       int
	nEco       int
	values     []SpeciesEcoregionValues
	maxBiomass []float64
}

// Get returns the values for a species in an ecoregion.
func (y *YearData) Get(s *Species, e *Ecoregion) SpeciesEcoregionValues {
	return y.values[s.Index*y.nEco+e.Index]
}

// EcoregionMaxBiomass returns B_MAX for the ecoregion: the largest maximum
// biomass of any species in it.
func (y *YearData) EcoregionMaxBiomass(e *Ecoregion) float64 {
	return y.maxBiomass[e.Index]
}

func (y *YearData) updateMaxBiomass(nSpecies int) {
	for ei := range y.maxBiomass {
		best := 0.0
		for si := 0; si < nSpecies; si++ {
			if b := y.values[si*y.nEco+ei].MaxBiomass; b > best {
				best = b
			}
		}
		y.maxBiomass[ei] = best
	}
}

// DynamicTable serves the species x ecoregion values in effect for any
// simulated year. Snapshots are built once and are safe for concurrent
// reads; the establishment modifier is the only mutable part.
type DynamicTable struct {
	species    []*Species
	ecoregions []*Ecoregion
	years      []*YearData
	empty      *YearData

	mu       sync.RWMutex
	modifier []float64
}

// NewDynamicTable builds per-year snapshots from the input records.
// Records naming unknown species or ecoregions are rejected. A species with
// no row for an active ecoregion in a data year gets zero values, with a
// warning.
func NewDynamicTable(species []*Species, ecoregions []*Ecoregion, records []SpeciesEcoregionRecord) (*DynamicTable, error) {
	t := &DynamicTable{
		species:    species,
		ecoregions: ecoregions,
		modifier:   make([]float64, len(species)*len(ecoregions)),
	}
	t.empty = t.newYear(0)
	for i := range t.modifier {
		t.modifier[i] = 1
	}

	spByName := make(map[string]*Species, len(species))
	for _, s := range species {
		spByName[s.Name] = s
	}
	ecoByName := make(map[string]*Ecoregion, len(ecoregions))
	for _, e := range ecoregions {
		ecoByName[e.Name] = e
	}

	byYear := make(map[int]*YearData)
	seen := make(map[int][]bool)
	for i, r := range records {
		s, ok := spByName[strings.TrimSpace(r.SpeciesCode)]
		if !ok {
			return nil, fmt.Errorf("species-ecoregion row %d: unknown species %q", i+1, r.SpeciesCode)
		}
		e, ok := ecoByName[strings.TrimSpace(r.EcoregionName)]
		if !ok {
			return nil, fmt.Errorf("species-ecoregion row %d: unknown ecoregion %q", i+1, r.EcoregionName)
		}
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("species-ecoregion row %d: %w", i+1, err)
		}
		y, ok := byYear[r.Year]
		if !ok {
			y = t.newYear(r.Year)
			byYear[r.Year] = y
			seen[r.Year] = make([]bool, len(y.values))
		}
		idx := s.Index*y.nEco + e.Index
		y.values[idx] = SpeciesEcoregionValues{
			ProbEstablish: r.ProbEstablish,
			ProbMortality: r.ProbMortality,
			MaxANPP:       r.ANPPmax,
			MaxBiomass:    r.BiomassMax,
		}
		seen[r.Year][idx] = true
	}

	for year, y := range byYear {
		for _, s := range species {
			for _, e := range ecoregions {
				if !e.Active || seen[year][s.Index*y.nEco+e.Index] {
					continue
				}
				slog.Warn("species-ecoregion data missing, using zeros",
					"year", year, "species", s.Name, "ecoregion", e.Name)
			}
		}
		y.updateMaxBiomass(len(species))
		t.years = append(t.years, y)
	}
	sort.Slice(t.years, func(i, j int) bool { return t.years[i].Year < t.years[j].Year })

	return t, nil
}

func (t *DynamicTable) newYear(year int) *YearData {
	return &YearData{
		Year:       year,
		nEco:       len(t.ecoregions),
		values:     make([]SpeciesEcoregionValues, len(t.species)*len(t.ecoregions)),
		maxBiomass: make([]float64, len(t.ecoregions)),
	}
}

// At returns the snapshot in effect for a simulated year: the latest data
// year not after it. Before the first data year every value is zero.
func (t *DynamicTable) At(year int) *YearData {
	i := sort.Search(len(t.years), func(i int) bool { return t.years[i].Year > year })
	if i == 0 {
		return t.empty
	}
	return t.years[i-1]
}

// Years returns the data years in ascending order.
func (t *DynamicTable) Years() []int {
	out := make([]int, len(t.years))
	for i, y := range t.years {
		out[i] = y.Year
	}
	return out
}

// EstablishModifier returns the current establishment modifier.
func (t *DynamicTable) EstablishModifier(s *Species, e *Ecoregion) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.modifier[s.Index*len(t.ecoregions)+e.Index]
}

// SetEstablishModifier sets the establishment modifier until the next reset.
func (t *DynamicTable) SetEstablishModifier(s *Species, e *Ecoregion, v float64) {
	t.mu.Lock()
	t.modifier[s.Index*len(t.ecoregions)+e.Index] = v
	t.mu.Unlock()
}

// ResetEstablishModifiers sets every modifier back to 1.
func (t *DynamicTable) ResetEstablishModifiers() {
	t.mu.Lock()
	for i := range t.modifier {
		t.modifier[i] = 1
	}
	t.mu.Unlock()
}

func (r SpeciesEcoregionRecord) validate() error {
	switch {
	case r.ProbEstablish < 0 || r.ProbEstablish > 1:
		return fmt.Errorf("ProbEstablish %v not in [0, 1]", r.ProbEstablish)
	case r.ProbMortality < 0 || r.ProbMortality > 1:
		return fmt.Errorf("ProbMortality %v not in [0, 1]", r.ProbMortality)
	case r.ANPPmax < 0:
		return fmt.Errorf("ANPPmax %v < 0", r.ANPPmax)
	case r.BiomassMax < 0:
		return fmt.Errorf("BiomassMax %v < 0", r.BiomassMax)
	}
	return nil
}
