package params

import "fmt"

// Tables bundles every parameter table the growth engine reads.
type Tables struct {
	Species    []*Species
	Ecoregions []*Ecoregion
	Dynamic    *DynamicTable
	Light      LightTable
	Fire       *FireTable
	Harvest    *HarvestTable
}

// NewTables validates species and ecoregions, assigns their indices and
// builds the dynamic table from records.
func NewTables(species []*Species, ecoregions []*Ecoregion, records []SpeciesEcoregionRecord) (*Tables, error) {
	names := make(map[string]bool, len(species))
	for i, s := range species {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if names[s.Name] {
			return nil, fmt.Errorf("species %s listed twice", s.Name)
		}
		names[s.Name] = true
		s.Index = i
	}
	codes := make(map[int]bool, len(ecoregions))
	for i, e := range ecoregions {
		if err := e.Validate(); err != nil {
			return nil, err
		}
		if codes[e.MapCode] {
			return nil, fmt.Errorf("ecoregion map code %d listed twice", e.MapCode)
		}
		codes[e.MapCode] = true
		e.Index = i
	}
	dyn, err := NewDynamicTable(species, ecoregions, records)
	if err != nil {
		return nil, err
	}
	return &Tables{Species: species, Ecoregions: ecoregions, Dynamic: dyn}, nil
}

// SpeciesByName returns the species with the given code.
func (t *Tables) SpeciesByName(name string) (*Species, bool) {
	for _, s := range t.Species {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// EcoregionByMapCode returns the ecoregion with the given map code.
func (t *Tables) EcoregionByMapCode(code int) (*Ecoregion, bool) {
	for _, e := range t.Ecoregions {
		if e.MapCode == code {
			return e, true
		}
	}
	return nil, false
}
