// Package cohort holds the live cohorts of a site, grouped by species.
package cohort

import (
	"sort"

	"github.com/pthm-cable/succession/params"
)

// Extra is a side table of named values other components attach to a
// cohort. The growth engine never reads it.
type Extra map[string]float64

// Cohort is one age class of one species at one site.
type Cohort struct {
	Species *params.Species
	Age     int
	Biomass int // g m-2
	ANPP    int // this year's aboveground net primary production
	Extra   Extra
}

// Clone returns a deep copy.
func (c *Cohort) Clone() *Cohort {
	out := *c
	if c.Extra != nil {
		out.Extra = make(Extra, len(c.Extra))
		for k, v := range c.Extra {
			out.Extra[k] = v
		}
	}
	return &out
}

// SpeciesCohorts are the cohorts of one species, oldest first.
type SpeciesCohorts struct {
	Species *params.Species
	Cohorts []*Cohort
}

// SiteCohorts are all cohorts at a site. Species keep the order in which
// they first appeared.
type SiteCohorts struct {
	groups []*SpeciesCohorts
}

// New returns an empty set.
func New() *SiteCohorts {
	return &SiteCohorts{}
}

// Add inserts a cohort, or merges its biomass into an existing cohort of
// the same species and age, and returns the stored cohort.
func (s *SiteCohorts) Add(sp *params.Species, age, biomass int) *Cohort {
	g := s.group(sp)
	if g == nil {
		g = &SpeciesCohorts{Species: sp}
		s.groups = append(s.groups, g)
	}
	i := sort.Search(len(g.Cohorts), func(i int) bool { return g.Cohorts[i].Age <= age })
	if i < len(g.Cohorts) && g.Cohorts[i].Age == age {
		g.Cohorts[i].Biomass += biomass
		return g.Cohorts[i]
	}
	c := &Cohort{Species: sp, Age: age, Biomass: biomass}
	g.Cohorts = append(g.Cohorts, nil)
	copy(g.Cohorts[i+1:], g.Cohorts[i:])
	g.Cohorts[i] = c
	return c
}

func (s *SiteCohorts) group(sp *params.Species) *SpeciesCohorts {
	for _, g := range s.groups {
		if g.Species == sp {
			return g
		}
	}
	return nil
}

// Species returns the per-species groups in order.
func (s *SiteCohorts) Species() []*SpeciesCohorts {
	return s.groups
}

// Of returns the cohorts of one species, oldest first.
func (s *SiteCohorts) Of(sp *params.Species) []*Cohort {
	if g := s.group(sp); g != nil {
		return g.Cohorts
	}
	return nil
}

// Each calls fn for every cohort: species in order, oldest first within a
// species.
func (s *SiteCohorts) Each(fn func(*Cohort)) {
	for _, g := range s.groups {
		for _, c := range g.Cohorts {
			fn(c)
		}
	}
}

// Len returns the number of cohorts.
func (s *SiteCohorts) Len() int {
	n := 0
	for _, g := range s.groups {
		n += len(g.Cohorts)
	}
	return n
}

// TotalBiomass sums the biomass of every cohort.
func (s *SiteCohorts) TotalBiomass() int {
	return s.BiomassWhere(func(*Cohort) bool { return true })
}

// BiomassWhere sums the biomass of the cohorts matching keep.
func (s *SiteCohorts) BiomassWhere(keep func(*Cohort) bool) int {
	total := 0
	s.Each(func(c *Cohort) {
		if keep(c) {
			total += c.Biomass
		}
	})
	return total
}

// IsMaturePresent reports whether any cohort of the species has reached
// sexual maturity.
func (s *SiteCohorts) IsMaturePresent(sp *params.Species) bool {
	for _, c := range s.Of(sp) {
		if c.Age >= sp.Maturity {
			return true
		}
	}
	return false
}

// RemoveWhere removes the cohorts matching drop and returns them. Species
// left without cohorts are removed.
func (s *SiteCohorts) RemoveWhere(drop func(*Cohort) bool) []*Cohort {
	var removed []*Cohort
	groups := s.groups[:0]
	for _, g := range s.groups {
		kept := g.Cohorts[:0]
		for _, c := range g.Cohorts {
			if drop(c) {
				removed = append(removed, c)
				continue
			}
			kept = append(kept, c)
		}
		g.Cohorts = kept
		if len(kept) > 0 {
			groups = append(groups, g)
		}
	}
	s.groups = groups
	return removed
}

// MergeSameAge combines cohorts of one species that have reached the same
// age, summing their biomass and ANPP.
func (s *SiteCohorts) MergeSameAge() {
	for _, g := range s.groups {
		merged := g.Cohorts[:0]
		for _, c := range g.Cohorts {
			if n := len(merged); n > 0 && merged[n-1].Age == c.Age {
				merged[n-1].Biomass += c.Biomass
				merged[n-1].ANPP += c.ANPP
				continue
			}
			merged = append(merged, c)
		}
		g.Cohorts = merged
	}
}

// Clone returns a deep copy.
func (s *SiteCohorts) Clone() *SiteCohorts {
	out := &SiteCohorts{groups: make([]*SpeciesCohorts, len(s.groups))}
	for i, g := range s.groups {
		ng := &SpeciesCohorts{Species: g.Species, Cohorts: make([]*Cohort, len(g.Cohorts))}
		for j, c := range g.Cohorts {
			ng.Cohorts[j] = c.Clone()
		}
		out.groups[i] = ng
	}
	return out
}
