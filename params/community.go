package params

import (
	"fmt"
	"sort"
	"strings"
)

// CommunityRecord is one row of the initial communities table.
// CohortBiomass is only read when spin-up is disabled.
type CommunityRecord struct {
	MapCode       int    `csv:"MapCode"`
	SpeciesCode   string `csv:"SpeciesCode"`
	CohortAge     int    `csv:"CohortAge"`
	CohortBiomass int    `csv:"CohortBiomass"`
}

// CommunityCohort is one age cohort of an initial community.
type CommunityCohort struct {
	Species *Species
	Age     int
	Biomass int
}

// Community is an initial community template shared by every site whose
// initial communities map code equals MapCode.
type Community struct {
	MapCode int
	Cohorts []CommunityCohort
}

// BuildCommunities groups community records by map code and resolves
// species names.
func BuildCommunities(records []CommunityRecord, species []*Species) (map[int]*Community, error) {
	byName := make(map[string]*Species, len(species))
	for _, s := range species {
		byName[s.Name] = s
	}
	out := make(map[int]*Community)
	for i, r := range records {
		s, ok := byName[strings.TrimSpace(r.SpeciesCode)]
		if !ok {
			return nil, fmt.Errorf("initial community row %d: unknown species %q", i+1, r.SpeciesCode)
		}
		if r.CohortAge < 1 || r.CohortAge > s.Longevity {
			return nil, fmt.Errorf("initial community row %d: age %d not in [1, %d] for %s", i+1, r.CohortAge, s.Longevity, s.Name)
		}
		if r.CohortBiomass < 0 {
			return nil, fmt.Errorf("initial community row %d: biomass %d < 0", i+1, r.CohortBiomass)
		}
		c, ok := out[r.MapCode]
		if !ok {
			c = &Community{MapCode: r.MapCode}
			out[r.MapCode] = c
		}
		c.Cohorts = append(c.Cohorts, CommunityCohort{Species: s, Age: r.CohortAge, Biomass: r.CohortBiomass})
	}
	return out, nil
}

// SortedByAge returns the community's cohorts oldest first. Cohorts of
// equal age keep their input order.
func (c *Community) SortedByAge() []CommunityCohort {
	out := make([]CommunityCohort, len(c.Cohorts))
	copy(out, c.Cohorts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Age > out[j].Age })
	return out
}
