package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pthm-cable/succession/cohort"
	"github.com/pthm-cable/succession/landscape"
	"github.com/pthm-cable/succession/pool"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot is a write-only report of the succession state of every active
// site at one year. It is not read back by the engine.
type Snapshot struct {
	Version int    `json:"version"`
	Seed    uint64 `json:"seed"`
	Time    int    `json:"time"`

	Rows int `json:"rows"`
	Cols int `json:"cols"`

	Sites []SiteSnapshot `json:"sites"`
}

// SiteSnapshot holds one site's state.
type SiteSnapshot struct {
	ID        int    `json:"id"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
	Ecoregion string `json:"ecoregion"`
	Community int    `json:"community"`

	Litter      PoolJSON `json:"litter"`
	WoodyDebris PoolJSON `json:"woody_debris"`

	PreviousYearMortality int     `json:"previous_year_mortality"`
	AGNPP                 float64 `json:"ag_npp"`
	Shade                 int     `json:"shade"`

	Cohorts []CohortJSON `json:"cohorts"`
}

// PoolJSON is the JSON-serializable form of a dead pool.
type PoolJSON struct {
	Mass        float64 `json:"mass"`
	DecayValue  float64 `json:"decay_value"`
	InitialMass float64 `json:"initial_mass"`
}

// CohortJSON is the JSON-serializable form of a cohort.
type CohortJSON struct {
	Species string `json:"species"`
	Age     int    `json:"age"`
	Biomass int    `json:"biomass"`
}

func poolJSON(p pool.Pool) PoolJSON {
	return PoolJSON{Mass: p.Mass, DecayValue: p.DecayValue, InitialMass: p.InitialMass}
}

// NewSnapshot captures the landscape at year time.
func NewSnapshot(l *landscape.Landscape, time int, seed uint64) *Snapshot {
	snap := &Snapshot{
		Version: SnapshotVersion,
		Seed:    seed,
		Time:    time,
		Rows:    l.Rows(),
		Cols:    l.Cols(),
	}
	for _, site := range l.Sites() {
		st := site.State
		ss := SiteSnapshot{
			ID:                    site.Location.ID,
			Row:                   site.Location.Row,
			Col:                   site.Location.Col,
			Ecoregion:             st.Ecoregion.Name,
			Community:             st.CommunityCode,
			Litter:                poolJSON(st.Litter),
			WoodyDebris:           poolJSON(st.WoodyDebris),
			PreviousYearMortality: st.PreviousYearMortality,
			AGNPP:                 st.AGNPP,
			Shade:                 st.Shade,
		}
		st.Cohorts.Each(func(c *cohort.Cohort) {
			ss.Cohorts = append(ss.Cohorts, CohortJSON{Species: c.Species.Name, Age: c.Age, Biomass: c.Biomass})
		})
		snap.Sites = append(snap.Sites, ss)
	}
	return snap
}

// TotalBiomass sums cohort biomass over every site.
func (s *Snapshot) TotalBiomass() int {
	total := 0
	for _, site := range s.Sites {
		for _, c := range site.Cohorts {
			total += c.Biomass
		}
	}
	return total
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Time))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}
