// Package landscape holds the raster of sites. Active sites are ECS
// entities carrying a Location and a SiteState; inactive cells are not
// stored.
package landscape

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/params"
)

// Site is an active site's location with a pointer to its state in the
// world's storage. The pointer stays valid until sites are added or
// removed.
type Site struct {
	Location components.Location
	State    *components.SiteState
}

// Landscape is a rows x cols raster of sites.
type Landscape struct {
	rows, cols int

	world    *ecs.World
	mapper   *ecs.Map2[components.Location, components.SiteState]
	filter   *ecs.Filter2[components.Location, components.SiteState]
	stateMap *ecs.Map1[components.SiteState]

	// entities is indexed by cell id; only cells with active set hold an
	// entity.
	entities []ecs.Entity
	active   []bool
	count    int
}

// New returns an empty landscape.
func New(rows, cols int) *Landscape {
	world := ecs.NewWorld()
	return &Landscape{
		rows:     rows,
		cols:     cols,
		world:    world,
		mapper:   ecs.NewMap2[components.Location, components.SiteState](world),
		filter:   ecs.NewFilter2[components.Location, components.SiteState](world),
		stateMap: ecs.NewMap1[components.SiteState](world),
		entities: make([]ecs.Entity, rows*cols),
		active:   make([]bool, rows*cols),
	}
}

// Rows returns the raster height.
func (l *Landscape) Rows() int { return l.rows }

// Cols returns the raster width.
func (l *Landscape) Cols() int { return l.cols }

// Cells returns the number of raster cells, active or not.
func (l *Landscape) Cells() int { return l.rows * l.cols }

// ActiveCount returns the number of active sites.
func (l *Landscape) ActiveCount() int { return l.count }

// ID returns the row-major cell id of (row, col).
func (l *Landscape) ID(row, col int) int { return row*l.cols + col }

// AddSite makes the cell at (row, col) an active site with the given state.
func (l *Landscape) AddSite(row, col int, state components.SiteState) (components.Location, error) {
	if row < 0 || row >= l.rows || col < 0 || col >= l.cols {
		return components.Location{}, fmt.Errorf("site (%d, %d) outside %dx%d landscape", row, col, l.rows, l.cols)
	}
	id := l.ID(row, col)
	if l.active[id] {
		return components.Location{}, fmt.Errorf("site (%d, %d) added twice", row, col)
	}
	loc := components.Location{ID: id, Row: row, Col: col}
	l.entities[id] = l.mapper.NewEntity(&loc, &state)
	l.active[id] = true
	l.count++
	return loc, nil
}

// Active reports whether the cell with the given id is an active site.
func (l *Landscape) Active(id int) bool {
	return id >= 0 && id < len(l.active) && l.active[id]
}

// Site returns the state of the active site with the given id.
func (l *Landscape) Site(id int) (*components.SiteState, bool) {
	if !l.Active(id) {
		return nil, false
	}
	return l.stateMap.Get(l.entities[id]), true
}

// Sites returns every active site in cell id order.
func (l *Landscape) Sites() []Site {
	out := make([]Site, 0, l.count)
	query := l.filter.Query()
	for query.Next() {
		loc, state := query.Get()
		out = append(out, Site{Location: *loc, State: state})
	}
	slices.SortFunc(out, func(a, b Site) int { return cmp.Compare(a.Location.ID, b.Location.ID) })
	return out
}

// ActiveSiteCount returns the number of active sites in each ecoregion,
// indexed by ecoregion index.
func (l *Landscape) ActiveSiteCount(ecoregions []*params.Ecoregion) []int {
	counts := make([]int, len(ecoregions))
	query := l.filter.Query()
	for query.Next() {
		_, state := query.Get()
		if i := state.Ecoregion.Index; i >= 0 && i < len(counts) {
			counts[i]++
		}
	}
	return counts
}
