// Package sim drives a succession run over a landscape: it builds the
// parameter tables and sites from the configuration, initializes every
// site from its initial community and advances the landscape one
// succession timestep at a time.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/remeh/sizedwaitgroup"

	"github.com/pthm-cable/succession/components"
	"github.com/pthm-cable/succession/config"
	"github.com/pthm-cable/succession/landscape"
	"github.com/pthm-cable/succession/params"
	"github.com/pthm-cable/succession/systems"
	"github.com/pthm-cable/succession/telemetry"
)

// Simulation is one succession run.
type Simulation struct {
	cfg         *config.Config
	tables      *params.Tables
	engine      *systems.Engine
	land        *landscape.Landscape
	communities map[int]*params.Community

	out  *telemetry.OutputManager
	perf *telemetry.PerfCollector

	time    int
	workers int
}

// New builds a simulation from cfg and initializes every active site.
// opts attach disturbance and reproduction collaborators to the engine.
func New(cfg *config.Config, opts ...systems.Option) (*Simulation, error) {
	tables, communities, err := LoadTables(cfg)
	if err != nil {
		return nil, err
	}
	ecoMap, err := ReadGrid(cfg.Path(cfg.Inputs.EcoregionsMap))
	if err != nil {
		return nil, err
	}
	commMap, err := ReadGrid(cfg.Path(cfg.Inputs.InitialCommunitiesMap))
	if err != nil {
		return nil, err
	}
	return NewFromTables(cfg, tables, communities, ecoMap, commMap, opts...)
}

// NewFromTables builds a simulation from already loaded inputs.
func NewFromTables(cfg *config.Config, tables *params.Tables, communities map[int]*params.Community,
	ecoMap, commMap *Grid, opts ...systems.Option) (*Simulation, error) {
	if ecoMap.Rows != commMap.Rows || ecoMap.Cols != commMap.Cols {
		return nil, fmt.Errorf("ecoregions map is %dx%d but initial communities map is %dx%d",
			ecoMap.Rows, ecoMap.Cols, commMap.Rows, commMap.Cols)
	}

	opts = append([]systems.Option{systems.WithCalibrate(cfg.Succession.CalibrateMode)}, opts...)
	s := &Simulation{
		cfg:         cfg,
		tables:      tables,
		engine:      systems.NewEngine(tables, cfg.Succession.Timestep, opts...),
		land:        landscape.New(ecoMap.Rows, ecoMap.Cols),
		communities: communities,
		perf:        telemetry.NewPerfCollector(10),
		workers:     max(cfg.Derived.Workers, 1),
	}

	for row := 0; row < ecoMap.Rows; row++ {
		for col := 0; col < ecoMap.Cols; col++ {
			code := ecoMap.At(row, col)
			eco, ok := tables.EcoregionByMapCode(code)
			if !ok {
				return nil, fmt.Errorf("ecoregions map (%d, %d): unknown map code %d", row, col, code)
			}
			if !eco.Active {
				continue
			}
			id := s.land.ID(row, col)
			state := components.NewSiteState(eco, systems.NewUniform(cfg.Run.Seed, uint64(id)))
			state.CommunityCode = commMap.At(row, col)
			if _, ok := communities[state.CommunityCode]; !ok {
				return nil, fmt.Errorf("initial communities map (%d, %d): unknown map code %d", row, col, state.CommunityCode)
			}
			if _, err := s.land.AddSite(row, col, state); err != nil {
				return nil, err
			}
		}
	}

	counts := s.land.ActiveSiteCount(tables.Ecoregions)
	for i, eco := range tables.Ecoregions {
		if eco.Active {
			slog.Info("ecoregion", "name", eco.Name, "map_code", eco.MapCode, "active_sites", counts[i])
		}
	}

	if err := s.initialize(); err != nil {
		return nil, err
	}
	return s, nil
}

// initialize installs the initial communities and computes initial shade.
func (s *Simulation) initialize() error {
	spinUp := s.cfg.Succession.SpinupCohorts
	err := s.forEachSite(context.Background(), func(site landscape.Site) error {
		if err := s.engine.InitializeSite(site.State, s.communities[site.State.CommunityCode], spinUp); err != nil {
			return fmt.Errorf("site %d: %w", site.Location.ID, err)
		}
		shade, err := s.engine.ComputeShade(site.State, 0)
		if err != nil {
			return fmt.Errorf("site %d: %w", site.Location.ID, err)
		}
		site.State.Shade = shade
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("initialized sites", "sites", s.land.ActiveCount(), "spin_up", spinUp)
	return nil
}

// forEachSite runs fn on every active site on the worker pool and returns
// the first error. Sites are independent, so fn may only touch the site it
// is given.
func (s *Simulation) forEachSite(ctx context.Context, fn func(landscape.Site) error) error {
	var (
		mu       sync.Mutex
		firstErr error
	)
	swg := sizedwaitgroup.New(s.workers)
	for _, site := range s.land.Sites() {
		if err := swg.AddWithContext(ctx); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		go func(site landscape.Site) {
			defer swg.Done()
			if err := fn(site); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(site)
	}
	swg.Wait()
	return firstErr
}

// OpenOutput creates the output directory named by the config, or dir
// when it is not empty, and writes the config snapshot when enabled.
func (s *Simulation) OpenOutput(dir string) error {
	if dir == "" {
		dir = s.cfg.Output.Dir
	}
	out, err := telemetry.NewOutputManager(dir, s.cfg.Output.SummaryLog)
	if err != nil {
		return err
	}
	if s.cfg.Output.Snapshot {
		if err := out.WriteConfig(s.cfg); err != nil {
			out.Close()
			return err
		}
	}
	s.out = out
	if out != nil {
		slog.Info("writing output", "dir", out.Dir())
	}
	return nil
}

// Output returns the attached output manager, nil when output is off.
func (s *Simulation) Output() *telemetry.OutputManager { return s.out }

// Close flushes and closes the output files.
func (s *Simulation) Close() error {
	err := s.out.Close()
	s.out = nil
	return err
}

// Time returns the current simulation year.
func (s *Simulation) Time() int { return s.time }

// Engine returns the growth engine.
func (s *Simulation) Engine() *systems.Engine { return s.engine }

// Landscape returns the site raster.
func (s *Simulation) Landscape() *landscape.Landscape { return s.land }

// Tables returns the parameter tables.
func (s *Simulation) Tables() *params.Tables { return s.tables }

// Step advances the landscape one succession timestep: every site grows
// for a timestep of years, shade is recomputed, the summary log and maps
// are written and the establishment modifiers are reset.
func (s *Simulation) Step(ctx context.Context) error {
	t := s.engine.Timestep()
	s.time += t

	s.perf.StartStep(s.land.ActiveCount())

	s.perf.StartPhase(telemetry.PhaseGrow)
	err := s.forEachSite(ctx, func(site landscape.Site) error {
		if err := s.engine.GrowCohorts(site.State, t, s.time); err != nil {
			return fmt.Errorf("year %d, site %d: %w", s.time, site.Location.ID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.perf.StartPhase(telemetry.PhaseShade)
	for _, site := range s.land.Sites() {
		shade, err := s.engine.ComputeShade(site.State, s.time)
		if err != nil {
			return fmt.Errorf("year %d, site %d: %w", s.time, site.Location.ID, err)
		}
		site.State.Shade = shade
	}

	s.perf.StartPhase(telemetry.PhaseSummary)
	rows := telemetry.Summarize(s.time, s.tables.Ecoregions, s.land.Sites())
	for _, r := range rows {
		slog.Info("summary", "row", r)
	}
	if err := s.out.WriteSummary(rows); err != nil {
		return err
	}

	if s.cfg.Output.ANPPMaps {
		s.perf.StartPhase(telemetry.PhaseMaps)
		if err := s.out.WriteANPPMap(telemetry.NewANPPGrid(s.land), s.time, s.cfg.Output.Heatmap); err != nil {
			return err
		}
	}

	s.perf.StartPhase(telemetry.PhaseModifiers)
	s.tables.Dynamic.ResetEstablishModifiers()

	s.perf.EndStep()
	stats := s.perf.Stats()
	if s.cfg.Succession.CalibrateMode {
		stats.LogStats()
	}
	return s.out.WritePerf(stats, s.time)
}

// Run steps until duration years have been simulated, calling progress
// after each step when it is not nil.
func (s *Simulation) Run(ctx context.Context, duration int, progress func(year int)) error {
	for s.time+s.engine.Timestep() <= duration {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Step(ctx); err != nil {
			return err
		}
		if progress != nil {
			progress(s.time)
		}
	}
	if s.cfg.Output.Snapshot {
		path, err := s.out.WriteSnapshot(telemetry.NewSnapshot(s.land, s.time, s.cfg.Run.Seed))
		if err != nil {
			return err
		}
		if path != "" {
			slog.Info("saved snapshot", "path", path)
		}
	}
	return nil
}

// CommunityBiomass summarizes the initialized state of one initial
// community in one ecoregion.
type CommunityBiomass struct {
	Community   int     `csv:"Community"`
	Ecoregion   string  `csv:"Ecoregion"`
	Sites       int     `csv:"Sites"`
	Cohorts     int     `csv:"Cohorts"`
	Biomass     int     `csv:"Biomass"`
	Litter      float64 `csv:"Litter"`
	WoodyDebris float64 `csv:"WoodyDebris"`
}

// InitialBiomass reports the initialized biomass of every community and
// ecoregion pair on the landscape, sorted by community then ecoregion.
// Sites sharing a pair start identical, so one site stands for all.
func (s *Simulation) InitialBiomass() []CommunityBiomass {
	type key struct {
		community int
		eco       *params.Ecoregion
	}
	byKey := make(map[key]*CommunityBiomass)
	for _, site := range s.land.Sites() {
		st := site.State
		k := key{st.CommunityCode, st.Ecoregion}
		if r, ok := byKey[k]; ok {
			r.Sites++
			continue
		}
		byKey[k] = &CommunityBiomass{
			Community:   st.CommunityCode,
			Ecoregion:   st.Ecoregion.Name,
			Sites:       1,
			Cohorts:     st.Cohorts.Len(),
			Biomass:     st.Cohorts.TotalBiomass(),
			Litter:      st.Litter.Mass,
			WoodyDebris: st.WoodyDebris.Mass,
		}
	}

	out := make([]CommunityBiomass, 0, len(byKey))
	for _, r := range byKey {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Community != out[j].Community {
			return out[i].Community < out[j].Community
		}
		return out[i].Ecoregion < out[j].Ecoregion
	})
	return out
}

// IsFatal reports whether err is one of the consistency errors that must
// stop a run.
func IsFatal(err error) bool {
	for _, target := range []error{
		systems.ErrMortalityExceedsBiomass,
		systems.ErrCompetitionIndex,
		systems.ErrMinRelativeBiomass,
		systems.ErrInactiveEcoregion,
		params.ErrUnknownPrescription,
		params.ErrUnknownSeverity,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
