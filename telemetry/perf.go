package telemetry

import (
	"log/slog"
	"time"
)

// Phase names for a succession timestep.
const (
	PhaseGrow      = "grow"
	PhaseShade     = "shade"
	PhaseSummary   = "summary"
	PhaseMaps      = "maps"
	PhaseModifiers = "modifiers"
)

// phases lists the phases in the order a timestep runs them.
var phases = []string{PhaseGrow, PhaseShade, PhaseSummary, PhaseMaps, PhaseModifiers}

// PerfSample holds timing data for a single timestep.
type PerfSample struct {
	StepDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks timestep timings over a rolling window.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	stepStart     time.Time
	phaseStart    time.Time
	lastPhase     string
	sites         int
}

// NewPerfCollector creates a new performance collector averaging over the
// last windowSize timesteps.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 10
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartStep begins timing a new timestep over the given number of sites.
func (p *PerfCollector) StartStep(sites int) {
	p.stepStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
	p.sites = sites
}

// StartPhase begins timing a specific phase, ending the previous one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndStep finishes timing the current timestep and records the sample.
func (p *PerfCollector) EndStep() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		StepDuration: now.Sub(p.stepStart),
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	AvgStepDuration time.Duration
	MinStepDuration time.Duration
	MaxStepDuration time.Duration

	// Phase breakdown: average durations and share of step time.
	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64

	// SitesPerSecond is the growth throughput of the last step.
	SitesPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minStep, maxStep time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.StepDuration
		if i == 0 || s.StepDuration < minStep {
			minStep = s.StepDuration
		}
		if s.StepDuration > maxStep {
			maxStep = s.StepDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}
	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var sitesPerSec float64
	if grow := p.currentPhases[PhaseGrow]; grow > 0 {
		sitesPerSec = float64(p.sites) / grow.Seconds()
	}

	return PerfStats{
		AvgStepDuration: avg,
		MinStepDuration: minStep,
		MaxStepDuration: maxStep,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		SitesPerSecond:  sitesPerSec,
	}
}

// LogStats logs performance statistics.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_step_ms", s.AvgStepDuration.Milliseconds(),
		"min_step_ms", s.MinStepDuration.Milliseconds(),
		"max_step_ms", s.MaxStepDuration.Milliseconds(),
		"sites_per_sec", int(s.SitesPerSecond),
	}
	for _, phase := range phases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats.
type PerfStatsCSV struct {
	Time         int     `csv:"time"`
	AvgStepMS    int64   `csv:"avg_step_ms"`
	MinStepMS    int64   `csv:"min_step_ms"`
	MaxStepMS    int64   `csv:"max_step_ms"`
	SitesPerSec  float64 `csv:"sites_per_sec"`
	GrowPct      float64 `csv:"grow_pct"`
	ShadePct     float64 `csv:"shade_pct"`
	SummaryPct   float64 `csv:"summary_pct"`
	MapsPct      float64 `csv:"maps_pct"`
	ModifiersPct float64 `csv:"modifiers_pct"`
}

// ToCSV converts PerfStats to a flat CSV-friendly struct.
func (s PerfStats) ToCSV(year int) PerfStatsCSV {
	return PerfStatsCSV{
		Time:         year,
		AvgStepMS:    s.AvgStepDuration.Milliseconds(),
		MinStepMS:    s.MinStepDuration.Milliseconds(),
		MaxStepMS:    s.MaxStepDuration.Milliseconds(),
		SitesPerSec:  s.SitesPerSecond,
		GrowPct:      s.PhasePct[PhaseGrow],
		ShadePct:     s.PhasePct[PhaseShade],
		SummaryPct:   s.PhasePct[PhaseSummary],
		MapsPct:      s.PhasePct[PhaseMaps],
		ModifiersPct: s.PhasePct[PhaseModifiers],
	}
}
