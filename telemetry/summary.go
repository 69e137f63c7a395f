package telemetry

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/succession/landscape"
	"github.com/pthm-cable/succession/params"
)

// SummaryRow is one line of the succession log: averages over the active
// sites of one ecoregion at the end of a timestep.
type SummaryRow struct {
	Time           int     `csv:"Time"`
	EcoName        string  `csv:"EcoName"`
	ActiveCount    int     `csv:"ActiveCount"`
	AvgLiveB       float64 `csv:"AvgLiveB"`
	AvgAGNPP       float64 `csv:"AvgAG_NPP"` // truncated to a whole number
	AvgLitterB     float64 `csv:"AvgLitterB"`
	AvgWoodLitterB float64 `csv:"AvgWoodLitterB"`
	AvgDefoliation float64 `csv:"AvgDefoliation"`
}

// ecoSamples collects per-site values for one ecoregion.
type ecoSamples struct {
	live, agnpp, litter, woody, defol []float64
}

// Summarize averages site state by ecoregion. Ecoregions without active
// sites get no row.
func Summarize(time int, ecoregions []*params.Ecoregion, sites []landscape.Site) []SummaryRow {
	samples := make([]ecoSamples, len(ecoregions))
	for _, s := range sites {
		i := s.State.Ecoregion.Index
		if i < 0 || i >= len(samples) {
			continue
		}
		e := &samples[i]
		e.live = append(e.live, float64(s.State.Cohorts.TotalBiomass()))
		e.agnpp = append(e.agnpp, s.State.AGNPP)
		e.litter = append(e.litter, s.State.Litter.Mass)
		e.woody = append(e.woody, s.State.WoodyDebris.Mass)
		e.defol = append(e.defol, s.State.Defoliation)
	}

	var rows []SummaryRow
	for i, eco := range ecoregions {
		e := samples[i]
		n := len(e.live)
		if n == 0 {
			continue
		}
		rows = append(rows, SummaryRow{
			Time:           time,
			EcoName:        eco.Name,
			ActiveCount:    n,
			AvgLiveB:       stat.Mean(e.live, nil),
			AvgAGNPP:       float64(int(floats.Sum(e.agnpp) / float64(n))),
			AvgLitterB:     stat.Mean(e.litter, nil),
			AvgWoodLitterB: stat.Mean(e.woody, nil),
			AvgDefoliation: stat.Mean(e.defol, nil),
		})
	}
	return rows
}

// LogValue implements slog.LogValuer for structured logging.
func (r SummaryRow) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("time", r.Time),
		slog.String("ecoregion", r.EcoName),
		slog.Int("active", r.ActiveCount),
		slog.Float64("live_b", r.AvgLiveB),
		slog.Float64("ag_npp", r.AvgAGNPP),
		slog.Float64("litter_b", r.AvgLitterB),
		slog.Float64("wood_litter_b", r.AvgWoodLitterB),
		slog.Float64("defoliation", r.AvgDefoliation),
	)
}
