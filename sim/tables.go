package sim

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/succession/config"
	"github.com/pthm-cable/succession/params"
)

// LoadTables reads the parameter tables and initial communities named by
// cfg.
func LoadTables(cfg *config.Config) (*params.Tables, map[int]*params.Community, error) {
	species, err := params.LoadSpecies(cfg.Path(cfg.Inputs.Species))
	if err != nil {
		return nil, nil, err
	}
	records, err := params.LoadSpeciesEcoregion(cfg.Path(cfg.Inputs.SpeciesEcoregion))
	if err != nil {
		return nil, nil, err
	}
	ecoregions, err := buildEcoregions(cfg.Ecoregions)
	if err != nil {
		return nil, nil, err
	}

	tables, err := params.NewTables(species, ecoregions, records)
	if err != nil {
		return nil, nil, err
	}
	if err := buildReductions(cfg, tables); err != nil {
		return nil, nil, err
	}

	rows, err := params.LoadCommunities(cfg.Path(cfg.Inputs.InitialCommunities))
	if err != nil {
		return nil, nil, err
	}
	communities, err := params.BuildCommunities(rows, species)
	if err != nil {
		return nil, nil, err
	}
	return tables, communities, nil
}

func buildEcoregions(in []config.EcoregionConfig) ([]*params.Ecoregion, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("no ecoregions configured")
	}
	out := make([]*params.Ecoregion, len(in))
	for i, c := range in {
		if len(c.MinRelativeBiomass) > params.NumShadeClasses {
			return nil, fmt.Errorf("ecoregion %s: %d shade thresholds, want at most %d",
				c.Name, len(c.MinRelativeBiomass), params.NumShadeClasses)
		}
		e := &params.Ecoregion{
			Name:               c.Name,
			MapCode:            c.MapCode,
			Active:             c.Active,
			AET:                c.AET,
			MinRelativeBiomass: make(map[int]float64, len(c.MinRelativeBiomass)),
		}
		for j, v := range c.MinRelativeBiomass {
			e.MinRelativeBiomass[j+1] = v
		}
		if e.Active && e.AET == 0 {
			slog.Warn("ecoregion has zero AET, litter will not decay", "ecoregion", e.Name)
		}
		out[i] = e
	}
	return out, nil
}

func buildReductions(cfg *config.Config, tables *params.Tables) error {
	light := make([]params.SufficientLight, 0, len(cfg.SufficientLight))
	for _, c := range cfg.SufficientLight {
		var probs [params.NumShadeClasses + 1]float64
		if len(c.Probabilities) != len(probs) {
			return fmt.Errorf("sufficient light for shade tolerance %d: %d probabilities, want %d",
				c.ShadeTolerance, len(c.Probabilities), len(probs))
		}
		copy(probs[:], c.Probabilities)
		row, err := params.NewSufficientLight(c.ShadeTolerance, probs)
		if err != nil {
			return err
		}
		light = append(light, row)
	}
	var err error
	if tables.Light, err = params.NewLightTable(light); err != nil {
		return err
	}

	fire := make([]params.FireReductions, 0, len(cfg.FireReductions))
	for _, c := range cfg.FireReductions {
		row, err := params.NewFireReductions(c.Severity, c.CoarseLitter, c.FineLitter)
		if err != nil {
			return err
		}
		fire = append(fire, row)
	}
	if tables.Fire, err = params.NewFireTable(fire); err != nil {
		return err
	}

	harvest := make([]params.HarvestReductions, 0, len(cfg.HarvestReductions))
	for _, c := range cfg.HarvestReductions {
		row, err := params.NewHarvestReductions(c.Prescription, c.CoarseLitter, c.FineLitter, c.CohortWood, c.CohortLeaf)
		if err != nil {
			return err
		}
		harvest = append(harvest, row)
	}
	tables.Harvest = params.NewHarvestTable(harvest)
	return nil
}
