package params

import "fmt"

// NumShadeClasses is the number of non-zero shade classes.
const NumShadeClasses = 5

// Ecoregion holds the static parameters of one ecoregion.
type Ecoregion struct {
	Index   int
	Name    string
	MapCode int
	Active  bool
	AET     float64 // actual evapotranspiration, mm

	// MinRelativeBiomass maps shade class (1..5) to the minimum relative
	// biomass that produces it.
	MinRelativeBiomass map[int]float64
}

// MinRelative returns the threshold for a shade class and whether it is
// defined.
func (e *Ecoregion) MinRelative(shade int) (float64, bool) {
	v, ok := e.MinRelativeBiomass[shade]
	return v, ok
}

// Validate checks the ecoregion's thresholds. Inactive ecoregions are not
// required to define them.
func (e *Ecoregion) Validate() error {
	if e.Name == "" {
		return fmt.Errorf("ecoregion with map code %d has no name", e.MapCode)
	}
	if e.AET < 0 {
		return fmt.Errorf("ecoregion %s: AET %v < 0", e.Name, e.AET)
	}
	for shade := 1; shade <= NumShadeClasses; shade++ {
		v, ok := e.MinRelativeBiomass[shade]
		if !ok {
			if e.Active {
				return fmt.Errorf("ecoregion %s: no minimum relative biomass for shade class %d", e.Name, shade)
			}
			continue
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("ecoregion %s: minimum relative biomass %v for shade class %d not in [0, 1]", e.Name, v, shade)
		}
	}
	return nil
}

func (e *Ecoregion) String() string {
	if e == nil {
		return "<nil>"
	}
	return e.Name
}
