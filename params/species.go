// Package params holds the static and time-varying parameters that drive
// cohort growth: species traits, ecoregions, the species x ecoregion table,
// disturbance reduction tables and the sufficient-light table.
package params

import "fmt"

// Species holds the static life-history traits of one tree species.
// Traits are read once at load and never modified.
type Species struct {
	Index          int     `csv:"-"`
	Name           string  `csv:"SpeciesCode"`
	Longevity      int     `csv:"Longevity"`
	Maturity       int     `csv:"SexualMaturity"`
	ShadeTolerance int     `csv:"ShadeTolerance"`
	FireTolerance  int     `csv:"FireTolerance"`
	LeafLongevity  float64 `csv:"LeafLongevity"`  // years
	WoodyDecayRate float64 `csv:"WoodDecayRate"`  // yr-1
	MortalityCurve float64 `csv:"MortalityCurve"` // age-mortality shape d
	GrowthCurve    float64 `csv:"GrowthCurve"`    // ANPP curve exponent
	LeafLignin     float64 `csv:"LeafLignin"`     // fraction
}

// Validate checks trait ranges.
func (s *Species) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("species: empty SpeciesCode")
	case s.Longevity <= 0:
		return fmt.Errorf("species %s: Longevity %d must be > 0", s.Name, s.Longevity)
	case s.Maturity < 0 || s.Maturity > s.Longevity:
		return fmt.Errorf("species %s: SexualMaturity %d not in [0, %d]", s.Name, s.Maturity, s.Longevity)
	case s.ShadeTolerance < 1 || s.ShadeTolerance > 5:
		return fmt.Errorf("species %s: ShadeTolerance %d not in [1, 5]", s.Name, s.ShadeTolerance)
	case s.FireTolerance < 1 || s.FireTolerance > 5:
		return fmt.Errorf("species %s: FireTolerance %d not in [1, 5]", s.Name, s.FireTolerance)
	case s.LeafLongevity < 1 || s.LeafLongevity > 10:
		return fmt.Errorf("species %s: LeafLongevity %v not in [1, 10]", s.Name, s.LeafLongevity)
	case s.WoodyDecayRate < 0 || s.WoodyDecayRate > 1:
		return fmt.Errorf("species %s: WoodDecayRate %v not in [0, 1]", s.Name, s.WoodyDecayRate)
	case s.MortalityCurve < 5 || s.MortalityCurve > 25:
		return fmt.Errorf("species %s: MortalityCurve %v not in [5, 25]", s.Name, s.MortalityCurve)
	case s.GrowthCurve < 0 || s.GrowthCurve > 1:
		return fmt.Errorf("species %s: GrowthCurve %v not in [0, 1]", s.Name, s.GrowthCurve)
	case s.LeafLignin < 0 || s.LeafLignin > 0.4:
		return fmt.Errorf("species %s: LeafLignin %v not in [0, 0.4]", s.Name, s.LeafLignin)
	}
	return nil
}

func (s *Species) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Name
}
