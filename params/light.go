package params

import "fmt"

// SufficientLight gives, for one shade tolerance class, the probability
// that a seedling gets enough light at each site shade class 0..5.
type SufficientLight struct {
	ShadeTolerance int
	Probabilities  [NumShadeClasses + 1]float64
}

// NewSufficientLight validates and returns a light table row.
func NewSufficientLight(tolerance int, probs [NumShadeClasses + 1]float64) (SufficientLight, error) {
	if tolerance < 1 || tolerance > NumShadeClasses {
		return SufficientLight{}, fmt.Errorf("shade tolerance class %d not in [1, %d]", tolerance, NumShadeClasses)
	}
	for shade, p := range probs {
		if err := checkFraction(fmt.Sprintf("light probability for shade %d", shade), p); err != nil {
			return SufficientLight{}, fmt.Errorf("shade tolerance %d: %w", tolerance, err)
		}
	}
	return SufficientLight{ShadeTolerance: tolerance, Probabilities: probs}, nil
}

// LightTable is the sufficient-light table, one row per tolerance class.
type LightTable []SufficientLight

// NewLightTable checks that rows cover tolerance classes 1..5 in order.
func NewLightTable(rows []SufficientLight) (LightTable, error) {
	if len(rows) != NumShadeClasses {
		return nil, fmt.Errorf("sufficient light table has %d rows, want %d", len(rows), NumShadeClasses)
	}
	for i, r := range rows {
		if r.ShadeTolerance != i+1 {
			return nil, fmt.Errorf("sufficient light row %d is for shade tolerance %d, want %d", i+1, r.ShadeTolerance, i+1)
		}
	}
	return LightTable(rows), nil
}

// Probability returns the light probability for a tolerance class at a
// site shade class, and whether the table has a row for the tolerance.
func (t LightTable) Probability(tolerance, shade int) (float64, bool) {
	if shade < 0 || shade > NumShadeClasses {
		return 0, false
	}
	for _, r := range t {
		if r.ShadeTolerance == tolerance {
			return r.Probabilities[shade], true
		}
	}
	return 0, false
}
