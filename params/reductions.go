package params

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	// ErrUnknownSeverity is returned when a fire severity has no reductions entry.
	ErrUnknownSeverity = errors.New("fire severity not in reductions table")
	// ErrUnknownPrescription is returned when a harvest prescription matches
	// no reductions entry.
	ErrUnknownPrescription = errors.New("harvest prescription not in reductions table")
)

// MaxFireSeverity is the highest fire severity class.
const MaxFireSeverity = 5

func checkFraction(name string, v float64) error {
	if v < 0 || v > 1 || v != v {
		return fmt.Errorf("%s %v not in [0, 1]", name, v)
	}
	return nil
}

// FireReductions are the fractions of dead wood and litter consumed by a
// fire of one severity class.
type FireReductions struct {
	Severity     int
	CoarseLitter float64
	FineLitter   float64
}

// NewFireReductions validates and returns a fire reductions entry.
func NewFireReductions(severity int, coarse, fine float64) (FireReductions, error) {
	if severity < 1 || severity > MaxFireSeverity {
		return FireReductions{}, fmt.Errorf("fire severity %d not in [1, %d]", severity, MaxFireSeverity)
	}
	if err := checkFraction("coarse litter reduction", coarse); err != nil {
		return FireReductions{}, err
	}
	if err := checkFraction("fine litter reduction", fine); err != nil {
		return FireReductions{}, err
	}
	return FireReductions{Severity: severity, CoarseLitter: coarse, FineLitter: fine}, nil
}

// FireTable indexes fire reductions by severity.
type FireTable struct {
	entries [MaxFireSeverity + 1]*FireReductions
}

// NewFireTable builds a table from validated entries. Duplicate severities
// are rejected.
func NewFireTable(rows []FireReductions) (*FireTable, error) {
	t := &FireTable{}
	for i := range rows {
		r := rows[i]
		if r.Severity < 1 || r.Severity > MaxFireSeverity {
			return nil, fmt.Errorf("fire severity %d not in [1, %d]", r.Severity, MaxFireSeverity)
		}
		if t.entries[r.Severity] != nil {
			return nil, fmt.Errorf("fire severity %d listed twice", r.Severity)
		}
		t.entries[r.Severity] = &r
	}
	return t, nil
}

// Lookup returns the reductions for a severity.
func (t *FireTable) Lookup(severity int) (FireReductions, error) {
	if t == nil || severity < 1 || severity > MaxFireSeverity || t.entries[severity] == nil {
		return FireReductions{}, fmt.Errorf("%w: %d", ErrUnknownSeverity, severity)
	}
	return *t.entries[severity], nil
}

// HarvestReductions are the fractions removed by one harvest prescription:
// dead wood and litter on the ground, and the wood and leaves of killed
// cohorts that leave the site instead of entering the dead pools.
type HarvestReductions struct {
	Prescription string
	CoarseLitter float64
	FineLitter   float64
	CohortWood   float64
	CohortLeaf   float64
}

// NewHarvestReductions validates and returns a harvest reductions entry.
// A name containing '*' is a template matched against prescription names.
func NewHarvestReductions(name string, coarse, fine, cohortWood, cohortLeaf float64) (HarvestReductions, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return HarvestReductions{}, errors.New("harvest prescription name is empty")
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"coarse litter reduction", coarse},
		{"fine litter reduction", fine},
		{"cohort wood removal", cohortWood},
		{"cohort leaf removal", cohortLeaf},
	} {
		if err := checkFraction(f.name, f.v); err != nil {
			return HarvestReductions{}, fmt.Errorf("prescription %s: %w", name, err)
		}
	}
	return HarvestReductions{
		Prescription: name,
		CoarseLitter: coarse,
		FineLitter:   fine,
		CohortWood:   cohortWood,
		CohortLeaf:   cohortLeaf,
	}, nil
}

// HarvestTable looks up harvest reductions by prescription name.
type HarvestTable struct {
	rows []HarvestReductions
}

// NewHarvestTable returns a table over the given entries.
func NewHarvestTable(rows []HarvestReductions) *HarvestTable {
	return &HarvestTable{rows: rows}
}

// Lookup finds the reductions for a prescription. An exact name match wins.
// Otherwise every template (a name containing '*') is scored by the number
// of positions at which it has the same character as the prescription, and
// the best scoring template is used; on a tie the later entry wins. A
// template with no matching position does not match.
func (t *HarvestTable) Lookup(prescription string) (HarvestReductions, error) {
	prescription = strings.TrimSpace(prescription)
	if t != nil {
		for _, r := range t.rows {
			if r.Prescription == prescription {
				return r, nil
			}
		}

		best, bestScore := -1, 0
		for i, r := range t.rows {
			if !strings.Contains(r.Prescription, "*") {
				continue
			}
			score := 0
			for j := 0; j < len(r.Prescription) && j < len(prescription); j++ {
				if prescription[j] == r.Prescription[j] {
					score++
				}
			}
			if score > 0 && score >= bestScore {
				best, bestScore = i, score
			}
		}
		if best >= 0 {
			return t.rows[best], nil
		}
	}

	if near := t.closest(prescription); near != "" {
		return HarvestReductions{}, fmt.Errorf("%w: %q (closest entry %q)", ErrUnknownPrescription, prescription, near)
	}
	return HarvestReductions{}, fmt.Errorf("%w: %q", ErrUnknownPrescription, prescription)
}

// closest returns the entry name with the smallest edit distance to name.
func (t *HarvestTable) closest(name string) string {
	if t == nil {
		return ""
	}
	best, bestDist := "", -1
	for _, r := range t.rows {
		d := levenshtein.ComputeDistance(name, r.Prescription)
		if bestDist < 0 || d < bestDist {
			best, bestDist = r.Prescription, d
		}
	}
	return best
}
