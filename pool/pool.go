// Package pool models the decaying dead-organic-matter pools kept at each site.
package pool

import (
	"fmt"
	"math"
)

// Pool is a mass of dead organic matter with a single blended decay rate.
// Each site keeps two: woody debris and litter.
type Pool struct {
	Mass        float64 // g m-2
	DecayValue  float64 // first-order decay constant, yr-1
	InitialMass float64
}

// AddMass adds inputMass decaying at inputDecay and re-weights the pool's
// decay value by mass. An empty pool has a decay value of 0.
func (p *Pool) AddMass(inputMass, inputDecay float64) {
	total := p.Mass + inputMass
	if total <= 0 {
		p.Mass = 0
		p.DecayValue = 0
		return
	}
	p.DecayValue = (p.Mass*p.DecayValue + inputMass*inputDecay) / total
	p.Mass = total
}

// ReduceMass removes the given fraction of the pool and returns the amount
// removed.
func (p *Pool) ReduceMass(fraction float64) (float64, error) {
	if fraction < 0 || fraction > 1 || math.IsNaN(fraction) {
		return 0, fmt.Errorf("pool: reduction fraction %v not in [0, 1]", fraction)
	}
	removed := p.Mass * fraction
	p.Mass -= removed
	if p.Mass <= 0 {
		p.Mass = 0
		p.DecayValue = 0
	}
	return removed, nil
}

// Decompose applies one year of exponential decay.
// Call it after the year's inputs have been added.
func (p *Pool) Decompose() {
	p.Mass *= math.Exp(-p.DecayValue)
}

// Clone returns an independent copy.
func (p Pool) Clone() Pool {
	return p
}

// LitterDecayRate returns the decay rate of fresh leaf litter from actual
// evapotranspiration (mm) and leaf lignin fraction, after Meentemeyer (1978).
func LitterDecayRate(aet, leafLignin float64) float64 {
	return (-0.5365 + 0.00241*aet) - ((-0.01586 + 0.000056*aet) * leafLignin * 100)
}
