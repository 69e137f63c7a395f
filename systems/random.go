package systems

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NewUniform returns a seeded uniform [0, 1) stream. Sites get their own
// stream so results do not depend on the order sites are processed in.
func NewUniform(seed, stream uint64) *distuv.Uniform {
	return &distuv.Uniform{Min: 0, Max: 1, Src: rand.NewPCG(seed, stream)}
}
