// Package randgen provides the single deterministic RNG type used across
// the generator and beta-distributed value sampling. The register
// randomization policy of spec.md §4.4 built on it is in internal/registers.
package randgen

import (
	"math"
	"math/rand/v2"
)

// Seed combines a file-level seed with the per-test and per-generation
// counters into the single u64 seed all randomness flows from (spec.md
// §4.4, §9 design notes: "Keep a single RNG type across the codebase").
func Seed(fileSeed uint64, testNum uint32, genNum uint8) uint64 {
	return fileSeed ^ (uint64(testNum) | uint64(genNum)<<24)
}

// RNG wraps math/rand/v2's PCG source, the same generator family the
// teacher corpus uses for its own seeded search chains.
type RNG struct {
	r *rand.Rand
}

// New creates an RNG from a combined seed.
func New(seed uint64) *RNG {
	return &RNG{r: rand.New(rand.NewPCG(seed, seed^0xA5A5A5A5A5A5A5A5))}
}

// Float64 returns a uniform value in [0,1).
func (g *RNG) Float64() float64 { return g.r.Float64() }

// Uint16 returns a uniform 16-bit value.
func (g *RNG) Uint16() uint16 { return uint16(g.r.Uint32()) }

// Uint32 returns a uniform 32-bit value.
func (g *RNG) Uint32() uint32 { return g.r.Uint32() }

// IntN returns a uniform value in [0,n).
func (g *RNG) IntN(n int) int { return g.r.IntN(n) }

// Bool returns true with the given probability.
func (g *RNG) Bool(p float64) bool { return g.r.Float64() < p }

// Gamma samples from a Gamma(shape, 1) distribution via the
// Marsaglia-Tsang method. No statistics/distribution library appears
// anywhere in the retrieval pack (gonum/distuv et al. are absent), so this
// is hand-rolled on math/rand/v2 — see DESIGN.md.
func (g *RNG) Gamma(shape float64) float64 {
	if shape < 1 {
		// Boost via Gamma(shape+1) and a uniform correction (Marsaglia-Tsang
		// extension for shape < 1).
		u := g.r.Float64()
		return g.Gamma(shape+1) * math.Pow(u, 1/shape)
	}
	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = g.normal()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := g.r.Float64()
		x2 := x * x
		if u < 1-0.0331*x2*x2 {
			return d * v
		}
		if math.Log(u) < 0.5*x2+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// Beta samples from a Beta(alpha, beta) distribution by ratioing two
// independent Gamma draws, the standard construction (spec.md §4.3, §4.4).
func (g *RNG) Beta(alpha, beta float64) float64 {
	x := g.Gamma(alpha)
	y := g.Gamma(beta)
	if x+y == 0 {
		return 0
	}
	return x / (x + y)
}

// normal draws a standard-normal deviate via the Box-Muller transform.
func (g *RNG) normal() float64 {
	u1 := g.r.Float64()
	u2 := g.r.Float64()
	if u1 <= 0 {
		u1 = 1e-12
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
