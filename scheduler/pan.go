package scheduler

import (
	"fmt"
	"math/rand/v2"
)

// Rand is the randomness source for pool picks and random pan.
// Implementations must be safe for concurrent use.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// globalRand uses the auto-seeded math/rand/v2 top-level functions.
// Sound selection and pan are not security-critical.
type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// PanMode selects how a PanPolicy produces values
type PanMode int

const (
	// PanFixed always yields the policy's Value
	PanFixed PanMode = iota
	// PanRandom yields a uniformly random pan in [-1, 1)
	PanRandom
)

func (m PanMode) String() string {
	switch m {
	case PanFixed:
		return "fixed"
	case PanRandom:
		return "random"
	default:
		return fmt.Sprintf("PanMode(%d)", int(m))
	}
}

// PanPolicy decides the pan of each play. It is sampled separately for every
// sound, at the moment that sound starts.
type PanPolicy struct {
	Mode  PanMode
	Value float64
}

// Center pans every sound to the middle
func Center() PanPolicy { return PanPolicy{Mode: PanFixed} }

// Fixed pans every sound to v
func Fixed(v float64) PanPolicy { return PanPolicy{Mode: PanFixed, Value: v} }

// Random pans every sound to an independent uniform value
func Random() PanPolicy { return PanPolicy{Mode: PanRandom} }

// Sample returns the pan for one play
func (p PanPolicy) Sample(r Rand) float64 {
	if p.Mode == PanRandom {
		if r == nil {
			r = globalRand{}
		}
		return r.Float64()*2 - 1
	}
	return p.Value
}

// SystemRand returns the process-wide math/rand/v2 source
func SystemRand() Rand { return globalRand{} }
