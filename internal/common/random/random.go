// Package random provides the injectable randomness used by the stage agents.
package random

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Source yields uniform floats in [0, 1).
type Source interface {
	Float64() float64
}

// New returns a goroutine-safe PCG source. A zero seed seeds from the clock.
func New(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{r: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Between returns a uniform float in [lo, hi).
func Between(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// IntBetween returns round(U[lo, hi]) with halves rounded up, so -5.5 becomes -5.
func IntBetween(src Source, lo, hi float64) int {
	return int(math.Floor(Between(src, lo, hi) + 0.5))
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Fixed replays a sequence of values, cycling when exhausted.
type Fixed struct {
	mu     sync.Mutex
	Values []float64
	next   int
}

func NewFixed(values ...float64) *Fixed {
	return &Fixed{Values: values}
}

func (f *Fixed) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Values) == 0 {
		return 0
	}
	v := f.Values[f.next%len(f.Values)]
	f.next++
	return v
}
