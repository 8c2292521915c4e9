package random

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_SeededIsDeterministic(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestBetween(t *testing.T) {
	src := New(7)
	for i := 0; i < 1000; i++ {
		v := Between(src, 62, 88)
		assert.GreaterOrEqual(t, v, 62.0)
		assert.Less(t, v, 88.0)
	}
}

func TestIntBetween(t *testing.T) {
	assert.Equal(t, 62, IntBetween(NewFixed(0), 62, 88))
	assert.Equal(t, 75, IntBetween(NewFixed(0.5), 62, 88))
	assert.Equal(t, -3, IntBetween(NewFixed(0.99), -8, -3))
}

func TestFixed_Cycles(t *testing.T) {
	f := NewFixed(0.1, 0.2)
	assert.Equal(t, []float64{0.1, 0.2, 0.1}, []float64{f.Float64(), f.Float64(), f.Float64()})
	assert.Equal(t, 0.0, NewFixed().Float64())
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.94, Round2(0.9372))
}

func TestIntBetween_HalvesRoundUp(t *testing.T) {
	assert.Equal(t, -5, IntBetween(NewFixed(0.5), -8, -3))
	assert.Equal(t, 9, IntBetween(NewFixed(0.5), 5, 12))
}
