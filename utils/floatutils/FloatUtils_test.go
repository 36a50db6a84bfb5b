package floatutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r1"
)

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
	}

	for _, test := range tests {
		assert.Equal(t, test.want, Clip(test.value, test.min, test.max))
		interval := r1.Interval{Min: test.min, Max: test.max}
		assert.Equal(t, test.want, ClipInterval(test.value, interval))
	}
}

func TestArgMax(t *testing.T) {
	assert.Equal(t, 2, ArgMax([]float64{1, 2, 3, 0}))
	assert.Equal(t, 1, ArgMax([]float64{1, 3, 3}))
	assert.Equal(t, 1, ArgMax([]float64{math.NaN(), 0, math.Inf(-1)}))
	assert.Equal(t, 2, ArgMax([]float64{math.Inf(-1), math.Inf(-1), 0}))
}
