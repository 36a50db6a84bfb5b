package policy_test

import (
	"math"
	"testing"

	"github.com/samuelfneumann/rlcode/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestApplyMask(t *testing.T) {
	out := tensor.New(tensor.WithShape(2, 2),
		tensor.WithBacking([]float64{1, 2, 3, 4}))
	masks := tensor.New(tensor.WithShape(2, 2),
		tensor.WithBacking([]float64{1, 0, 0, 1}))

	masked, err := policy.ApplyMask(out, masks)
	require.NoError(t, err)
	inf := math.Inf(-1)
	assert.Equal(t, []float64{1, inf, inf, 4}, masked.Data())

	// The input is not modified
	assert.Equal(t, []float64{1, 2, 3, 4}, out.Data())

	unmasked, err := policy.ApplyMask(out, nil)
	require.NoError(t, err)
	assert.Equal(t, out, unmasked)
}

func TestApplyMaskShapeMismatch(t *testing.T) {
	out := tensor.New(tensor.WithShape(1, 3),
		tensor.WithBacking([]float64{1, 2, 3}))
	masks := tensor.New(tensor.WithShape(1, 2),
		tensor.WithBacking([]float64{1, 1}))

	_, err := policy.ApplyMask(out, masks)
	assert.Error(t, err)
}
