package matutils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMask(t *testing.T) {
	values := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	mask := mat.NewDense(2, 3, []float64{1, 0, 1, 0, 0, 1})

	require.NoError(t, Mask(values, mask))
	inf := math.Inf(-1)
	assert.Equal(t, []float64{1, inf, 3, inf, inf, 6}, values.RawMatrix().Data)
}

func TestMaskShapeMismatch(t *testing.T) {
	values := mat.NewDense(2, 3, nil)
	mask := mat.NewDense(3, 2, nil)
	assert.Error(t, Mask(values, mask))
}
