// Package matutils implements utility functions for working with
// mat.Matrix structs
package matutils

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Mask sets every element of each row of values for which the
// matching element of mask is zero to -Inf. The mask must have the
// same dimensions as values.
func Mask(values, mask *mat.Dense) error {
	r, c := values.Dims()
	mr, mc := mask.Dims()
	if r != mr || c != mc {
		return fmt.Errorf("mask: mask shape (%v, %v) does not match "+
			"values shape (%v, %v)", mr, mc, r, c)
	}

	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if mask.At(i, j) == 0 {
				values.Set(i, j, math.Inf(-1))
			}
		}
	}
	return nil
}
