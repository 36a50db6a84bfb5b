// Package batch implements a column store of transitions used for a
// single learning step.
//
// A Batch holds the core (s, a, r, γ, s') data of each transition as
// gonum matrices and vectors, one row per transition. Learning phases
// may attach further named columns, such as advantage estimates, which
// are carried to later phases along with the Batch.
package batch

import (
	"errors"
	"fmt"
	"sort"

	ts "github.com/samuelfneumann/rlcode/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"
)

// Names of columns written by the functions in this package
const (
	Advantages = "advantages"
	Returns    = "returns"
)

var (
	// ErrEmpty is returned when constructing a Batch with no
	// transitions
	ErrEmpty = errors.New("batch: no transitions")

	// ErrNoColumn is returned when a named column does not exist
	ErrNoColumn = errors.New("batch: no such column")
)

// Batch is a bundle of transitions used for one learning step
type Batch struct {
	Obs       *mat.Dense
	Actions   *mat.Dense
	NextObs   *mat.Dense
	Rewards   *mat.VecDense
	Discounts *mat.VecDense

	// Terminals[i] is 1 when NextObs row i is a terminal state and
	// Lasts[i] is 1 when row i is the last transition of an episode
	Terminals *mat.VecDense
	Lasts     *mat.VecDense

	columns map[string]*mat.VecDense
}

// FromTransitions constructs a Batch from a slice of Transitions. All
// transitions must have the same observation and action sizes.
func FromTransitions(t []ts.Transition) (*Batch, error) {
	if len(t) == 0 {
		return nil, ErrEmpty
	}

	obsSize := t[0].State.Len()
	actSize := t[0].Action.Len()
	n := len(t)

	b := &Batch{
		Obs:       mat.NewDense(n, obsSize, nil),
		Actions:   mat.NewDense(n, actSize, nil),
		NextObs:   mat.NewDense(n, obsSize, nil),
		Rewards:   mat.NewVecDense(n, nil),
		Discounts: mat.NewVecDense(n, nil),
		Terminals: mat.NewVecDense(n, nil),
		Lasts:     mat.NewVecDense(n, nil),
		columns:   make(map[string]*mat.VecDense),
	}

	for i, transition := range t {
		if transition.State.Len() != obsSize ||
			transition.NextState.Len() != obsSize {
			return nil, fmt.Errorf("fromTransitions: transition %v has "+
				"observation size %v, expected %v", i,
				transition.State.Len(), obsSize)
		}
		if transition.Action.Len() != actSize {
			return nil, fmt.Errorf("fromTransitions: transition %v has "+
				"action size %v, expected %v", i, transition.Action.Len(),
				actSize)
		}

		b.Obs.SetRow(i, mat.Col(nil, 0, transition.State))
		b.NextObs.SetRow(i, mat.Col(nil, 0, transition.NextState))
		b.Actions.SetRow(i, mat.Col(nil, 0, transition.Action))
		b.Rewards.SetVec(i, transition.Reward)
		b.Discounts.SetVec(i, transition.Discount)
		if transition.Terminal {
			b.Terminals.SetVec(i, 1.0)
		}
		if transition.Last {
			b.Lasts.SetVec(i, 1.0)
		}
	}

	return b, nil
}

// Len returns the number of transitions in the Batch
func (b *Batch) Len() int {
	r, _ := b.Obs.Dims()
	return r
}

// ObsSize returns the number of features in each observation
func (b *Batch) ObsSize() int {
	_, c := b.Obs.Dims()
	return c
}

// Set adds or replaces a named column. The column must have one entry
// per transition.
func (b *Batch) Set(name string, column *mat.VecDense) error {
	if column.Len() != b.Len() {
		return fmt.Errorf("set: column %q has length %v, batch has %v "+
			"transitions", name, column.Len(), b.Len())
	}
	if b.columns == nil {
		b.columns = make(map[string]*mat.VecDense)
	}
	b.columns[name] = column
	return nil
}

// Column returns the named column
func (b *Batch) Column(name string) (*mat.VecDense, error) {
	column, ok := b.columns[name]
	if !ok {
		return nil, fmt.Errorf("column %q: %w", name, ErrNoColumn)
	}
	return column, nil
}

// Has returns whether the named column exists
func (b *Batch) Has(name string) bool {
	_, ok := b.columns[name]
	return ok
}

// Keys returns the sorted names of all extra columns
func (b *Batch) Keys() []string {
	keys := make([]string, 0, len(b.columns))
	for key := range b.columns {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the Batch
func (b *Batch) Clone() *Batch {
	clone := &Batch{
		Obs:       mat.DenseCopyOf(b.Obs),
		Actions:   mat.DenseCopyOf(b.Actions),
		NextObs:   mat.DenseCopyOf(b.NextObs),
		Rewards:   mat.VecDenseCopyOf(b.Rewards),
		Discounts: mat.VecDenseCopyOf(b.Discounts),
		Terminals: mat.VecDenseCopyOf(b.Terminals),
		Lasts:     mat.VecDenseCopyOf(b.Lasts),
		columns:   make(map[string]*mat.VecDense, len(b.columns)),
	}
	for name, column := range b.columns {
		clone.columns[name] = mat.VecDenseCopyOf(column)
	}
	return clone
}

// Standardize shifts and scales the named column in place to have
// mean 0 and standard deviation 1.
func (b *Batch) Standardize(name string) error {
	column, err := b.Column(name)
	if err != nil {
		return fmt.Errorf("standardize: %w", err)
	}

	data := column.RawVector().Data
	mean, std := stat.MeanStdDev(data, nil)
	if b.Len() == 1 {
		std = 0
	}
	std += 1e-8

	for i := range data {
		data[i] = (data[i] - mean) / std
	}
	return nil
}

// Tensor copies a matrix into a row-major gorgonia tensor with the
// same shape, for use as input to a policy's forward pass.
func Tensor(m mat.Matrix) *tensor.Dense {
	r, c := m.Dims()
	backing := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		backing = append(backing, mat.Row(nil, i, m)...)
	}
	return tensor.New(tensor.WithShape(r, c), tensor.WithBacking(backing))
}

// FromTensor copies a rank 1 or 2 float64 tensor into a matrix. Rank 1
// tensors become a single row. Views, such as slices of a larger
// tensor, are materialized first.
func FromTensor(t tensor.Tensor) (*mat.Dense, error) {
	if t.Dtype() != tensor.Float64 {
		return nil, fmt.Errorf("fromTensor: expected dtype %v, got %v",
			tensor.Float64, t.Dtype())
	}

	if v, ok := t.(tensor.View); ok && v.IsView() {
		t = v.Materialize()
	}

	data, ok := t.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("fromTensor: tensor is not backed by " +
			"[]float64")
	}

	shape := t.Shape()
	if len(data) != shape.TotalSize() {
		return nil, fmt.Errorf("fromTensor: shape %v needs %v values, "+
			"got %v", shape, shape.TotalSize(), len(data))
	}
	switch len(shape) {
	case 1:
		return mat.NewDense(1, shape[0], append([]float64(nil), data...)), nil
	case 2:
		return mat.NewDense(shape[0], shape[1],
			append([]float64(nil), data...)), nil
	default:
		return nil, fmt.Errorf("fromTensor: expected rank 1 or 2 tensor, "+
			"got shape %v", shape)
	}
}
