package batch

import (
	"errors"
	"testing"

	ts "github.com/samuelfneumann/rlcode/timestep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func transition(s, a, r float64, terminal, last bool) ts.Transition {
	return ts.Transition{
		State:     mat.NewVecDense(2, []float64{s, -s}),
		Action:    mat.NewVecDense(1, []float64{a}),
		Reward:    r,
		Discount:  0.9,
		NextState: mat.NewVecDense(2, []float64{s + 1, -s - 1}),
		Terminal:  terminal,
		Last:      last,
	}
}

func TestFromTransitions(t *testing.T) {
	b, err := FromTransitions([]ts.Transition{
		transition(0, 1, 0.5, false, false),
		transition(1, 2, 1.5, true, true),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 2, b.ObsSize())
	assert.Equal(t, []float64{1, -1}, b.Obs.RawRowView(1))
	assert.Equal(t, []float64{2, -2}, b.NextObs.RawRowView(1))
	assert.Equal(t, 2.0, b.Actions.At(1, 0))
	assert.Equal(t, []float64{0.5, 1.5}, b.Rewards.RawVector().Data)
	assert.Equal(t, []float64{0, 1}, b.Terminals.RawVector().Data)
	assert.Equal(t, []float64{0, 1}, b.Lasts.RawVector().Data)
}

func TestFromTransitionsErrors(t *testing.T) {
	_, err := FromTransitions(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	bad := transition(0, 0, 0, false, false)
	bad.Action = mat.NewVecDense(2, nil)
	_, err = FromTransitions([]ts.Transition{
		transition(0, 0, 0, false, false), bad,
	})
	assert.Error(t, err)
}

func TestColumns(t *testing.T) {
	b, err := FromTransitions([]ts.Transition{
		transition(0, 0, 0, false, false),
		transition(1, 0, 0, false, false),
	})
	require.NoError(t, err)

	assert.Error(t, b.Set("x", mat.NewVecDense(3, nil)))
	require.NoError(t, b.Set("x", mat.NewVecDense(2, []float64{1, 2})))
	require.NoError(t, b.Set("a", mat.NewVecDense(2, nil)))

	assert.True(t, b.Has("x"))
	assert.Equal(t, []string{"a", "x"}, b.Keys())

	_, err = b.Column("missing")
	assert.True(t, errors.Is(err, ErrNoColumn))

	clone := b.Clone()
	x, err := clone.Column("x")
	require.NoError(t, err)
	x.SetVec(0, 100)

	orig, err := b.Column("x")
	require.NoError(t, err)
	assert.Equal(t, 1.0, orig.AtVec(0), "clone should not share columns")
}

func TestStandardize(t *testing.T) {
	b, err := FromTransitions([]ts.Transition{
		transition(0, 0, 0, false, false),
		transition(1, 0, 0, false, false),
		transition(2, 0, 0, false, false),
	})
	require.NoError(t, err)
	require.NoError(t, b.Set("x", mat.NewVecDense(3, []float64{1, 2, 6})))
	require.NoError(t, b.Standardize("x"))

	x, _ := b.Column("x")
	mean, std := stat.MeanStdDev(x.RawVector().Data, nil)
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, std, 1e-6)

	assert.ErrorIs(t, b.Standardize("missing"), ErrNoColumn)
}

func TestGAE(t *testing.T) {
	tests := []struct {
		name       string
		terminals  []bool
		lasts      []bool
		nextValues []float64
		gamma      float64
		lambda     float64
		want       []float64
	}{
		{
			name:       "single trajectory",
			terminals:  []bool{false, false, false},
			lasts:      []bool{false, false, false},
			nextValues: []float64{0, 0, 0},
			gamma:      1,
			lambda:     1,
			want:       []float64{3, 2, 1},
		},
		{
			name:       "episode boundary",
			terminals:  []bool{false, false, false},
			lasts:      []bool{true, false, false},
			nextValues: []float64{0, 0, 0},
			gamma:      1,
			lambda:     1,
			want:       []float64{1, 2, 1},
		},
		{
			name:       "terminal stops bootstrap",
			terminals:  []bool{false, true, false},
			lasts:      []bool{false, true, false},
			nextValues: []float64{5, 5, 5},
			gamma:      1,
			lambda:     1,
			want:       []float64{7, 1, 6},
		},
		{
			name:       "discounted",
			terminals:  []bool{false, false},
			lasts:      []bool{false, false},
			nextValues: []float64{0, 0},
			gamma:      0.5,
			lambda:     0.5,
			want:       []float64{1.25, 1},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			transitions := make([]ts.Transition, len(test.want))
			for i := range transitions {
				transitions[i] = transition(float64(i), 0, 1,
					test.terminals[i], test.lasts[i])
			}
			b, err := FromTransitions(transitions)
			require.NoError(t, err)

			values := mat.NewVecDense(len(test.want), nil)
			next := mat.NewVecDense(len(test.want), test.nextValues)
			require.NoError(t, GAE(b, values, next, test.gamma, test.lambda))

			adv, err := b.Column(Advantages)
			require.NoError(t, err)
			ret, err := b.Column(Returns)
			require.NoError(t, err)

			for i, want := range test.want {
				assert.InDelta(t, want, adv.AtVec(i), 1e-9)
				assert.InDelta(t, want, ret.AtVec(i), 1e-9)
			}
		})
	}
}

func TestGAEValueLength(t *testing.T) {
	b, err := FromTransitions([]ts.Transition{transition(0, 0, 1, false, false)})
	require.NoError(t, err)

	err = GAE(b, mat.NewVecDense(2, nil), mat.NewVecDense(1, nil), 1, 1)
	assert.Error(t, err)
}

func TestTensorRoundTrip(t *testing.T) {
	m := mat.NewDense(2, 3, []float64{1, 2, 3, 4, 5, 6})
	tt := Tensor(m)
	assert.Equal(t, tensor.Shape{2, 3}, tt.Shape())

	back, err := FromTensor(tt)
	require.NoError(t, err)
	assert.True(t, mat.Equal(m, back))

	vec := tensor.New(tensor.WithShape(3), tensor.WithBacking([]float64{1, 2, 3}))
	row, err := FromTensor(vec)
	require.NoError(t, err)
	r, c := row.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 3, c)

	f32 := tensor.New(tensor.WithShape(1), tensor.WithBacking([]float32{1}))
	_, err = FromTensor(f32)
	assert.Error(t, err)
}

func TestFromTensorView(t *testing.T) {
	full := tensor.New(tensor.WithShape(3, 3),
		tensor.WithBacking([]float64{0, 1, 2, 3, 4, 5, 6, 7, 8}))
	cols, err := full.Slice(nil, G.S(1, 3))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, cols.Shape())

	m, err := FromTensor(cols)
	require.NoError(t, err)
	want := mat.NewDense(3, 2, []float64{1, 2, 4, 5, 7, 8})
	assert.True(t, mat.Equal(want, m), "got %v", mat.Formatted(m))

	rows, err := full.Slice(G.S(1, 3))
	require.NoError(t, err)
	m, err = FromTensor(rows)
	require.NoError(t, err)
	want = mat.NewDense(2, 3, []float64{3, 4, 5, 6, 7, 8})
	assert.True(t, mat.Equal(want, m))
}
