package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func newTestMLP(t *testing.T) *MLP {
	t.Helper()
	m, err := NewMLP(3, []int{8}, []*Activation{TanH()}, 2, 1)
	require.NoError(t, err)
	return m
}

func obs(rows int) *tensor.Dense {
	backing := make([]float64, rows*3)
	for i := range backing {
		backing[i] = float64(i%5) / 5
	}
	return tensor.New(tensor.WithShape(rows, 3), tensor.WithBacking(backing))
}

func TestNewMLPErrors(t *testing.T) {
	_, err := NewMLP(3, []int{4, 4}, []*Activation{ReLU()}, 2, 1)
	assert.Error(t, err)

	_, err = NewMLP(0, nil, nil, 2, 1)
	assert.Error(t, err)
}

func TestPredictShapes(t *testing.T) {
	m := newTestMLP(t)

	for _, rows := range []int{1, 7} {
		out, err := m.Predict(obs(rows))
		require.NoError(t, err)
		assert.Equal(t, tensor.Shape{rows, 2}, out.Shape())
	}

	_, err := m.Predict(tensor.New(tensor.WithShape(2, 4),
		tensor.Of(tensor.Float64)))
	assert.Error(t, err)
}

func TestSeededInitIsDeterministic(t *testing.T) {
	a := newTestMLP(t)
	b := newTestMLP(t)

	pa, pb := a.Params(), b.Params()
	require.Len(t, pa, 4)
	for i := range pa {
		assert.Equal(t, pa[i].Data(), pb[i].Data())
	}
}

func TestStepReducesLoss(t *testing.T) {
	m := newTestMLP(t)
	input := obs(4)
	target := tensor.New(tensor.WithShape(4, 2),
		tensor.WithBacking([]float64{1, -1, 1, -1, 1, -1, 1, -1}))

	mse := func(g *G.ExprGraph, out *G.Node) (*G.Node, error) {
		y := G.NewMatrix(g, tensor.Float64, G.WithShape(4, 2),
			G.WithValue(target), G.WithName("target"))
		diff, err := G.Sub(out, y)
		if err != nil {
			return nil, err
		}
		sq, err := G.Square(diff)
		if err != nil {
			return nil, err
		}
		return G.Mean(sq)
	}

	solver := G.NewVanillaSolver(G.WithLearnRate(0.1))
	first, err := m.Step(input, solver, mse)
	require.NoError(t, err)

	var last float64
	for i := 0; i < 50; i++ {
		last, err = m.Step(input, solver, mse)
		require.NoError(t, err)
	}
	assert.Less(t, last, first)
}

func TestCloneAndSetParams(t *testing.T) {
	m := newTestMLP(t)
	clone := m.Clone()

	params := m.Params()
	params[0].Zero()
	require.NoError(t, m.SetParams(params))

	// The clone keeps the original weights
	assert.NotEqual(t, m.Params()[0].Data(), clone.Params()[0].Data())

	assert.Error(t, m.SetParams(params[:1]))
	bad := m.Params()
	bad[0] = tensor.New(tensor.WithShape(1, 1), tensor.Of(tensor.Float64))
	assert.Error(t, m.SetParams(bad))
}

func TestParseActivation(t *testing.T) {
	for _, name := range []string{"relu", "tanh", "identity"} {
		a, err := ParseActivation(name)
		require.NoError(t, err)
		assert.Equal(t, name, a.String())
	}
	_, err := ParseActivation("sigmoid")
	assert.Error(t, err)
}
