package qlearning

import (
	"math"
	"testing"

	"github.com/samuelfneumann/rlcode/batch"
	"github.com/samuelfneumann/rlcode/device"
	"github.com/samuelfneumann/rlcode/environment/chain"
	"github.com/samuelfneumann/rlcode/policy"
	ts "github.com/samuelfneumann/rlcode/timestep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gorgonia.org/tensor"
)

func newTestQLearning(t *testing.T, c Config) *QLearning {
	t.Helper()
	env, _, err := chain.New(3, 10, 0.5)
	require.NoError(t, err)

	q, err := New(env, c, 1, device.WithDevice(device.CPUDevice))
	require.NoError(t, err)
	return q
}

func onehot(i int) *mat.VecDense {
	v := mat.NewVecDense(3, nil)
	v.SetVec(i, 1)
	return v
}

// chainBatch returns the two transitions of moving right along a chain
// of length 3
func chainBatch(t *testing.T) *batch.Batch {
	t.Helper()
	right := mat.NewVecDense(1, []float64{float64(chain.Right)})
	b, err := batch.FromTransitions([]ts.Transition{
		{State: onehot(0), Action: right, Reward: 0, Discount: 0.5,
			NextState: onehot(1)},
		{State: onehot(1), Action: right, Reward: 1, Discount: 0.5,
			NextState: onehot(2), Terminal: true, Last: true},
	})
	require.NoError(t, err)
	return b
}

func TestLearn(t *testing.T) {
	q := newTestQLearning(t, Config{LearningRate: 1, TargetSync: 1})

	info, err := policy.Learn(q, chainBatch(t), nil)
	require.NoError(t, err)

	// Targets are 0 + 0.5 * 0 and 1 with zero target weights
	assert.Equal(t, 0.5, info["target_mean"])
	assert.Equal(t, 0.5, info["td_error"])
	assert.Equal(t, true, info["target_synced"])
	assert.Equal(t, 1, info["updates"])

	// The step is averaged over the 2 transitions
	w := q.Weights()
	assert.Equal(t, 0.5, w.At(chain.Right, 1))
	assert.Equal(t, 0.0, w.At(chain.Right, 0))

	// The synchronized target now bootstraps from state 1
	out, _, err := q.PreLearn(chainBatch(t), nil)
	require.NoError(t, err)
	targets, err := out.Column(Targets)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.25, 1}, targets.RawVector().Data)
}

func TestPreLearnDoesNotModifyInput(t *testing.T) {
	q := newTestQLearning(t, DefaultConfig())
	b := chainBatch(t)

	out, _, err := q.PreLearn(b, nil)
	require.NoError(t, err)
	assert.True(t, out.Has(Targets))
	assert.False(t, b.Has(Targets))
}

func TestTargetSync(t *testing.T) {
	q := newTestQLearning(t, Config{LearningRate: 1, TargetSync: 2})

	for i, want := range []bool{false, true, false, true} {
		info, err := policy.Learn(q, chainBatch(t), nil)
		require.NoError(t, err)
		assert.Equal(t, want, info["target_synced"], "update %v", i+1)
	}
}

func TestDoLearnRequiresTargets(t *testing.T) {
	q := newTestQLearning(t, DefaultConfig())

	_, _, err := q.DoLearn(chainBatch(t), nil)
	assert.ErrorIs(t, err, batch.ErrNoColumn)
}

func TestForward(t *testing.T) {
	q := newTestQLearning(t, Config{LearningRate: 1, TargetSync: 1,
		InitScale: 1})
	w := q.Weights()

	obs := tensor.New(tensor.WithShape(1, 3),
		tensor.WithBacking([]float64{0, 1, 0}))
	out, err := q.Forward(obs, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, []int(out.Shape()))
	assert.Equal(t, []float64{w.At(0, 1), w.At(1, 1)}, out.Data())

	masks := tensor.New(tensor.WithShape(1, 2),
		tensor.WithBacking([]float64{0, 1}))
	out, err = q.Forward(obs, masks)
	require.NoError(t, err)
	assert.True(t, math.IsInf(out.Data().([]float64)[0], -1))

	_, err = q.Forward(tensor.New(tensor.WithShape(1, 2),
		tensor.WithBacking([]float64{0, 1})), nil)
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	env, _, err := chain.New(3, 10, 0.5)
	require.NoError(t, err)

	p, err := policy.New(Name, env, policy.Params{"learning_rate": 0.5},
		1, device.WithDevice(device.CPUDevice))
	require.NoError(t, err)
	assert.IsType(t, &QLearning{}, p)

	_, err = policy.New(Name, env, policy.Params{"target_sync": 0}, 1)
	assert.Error(t, err)
}

func TestLearnOnAcceleratorDevice(t *testing.T) {
	env, _, err := chain.New(3, 10, 0.5)
	require.NoError(t, err)

	q, err := New(env, Config{LearningRate: 1, TargetSync: 1}, 1,
		device.WithDevice(device.Accelerator(0)))
	require.NoError(t, err)
	assert.Equal(t, device.Accelerator(0), q.Device())

	info, err := policy.Learn(q, chainBatch(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.5, info["td_error"])
	assert.Equal(t, device.Accelerator(0), q.Device())
}
