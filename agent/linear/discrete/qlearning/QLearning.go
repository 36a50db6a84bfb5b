// Package qlearning implements the Q-Learning algorithm with linear
// function approximation.
//
// Action values are linear in the observation, with one row of weights
// per action. Update targets bootstrap from a separate set of target
// weights, which are synchronized with the learned weights every
// TargetSync learning steps.
package qlearning

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/rlcode/batch"
	"github.com/samuelfneumann/rlcode/device"
	"github.com/samuelfneumann/rlcode/environment"
	"github.com/samuelfneumann/rlcode/experience"
	"github.com/samuelfneumann/rlcode/policy"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"
)

const (
	// Name is the name QLearning is registered under in the policy
	// registry
	Name = "qlearning"

	// Targets is the name of the batch column holding update targets
	Targets = "targets"
)

func init() {
	policy.Register(Name, factory)
}

func factory(env environment.Environment, params policy.Params,
	seed uint64, opts ...device.Option) (policy.Policy, error) {
	c := DefaultConfig()
	if err := params.Decode(&c); err != nil {
		return nil, err
	}
	return New(env, c, seed, opts...)
}

// QLearning implements linear Q-Learning with target weights
type QLearning struct {
	policy.Base

	weights      *mat.Dense // actions x features
	target       *mat.Dense
	learningRate float64
	targetSync   int
	updates      int
}

var _ policy.Policy = &QLearning{}

// New creates and returns a new QLearning policy for the environment,
// which must have a single discrete action dimension
func New(env environment.Environment, c Config, seed uint64,
	opts ...device.Option) (*QLearning, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	base, err := policy.NewBase(opts...)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	features := env.ObservationSpec().Shape.Len()
	actions, err := environment.NumActions(env.ActionSpec())
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	weights := mat.NewDense(actions, features, nil)
	if c.InitScale > 0 {
		dist := distuv.Normal{Mu: 0, Sigma: c.InitScale,
			Src: rand.NewSource(seed)}
		data := weights.RawMatrix().Data
		for i := range data {
			data[i] = dist.Rand()
		}
	}

	return &QLearning{
		Base:         base,
		weights:      weights,
		target:       mat.DenseCopyOf(weights),
		learningRate: c.LearningRate,
		targetSync:   c.TargetSync,
	}, nil
}

// Weights returns a copy of the learned weights, one row per action
func (q *QLearning) Weights() *mat.Dense {
	return mat.DenseCopyOf(q.weights)
}

// Forward returns the action values of each row of obs. Illegal
// actions in masks get values of -Inf.
func (q *QLearning) Forward(obs, masks tensor.Tensor) (tensor.Tensor, error) {
	in, err := batch.FromTensor(obs)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}
	if _, c := in.Dims(); c != q.features() {
		return nil, fmt.Errorf("forward: expected %v features, got %v",
			q.features(), c)
	}

	var values mat.Dense
	values.Mul(in, q.weights.T())
	return policy.ApplyMask(batch.Tensor(&values), masks)
}

// PreLearn computes the Q-Learning update target of each transition
// using the target weights. The returned batch is a copy of b with the
// targets column set.
func (q *QLearning) PreLearn(b *batch.Batch, _ experience.Source) (
	*batch.Batch, policy.Info, error) {
	if _, c := b.Obs.Dims(); c != q.features() {
		return nil, nil, fmt.Errorf("preLearn: expected %v features, got %v",
			q.features(), c)
	}

	var nextValues mat.Dense
	nextValues.Mul(b.NextObs, q.target.T())

	n := b.Len()
	targets := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		target := b.Rewards.AtVec(i)
		if b.Terminals.AtVec(i) == 0 {
			maxVal := mat.Max(nextValues.RowView(i))
			target += b.Discounts.AtVec(i) * maxVal
		}
		targets.SetVec(i, target)
	}

	out := b.Clone()
	if err := out.Set(Targets, targets); err != nil {
		return nil, nil, fmt.Errorf("preLearn: %w", err)
	}

	info := policy.Info{"target_mean": stat.Mean(targets.RawVector().Data,
		nil)}
	return out, info, nil
}

// DoLearn takes one semi-gradient step on the mean squared TD error of
// the batch. The batch must carry the targets column set by PreLearn.
func (q *QLearning) DoLearn(b *batch.Batch, _ experience.Source) (
	*batch.Batch, policy.Info, error) {
	targets, err := b.Column(Targets)
	if err != nil {
		return nil, nil, fmt.Errorf("doLearn: %w", err)
	}

	actions, features := q.weights.Dims()
	n := b.Len()
	grad := mat.NewDense(actions, features, nil)
	var tdError float64

	for i := 0; i < n; i++ {
		a := int(b.Actions.At(i, 0))
		if a < 0 || a >= actions {
			return nil, nil, fmt.Errorf("doLearn: illegal action %v ∉ [0, %v)",
				b.Actions.At(i, 0), actions)
		}

		state := b.Obs.RowView(i)
		currentEstimate := mat.Dot(q.weights.RowView(a), state)
		delta := targets.AtVec(i) - currentEstimate
		tdError += math.Abs(delta)

		// ∇weights[a] = δ * state
		row := grad.RowView(a).(*mat.VecDense)
		row.AddScaledVec(row, delta, state)
	}

	grad.Scale(q.learningRate/float64(n), grad)
	q.weights.Add(q.weights, grad)

	info := policy.Info{"td_error": tdError / float64(n)}
	return b, info, nil
}

// PostLearn synchronizes the target weights every TargetSync calls
func (q *QLearning) PostLearn(_ *batch.Batch, _ experience.Source) (
	policy.Info, error) {
	q.updates++

	synced := q.updates%q.targetSync == 0
	if synced {
		q.target.Copy(q.weights)
	}

	return policy.Info{
		"target_synced": synced,
		"updates":       q.updates,
	}, nil
}

func (q *QLearning) features() int {
	_, c := q.weights.Dims()
	return c
}
