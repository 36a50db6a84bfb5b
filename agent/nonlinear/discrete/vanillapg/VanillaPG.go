// Package vanillapg implements the Vanilla Policy Gradient algorithm
// with generalized advantage estimation for discrete actions.
package vanillapg

import (
	"fmt"

	"github.com/samuelfneumann/rlcode/batch"
	"github.com/samuelfneumann/rlcode/device"
	"github.com/samuelfneumann/rlcode/environment"
	"github.com/samuelfneumann/rlcode/experience"
	"github.com/samuelfneumann/rlcode/network"
	"github.com/samuelfneumann/rlcode/policy"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Name is the name VPG is registered under in the policy registry
const Name = "vpg"

func init() {
	policy.Register(Name, factory)
}

// factory constructs a VPG from registry Params, filling in the
// DefaultConfig for missing hyperparameters
func factory(env environment.Environment, params policy.Params,
	seed uint64, opts ...device.Option) (policy.Policy, error) {
	c := DefaultConfig()
	if err := params.Decode(&c); err != nil {
		return nil, err
	}
	return New(env, c, seed, opts...)
}

// VPG implements the Vanilla Policy Gradient algorithm with generalized
// advantage estimation. This implementation is adapted from:
//
// https://spinningup.openai.com/en/latest/algorithms/vpg.html
//
// The policy is a categorical distribution whose logits are the output
// of an MLP. A second MLP estimates state values, which are used to
// compute advantages in PreLearn.
type VPG struct {
	policy.Base

	actor        *network.MLP
	actorSolver  G.Solver
	critic       *network.MLP
	criticSolver G.Solver

	actions    int
	gamma      float64
	lambda     float64
	valueSteps int
	updates    int
}

var _ policy.Policy = &VPG{}

// New creates and returns a new VPG for the environment, which must
// have a single discrete action dimension
func New(env environment.Environment, c Config, seed uint64,
	opts ...device.Option) (*VPG, error) {
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

	acts, err := c.activations()
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	actor, err := network.NewMLP(features, c.Hidden, acts, actions, seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy network: %w",
			err)
	}
	critic, err := network.NewMLP(features, c.Hidden, acts, 1, seed+1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create critic: %w", err)
	}

	actorSolver, err := c.PolicySolver.Create()
	if err != nil {
		return nil, fmt.Errorf("new: policy solver: %w", err)
	}
	criticSolver, err := c.ValueSolver.Create()
	if err != nil {
		return nil, fmt.Errorf("new: value solver: %w", err)
	}

	return &VPG{
		Base:         base,
		actor:        actor,
		actorSolver:  actorSolver,
		critic:       critic,
		criticSolver: criticSolver,
		actions:      actions,
		gamma:        c.Gamma,
		lambda:       c.Lambda,
		valueSteps:   c.ValueSteps,
	}, nil
}

// Forward returns the action logits for each row of obs. Illegal
// actions in masks get logits of -Inf.
func (v *VPG) Forward(obs, masks tensor.Tensor) (tensor.Tensor, error) {
	in, err := batch.FromTensor(obs)
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}
	logits, err := v.actor.Predict(batch.Tensor(in))
	if err != nil {
		return nil, fmt.Errorf("forward: %w", err)
	}
	return policy.ApplyMask(logits, masks)
}

// PreLearn computes standardized advantages and rewards-to-go of the
// batch using the critic's state value estimates. The returned batch
// is a copy of b with the advantages and returns columns set.
func (v *VPG) PreLearn(b *batch.Batch, _ experience.Source) (*batch.Batch,
	policy.Info, error) {
	values, err := stateValues(v.critic, b.Obs)
	if err != nil {
		return nil, nil, fmt.Errorf("preLearn: %w", err)
	}
	nextValues, err := stateValues(v.critic, b.NextObs)
	if err != nil {
		return nil, nil, fmt.Errorf("preLearn: %w", err)
	}

	out := b.Clone()
	if err := batch.GAE(out, values, nextValues, v.gamma, v.lambda); err != nil {
		return nil, nil, fmt.Errorf("preLearn: %w", err)
	}

	adv, _ := out.Column(batch.Advantages)
	ret, _ := out.Column(batch.Returns)
	info := policy.Info{
		"advantage_mean": stat.Mean(adv.RawVector().Data, nil),
		"return_mean":    stat.Mean(ret.RawVector().Data, nil),
	}

	if err := out.Standardize(batch.Advantages); err != nil {
		return nil, nil, fmt.Errorf("preLearn: %w", err)
	}
	return out, info, nil
}

// DoLearn takes one policy gradient step followed by a number of
// critic steps towards the rewards-to-go. The batch must carry the
// columns set by PreLearn.
func (v *VPG) DoLearn(b *batch.Batch, _ experience.Source) (*batch.Batch,
	policy.Info, error) {
	adv, err := b.Column(batch.Advantages)
	if err != nil {
		return nil, nil, fmt.Errorf("doLearn: %w", err)
	}
	ret, err := b.Column(batch.Returns)
	if err != nil {
		return nil, nil, fmt.Errorf("doLearn: %w", err)
	}
	actions, err := oneHot(b.Actions, v.actions)
	if err != nil {
		return nil, nil, fmt.Errorf("doLearn: %w", err)
	}

	n := b.Len()
	obs := batch.Tensor(b.Obs)

	// Policy gradient step
	advantages := tensor.New(tensor.WithShape(n),
		tensor.WithBacking(mat.Col(nil, 0, adv)))
	policyLoss, err := v.actor.Step(obs, v.actorSolver,
		func(g *G.ExprGraph, logits *G.Node) (*G.Node, error) {
			a := G.NewMatrix(g, tensor.Float64, G.WithShape(n, v.actions),
				G.WithName("Actions"), G.WithValue(actions))
			advNode := G.NewVector(g, tensor.Float64, G.WithShape(n),
				G.WithName("Advantages"), G.WithValue(advantages))

			logProb := logProbOf(logits, a)
			loss := G.Must(G.HadamardProd(logProb, advNode))
			loss = G.Must(G.Mean(loss))
			return G.Neg(loss)
		})
	if err != nil {
		return nil, nil, fmt.Errorf("doLearn: policy: %w", err)
	}

	// Value function update
	targets := tensor.New(tensor.WithShape(n, 1),
		tensor.WithBacking(mat.Col(nil, 0, ret)))
	var valueLoss float64
	for i := 0; i < v.valueSteps; i++ {
		loss, err := v.critic.Step(obs, v.criticSolver,
			func(g *G.ExprGraph, values *G.Node) (*G.Node, error) {
				t := G.NewMatrix(g, tensor.Float64, G.WithShape(n, 1),
					G.WithName("Value Function Update Target"),
					G.WithValue(targets))

				loss := G.Must(G.Sub(values, t))
				loss = G.Must(G.Square(loss))
				return G.Mean(loss)
			})
		if err != nil {
			return nil, nil, fmt.Errorf("doLearn: critic: %w", err)
		}
		if i == 0 {
			valueLoss = loss
		}
	}

	info := policy.Info{
		"policy_loss": policyLoss,
		"value_loss":  valueLoss,
	}
	return b, info, nil
}

// PostLearn counts the update and summarizes the experience source
func (v *VPG) PostLearn(_ *batch.Batch, src experience.Source) (policy.Info,
	error) {
	v.updates++
	info := policy.Info{"updates": v.updates}

	if src == nil {
		return info, nil
	}
	info["episodes"] = src.Episodes()
	if returns := src.EpisodeReturns(); len(returns) > 0 {
		if len(returns) > experience.ReturnWindow {
			returns = returns[len(returns)-experience.ReturnWindow:]
		}
		info["mean_return"] = stat.Mean(returns, nil)
	}
	return info, nil
}

// stateValues returns the critic's estimate of the value of each row
// of obs
func stateValues(critic *network.MLP, obs *mat.Dense) (*mat.VecDense,
	error) {
	out, err := critic.Predict(batch.Tensor(obs))
	if err != nil {
		return nil, err
	}
	values, ok := out.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("unexpected critic output type %T", out.Data())
	}
	return mat.NewVecDense(len(values), values), nil
}

// oneHot returns the one-hot encoding of the single column of discrete
// actions as an n x actions tensor
func oneHot(actions *mat.Dense, numActions int) (*tensor.Dense, error) {
	n, c := actions.Dims()
	if c != 1 {
		return nil, fmt.Errorf("oneHot: expected 1 action dimension, got %v",
			c)
	}

	backing := make([]float64, n*numActions)
	for i := 0; i < n; i++ {
		a := int(actions.At(i, 0))
		if a < 0 || a >= numActions || float64(a) != actions.At(i, 0) {
			return nil, fmt.Errorf("oneHot: illegal action %v ∉ [0, %v)",
				actions.At(i, 0), numActions)
		}
		backing[i*numActions+a] = 1.0
	}
	return tensor.New(tensor.WithShape(n, numActions),
		tensor.WithBacking(backing)), nil
}

// logProbOf returns the log probability of the one-hot encoded actions
// under the categorical distribution with the given logits
func logProbOf(logits, actions *G.Node) *G.Node {
	selected := G.Must(G.HadamardProd(actions, logits))
	selected = G.Must(G.Sum(selected, 1))
	return G.Must(G.Sub(selected, logSumExp(logits, 1)))
}

// logSumExp returns log(Σ exp(logits)) along an axis, computed after
// subtracting the maximum logit
func logSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))
	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}
