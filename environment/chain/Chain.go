// Package chain implements a deterministic chain environment.
//
// The agent starts at the left end of a chain of states and may step
// left or right. Reaching the right end yields a reward of +1 and ends
// the episode in a terminal state; every other step yields 0. Episodes
// that take too long are cut off with a Timeout. Observations are
// one-hot encodings of the agent's position.
package chain

import (
	"fmt"

	env "github.com/samuelfneumann/rlcode/environment"
	ts "github.com/samuelfneumann/rlcode/timestep"
	"gonum.org/v1/gonum/mat"
)

// Actions
const (
	Left  int = 0
	Right int = 1
)

// Chain implements the environment.Environment interface
type Chain struct {
	length      int
	discount    float64
	stepLimiter *env.StepLimit
	position    int
	lastStep    ts.TimeStep
}

var _ env.Environment = &Chain{}

// New returns a new Chain with the given number of states and the
// first timestep of the first episode
func New(length, episodeSteps int, discount float64) (*Chain, ts.TimeStep,
	error) {
	if length < 2 {
		return nil, ts.TimeStep{}, fmt.Errorf("new: chain length must be "+
			">= 2, got %v", length)
	}
	if episodeSteps < 1 {
		return nil, ts.TimeStep{}, fmt.Errorf("new: episode steps must be "+
			">= 1, got %v", episodeSteps)
	}

	c := &Chain{
		length:      length,
		discount:    discount,
		stepLimiter: env.NewStepLimit(episodeSteps),
	}
	step, err := c.Reset()
	return c, step, err
}

// Start returns the starting observation, the left end of the chain
func (c *Chain) Start() *mat.VecDense {
	return c.observation(0)
}

// End ends the episode in a terminal state at the right end of the
// chain, or with a Timeout at the step limit
func (c *Chain) End(t *ts.TimeStep) bool {
	if t.Observation.AtVec(c.length-1) == 1 {
		t.SetEnd(ts.TerminalStateReached)
		return true
	}
	return c.stepLimiter.End(t)
}

// GetReward returns +1 for entering the right end of the chain
func (c *Chain) GetReward(_, _, nextState mat.Vector) float64 {
	if nextState.AtVec(c.length-1) == 1 {
		return 1.0
	}
	return 0.0
}

// RewardSpec returns the reward specification of the environment
func (c *Chain) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	return env.NewSpec(shape, env.Reward, mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{1}), env.Continuous)
}

// Reset starts a new episode
func (c *Chain) Reset() (ts.TimeStep, error) {
	c.position = 0
	c.lastStep = ts.New(ts.First, 0, c.discount, c.Start(), 0)
	return c.lastStep, nil
}

// Step moves the agent left or right
func (c *Chain) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() != 1 {
		return ts.TimeStep{}, false, fmt.Errorf("step: actions should be "+
			"1-dimensional, got %v", a.Len())
	}
	if c.lastStep.Last() {
		return ts.TimeStep{}, false, fmt.Errorf("step: episode has ended, " +
			"call Reset")
	}

	switch int(a.AtVec(0)) {
	case Left:
		if c.position > 0 {
			c.position--
		}
	case Right:
		c.position++
	default:
		return ts.TimeStep{}, false, fmt.Errorf("step: illegal action %v",
			a.AtVec(0))
	}

	obs := c.observation(c.position)
	reward := c.GetReward(c.lastStep.Observation, a, obs)
	next := ts.New(ts.Mid, reward, c.discount, obs, c.lastStep.Number+1)
	c.End(&next)

	c.lastStep = next
	return next, next.Last(), nil
}

// ObservationSpec returns the observation specification
func (c *Chain) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(c.length, nil)
	lower := mat.NewVecDense(c.length, nil)
	upper := mat.NewVecDense(c.length, nil)
	for i := 0; i < c.length; i++ {
		upper.SetVec(i, 1)
	}
	return env.NewSpec(shape, env.Observation, lower, upper, env.Discrete)
}

// ActionSpec returns the action specification
func (c *Chain) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	return env.NewSpec(shape, env.Action,
		mat.NewVecDense(1, []float64{float64(Left)}),
		mat.NewVecDense(1, []float64{float64(Right)}), env.Discrete)
}

// DiscountSpec returns the discount specification
func (c *Chain) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	d := mat.NewVecDense(1, []float64{c.discount})
	return env.NewSpec(shape, env.Discount, d, d, env.Continuous)
}

func (c *Chain) observation(position int) *mat.VecDense {
	obs := mat.NewVecDense(c.length, nil)
	obs.SetVec(position, 1)
	return obs
}
