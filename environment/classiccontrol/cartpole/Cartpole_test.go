package cartpole

import (
	"testing"

	env "github.com/samuelfneumann/rlcode/environment"
	ts "github.com/samuelfneumann/rlcode/timestep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

func newTestCartpole(t *testing.T, episodeSteps int) (*Discrete, ts.TimeStep) {
	t.Helper()
	bound := r1.Interval{Min: -0.05, Max: 0.05}
	s := env.NewUniformStarter([]r1.Interval{bound, bound, bound, bound}, 1)
	task := NewBalance(s, episodeSteps, FailAngle)

	c, step, err := NewDiscrete(task, 0.99)
	require.NoError(t, err)
	return c, step
}

func TestNewDiscrete(t *testing.T) {
	c, step := newTestCartpole(t, 10)

	assert.True(t, step.First())
	assert.Equal(t, 0, step.Number)
	assert.Equal(t, ObservationDims, step.Observation.Len())

	n, err := env.NumActions(c.ActionSpec())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestStepIllegalAction(t *testing.T) {
	c, _ := newTestCartpole(t, 10)

	for _, a := range []float64{-1, 3} {
		_, _, err := c.Step(mat.NewVecDense(1, []float64{a}))
		assert.Error(t, err, "action %v", a)
	}
}

func TestStepLimitEndsEpisode(t *testing.T) {
	c, _ := newTestCartpole(t, 5)

	var (
		step ts.TimeStep
		done bool
		err  error
	)
	for i := 0; i < 5 && !done; i++ {
		step, done, err = c.Step(mat.NewVecDense(1, []float64{1}))
		require.NoError(t, err)
		assert.Equal(t, i+1, step.Number)
	}

	require.True(t, done)
	assert.True(t, step.Last())

	// Doing nothing for 5 steps from a near-upright start should time
	// out rather than fail
	if step.Reward > 0 {
		assert.Equal(t, ts.Timeout, step.EndType())
		assert.False(t, step.TerminalEnd())
	}

	_, _, err = c.Step(mat.NewVecDense(1, []float64{1}))
	assert.Error(t, err, "stepping a finished episode should fail")

	step, err = c.Reset()
	require.NoError(t, err)
	assert.True(t, step.First())
}

func TestPoleFallsIsTerminal(t *testing.T) {
	c, _ := newTestCartpole(t, 1000)

	var (
		step ts.TimeStep
		done bool
		err  error
	)
	for !done {
		step, done, err = c.Step(mat.NewVecDense(1, []float64{2}))
		require.NoError(t, err)
	}

	assert.True(t, step.TerminalEnd())
	assert.Less(t, step.Number, 1000)
}
