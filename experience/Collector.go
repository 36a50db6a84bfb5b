package experience

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samuelfneumann/rlcode/batch"
	"github.com/samuelfneumann/rlcode/environment"
	ts "github.com/samuelfneumann/rlcode/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// ReturnWindow is the number of most recent episodes the mean_return
// statistic is computed over
const ReturnWindow = 100

// Collector steps an Environment with an Actor and records every
// transition in a bounded FIFO buffer. Fresh on-policy batches are
// returned by Collect and replayed batches are drawn with Sample.
//
// A Collector is not safe for concurrent use.
type Collector struct {
	env    environment.Environment
	actor  Actor
	logger zerolog.Logger
	rng    *rand.Rand

	buffer   []ts.Transition
	capacity int
	next     int // Position of the next insert
	size     int

	current       ts.TimeStep
	steps         int
	currentReturn float64
	returns       []float64
}

var _ Source = &Collector{}

// CollectorOption configures a Collector
type CollectorOption func(*Collector)

// WithLogger sets the Collector's logger
func WithLogger(l zerolog.Logger) CollectorOption {
	return func(c *Collector) {
		c.logger = l
	}
}

// NewCollector returns a Collector that stores up to capacity
// transitions. The environment is reset to start the first episode.
func NewCollector(env environment.Environment, actor Actor, capacity int,
	seed uint64, opts ...CollectorOption) (*Collector, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("newCollector: capacity must be >= 1, got %v",
			capacity)
	}

	c := &Collector{
		env:      env,
		actor:    actor,
		logger:   zerolog.Nop(),
		rng:      rand.New(rand.NewSource(seed)),
		buffer:   make([]ts.Transition, capacity),
		capacity: capacity,
	}
	for _, opt := range opts {
		opt(c)
	}

	step, err := env.Reset()
	if err != nil {
		return nil, fmt.Errorf("newCollector: %w", err)
	}
	c.current = step

	return c, nil
}

// SetActor replaces the Actor used to select actions
func (c *Collector) SetActor(a Actor) {
	c.actor = a
}

// Collect takes n environment steps and returns a Batch of exactly
// those transitions. Episodes are reset as they end, so the Batch may
// span several episodes. The context is checked before each step.
func (c *Collector) Collect(ctx context.Context, n int) (*batch.Batch, error) {
	if n < 1 {
		return nil, &Error{"collect", fmt.Errorf("must collect >= 1 " +
			"step")}
	}

	transitions := make([]ts.Transition, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, &Error{"collect", err}
		}

		t, err := c.step()
		if err != nil {
			return nil, &Error{"collect", err}
		}
		transitions = append(transitions, t)
	}

	return batch.FromTransitions(transitions)
}

// step takes a single environment step, records the transition, and
// resets the environment if the episode ended
func (c *Collector) step() (ts.Transition, error) {
	action, err := c.actor.Act(c.current.Observation)
	if err != nil {
		return ts.Transition{}, fmt.Errorf("act: %w", err)
	}

	next, done, err := c.env.Step(action)
	if err != nil {
		return ts.Transition{}, fmt.Errorf("step: %w", err)
	}

	t := ts.NewTransition(c.current, action, next)
	c.add(t)
	c.steps++
	c.currentReturn += next.Reward

	if done {
		c.returns = append(c.returns, c.currentReturn)
		c.logger.Debug().
			Int("episode", len(c.returns)).
			Int("length", next.Number).
			Float64("return", c.currentReturn).
			Str("end", next.EndType().String()).
			Msg("episode finished")
		c.currentReturn = 0

		next, err = c.env.Reset()
		if err != nil {
			return ts.Transition{}, fmt.Errorf("reset: %w", err)
		}
	}
	c.current = next

	return t, nil
}

// add inserts a transition, overwriting the oldest when full
func (c *Collector) add(t ts.Transition) {
	c.buffer[c.next] = t
	c.next = (c.next + 1) % c.capacity
	if c.size < c.capacity {
		c.size++
	}
}

// Sample returns a Batch of n transitions drawn uniformly with
// replacement from the buffer
func (c *Collector) Sample(n int) (*batch.Batch, error) {
	if c.size == 0 {
		return nil, &Error{"sample", ErrEmptyBuffer}
	}
	if n > c.size {
		return nil, &Error{"sample", fmt.Errorf("%w: want %v, have %v",
			ErrInsufficientSamples, n, c.size)}
	}

	transitions := make([]ts.Transition, n)
	for i := range transitions {
		transitions[i] = c.buffer[c.rng.Intn(c.size)]
	}
	return batch.FromTransitions(transitions)
}

// Len returns the number of transitions in the buffer
func (c *Collector) Len() int {
	return c.size
}

// Capacity returns the maximum number of transitions in the buffer
func (c *Collector) Capacity() int {
	return c.capacity
}

// Steps implements the Source interface
func (c *Collector) Steps() int {
	return c.steps
}

// Episodes implements the Source interface
func (c *Collector) Episodes() int {
	return len(c.returns)
}

// EpisodeReturns implements the Source interface
func (c *Collector) EpisodeReturns() []float64 {
	return append([]float64(nil), c.returns...)
}

// Stats implements the Source interface. The mean_return and
// last_return statistics are only present once an episode has
// completed.
func (c *Collector) Stats() map[string]float64 {
	stats := map[string]float64{
		"steps":       float64(c.steps),
		"episodes":    float64(len(c.returns)),
		"buffer_size": float64(c.size),
	}

	if n := len(c.returns); n > 0 {
		window := c.returns
		if n > ReturnWindow {
			window = window[n-ReturnWindow:]
		}
		stats["mean_return"] = stat.Mean(window, nil)
		stats["last_return"] = c.returns[n-1]
	}
	return stats
}
