// Package experiment implements functionality for running an experiment
package experiment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/samuelfneumann/rlcode/device"
	"github.com/samuelfneumann/rlcode/experience"
	"github.com/samuelfneumann/rlcode/experiment/tracker"
	"github.com/samuelfneumann/rlcode/policy"
)

type options struct {
	logger     zerolog.Logger
	registerer prometheus.Registerer
	tracker    tracker.Tracker
}

// Option configures a Trainer
type Option func(*options)

// WithLogger sets the logger of the Trainer and of the components New
// constructs for it
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithRegisterer sets the Prometheus registerer learning metrics are
// registered with. By default, each Trainer uses its own registry.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// WithTracker sets the Tracker that saves data when training ends,
// replacing the Return tracker configured by TrainerConfig.ReturnsPath
func WithTracker(t tracker.Tracker) Option {
	return func(o *options) {
		o.tracker = t
	}
}

func newOptions(opts []Option) options {
	o := options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.registerer == nil {
		o.registerer = prometheus.NewRegistry()
	}
	return o
}

// Trainer runs the training loop of an experiment. Each iteration
// collects a batch of experience and runs one learning step of the
// policy on it.
//
// Cancellation is only observed between learning steps and while
// collecting experience. A learning step always runs to completion.
type Trainer struct {
	policy    policy.Policy
	collector *experience.Collector
	config    TrainerConfig

	logger     zerolog.Logger
	metrics    *metrics
	tracker    tracker.Tracker
	runID      uuid.UUID
	iterations int
}

// New creates the environment, policy, and collector described by the
// Config and returns a Trainer for them
func New(c Config, opts ...Option) (*Trainer, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	o := newOptions(opts)

	env, _, err := c.Env.Create(c.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	devOpts, err := device.FromName(c.Device)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	devOpts = append(devOpts, device.WithLogger(o.logger))

	p, err := policy.New(c.Policy.Type, env, c.Policy.Params, c.Seed,
		devOpts...)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	actor, err := policy.NewActor(p, policy.ActionMode(c.Policy.ActionMode),
		c.Policy.Epsilon, c.Seed+1)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	collector, err := experience.NewCollector(env, actor,
		c.Trainer.BufferCapacity, c.Seed+2, experience.WithLogger(o.logger))
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return NewTrainer(p, collector, c.Trainer, opts...)
}

// NewTrainer returns a Trainer of the policy on experience from the
// collector
func NewTrainer(p policy.Policy, c *experience.Collector,
	config TrainerConfig, opts ...Option) (*Trainer, error) {
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("newTrainer: %w", err)
	}
	if config.Replay && config.BatchSize > c.Capacity() {
		return nil, fmt.Errorf("newTrainer: cannot replay batches of %v "+
			"from a buffer of capacity %v", config.BatchSize, c.Capacity())
	}
	o := newOptions(opts)

	m, err := newMetrics(o.registerer)
	if err != nil {
		return nil, fmt.Errorf("newTrainer: %w", err)
	}

	t := o.tracker
	if t == nil && config.ReturnsPath != "" {
		t = tracker.NewReturn(config.ReturnsPath)
	}

	runID := uuid.New()
	return &Trainer{
		policy:    p,
		collector: c,
		config:    config,
		logger:    o.logger.With().Str("run_id", runID.String()).Logger(),
		metrics:   m,
		tracker:   t,
		runID:     runID,
	}, nil
}

// RunID returns the unique ID attached to the Trainer's logs
func (t *Trainer) RunID() uuid.UUID {
	return t.runID
}

// Iterations returns the number of completed learning steps
func (t *Trainer) Iterations() int {
	return t.iterations
}

// Policy returns the policy being trained
func (t *Trainer) Policy() policy.Policy {
	return t.policy
}

// Source returns the experience source the policy learns from
func (t *Trainer) Source() experience.Source {
	return t.collector
}

// Run runs the configured number of learning steps, or until ctx is
// cancelled. Tracked data is saved when Run returns, even if training
// was cancelled or failed.
func (t *Trainer) Run(ctx context.Context) (err error) {
	defer func() {
		if saveErr := t.save(); saveErr != nil && err == nil {
			err = saveErr
		}
	}()

	t.logger.Info().
		Str("device", t.policy.Device().String()).
		Str("policy", fmt.Sprintf("%T", t.policy)).
		Int("iterations", t.config.Iterations).
		Msg("training started")

	for i := 0; i < t.config.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			t.logger.Warn().Int("iteration", t.iterations).
				Msg("training cancelled")
			return fmt.Errorf("run: %w", err)
		}

		info, err := t.step(ctx)
		if err != nil {
			return fmt.Errorf("run: iteration %v: %w", t.iterations+1, err)
		}
		t.iterations++
		t.metrics.observe(info, t.collector.Episodes())

		if t.iterations%t.config.LogEvery == 0 {
			t.logger.Info().
				Int("iteration", t.iterations).
				Int("steps", t.collector.Steps()).
				Int("episodes", t.collector.Episodes()).
				Fields(map[string]interface{}(info)).
				Msg("learn")
		}
	}

	t.logger.Info().Int("iterations", t.iterations).Msg("training finished")
	return nil
}

// step collects experience and runs a single learning step
func (t *Trainer) step(ctx context.Context) (policy.Info, error) {
	b, err := t.collector.Collect(ctx, t.config.BatchSize)
	if err != nil {
		return nil, err
	}

	if t.config.Replay {
		if b, err = t.collector.Sample(t.config.BatchSize); err != nil {
			return nil, err
		}
	}

	return policy.Learn(t.policy, b, t.collector)
}

// save saves the data of the Trainer's tracker, if any
func (t *Trainer) save() error {
	if t.tracker == nil {
		return nil
	}
	if err := t.tracker.Save(t.collector); err != nil {
		t.logger.Error().Err(err).Msg("could not save tracked data")
		return fmt.Errorf("save: %w", err)
	}
	t.logger.Info().Int("episodes", t.collector.Episodes()).
		Msg("tracked data saved")
	return nil
}
