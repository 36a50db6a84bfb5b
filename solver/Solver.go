// Package solver implements configurations of Gorgonia Solvers so that
// they can be read from configuration files.
package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of solvers that are available
type Type string

// Available solver types
const (
	Adam    Type = "adam"
	Vanilla Type = "vanilla"
	RMSProp Type = "rmsprop"
)

// Config describes a Gorgonia Solver. Fields a solver type does not
// use are ignored; zero values are replaced with the solver's
// defaults by Create.
type Config struct {
	Type     Type    `mapstructure:"type"`
	StepSize float64 `mapstructure:"step_size"`
	Epsilon  float64 `mapstructure:"epsilon"` // Smoothing factor
	Beta1    float64 `mapstructure:"beta1"`
	Beta2    float64 `mapstructure:"beta2"`
	Rho      float64 `mapstructure:"rho"`
	Clip     float64 `mapstructure:"clip"`
}

// DefaultAdam returns the Config of an Adam solver with default
// hyperparameters
func DefaultAdam(stepSize float64) Config {
	return Config{
		Type:     Adam,
		StepSize: stepSize,
		Epsilon:  1e-8,
		Beta1:    0.9,
		Beta2:    0.999,
	}
}

// Validate returns an error describing why the Config is invalid, or
// nil if it is valid
func (c Config) Validate() error {
	switch c.Type {
	case Adam, Vanilla, RMSProp:
	default:
		return fmt.Errorf("validate: unknown solver type %q", c.Type)
	}

	if c.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be > 0, got %v",
			c.StepSize)
	}
	if c.Clip < 0 {
		return fmt.Errorf("validate: clip must be >= 0, got %v", c.Clip)
	}
	if c.Type == Adam && (c.Beta1 < 0 || c.Beta1 >= 1 || c.Beta2 < 0 ||
		c.Beta2 >= 1) {
		return fmt.Errorf("validate: adam betas must be in [0, 1), got "+
			"%v and %v", c.Beta1, c.Beta2)
	}
	return nil
}

// Create returns a new Gorgonia Solver as described by the Config
func (c Config) Create() (G.Solver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	opts := []G.SolverOpt{G.WithLearnRate(c.StepSize)}
	if c.Clip > 0 {
		opts = append(opts, G.WithClip(c.Clip))
	}

	switch c.Type {
	case Adam:
		if c.Epsilon > 0 {
			opts = append(opts, G.WithEps(c.Epsilon))
		}
		if c.Beta1 > 0 {
			opts = append(opts, G.WithBeta1(c.Beta1))
		}
		if c.Beta2 > 0 {
			opts = append(opts, G.WithBeta2(c.Beta2))
		}
		return G.NewAdamSolver(opts...), nil

	case RMSProp:
		if c.Epsilon > 0 {
			opts = append(opts, G.WithEps(c.Epsilon))
		}
		if c.Rho > 0 {
			opts = append(opts, G.WithRho(c.Rho))
		}
		return G.NewRMSPropSolver(opts...), nil

	default:
		return G.NewVanillaSolver(opts...), nil
	}
}
