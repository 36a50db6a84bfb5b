package vanillapg

import (
	"fmt"

	"github.com/samuelfneumann/rlcode/network"
	"github.com/samuelfneumann/rlcode/solver"
)

// Config represents a configuration for the VPG policy
type Config struct {
	// Hidden layer sizes and activations, shared by the policy and
	// critic networks
	Hidden      []int    `mapstructure:"hidden"`
	Activations []string `mapstructure:"activations"`

	// Generalized Advantage Estimation
	Gamma  float64 `mapstructure:"gamma"`
	Lambda float64 `mapstructure:"lambda"`

	// Number of critic gradient steps per call to DoLearn
	ValueSteps int `mapstructure:"value_steps"`

	PolicySolver solver.Config `mapstructure:"policy_solver"`
	ValueSolver  solver.Config `mapstructure:"value_solver"`
}

// DefaultConfig returns the Config used for any hyperparameter not
// given when constructing a VPG through the policy registry
func DefaultConfig() Config {
	return Config{
		Hidden:       []int{64, 64},
		Activations:  []string{"tanh", "tanh"},
		Gamma:        0.99,
		Lambda:       0.97,
		ValueSteps:   5,
		PolicySolver: solver.DefaultAdam(3e-4),
		ValueSolver:  solver.DefaultAdam(1e-3),
	}
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if len(c.Hidden) != len(c.Activations) {
		return fmt.Errorf("validate: %v hidden layers with %v activations",
			len(c.Hidden), len(c.Activations))
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: gamma must be in [0, 1], got %v",
			c.Gamma)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("validate: lambda must be in [0, 1], got %v",
			c.Lambda)
	}
	if c.ValueSteps < 0 {
		return fmt.Errorf("validate: value steps must be >= 0, got %v",
			c.ValueSteps)
	}
	if err := c.PolicySolver.Validate(); err != nil {
		return fmt.Errorf("validate: policy solver: %w", err)
	}
	if err := c.ValueSolver.Validate(); err != nil {
		return fmt.Errorf("validate: value solver: %w", err)
	}
	return nil
}

// activations parses the activation names of the Config
func (c Config) activations() ([]*network.Activation, error) {
	acts := make([]*network.Activation, len(c.Activations))
	for i, name := range c.Activations {
		act, err := network.ParseActivation(name)
		if err != nil {
			return nil, err
		}
		acts[i] = act
	}
	return acts, nil
}
