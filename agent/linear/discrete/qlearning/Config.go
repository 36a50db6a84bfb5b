package qlearning

import (
	"fmt"
)

// Config represents a configuration for the QLearning policy
type Config struct {
	LearningRate float64 `mapstructure:"learning_rate"`

	// Number of calls to PostLearn between copies of the learned
	// weights into the target weights
	TargetSync int `mapstructure:"target_sync"`

	// Standard deviation of the normal distribution initial weights
	// are drawn from. Weights are zero when InitScale is 0.
	InitScale float64 `mapstructure:"init_scale"`
}

// DefaultConfig returns the Config used for any hyperparameter not
// given when constructing a QLearning policy through the policy
// registry
func DefaultConfig() Config {
	return Config{
		LearningRate: 0.1,
		TargetSync:   1,
	}
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("validate: learning rate must be > 0, got %v",
			c.LearningRate)
	}
	if c.TargetSync < 1 {
		return fmt.Errorf("validate: target sync must be >= 1, got %v",
			c.TargetSync)
	}
	if c.InitScale < 0 {
		return fmt.Errorf("validate: init scale must be >= 0, got %v",
			c.InitScale)
	}
	return nil
}
