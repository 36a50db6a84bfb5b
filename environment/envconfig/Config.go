// Package envconfig provides configuration structs for configuring
// environments with default physical parameters and tasks.
// Environment configurations in this package can be decoded from
// configuration files.
package envconfig

import (
	"fmt"
	"math"

	env "github.com/samuelfneumann/rlcode/environment"
	"github.com/samuelfneumann/rlcode/environment/chain"
	"github.com/samuelfneumann/rlcode/environment/classiccontrol/cartpole"
	ts "github.com/samuelfneumann/rlcode/timestep"
	"gonum.org/v1/gonum/spatial/r1"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Cartpole EnvName = "Cartpole"
	Chain    EnvName = "Chain"
)

// Config implements a specific configuration of a specific
// environment. Cartpole always uses the Balance task.
type Config struct {
	Environment   EnvName `mapstructure:"environment" validate:"required,oneof=Cartpole Chain"`
	EpisodeCutoff int     `mapstructure:"episode_cutoff" validate:"gte=1"`
	Discount      float64 `mapstructure:"discount" validate:"gte=0,lte=1"`

	// Number of states in the Chain environment
	Length int `mapstructure:"length" validate:"omitempty,gte=2"`

	// Pole angle in degrees past which the Cartpole Balance task fails
	FailAngle float64 `mapstructure:"fail_angle" validate:"omitempty,gt=0,lt=180"`
}

// Default returns the default environment Config
func Default() Config {
	return Config{
		Environment:   Cartpole,
		EpisodeCutoff: 500,
		Discount:      0.99,
		Length:        10,
		FailAngle:     12,
	}
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep, error) {
	switch c.Environment {
	case Cartpole:
		return CreateCartpole(c.EpisodeCutoff, c.FailAngle, seed, c.Discount)

	case Chain:
		e, step, err := chain.New(c.Length, c.EpisodeCutoff, c.Discount)
		if err != nil {
			return nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
		}
		return e, step, nil
	}

	return nil, ts.TimeStep{}, fmt.Errorf("create: cannot create "+
		"environment %v, no such environment", c.Environment)
}

// CreateCartpole is a factory for creating the Cartpole environment
// with default physical parameters and the Balance task. The fail
// angle is given in degrees.
func CreateCartpole(cutoff int, failAngle float64, seed uint64,
	discount float64) (env.Environment, ts.TimeStep, error) {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	s := env.NewUniformStarter([]r1.Interval{bounds, bounds, bounds, bounds},
		seed)

	angle := cartpole.FailAngle
	if failAngle > 0 {
		angle = failAngle * math.Pi / 180
	}
	task := cartpole.NewBalance(s, cutoff, angle)

	e, step, err := cartpole.NewDiscrete(task, discount)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("createCartpole: %w", err)
	}
	return e, step, nil
}
