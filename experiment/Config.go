package experiment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samuelfneumann/rlcode/environment/envconfig"
	"github.com/samuelfneumann/rlcode/policy"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override
// configuration file values, e.g. RLCODE_TRAINER_ITERATIONS
const EnvPrefix = "RLCODE"

// Config represents a configuration of an experiment
type Config struct {
	Seed     uint64 `mapstructure:"seed"`
	Device   string `mapstructure:"device"` // "auto", "cpu", "cuda:N"
	LogLevel string `mapstructure:"log_level" validate:"oneof=trace debug info warn error"`

	Env     envconfig.Config `mapstructure:"env"`
	Policy  PolicyConfig     `mapstructure:"policy"`
	Trainer TrainerConfig    `mapstructure:"trainer"`
}

// PolicyConfig describes the policy trained in an experiment and how
// it selects actions while collecting experience
type PolicyConfig struct {
	Type       string        `mapstructure:"type" validate:"required"`
	ActionMode string        `mapstructure:"action_mode" validate:"oneof=sample greedy egreedy"`
	Epsilon    float64       `mapstructure:"epsilon" validate:"gte=0,lte=1"`
	Params     policy.Params `mapstructure:"params"`
}

// TrainerConfig describes the training loop
type TrainerConfig struct {
	Iterations     int `mapstructure:"iterations" validate:"gte=1"`
	BatchSize      int `mapstructure:"batch_size" validate:"gte=1"`
	BufferCapacity int `mapstructure:"buffer_capacity" validate:"gtefield=BatchSize"`
	LogEvery       int `mapstructure:"log_every" validate:"gte=1"`

	// Learn from a uniform sample of the replay buffer instead of the
	// freshly collected batch
	Replay bool `mapstructure:"replay"`

	// File episodic returns are saved to when training ends. Returns
	// are not saved if empty.
	ReturnsPath string `mapstructure:"returns_path"`
}

// Default returns the default Config
func Default() Config {
	return Config{
		Seed:     0,
		Device:   "auto",
		LogLevel: "info",
		Env:      envconfig.Default(),
		Policy: PolicyConfig{
			Type:       "vpg",
			ActionMode: "sample",
			Params:     policy.Params{},
		},
		Trainer: TrainerConfig{
			Iterations:     100,
			BatchSize:      1000,
			BufferCapacity: 10000,
			LogEvery:       1,
		},
	}
}

var validate = validator.New()

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, e := range verrs {
				msgs[i] = fmt.Sprintf("%s failed on %q", e.Namespace(), e.Tag())
			}
			return fmt.Errorf("validate: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// Load reads the Config from a YAML, JSON, or TOML file. Values missing
// from the file take their Default value, and every value may be
// overridden by an environment variable named after its key with the
// RLCODE_ prefix. If filename is empty, only defaults and environment
// variables are used.
func Load(filename string) (Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if filename != "" {
		v.SetConfigFile(filename)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("load: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}
	if c.Policy.Params == nil {
		c.Policy.Params = policy.Params{}
	}

	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("load: %w", err)
	}
	return c, nil
}

// setDefaults registers every key of c with v so that environment
// variables can override keys missing from the configuration file
func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("seed", c.Seed)
	v.SetDefault("device", c.Device)
	v.SetDefault("log_level", c.LogLevel)

	v.SetDefault("env.environment", string(c.Env.Environment))
	v.SetDefault("env.episode_cutoff", c.Env.EpisodeCutoff)
	v.SetDefault("env.discount", c.Env.Discount)
	v.SetDefault("env.length", c.Env.Length)
	v.SetDefault("env.fail_angle", c.Env.FailAngle)

	v.SetDefault("policy.type", c.Policy.Type)
	v.SetDefault("policy.action_mode", c.Policy.ActionMode)
	v.SetDefault("policy.epsilon", c.Policy.Epsilon)

	v.SetDefault("trainer.iterations", c.Trainer.Iterations)
	v.SetDefault("trainer.batch_size", c.Trainer.BatchSize)
	v.SetDefault("trainer.buffer_capacity", c.Trainer.BufferCapacity)
	v.SetDefault("trainer.log_every", c.Trainer.LogEvery)
	v.SetDefault("trainer.replay", c.Trainer.Replay)
	v.SetDefault("trainer.returns_path", c.Trainer.ReturnsPath)
}
