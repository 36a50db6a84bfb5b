package experiment

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samuelfneumann/rlcode/device"
	"github.com/samuelfneumann/rlcode/environment/envconfig"
	"github.com/samuelfneumann/rlcode/experiment/tracker"
	"github.com/samuelfneumann/rlcode/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/samuelfneumann/rlcode/agent/linear/discrete/qlearning"
	_ "github.com/samuelfneumann/rlcode/agent/nonlinear/discrete/vanillapg"
)

func chainConfig(t *testing.T) Config {
	t.Helper()
	c := Default()
	c.Seed = 1
	c.Device = device.CPUDevice.String()
	c.Env = envconfig.Config{
		Environment:   envconfig.Chain,
		EpisodeCutoff: 20,
		Discount:      0.9,
		Length:        4,
	}
	c.Policy = PolicyConfig{
		Type:       "qlearning",
		ActionMode: "egreedy",
		Epsilon:    0.2,
		Params:     policy.Params{"learning_rate": 0.5},
	}
	c.Trainer = TrainerConfig{
		Iterations:     5,
		BatchSize:      8,
		BufferCapacity: 64,
		LogEvery:       2,
		ReturnsPath:    filepath.Join(t.TempDir(), "returns.bin"),
	}
	return c
}

func TestTrainerRun(t *testing.T) {
	c := chainConfig(t)
	reg := prometheus.NewRegistry()

	trainer, err := New(c, WithRegisterer(reg))
	require.NoError(t, err)
	assert.Equal(t, device.CPUDevice, trainer.Policy().Device())

	require.NoError(t, trainer.Run(context.Background()))
	assert.Equal(t, 5, trainer.Iterations())
	assert.Equal(t, 40, trainer.Source().Steps())
	assert.Equal(t, device.CPUDevice, trainer.Policy().Device())

	assert.Equal(t, 5.0, testutil.ToFloat64(trainer.metrics.iterations))
	assert.Equal(t, 5.0, testutil.ToFloat64(
		trainer.metrics.info.WithLabelValues("updates")))

	// One series per key of the Q-Learning info
	assert.Equal(t, 4, testutil.CollectAndCount(trainer.metrics.info))

	returns, err := tracker.LoadData(c.Trainer.ReturnsPath)
	require.NoError(t, err)
	assert.Equal(t, trainer.Source().EpisodeReturns(), returns)
}

func TestTrainerReplay(t *testing.T) {
	c := chainConfig(t)
	c.Trainer.Replay = true
	c.Trainer.ReturnsPath = ""

	trainer, err := New(c)
	require.NoError(t, err)
	require.NoError(t, trainer.Run(context.Background()))
	assert.Equal(t, 5, trainer.Iterations())
}

func TestTrainerVPG(t *testing.T) {
	c := chainConfig(t)
	c.Policy = PolicyConfig{
		Type:       "vpg",
		ActionMode: "sample",
		Params: policy.Params{
			"hidden":      []int{8},
			"activations": []string{"relu"},
			"value_steps": 1,
		},
	}
	c.Trainer.Iterations = 2

	trainer, err := New(c)
	require.NoError(t, err)
	require.NoError(t, trainer.Run(context.Background()))
	assert.Equal(t, 2, trainer.Iterations())
}

func TestTrainerCancelled(t *testing.T) {
	c := chainConfig(t)

	trainer, err := New(c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = trainer.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, trainer.Iterations())

	// Returns are still saved
	_, err = tracker.LoadData(c.Trainer.ReturnsPath)
	assert.NoError(t, err)
}

func TestNewUnknownPolicy(t *testing.T) {
	c := chainConfig(t)
	c.Policy.Type = "unknown"

	_, err := New(c)
	assert.ErrorIs(t, err, policy.ErrUnknownPolicy)
}

func TestNewDuplicateRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(chainConfig(t), WithRegisterer(reg))
	require.NoError(t, err)

	_, err = New(chainConfig(t), WithRegisterer(reg))
	assert.Error(t, err)
}

func TestFloat(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{1.5, 1.5, true},
		{float32(2), 2, true},
		{3, 3, true},
		{int64(4), 4, true},
		{true, 1, true},
		{false, 0, true},
		{"5", 0, false},
	}

	for _, test := range tests {
		got, ok := Float(test.in)
		assert.Equal(t, test.ok, ok, "%v", test.in)
		assert.Equal(t, test.want, got, "%v", test.in)
	}
}
