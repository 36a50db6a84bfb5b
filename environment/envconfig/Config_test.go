package envconfig

import (
	"testing"

	env "github.com/samuelfneumann/rlcode/environment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	tests := []struct {
		name     string
		config   Config
		obs      int
		actions  int
		discount float64
	}{
		{"cartpole", Default(), 4, 3, 0.99},
		{"chain", Config{Environment: Chain, EpisodeCutoff: 10,
			Discount: 0.5, Length: 5}, 5, 2, 0.5},
	}

	for _, test := range tests {
		e, step, err := test.config.Create(1)
		require.NoError(t, err, test.name)
		assert.True(t, step.First(), test.name)
		assert.Equal(t, test.obs, e.ObservationSpec().Shape.Len(), test.name)

		actions, err := env.NumActions(e.ActionSpec())
		require.NoError(t, err, test.name)
		assert.Equal(t, test.actions, actions, test.name)
		assert.Equal(t, test.discount, step.Discount, test.name)
	}
}

func TestCreateUnknown(t *testing.T) {
	_, _, err := Config{Environment: "Pendulum"}.Create(1)
	assert.Error(t, err)
}
