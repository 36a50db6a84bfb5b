package policy_test

import (
	"testing"

	"github.com/samuelfneumann/rlcode/batch"
	"github.com/samuelfneumann/rlcode/device"
	"github.com/samuelfneumann/rlcode/environment"
	"github.com/samuelfneumann/rlcode/experience"
	"github.com/samuelfneumann/rlcode/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// noPostLearn implements every capability except PostLearn
type noPostLearn struct {
	policy.Base
}

func (noPostLearn) Forward(obs, _ tensor.Tensor) (tensor.Tensor, error) {
	return obs, nil
}

func (noPostLearn) PreLearn(b *batch.Batch, _ experience.Source) (
	*batch.Batch, policy.Info, error) {
	return b, nil, nil
}

func (noPostLearn) DoLearn(b *batch.Batch, _ experience.Source) (
	*batch.Batch, policy.Info, error) {
	return b, nil, nil
}

func TestAssertComplete(t *testing.T) {
	p, err := policy.Assert(newStub(t))
	require.NoError(t, err)
	assert.NotNil(t, p)
}

func TestAssertMissingCapability(t *testing.T) {
	_, err := policy.Assert(noPostLearn{})
	assert.ErrorIs(t, err, policy.ErrIncomplete)

	var incomplete *policy.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"PostLearn"}, incomplete.Missing)
}

func TestAssertNothing(t *testing.T) {
	_, err := policy.Assert(struct{}{})

	var incomplete *policy.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"Device", "Forward", "PreLearn", "DoLearn",
		"PostLearn"}, incomplete.Missing)
}

const (
	stubName     = "registry-test-stub"
	nilName      = "registry-test-nil"
	typedNilName = "registry-test-typed-nil"
)

func init() {
	policy.Register(stubName, func(environment.Environment, policy.Params,
		uint64, ...device.Option) (policy.Policy, error) {
		return &stub{}, nil
	})
	policy.Register(nilName, func(environment.Environment, policy.Params,
		uint64, ...device.Option) (policy.Policy, error) {
		return nil, nil
	})
	policy.Register(typedNilName, func(environment.Environment,
		policy.Params, uint64, ...device.Option) (policy.Policy, error) {
		var s *stub
		return s, nil
	})
}

func TestRegistry(t *testing.T) {
	assert.Contains(t, policy.Registered(), stubName)
	assert.Panics(t, func() {
		policy.Register(stubName, func(environment.Environment,
			policy.Params, uint64, ...device.Option) (policy.Policy, error) {
			return nil, nil
		})
	})
	assert.Panics(t, func() { policy.Register("registry-test-nil-factory", nil) })

	p, err := policy.New(stubName, nil, nil, 0)
	require.NoError(t, err)
	assert.IsType(t, &stub{}, p)

	_, err = policy.New("no-such-policy", nil, nil, 0)
	assert.ErrorIs(t, err, policy.ErrUnknownPolicy)
}

func TestRegistryNilPolicy(t *testing.T) {
	for _, name := range []string{nilName, typedNilName} {
		p, err := policy.New(name, nil, nil, 0)
		assert.Error(t, err, name)
		assert.Nil(t, p, name)
	}
}

func TestParamsDecode(t *testing.T) {
	var out struct {
		Rate  float64 `mapstructure:"rate"`
		Steps int     `mapstructure:"steps"`
	}

	err := policy.Params{"rate": "0.5", "steps": 3}.Decode(&out)
	require.NoError(t, err)
	assert.Equal(t, 0.5, out.Rate)
	assert.Equal(t, 3, out.Steps)

	err = policy.Params{"unknown": 1}.Decode(&out)
	assert.Error(t, err)
}
