// Package policy defines the interface of reinforcement learning
// policies and the learning procedure built from it.
//
// A Policy maps observations to action preferences through Forward and
// learns from batches of experience in three phases. PreLearn prepares
// the batch, for example by computing advantages. DoLearn performs the
// learning update itself. PostLearn finalizes the step, for example by
// synchronizing target weights or summarizing the experience source.
// Learn runs the three phases in order and merges the metrics each one
// reports.
//
// Concrete policies embed Base, which holds the device the policy was
// constructed for. The device cannot be changed after construction.
package policy

import (
	"github.com/samuelfneumann/rlcode/batch"
	"github.com/samuelfneumann/rlcode/device"
	"github.com/samuelfneumann/rlcode/experience"
	"gorgonia.org/tensor"
)

// Info holds metrics reported by a learning phase
type Info map[string]interface{}

// Forwarder computes action preferences, such as logits or action
// values, from a batch of observations. Rows of obs are observations.
// The masks argument may be nil; otherwise it has the same shape as
// the output, with 1 marking legal and 0 marking illegal actions.
type Forwarder interface {
	Forward(obs, masks tensor.Tensor) (tensor.Tensor, error)
}

// PreLearner prepares a batch before the learning update and returns
// the possibly transformed batch
type PreLearner interface {
	PreLearn(b *batch.Batch, src experience.Source) (*batch.Batch, Info, error)
}

// DoLearner performs the learning update and returns the possibly
// transformed batch
type DoLearner interface {
	DoLearn(b *batch.Batch, src experience.Source) (*batch.Batch, Info, error)
}

// PostLearner finalizes a learning step
type PostLearner interface {
	PostLearn(b *batch.Batch, src experience.Source) (Info, error)
}

// Devicer reports the device a policy runs on
type Devicer interface {
	Device() device.Device
}

// Policy is the full capability set every concrete policy implements
type Policy interface {
	Devicer
	Forwarder
	PreLearner
	DoLearner
	PostLearner
}

// Base holds the state shared by every Policy. Embed it in concrete
// policies to implement Devicer. The device is advisory: policies in
// this module compute on the CPU whatever device they report.
type Base struct {
	device device.Device
}

// NewBase returns a Base whose device is chosen by device.Select
func NewBase(opts ...device.Option) (Base, error) {
	d, err := device.Select(opts...)
	if err != nil {
		return Base{}, err
	}
	return Base{device: d}, nil
}

// Device returns the device the policy was constructed for
func (b Base) Device() device.Device {
	return b.device
}
