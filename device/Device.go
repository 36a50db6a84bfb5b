// Package device describes the compute resource a policy runs on and
// selects one automatically when none is given.
//
// Auto-selection asks a Backend how many accelerators the host has,
// choosing the first accelerator if there is one and the CPU
// otherwise. The host Backend depends on the build: binaries built
// with the cuda tag query the CUDA driver, all others see only the CPU.
package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Kind is a type of compute device
type Kind int

const (
	CPU Kind = iota
	CUDA
)

func (k Kind) String() string {
	switch k {
	case CUDA:
		return "cuda"
	default:
		return "cpu"
	}
}

// Auto is the device name requesting automatic selection
const Auto = "auto"

// ErrInvalidDevice is returned when a device name cannot be parsed
var ErrInvalidDevice = errors.New("invalid device")

// Device identifies a single compute device
type Device struct {
	Kind  Kind
	Index int
}

// CPUDevice is the general purpose compute device
var CPUDevice = Device{Kind: CPU}

// Accelerator returns the i-th CUDA device
func Accelerator(i int) Device {
	return Device{Kind: CUDA, Index: i}
}

// IsAccelerator returns whether the Device is an accelerator
func (d Device) IsAccelerator() bool {
	return d.Kind == CUDA
}

// String returns the device name, e.g. "cpu" or "cuda:0"
func (d Device) String() string {
	if d.Kind == CPU {
		return "cpu"
	}
	return fmt.Sprintf("%v:%d", d.Kind, d.Index)
}

// Parse parses a device name of the form "cpu", "cuda" or "cuda:N"
func Parse(name string) (Device, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	kind, index, hasIndex := strings.Cut(name, ":")
	switch kind {
	case "cpu":
		if hasIndex {
			return Device{}, fmt.Errorf("parse %q: %w", name, ErrInvalidDevice)
		}
		return CPUDevice, nil

	case "cuda", "gpu":
		if !hasIndex {
			return Accelerator(0), nil
		}
		i, err := strconv.Atoi(index)
		if err != nil || i < 0 {
			return Device{}, fmt.Errorf("parse %q: %w", name, ErrInvalidDevice)
		}
		return Accelerator(i), nil
	}

	return Device{}, fmt.Errorf("parse %q: %w", name, ErrInvalidDevice)
}

// Backend is a host compute backend that can be queried for its
// accelerators
type Backend interface {
	Accelerators() (int, error)
}

// BackendFunc adapts a function to the Backend interface
type BackendFunc func() (int, error)

// Accelerators implements the Backend interface
func (f BackendFunc) Accelerators() (int, error) {
	return f()
}

// Host returns the Backend of the machine the program runs on
func Host() Backend {
	return hostBackend{}
}

type options struct {
	device  *Device
	backend Backend
	logger  zerolog.Logger
}

// Option configures device selection
type Option func(*options)

// WithDevice selects the given device explicitly, skipping detection
func WithDevice(d Device) Option {
	return func(o *options) {
		o.device = &d
	}
}

// WithBackend sets the Backend queried during auto-detection
func WithBackend(b Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// WithLogger sets the logger used to report detection failures
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// FromName returns the Option selecting the named device, or no Option
// if the name is empty or Auto.
func FromName(name string) ([]Option, error) {
	if name == "" || strings.EqualFold(name, Auto) {
		return nil, nil
	}
	d, err := Parse(name)
	if err != nil {
		return nil, err
	}
	return []Option{WithDevice(d)}, nil
}

// Select returns the explicitly requested device if there is one.
// Otherwise, it returns the first accelerator reported by the Backend,
// falling back to the CPU when the Backend reports none or fails.
func Select(opts ...Option) (Device, error) {
	o := options{
		backend: Host(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.device != nil {
		if o.device.Index < 0 {
			return Device{}, fmt.Errorf("select %v: %w", *o.device,
				ErrInvalidDevice)
		}
		return *o.device, nil
	}

	n, err := o.backend.Accelerators()
	if err != nil {
		o.logger.Warn().Err(err).Msg("accelerator detection failed, using cpu")
		return CPUDevice, nil
	}
	if n > 0 {
		return Accelerator(0), nil
	}
	return CPUDevice, nil
}
