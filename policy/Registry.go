package policy

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/samuelfneumann/rlcode/device"
	"github.com/samuelfneumann/rlcode/environment"
)

// Params holds the hyperparameters of a policy as read from a
// configuration file
type Params map[string]interface{}

// Decode decodes the Params into the struct pointed to by out, matching
// keys to the struct's mapstructure tags. Fields not named by a key
// keep their current value, so out may hold defaults. Unknown keys are
// an error.
func (p Params) Decode(out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]interface{}(p))
}

// Factory constructs a policy for an environment
type Factory func(env environment.Environment, params Params, seed uint64,
	opts ...device.Option) (Policy, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register makes a policy available to New under the given name.
// Register panics if it is called twice with the same name or with a
// nil Factory.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if f == nil {
		panic("register: nil factory for policy " + name)
	}
	if _, dup := registry[name]; dup {
		panic("register: called twice for policy " + name)
	}
	registry[name] = f
}

// New constructs the policy registered under name. The constructed
// value is checked with Assert before it is returned.
func New(name string, env environment.Environment, params Params,
	seed uint64, opts ...device.Option) (Policy, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("new %q: %w", name, ErrUnknownPolicy)
	}

	p, err := f(env, params, seed, opts...)
	if err != nil {
		return nil, fmt.Errorf("new %q: %w", name, err)
	}
	if isNil(p) {
		return nil, fmt.Errorf("new %q: factory returned nil policy", name)
	}
	return Assert(p)
}

// Registered returns the sorted names of all registered policies
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// isNil reports whether p is nil or an interface holding a nil pointer
func isNil(p Policy) bool {
	if p == nil {
		return true
	}
	v := reflect.ValueOf(p)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
