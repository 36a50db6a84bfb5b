package policy

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/rlcode/batch"
	"github.com/samuelfneumann/rlcode/experience"
	"github.com/samuelfneumann/rlcode/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	"gorgonia.org/tensor"
)

// ActionMode determines how an Actor turns action preferences into
// discrete actions
type ActionMode string

const (
	// Sample draws actions from the softmax of the preferences
	Sample ActionMode = "sample"

	// Greedy takes the action with the highest preference
	Greedy ActionMode = "greedy"

	// EGreedy takes a uniform random action with probability ε and
	// the greedy action otherwise
	EGreedy ActionMode = "egreedy"
)

// Actor selects discrete actions for single observations using a
// Forwarder
type Actor struct {
	forwarder Forwarder
	mode      ActionMode
	epsilon   float64
	src       rand.Source
	rng       *rand.Rand
}

var _ experience.Actor = &Actor{}

// NewActor returns an Actor selecting actions from the output of f.
// The epsilon argument is only used by EGreedy.
func NewActor(f Forwarder, mode ActionMode, epsilon float64,
	seed uint64) (*Actor, error) {
	switch mode {
	case Sample, Greedy:
	case EGreedy:
		if epsilon < 0 || epsilon > 1 {
			return nil, fmt.Errorf("newActor: epsilon must be in [0, 1], "+
				"got %v", epsilon)
		}
	default:
		return nil, fmt.Errorf("newActor: unknown action mode %q", mode)
	}

	src := rand.NewSource(seed)
	return &Actor{
		forwarder: f,
		mode:      mode,
		epsilon:   epsilon,
		src:       src,
		rng:       rand.New(src),
	}, nil
}

// Act implements the experience.Actor interface
func (a *Actor) Act(obs mat.Vector) (*mat.VecDense, error) {
	input := tensor.New(
		tensor.WithShape(1, obs.Len()),
		tensor.WithBacking(mat.Col(nil, 0, obs)),
	)

	out, err := a.forwarder.Forward(input, nil)
	if err != nil {
		return nil, fmt.Errorf("act: %w", err)
	}
	prefs, err := batch.FromTensor(out)
	if err != nil {
		return nil, fmt.Errorf("act: %w", err)
	}
	values := prefs.RawRowView(0)
	if math.IsInf(floats.Max(values), -1) {
		return nil, fmt.Errorf("act: no legal action in %v", values)
	}

	var action int
	switch a.mode {
	case Greedy:
		action = floatutils.ArgMax(values)

	case EGreedy:
		if a.rng.Float64() < a.epsilon {
			action = a.rng.Intn(len(values))
		} else {
			action = floatutils.ArgMax(values)
		}

	case Sample:
		probs := Softmax(values)
		action = int(distuv.NewCategorical(probs, a.src).Rand())
	}

	return mat.NewVecDense(1, []float64{float64(action)}), nil
}

// Softmax returns the softmax of values. Entries of -Inf receive zero
// probability, unless every entry is -Inf, in which case the
// distribution is uniform.
func Softmax(values []float64) []float64 {
	max := floats.Max(values)
	probs := make([]float64, len(values))
	if math.IsInf(max, -1) {
		for i := range probs {
			probs[i] = 1 / float64(len(probs))
		}
		return probs
	}
	for i, v := range values {
		probs[i] = math.Exp(v - max)
	}
	floats.Scale(1/floats.Sum(probs), probs)
	return probs
}
