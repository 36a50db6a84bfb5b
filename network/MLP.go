// Package network implements neural networks whose parameters live
// outside of any computational graph.
//
// An MLP stores its weights as tensors. Each forward pass or training
// step builds a fresh Gorgonia graph with one node per weight, so the
// same network can be run on batches of any size.
package network

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// LossFn adds a scalar loss on the network output to the graph
type LossFn func(g *G.ExprGraph, out *G.Node) (*G.Node, error)

// MLP is a fully connected feed forward neural network. Every layer
// has a bias.
type MLP struct {
	features int
	outputs  int
	weights  []*tensor.Dense
	biases   []*tensor.Dense
	acts     []*Activation
}

// NewMLP returns a new MLP with the given hidden layer sizes and
// activations. The output layer uses the identity activation. Weights
// are initialized with Glorot uniform initialization using the seed,
// and biases are initialized to zero.
func NewMLP(features int, hidden []int, acts []*Activation, outputs int,
	seed uint64) (*MLP, error) {
	if len(hidden) != len(acts) {
		return nil, fmt.Errorf("newMLP: invalid number of activations"+
			"\n\twant(%d)\n\thave(%d)", len(hidden), len(acts))
	}
	if features < 1 || outputs < 1 {
		return nil, fmt.Errorf("newMLP: features and outputs must be "+
			"positive, got %v and %v", features, outputs)
	}

	src := rand.NewSource(seed)
	sizes := append(append([]int{features}, hidden...), outputs)
	m := &MLP{
		features: features,
		outputs:  outputs,
		acts:     append(append([]*Activation{}, acts...), Identity()),
	}

	for i := 1; i < len(sizes); i++ {
		in, out := sizes[i-1], sizes[i]
		if out < 1 {
			return nil, fmt.Errorf("newMLP: layer %v has %v units", i, out)
		}
		m.weights = append(m.weights, glorotU(in, out, src))
		m.biases = append(m.biases, tensor.New(tensor.WithShape(1, out),
			tensor.Of(tensor.Float64)))
	}

	return m, nil
}

// glorotU returns an in x out tensor drawn from U[-l, l] with
// l = sqrt(6 / (in + out))
func glorotU(in, out int, src rand.Source) *tensor.Dense {
	limit := math.Sqrt(6.0 / float64(in+out))
	dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}

	backing := make([]float64, in*out)
	for i := range backing {
		backing[i] = dist.Rand()
	}
	return tensor.New(tensor.WithShape(in, out), tensor.WithBacking(backing))
}

// Features returns the number of input features
func (m *MLP) Features() int {
	return m.features
}

// Outputs returns the number of outputs
func (m *MLP) Outputs() int {
	return m.outputs
}

// Fwd adds the forward pass of the network on x to g. It returns the
// output node and the learnable nodes, ordered as in Params.
func (m *MLP) Fwd(g *G.ExprGraph, x *G.Node) (*G.Node, G.Nodes, error) {
	if x.Shape()[len(x.Shape())-1] != m.features {
		return nil, nil, fmt.Errorf("fwd: input has shape %v, expected %v "+
			"features", x.Shape(), m.features)
	}

	learnables := make(G.Nodes, 0, 2*len(m.weights))
	for i := range m.weights {
		w := G.NewMatrix(g, tensor.Float64,
			G.WithShape(m.weights[i].Shape()...),
			G.WithName(fmt.Sprintf("W%d", i)),
			G.WithValue(m.weights[i]))
		b := G.NewMatrix(g, tensor.Float64,
			G.WithShape(m.biases[i].Shape()...),
			G.WithName(fmt.Sprintf("b%d", i)),
			G.WithValue(m.biases[i]))
		learnables = append(learnables, w, b)

		var err error
		if x, err = G.Mul(x, w); err != nil {
			return nil, nil, fmt.Errorf("fwd: layer %v: %w", i, err)
		}

		// Broadcast the bias weights to all samples along the batch
		// dimension
		if x, err = G.BroadcastAdd(x, b, nil, []byte{0}); err != nil {
			return nil, nil, fmt.Errorf("fwd: layer %v: %w", i, err)
		}
		if x, err = m.acts[i].fwd(x); err != nil {
			return nil, nil, fmt.Errorf("fwd: layer %v: %w", i, err)
		}
	}

	return x, learnables, nil
}

// input adds the input matrix to g
func (m *MLP) input(g *G.ExprGraph, obs *tensor.Dense) (*G.Node, error) {
	shape := obs.Shape()
	if len(shape) != 2 || shape[1] != m.features {
		return nil, fmt.Errorf("input has shape %v, expected (n, %v)", shape,
			m.features)
	}
	return G.NewMatrix(g, tensor.Float64, G.WithShape(shape...),
		G.WithName("input"), G.WithValue(obs)), nil
}

// Predict runs the network on a batch of observations, one per row,
// and returns one row of outputs per observation
func (m *MLP) Predict(obs *tensor.Dense) (*tensor.Dense, error) {
	g := G.NewGraph()
	x, err := m.input(g, obs)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	out, _, err := m.Fwd(g, x)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	var outVal G.Value
	G.Read(out, &outVal)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	dense, ok := outVal.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("predict: unexpected output type %T", outVal)
	}
	return dense.Clone().(*tensor.Dense), nil
}

// Step performs one gradient step on the loss of the network's output
// on obs using solver and returns the loss before the step
func (m *MLP) Step(obs *tensor.Dense, solver G.Solver, loss LossFn) (float64,
	error) {
	g := G.NewGraph()
	x, err := m.input(g, obs)
	if err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	out, learnables, err := m.Fwd(g, x)
	if err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	cost, err := loss(g, out)
	if err != nil {
		return 0, fmt.Errorf("step: loss: %w", err)
	}
	if !cost.IsScalar() {
		return 0, fmt.Errorf("step: loss has shape %v, expected a scalar",
			cost.Shape())
	}

	var costVal G.Value
	G.Read(cost, &costVal)

	if _, err := G.Grad(cost, learnables...); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	vm := G.NewTapeMachine(g, G.BindDualValues(learnables...))
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}
	if err := solver.Step(G.NodesToValueGrads(learnables)); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	if err := m.setFromNodes(learnables); err != nil {
		return 0, fmt.Errorf("step: %w", err)
	}

	lossVal, ok := costVal.Data().(float64)
	if !ok {
		return 0, fmt.Errorf("step: unexpected loss type %T", costVal.Data())
	}
	return lossVal, nil
}

// setFromNodes copies the values of learnable nodes returned by Fwd
// into the network's parameters
func (m *MLP) setFromNodes(learnables G.Nodes) error {
	params := make([]*tensor.Dense, len(learnables))
	for i, n := range learnables {
		dense, ok := n.Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("learnable %v has type %T", n.Name(), n.Value())
		}
		params[i] = dense
	}
	return m.SetParams(params)
}

// Params returns a copy of the network's parameters, alternating
// weights and biases of each layer
func (m *MLP) Params() []*tensor.Dense {
	params := make([]*tensor.Dense, 0, 2*len(m.weights))
	for i := range m.weights {
		params = append(params, m.weights[i].Clone().(*tensor.Dense),
			m.biases[i].Clone().(*tensor.Dense))
	}
	return params
}

// SetParams sets the network's parameters to copies of params, which
// must be ordered and shaped as returned by Params
func (m *MLP) SetParams(params []*tensor.Dense) error {
	if len(params) != 2*len(m.weights) {
		return fmt.Errorf("setParams: expected %v parameters, got %v",
			2*len(m.weights), len(params))
	}

	for i := range m.weights {
		w, b := params[2*i], params[2*i+1]
		if !w.Shape().Eq(m.weights[i].Shape()) ||
			!b.Shape().Eq(m.biases[i].Shape()) {
			return fmt.Errorf("setParams: layer %v shape mismatch", i)
		}
	}
	for i := range m.weights {
		m.weights[i] = params[2*i].Clone().(*tensor.Dense)
		m.biases[i] = params[2*i+1].Clone().(*tensor.Dense)
	}
	return nil
}

// Clone returns a deep copy of the network
func (m *MLP) Clone() *MLP {
	clone := &MLP{
		features: m.features,
		outputs:  m.outputs,
		acts:     m.acts,
	}
	for i := range m.weights {
		clone.weights = append(clone.weights, m.weights[i].Clone().(*tensor.Dense))
		clone.biases = append(clone.biases, m.biases[i].Clone().(*tensor.Dense))
	}
	return clone
}
