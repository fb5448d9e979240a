package ml

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// Network is a fixed sequence of dimensionally compatible layers.
// Layers are neither added nor removed after construction and evaluation
// keeps no state, so a Network can be shared freely between callers.
type Network struct {
	Layers []*Layer
}

// Stage holds one layer's intermediate results from Trace.
type Stage struct {
	Pre  *Matrix // input*W + b
	Post *Matrix // activation(Pre)
}

// NewNetwork chains layers, checking that each layer's weight rows match the
// previous layer's weight columns.
func NewNetwork(layers ...*Layer) (*Network, error) {
	if len(layers) == 0 {
		return nil, errors.New("network must have at least one layer")
	}
	for i, l := range layers {
		if l == nil {
			return nil, fmt.Errorf("layer %d is nil", i)
		}
		if i == 0 {
			continue
		}
		if prev := layers[i-1]; prev.OutputSize() != l.InputSize() {
			return nil, fmt.Errorf("layer %d: %w", i, lengthMismatch("chain layers", prev.OutputSize(), l.InputSize()))
		}
	}
	return &Network{Layers: append([]*Layer(nil), layers...)}, nil
}

// NewReluNetwork builds the classic dense stack: ReLU after every layer
// except the last, which stays linear.
func NewReluNetwork(weights []*Matrix, biases []*Vector) (*Network, error) {
	if len(weights) != len(biases) {
		return nil, fmt.Errorf("got %d weight matrices but %d bias vectors", len(weights), len(biases))
	}
	layers := make([]*Layer, len(weights))
	for i := range weights {
		act := ActRelu
		if i == len(weights)-1 {
			act = ActLinear
		}
		l, err := NewLayer(weights[i], biases[i], act)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers[i] = l
	}
	return NewNetwork(layers...)
}

// Build creates a randomly initialised network from layer blueprints,
// starting with Input(n). The same seed always yields the same weights.
func Build(seed uint64, configs ...LayerConfig) (*Network, error) {
	if len(configs) < 2 {
		return nil, errors.New("network must have at least Input and one Output layer")
	}
	if !configs[0].IsInput {
		return nil, errors.New("first layer must be Input()")
	}

	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	prevOutputSize := configs[0].Neurons
	layers := make([]*Layer, 0, len(configs)-1)

	for i := 1; i < len(configs); i++ {
		cfg := configs[i]
		if cfg.err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, cfg.err)
		}
		if cfg.IsInput {
			return nil, fmt.Errorf("layer %d: Input() is only allowed first", i)
		}
		if prevOutputSize <= 0 || cfg.Neurons <= 0 {
			return nil, fmt.Errorf("layer %d: %w", i, shapeMismatch("build", 1, 1, prevOutputSize, cfg.Neurons))
		}

		weights := NewMatrix(prevOutputSize, cfg.Neurons)
		cfg.Init.fill(weights, src)

		l, err := NewLayer(weights, Zeros(cfg.Neurons), cfg.Activation)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		layers = append(layers, l)
		prevOutputSize = cfg.Neurons
	}

	return NewNetwork(layers...)
}

// -------- NETWORK METHODS -------- //

// InputSize is the number of input features the network accepts, 0 for a
// network without layers.
func (nw *Network) InputSize() int {
	if len(nw.Layers) == 0 {
		return 0
	}
	return nw.Layers[0].InputSize()
}

// OutputSize is the number of columns Evaluate returns.
func (nw *Network) OutputSize() int {
	if len(nw.Layers) == 0 {
		return 0
	}
	return nw.Layers[len(nw.Layers)-1].OutputSize()
}

// Evaluate runs input through every layer of nw and returns the final
// activation. No partial result is returned on error.
func Evaluate(nw *Network, input *Matrix) (*Matrix, error) {
	return nw.Forward(input)
}

func (nw *Network) Forward(input *Matrix) (*Matrix, error) {
	stages, err := nw.Trace(input)
	if err != nil {
		return nil, err
	}
	return stages[len(stages)-1].Post, nil
}

// Trace is Forward but keeps every layer's pre and post activation.
func (nw *Network) Trace(input *Matrix) ([]Stage, error) {
	if len(nw.Layers) == 0 {
		return nil, errors.New("network has no layers")
	}
	if input == nil {
		return nil, errors.New("input is nil")
	}
	if input.cols != nw.InputSize() {
		return nil, lengthMismatch("evaluate input columns", nw.InputSize(), input.cols)
	}

	stages := make([]Stage, len(nw.Layers))
	activation := input
	for i, layer := range nw.Layers {
		pre, post, err := layer.Forward(activation)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		stages[i] = Stage{Pre: pre, Post: post}
		activation = post
	}
	return stages, nil
}

// Predict returns, for every input row, the index of the largest output and its value.
func (nw *Network) Predict(input *Matrix) ([]int, []float64, error) {
	out, err := nw.Forward(input)
	if err != nil {
		return nil, nil, err
	}
	classes := make([]int, out.rows)
	scores := make([]float64, out.rows)
	for i := range out.rows {
		row := out.data[i*out.cols : (i+1)*out.cols]
		classes[i] = floats.MaxIdx(row)
		scores[i] = row[classes[i]]
	}
	return classes, scores, nil
}

// Variables names every parameter with an explicit, order-independent key
// such as "layer0/weights" and "layer0/biases".
func (nw *Network) Variables() []*Variable {
	vars := make([]*Variable, 0, 2*len(nw.Layers))
	for i, l := range nw.Layers {
		vars = append(vars,
			&Variable{Name: fmt.Sprintf("layer%d/weights", i), Value: l.Weights},
			&Variable{Name: fmt.Sprintf("layer%d/biases", i), Value: l.Biases.AsMatrix()},
		)
	}
	return vars
}

// SaveToFile writes every layer's weights and biases to a checkpoint.
func (nw *Network) SaveToFile(filename string) error {
	return Save(filename, nw.Variables())
}

// LoadFromFile returns a new Network with nw's architecture and the
// parameters stored in filename. Shapes must match nw; nw itself is never
// modified.
func (nw *Network) LoadFromFile(filename string) (*Network, error) {
	vars := nw.Variables()
	if err := Restore(filename, vars); err != nil {
		return nil, err
	}

	layers := make([]*Layer, len(nw.Layers))
	for i, l := range nw.Layers {
		biases, err := VectorFromMatrix(vars[2*i+1].Value)
		if err != nil {
			return nil, fmt.Errorf("layer %d biases: %w", i, err)
		}
		if layers[i], err = NewLayer(vars[2*i].Value, biases, l.ActType); err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
	}
	return NewNetwork(layers...)
}
