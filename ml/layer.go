package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	ActLinear ActivationType = iota
	ActRelu
	ActSigmoid
	ActSoftmax
)

var activationMap = map[string]ActivationType{
	"linear":  ActLinear,
	"sigmoid": ActSigmoid,
	"relu":    ActRelu,
	"softmax": ActSoftmax,
}

// -------- TYPE DEFINITIONS -------- //
type ActivationType int
type LayerOption func(*LayerConfig)

// LayerConfig holds the blueprint for a layer built by Build.
type LayerConfig struct {
	Neurons    int
	IsInput    bool
	Activation ActivationType
	Init       Initializer

	err error // deferred option error, reported by Build
}

// Layer is one affine step followed by an activation: act(x*Weights + Biases).
type Layer struct {
	Weights *Matrix
	Biases  *Vector
	ActType ActivationType
}

// NewLayer pairs a weight matrix with its bias vector.
// The bias length must equal the weight column count.
func NewLayer(weights *Matrix, biases *Vector, act ActivationType) (*Layer, error) {
	if weights == nil || biases == nil {
		return nil, fmt.Errorf("new layer: weights and biases are required")
	}
	if biases.Len() != weights.cols {
		return nil, lengthMismatch("new layer bias", weights.cols, biases.Len())
	}
	if _, ok := activationFuncs[act]; !ok {
		return nil, fmt.Errorf("new layer: unknown activation %d", act)
	}
	return &Layer{Weights: weights, Biases: biases, ActType: act}, nil
}

// InputSize is the column count the layer expects from its input.
func (l *Layer) InputSize() int { return l.Weights.rows }

// OutputSize is the column count the layer produces.
func (l *Layer) OutputSize() int { return l.Weights.cols }

// Forward computes act(input*Weights + Biases) into a new matrix.
// The pre-activation is returned alongside for tracing.
func (l *Layer) Forward(input *Matrix) (pre, post *Matrix, err error) {
	if input.cols != l.Weights.rows {
		return nil, nil, shapeMismatch("layer forward", input.rows, l.Weights.rows, input.rows, input.cols)
	}
	z, err := MatMul(input, l.Weights)
	if err != nil {
		return nil, nil, err
	}
	z.addVector(l.Biases)

	a := NewMatrix(z.rows, z.cols)
	copy(a.data, z.data)
	activationFuncs[l.ActType](a)
	return z, a, nil
}

// ------- LAYER CONFIG HELPERS ------- //
// Input defines the entry point dimensions
func Input(size int) LayerConfig {
	return LayerConfig{
		Neurons:    size,
		IsInput:    true,
		Activation: ActLinear,
	}
}

// Dense defines a fully connected layer.
func Dense(size int, opts ...LayerOption) LayerConfig {
	d := LayerConfig{
		Neurons:    size,
		IsInput:    false,
		Activation: ActRelu, // Default for hidden layers
		Init:       InitHe,
	}

	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func Activation(activation string) LayerOption {
	return func(lc *LayerConfig) {
		act, err := ParseActivation(activation)
		if err != nil {
			lc.err = err
			return
		}
		lc.Activation = act
	}
}

func WithInit(init Initializer) LayerOption {
	return func(lc *LayerConfig) {
		lc.Init = init
	}
}

// ParseActivation maps "linear", "relu", "sigmoid" or "softmax" to its ActivationType.
// An empty name means linear.
func ParseActivation(name string) (ActivationType, error) {
	if name == "" {
		return ActLinear, nil
	}
	act, exists := activationMap[name]
	if !exists {
		return ActLinear, fmt.Errorf("unknown activation: %q", name)
	}
	return act, nil
}

func (a ActivationType) String() string {
	for name, act := range activationMap {
		if act == a {
			return name
		}
	}
	return fmt.Sprintf("activation(%d)", int(a))
}

// ------- ACTIVATIONS ------- //
var activationFuncs = map[ActivationType]func(*Matrix){
	ActLinear:  func(*Matrix) {},
	ActRelu:    func(m *Matrix) { m.applyFunc(Relu) },
	ActSigmoid: func(m *Matrix) { m.applyFunc(Sigmoid) },
	ActSoftmax: softmaxRows,
}

// Relu is max(x, 0).
func Relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// softmaxRows applies softmax to each row of the matrix in place.
func softmaxRows(m *Matrix) {
	for i := 0; i < m.rows; i++ {
		row := m.data[i*m.cols : (i+1)*m.cols]
		maxVal := floats.Max(row)
		for j := range row {
			row[j] = math.Exp(row[j] - maxVal)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
}
