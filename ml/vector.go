package ml

import "fmt"

// Vector is a per-column bias. Like Matrix it is never mutated once built.
type Vector struct {
	data []float64
}

// NewVector copies values into a new Vector.
func NewVector(values ...float64) *Vector {
	data := make([]float64, len(values))
	copy(data, values)
	return &Vector{data: data}
}

// Zeros returns a Vector of n zeros, the usual starting bias.
func Zeros(n int) *Vector {
	return &Vector{data: make([]float64, n)}
}

func (v *Vector) Len() int { return len(v.data) }

func (v *Vector) At(i int) float64 { return v.data[i] }

// Values returns a copy of the elements.
func (v *Vector) Values() []float64 {
	out := make([]float64, len(v.data))
	copy(out, v.data)
	return out
}

// AsMatrix returns v as a 1 x Len() row matrix, the form biases take in checkpoints.
func (v *Vector) AsMatrix() *Matrix {
	m := NewMatrix(1, len(v.data))
	copy(m.data, v.data)
	return m
}

// VectorFromMatrix is the inverse of AsMatrix.
func VectorFromMatrix(m *Matrix) (*Vector, error) {
	if m.rows != 1 {
		return nil, shapeMismatch("vector from matrix", 1, m.cols, m.rows, m.cols)
	}
	return NewVector(m.data...), nil
}

func (v *Vector) String() string {
	return fmt.Sprintf("%v", v.data)
}
