package ml

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix represents a dense matrix with a flat data slice for performance.
// Rows are samples, columns are features. Exported methods never mutate the
// receiver; anything handed out is a copy.
type Matrix struct {
	rows, cols int
	data       []float64
	dense      *mat.Dense
}

// -------- CONSTRUCTORS ------- //

// NewMatrix allocates a zeroed rows x cols matrix. Both dimensions must be positive.
func NewMatrix(rows, cols int) *Matrix {
	data := make([]float64, rows*cols)
	return &Matrix{
		rows:  rows,
		cols:  cols,
		data:  data,
		dense: mat.NewDense(rows, cols, data),
	}
}

// NewMatrixFromSlice wraps a copy of data in row-major order.
func NewMatrixFromSlice(rows, cols int, data []float64) (*Matrix, error) {
	if rows <= 0 || cols <= 0 {
		return nil, shapeMismatch("new matrix", 1, 1, rows, cols)
	}
	if len(data) != rows*cols {
		return nil, lengthMismatch("new matrix", rows*cols, len(data))
	}

	m := NewMatrix(rows, cols)
	copy(m.data, data)
	return m, nil
}

// FromRows builds a matrix from a literal such as [][]float64{{1, 2}, {3, 4}}.
// Ragged or empty input is rejected.
func FromRows(rows [][]float64) (*Matrix, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, shapeMismatch("from rows", 1, 1, len(rows), 0)
	}
	cols := len(rows[0])
	m := NewMatrix(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, &DimensionError{
				Op:   "from rows",
				Want: fmt.Sprintf("%d columns in row %d", cols, i),
				Got:  fmt.Sprintf("%d", len(row)),
			}
		}
		copy(m.data[i*cols:], row)
	}
	return m, nil
}

// MustFromRows is FromRows for package-level literals known to be rectangular.
func MustFromRows(rows [][]float64) *Matrix {
	m, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return m
}

// ------- ACCESSORS ------ //
func (m *Matrix) Rows() int { return m.rows }
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) Dims() (int, int) { return m.rows, m.cols }

func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.cols+j]
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	out := make([]float64, m.cols)
	copy(out, m.data[i*m.cols:(i+1)*m.cols])
	return out
}

// Data returns a copy of the row-major backing slice.
func (m *Matrix) Data() []float64 {
	out := make([]float64, len(m.data))
	copy(out, m.data)
	return out
}

// ToRows returns the matrix as a [][]float64 literal.
func (m *Matrix) ToRows() [][]float64 {
	out := make([][]float64, m.rows)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// Equal reports exact element-wise equality.
func (m *Matrix) Equal(b *Matrix) bool {
	return mat.Equal(m.dense, b.dense)
}

func (m *Matrix) String() string {
	return fmt.Sprintf("%v", mat.Formatted(m.dense, mat.Squeeze()))
}

// ------- SERIALIZATION ------ //
func (m *Matrix) GobEncode() ([]byte, error) {
	w := new(bytes.Buffer)
	encoder := gob.NewEncoder(w)
	if err := encoder.Encode(m.rows); err != nil {
		return nil, err
	}
	if err := encoder.Encode(m.cols); err != nil {
		return nil, err
	}
	if err := encoder.Encode(m.data); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (m *Matrix) GobDecode(buf []byte) error {
	r := bytes.NewBuffer(buf)
	decoder := gob.NewDecoder(r)
	if err := decoder.Decode(&m.rows); err != nil {
		return err
	}
	if err := decoder.Decode(&m.cols); err != nil {
		return err
	}
	if err := decoder.Decode(&m.data); err != nil {
		return err
	}
	if m.rows <= 0 || m.cols <= 0 || len(m.data)%m.rows != 0 || len(m.data)/m.rows != m.cols {
		return fmt.Errorf("corrupt matrix: [%d, %d] with %d values", m.rows, m.cols, len(m.data))
	}

	// Re-create the wrapper after loading data
	m.dense = mat.NewDense(m.rows, m.cols, m.data)

	return nil
}

// ------- IN-PLACE HELPERS ------ //
// Only used on freshly allocated matrices that have not been handed out yet.

func (m *Matrix) reset() {
	for i := range m.data {
		m.data[i] = 0.0
	}
}

func (m *Matrix) addVector(v *Vector) {
	for i := 0; i < m.rows; i++ {
		floats.Add(m.data[i*m.cols:(i+1)*m.cols], v.data)
	}
}

func (m *Matrix) applyFunc(fn func(float64) float64) {
	for i := range m.data {
		m.data[i] = fn(m.data[i])
	}
}

// ------ UTILITY FUNCTIONS ------

// MatMul returns a x b computed by gonum.
func MatMul(a, b *Matrix) (*Matrix, error) {
	if a.cols != b.rows {
		return nil, shapeMismatch("matmul", a.rows, a.cols, b.rows, b.cols)
	}
	out := NewMatrix(a.rows, b.cols)
	out.dense.Mul(a.dense, b.dense)
	return out, nil
}

// MatMulGo is MatMul in pure Go (no BLAS), cache blocked.
func MatMulGo(a, b *Matrix) (*Matrix, error) {
	const blockSize = 64
	if a.cols != b.rows {
		return nil, shapeMismatch("matmul", a.rows, a.cols, b.rows, b.cols)
	}
	out := NewMatrix(a.rows, b.cols)
	for i := 0; i < a.rows; i += blockSize {
		for j := 0; j < b.cols; j += blockSize {
			for k := 0; k < a.cols; k += blockSize {
				iMax, jMax, kMax := min(i+blockSize, a.rows), min(j+blockSize, b.cols), min(k+blockSize, a.cols)
				for ii := i; ii < iMax; ii++ {
					rowOffsetOut := ii * out.cols
					for kk := k; kk < kMax; kk++ {
						scalar := a.data[ii*a.cols+kk]
						rowOffsetB := kk * b.cols
						for jj := j; jj < jMax; jj++ {
							out.data[rowOffsetOut+jj] += scalar * b.data[rowOffsetB+jj]
						}
					}
				}
			}
		}
	}
	return out, nil
}

// AddVector returns m with v added to every row.
func AddVector(m *Matrix, v *Vector) (*Matrix, error) {
	if v.Len() != m.cols {
		return nil, lengthMismatch("add bias", m.cols, v.Len())
	}
	out := NewMatrix(m.rows, m.cols)
	copy(out.data, m.data)
	out.addVector(v)
	return out, nil
}
