package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	PoolMax PoolMode = iota
	PoolMean
)

// PoolMode selects the reduction applied to each window.
type PoolMode int

func (p PoolMode) String() string {
	switch p {
	case PoolMax:
		return "max"
	case PoolMean:
		return "mean"
	}
	return fmt.Sprintf("pool(%d)", int(p))
}

// ParsePoolMode accepts "max" or "mean".
func ParsePoolMode(name string) (PoolMode, error) {
	switch name {
	case "max":
		return PoolMax, nil
	case "mean", "avg":
		return PoolMean, nil
	}
	return PoolMax, fmt.Errorf("unknown pool mode: %q", name)
}

// Pool2D slides a square window over a grid with VALID padding, so
//
//	out_height = (height - window) / stride + 1
//	out_width  = (width - window) / stride + 1
//
// Trailing rows and columns that do not fill a whole window are dropped.
type Pool2D struct {
	window int
	stride int
	mode   PoolMode
}

// NewPool2D creates a pooling layer; window and stride must be positive.
func NewPool2D(window, stride int, mode PoolMode) (*Pool2D, error) {
	if window <= 0 {
		return nil, fmt.Errorf("pool2d: invalid window %d", window)
	}
	if stride <= 0 {
		return nil, fmt.Errorf("pool2d: invalid stride %d", stride)
	}
	if mode != PoolMax && mode != PoolMean {
		return nil, fmt.Errorf("pool2d: invalid mode %d", mode)
	}
	return &Pool2D{window: window, stride: stride, mode: mode}, nil
}

func (p *Pool2D) Window() int    { return p.window }
func (p *Pool2D) Stride() int    { return p.stride }
func (p *Pool2D) Mode() PoolMode { return p.mode }

// OutputSize returns the pooled dimensions of a height x width grid,
// or 0, 0 when the grid is smaller than the window.
func (p *Pool2D) OutputSize(height, width int) (int, int) {
	if height < p.window || width < p.window {
		return 0, 0
	}
	return (height-p.window)/p.stride + 1, (width-p.window)/p.stride + 1
}

// Forward pools grid into a new matrix.
func (p *Pool2D) Forward(grid *Matrix) (*Matrix, error) {
	if grid.rows < p.window || grid.cols < p.window {
		return nil, shapeMismatch("pool2d", p.window, p.window, grid.rows, grid.cols)
	}

	outH, outW := p.OutputSize(grid.rows, grid.cols)
	out := NewMatrix(outH, outW)
	n := float64(p.window * p.window)

	for i := range outH {
		for j := range outW {
			r, c := i*p.stride, j*p.stride
			view := grid.dense.Slice(r, r+p.window, c, c+p.window)
			switch p.mode {
			case PoolMax:
				out.data[i*outW+j] = mat.Max(view)
			case PoolMean:
				out.data[i*outW+j] = mat.Sum(view) / n
			}
		}
	}
	return out, nil
}

// MaxPool is shorthand for a max Pool2D over grid.
func MaxPool(grid *Matrix, window, stride int) (*Matrix, error) {
	p, err := NewPool2D(window, stride, PoolMax)
	if err != nil {
		return nil, err
	}
	return p.Forward(grid)
}

// MeanPool is shorthand for a mean Pool2D over grid.
func MeanPool(grid *Matrix, window, stride int) (*Matrix, error) {
	p, err := NewPool2D(window, stride, PoolMean)
	if err != nil {
		return nil, err
	}
	return p.Forward(grid)
}
