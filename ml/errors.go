package ml

import (
	"errors"
	"fmt"
)

var (
	// ErrDimensionMismatch is returned whenever two operands have incompatible shapes.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrMissingVariable is returned by Restore when a checkpoint has no entry for a variable.
	ErrMissingVariable = errors.New("variable not found in checkpoint")
)

// DimensionError describes which operation saw which shapes.
// It unwraps to ErrDimensionMismatch.
type DimensionError struct {
	Op   string
	Want string
	Got  string
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %v: want %s, got %s", e.Op, ErrDimensionMismatch, e.Want, e.Got)
}

func (e *DimensionError) Unwrap() error {
	return ErrDimensionMismatch
}

func shapeMismatch(op string, wantRows, wantCols, gotRows, gotCols int) error {
	return &DimensionError{
		Op:   op,
		Want: fmt.Sprintf("[%d, %d]", wantRows, wantCols),
		Got:  fmt.Sprintf("[%d, %d]", gotRows, gotCols),
	}
}

func lengthMismatch(op string, want, got int) error {
	return &DimensionError{
		Op:   op,
		Want: fmt.Sprintf("%d", want),
		Got:  fmt.Sprintf("%d", got),
	}
}
