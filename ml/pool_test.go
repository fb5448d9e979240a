package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var poolGrid = [][]float64{
	{0, 1, 0.5, 10},
	{2, 2.5, 1, -8},
	{4, 0, 5, 6},
	{15, 1, 2, 3},
}

func TestMaxPool(t *testing.T) {
	out, err := MaxPool(MustFromRows(poolGrid), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{2.5, 10}, {15, 6}}, out.ToRows())
}

func TestMeanPool(t *testing.T) {
	out, err := MeanPool(MustFromRows(poolGrid), 2, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1.375, 0.875}, {5, 4}}, out.ToRows())
}

func TestPool2D_OutputSize(t *testing.T) {
	p, err := NewPool2D(2, 2, PoolMax)
	require.NoError(t, err)

	h, w := p.OutputSize(4, 4)
	assert.Equal(t, 2, h)
	assert.Equal(t, 2, w)

	// VALID padding drops the trailing column.
	h, w = p.OutputSize(4, 5)
	assert.Equal(t, 2, h)
	assert.Equal(t, 2, w)

	// Nothing fits a 2x2 window.
	for _, dims := range [][2]int{{1, 1}, {1, 4}, {4, 1}} {
		h, w = p.OutputSize(dims[0], dims[1])
		assert.Equal(t, 0, h, "%v", dims)
		assert.Equal(t, 0, w, "%v", dims)
	}

	overlap, err := NewPool2D(2, 1, PoolMax)
	require.NoError(t, err)
	out, err := overlap.Forward(MustFromRows(poolGrid))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{
		{2.5, 2.5, 10},
		{4, 5, 6},
		{15, 5, 6},
	}, out.ToRows())
}

func TestPool2D_Errors(t *testing.T) {
	_, err := NewPool2D(0, 2, PoolMax)
	assert.Error(t, err)
	_, err = NewPool2D(2, 0, PoolMean)
	assert.Error(t, err)
	_, err = NewPool2D(2, 2, PoolMode(9))
	assert.Error(t, err)

	_, err = MaxPool(MustFromRows([][]float64{{1, 2, 3}}), 2, 2)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestParsePoolMode(t *testing.T) {
	mode, err := ParsePoolMode("mean")
	require.NoError(t, err)
	assert.Equal(t, PoolMean, mode)
	assert.Equal(t, "mean", mode.String())

	_, err = ParsePoolMode("median")
	assert.Error(t, err)
}
