package ml

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	hiddenWeights = [][]float64{
		{0.1, 0.2, 0.4},
		{0.4, 0.6, 0.6},
		{0.5, 0.9, 0.1},
		{0.8, 0.2, 0.8},
	}
	outWeights = [][]float64{
		{0.1, 0.6},
		{0.2, 0.1},
		{0.7, 0.9},
	}
	features = [][]float64{
		{1, 2, 3, 4},
		{-1, -2, -3, -4},
		{11, 12, 13, 14},
	}
)

func reluNetwork(t testing.TB) *Network {
	t.Helper()
	nw, err := NewReluNetwork(
		[]*Matrix{MustFromRows(hiddenWeights), MustFromRows(outWeights)},
		[]*Vector{Zeros(3), Zeros(2)},
	)
	require.NoError(t, err)
	return nw
}

// handForward is matmul -> +bias -> relu -> matmul -> +bias written out with plain loops.
func handForward(x, w0 [][]float64, b0 []float64, w1 [][]float64, b1 []float64) [][]float64 {
	affine := func(in, w [][]float64, b []float64) [][]float64 {
		out := make([][]float64, len(in))
		for i := range in {
			out[i] = make([]float64, len(w[0]))
			for j := range w[0] {
				sum := 0.0
				for k := range w {
					sum += in[i][k] * w[k][j]
				}
				out[i][j] = sum + b[j]
			}
		}
		return out
	}
	h := affine(x, w0, b0)
	for _, row := range h {
		for j := range row {
			row[j] = max(row[j], 0)
		}
	}
	return affine(h, w1, b1)
}

func assertMatrixInDelta(t *testing.T, want [][]float64, got *Matrix, delta float64) {
	t.Helper()
	require.Equal(t, len(want), got.Rows())
	for i, row := range want {
		assert.InDeltaSlice(t, row, got.Row(i), delta, "row %d", i)
	}
}

func TestEvaluate_LiteralNetwork(t *testing.T) {
	nw := reluNetwork(t)

	out, err := Evaluate(nw, MustFromRows(features))
	require.NoError(t, err)

	want := handForward(features, hiddenWeights, []float64{0, 0, 0}, outWeights, []float64{0, 0})
	assert.Equal(t, want, out.ToRows())

	// The values printed by the original session run.
	assertMatrixInDelta(t, [][]float64{
		{5.11, 8.44},
		{0, 0},
		{24.01, 38.24},
	}, out, 1e-9)
}

func TestEvaluate_NonPositiveHiddenRowYieldsBias(t *testing.T) {
	bias := NewVector(0.25, -1.5)
	nw, err := NewReluNetwork(
		[]*Matrix{MustFromRows(hiddenWeights), MustFromRows(outWeights)},
		[]*Vector{NewVector(-0.5, 0, -2), bias},
	)
	require.NoError(t, err)

	stages, err := nw.Trace(MustFromRows([][]float64{{-1, -2, -3, -4}}))
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assert.Equal(t, []float64{0, 0, 0}, stages[0].Post.Row(0))
	assert.Equal(t, bias.Values(), stages[1].Post.Row(0))
}

func TestEvaluate_DimensionMismatch(t *testing.T) {
	nw := reluNetwork(t)

	for _, input := range [][][]float64{
		{{1, 2, 3}},
		{{1, 2, 3, 4, 5}},
	} {
		out, err := Evaluate(nw, MustFromRows(input))
		assert.Nil(t, out)
		assert.ErrorIs(t, err, ErrDimensionMismatch)

		var dimErr *DimensionError
		require.True(t, errors.As(err, &dimErr))
		assert.Equal(t, "4", dimErr.Want)
	}
}

func TestEvaluate_EmptyNetwork(t *testing.T) {
	nw := &Network{}
	assert.Zero(t, nw.InputSize())
	assert.Zero(t, nw.OutputSize())

	var out *Matrix
	var err error
	require.NotPanics(t, func() { out, err = Evaluate(nw, MustFromRows(features)) })
	assert.Nil(t, out)
	assert.Error(t, err)
}

func TestEvaluate_Idempotent(t *testing.T) {
	nw := reluNetwork(t)
	input := MustFromRows(features)

	first, err := Evaluate(nw, input)
	require.NoError(t, err)
	second, err := Evaluate(nw, input)
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first.Data(), second.Data())
	// input untouched
	assert.Equal(t, features, input.ToRows())
}

func TestTrace_Stages(t *testing.T) {
	nw := reluNetwork(t)

	stages, err := nw.Trace(MustFromRows(features))
	require.NoError(t, err)
	require.Len(t, stages, 2)

	assertMatrixInDelta(t, [][]float64{
		{5.6, 4.9, 5.1},
		{-5.6, -4.9, -5.1},
		{23.6, 23.9, 24.1},
	}, stages[0].Pre, 1e-12)
	assertMatrixInDelta(t, [][]float64{
		{5.6, 4.9, 5.1},
		{0, 0, 0},
		{23.6, 23.9, 24.1},
	}, stages[0].Post, 1e-12)
	// final layer is linear
	assert.True(t, stages[1].Pre.Equal(stages[1].Post))
}

func TestNewNetwork_Incompatible(t *testing.T) {
	l0, err := NewLayer(MustFromRows(hiddenWeights), Zeros(3), ActRelu)
	require.NoError(t, err)
	l1, err := NewLayer(MustFromRows([][]float64{{1}, {2}}), Zeros(1), ActLinear)
	require.NoError(t, err)

	_, err = NewNetwork(l0, l1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewNetwork()
	assert.Error(t, err)
}

func TestNewLayer_BiasLength(t *testing.T) {
	_, err := NewLayer(MustFromRows(hiddenWeights), Zeros(4), ActRelu)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewReluNetwork([]*Matrix{MustFromRows(hiddenWeights)}, nil)
	assert.Error(t, err)
}

func TestPredict(t *testing.T) {
	nw := reluNetwork(t)

	classes, scores, err := nw.Predict(MustFromRows(features))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, classes)
	assert.InDeltaSlice(t, []float64{8.44, 0, 38.24}, scores, 1e-9)
}

func TestBuild(t *testing.T) {
	nw, err := Build(42,
		Input(4),
		Dense(3),
		Dense(2, Activation("softmax"), WithInit(InitXavier)),
	)
	require.NoError(t, err)
	require.Len(t, nw.Layers, 2)
	assert.Equal(t, 4, nw.InputSize())
	assert.Equal(t, 2, nw.OutputSize())
	assert.Equal(t, ActRelu, nw.Layers[0].ActType)
	assert.Equal(t, ActSoftmax, nw.Layers[1].ActType)

	out, err := nw.Forward(MustFromRows(features))
	require.NoError(t, err)
	for i := range out.Rows() {
		row := out.Row(i)
		assert.InDelta(t, 1.0, row[0]+row[1], 1e-12)
	}

	again, err := Build(42, Input(4), Dense(3), Dense(2, Activation("softmax"), WithInit(InitXavier)))
	require.NoError(t, err)
	assert.True(t, nw.Layers[0].Weights.Equal(again.Layers[0].Weights), "same seed, same weights")
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(1, Input(4))
	assert.Error(t, err)

	_, err = Build(1, Dense(3), Dense(2))
	assert.Error(t, err)

	_, err = Build(1, Input(4), Dense(2, Activation("tanh")))
	assert.ErrorContains(t, err, "tanh")
}

func TestNetwork_SaveLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.ckpt")
	src := reluNetwork(t)
	require.NoError(t, src.SaveToFile(path))

	arch, err := Build(7, Input(4), Dense(3), Dense(2, Activation("linear")))
	require.NoError(t, err)
	layers := append([]*Layer(nil), arch.Layers...)
	weights := arch.Layers[0].Weights.Data()

	loaded, err := arch.LoadFromFile(path)
	require.NoError(t, err)
	require.NotSame(t, arch, loaded)

	input := MustFromRows(features)
	want, err := src.Forward(input)
	require.NoError(t, err)
	got, err := loaded.Forward(input)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	// arch keeps its own random parameters
	assert.Equal(t, layers, arch.Layers)
	assert.Equal(t, weights, arch.Layers[0].Weights.Data())
	assert.False(t, arch.Layers[0].Weights.Equal(loaded.Layers[0].Weights))

	wrong, err := Build(7, Input(4), Dense(5), Dense(2))
	require.NoError(t, err)
	before := wrong.Layers[0].Weights
	loaded, err = wrong.LoadFromFile(path)
	assert.Nil(t, loaded)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Same(t, before, wrong.Layers[0].Weights)
}
