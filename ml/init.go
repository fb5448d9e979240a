package ml

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Initializer picks how Build fills a fresh weight matrix.
type Initializer int

const (
	InitHe Initializer = iota
	InitXavier
	InitTruncatedNormal
	InitZeros
)

// fill writes initial weights into m using src.
func (in Initializer) fill(m *Matrix, src rand.Source) {
	switch in {
	case InitHe:
		// N(0, 2/fan_in)
		dist := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2.0 / float64(m.rows)), Src: src}
		for i := range m.data {
			m.data[i] = dist.Rand()
		}
	case InitXavier:
		// limit = sqrt(6 / (fan_in + fan_out))
		limit := math.Sqrt(6.0 / float64(m.rows+m.cols))
		dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}
		for i := range m.data {
			m.data[i] = dist.Rand()
		}
	case InitTruncatedNormal:
		m.fillTruncatedNormal(src)
	case InitZeros:
		m.reset()
	}
}

// fillTruncatedNormal draws from N(0, 1), redrawing anything beyond two
// standard deviations.
func (m *Matrix) fillTruncatedNormal(src rand.Source) {
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: src}
	for i := range m.data {
		v := dist.Rand()
		for math.Abs(v) > 2 {
			v = dist.Rand()
		}
		m.data[i] = v
	}
}

// TruncatedNormal returns a rows x cols matrix of truncated standard normal samples.
func TruncatedNormal(rows, cols int, seed uint64) *Matrix {
	m := NewMatrix(rows, cols)
	m.fillTruncatedNormal(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return m
}
