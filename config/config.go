package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/b0tShaman/neuro-blocks/ml"
)

// Demo names accepted by Config.Demo.
const (
	DemoRelu  = "relu"
	DemoPool  = "pool"
	DemoSaver = "saver"
	DemoAll   = "all"
)

// Config captures everything a demo run needs.
type Config struct {
	Demo       string      `yaml:"demo"`
	Network    NetworkSpec `yaml:"network"`
	Input      [][]float64 `yaml:"input"`
	Pool       PoolSpec    `yaml:"pool"`
	Checkpoint SaverSpec   `yaml:"checkpoint"`
}

// NetworkSpec lists layers in order. An empty activation means ReLU for
// every layer but the last and linear for the last.
type NetworkSpec struct {
	Layers []LayerSpec `yaml:"layers"`
}

type LayerSpec struct {
	Weights    [][]float64 `yaml:"weights"`
	Biases     []float64   `yaml:"biases"`
	Activation string      `yaml:"activation"`
}

type PoolSpec struct {
	Grid   [][]float64 `yaml:"grid"`
	Window int         `yaml:"window"`
	Stride int         `yaml:"stride"`
	Modes  []string    `yaml:"modes"`
}

type SaverSpec struct {
	Path string `yaml:"path"`
	Seed uint64 `yaml:"seed"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Demo           string
	CheckpointPath string
	Input          [][]float64
	Grid           [][]float64
}

// Default returns the coursework constants: the 4-3-2 ReLU network with its
// three feature rows, the 4x4 pooling grid and a local checkpoint path.
func Default() *Config {
	return &Config{
		Demo: DemoAll,
		Network: NetworkSpec{Layers: []LayerSpec{
			{
				Weights: [][]float64{
					{0.1, 0.2, 0.4},
					{0.4, 0.6, 0.6},
					{0.5, 0.9, 0.1},
					{0.8, 0.2, 0.8},
				},
				Biases: []float64{0, 0, 0},
			},
			{
				Weights: [][]float64{
					{0.1, 0.6},
					{0.2, 0.1},
					{0.7, 0.9},
				},
				Biases: []float64{0, 0},
			},
		}},
		Input: [][]float64{
			{1.0, 2.0, 3.0, 4.0},
			{-1.0, -2.0, -3.0, -4.0},
			{11.0, 12.0, 13.0, 14.0},
		},
		Pool: PoolSpec{
			Grid: [][]float64{
				{0, 1, 0.5, 10},
				{2, 2.5, 1, -8},
				{4, 0, 5, 6},
				{15, 1, 2, 3},
			},
			Window: 2,
			Stride: 2,
			Modes:  []string{"max", "mean"},
		},
		Checkpoint: SaverSpec{Path: "model.ckpt"},
	}
}

// Load reads a YAML config on top of Default and validates it.
// Keys missing from the file keep their default values.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Demo != "" {
		c.Demo = o.Demo
	}
	if o.CheckpointPath != "" {
		c.Checkpoint.Path = o.CheckpointPath
	}
	if len(o.Input) > 0 {
		c.Input = o.Input
	}
	if len(o.Grid) > 0 {
		c.Pool.Grid = o.Grid
	}
}

// Validate verifies the config is runnable. Shape checks beyond "present"
// are left to the ml constructors.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	switch c.Demo {
	case DemoRelu, DemoPool, DemoSaver, DemoAll:
	default:
		return fmt.Errorf("unknown demo %q", c.Demo)
	}
	if len(c.Network.Layers) == 0 {
		return errors.New("network.layers must not be empty")
	}
	for i, l := range c.Network.Layers {
		if _, err := ml.ParseActivation(l.Activation); err != nil {
			return fmt.Errorf("network.layers[%d]: %w", i, err)
		}
	}
	if len(c.Input) == 0 {
		return errors.New("input must not be empty")
	}
	if c.Pool.Window <= 0 {
		return fmt.Errorf("pool.window must be > 0 (got %d)", c.Pool.Window)
	}
	if c.Pool.Stride <= 0 {
		return fmt.Errorf("pool.stride must be > 0 (got %d)", c.Pool.Stride)
	}
	for _, m := range c.Pool.Modes {
		if _, err := ml.ParsePoolMode(m); err != nil {
			return fmt.Errorf("pool.modes: %w", err)
		}
	}
	if c.Checkpoint.Path == "" {
		return errors.New("checkpoint.path must be set")
	}
	return nil
}

// BuildNetwork turns the network section into an ml.Network.
func (c *Config) BuildNetwork() (*ml.Network, error) {
	layers := make([]*ml.Layer, len(c.Network.Layers))
	for i, spec := range c.Network.Layers {
		weights, err := ml.FromRows(spec.Weights)
		if err != nil {
			return nil, fmt.Errorf("network.layers[%d].weights: %w", i, err)
		}

		act := ml.ActRelu
		if i == len(c.Network.Layers)-1 {
			act = ml.ActLinear
		}
		if spec.Activation != "" {
			if act, err = ml.ParseActivation(spec.Activation); err != nil {
				return nil, fmt.Errorf("network.layers[%d]: %w", i, err)
			}
		}

		layers[i], err = ml.NewLayer(weights, ml.NewVector(spec.Biases...), act)
		if err != nil {
			return nil, fmt.Errorf("network.layers[%d]: %w", i, err)
		}
	}
	return ml.NewNetwork(layers...)
}

// PoolModes parses Pool.Modes, defaulting to max only.
func (c *Config) PoolModes() ([]ml.PoolMode, error) {
	if len(c.Pool.Modes) == 0 {
		return []ml.PoolMode{ml.PoolMax}, nil
	}
	modes := make([]ml.PoolMode, len(c.Pool.Modes))
	for i, name := range c.Pool.Modes {
		mode, err := ml.ParsePoolMode(name)
		if err != nil {
			return nil, err
		}
		modes[i] = mode
	}
	return modes, nil
}
