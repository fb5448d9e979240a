package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/b0tShaman/neuro-blocks/config"
	"github.com/b0tShaman/neuro-blocks/data"
	. "github.com/b0tShaman/neuro-blocks/ml"
)

// -------- MAIN -------- //
func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults to the built-in constants)")
	demo := flag.String("demo", "", "Demo to run: relu, pool, saver or all")
	inputCSV := flag.String("input", "", "CSV file with input rows for the relu demo")
	imagePath := flag.String("image", "", "JPEG/PNG to pool instead of the configured grid")
	imageSize := flag.Int("image-size", 28, "Side length the image is rescaled to before pooling")
	ckptPath := flag.String("ckpt", "", "Checkpoint path for the saver demo")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	overrides := config.Overrides{Demo: *demo, CheckpointPath: *ckptPath}
	if *inputCSV != "" {
		input, err := data.LoadCSV(*inputCSV)
		if err != nil {
			log.Fatalf("failed to load input: %v", err)
		}
		overrides.Input = input.ToRows()
	}
	if *imagePath != "" {
		grid, err := data.LoadGrayGrid(*imagePath, *imageSize, *imageSize)
		if err != nil {
			log.Fatalf("failed to load image: %v", err)
		}
		overrides.Grid = grid.ToRows()
	}
	cfg.ApplyOverrides(overrides)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if err := run(cfg, os.Stdout); err != nil {
		log.Fatalf("demo failed: %v", err)
	}
}

func run(cfg *config.Config, w io.Writer) error {
	demos := []struct {
		name string
		fn   func(*config.Config, io.Writer) error
	}{
		{config.DemoRelu, runRelu},
		{config.DemoPool, runPool},
		{config.DemoSaver, runSaver},
	}
	for _, d := range demos {
		if cfg.Demo != config.DemoAll && cfg.Demo != d.name {
			continue
		}
		log.Printf("running %s demo", d.name)
		if err := d.fn(cfg, w); err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
	}
	return nil
}

// runRelu prints every stage of the forward pass.
func runRelu(cfg *config.Config, w io.Writer) error {
	nw, err := cfg.BuildNetwork()
	if err != nil {
		return err
	}
	input, err := FromRows(cfg.Input)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}

	stages, err := nw.Trace(input)
	if err != nil {
		return err
	}
	for i, s := range stages {
		fmt.Fprintf(w, "layer %d pre-activation:\n%v\n", i, s.Pre)
		if nw.Layers[i].ActType != ActLinear {
			fmt.Fprintf(w, "layer %d %v:\n%v\n", i, nw.Layers[i].ActType, s.Post)
		}
	}
	fmt.Fprintf(w, "output:\n%v\n", stages[len(stages)-1].Post)
	return nil
}

func runPool(cfg *config.Config, w io.Writer) error {
	grid, err := FromRows(cfg.Pool.Grid)
	if err != nil {
		return fmt.Errorf("grid: %w", err)
	}
	modes, err := cfg.PoolModes()
	if err != nil {
		return err
	}

	for _, mode := range modes {
		p, err := NewPool2D(cfg.Pool.Window, cfg.Pool.Stride, mode)
		if err != nil {
			return err
		}
		outH, outW := p.OutputSize(grid.Rows(), grid.Cols())
		out, err := p.Forward(grid)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%v pool %dx%d stride %d -> [%d, %d]:\n%v\n",
			mode, p.Window(), p.Window(), p.Stride(), outH, outW, out)
	}
	return nil
}

// runSaver saves a weights/bias pair, then restores it with the
// declarations swapped: once with auto-assigned names, which fails, and once
// with explicit names, which works.
func runSaver(cfg *config.Config, w io.Writer) error {
	path := cfg.Checkpoint.Path
	seed := cfg.Checkpoint.Seed

	scope := NewScope()
	weights := scope.Variable("", TruncatedNormal(2, 3, seed))
	bias := scope.Variable("", TruncatedNormal(1, 3, seed+1))
	fmt.Fprintf(w, "Save Weights: %s\nSave Bias: %s\n", weights.Name, bias.Name)
	if err := Save(path, scope.Variables()); err != nil {
		return err
	}

	scope.Reset()
	bias = scope.Variable("", NewMatrix(1, 3))
	weights = scope.Variable("", NewMatrix(2, 3))
	fmt.Fprintf(w, "Load Weights: %s\nLoad Bias: %s\n", weights.Name, bias.Name)
	err := Restore(path, scope.Variables())
	if !errors.Is(err, ErrDimensionMismatch) {
		return fmt.Errorf("expected a shape mismatch restoring by declaration order, got %v", err)
	}
	fmt.Fprintf(w, "restore by declaration order failed: %v\n", err)

	scope.Reset()
	saved := []*Variable{
		scope.Variable("weights", TruncatedNormal(2, 3, seed)),
		scope.Variable("bias", TruncatedNormal(1, 3, seed+1)),
	}
	if err := Save(path, saved); err != nil {
		return err
	}

	scope.Reset()
	bias = scope.Variable("bias", NewMatrix(1, 3))
	weights = scope.Variable("weights", NewMatrix(2, 3))
	if err := Restore(path, scope.Variables()); err != nil {
		return err
	}
	fmt.Fprintf(w, "restore by name:\nweights:\n%v\nbias:\n%v\n", weights.Value, bias.Value)
	return nil
}
