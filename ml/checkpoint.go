package ml

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"
)

// CheckpointVersion is written into every checkpoint header.
const CheckpointVersion = 1

// Variable is a named parameter that can be saved to and restored from a checkpoint.
// The name is the only key: two variables with the same shape but swapped
// names will silently swap values on restore.
type Variable struct {
	Name  string
	Value *Matrix
}

// Scope hands out unique variable names. Variables declared without a
// name are numbered in declaration order ("Variable", "Variable_1", ...),
// so reordering declarations changes which value lands where on restore.
// Prefer explicit names.
//
// A Scope is not safe for concurrent use.
type Scope struct {
	vars  []*Variable
	names map[string]bool
	next  map[string]int
}

func NewScope() *Scope {
	return &Scope{names: map[string]bool{}, next: map[string]int{}}
}

// Variable declares a new variable. An empty name is replaced by "Variable";
// a name already taken gets a "_N" suffix.
func (s *Scope) Variable(name string, value *Matrix) *Variable {
	base := name
	if base == "" {
		base = "Variable"
	}
	unique := base
	for s.names[unique] {
		s.next[base]++
		unique = fmt.Sprintf("%s_%d", base, s.next[base])
	}
	s.names[unique] = true

	v := &Variable{Name: unique, Value: value}
	s.vars = append(s.vars, v)
	return v
}

// Variables returns every declared variable in declaration order.
func (s *Scope) Variables() []*Variable {
	return slices.Clone(s.vars)
}

func (s *Scope) Lookup(name string) (*Variable, bool) {
	for _, v := range s.vars {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Reset forgets all declared variables and naming counters.
func (s *Scope) Reset() {
	s.vars = nil
	s.names = map[string]bool{}
	s.next = map[string]int{}
}

// Checkpoint is the decoded content of a checkpoint file.
type Checkpoint struct {
	Version   int
	CreatedAt time.Time
	Tensors   map[string]*Matrix
}

// Names lists the stored variable names, sorted.
func (c *Checkpoint) Names() []string {
	names := make([]string, 0, len(c.Tensors))
	for name := range c.Tensors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Save writes vars to path keyed by name.
func Save(path string, vars []*Variable) (err error) {
	ckpt := Checkpoint{
		Version:   CheckpointVersion,
		CreatedAt: time.Now().UTC(),
		Tensors:   make(map[string]*Matrix, len(vars)),
	}
	for _, v := range vars {
		if v.Name == "" {
			return errors.New("save checkpoint: variable has no name")
		}
		if v.Value == nil {
			return fmt.Errorf("save checkpoint: variable %q has no value", v.Name)
		}
		if _, dup := ckpt.Tensors[v.Name]; dup {
			return fmt.Errorf("save checkpoint: duplicate variable name %q", v.Name)
		}
		ckpt.Tensors[v.Name] = v.Value
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("save checkpoint: %w", closeErr)
		}
	}()

	if err := gob.NewEncoder(file).Encode(&ckpt); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint written by Save.
func Load(path string) (*Checkpoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	defer file.Close()

	var ckpt Checkpoint
	if err := gob.NewDecoder(file).Decode(&ckpt); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint %s: %w", path, err)
	}
	if ckpt.Version != CheckpointVersion {
		return nil, fmt.Errorf("checkpoint %s: unsupported version %d", path, ckpt.Version)
	}
	return &ckpt, nil
}

// Restore loads path and assigns each variable the value stored under its
// name. Every variable is validated before any is assigned, so on error
// none of vars has changed.
func Restore(path string, vars []*Variable) error {
	ckpt, err := Load(path)
	if err != nil {
		return err
	}

	values := make([]*Matrix, len(vars))
	for i, v := range vars {
		stored, ok := ckpt.Tensors[v.Name]
		if !ok {
			return fmt.Errorf("restore %q: %w", v.Name, ErrMissingVariable)
		}
		if v.Value != nil && (stored.rows != v.Value.rows || stored.cols != v.Value.cols) {
			return fmt.Errorf("restore %q: %w", v.Name,
				shapeMismatch("restore", v.Value.rows, v.Value.cols, stored.rows, stored.cols))
		}
		values[i] = stored
	}

	for i, v := range vars {
		v.Value = values[i]
	}
	return nil
}
