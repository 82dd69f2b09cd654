// Package config decodes a YAML benchmark description into harness options and solver
// entries.
//
//	budget:
//	  maxIterations: 1000
//	  maxWallClock: 30s
//	seeds: [1, 2, 3]
//	solvers:
//	  - name: aco
//	    kind: aco
//	    params:
//	      ants: 25
//	      localSearch: true
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"vrptw/internal/aco"
	"vrptw/internal/bench"
	"vrptw/internal/exact"
	"vrptw/internal/opt"
	"vrptw/internal/pso"
	"vrptw/internal/tabu"
)

// Kinds lists the recognised solver kinds.
var Kinds = []string{"aco", "pso", "tabu", "exact"}

// File is a decoded benchmark description.
type File struct {
	Budget           opt.Stopping  `yaml:"budget"`
	Seeds            []int64       `yaml:"seeds"`
	Parallelism      int           `yaml:"parallelism"`
	ProgressInterval time.Duration `yaml:"progressInterval"`
	Solvers          []Solver      `yaml:"solvers"`
}

// Solver is one solver section. Params hold the kind's hyperparameters; keys not given
// keep the kind's defaults.
type Solver struct {
	Name   string    `yaml:"name"`
	Kind   string    `yaml:"kind"`
	Params yaml.Node `yaml:"params"`
}

// Load decodes r. Unknown keys anywhere in the document are rejected.
func Load(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: config: empty document", opt.ErrInvalidConfig)
		}
		return nil, fmt.Errorf("%w: config: %v", opt.ErrInvalidConfig, err)
	}
	if len(f.Solvers) == 0 {
		return nil, fmt.Errorf("%w: config: no solvers", opt.ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(f.Solvers))
	for i := range f.Solvers {
		s := &f.Solvers[i]
		if s.Name == "" {
			s.Name = s.Kind
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("%w: config: duplicate solver name %q", opt.ErrInvalidConfig, s.Name)
		}
		seen[s.Name] = true
		if _, err := s.Entry(); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// Options returns the harness options described by the file. The logger is left to the
// caller.
func (f *File) Options() bench.Options {
	return bench.Options{
		Budget:           f.Budget,
		Seeds:            append([]int64(nil), f.Seeds...),
		Parallelism:      f.Parallelism,
		ProgressInterval: f.ProgressInterval,
	}
}

// Entries maps every solver section to a harness entry.
func (f *File) Entries() ([]bench.Entry, error) {
	out := make([]bench.Entry, 0, len(f.Solvers))
	for i := range f.Solvers {
		e, err := f.Solvers[i].Entry()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Entry decodes the section's params over the kind's defaults. Hyperparameter values are
// validated when the harness builds the solver, so a bad value excludes only that solver.
func (s *Solver) Entry() (bench.Entry, error) {
	switch s.Kind {
	case "aco":
		cfg := aco.DefaultConfig()
		if err := s.decode(&cfg); err != nil {
			return bench.Entry{}, err
		}
		return entry(s.Name, cfg.Settings, func(set opt.Settings) (opt.Solver, error) {
			c := cfg
			c.Settings = set
			return aco.New(c)
		}), nil
	case "pso":
		cfg := pso.DefaultConfig()
		if err := s.decode(&cfg); err != nil {
			return bench.Entry{}, err
		}
		return entry(s.Name, cfg.Settings, func(set opt.Settings) (opt.Solver, error) {
			c := cfg
			c.Settings = set
			return pso.New(c)
		}), nil
	case "tabu":
		cfg := tabu.DefaultConfig()
		if err := s.decode(&cfg); err != nil {
			return bench.Entry{}, err
		}
		return entry(s.Name, cfg.Settings, func(set opt.Settings) (opt.Solver, error) {
			c := cfg
			c.Settings = set
			return tabu.New(c)
		}), nil
	case "exact":
		cfg := exact.DefaultConfig()
		if err := s.decode(&cfg); err != nil {
			return bench.Entry{}, err
		}
		return entry(s.Name, cfg.Settings, func(set opt.Settings) (opt.Solver, error) {
			c := cfg
			c.Settings = set
			return exact.NewSolver(c)
		}), nil
	}
	return bench.Entry{}, fmt.Errorf("%w: config: solver %q has unknown kind %q (want one of %v)", opt.ErrInvalidConfig, s.Name, s.Kind, Kinds)
}

func entry(name string, s opt.Settings, build func(opt.Settings) (opt.Solver, error)) bench.Entry {
	return bench.Entry{Name: name, Settings: s, Build: build}
}

// decode applies the params node to out, keeping out's values for absent keys. The node is
// re-encoded so the strict decoder also covers params.
func (s *Solver) decode(out any) error {
	if s.Params.Kind == 0 {
		return nil
	}
	raw, err := yaml.Marshal(&s.Params)
	if err != nil {
		return fmt.Errorf("config: solver %q: %w", s.Name, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: config: solver %q params: %v", opt.ErrInvalidConfig, s.Name, err)
	}
	return nil
}
