// Package problem loads numerical problems from YAML files and builds the
// solver or the optimizer that handles them.
//
// A problem file names its variables with their initial domains, lists its
// constraints in the expression syntax of package expr, and optionally
// gives an objective to minimize:
//
//	name: circles
//	variables:
//	  - {name: x, domain: [-10, 10]}
//	  - {name: y, domain: [-10, 10]}
//	constraints:
//	  - sqr(x) + sqr(y) == 1
//	  - sqr(x - 1) + sqr(y) == 1
//	config:
//	  precision: 1e-8
//	  timeout: 10s
//
// Robust groups hold measurements of which at least q must be satisfied;
// they are contracted by a q-relaxed intersection.
package problem

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gitrdm/intervalkit/pkg/expr"
	"github.com/gitrdm/intervalkit/pkg/interval"
	"github.com/gitrdm/intervalkit/pkg/prune"
)

// ErrInvalid reports a problem file that does not describe a problem.
var ErrInvalid = errors.New("invalid problem")

// Variable is a named variable and its initial domain.
type Variable struct {
	Name   string    `yaml:"name" validate:"required"`
	Domain []float64 `yaml:"domain" validate:"len=2"`
}

// Robust is a group of constraints of which at least Q hold at every
// solution.
type Robust struct {
	Q           int      `yaml:"q" validate:"gte=1"`
	Algorithm   string   `yaml:"algorithm" validate:"omitempty,oneof=projection exact"`
	Limit       int      `yaml:"limit" validate:"gte=0"`
	Constraints []string `yaml:"constraints" validate:"min=1,dive,required"`
}

// Problem is the content of a problem file.
type Problem struct {
	Name        string     `yaml:"name" validate:"required"`
	Variables   []Variable `yaml:"variables" validate:"min=1,dive"`
	Constraints []string   `yaml:"constraints" validate:"dive,required"`
	Robust      []Robust   `yaml:"robust" validate:"dive"`
	Minimize    string     `yaml:"minimize"`
	// Bisection is "largest-first" (default) or "round-robin".
	Bisection string `yaml:"bisection" validate:"omitempty,oneof=largest-first round-robin"`
	// Buffer is "depth-first" (default) or "breadth-first"; the optimizer
	// always orders its cells by cost.
	Buffer string       `yaml:"buffer" validate:"omitempty,oneof=depth-first breadth-first"`
	Config prune.Config `yaml:"config"`

	// Path is the file the problem was loaded from, if any.
	Path string `yaml:"-" validate:"-"`
}

var validate = validator.New()

// Load reads the problem file at path.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read problem file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse decodes and validates a problem. Settings missing from the config
// section keep the values of prune.DefaultConfig.
func Parse(data []byte) (*Problem, error) {
	p := &Problem{Config: prune.DefaultConfig()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil {
		return nil, fmt.Errorf("failed to parse problem YAML: %v: %w", err, ErrInvalid)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks the structure of p and its settings. Expressions are
// checked when the system is built.
func (p *Problem) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalid)
	}
	seen := make(map[string]bool, len(p.Variables))
	for _, v := range p.Variables {
		if seen[v.Name] {
			return fmt.Errorf("variable %q declared twice: %w", v.Name, ErrInvalid)
		}
		seen[v.Name] = true
		if lo, hi := v.Domain[0], v.Domain[1]; math.IsNaN(lo) || math.IsNaN(hi) || lo > hi {
			return fmt.Errorf("variable %q has domain [%g, %g]: %w", v.Name, lo, hi, ErrInvalid)
		}
	}
	for i, r := range p.Robust {
		if r.Q > len(r.Constraints) {
			return fmt.Errorf("robust group %d: q=%d with %d constraints: %w", i, r.Q, len(r.Constraints), ErrInvalid)
		}
	}
	if len(p.Constraints) == 0 && len(p.Robust) == 0 && p.Minimize == "" {
		return fmt.Errorf("problem %q has neither constraints nor objective: %w", p.Name, ErrInvalid)
	}
	return nil
}

// Optimization reports whether p has an objective.
func (p *Problem) Optimization() bool { return p.Minimize != "" }

// Vars returns the variable names in declaration order.
func (p *Problem) Vars() []string {
	out := make([]string, len(p.Variables))
	for i, v := range p.Variables {
		out[i] = v.Name
	}
	return out
}

// Box returns the initial box.
func (p *Problem) Box() interval.Box {
	b := interval.NewBox(len(p.Variables))
	for i, v := range p.Variables {
		b.Set(i, interval.New(v.Domain[0], v.Domain[1]))
	}
	return b
}

// System parses the constraints and the objective of p.
func (p *Problem) System() (*expr.System, error) {
	sys, err := expr.ParseSystem(p.Vars(), p.Box(), p.Constraints, p.Minimize)
	if err != nil {
		return nil, fmt.Errorf("problem %q: %w", p.Name, err)
	}
	return sys, nil
}

// Settings returns the search configuration of p.
func (p *Problem) Settings() (prune.Config, error) {
	cfg := p.Config
	policy, err := prune.ParseBisectPolicy(p.Bisection)
	if err != nil {
		return cfg, err
	}
	cfg.Policy = policy
	return cfg, cfg.Validate()
}
