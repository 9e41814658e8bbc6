// Package rules provides the CEL-Go based risk-factor engine. Risk
// factors are rule checks against raw (pre-scaling) feature values,
// evaluated independently of the model score; each matching rule
// contributes one fixed human-readable reason, in rule order.
package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/kestrelhq/kestrel/internal/domain"
	"github.com/kestrelhq/kestrel/internal/features"
)

// Engine holds compiled risk rules.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled []*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.RiskRule
	Program cel.Program
}

// NewEngine creates a rule engine with the feature variables declared.
// Every column from the shared feature list is available to expressions
// under its contract name.
func NewEngine() (*Engine, error) {
	opts := make([]cel.EnvOption, 0, len(features.Names))
	for _, name := range features.Names {
		opts = append(opts, cel.Variable(name, cel.DoubleType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{env: env}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(cfg *domain.RiskRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}
	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule. A rule with an existing ID is
// replaced in place.
func (e *Engine) LoadRule(cfg *domain.RiskRule) error {
	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, existing := range e.compiled {
		if existing.Config.ID == cfg.ID {
			e.compiled[i] = compiled
			e.sortLocked()
			return nil
		}
	}
	e.compiled = append(e.compiled, compiled)
	e.sortLocked()
	return nil
}

// LoadRules compiles and loads multiple rules, skipping disabled ones.
func (e *Engine) LoadRules(configs []*domain.RiskRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Evaluate runs all loaded rules against a raw feature vector and
// returns the reasons of matching rules in priority order. A rule that
// errors at runtime contributes nothing; a broken rule must not block
// scoring.
func (e *Engine) Evaluate(raw []float64) []string {
	e.mu.RLock()
	compiled := make([]*CompiledRule, len(e.compiled))
	copy(compiled, e.compiled)
	e.mu.RUnlock()

	activation := make(map[string]any, len(features.Names))
	for i, name := range features.Names {
		if i < len(raw) {
			activation[name] = raw[i]
		} else {
			activation[name] = 0.0
		}
	}

	var reasons []string
	for _, rule := range compiled {
		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			continue
		}
		if matched, ok := out.(types.Bool); ok && bool(matched) {
			reasons = append(reasons, rule.Config.Reason)
		}
	}
	return reasons
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// LoadedRules returns the currently loaded rule configurations in
// evaluation order.
func (e *Engine) LoadedRules() []*domain.RiskRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*domain.RiskRule, 0, len(e.compiled))
	for _, c := range e.compiled {
		out = append(out, c.Config)
	}
	return out
}

func (e *Engine) compileRule(cfg *domain.RiskRule) (*CompiledRule, error) {
	if cfg.Reason == "" {
		return nil, fmt.Errorf("rule %s: reason is required", cfg.ID)
	}

	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{Config: cfg, Program: program}, nil
}

// sortLocked keeps rules in priority order, ties broken by ID so the
// order is stable. Caller holds e.mu.
func (e *Engine) sortLocked() {
	sort.SliceStable(e.compiled, func(i, j int) bool {
		a, b := e.compiled[i].Config, e.compiled[j].Config
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.ID < b.ID
	})
}
