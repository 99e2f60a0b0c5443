package domain

import (
	"context"
	"fmt"
	"strings"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine whether a merge may proceed.
const (
	// SeverityBlock blocks the merge until the export is fixed.
	SeverityBlock Severity = "block"
	// SeverityWarn is reported but does not block.
	SeverityWarn Severity = "warn"
)

// Violation reports one failed rule evaluation against one node.
type Violation struct {
	Rule       string   `json:"rule"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Path       string   `json:"path"`
	PartNumber string   `json:"partNumber,omitempty"`
	Level      string   `json:"level,omitempty"`
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation `json:"violations"`
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Valid reports whether the tree may be merged.
func (r Result) Valid() bool { return !r.HasBlocking() }

// Errors returns the blocking violations in evaluation order.
func (r Result) Errors() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// Rules returns the distinct rule identifiers present in the result.
func (r Result) Rules() []string {
	seen := make(map[string]struct{}, len(r.Violations))
	var out []string
	for _, v := range r.Violations {
		if _, ok := seen[v.Rule]; ok {
			continue
		}
		seen[v.Rule] = struct{}{}
		out = append(out, v.Rule)
	}
	return out
}

// ValidationError is returned when blocking violations gate a merge.
type ValidationError struct {
	Result Result
}

func (e ValidationError) Error() string {
	errs := e.Result.Errors()
	if len(errs) == 0 {
		return "merge blocked by validation"
	}
	rules := make([]string, 0, len(errs))
	for _, v := range errs {
		rules = append(rules, v.Rule)
	}
	return fmt.Sprintf("merge blocked by %d validation error(s): %s", len(errs), strings.Join(rules, ", "))
}

// Rule evaluates a BOM tree and reports every violation it finds.
type Rule interface {
	Name() string
	Evaluate(ctx context.Context, root *Node) (Result, error)
}

// RulesEngine orchestrates rule evaluation.
type RulesEngine struct {
	rules []Rule
}

// NewRulesEngine constructs an engine instance.
func NewRulesEngine() *RulesEngine {
	return &RulesEngine{}
}

// Register appends a rule to the engine.
func (e *RulesEngine) Register(rule Rule) {
	e.rules = append(e.rules, rule)
}

// Rules returns the registered rules in evaluation order.
func (e *RulesEngine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate executes all registered rules and aggregates their results.
func (e *RulesEngine) Evaluate(ctx context.Context, root *Node) (Result, error) {
	var combined Result
	for _, rule := range e.rules {
		res, err := rule.Evaluate(ctx, root)
		if err != nil {
			return Result{}, fmt.Errorf("rule %s: %w", rule.Name(), err)
		}
		combined.Merge(res)
	}
	return combined, nil
}
