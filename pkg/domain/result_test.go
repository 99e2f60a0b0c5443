package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() || !result.Valid() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock}}})
	if !result.HasBlocking() || result.Valid() {
		t.Fatalf("expected blocking violation")
	}
	if errs := result.Errors(); len(errs) != 1 || errs[0].Rule != "block" {
		t.Fatalf("expected only the blocking violation, got %+v", errs)
	}
	err := ValidationError{Result: result}
	if !strings.Contains(err.Error(), "block") {
		t.Fatalf("expected rule name in error string, got %q", err.Error())
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestResultRulesDistinct(t *testing.T) {
	res := Result{Violations: []Violation{{Rule: "a"}, {Rule: "b"}, {Rule: "a"}}}
	rules := res.Rules()
	if len(rules) != 2 || rules[0] != "a" || rules[1] != "b" {
		t.Fatalf("unexpected rules %v", rules)
	}
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	engine.Register(staticRule{"second"})
	res, err := engine.Evaluate(context.Background(), &Node{Level: RootLevel})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 2 || res.Violations[0].Rule != "warn" {
		t.Fatalf("expected violations in registration order, got %+v", res.Violations)
	}
	if len(engine.Rules()) != 2 {
		t.Fatalf("expected two registered rules")
	}
}

func TestRulesEngineEvaluateError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(failingRule{})
	if _, err := engine.Evaluate(context.Background(), &Node{}); err == nil || !strings.Contains(err.Error(), "failing") {
		t.Fatalf("expected wrapped rule error, got %v", err)
	}
}

func TestRevisionExistsError(t *testing.T) {
	err := RevisionExistsError("1J100001", 3)
	if !errors.Is(err, ErrRevisionExists) {
		t.Fatalf("expected ErrRevisionExists, got %v", err)
	}
	if !strings.Contains(err.Error(), "1J100001 REV3") {
		t.Fatalf("expected identity in message, got %q", err.Error())
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, *Node) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type failingRule struct{}

func (failingRule) Name() string { return "failing" }

func (failingRule) Evaluate(context.Context, *Node) (Result, error) {
	return Result{}, errors.New("boom")
}
