package core

import (
	"context"
	"strings"

	"bomgraft/pkg/domain"
)

type (
	Rule        = domain.Rule
	RulesEngine = domain.RulesEngine
	Result      = domain.Result
	Violation   = domain.Violation
)

// Rule identifiers reported in violations.
const (
	RuleWIPGA             = "wip-ga"
	RuleMissingItemType   = "missing-ns-item-type"
	RulePartNumberFormat  = "part-number-format"
	RuleDescription       = "description-required"
	RuleRevisionInteger   = "revision-integer"
	RuleItemType          = "ns-item-type"
	RuleComponentType     = "component-type"
	RuleUofM              = "uofm"
	RuleFieldConsistency  = "field-consistency"
	RuleWIPNonAssembly    = "wip-non-assembly"
	RuleNoReleasedContent = "no-released-content"
)

const (
	pathSeparator          = " > "
	blockingRuleSeverity   = domain.SeverityBlock
	unknownPartPlaceholder = "(blank)"
)

// NewRulesEngine constructs an empty engine.
func NewRulesEngine() *RulesEngine {
	return domain.NewRulesEngine()
}

// NewDefaultRulesEngine builds a rules engine with the built-in BOM policy set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := NewRulesEngine()
	engine.Register(RootReleasedRule())
	engine.Register(NodeMetadataRule())
	engine.Register(ReleasedContentRule())
	return engine
}

// Validate runs the default rule set against a tree and returns every
// violation found.
func Validate(ctx context.Context, root *domain.Node) Result {
	res, err := NewDefaultRulesEngine().Evaluate(ctx, root)
	if err != nil {
		// Built-in rules do not fail; keep the contract total anyway.
		return Result{Violations: []Violation{{Rule: "engine", Severity: blockingRuleSeverity, Message: err.Error()}}}
	}
	return res
}

// walkPaths visits every node in pre-order with its part-number breadcrumb.
func walkPaths(root *domain.Node, fn func(n *domain.Node, path string)) {
	var visit func(n *domain.Node, prefix []string)
	visit = func(n *domain.Node, prefix []string) {
		if n == nil {
			return
		}
		crumbs := append(prefix[:len(prefix):len(prefix)], displayPart(n))
		fn(n, strings.Join(crumbs, pathSeparator))
		for _, child := range n.Children {
			visit(child, crumbs)
		}
	}
	visit(root, nil)
}

func childPath(parentPath string, child *domain.Node) string {
	if parentPath == "" {
		return displayPart(child)
	}
	return parentPath + pathSeparator + displayPart(child)
}

func displayPart(n *domain.Node) string {
	if n.PartNumber == "" {
		return unknownPartPlaceholder
	}
	return n.PartNumber
}

func violation(rule string, n *domain.Node, path, message string) Violation {
	return Violation{
		Rule:       rule,
		Severity:   blockingRuleSeverity,
		Message:    message,
		Path:       path,
		PartNumber: n.PartNumber,
		Level:      n.Level,
	}
}
