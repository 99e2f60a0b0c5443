package core

import (
	"context"
	"fmt"

	"bomgraft/pkg/domain"
)

// RootReleasedRule requires the top-level assembly to be Released before a
// snapshot can be published from it.
func RootReleasedRule() domain.Rule {
	return rootReleasedRule{}
}

type rootReleasedRule struct{}

func (rootReleasedRule) Name() string { return RuleWIPGA }

func (rootReleasedRule) Evaluate(_ context.Context, root *domain.Node) (domain.Result, error) {
	res := domain.Result{}
	if root == nil {
		return res, nil
	}
	if !root.Released() {
		res.Violations = append(res.Violations, violation(RuleWIPGA, root, displayPart(root),
			fmt.Sprintf("top-level assembly %s is %q; it must be Issued for Purchasing or Issued for Use", displayPart(root), root.State)))
	}
	return res, nil
}
