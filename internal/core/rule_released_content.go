package core

import (
	"context"
	"fmt"

	"bomgraft/pkg/domain"
)

// ReleasedContentRule enforces what a Released assembly may contain: no WIP
// purchased or stock parts, and at least some released content. WIP
// assemblies are walked through but not checked, since they are grafted from
// the prior snapshot instead of being published.
func ReleasedContentRule() domain.Rule {
	return releasedContentRule{}
}

type releasedContentRule struct{}

func (releasedContentRule) Name() string { return "released_content" }

func (releasedContentRule) Evaluate(_ context.Context, root *domain.Node) (domain.Result, error) {
	res := domain.Result{}
	walkPaths(root, func(n *domain.Node, path string) {
		if !domain.IsAssembly(n) || !n.Released() {
			return
		}
		evaluateReleasedAssembly(&res, n, path)
	})
	return res, nil
}

func evaluateReleasedAssembly(res *domain.Result, asm *domain.Node, path string) {
	var parts, releasedSubassemblies int
	for _, child := range asm.Children {
		if domain.IsAssembly(child) {
			if child.Released() {
				releasedSubassemblies++
			}
			continue
		}
		parts++
		if child.Released() {
			continue
		}
		res.Violations = append(res.Violations, violation(RuleWIPNonAssembly, child, childPath(path, child),
			fmt.Sprintf("%s [%s] is not released but sits in released assembly %s", displayPart(child), child.State, displayPart(asm))))
	}
	if parts == 0 && releasedSubassemblies == 0 {
		res.Violations = append(res.Violations, violation(RuleNoReleasedContent, asm, path,
			fmt.Sprintf("released assembly %s has no parts and no released sub-assemblies", displayPart(asm))))
	}
}
