package core

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"bomgraft/pkg/domain"
)

var (
	partNumberPattern = regexp.MustCompile(`^(1\d{6}(-\d{2}(-\d)?)?|[23]\d{5})$`)
	revisionPattern   = regexp.MustCompile(`^\d+$`)
	stockLengthRE     = regexp.MustCompile(`^\d+(\.\d+)?(in)?$`)

	allowedItemTypes = map[domain.NSItemType]struct{}{
		domain.ItemInventory:            {},
		domain.ItemLotNumberedInventory: {},
		domain.ItemAssembly:             {},
	}
	allowedComponentTypes = map[domain.ComponentType]struct{}{
		domain.ComponentPurchased:    {},
		domain.ComponentManufactured: {},
		domain.ComponentRawStock:     {},
		domain.ComponentAssembly:     {},
	}
	allowedUofM = map[string]struct{}{"ea": {}, "in": {}, "sq in": {}}
)

// consistency lists the column values an item type may be combined with.
type consistency struct {
	uofm           []string
	componentTypes []domain.ComponentType
	stockLength    bool
}

var itemTypeConsistency = map[domain.NSItemType]consistency{
	domain.ItemInventory: {
		uofm:           []string{"ea"},
		componentTypes: []domain.ComponentType{domain.ComponentPurchased, domain.ComponentManufactured},
	},
	domain.ItemAssembly: {
		uofm:           []string{"ea"},
		componentTypes: []domain.ComponentType{domain.ComponentAssembly, domain.ComponentManufactured},
	},
	domain.ItemLotNumberedInventory: {
		uofm:           []string{"in", "sq in"},
		componentTypes: []domain.ComponentType{domain.ComponentRawStock},
		stockLength:    true,
	},
}

// NodeMetadataRule checks every node's own fields: item type presence,
// part number format, description, revision, the enumerated columns and
// their cross-field consistency.
func NodeMetadataRule() domain.Rule {
	return nodeMetadataRule{}
}

type nodeMetadataRule struct{}

func (nodeMetadataRule) Name() string { return "node_metadata" }

func (nodeMetadataRule) Evaluate(_ context.Context, root *domain.Node) (domain.Result, error) {
	res := domain.Result{}
	walkPaths(root, func(n *domain.Node, path string) {
		if n.NSItemType == "" {
			res.Violations = append(res.Violations, violation(RuleMissingItemType, n, path,
				fmt.Sprintf("%s has no NS Item Type", displayPart(n))))
			return
		}
		res.Violations = append(res.Violations, checkNodeMetadata(n, path)...)
	})
	return res, nil
}

func checkNodeMetadata(n *domain.Node, path string) []domain.Violation {
	var out []domain.Violation
	pn := displayPart(n)
	if !partNumberPattern.MatchString(n.PartNumber) {
		out = append(out, violation(RulePartNumberFormat, n, path,
			fmt.Sprintf("part number %q does not match the numbering scheme", n.PartNumber)))
	}
	if n.Description == "" {
		out = append(out, violation(RuleDescription, n, path,
			fmt.Sprintf("%s has no description", pn)))
	}
	if !revisionPattern.MatchString(n.Revision) {
		out = append(out, violation(RuleRevisionInteger, n, path,
			fmt.Sprintf("%s revision %q is not an integer", pn, n.Revision)))
	}
	_, itemTypeOK := allowedItemTypes[n.NSItemType]
	if !itemTypeOK {
		out = append(out, violation(RuleItemType, n, path,
			fmt.Sprintf("%s has unknown NS Item Type %q", pn, n.NSItemType)))
	}
	if _, ok := allowedComponentTypes[n.ComponentType]; !ok {
		out = append(out, violation(RuleComponentType, n, path,
			fmt.Sprintf("%s has unknown Component Type %q", pn, n.ComponentType)))
	}
	if _, ok := allowedUofM[n.UofM]; !ok {
		out = append(out, violation(RuleUofM, n, path,
			fmt.Sprintf("%s has unknown unit of measure %q", pn, n.UofM)))
	}
	if itemTypeOK {
		out = append(out, checkConsistency(n, path)...)
	}
	return out
}

func checkConsistency(n *domain.Node, path string) []domain.Violation {
	want := itemTypeConsistency[n.NSItemType]
	pn := displayPart(n)
	var out []domain.Violation
	if !containsString(want.uofm, n.UofM) {
		out = append(out, violation(RuleFieldConsistency, n, path,
			fmt.Sprintf("%s is %s but its unit of measure is %q (expected %s)", pn, n.NSItemType, n.UofM, strings.Join(want.uofm, " or "))))
	}
	raw := strings.TrimSpace(n.RawLength)
	if want.stockLength {
		if !stockLengthRE.MatchString(raw) {
			out = append(out, violation(RuleFieldConsistency, n, path,
				fmt.Sprintf("%s is %s but its length %q is not a stock length", pn, n.NSItemType, n.RawLength)))
		}
	} else if raw != "" && raw != "-" {
		out = append(out, violation(RuleFieldConsistency, n, path,
			fmt.Sprintf("%s is %s and must not carry a length (got %q)", pn, n.NSItemType, n.RawLength)))
	}
	if !containsComponentType(want.componentTypes, n.ComponentType) {
		names := make([]string, 0, len(want.componentTypes))
		for _, ct := range want.componentTypes {
			names = append(names, string(ct))
		}
		out = append(out, violation(RuleFieldConsistency, n, path,
			fmt.Sprintf("%s is %s but its Component Type is %q (expected %s)", pn, n.NSItemType, n.ComponentType, strings.Join(names, " or "))))
	}
	return out
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func containsComponentType(list []domain.ComponentType, v domain.ComponentType) bool {
	for _, ct := range list {
		if ct == v {
			return true
		}
	}
	return false
}
