package core

import (
	"fmt"

	"bomgraft/pkg/domain"
)

// MergeSummary re-exports the domain summary for callers of the merge engine.
type MergeSummary = domain.MergeSummary

// MergeResult is the outcome of grafting a current export onto a prior
// snapshot.
type MergeResult struct {
	Tree     *domain.Node `json:"tree"`
	Warnings []string     `json:"warnings"`
	Summary  MergeSummary `json:"summary"`
	// DuplicatePriorAssemblies lists assembly part numbers that occur more
	// than once in the prior snapshot. Only the first occurrence is grafted.
	DuplicatePriorAssemblies []string `json:"duplicatePriorAssemblies,omitempty"`
}

// changeFields is the order in which graft differences are reported. State is
// excluded: it always differs on a graft point.
var changeFields = []string{"qty", "description", "revision", "material", "length", "uofm", "purchaseDescription"}

// Merge walks source top-down and builds a new tree in which every WIP
// assembly is replaced by its subtree from prior (or an empty placeholder
// when prior has none). Released assemblies and parts are taken from source.
// prior is nil for the first revision. Neither input is modified and the
// result shares no nodes with either.
func Merge(source, prior *domain.Node) MergeResult {
	m := &merger{}
	m.index, m.duplicates = indexAssemblies(prior)
	out := MergeResult{Warnings: []string{}}
	if source != nil {
		out.Tree = m.visit(source)
	}
	m.warnings = append(m.warnings, missingAssemblyWarnings(source, prior)...)
	out.Warnings = append(out.Warnings, m.warnings...)
	out.Summary = m.summary
	out.DuplicatePriorAssemblies = m.duplicates
	return out
}

type merger struct {
	index      map[string]*domain.Node
	duplicates []string
	warnings   []string
	summary    MergeSummary
}

func (m *merger) visit(n *domain.Node) *domain.Node {
	if domain.IsAssembly(n) && !n.Released() {
		return m.graft(n)
	}
	out := n.ShallowCopy()
	out.Tag(domain.SourceCurrent, nil)
	if domain.IsAssembly(n) {
		m.summary.PassedThrough++
	}
	for _, child := range n.Children {
		if domain.IsAssembly(child) {
			out.Children = append(out.Children, m.visit(child))
			continue
		}
		part := child.ShallowCopy()
		part.Tag(domain.SourceCurrent, nil)
		out.Children = append(out.Children, part)
	}
	return out
}

func (m *merger) graft(n *domain.Node) *domain.Node {
	prior, ok := m.index[n.PartNumber]
	if !ok {
		placeholder := n.ShallowCopy()
		placeholder.Tag(domain.SourceGrafted, nil)
		m.warnings = append(m.warnings,
			fmt.Sprintf("%s [%s] has no prior released BOM — included as empty placeholder", n.PartNumber, n.State))
		m.summary.Placeholders++
		return placeholder
	}
	clone := prior.Clone()
	domain.Walk(clone, func(node *domain.Node) bool {
		node.Tag(domain.SourceGrafted, nil)
		return true
	})
	if changes := FieldChanges(prior, n); len(changes) > 0 {
		clone.Provenance.Changes = changes
	}
	clone.Qty = n.Qty
	m.summary.Grafted++
	return clone
}

// FieldChanges compares the tracked fields of a prior node against the
// current one, reporting prior values as From and current values as To.
func FieldChanges(prior, current *domain.Node) []domain.FieldChange {
	var out []domain.FieldChange
	for _, field := range changeFields {
		from, to, differ := compareField(field, prior, current)
		if differ {
			out = append(out, domain.FieldChange{Field: field, From: from, To: to})
		}
	}
	return out
}

func compareField(field string, prior, current *domain.Node) (any, any, bool) {
	switch field {
	case "qty":
		return prior.Qty, current.Qty, prior.Qty != current.Qty
	case "description":
		return prior.Description, current.Description, prior.Description != current.Description
	case "revision":
		return prior.Revision, current.Revision, prior.Revision != current.Revision
	case "material":
		return prior.Material, current.Material, prior.Material != current.Material
	case "length":
		return lengthValue(prior.Length), lengthValue(current.Length), !domain.LengthEqual(prior.Length, current.Length)
	case "uofm":
		return prior.UofM, current.UofM, prior.UofM != current.UofM
	case "purchaseDescription":
		return prior.PurchaseDescription, current.PurchaseDescription, prior.PurchaseDescription != current.PurchaseDescription
	}
	return nil, nil, false
}

func lengthValue(l *float64) any {
	if l == nil {
		return nil
	}
	return *l
}

// indexAssemblies maps assembly part numbers to their first pre-order
// occurrence and reports part numbers seen more than once.
func indexAssemblies(root *domain.Node) (map[string]*domain.Node, []string) {
	index := make(map[string]*domain.Node)
	var duplicates []string
	reported := make(map[string]struct{})
	domain.Walk(root, func(n *domain.Node) bool {
		if !domain.IsAssembly(n) {
			return true
		}
		if _, ok := index[n.PartNumber]; !ok {
			index[n.PartNumber] = n
			return true
		}
		if _, ok := reported[n.PartNumber]; !ok {
			reported[n.PartNumber] = struct{}{}
			duplicates = append(duplicates, n.PartNumber)
		}
		return true
	})
	return index, duplicates
}

// assemblyPartNumbers lists distinct assembly part numbers in pre-order.
func assemblyPartNumbers(root *domain.Node) []string {
	seen := make(map[string]struct{})
	var out []string
	domain.Walk(root, func(n *domain.Node) bool {
		if !domain.IsAssembly(n) {
			return true
		}
		if _, ok := seen[n.PartNumber]; !ok {
			seen[n.PartNumber] = struct{}{}
			out = append(out, n.PartNumber)
		}
		return true
	})
	return out
}

func missingAssemblyWarnings(source, prior *domain.Node) []string {
	if prior == nil {
		return nil
	}
	present := make(map[string]struct{})
	for _, pn := range assemblyPartNumbers(source) {
		present[pn] = struct{}{}
	}
	var out []string
	for _, pn := range assemblyPartNumbers(prior) {
		if _, ok := present[pn]; ok {
			continue
		}
		out = append(out, fmt.Sprintf("Assembly %s exists in B(n-1) but is absent from X(n) — may be deleted or suppressed", pn))
	}
	return out
}
