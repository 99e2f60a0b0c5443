package domain

import (
	"fmt"
	"strings"
)

// RootInfo captures the identity of a tree's top-level assembly.
type RootInfo struct {
	PartNumber  string `json:"partNumber"`
	Revision    string `json:"revision"`
	Description string `json:"description"`
}

// Tree is the result of building rows into a hierarchy.
type Tree struct {
	Root *Node
	Info RootInfo
}

// StructureError reports a row set that cannot form a single rooted tree.
type StructureError struct {
	Level  string
	Reason string
}

func (e *StructureError) Error() string {
	if e.Level == "" {
		return "malformed bom structure: " + e.Reason
	}
	return fmt.Sprintf("malformed bom structure at level %s: %s", e.Level, e.Reason)
}

// ParentLevel drops the last dot-separated segment of a level path. The root
// level has no parent and yields "".
func ParentLevel(level string) string {
	idx := strings.LastIndex(level, ".")
	if idx < 0 {
		return ""
	}
	return level[:idx]
}

// Build constructs a tree from rows in export order. Every non-root row must
// resolve to a parent row through its level path, and exactly one row must
// carry the root level. The returned Tree owns every node it references.
func Build(rows []Row) (Tree, error) {
	if len(rows) == 0 {
		return Tree{}, &StructureError{Reason: "no rows"}
	}
	nodes := make([]*Node, 0, len(rows))
	for _, r := range rows {
		nodes = append(nodes, NodeFromRow(r))
	}

	// A level seen more than once resolves to its most recent row, so children
	// listed after a duplicated level attach to the nearest preceding parent.
	// A child listed before any row at its parent level attaches to the first
	// such row that follows it (see findLater).
	byLevel := make(map[string]*Node, len(nodes))
	var root *Node
	for _, n := range nodes {
		if n.Level == "" {
			return Tree{}, &StructureError{Reason: fmt.Sprintf("part %s has an empty level", n.PartNumber)}
		}
		if n.Level == RootLevel {
			if root != nil {
				return Tree{}, &StructureError{Level: RootLevel, Reason: fmt.Sprintf("duplicate root row %s (root is %s)", n.PartNumber, root.PartNumber)}
			}
			root = n
			byLevel[n.Level] = n
			continue
		}
		parentLevel := ParentLevel(n.Level)
		parent, ok := byLevel[parentLevel]
		if !ok {
			parent = findLater(nodes, parentLevel)
		}
		if parent == nil {
			return Tree{}, &StructureError{Level: n.Level, Reason: fmt.Sprintf("no parent row at level %q", parentLevel)}
		}
		parent.Children = append(parent.Children, n)
		byLevel[n.Level] = n
	}
	if root == nil {
		return Tree{}, &StructureError{Level: RootLevel, Reason: "no root row"}
	}
	return Tree{
		Root: root,
		Info: RootInfo{PartNumber: root.PartNumber, Revision: root.Revision, Description: root.Description},
	}, nil
}

// findLater resolves a parent that appears after its child in row order. It is
// only consulted when no earlier row has the level, so the first match is the
// nearest following row.
func findLater(nodes []*Node, level string) *Node {
	if level == "" {
		return nil
	}
	for _, n := range nodes {
		if n.Level == level {
			return n
		}
	}
	return nil
}
