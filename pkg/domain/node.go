// Package domain defines the bill-of-materials tree, the row records it is
// built from, provenance annotations, and the rule evaluation primitives used
// by bomgraft.
package domain

// ComponentType is the display classification of a part. It is never used to
// decide whether a node is an assembly; see IsAssembly.
type ComponentType string

// Supported component types.
const (
	ComponentPurchased    ComponentType = "Purchased"
	ComponentManufactured ComponentType = "Manufactured"
	ComponentRawStock     ComponentType = "Raw Stock"
	ComponentAssembly     ComponentType = "Assembly"
)

// NSItemType is the authoritative item type exported by the ERP.
type NSItemType string

// Supported item types. An empty item type is a validation error.
const (
	ItemInventory            NSItemType = "Inventory"
	ItemLotNumberedInventory NSItemType = "Lot Numbered Inventory"
	ItemAssembly             NSItemType = "Assembly"
)

// Lifecycle states that count as Released. Every other state is WIP.
const (
	StateIssuedForPurchasing = "Issued for Purchasing"
	StateIssuedForUse        = "Issued for Use"
)

// RootLevel is the level string of the top-level assembly.
const RootLevel = "1"

// Source records where a merged node came from.
type Source string

const (
	// SourceCurrent marks a node taken from the freshly exported structure.
	SourceCurrent Source = "current"
	// SourceGrafted marks a node copied from the prior sealed artifact, or a
	// placeholder standing in for one.
	SourceGrafted Source = "grafted"
)

// FieldChange describes one field that differs between the prior snapshot and
// the current export of a grafted assembly.
type FieldChange struct {
	Field string `json:"field"`
	From  any    `json:"from"`
	To    any    `json:"to"`
}

// Provenance is the merge-time annotation carried by a node. It is not part of
// node identity but is serialized (and therefore hashed) with the node.
type Provenance struct {
	Source  Source        `json:"_source,omitempty"`
	Changes []FieldChange `json:"_changes,omitempty"`
}

// Node is one part or assembly occurrence in a BOM tree. Children are owned
// exclusively by their parent.
type Node struct {
	Level               string        `json:"level"`
	PartNumber          string        `json:"partNumber"`
	ComponentType       ComponentType `json:"componentType"`
	NSItemType          NSItemType    `json:"nsItemType"`
	Description         string        `json:"description"`
	Material            string        `json:"material"`
	PurchaseDescription string        `json:"purchaseDescription"`
	Revision            string        `json:"revision"`
	UofM                string        `json:"uofm"`
	State               string        `json:"state"`
	Qty                 int           `json:"qty"`
	Length              *float64      `json:"length"`
	RawLength           string        `json:"rawLength"`
	Children            []*Node       `json:"children"`

	*Provenance
}

// IsAssembly reports whether the node is an assembly. Only NSItemType decides
// this; ComponentType is known to disagree with it in real exports.
func IsAssembly(n *Node) bool {
	return n != nil && n.NSItemType == ItemAssembly
}

// IsReleased reports whether a lifecycle state counts as Released.
func IsReleased(state string) bool {
	return state == StateIssuedForPurchasing || state == StateIssuedForUse
}

// Released reports whether the node's own state is Released.
func (n *Node) Released() bool {
	return IsReleased(n.State)
}

// SourceTag returns the provenance source or "" when the node is unannotated.
func (n *Node) SourceTag() Source {
	if n.Provenance == nil {
		return ""
	}
	return n.Provenance.Source
}

// FieldChanges returns the recorded field changes, if any.
func (n *Node) FieldChanges() []FieldChange {
	if n.Provenance == nil {
		return nil
	}
	return n.Provenance.Changes
}

// Tag replaces the node's provenance with the supplied source and changes.
func (n *Node) Tag(source Source, changes []FieldChange) {
	n.Provenance = &Provenance{Source: source, Changes: changes}
}

// ShallowCopy returns a copy of the node's own business fields without
// children or annotations.
func (n *Node) ShallowCopy() *Node {
	cp := *n
	cp.Length = cloneLength(n.Length)
	cp.Children = []*Node{}
	cp.Provenance = nil
	return &cp
}

// Clone returns a deep copy of the subtree rooted at n, annotations included.
// The copy shares no pointers with the original.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	cp := n.ShallowCopy()
	if n.Provenance != nil {
		cp.Provenance = &Provenance{Source: n.Provenance.Source}
		if len(n.Provenance.Changes) > 0 {
			cp.Provenance.Changes = append([]FieldChange(nil), n.Provenance.Changes...)
		}
	}
	cp.Children = make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		cp.Children = append(cp.Children, child.Clone())
	}
	return cp
}

// SameAs reports whether two nodes carry identical business fields. Children
// and provenance annotations are ignored.
func (n *Node) SameAs(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}
	return n.Level == other.Level &&
		n.PartNumber == other.PartNumber &&
		n.ComponentType == other.ComponentType &&
		n.NSItemType == other.NSItemType &&
		n.Description == other.Description &&
		n.Material == other.Material &&
		n.PurchaseDescription == other.PurchaseDescription &&
		n.Revision == other.Revision &&
		n.UofM == other.UofM &&
		n.State == other.State &&
		n.Qty == other.Qty &&
		LengthEqual(n.Length, other.Length) &&
		n.RawLength == other.RawLength
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		Walk(child, fn)
	}
}

// StripChanges removes every _changes annotation in the subtree while
// keeping _source.
func StripChanges(n *Node) {
	Walk(n, func(node *Node) bool {
		if node.Provenance != nil {
			node.Provenance.Changes = nil
		}
		return true
	})
}

// EnsureChildren replaces nil children slices with empty ones throughout the
// subtree and drops nil entries.
func EnsureChildren(n *Node) {
	Walk(n, func(node *Node) bool {
		if node.Children == nil {
			node.Children = []*Node{}
			return true
		}
		kept := node.Children[:0]
		for _, child := range node.Children {
			if child != nil {
				kept = append(kept, child)
			}
		}
		node.Children = kept
		return true
	})
}

// LengthEqual compares two nullable lengths.
func LengthEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneLength(l *float64) *float64 {
	if l == nil {
		return nil
	}
	v := *l
	return &v
}
