package core

import "bomgraft/pkg/domain"

const wipState = "In Progress"

func lengthPtr(v float64) *float64 { return &v }

func asm(level, pn, state string, qty int, children ...*domain.Node) *domain.Node {
	if children == nil {
		children = []*domain.Node{}
	}
	return &domain.Node{
		Level: level, PartNumber: pn, NSItemType: domain.ItemAssembly, ComponentType: domain.ComponentAssembly,
		Description: "Assembly " + pn, Revision: "1", UofM: "ea", State: state, Qty: qty, Children: children,
	}
}

func part(level, pn, state string, qty int) *domain.Node {
	return &domain.Node{
		Level: level, PartNumber: pn, NSItemType: domain.ItemInventory, ComponentType: domain.ComponentPurchased,
		Description: "Part " + pn, Revision: "1", UofM: "ea", State: state, Qty: qty, Children: []*domain.Node{},
	}
}

func stock(level, pn string, qty int, length float64, raw string) *domain.Node {
	return &domain.Node{
		Level: level, PartNumber: pn, NSItemType: domain.ItemLotNumberedInventory, ComponentType: domain.ComponentRawStock,
		Description: "Stock " + pn, Material: "6061-T6", Revision: "1", UofM: "in", State: domain.StateIssuedForUse,
		Qty: qty, Length: lengthPtr(length), RawLength: raw, Children: []*domain.Node{},
	}
}

func hasRule(res domain.Result, rule string) bool {
	for _, v := range res.Violations {
		if v.Rule == rule {
			return true
		}
	}
	return false
}

func countRule(res domain.Result, rule string) int {
	n := 0
	for _, v := range res.Violations {
		if v.Rule == rule {
			n++
		}
	}
	return n
}
