package core

import (
	"reflect"
	"testing"

	"bomgraft/pkg/domain"
)

func TestCompareIdenticalListsIsEmpty(t *testing.T) {
	items := Flatten(flattenTree(), 1)
	diffs := Compare(items, items)
	if diffs == nil || len(diffs) != 0 {
		t.Fatalf("expected empty non-nil result, got %#v", diffs)
	}
}

func TestCompareClassifiesChanges(t *testing.T) {
	oldItems := []LineItem{
		{PartNumber: "300001", Description: "Bolt", Qty: 4},
		{PartNumber: "300003", Length: lengthPtr(12.5), LengthFraction: `12-1/2"`, Description: "Tube", Qty: 2},
		{PartNumber: "300005", Description: "Washer", Qty: 8},
	}
	newItems := []LineItem{
		{PartNumber: "300001", Description: "Bolt, zinc", PurchaseDescription: "M6 bolt", Qty: 6},
		{PartNumber: "300003", Length: lengthPtr(6), LengthFraction: `6"`, Description: "Tube", Qty: 1},
		{PartNumber: "300005", Description: "Washer", Qty: 8},
	}
	diffs := Compare(oldItems, newItems)
	if len(diffs) != 3 {
		t.Fatalf("expected 3 differences, got %+v", diffs)
	}

	changed := diffs[0]
	if changed.ChangeType != ChangeChanged || changed.DeltaQty != 2 || changed.OldQty != 4 || changed.NewQty != 6 {
		t.Fatalf("unexpected changed entry %+v", changed)
	}
	if !reflect.DeepEqual(changed.AttributesChanged, []string{AttrQty, AttrDescription, AttrPurchaseDescription}) {
		t.Fatalf("unexpected attributes %v", changed.AttributesChanged)
	}

	added := diffs[1]
	if added.ChangeType != ChangeAdded || added.NewQty != 1 || added.DeltaQty != 1 || *added.Length != 6 {
		t.Fatalf("unexpected added entry %+v", added)
	}
	removed := diffs[2]
	if removed.ChangeType != ChangeRemoved || removed.OldQty != 2 || removed.DeltaQty != -2 || removed.LengthFraction != `12-1/2"` {
		t.Fatalf("unexpected removed entry %+v", removed)
	}
}

func TestCompareIsSymmetric(t *testing.T) {
	oldTree := flattenTree()
	newTree := flattenTree()
	newTree.Children[1].Qty = 5
	newTree.Children = append(newTree.Children, part("1.3", "300020", domain.StateIssuedForUse, 2))
	a, b := Flatten(oldTree, 1), Flatten(newTree, 1)

	forward := Compare(a, b)
	backward := Compare(b, a)
	if len(forward) != len(backward) {
		t.Fatalf("expected symmetric result sizes, got %d and %d", len(forward), len(backward))
	}
	byKey := map[string]Difference{}
	for _, d := range backward {
		byKey[ItemKey(d.PartNumber, d.Length)] = d
	}
	for _, d := range forward {
		r := byKey[ItemKey(d.PartNumber, d.Length)]
		if r.DeltaQty != -d.DeltaQty {
			t.Fatalf("%s: expected opposite deltas, got %d and %d", d.PartNumber, d.DeltaQty, r.DeltaQty)
		}
		switch d.ChangeType {
		case ChangeAdded:
			if r.ChangeType != ChangeRemoved {
				t.Fatalf("added entry must be removed in reverse")
			}
		case ChangeChanged:
			if r.ChangeType != ChangeChanged {
				t.Fatalf("changed entry must stay changed in reverse")
			}
		}
	}
}
