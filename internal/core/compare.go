package core

import "bomgraft/pkg/domain"

// ChangeType classifies a difference between two flattened lists.
type ChangeType string

const (
	ChangeAdded   ChangeType = "Added"
	ChangeRemoved ChangeType = "Removed"
	ChangeChanged ChangeType = "Changed"
)

// Attributes reported in Difference.AttributesChanged.
const (
	AttrQty                 = "qty"
	AttrDescription         = "description"
	AttrPurchaseDescription = "purchaseDescription"
)

// Difference is one Added, Removed or Changed line between two parts lists.
type Difference struct {
	ChangeType             ChangeType           `json:"changeType"`
	PartNumber             string               `json:"partNumber"`
	ComponentType          domain.ComponentType `json:"componentType"`
	Length                 *float64             `json:"length"`
	LengthFraction         string               `json:"lengthFraction"`
	OldQty                 int                  `json:"oldQty"`
	NewQty                 int                  `json:"newQty"`
	OldDescription         string               `json:"oldDescription"`
	NewDescription         string               `json:"newDescription"`
	OldPurchaseDescription string               `json:"oldPurchaseDescription"`
	NewPurchaseDescription string               `json:"newPurchaseDescription"`
	DeltaQty               int                  `json:"deltaQty"`
	AttributesChanged      []string             `json:"attributesChanged"`
}

// Compare classifies the composite keys of two flattened lists. Items whose
// quantity, description and purchase description all match are omitted.
// Added and Changed entries follow the order of newItems; Removed entries
// follow the order of oldItems and come last.
func Compare(oldItems, newItems []LineItem) []Difference {
	oldByKey := make(map[string]LineItem, len(oldItems))
	for _, item := range oldItems {
		if _, ok := oldByKey[item.Key()]; !ok {
			oldByKey[item.Key()] = item
		}
	}
	newKeys := make(map[string]struct{}, len(newItems))

	out := []Difference{}
	for _, item := range newItems {
		key := item.Key()
		if _, dup := newKeys[key]; dup {
			continue
		}
		newKeys[key] = struct{}{}
		old, ok := oldByKey[key]
		if !ok {
			out = append(out, Difference{
				ChangeType:             ChangeAdded,
				PartNumber:             item.PartNumber,
				ComponentType:          item.ComponentType,
				Length:                 item.Length,
				LengthFraction:         item.LengthFraction,
				NewQty:                 item.Qty,
				NewDescription:         item.Description,
				NewPurchaseDescription: item.PurchaseDescription,
				DeltaQty:               item.Qty,
				AttributesChanged:      []string{},
			})
			continue
		}
		attrs := changedAttributes(old, item)
		if len(attrs) == 0 {
			continue
		}
		out = append(out, Difference{
			ChangeType:             ChangeChanged,
			PartNumber:             item.PartNumber,
			ComponentType:          item.ComponentType,
			Length:                 item.Length,
			LengthFraction:         item.LengthFraction,
			OldQty:                 old.Qty,
			NewQty:                 item.Qty,
			OldDescription:         old.Description,
			NewDescription:         item.Description,
			OldPurchaseDescription: old.PurchaseDescription,
			NewPurchaseDescription: item.PurchaseDescription,
			DeltaQty:               item.Qty - old.Qty,
			AttributesChanged:      attrs,
		})
	}

	removed := make(map[string]struct{})
	for _, item := range oldItems {
		key := item.Key()
		if _, ok := newKeys[key]; ok {
			continue
		}
		if _, dup := removed[key]; dup {
			continue
		}
		removed[key] = struct{}{}
		out = append(out, Difference{
			ChangeType:             ChangeRemoved,
			PartNumber:             item.PartNumber,
			ComponentType:          item.ComponentType,
			Length:                 item.Length,
			LengthFraction:         item.LengthFraction,
			OldQty:                 item.Qty,
			OldDescription:         item.Description,
			OldPurchaseDescription: item.PurchaseDescription,
			DeltaQty:               -item.Qty,
			AttributesChanged:      []string{},
		})
	}
	return out
}

func changedAttributes(old, cur LineItem) []string {
	var attrs []string
	if old.Qty != cur.Qty {
		attrs = append(attrs, AttrQty)
	}
	if old.Description != cur.Description {
		attrs = append(attrs, AttrDescription)
	}
	if old.PurchaseDescription != cur.PurchaseDescription {
		attrs = append(attrs, AttrPurchaseDescription)
	}
	return attrs
}
