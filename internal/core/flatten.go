package core

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"bomgraft/pkg/domain"
)

// LineItem is one aggregated row of a flattened parts list.
type LineItem struct {
	PartNumber          string               `json:"partNumber"`
	ComponentType       domain.ComponentType `json:"componentType"`
	Description         string               `json:"description"`
	PurchaseDescription string               `json:"purchaseDescription"`
	UofM                string               `json:"uofm"`
	Length              *float64             `json:"length"`
	LengthFraction      string               `json:"lengthFraction"`
	Qty                 int                  `json:"qty"`
}

// Key returns the composite identity used to aggregate and compare items.
func (i LineItem) Key() string {
	return ItemKey(i.PartNumber, i.Length)
}

// ItemKey builds the (part number, length) composite key. A nil length
// collapses to the bare part number.
func ItemKey(partNumber string, length *float64) string {
	if length == nil {
		return partNumber
	}
	return partNumber + "|" + strconv.FormatFloat(*length, 'f', -1, 64)
}

// Flatten collapses a tree into a quantity-aggregated parts list. Quantities
// are multiplied down the hierarchy starting from unitMultiplier; assemblies
// contribute their multiplier but are never listed. Items appear in the
// order their key was first encountered.
func Flatten(root *domain.Node, unitMultiplier int) []LineItem {
	if root == nil {
		return nil
	}
	var items []LineItem
	index := make(map[string]int)
	var walk func(n *domain.Node, multiplier int)
	walk = func(n *domain.Node, multiplier int) {
		for _, child := range n.Children {
			qty := child.Qty * multiplier
			if domain.IsAssembly(child) {
				walk(child, qty)
				continue
			}
			key := ItemKey(child.PartNumber, child.Length)
			if pos, ok := index[key]; ok {
				items[pos].Qty += qty
				continue
			}
			index[key] = len(items)
			items = append(items, newLineItem(child, qty))
		}
	}
	walk(root, unitMultiplier)
	return items
}

func newLineItem(n *domain.Node, qty int) LineItem {
	var length *float64
	if n.Length != nil {
		v := *n.Length
		length = &v
	}
	return LineItem{
		PartNumber:          n.PartNumber,
		ComponentType:       n.ComponentType,
		Description:         describe(n.Description, n.Material),
		PurchaseDescription: n.PurchaseDescription,
		UofM:                n.UofM,
		Length:              length,
		LengthFraction:      FormatFraction(length),
		Qty:                 qty,
	}
}

func describe(description, material string) string {
	m := strings.TrimSpace(material)
	if m == "" || m == "-" {
		return description
	}
	return description + ", " + m
}

// FormatFraction renders a length in inches rounded to the nearest 1/16, for
// example 1.3125 as 1-5/16". A nil length renders as "".
func FormatFraction(length *float64) string {
	if length == nil {
		return ""
	}
	sixteenths := int64(math.Round(*length * 16))
	negative := sixteenths < 0
	if negative {
		sixteenths = -sixteenths
	}
	whole := sixteenths / 16
	num := sixteenths % 16
	den := int64(16)
	if num > 0 {
		g := gcd(num, den)
		num /= g
		den /= g
	}
	sign := ""
	if negative {
		sign = "-"
	}
	switch {
	case num == 0:
		return fmt.Sprintf(`%s%d"`, sign, whole)
	case whole == 0:
		return fmt.Sprintf(`%s%d/%d"`, sign, num, den)
	default:
		return fmt.Sprintf(`%s%d-%d/%d"`, sign, whole, num, den)
	}
}

func gcd(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// SortItems orders items in place by component type, then description
// (numeric-aware, case-insensitive), then length with missing lengths last.
// The sort is stable.
func SortItems(items []LineItem) {
	typeOrder := collate.New(language.English)
	descOrder := collate.New(language.English, collate.IgnoreCase, collate.Numeric)
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := typeOrder.CompareString(string(a.ComponentType), string(b.ComponentType)); c != 0 {
			return c < 0
		}
		if c := descOrder.CompareString(a.Description, b.Description); c != 0 {
			return c < 0
		}
		switch {
		case a.Length == nil && b.Length == nil:
			return false
		case a.Length == nil:
			return false
		case b.Length == nil:
			return true
		default:
			return *a.Length < *b.Length
		}
	})
}
