package core

import (
	"testing"

	"bomgraft/pkg/domain"
)

func flattenTree() *domain.Node {
	return asm("1", "1000001", domain.StateIssuedForUse, 1,
		asm("1.1", "200001", domain.StateIssuedForUse, 2,
			part("1.1.1", "300001", domain.StateIssuedForUse, 3),
			stock("1.1.2", "300003", 1, 12.5, "12.5"),
			asm("1.1.3", "200002", domain.StateIssuedForUse, 2,
				part("1.1.3.1", "300001", domain.StateIssuedForUse, 1),
				stock("1.1.3.2", "300003", 1, 12.5, "12.5"),
				stock("1.1.3.3", "300003", 1, 6, "6"),
			),
		),
		part("1.2", "300001", domain.StateIssuedForUse, 1),
	)
}

func TestFlattenMultipliesAndAggregates(t *testing.T) {
	items := Flatten(flattenTree(), 1)
	got := map[string]int{}
	for _, item := range items {
		got[item.Key()] = item.Qty
	}
	want := map[string]int{
		"300001":      2*3 + 2*2*1 + 1,
		"300003|12.5": 2*1 + 2*2*1,
		"300003|6":    2 * 2 * 1,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d items, got %v", len(want), got)
	}
	for key, qty := range want {
		if got[key] != qty {
			t.Fatalf("%s: expected qty %d, got %d", key, qty, got[key])
		}
	}
	for _, item := range items {
		if item.PartNumber == "1000001" || item.PartNumber == "200001" || item.PartNumber == "200002" {
			t.Fatalf("assemblies must not be listed: %+v", item)
		}
	}
	if items[0].Key() != "300001" || items[1].Key() != "300003|12.5" {
		t.Fatalf("expected first-seen order, got %v", items)
	}
}

func TestFlattenUnitMultiplier(t *testing.T) {
	items := Flatten(flattenTree(), 10)
	for _, item := range items {
		if item.Key() == "300003|6" && item.Qty != 40 {
			t.Fatalf("expected unit multiplier to scale quantities, got %d", item.Qty)
		}
	}
	if Flatten(nil, 1) != nil {
		t.Fatalf("nil tree flattens to nil")
	}
}

func TestFlattenDescriptionIncludesMaterial(t *testing.T) {
	items := Flatten(flattenTree(), 1)
	for _, item := range items {
		switch item.PartNumber {
		case "300003":
			if item.Description != "Stock 300003, 6061-T6" {
				t.Fatalf("unexpected stock description %q", item.Description)
			}
			if item.LengthFraction == "" {
				t.Fatalf("expected length fraction for stock")
			}
		case "300001":
			if item.Description != "Part 300001" || item.LengthFraction != "" {
				t.Fatalf("unexpected part line %+v", item)
			}
		}
	}
	if describe("Plate", "-") != "Plate" || describe("Plate", " ") != "Plate" {
		t.Fatalf("placeholder materials must be ignored")
	}
}

func TestFormatFraction(t *testing.T) {
	cases := []struct {
		in   *float64
		want string
	}{
		{lengthPtr(1.3125), `1-5/16"`},
		{lengthPtr(2), `2"`},
		{lengthPtr(0.5), `1/2"`},
		{lengthPtr(12.49), `12-1/2"`},
		{lengthPtr(0.01), `0"`},
		{lengthPtr(-1.25), `-1-1/4"`},
		{nil, ""},
	}
	for _, tc := range cases {
		if got := FormatFraction(tc.in); got != tc.want {
			t.Fatalf("FormatFraction(%v): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestSortItems(t *testing.T) {
	items := []LineItem{
		{PartNumber: "a", ComponentType: domain.ComponentRawStock, Description: "Tube", Length: lengthPtr(12)},
		{PartNumber: "b", ComponentType: domain.ComponentPurchased, Description: "screw 10"},
		{PartNumber: "c", ComponentType: domain.ComponentPurchased, Description: "Screw 9"},
		{PartNumber: "d", ComponentType: domain.ComponentRawStock, Description: "Tube"},
		{PartNumber: "e", ComponentType: domain.ComponentRawStock, Description: "Tube", Length: lengthPtr(6)},
		{PartNumber: "f", ComponentType: domain.ComponentManufactured, Description: "Plate"},
	}
	SortItems(items)
	var order string
	for _, item := range items {
		order += item.PartNumber
	}
	if order != "fcbead" {
		t.Fatalf("unexpected order %q", order)
	}
}
