package domain

import (
	"math"
	"strconv"
	"strings"
)

// Row is one flat record of an engineering BOM export. Parsing spreadsheets or
// PLM exports into rows happens outside this module.
type Row struct {
	Level               string `json:"Level"`
	PartNumber          string `json:"Part Number"`
	ComponentType       string `json:"Component Type"`
	Description         string `json:"Description"`
	Material            string `json:"Material"`
	Qty                 string `json:"Qty"`
	Length              string `json:"Length"`
	UofM                string `json:"UofM"`
	State               string `json:"State"`
	PurchaseDescription string `json:"Purchase Description"`
	NSItemType          string `json:"NS Item Type"`
	Revision            string `json:"Revision"`
}

// NodeFromRow instantiates an unattached node from a row record.
func NodeFromRow(r Row) *Node {
	raw := strings.TrimSpace(r.Length)
	return &Node{
		Level:               strings.TrimSpace(r.Level),
		PartNumber:          strings.TrimSpace(r.PartNumber),
		ComponentType:       ComponentType(strings.TrimSpace(r.ComponentType)),
		NSItemType:          NSItemType(strings.TrimSpace(r.NSItemType)),
		Description:         strings.TrimSpace(r.Description),
		Material:            strings.TrimSpace(r.Material),
		PurchaseDescription: strings.TrimSpace(r.PurchaseDescription),
		Revision:            strings.TrimSpace(r.Revision),
		UofM:                strings.TrimSpace(r.UofM),
		State:               strings.TrimSpace(r.State),
		Qty:                 ParseQty(r.Qty),
		Length:              ParseLength(raw),
		RawLength:           raw,
		Children:            []*Node{},
	}
}

// ParseQty parses a quantity cell. An empty cell means one; anything that is
// not a non-negative number yields zero. Decimal quantities truncate.
func ParseQty(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1
	}
	if v, err := strconv.Atoi(s); err == nil {
		if v < 0 {
			return 0
		}
		return v
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return int(f)
}

// ParseLength parses a raw length cell. Empty, "-" and non-numeric cells
// yield nil. A trailing inch unit ("in" or `"`) is accepted.
func ParseLength(raw string) *float64 {
	s := strings.TrimSpace(raw)
	if s == "" || s == "-" {
		return nil
	}
	s = strings.TrimSuffix(s, "in")
	s = strings.TrimSuffix(s, `"`)
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
