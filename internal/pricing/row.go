// Package pricing implements the generic calculation engine shared by the
// product, delivery, payment and order pricing domains. Adapters emit
// calculation rows into an ordered accumulator; a director runs the eligible
// adapters in a fixed order and wraps the result into a queryable sheet.
package pricing

import "gorm.io/datatypes"

// RowCategory is the closed set of calculation row categories.
type RowCategory string

const (
	CategoryItems     RowCategory = "ITEMS"
	CategoryItem      RowCategory = "ITEM"
	CategoryDiscounts RowCategory = "DISCOUNTS"
	CategoryDiscount  RowCategory = "DISCOUNT"
	CategoryTaxes     RowCategory = "TAXES"
	CategoryTax       RowCategory = "TAX"
	CategoryDelivery  RowCategory = "DELIVERY"
	CategoryPayment   RowCategory = "PAYMENT"
)

// Row is one immutable monetary contribution to a pricing sheet. Amount is
// always in the smallest currency unit; the currency itself lives on the
// sheet, never on the row.
type Row struct {
	Category   RowCategory `json:"category"`
	Amount     int64       `json:"amount"`
	IsTaxable  bool        `json:"is_taxable"`
	IsNetPrice bool        `json:"is_net_price"`
	Rate       *float64    `json:"rate,omitempty"`
	DiscountID string      `json:"discount_id,omitempty"`
	// TaxAdjustment marks the balancing row that carves the included tax
	// share out of a gross category.
	TaxAdjustment bool              `json:"tax_adjustment,omitempty"`
	Meta          datatypes.JSONMap `json:"meta,omitempty"`
}

// RowFilter selects rows by partial match. Zero-value fields match anything.
type RowFilter struct {
	Category   RowCategory
	DiscountID string
	IsTaxable  *bool
	IsNetPrice *bool
}

// Matches reports whether the row satisfies every set filter field.
func (f RowFilter) Matches(r Row) bool {
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if f.DiscountID != "" && r.DiscountID != f.DiscountID {
		return false
	}
	if f.IsTaxable != nil && r.IsTaxable != *f.IsTaxable {
		return false
	}
	if f.IsNetPrice != nil && r.IsNetPrice != *f.IsNetPrice {
		return false
	}
	return true
}

// RowList is the JSON-persisted form of a calculation on an order document.
type RowList []Row

// FloatPtr is a convenience for building Rate values.
func FloatPtr(v float64) *float64 { return &v }
