package pricing

import (
	"fmt"

	"gorm.io/datatypes"
)

// Sheet is the accumulated, queryable calculation for one priced subject.
// Rows are append-only within a calculation pass; a recompute replaces the
// whole sheet, it never patches rows in place.
type Sheet struct {
	Currency string
	Quantity int
	Rows     RowList
}

// NewSheet returns an empty sheet for the given currency.
func NewSheet(currency string, quantity int) *Sheet {
	return &Sheet{Currency: currency, Quantity: quantity}
}

// SheetFromRows rebuilds a sheet from a persisted calculation.
func SheetFromRows(currency string, quantity int, rows RowList) *Sheet {
	s := NewSheet(currency, quantity)
	s.Rows = append(s.Rows, rows...)
	return s
}

// FilterBy returns the rows matching the filter, in emission order.
func (s *Sheet) FilterBy(filter RowFilter) RowList {
	out := make(RowList, 0, len(s.Rows))
	for _, r := range s.Rows {
		if filter.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Sum totals the rows matching the filter.
func (s *Sheet) Sum(filter RowFilter) int64 {
	var total int64
	for _, r := range s.Rows {
		if filter.Matches(r) {
			total += r.Amount
		}
	}
	return total
}

// TaxSum totals the tax rows only (per-subject TAX rows and order-level
// TAXES summary rows).
func (s *Sheet) TaxSum() int64 {
	return s.Sum(RowFilter{Category: CategoryTax}) + s.Sum(RowFilter{Category: CategoryTaxes})
}

// Gross is the total of all rows, taxes included.
func (s *Sheet) Gross() int64 {
	return s.Sum(RowFilter{})
}

// Net is the gross total with taxes taken out. Gross == Net + TaxSum holds
// by construction.
func (s *Sheet) Net() int64 {
	return s.Gross() - s.TaxSum()
}

// TotalParams selects a category subtotal, optionally tax-adjusted.
type TotalParams struct {
	Category    RowCategory
	UseNetPrice bool
}

// Total returns the subtotal for one category, or the sheet total when no
// category is given. A category subtotal is gross unless UseNetPrice is set,
// in which case the tax adjustment rows carved out of the category stay in.
func (s *Sheet) Total(p TotalParams) int64 {
	if p.Category == "" {
		if p.UseNetPrice {
			return s.Net()
		}
		return s.Gross()
	}
	total := s.Sum(RowFilter{Category: p.Category})
	if !p.UseNetPrice {
		for _, r := range s.Rows {
			if r.Category == p.Category && r.TaxAdjustment {
				total -= r.Amount
			}
		}
	}
	return total
}

// DiscountSum totals the rows carrying the given discount id. Tax
// adjustment rows keep their source discount id for attribution but do not
// dilute the reported saving.
func (s *Sheet) DiscountSum(discountID string) int64 {
	var total int64
	for _, r := range s.Rows {
		if r.DiscountID == discountID && !r.TaxAdjustment {
			total += r.Amount
		}
	}
	return total
}

// DiscountIDs lists the distinct discount ids present on the sheet, in
// first-appearance order.
func (s *Sheet) DiscountIDs() []string {
	seen := map[string]struct{}{}
	var ids []string
	for _, r := range s.Rows {
		if r.DiscountID == "" {
			continue
		}
		if _, ok := seen[r.DiscountID]; ok {
			continue
		}
		seen[r.DiscountID] = struct{}{}
		ids = append(ids, r.DiscountID)
	}
	return ids
}

// DiscountPrice reports the saving of one discount as a positive amount.
type DiscountPrice struct {
	DiscountID string
	Amount     int64
}

// DiscountPrices aggregates savings per discount id.
func (s *Sheet) DiscountPrices() []DiscountPrice {
	ids := s.DiscountIDs()
	out := make([]DiscountPrice, 0, len(ids))
	for _, id := range ids {
		out = append(out, DiscountPrice{DiscountID: id, Amount: -s.DiscountSum(id)})
	}
	return out
}

// ItemParams describes an item or fee contribution.
type ItemParams struct {
	Amount     int64
	IsTaxable  bool
	IsNetPrice bool
	Meta       datatypes.JSONMap
}

// AddItem appends an ITEM row.
func (s *Sheet) AddItem(p ItemParams) {
	s.append(Row{Category: CategoryItem, Amount: p.Amount, IsTaxable: p.IsTaxable, IsNetPrice: p.IsNetPrice, Meta: p.Meta})
}

// AddItems appends an ITEMS summary row (order-level fold of positions).
func (s *Sheet) AddItems(p ItemParams) {
	s.append(Row{Category: CategoryItems, Amount: p.Amount, IsTaxable: p.IsTaxable, IsNetPrice: p.IsNetPrice, Meta: p.Meta})
}

// AddDelivery appends a DELIVERY fee row.
func (s *Sheet) AddDelivery(p ItemParams) {
	s.append(Row{Category: CategoryDelivery, Amount: p.Amount, IsTaxable: p.IsTaxable, IsNetPrice: p.IsNetPrice, Meta: p.Meta})
}

// AddPayment appends a PAYMENT fee row.
func (s *Sheet) AddPayment(p ItemParams) {
	s.append(Row{Category: CategoryPayment, Amount: p.Amount, IsTaxable: p.IsTaxable, IsNetPrice: p.IsNetPrice, Meta: p.Meta})
}

// AddFee appends a generic fee under the given category.
func (s *Sheet) AddFee(category RowCategory, p ItemParams) {
	s.append(Row{Category: category, Amount: p.Amount, IsTaxable: p.IsTaxable, IsNetPrice: p.IsNetPrice, Meta: p.Meta})
}

// DiscountParams describes a discount contribution. Amount must be negative.
type DiscountParams struct {
	Amount     int64
	DiscountID string
	IsTaxable  bool
	Rate       *float64
	Meta       datatypes.JSONMap
}

// AddDiscount appends a DISCOUNT row. The discount id is mandatory so that
// savings stay attributable per coupon.
func (s *Sheet) AddDiscount(p DiscountParams) error {
	if p.DiscountID == "" {
		return fmt.Errorf("discount row requires a discount id: %w", ErrCalculationInconsistency)
	}
	s.append(Row{Category: CategoryDiscount, Amount: p.Amount, IsTaxable: p.IsTaxable, Rate: p.Rate, DiscountID: p.DiscountID, Meta: p.Meta})
	return nil
}

// AddDiscounts appends an order-level DISCOUNTS summary row.
func (s *Sheet) AddDiscounts(p DiscountParams) error {
	if p.DiscountID == "" {
		return fmt.Errorf("discount row requires a discount id: %w", ErrCalculationInconsistency)
	}
	s.append(Row{Category: CategoryDiscounts, Amount: p.Amount, IsTaxable: p.IsTaxable, Rate: p.Rate, DiscountID: p.DiscountID, Meta: p.Meta})
	return nil
}

// TaxAdjustmentParams describes the balancing row emitted alongside a tax
// row when the source category was priced gross.
type TaxAdjustmentParams struct {
	Category   RowCategory
	Amount     int64
	DiscountID string
	Meta       datatypes.JSONMap
}

// AddTaxAdjustment appends the balancing row for tax carved out of a gross
// category. A discount-category adjustment carries the discount id of its
// source row so per-coupon attribution stays exact.
func (s *Sheet) AddTaxAdjustment(p TaxAdjustmentParams) error {
	if (p.Category == CategoryDiscount || p.Category == CategoryDiscounts) && p.DiscountID == "" {
		return fmt.Errorf("discount row requires a discount id: %w", ErrCalculationInconsistency)
	}
	s.append(Row{Category: p.Category, Amount: p.Amount, DiscountID: p.DiscountID, TaxAdjustment: true, Meta: p.Meta})
	return nil
}

// TaxParams describes a tax contribution.
type TaxParams struct {
	Amount int64
	Rate   float64
	Meta   datatypes.JSONMap
}

// AddTax appends a TAX row. A tax row without a rate, or with a negative
// amount, indicates a pricing bug and is rejected.
func (s *Sheet) AddTax(p TaxParams) error {
	if p.Rate <= 0 {
		return fmt.Errorf("tax row requires a positive rate: %w", ErrCalculationInconsistency)
	}
	if p.Amount < 0 {
		return fmt.Errorf("negative tax amount: %w", ErrCalculationInconsistency)
	}
	s.append(Row{Category: CategoryTax, Amount: p.Amount, Rate: FloatPtr(p.Rate), Meta: p.Meta})
	return nil
}

// AddTaxes appends an order-level TAXES summary row mirroring sub-sheet tax.
func (s *Sheet) AddTaxes(p TaxParams) error {
	if p.Rate <= 0 {
		return fmt.Errorf("tax row requires a positive rate: %w", ErrCalculationInconsistency)
	}
	s.append(Row{Category: CategoryTaxes, Amount: p.Amount, Rate: FloatPtr(p.Rate), Meta: p.Meta})
	return nil
}

func (s *Sheet) append(r Row) {
	s.Rows = append(s.Rows, r)
}
