package pricing

import "context"

// Adapter is one concern's calculation unit. Adapters are selected by
// IsActivatedFor and executed in ascending OrderIndex; later adapters read
// the rows earlier adapters appended to the shared context accumulator.
type Adapter interface {
	Key() string
	OrderIndex() int

	// IsActivatedFor is a pure predicate over the pricing context; it must
	// not perform I/O.
	IsActivatedFor(pctx *Context) bool

	// Calculate emits this adapter's rows. It may suspend (tax lookups),
	// but adapters of one pass are always awaited sequentially.
	Calculate(ctx context.Context, pctx *Context) ([]Row, error)
}

// AppliedDiscount is the engine-facing view of an active discount. The
// discount subsystem fills it in; pricing adapters only read it.
type AppliedDiscount struct {
	DiscountID string
	Key        string

	// ConfigurationFor lets a pricing adapter ask whether this discount
	// carries configuration addressed at it (e.g. a net-price discount
	// changing the tax base). Nil when the discount targets no pricing
	// adapter at all.
	ConfigurationFor func(pricingAdapterKey string) (map[string]any, bool)
}

// Configuration returns the discount configuration addressed at the given
// pricing adapter, if any.
func (d AppliedDiscount) Configuration(pricingAdapterKey string) (map[string]any, bool) {
	if d.ConfigurationFor == nil {
		return nil, false
	}
	return d.ConfigurationFor(pricingAdapterKey)
}

// ProductSnapshot carries the catalog facts product adapters price against.
type ProductSnapshot struct {
	ID          string
	SKU         string
	UnitAmount  int64
	Currency    string
	TaxCategory string
	Tags        []string
}

// ProviderSnapshot carries a delivery or payment provider's configuration
// as flat key/value pairs.
type ProviderSnapshot struct {
	ID            string
	Type          string
	Configuration map[string]string
}

// Context is the per-pass adapter context. Calculation is the shared
// accumulator the director threads through the adapter chain; the ordering
// dependency (discounts before tax) is carried by it and must not be
// parallelized away.
type Context struct {
	Currency    string
	CountryCode string
	Quantity    int

	Product  *ProductSnapshot
	Provider *ProviderSnapshot

	// ItemsTotal carries the order's items total into the delivery and
	// payment domains, where rate-based surcharges need a base.
	ItemsTotal int64

	ItemSheets    []*Sheet
	DeliverySheet *Sheet
	PaymentSheet  *Sheet

	Discounts []AppliedDiscount

	Calculation RowList
}

// ResetCalculation clears the accumulator for a fresh pass. Recomputation
// replaces the stored row set; it never appends to it.
func (c *Context) ResetCalculation() {
	c.Calculation = nil
}

// CurrentSheet wraps the accumulator into a sheet so adapters can run
// aggregate queries over the rows emitted so far.
func (c *Context) CurrentSheet() *Sheet {
	return SheetFromRows(c.Currency, c.Quantity, c.Calculation)
}
