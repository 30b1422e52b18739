package pricing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Director orchestrates one pricing domain: it runs the eligible adapters
// of its registry in order and exposes the accumulated rows as a sheet.
type Director struct {
	registry *Registry
	log      *zap.Logger
	tracer   trace.Tracer
	metrics  *Metrics
}

// NewDirector builds a director over the given registry. Metrics may be nil
// in throwaway (preview) directors.
func NewDirector(registry *Registry, log *zap.Logger, metrics *Metrics) *Director {
	return &Director{
		registry: registry,
		log:      log.Named("pricing." + registry.Domain()),
		tracer:   otel.Tracer("cartforge/pricing"),
		metrics:  metrics,
	}
}

// Registry exposes the underlying registry, mainly for diagnostics.
func (d *Director) Registry() *Registry { return d.registry }

// Calculate runs the adapter chain over the context and returns the full
// row set. The context accumulator must be fresh: running again without
// ResetCalculation is refused instead of silently duplicating rows. Any
// adapter error aborts the pass; partial output is never returned.
func (d *Director) Calculate(ctx context.Context, pctx *Context) (RowList, error) {
	if len(pctx.Calculation) > 0 {
		return nil, fmt.Errorf("pricing %s: %w", d.registry.Domain(), ErrDirtyCalculation)
	}

	ctx, span := d.tracer.Start(ctx, "pricing.calculate",
		trace.WithAttributes(attribute.String("pricing.domain", d.registry.Domain())))
	defer span.End()

	start := time.Now()
	for _, adapter := range d.registry.Sorted() {
		if !adapter.IsActivatedFor(pctx) {
			continue
		}
		rows, err := adapter.Calculate(ctx, pctx)
		if err != nil {
			span.RecordError(err)
			if d.metrics != nil {
				d.metrics.AdapterFailures.WithLabelValues(d.registry.Domain(), adapter.Key()).Inc()
			}
			return nil, fmt.Errorf("pricing %s adapter %s: %w", d.registry.Domain(), adapter.Key(), err)
		}
		pctx.Calculation = append(pctx.Calculation, rows...)
	}

	if err := d.validate(pctx.Calculation); err != nil {
		return nil, err
	}

	if d.metrics != nil {
		d.metrics.Calculations.WithLabelValues(d.registry.Domain()).Inc()
		d.metrics.Duration.WithLabelValues(d.registry.Domain()).Observe(time.Since(start).Seconds())
	}
	d.log.Debug("calculation complete",
		zap.Int("rows", len(pctx.Calculation)),
		zap.String("currency", pctx.Currency))

	return pctx.Calculation, nil
}

// ResultSheet wraps the accumulated rows into a sheet.
func (d *Director) ResultSheet(pctx *Context) *Sheet {
	return SheetFromRows(pctx.Currency, pctx.Quantity, pctx.Calculation)
}

func (d *Director) validate(rows RowList) error {
	for _, r := range rows {
		if (r.Category == CategoryTax || r.Category == CategoryTaxes) && r.Amount < 0 {
			return fmt.Errorf("pricing %s: negative tax row: %w", d.registry.Domain(), ErrCalculationInconsistency)
		}
		if (r.Category == CategoryTax || r.Category == CategoryTaxes) && r.Rate == nil {
			return fmt.Errorf("pricing %s: tax row without rate: %w", d.registry.Domain(), ErrCalculationInconsistency)
		}
		if (r.Category == CategoryDiscount || r.Category == CategoryDiscounts) && r.DiscountID == "" {
			return fmt.Errorf("pricing %s: discount row without discount id: %w", d.registry.Domain(), ErrCalculationInconsistency)
		}
	}
	return nil
}
