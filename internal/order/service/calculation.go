package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/cartforgelabs/cartforge/internal/discount/domain"
	"github.com/cartforgelabs/cartforge/internal/order/domain"
	"github.com/cartforgelabs/cartforge/internal/pricing"
	productdomain "github.com/cartforgelabs/cartforge/internal/product/domain"
)

// recalculate rebuilds every calculation sheet of the aggregate: each
// position through the product director, delivery and payment through
// theirs, and finally the order director folding it all together. The
// stored row sets are replaced wholesale; any adapter error aborts the
// whole pass so a partial sheet is never persisted.
func (s *Service) recalculate(ctx context.Context, repoTx domain.Repository, order *domain.Order) error {
	products, itemsBase, err := s.loadProducts(ctx, order)
	if err != nil {
		return err
	}

	if err := s.syncSystemDiscounts(ctx, repoTx, order, itemsBase); err != nil {
		return err
	}
	applied, err := s.appliedDiscounts(order)
	if err != nil {
		return err
	}

	country := order.TaxCountry()

	itemSheets := make([]*pricing.Sheet, 0, len(order.Positions))
	for i := range order.Positions {
		position := &order.Positions[i]
		product := products[position.ProductID]
		pctx := &pricing.Context{
			Currency:    order.Currency,
			CountryCode: country,
			Quantity:    position.Quantity,
			Product: &pricing.ProductSnapshot{
				ID:          product.ID.String(),
				SKU:         product.SKU,
				UnitAmount:  product.UnitAmount,
				Currency:    product.Currency,
				TaxCategory: product.TaxCategory,
				Tags:        product.Tags,
			},
			Discounts: applied,
		}
		rows, err := s.directors.Product.Calculate(ctx, pctx)
		if err != nil {
			return err
		}
		position.Calculation = rows
		itemSheets = append(itemSheets, s.directors.Product.ResultSheet(pctx))
	}

	var itemsTotal int64
	for _, sheet := range itemSheets {
		itemsTotal += sheet.Gross()
	}

	deliverySheet, err := s.recalculateProvided(ctx, order, order.Delivery, s.directors.Delivery, country, itemsTotal)
	if err != nil {
		return err
	}
	paymentSheet, err := s.recalculateProvided(ctx, order, order.Payment, s.directors.Payment, country, itemsTotal)
	if err != nil {
		return err
	}

	orderCtx := &pricing.Context{
		Currency:      order.Currency,
		CountryCode:   country,
		ItemsTotal:    itemsTotal,
		ItemSheets:    itemSheets,
		DeliverySheet: deliverySheet,
		PaymentSheet:  paymentSheet,
		Discounts:     applied,
	}
	rows, err := s.directors.Order.Calculate(ctx, orderCtx)
	if err != nil {
		return err
	}
	order.Calculation = rows
	return nil
}

func (s *Service) recalculateProvided(
	ctx context.Context,
	order *domain.Order,
	subject any,
	director *pricing.Director,
	country string,
	itemsTotal int64,
) (*pricing.Sheet, error) {
	var providerID snowflake.ID
	var assign func(pricing.RowList)

	switch v := subject.(type) {
	case *domain.OrderDelivery:
		if v == nil {
			return nil, nil
		}
		providerID = v.ProviderID
		assign = func(rows pricing.RowList) { v.Calculation = rows }
	case *domain.OrderPayment:
		if v == nil {
			return nil, nil
		}
		providerID = v.ProviderID
		assign = func(rows pricing.RowList) { v.Calculation = rows }
	default:
		return nil, nil
	}
	if providerID == 0 {
		return nil, nil
	}

	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	pctx := &pricing.Context{
		Currency:    order.Currency,
		CountryCode: country,
		ItemsTotal:  itemsTotal,
		Provider: &pricing.ProviderSnapshot{
			ID:            provider.ID.String(),
			Type:          string(provider.Type),
			Configuration: provider.ConfigurationMap(),
		},
	}
	rows, err := director.Calculate(ctx, pctx)
	if err != nil {
		return nil, err
	}
	assign(rows)
	return director.ResultSheet(pctx), nil
}

// loadProducts fetches every referenced product once and returns the
// undiscounted items base used for system discount triggering.
func (s *Service) loadProducts(ctx context.Context, order *domain.Order) (map[snowflake.ID]*productdomain.Product, int64, error) {
	products := make(map[snowflake.ID]*productdomain.Product, len(order.Positions))
	var base int64
	for i := range order.Positions {
		position := &order.Positions[i]
		if _, ok := products[position.ProductID]; !ok {
			product, err := s.products.Get(ctx, position.ProductID)
			if err != nil {
				return nil, 0, err
			}
			products[position.ProductID] = product
		}
		base += products[position.ProductID].UnitAmount * int64(position.Quantity)
	}
	return products, base, nil
}

// syncSystemDiscounts grants and revokes system-triggered discounts so the
// stored discount list always mirrors the current order facts.
func (s *Service) syncSystemDiscounts(ctx context.Context, repoTx domain.Repository, order *domain.Order, itemsBase int64) error {
	octx := discountdomain.OrderContext{
		OrderID:       order.ID.String(),
		Currency:      order.Currency,
		CountryCode:   order.TaxCountry(),
		PositionCount: len(order.Positions),
		ItemsTotal:    itemsBase,
	}
	keys := s.resolver.FindSystemDiscounts(ctx, octx)
	valid := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		valid[key] = struct{}{}
	}

	kept := order.Discounts[:0]
	for _, d := range order.Discounts {
		if d.Trigger != discountdomain.TriggerSystem {
			kept = append(kept, d)
			continue
		}
		if _, ok := valid[d.DiscountKey]; ok {
			kept = append(kept, d)
			delete(valid, d.DiscountKey)
			continue
		}
		if err := repoTx.DeleteDiscount(ctx, d.ID); err != nil {
			return err
		}
	}
	order.Discounts = kept

	for _, key := range keys {
		if _, ok := valid[key]; !ok {
			continue
		}
		order.Discounts = append(order.Discounts, discountdomain.Discount{
			ID:          s.genID.Generate(),
			OrderID:     order.ID,
			DiscountKey: key,
			Trigger:     discountdomain.TriggerSystem,
			CreatedAt:   s.clk.Now(ctx),
		})
	}
	return nil
}

// SimulatePrice runs the product director on a throwaway context. Nothing
// is persisted, even when the pass fails.
func (s *Service) SimulatePrice(ctx context.Context, input domain.SimulatePriceInput) (*pricing.Sheet, error) {
	if input.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	product, err := s.products.GetBySKU(ctx, input.SKU)
	if err != nil {
		return nil, err
	}
	pctx := &pricing.Context{
		Currency:    input.Currency,
		CountryCode: input.CountryCode,
		Quantity:    input.Quantity,
		Product: &pricing.ProductSnapshot{
			ID:          product.ID.String(),
			SKU:         product.SKU,
			UnitAmount:  product.UnitAmount,
			Currency:    product.Currency,
			TaxCategory: product.TaxCategory,
			Tags:        product.Tags,
		},
	}
	if _, err := s.directors.Product.Calculate(ctx, pctx); err != nil {
		return nil, err
	}
	return s.directors.Product.ResultSheet(pctx), nil
}

// appliedDiscounts turns the stored discounts into the engine-facing view.
func (s *Service) appliedDiscounts(order *domain.Order) ([]pricing.AppliedDiscount, error) {
	applied := make([]pricing.AppliedDiscount, 0, len(order.Discounts))
	for _, d := range order.Discounts {
		adapter, err := s.discounts.Get(d.DiscountKey)
		if err != nil {
			return nil, fmt.Errorf("discount %s: %w", d.ID, err)
		}
		applied = append(applied, pricing.AppliedDiscount{
			DiscountID:       d.ID.String(),
			Key:              d.DiscountKey,
			ConfigurationFor: adapter.ConfigurationForPricingAdapter,
		})
	}
	return applied, nil
}
