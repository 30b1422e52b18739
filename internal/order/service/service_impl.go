package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/cartforgelabs/cartforge/internal/clock"
	discountadapters "github.com/cartforgelabs/cartforge/internal/discount/adapters"
	discountdomain "github.com/cartforgelabs/cartforge/internal/discount/domain"
	"github.com/cartforgelabs/cartforge/internal/events"
	"github.com/cartforgelabs/cartforge/internal/order/domain"
	"github.com/cartforgelabs/cartforge/internal/order/repository"
	"github.com/cartforgelabs/cartforge/internal/pricing/directors"
	productdomain "github.com/cartforgelabs/cartforge/internal/product/domain"
	providerdomain "github.com/cartforgelabs/cartforge/internal/providers/domain"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service drives the order state machine. Every mutation funnels through
// recalculate before it is persisted; an order and its sub-entities are
// mutated by one in-flight operation at a time.
type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID     *snowflake.Node
	clk       clock.Clock
	repo      domain.Repository
	products  productdomain.Repository
	providers providerdomain.Repository
	discounts *discountadapters.Registry
	resolver  discountdomain.Resolver
	directors *directors.Set
	emitter   events.Emitter
}

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Products  productdomain.Repository
	Providers providerdomain.Repository
	Discounts *discountadapters.Registry
	Resolver  discountdomain.Resolver
	Directors *directors.Set
	Emitter   events.Emitter
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("order.service"),

		genID:     p.GenID,
		clk:       p.Clock,
		repo:      repository.NewRepository(p.DB),
		products:  p.Products,
		providers: p.Providers,
		discounts: p.Discounts,
		resolver:  p.Resolver,
		directors: p.Directors,
		emitter:   p.Emitter,
	}
}

func (s *Service) CreateCart(ctx context.Context, input domain.CreateCartInput) (*domain.Order, error) {
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("currency %q: %w", input.Currency, domain.ErrInvalidCurrency)
	}
	order := &domain.Order{
		ID:          s.genID.Generate(),
		Status:      domain.OrderOpen,
		Currency:    currency,
		CountryCode: strings.ToUpper(strings.TrimSpace(input.CountryCode)),
		CreatedAt:   s.clk.Now(ctx),
		UpdatedAt:   s.clk.Now(ctx),
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID snowflake.ID) (*domain.Order, error) {
	return s.repo.Get(ctx, orderID)
}

func (s *Service) AddItem(ctx context.Context, orderID, productID snowflake.ID, quantity int) (*domain.Order, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := s.products.Get(ctx, productID); err != nil {
		return nil, err
	}
	return s.mutate(ctx, orderID, func(order *domain.Order) error {
		if !order.IsMutable() {
			return fmt.Errorf("order %s is %s: %w", order.ID, order.Status, domain.ErrOrderImmutable)
		}
		for i := range order.Positions {
			if order.Positions[i].ProductID == productID {
				order.Positions[i].Quantity += quantity
				return nil
			}
		}
		order.Positions = append(order.Positions, domain.OrderPosition{
			ID:        s.genID.Generate(),
			OrderID:   order.ID,
			ProductID: productID,
			Quantity:  quantity,
			CreatedAt: s.clk.Now(ctx),
		})
		return nil
	})
}

func (s *Service) UpdateItemQuantity(ctx context.Context, orderID, positionID snowflake.ID, quantity int) (*domain.Order, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	return s.mutate(ctx, orderID, func(order *domain.Order) error {
		if !order.IsMutable() {
			return fmt.Errorf("order %s is %s: %w", order.ID, order.Status, domain.ErrOrderImmutable)
		}
		for i := range order.Positions {
			if order.Positions[i].ID == positionID {
				order.Positions[i].Quantity = quantity
				return nil
			}
		}
		return fmt.Errorf("position %s: %w", positionID, domain.ErrPositionNotFound)
	})
}

func (s *Service) RemoveItem(ctx context.Context, orderID, positionID snowflake.ID) (*domain.Order, error) {
	return s.mutateTx(ctx, orderID, func(tx *gorm.DB, repoTx domain.Repository, order *domain.Order) error {
		if !order.IsMutable() {
			return fmt.Errorf("order %s is %s: %w", order.ID, order.Status, domain.ErrOrderImmutable)
		}
		for i := range order.Positions {
			if order.Positions[i].ID != positionID {
				continue
			}
			if err := repoTx.DeletePosition(ctx, positionID); err != nil {
				return err
			}
			order.Positions = append(order.Positions[:i], order.Positions[i+1:]...)
			return nil
		}
		return fmt.Errorf("position %s: %w", positionID, domain.ErrPositionNotFound)
	})
}

func (s *Service) SetBillingAddress(ctx context.Context, orderID snowflake.ID, address domain.Address) (*domain.Order, error) {
	return s.mutate(ctx, orderID, func(order *domain.Order) error {
		order.BillingAddress = datatypes.NewJSONType(address)
		return nil
	})
}

func (s *Service) SetContact(ctx context.Context, orderID snowflake.ID, contact domain.Contact) (*domain.Order, error) {
	return s.mutate(ctx, orderID, func(order *domain.Order) error {
		order.Contact = datatypes.NewJSONType(contact)
		return nil
	})
}

func (s *Service) SetDeliveryProvider(ctx context.Context, orderID, providerID snowflake.ID) (*domain.Order, error) {
	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider.Type != providerdomain.TypeDelivery {
		return nil, fmt.Errorf("provider %s is %s: %w", providerID, provider.Type, providerdomain.ErrProviderNotFound)
	}
	return s.mutate(ctx, orderID, func(order *domain.Order) error {
		if order.Delivery == nil {
			order.Delivery = &domain.OrderDelivery{
				ID:        s.genID.Generate(),
				OrderID:   order.ID,
				Status:    domain.DeliveryOpen,
				CreatedAt: s.clk.Now(ctx),
			}
		}
		order.Delivery.ProviderID = providerID
		return nil
	})
}

func (s *Service) SetPaymentProvider(ctx context.Context, orderID, providerID snowflake.ID) (*domain.Order, error) {
	provider, err := s.providers.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if provider.Type != providerdomain.TypePayment {
		return nil, fmt.Errorf("provider %s is %s: %w", providerID, provider.Type, providerdomain.ErrProviderNotFound)
	}
	return s.mutate(ctx, orderID, func(order *domain.Order) error {
		if order.Payment == nil {
			order.Payment = &domain.OrderPayment{
				ID:        s.genID.Generate(),
				OrderID:   order.ID,
				Status:    domain.PaymentOpen,
				CreatedAt: s.clk.Now(ctx),
			}
		}
		order.Payment.ProviderID = providerID
		return nil
	})
}

func (s *Service) ApplyDiscountCode(ctx context.Context, orderID snowflake.ID, code string) (*domain.Order, error) {
	key, err := s.resolver.ResolveDiscountKeyFromStaticCode(ctx, code)
	if err != nil {
		return nil, err
	}
	adapter, err := s.discounts.Get(key)
	if err != nil {
		return nil, err
	}
	if !adapter.IsManualAdditionAllowed(code) {
		return nil, fmt.Errorf("code %q: %w", code, discountdomain.ErrDiscountInvalid)
	}
	return s.mutate(ctx, orderID, func(order *domain.Order) error {
		if !order.IsMutable() {
			return fmt.Errorf("order %s is %s: %w", order.ID, order.Status, domain.ErrOrderImmutable)
		}
		for _, d := range order.Discounts {
			if d.Code == code {
				return fmt.Errorf("code %q already applied: %w", code, discountdomain.ErrDiscountInvalid)
			}
		}
		order.Discounts = append(order.Discounts, discountdomain.Discount{
			ID:          s.genID.Generate(),
			OrderID:     order.ID,
			DiscountKey: key,
			Code:        code,
			Trigger:     discountdomain.TriggerUser,
			CreatedAt:   s.clk.Now(ctx),
		})
		return nil
	})
}

func (s *Service) RemoveDiscount(ctx context.Context, orderID, discountID snowflake.ID) (*domain.Order, error) {
	var releaseID, releaseKey string
	order, err := s.mutateTx(ctx, orderID, func(tx *gorm.DB, repoTx domain.Repository, order *domain.Order) error {
		if !order.IsMutable() {
			return fmt.Errorf("order %s is %s: %w", order.ID, order.Status, domain.ErrOrderImmutable)
		}
		for i := range order.Discounts {
			d := order.Discounts[i]
			if d.ID != discountID {
				continue
			}
			adapter, err := s.discounts.Get(d.DiscountKey)
			if err != nil {
				return err
			}
			if d.Trigger != discountdomain.TriggerUser || !adapter.IsManualRemovalAllowed() {
				return fmt.Errorf("discount %s: %w", discountID, discountdomain.ErrDiscountInvalid)
			}
			if err := repoTx.DeleteDiscount(ctx, discountID); err != nil {
				return err
			}
			releaseID = d.ReservationID
			releaseKey = d.DiscountKey
			order.Discounts = append(order.Discounts[:i], order.Discounts[i+1:]...)
			return nil
		}
		return fmt.Errorf("discount %s: %w", discountID, domain.ErrDiscountNotFound)
	})
	if err != nil {
		return nil, err
	}
	if releaseID != "" {
		if err := s.releaseReservation(ctx, releaseKey, releaseID); err != nil {
			s.log.Warn("reservation release failed", zap.String("reservation_id", releaseID), zap.Error(err))
		}
	}
	return order, nil
}

// Checkout freezes the cart: it validates the order, reserves the applied
// discount codes, assigns the order number once and moves OPEN to PENDING
// with a fresh sheet. Reservations taken in a failed attempt are released.
func (s *Service) Checkout(ctx context.Context, orderID snowflake.ID) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(domain.OrderPending) {
		return nil, fmt.Errorf("checkout from %s: %w", order.Status, domain.ErrWrongStatus)
	}
	if err := s.validateCheckout(order); err != nil {
		return nil, err
	}

	reserved, err := s.reserveDiscounts(ctx, order)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now(ctx)
	if order.OrderNumber == "" {
		order.OrderNumber = ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
	}
	order.Status = domain.OrderPending
	order.OrderedAt = &now

	if err := s.persistAggregate(ctx, order); err != nil {
		s.releaseReservations(ctx, order, reserved)
		return nil, err
	}
	s.emitter.Emit(ctx, events.OrderCheckout, s.eventPayload(order))
	return order, nil
}

// Confirm advances PENDING to CONFIRMED and re-runs the order director to
// produce the sheet that is invoiced.
func (s *Service) Confirm(ctx context.Context, orderID snowflake.ID) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(domain.OrderConfirmed) {
		return nil, fmt.Errorf("confirm from %s: %w", order.Status, domain.ErrWrongStatus)
	}
	now := s.clk.Now(ctx)
	order.Status = domain.OrderConfirmed
	order.ConfirmedAt = &now
	if err := s.persistAggregate(ctx, order); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, events.OrderConfirm, s.eventPayload(order))
	return order, nil
}

// Reject moves PENDING to REJECTED and releases every discount
// reservation the order still holds.
func (s *Service) Reject(ctx context.Context, orderID snowflake.ID) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanTransition(domain.OrderRejected) {
		return nil, fmt.Errorf("reject from %s: %w", order.Status, domain.ErrWrongStatus)
	}
	now := s.clk.Now(ctx)
	order.Status = domain.OrderRejected
	order.RejectedAt = &now
	for i := range order.Discounts {
		d := &order.Discounts[i]
		if d.ReservationID == "" {
			continue
		}
		if err := s.releaseReservation(ctx, d.DiscountKey, d.ReservationID); err != nil {
			s.log.Warn("reservation release failed",
				zap.String("order_id", order.ID.String()),
				zap.String("reservation_id", d.ReservationID),
				zap.Error(err))
		}
		// Released either way: the store treats release as idempotent and
		// a rejected order must not keep claiming usage slots.
		d.ReservationID = ""
	}
	if err := s.persistAggregate(ctx, order); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, events.OrderReject, s.eventPayload(order))
	return order, nil
}

func (s *Service) MarkDelivered(ctx context.Context, orderID snowflake.ID) (*domain.Order, error) {
	return s.transitionDelivery(ctx, orderID, domain.DeliveryDelivered, events.OrderDelivered)
}

func (s *Service) MarkReturned(ctx context.Context, orderID snowflake.ID) (*domain.Order, error) {
	return s.transitionDelivery(ctx, orderID, domain.DeliveryReturned, events.OrderReturned)
}

func (s *Service) MarkPaid(ctx context.Context, orderID snowflake.ID) (*domain.Order, error) {
	return s.transitionPayment(ctx, orderID, domain.PaymentPaid, events.OrderPaid)
}

func (s *Service) MarkRefunded(ctx context.Context, orderID snowflake.ID) (*domain.Order, error) {
	return s.transitionPayment(ctx, orderID, domain.PaymentRefunded, events.OrderRefunded)
}

func (s *Service) transitionDelivery(ctx context.Context, orderID snowflake.ID, to domain.DeliveryStatus, event string) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Delivery == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrMissingDeliveryProvider)
	}
	if !order.Delivery.CanTransition(to) {
		return nil, fmt.Errorf("delivery %s to %s: %w", order.Delivery.Status, to, domain.ErrWrongStatus)
	}
	now := s.clk.Now(ctx)
	order.Delivery.Status = to
	switch to {
	case domain.DeliveryDelivered:
		order.Delivery.DeliveredAt = &now
	case domain.DeliveryReturned:
		order.Delivery.ReturnedAt = &now
	}
	fulfilled := s.fulfillIfComplete(order, now)
	if err := s.persistAggregate(ctx, order); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, event, s.eventPayload(order))
	if fulfilled {
		s.emitter.Emit(ctx, events.OrderFullfill, s.eventPayload(order))
	}
	return order, nil
}

func (s *Service) transitionPayment(ctx context.Context, orderID snowflake.ID, to domain.PaymentStatus, event string) (*domain.Order, error) {
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Payment == nil {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrMissingPaymentProvider)
	}
	if !order.Payment.CanTransition(to) {
		return nil, fmt.Errorf("payment %s to %s: %w", order.Payment.Status, to, domain.ErrWrongStatus)
	}
	now := s.clk.Now(ctx)
	order.Payment.Status = to
	switch to {
	case domain.PaymentPaid:
		order.Payment.PaidAt = &now
	case domain.PaymentRefunded:
		order.Payment.RefundedAt = &now
	}
	fulfilled := s.fulfillIfComplete(order, now)
	if err := s.persistAggregate(ctx, order); err != nil {
		return nil, err
	}
	s.emitter.Emit(ctx, event, s.eventPayload(order))
	if fulfilled {
		s.emitter.Emit(ctx, events.OrderFullfill, s.eventPayload(order))
	}
	return order, nil
}

// fulfillIfComplete closes the order once both legs are done. It only
// mutates the loaded aggregate; the caller persists it, so the closing
// rides the same transaction as the leg transition that triggered it.
func (s *Service) fulfillIfComplete(order *domain.Order, now time.Time) bool {
	if !order.CanTransition(domain.OrderFullfilled) {
		return false
	}
	if order.Delivery == nil || order.Delivery.Status != domain.DeliveryDelivered {
		return false
	}
	if order.Payment == nil || order.Payment.Status != domain.PaymentPaid {
		return false
	}
	order.Status = domain.OrderFullfilled
	order.FullfilledAt = &now
	return true
}

func (s *Service) UpdateCalculation(ctx context.Context, orderID snowflake.ID) (*domain.Order, error) {
	return s.mutate(ctx, orderID, func(order *domain.Order) error { return nil })
}

func (s *Service) validateCheckout(order *domain.Order) error {
	address := order.BillingAddress.Data()
	if address.CountryCode == "" || address.AddressLine == "" {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrMissingBillingAddress)
	}
	if order.Contact.Data().Email == "" {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrMissingContact)
	}
	if order.Delivery == nil || order.Delivery.ProviderID == 0 {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrMissingDeliveryProvider)
	}
	if order.Payment == nil || order.Payment.ProviderID == 0 {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrMissingPaymentProvider)
	}
	return nil
}

// reserveDiscounts takes a usage reservation for every user discount that
// does not hold one yet and reports the newly taken ones so a failed
// checkout can compensate.
func (s *Service) reserveDiscounts(ctx context.Context, order *domain.Order) ([]int, error) {
	var taken []int
	for i := range order.Discounts {
		d := &order.Discounts[i]
		if d.Trigger != discountdomain.TriggerUser || d.ReservationID != "" {
			continue
		}
		adapter, err := s.discounts.Get(d.DiscountKey)
		if err != nil {
			s.releaseReservations(ctx, order, taken)
			return nil, err
		}
		reservationID, err := adapter.Reserve(ctx, d.Code)
		if err != nil {
			s.releaseReservations(ctx, order, taken)
			return nil, err
		}
		d.ReservationID = reservationID
		taken = append(taken, i)
	}
	return taken, nil
}

// releaseReservations compensates the reservations taken in one attempt.
// Release is idempotent, so replays on retried rollbacks are harmless.
func (s *Service) releaseReservations(ctx context.Context, order *domain.Order, taken []int) {
	for _, i := range taken {
		d := &order.Discounts[i]
		if err := s.releaseReservation(ctx, d.DiscountKey, d.ReservationID); err != nil {
			s.log.Warn("reservation release failed",
				zap.String("order_id", order.ID.String()),
				zap.String("reservation_id", d.ReservationID),
				zap.Error(err))
		}
		d.ReservationID = ""
	}
}

func (s *Service) releaseReservation(ctx context.Context, discountKey, reservationID string) error {
	adapter, err := s.discounts.Get(discountKey)
	if err != nil {
		return err
	}
	return adapter.Release(ctx, reservationID)
}

// mutate loads the order, applies fn and persists the aggregate with a
// fresh calculation, all inside one transaction.
func (s *Service) mutate(ctx context.Context, orderID snowflake.ID, fn func(order *domain.Order) error) (*domain.Order, error) {
	return s.mutateTx(ctx, orderID, func(tx *gorm.DB, repoTx domain.Repository, order *domain.Order) error {
		return fn(order)
	})
}

func (s *Service) mutateTx(ctx context.Context, orderID snowflake.ID, fn func(tx *gorm.DB, repoTx domain.Repository, order *domain.Order) error) (*domain.Order, error) {
	var result *domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repoTx := repository.NewRepository(tx)
		order, err := repoTx.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(tx, repoTx, order); err != nil {
			return err
		}
		if err := s.recalculate(ctx, repoTx, order); err != nil {
			return err
		}
		order.UpdatedAt = s.clk.Now(ctx)
		if err := repoTx.SaveAggregate(ctx, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// persistAggregate recomputes and stores the full aggregate in one
// transaction; used by transitions that already mutated the loaded order.
func (s *Service) persistAggregate(ctx context.Context, order *domain.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repoTx := repository.NewRepository(tx)
		if err := s.recalculate(ctx, repoTx, order); err != nil {
			return err
		}
		order.UpdatedAt = s.clk.Now(ctx)
		return repoTx.SaveAggregate(ctx, order)
	})
}

func (s *Service) eventPayload(order *domain.Order) map[string]any {
	return map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"status":       string(order.Status),
		"gross":        order.Sheet().Gross(),
		"currency":     order.Currency,
	}
}
