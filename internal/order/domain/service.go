package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/cartforgelabs/cartforge/internal/pricing"
)

var (
	ErrOrderNotFound           = errors.New("order_not_found")
	ErrPositionNotFound        = errors.New("position_not_found")
	ErrDiscountNotFound        = errors.New("discount_not_found")
	ErrWrongStatus             = errors.New("order_wrong_status")
	ErrOrderImmutable          = errors.New("order_immutable")
	ErrInvalidQuantity         = errors.New("invalid_quantity")
	ErrInvalidCurrency         = errors.New("invalid_currency")
	ErrMissingBillingAddress   = errors.New("missing_billing_address")
	ErrMissingContact          = errors.New("missing_contact")
	ErrMissingDeliveryProvider = errors.New("missing_delivery_provider")
	ErrMissingPaymentProvider  = errors.New("missing_payment_provider")
)

type CreateCartInput struct {
	Currency    string
	CountryCode string
}

type SimulatePriceInput struct {
	SKU         string
	Quantity    int
	Currency    string
	CountryCode string
}

// Service is the order workflow: the state machine plus the single
// recalculation entry point it funnels every mutation through.
type Service interface {
	CreateCart(ctx context.Context, input CreateCartInput) (*Order, error)
	Get(ctx context.Context, orderID snowflake.ID) (*Order, error)

	AddItem(ctx context.Context, orderID, productID snowflake.ID, quantity int) (*Order, error)
	UpdateItemQuantity(ctx context.Context, orderID, positionID snowflake.ID, quantity int) (*Order, error)
	RemoveItem(ctx context.Context, orderID, positionID snowflake.ID) (*Order, error)

	SetBillingAddress(ctx context.Context, orderID snowflake.ID, address Address) (*Order, error)
	SetContact(ctx context.Context, orderID snowflake.ID, contact Contact) (*Order, error)
	SetDeliveryProvider(ctx context.Context, orderID, providerID snowflake.ID) (*Order, error)
	SetPaymentProvider(ctx context.Context, orderID, providerID snowflake.ID) (*Order, error)

	ApplyDiscountCode(ctx context.Context, orderID snowflake.ID, code string) (*Order, error)
	RemoveDiscount(ctx context.Context, orderID, discountID snowflake.ID) (*Order, error)

	Checkout(ctx context.Context, orderID snowflake.ID) (*Order, error)
	Confirm(ctx context.Context, orderID snowflake.ID) (*Order, error)
	Reject(ctx context.Context, orderID snowflake.ID) (*Order, error)

	MarkDelivered(ctx context.Context, orderID snowflake.ID) (*Order, error)
	MarkReturned(ctx context.Context, orderID snowflake.ID) (*Order, error)
	MarkPaid(ctx context.Context, orderID snowflake.ID) (*Order, error)
	MarkRefunded(ctx context.Context, orderID snowflake.ID) (*Order, error)

	UpdateCalculation(ctx context.Context, orderID snowflake.ID) (*Order, error)

	// SimulatePrice prices a product on a throwaway context; nothing is
	// persisted, even on failure.
	SimulatePrice(ctx context.Context, input SimulatePriceInput) (*pricing.Sheet, error)
}

// Repository is the persistence edge of the aggregate. The service is the
// only writer of calculation fields, always through SaveAggregate inside a
// transaction.
type Repository interface {
	Get(ctx context.Context, orderID snowflake.ID) (*Order, error)
	Create(ctx context.Context, order *Order) error
	Save(ctx context.Context, order *Order) error
	SaveAggregate(ctx context.Context, order *Order) error
	DeletePosition(ctx context.Context, positionID snowflake.ID) error
	DeleteDiscount(ctx context.Context, discountID snowflake.ID) error
}
