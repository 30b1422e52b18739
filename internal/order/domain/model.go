// Package domain defines the order aggregate: the order itself plus its
// owned positions, delivery, payment and discounts. Each sub-entity owns
// its own calculation sheet, replaced wholesale on every recomputation.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	discountdomain "github.com/cartforgelabs/cartforge/internal/discount/domain"
	"github.com/cartforgelabs/cartforge/internal/pricing"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderOpen       OrderStatus = "OPEN"
	OrderPending    OrderStatus = "PENDING"
	OrderConfirmed  OrderStatus = "CONFIRMED"
	OrderFullfilled OrderStatus = "FULLFILLED"
	OrderRejected   OrderStatus = "REJECTED"
)

type DeliveryStatus string

const (
	DeliveryOpen      DeliveryStatus = "OPEN"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryReturned  DeliveryStatus = "RETURNED"
)

type PaymentStatus string

const (
	PaymentOpen     PaymentStatus = "OPEN"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Address is the billing address; its country decides the tax jurisdiction.
type Address struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	AddressLine string `json:"address_line"`
	PostalCode  string `json:"postal_code"`
	City        string `json:"city"`
	CountryCode string `json:"country_code"`
}

type Contact struct {
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Order is the aggregate root. It exclusively owns its sub-entities;
// deleting an order cascades.
type Order struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	OrderNumber string       `gorm:"type:text"`
	Status      OrderStatus  `gorm:"type:text;not null;index"`
	Currency    string       `gorm:"type:text;not null"`
	CountryCode string       `gorm:"type:text;not null"`

	BillingAddress datatypes.JSONType[Address] `gorm:"type:jsonb"`
	Contact        datatypes.JSONType[Contact] `gorm:"type:jsonb"`

	Calculation pricing.RowList `gorm:"type:jsonb;serializer:json"`

	Positions []OrderPosition           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Delivery  *OrderDelivery            `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payment   *OrderPayment             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Discounts []discountdomain.Discount `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	OrderedAt    *time.Time
	ConfirmedAt  *time.Time
	FullfilledAt *time.Time
	RejectedAt   *time.Time
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// TaxCountry is the tax jurisdiction: billing address country when set,
// the order's own country otherwise.
func (o *Order) TaxCountry() string {
	if cc := o.BillingAddress.Data().CountryCode; cc != "" {
		return cc
	}
	return o.CountryCode
}

// IsMutable reports whether the position list may still change.
func (o *Order) IsMutable() bool { return o.Status == OrderOpen }

// Sheet wraps the order's persisted calculation.
func (o *Order) Sheet() *pricing.Sheet {
	return pricing.SheetFromRows(o.Currency, 0, o.Calculation)
}

// OrderPosition is one line item.
type OrderPosition struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrderID   snowflake.ID `gorm:"not null;index"`
	ProductID snowflake.ID `gorm:"not null"`
	Quantity  int          `gorm:"not null"`

	Calculation pricing.RowList `gorm:"type:jsonb;serializer:json"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (OrderPosition) TableName() string { return "order_positions" }

// Sheet wraps the position's persisted calculation.
func (p *OrderPosition) Sheet(currency string) *pricing.Sheet {
	return pricing.SheetFromRows(currency, p.Quantity, p.Calculation)
}

// OrderDelivery tracks the chosen delivery provider and its fulfillment.
type OrderDelivery struct {
	ID         snowflake.ID   `gorm:"primaryKey"`
	OrderID    snowflake.ID   `gorm:"not null;uniqueIndex"`
	ProviderID snowflake.ID   `gorm:"not null"`
	Status     DeliveryStatus `gorm:"type:text;not null"`

	Calculation pricing.RowList `gorm:"type:jsonb;serializer:json"`

	DeliveredAt *time.Time
	ReturnedAt  *time.Time
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (OrderDelivery) TableName() string { return "order_deliveries" }

// OrderPayment tracks the chosen payment provider and its settlement.
type OrderPayment struct {
	ID         snowflake.ID  `gorm:"primaryKey"`
	OrderID    snowflake.ID  `gorm:"not null;uniqueIndex"`
	ProviderID snowflake.ID  `gorm:"not null"`
	Status     PaymentStatus `gorm:"type:text;not null"`

	Calculation pricing.RowList `gorm:"type:jsonb;serializer:json"`

	PaidAt     *time.Time
	RefundedAt *time.Time
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (OrderPayment) TableName() string { return "order_payments" }

// Transition tables. Every edge is one-directional; anything else is a
// wrong-status error and leaves the entity unchanged.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderOpen:      {OrderPending},
	OrderPending:   {OrderConfirmed, OrderRejected},
	OrderConfirmed: {OrderFullfilled},
}

var deliveryTransitions = map[DeliveryStatus][]DeliveryStatus{
	DeliveryOpen: {DeliveryDelivered, DeliveryReturned},
}

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentOpen: {PaymentPaid},
	PaymentPaid: {PaymentRefunded},
}

// CanTransition reports whether the order may move to the target status.
func (o *Order) CanTransition(to OrderStatus) bool {
	for _, allowed := range orderTransitions[o.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether the delivery may move to the target status.
func (d *OrderDelivery) CanTransition(to DeliveryStatus) bool {
	for _, allowed := range deliveryTransitions[d.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransition reports whether the payment may move to the target status.
func (p *OrderPayment) CanTransition(to PaymentStatus) bool {
	for _, allowed := range paymentTransitions[p.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}
