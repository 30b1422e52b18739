// Package domain holds the delivery and payment provider records whose
// configuration feeds the fee pricing adapters.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

var ErrProviderNotFound = errors.New("provider_not_found")

// ProviderType separates delivery from payment providers.
type ProviderType string

const (
	TypeDelivery ProviderType = "DELIVERY"
	TypePayment  ProviderType = "PAYMENT"
)

// Configuration keys the fee adapters understand.
const (
	ConfigFeeAmount  = "fee_amount"
	ConfigFeeRate    = "fee_rate"
	ConfigIsNetPrice = "is_net_price"
)

// Provider is a configured delivery or payment provider. Configuration is
// a flat list of key/value pairs, stored as JSON.
type Provider struct {
	ID            snowflake.ID                            `gorm:"primaryKey"`
	Type          ProviderType                            `gorm:"type:text;not null;index"`
	Adapter       string                                  `gorm:"type:text;not null"`
	Configuration datatypes.JSONSlice[ConfigurationEntry] `gorm:"type:jsonb"`
	CreatedAt     time.Time                               `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Provider) TableName() string { return "providers" }

type ConfigurationEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ConfigurationMap flattens the entry list; later entries win.
func (p *Provider) ConfigurationMap() map[string]string {
	out := make(map[string]string, len(p.Configuration))
	for _, entry := range p.Configuration {
		out[entry.Key] = entry.Value
	}
	return out
}

type Repository interface {
	Get(ctx context.Context, id snowflake.ID) (*Provider, error)
	Create(ctx context.Context, provider *Provider) error
	ListByType(ctx context.Context, t ProviderType) ([]Provider, error)
}
