package schema

import (
	"time"

	"github.com/shopspring/decimal"
)

// VanityOrder represents the vanity_orders table - the purchase intent tied
// one-to-one to a payment record. The only mutation an order ever sees is the
// one-time used transition (and the worker's generation confirmation).
type VanityOrder struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// OrderID equals the payment's transaction signature
	OrderID string `gorm:"column:order_id;not null;uniqueIndex;type:varchar(88)"`
	// Payer is the paying account address, the lookup key for ownership proofs
	Payer string `gorm:"column:payer;not null;index;type:varchar(44)"`
	// AmountLamports is the paid amount in minor units
	AmountLamports uint64 `gorm:"column:amount_lamports;not null"`
	// AmountSOL is the decimal major-unit amount paid
	AmountSOL decimal.Decimal `gorm:"column:amount_sol;not null;type:decimal(20,9)"`
	// IsPaid is true iff the amount met the minimum threshold at ingestion
	IsPaid bool `gorm:"column:is_paid;not null;default:false"`
	// IsUsed becomes true exactly once, when fulfillment is authorized.
	// Monotonic: never reset to false.
	IsUsed bool `gorm:"column:is_used;not null;default:false"`
	// IsGenerated becomes true when the worker confirms completion
	IsGenerated bool `gorm:"column:is_generated;not null;default:false"`
	// Word is the generation parameter recorded when the order was consumed
	Word string `gorm:"column:word;type:varchar(100)"`
	// UsedAt is when the used transition was applied
	UsedAt *time.Time `gorm:"column:used_at;type:timestamptz"`
	// GeneratedAt is when the worker confirmed completion
	GeneratedAt *time.Time `gorm:"column:generated_at;type:timestamptz"`
	// CreatedAt is the ingestion timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp of the last transition
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the VanityOrder model
func (VanityOrder) TableName() string {
	return "vanity_orders"
}
