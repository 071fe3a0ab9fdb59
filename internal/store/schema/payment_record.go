package schema

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// PaymentRecord represents the payment_records table - one row per observed
// native transfer. Rows are created once on first sight of a transaction
// signature and never mutated or deleted.
type PaymentRecord struct {
	// ID is an auto-incrementing sequence number
	ID uint64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Signature is the transaction signature, the natural key enforcing
	// at-most-once recording
	Signature string `gorm:"column:signature;not null;uniqueIndex;type:varchar(88)"`
	// Sender is the paying account address
	Sender string `gorm:"column:sender;not null;type:varchar(44)"`
	// Receiver is the receiving account address
	Receiver string `gorm:"column:receiver;not null;type:varchar(44)"`
	// AmountLamports is the transferred amount in minor units
	AmountLamports uint64 `gorm:"column:amount_lamports;not null"`
	// AmountSOL is the exact decimal major-unit equivalent of AmountLamports
	AmountSOL decimal.Decimal `gorm:"column:amount_sol;not null;type:decimal(20,9)"`
	// Slot is the slot the transaction was observed in, when the notifier
	// provided one
	Slot uint64 `gorm:"column:slot"`
	// Raw is the notification entry as received, kept for audit
	Raw datatypes.JSON `gorm:"column:raw;type:jsonb"`
	// ObservedAt is the notification timestamp if present, else ingestion time
	ObservedAt time.Time `gorm:"column:observed_at;not null;type:timestamptz"`
	// CreatedAt is the ingestion timestamp
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the PaymentRecord model
func (PaymentRecord) TableName() string {
	return "payment_records"
}
