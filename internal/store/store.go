package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/vanityforge/vanity-gateway/internal/store/schema"
)

// CreatePaymentInput holds the data for recording an observed payment. The
// payment record and its vanity order are created together in one transaction.
type CreatePaymentInput struct {
	Signature      string
	Sender         string
	Receiver       string
	AmountLamports uint64
	AmountSOL      decimal.Decimal
	Slot           uint64
	Raw            datatypes.JSON
	ObservedAt     time.Time
	IsPaid         bool
}

// Store defines the interface for ledger operations. It is the single source
// of truth for payment and order state; callers re-read it for every decision
// instead of caching across requests.
type Store interface {
	// InsertPaymentIfAbsent records a payment and its order, keyed by the
	// transaction signature. Returns false when the signature was already
	// recorded; redelivered notifications are a no-op.
	InsertPaymentIfAbsent(ctx context.Context, input CreatePaymentInput) (bool, error)

	// GetOrderByID retrieves an order by its ID (the transaction signature).
	// Returns nil when no such order exists.
	GetOrderByID(ctx context.Context, orderID string) (*schema.VanityOrder, error)

	// GetClaimableOrderByPayer retrieves the most recent paid and unused
	// order for a payer. Returns nil when the payer has no claimable order.
	GetClaimableOrderByPayer(ctx context.Context, payer string) (*schema.VanityOrder, error)

	// GetLatestOrderByPayer retrieves the most recent order for a payer
	// regardless of state. Returns nil when the payer has no orders.
	GetLatestOrderByPayer(ctx context.Context, payer string) (*schema.VanityOrder, error)

	// TryMarkUsed atomically transitions an order from paid-and-unused to
	// used, recording the requested word. Returns false when the order was
	// not in that state, including when a concurrent claim won the race.
	TryMarkUsed(ctx context.Context, orderID string, word string) (bool, error)

	// MarkGenerated records the worker's completion confirmation. Succeeds
	// only for orders already used and not yet confirmed.
	MarkGenerated(ctx context.Context, orderID string) (bool, error)

	// ListPayments retrieves payment records ordered by observation time
	// descending, with the total count for pagination.
	ListPayments(ctx context.Context, limit int, offset uint64) ([]schema.PaymentRecord, uint64, error)
}
