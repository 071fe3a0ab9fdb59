package domain

import (
	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL
const LamportsPerSOL = 1_000_000_000

// OrderState represents the lifecycle state of a vanity order
type OrderState string

const (
	// OrderStateUnpaid means the observed payment was below the minimum threshold
	OrderStateUnpaid OrderState = "unpaid"
	// OrderStatePaidUnused means the order is payable and has not been consumed
	OrderStatePaidUnused OrderState = "paid_unused"
	// OrderStatePaidUsed means the order has been consumed; this state is terminal
	OrderStatePaidUsed OrderState = "paid_used"
)

// LamportsToSOL converts an integer lamport amount to its exact decimal SOL
// equivalent. Financial comparisons elsewhere use integer lamports; the
// decimal value exists for human-facing records only.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Shift(-9)
}

// OrderStateOf derives the lifecycle state from the two order flags
func OrderStateOf(isPaid, isUsed bool) OrderState {
	switch {
	case !isPaid:
		return OrderStateUnpaid
	case isUsed:
		return OrderStatePaidUsed
	default:
		return OrderStatePaidUnused
	}
}
