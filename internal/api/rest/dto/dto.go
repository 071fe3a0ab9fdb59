// Package dto defines the request and response shapes of the REST API.
package dto

import (
	"encoding/json"
	"errors"
	"time"
)

const maxWordLength = 100

// NativeTransfer is one native SOL movement inside a notified transaction
type NativeTransfer struct {
	FromUserAccount string `json:"fromUserAccount"`
	ToUserAccount   string `json:"toUserAccount"`
	Amount          uint64 `json:"amount"`
}

// NotifiedTransaction is one enhanced transaction from the payment notifier.
// The notifier posts a JSON array of these.
type NotifiedTransaction struct {
	Signature       string           `json:"signature"`
	Slot            uint64           `json:"slot"`
	Timestamp       int64            `json:"timestamp"`
	NativeTransfers []NativeTransfer `json:"nativeTransfers"`
}

// ClaimOrderRequest is an ownership-proof submission
type ClaimOrderRequest struct {
	// Message is the signed message text, passed through byte-for-byte
	Message string `json:"message"`
	// Signature is the base58 ed25519 signature over Message
	Signature string `json:"signature"`
	// PublicKey is the claimed payer public key, base58
	PublicKey string `json:"public_key"`
	// Word is the requested generation parameter
	Word string `json:"word"`
}

// Validate checks that all required fields are present
func (r *ClaimOrderRequest) Validate() error {
	if r.Message == "" {
		return errors.New("message is required")
	}
	if r.Signature == "" {
		return errors.New("signature is required")
	}
	if r.PublicKey == "" {
		return errors.New("public_key is required")
	}
	if r.Word == "" {
		return errors.New("word is required")
	}
	if len(r.Word) > maxWordLength {
		return errors.New("word is too long")
	}
	return nil
}

// ClaimOrderResponse is returned when an order was authorized and fulfilled
type ClaimOrderResponse struct {
	OrderID     string          `json:"order_id"`
	JobID       string          `json:"job_id"`
	Word        string          `json:"word"`
	Fulfillment json.RawMessage `json:"fulfillment"`
}

// OrderResponse is one order's current state
type OrderResponse struct {
	OrderID        string     `json:"order_id"`
	Payer          string     `json:"payer"`
	AmountLamports uint64     `json:"amount_lamports"`
	AmountSOL      string     `json:"amount_sol"`
	State          string     `json:"state"`
	Word           string     `json:"word,omitempty"`
	IsGenerated    bool       `json:"is_generated"`
	UsedAt         *time.Time `json:"used_at,omitempty"`
	GeneratedAt    *time.Time `json:"generated_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// PaymentResponse is one recorded payment
type PaymentResponse struct {
	Signature      string    `json:"signature"`
	Sender         string    `json:"sender"`
	Receiver       string    `json:"receiver"`
	AmountLamports uint64    `json:"amount_lamports"`
	AmountSOL      string    `json:"amount_sol"`
	Slot           uint64    `json:"slot"`
	ObservedAt     time.Time `json:"observed_at"`
}

// ListPaymentsResponse is a page of recorded payments
type ListPaymentsResponse struct {
	Payments []PaymentResponse `json:"payments"`
	Total    uint64            `json:"total"`
	Limit    int               `json:"limit"`
	Offset   uint64            `json:"offset"`
}
