package domain

import "errors"

var (
	// ErrMalformedIdentity is returned when a claimed identity cannot be
	// decoded into a valid ed25519 public key
	ErrMalformedIdentity = errors.New("malformed identity")

	// ErrMalformedSignature is returned when a signature cannot be decoded
	// into the scheme's fixed-size representation
	ErrMalformedSignature = errors.New("malformed signature")

	// ErrVerificationFailed is returned when a signature does not validate
	// against the message and the decoded public key
	ErrVerificationFailed = errors.New("signature verification failed")

	// ErrOrderNotFound is returned when no order exists for a payer identity
	ErrOrderNotFound = errors.New("order not found")

	// ErrPaymentNotConfirmed is returned when an order exists but its payment
	// does not meet the minimum threshold
	ErrPaymentNotConfirmed = errors.New("payment not confirmed")

	// ErrAlreadyConsumed is returned when an order has already been used for
	// fulfillment; the proof itself may still be valid
	ErrAlreadyConsumed = errors.New("order already consumed")
)
