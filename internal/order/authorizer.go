// Package order implements the order authorization state machine. An order
// moves from unpaid to paid at ingestion and from paid to used here, with
// the used transition guarded by a conditional update at the storage layer so
// that concurrent claims for the same order cannot both dispatch fulfillment.
package order

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/vanityforge/vanity-gateway/internal/dispatch"
	"github.com/vanityforge/vanity-gateway/internal/domain"
	"github.com/vanityforge/vanity-gateway/internal/logger"
	"github.com/vanityforge/vanity-gateway/internal/store"
	"github.com/vanityforge/vanity-gateway/internal/store/schema"
)

// VerifyFunc validates an ownership proof; see ownership.Verify
type VerifyFunc func(message []byte, signatureB58 string, identityB58 string) error

// ClaimRequest is one ownership-proof submission
type ClaimRequest struct {
	// Message is the signed message, bit-for-bit as the wallet signed it
	Message []byte
	// Signature is the base58 ed25519 signature over Message
	Signature string
	// Identity is the claimed payer public key, base58
	Identity string
	// Word is the requested generation parameter
	Word string
}

// AuthorizeResult is the outcome of a successful used transition. DispatchErr
// is set when the order was consumed but the worker call failed; the
// transition is never rolled back in that case.
type AuthorizeResult struct {
	Order       *schema.VanityOrder
	JobID       string
	Payload     json.RawMessage
	DispatchErr error
}

// Authorizer decides whether fulfillment may proceed for a claimed identity
type Authorizer struct {
	store      store.Store
	dispatcher dispatch.Dispatcher
	verify     VerifyFunc
}

// New creates an order authorizer
func New(s store.Store, d dispatch.Dispatcher, verify VerifyFunc) *Authorizer {
	return &Authorizer{
		store:      s,
		dispatcher: d,
		verify:     verify,
	}
}

// Authorize verifies the ownership proof, applies the one-time used
// transition to the payer's claimable order, and dispatches exactly one
// fulfillment job. Rejections are the domain sentinels: ErrMalformedIdentity,
// ErrMalformedSignature and ErrVerificationFailed before any store access,
// then ErrOrderNotFound, ErrPaymentNotConfirmed or ErrAlreadyConsumed from
// the fresh order read.
func (a *Authorizer) Authorize(ctx context.Context, req ClaimRequest) (*AuthorizeResult, error) {
	// An unverified identity never reaches the store.
	if err := a.verify(req.Message, req.Signature, req.Identity); err != nil {
		return nil, err
	}

	claimable, err := a.store.GetClaimableOrderByPayer(ctx, req.Identity)
	if err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}

	if claimable == nil {
		return nil, a.rejectionFor(ctx, req.Identity)
	}

	// The guard inside TryMarkUsed re-checks is_paid and is_used; losing the
	// race to a concurrent claim surfaces as zero rows affected, never as a
	// second dispatch.
	marked, err := a.store.TryMarkUsed(ctx, claimable.OrderID, req.Word)
	if err != nil {
		return nil, fmt.Errorf("failed to mark order used: %w", err)
	}
	if !marked {
		return nil, domain.ErrAlreadyConsumed
	}

	logger.InfoCtx(ctx, "Order authorized",
		zap.String("order_id", claimable.OrderID),
		zap.String("payer", req.Identity),
		zap.String("word", req.Word),
	)

	fulfillment := dispatch.NewFulfillmentRequest(claimable.OrderID, req.Word)
	result := &AuthorizeResult{Order: claimable, JobID: fulfillment.JobID}

	workerResult, dispatchErr := a.dispatcher.Dispatch(ctx, fulfillment)
	if dispatchErr != nil {
		// The order stays used. Double-fulfillment is worse than a dropped
		// job; the unset is_generated flag marks it for reconciliation.
		logger.ErrorCtx(ctx, dispatchErr,
			zap.String("order_id", claimable.OrderID),
			zap.String("job_id", fulfillment.JobID),
		)
		result.DispatchErr = dispatchErr
		return result, nil
	}

	result.Payload = workerResult.Payload

	confirmed, err := a.store.MarkGenerated(ctx, claimable.OrderID)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to record generation confirmation",
			zap.String("order_id", claimable.OrderID), zap.Error(err))
	} else if !confirmed {
		logger.WarnCtx(ctx, "Generation already confirmed",
			zap.String("order_id", claimable.OrderID))
	}

	return result, nil
}

// rejectionFor distinguishes why a payer has no claimable order
func (a *Authorizer) rejectionFor(ctx context.Context, payer string) error {
	latest, err := a.store.GetLatestOrderByPayer(ctx, payer)
	if err != nil {
		return fmt.Errorf("failed to look up order: %w", err)
	}

	switch {
	case latest == nil:
		return domain.ErrOrderNotFound
	case !latest.IsPaid:
		return domain.ErrPaymentNotConfirmed
	default:
		return domain.ErrAlreadyConsumed
	}
}
