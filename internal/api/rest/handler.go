package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vanityforge/vanity-gateway/internal/api/rest/dto"
	"github.com/vanityforge/vanity-gateway/internal/dispatch"
	"github.com/vanityforge/vanity-gateway/internal/domain"
	"github.com/vanityforge/vanity-gateway/internal/ingest"
	"github.com/vanityforge/vanity-gateway/internal/logger"
	"github.com/vanityforge/vanity-gateway/internal/order"
	"github.com/vanityforge/vanity-gateway/internal/store"
	"github.com/vanityforge/vanity-gateway/internal/store/schema"
	"github.com/vanityforge/vanity-gateway/internal/webhook"
)

// SignatureHeader carries the notifier's HMAC over the raw request body
const SignatureHeader = "X-Webhook-Signature"

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
type Handler interface {
	// NotifyPayments ingests a batch of payment notifications
	// POST /webhook/helius
	NotifyPayments(c *gin.Context)

	// ClaimOrder verifies an ownership proof and, exactly once per order,
	// dispatches fulfillment
	// POST /api/v1/orders/claim
	ClaimOrder(c *gin.Context)

	// GetOrder retrieves the state of a single order by its transaction
	// signature
	// GET /api/v1/orders/:signature
	GetOrder(c *gin.Context)

	// ListPayments retrieves recorded payments with pagination (requires
	// authentication)
	// GET /api/v1/payments?limit=<limit>&offset=<offset>
	ListPayments(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	store         store.Store
	ingestor      *ingest.Ingestor
	authorizer    *order.Authorizer
	webhookSecret string
}

// NewHandler creates a new REST API handler
func NewHandler(s store.Store, ingestor *ingest.Ingestor, authorizer *order.Authorizer, webhookSecret string) Handler {
	return &handler{
		store:         s,
		ingestor:      ingestor,
		authorizer:    authorizer,
		webhookSecret: webhookSecret,
	}
}

// NotifyPayments ingests a batch of payment notifications
func (h *handler) NotifyPayments(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		respondBadRequest(c, "Failed to read request body")
		return
	}

	if h.webhookSecret != "" {
		if err := webhook.VerifySignature(h.webhookSecret, body, c.GetHeader(SignatureHeader)); err != nil {
			logger.WarnCtx(c.Request.Context(), "Rejected unauthenticated notification",
				zap.Error(err),
				zap.String("client_ip", c.ClientIP()),
			)
			respondUnauthorized(c, "Webhook signature verification failed")
			return
		}
	}

	var transactions []dto.NotifiedTransaction
	if err := json.Unmarshal(body, &transactions); err != nil {
		respondBadRequest(c, "Invalid notification payload", err.Error())
		return
	}

	entries := make([]ingest.Entry, 0, len(transactions))
	for _, tx := range transactions {
		entries = append(entries, toIngestEntry(tx))
	}

	result := h.ingestor.ProcessBatch(c.Request.Context(), entries)
	c.JSON(http.StatusOK, result)
}

// ClaimOrder verifies an ownership proof and dispatches fulfillment
func (h *handler) ClaimOrder(c *gin.Context) {
	var req dto.ClaimOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	if err := req.Validate(); err != nil {
		respondBadRequest(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.authorizer.Authorize(c.Request.Context(), order.ClaimRequest{
		Message:   []byte(req.Message),
		Signature: req.Signature,
		Identity:  req.PublicKey,
		Word:      req.Word,
	})
	if err != nil {
		h.respondClaimError(c, err)
		return
	}

	if result.DispatchErr != nil {
		var dispatchErr *dispatch.DispatchError
		details := result.DispatchErr.Error()
		if errors.As(result.DispatchErr, &dispatchErr) {
			details = fmt.Sprintf("%s (order %s, job %s)", dispatchErr.Kind, result.Order.OrderID, result.JobID)
		}
		respondBadGateway(c, "Order authorized but fulfillment failed", details)
		return
	}

	c.JSON(http.StatusOK, dto.ClaimOrderResponse{
		OrderID:     result.Order.OrderID,
		JobID:       result.JobID,
		Word:        req.Word,
		Fulfillment: result.Payload,
	})
}

// respondClaimError maps authorization rejections to HTTP responses
func (h *handler) respondClaimError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrMalformedIdentity),
		errors.Is(err, domain.ErrMalformedSignature):
		respondBadRequest(c, "Malformed ownership proof", err.Error())
	case errors.Is(err, domain.ErrVerificationFailed):
		respondUnauthorized(c, "Ownership verification failed")
	case errors.Is(err, domain.ErrOrderNotFound):
		respondNotFound(c, "No order found for this wallet")
	case errors.Is(err, domain.ErrPaymentNotConfirmed):
		respondPaymentRequired(c, "Payment below the required minimum")
	case errors.Is(err, domain.ErrAlreadyConsumed):
		respondConflict(c, "Order already consumed")
	default:
		respondInternalError(c, err, "Failed to authorize order")
	}
}

// GetOrder retrieves the state of a single order
func (h *handler) GetOrder(c *gin.Context) {
	signature := c.Param("signature")
	if signature == "" {
		respondBadRequest(c, "Order signature is required")
		return
	}

	o, err := h.store.GetOrderByID(c.Request.Context(), signature)
	if err != nil {
		respondInternalError(c, err, "Failed to get order")
		return
	}
	if o == nil {
		respondNotFound(c, "Order not found")
		return
	}

	c.JSON(http.StatusOK, toOrderResponse(o))
}

// ListPayments retrieves recorded payments with pagination
func (h *handler) ListPayments(c *gin.Context) {
	query, err := ParseListPaymentsQuery(c)
	if err != nil {
		respondBadRequest(c, "Invalid query parameters", err.Error())
		return
	}

	payments, total, err := h.store.ListPayments(c.Request.Context(), query.Limit, query.Offset)
	if err != nil {
		respondInternalError(c, err, "Failed to list payments")
		return
	}

	response := dto.ListPaymentsResponse{
		Payments: make([]dto.PaymentResponse, 0, len(payments)),
		Total:    total,
		Limit:    query.Limit,
		Offset:   query.Offset,
	}
	for i := range payments {
		response.Payments = append(response.Payments, toPaymentResponse(&payments[i]))
	}

	c.JSON(http.StatusOK, response)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "vanity-gateway-api",
	})
}

// toIngestEntry converts one notified transaction into an ingest entry,
// keeping the raw notification for audit. Only the first native transfer
// counts; the notifier reports the payment itself first.
func toIngestEntry(tx dto.NotifiedTransaction) ingest.Entry {
	entry := ingest.Entry{
		Signature: tx.Signature,
		Slot:      tx.Slot,
	}

	if len(tx.NativeTransfers) > 0 {
		transfer := tx.NativeTransfers[0]
		entry.Sender = transfer.FromUserAccount
		entry.Receiver = transfer.ToUserAccount
		entry.AmountLamports = transfer.Amount
	}

	if tx.Timestamp > 0 {
		ts := time.Unix(tx.Timestamp, 0).UTC()
		entry.Timestamp = &ts
	}

	if raw, err := json.Marshal(tx); err == nil {
		entry.Raw = raw
	}

	return entry
}

func toOrderResponse(o *schema.VanityOrder) dto.OrderResponse {
	return dto.OrderResponse{
		OrderID:        o.OrderID,
		Payer:          o.Payer,
		AmountLamports: o.AmountLamports,
		AmountSOL:      o.AmountSOL.String(),
		State:          string(domain.OrderStateOf(o.IsPaid, o.IsUsed)),
		Word:           o.Word,
		IsGenerated:    o.IsGenerated,
		UsedAt:         o.UsedAt,
		GeneratedAt:    o.GeneratedAt,
		CreatedAt:      o.CreatedAt,
	}
}

func toPaymentResponse(p *schema.PaymentRecord) dto.PaymentResponse {
	return dto.PaymentResponse{
		Signature:      p.Signature,
		Sender:         p.Sender,
		Receiver:       p.Receiver,
		AmountLamports: p.AmountLamports,
		AmountSOL:      p.AmountSOL.String(),
		Slot:           p.Slot,
		ObservedAt:     p.ObservedAt,
	}
}
