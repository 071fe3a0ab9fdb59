// Package dispatch sends authorized fulfillment jobs to the external
// generation worker. A job is sent at most once: by the time Dispatch is
// called the order has already been marked used, so retrying here could never
// be distinguished from double-fulfillment by the worker.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vanityforge/vanity-gateway/internal/adapter"
)

// ErrorKind classifies dispatch failures
type ErrorKind string

const (
	// ErrorKindTimeout means the worker call exceeded its deadline
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindTransport means the request never completed
	ErrorKindTransport ErrorKind = "transport"
	// ErrorKindWorkerRejected means the worker answered with a non-2xx status
	ErrorKindWorkerRejected ErrorKind = "worker_rejected"
	// ErrorKindResponseUnparseable means the worker's response was not valid JSON
	ErrorKindResponseUnparseable ErrorKind = "response_unparseable"
)

// DispatchError is a typed dispatch failure. The order stays marked used when
// one occurs; recovery of the dropped job is an out-of-band concern.
type DispatchError struct {
	Kind ErrorKind
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed (%s): %v", e.Kind, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// FulfillmentRequest describes one generation job
type FulfillmentRequest struct {
	// JobID is a ULID identifying this dispatch attempt
	JobID string `json:"job_id"`
	// OrderID is the consumed order's ID (the payment signature)
	OrderID string `json:"order_id"`
	// Word is the requested generation parameter
	Word string `json:"word"`
}

// FulfillmentResult carries the worker's response
type FulfillmentResult struct {
	// JobID echoes the request's job ID
	JobID string
	// Payload is the worker's JSON response, passed through opaquely
	Payload json.RawMessage
}

// NewFulfillmentRequest builds a request with a fresh time-sortable job ID
func NewFulfillmentRequest(orderID string, word string) FulfillmentRequest {
	return FulfillmentRequest{
		JobID:   ulid.Make().String(),
		OrderID: orderID,
		Word:    word,
	}
}

// Dispatcher defines the interface for sending fulfillment jobs to enable
// mocking
type Dispatcher interface {
	// Dispatch sends one job to the worker and returns its structured
	// response. Errors are always a *DispatchError.
	Dispatch(ctx context.Context, req FulfillmentRequest) (*FulfillmentResult, error)
}

// WorkerDispatcher implements Dispatcher over a request/response HTTP call
type WorkerDispatcher struct {
	httpClient adapter.HTTPClient
	workerURL  string
	timeout    time.Duration
}

// NewWorkerDispatcher creates a dispatcher for the worker at workerURL. Every
// call is bounded by timeout.
func NewWorkerDispatcher(httpClient adapter.HTTPClient, workerURL string, timeout time.Duration) *WorkerDispatcher {
	return &WorkerDispatcher{
		httpClient: httpClient,
		workerURL:  workerURL,
		timeout:    timeout,
	}
}

// Dispatch sends one job to the worker and returns its structured response
func (d *WorkerDispatcher) Dispatch(ctx context.Context, req FulfillmentRequest) (*FulfillmentResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &DispatchError{Kind: ErrorKindTransport, Err: fmt.Errorf("failed to encode job: %w", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	resp, err := d.httpClient.Post(ctx, d.workerURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, &DispatchError{Kind: classifyTransportError(err), Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &DispatchError{
			Kind: ErrorKindWorkerRejected,
			Err:  fmt.Errorf("worker returned status %d: %s", resp.StatusCode, truncate(resp.Body, 512)),
		}
	}

	if !json.Valid(resp.Body) {
		return nil, &DispatchError{
			Kind: ErrorKindResponseUnparseable,
			Err:  fmt.Errorf("worker response is not valid JSON: %s", truncate(resp.Body, 512)),
		}
	}

	return &FulfillmentResult{JobID: req.JobID, Payload: resp.Body}, nil
}

// classifyTransportError separates deadline expiry from other transport
// failures
func classifyTransportError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorKindTimeout
	}
	return ErrorKindTransport
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
