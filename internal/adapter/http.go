package adapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vanityforge/vanity-gateway/internal/logger"
)

// Response holds the outcome of an HTTP exchange. A non-2xx status is not an
// error at this layer; callers decide what a rejection means.
type Response struct {
	StatusCode int
	Body       []byte
}

// HTTPClient defines an interface for outbound HTTP operations to enable
// mocking. Requests are single-shot: no retry happens at this layer, because
// the fulfillment dispatch path must never re-send a job.
type HTTPClient interface {
	// Post performs a POST request and returns the status code and body
	Post(ctx context.Context, url string, contentType string, body io.Reader) (*Response, error)
}

// RealHTTPClient implements HTTPClient using the standard http package
type RealHTTPClient struct {
	client *http.Client
}

// NewHTTPClient creates a new real HTTP client with the given timeout
func NewHTTPClient(timeout time.Duration) HTTPClient {
	return &RealHTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Post performs a POST request and returns the status code and body
func (c *RealHTTPClient) Post(ctx context.Context, url string, contentType string, body io.Reader) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Warn("failed to close response body", zap.Error(err), zap.String("url", url))
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}
