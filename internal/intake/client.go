// Package intake is the HTTP client for the order service's POST /orders.
package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/josko3567/oby-server/internal/api"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrUnexpectedStatus, e.Code, e.Detail)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

const (
	breakerFailures = 3
	breakerCooldown = 15 * time.Second
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[struct{}]
}

// NewClient returns a client for the service at baseURL. A nil httpClient gets a
// traced default.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		cb: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "order-intake",
			MaxRequests: 1,
			Timeout:     breakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= breakerFailures
			},
			IsSuccessful: reachedService,
		}),
	}
}

// reachedService counts rejections (4xx) as healthy answers; only transport
// errors and 5xx open the breaker.
func reachedService(err error) bool {
	if err == nil {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code < 500
}

// SubmitOrder posts the order. Any 2xx answer is success. After repeated
// transport or 5xx failures calls fail fast with gobreaker.ErrOpenState until
// the cooldown passes.
func (c *Client) SubmitOrder(ctx context.Context, order api.OrderEnvelope) error {
	_, err := c.cb.Execute(func() (struct{}, error) {
		return struct{}{}, c.post(ctx, order)
	})
	return err
}

func (c *Client) post(ctx context.Context, order api.OrderEnvelope) error {
	body, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Detail: errorDetail(resp.Body)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// errorDetail pulls the message out of an ErrorResponse body when there is one.
func errorDetail(r io.Reader) string {
	var body api.ErrorResponse
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil || json.Unmarshal(raw, &body) != nil || body.Error == "" {
		return strings.TrimSpace(string(raw))
	}
	return body.Error
}
