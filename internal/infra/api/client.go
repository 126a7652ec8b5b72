// Package api is the typed client for the prediction HTTP API.
//
//	client, err := api.NewClient(api.Config{Token: os.Getenv("REPLICATE_API_TOKEN")})
//	p, err := api.CreatePrediction[map[string]any](ctx, client, api.CreateRequest{
//	    Version: "5c7d5dc6...",
//	    Input:   value.Of(map[string]any{"prompt": "an astronaut"}),
//	})
//
// Non-2xx responses are classified with Classify and returned as
// *domain.ResponseError or *domain.TransportError; undecodable 2xx bodies as
// *domain.InvalidResponseError.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/vietddude/replikit/internal/core/domain"
	"github.com/vietddude/replikit/internal/core/value"
	"github.com/vietddude/replikit/internal/infra/transport"
	"github.com/vietddude/replikit/internal/metrics"
)

// DefaultBaseURL is the public API endpoint.
const DefaultBaseURL = "https://api.replicate.com/v1/"

// Config holds API connection settings.
type Config struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// Client issues API calls through a Transport.
type Client struct {
	transport transport.Transport
	provider  *transport.HTTPProvider
	log       *slog.Logger
}

// NewClient validates the base URL and builds an HTTP-backed client.
// An invalid base URL yields domain.ErrBaseURL.
func NewClient(cfg Config) (*Client, error) {
	base, err := ParseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	p := transport.NewHTTPProvider("replicate", base, cfg.Token, timeout)
	c := NewClientWithTransport(p)
	c.provider = p
	return c, nil
}

// NewClientWithTransport builds a client on a custom transport.
func NewClientWithTransport(t transport.Transport) *Client {
	return &Client{
		transport: t,
		log:       slog.Default().With("component", "api"),
	}
}

// ParseBaseURL parses an absolute http(s) endpoint. Empty means DefaultBaseURL.
func ParseBaseURL(raw string) (*url.URL, error) {
	if raw == "" {
		raw = DefaultBaseURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", domain.ErrBaseURL, raw)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// Provider returns the HTTP provider, or nil for custom transports.
func (c *Client) Provider() *transport.HTTPProvider {
	return c.provider
}

// Close releases idle connections.
func (c *Client) Close() error {
	if c.provider != nil {
		return c.provider.Close()
	}
	return nil
}

// CreateRequest is the body of a prediction creation call.
type CreateRequest struct {
	Version string      `json:"version"`
	Input   value.Value `json:"input"`
	// Webhook receives a POST when the prediction has new output.
	Webhook string `json:"webhook,omitempty"`
}

// CreatePrediction starts a prediction. It issues exactly one request.
func CreatePrediction[Out any](ctx context.Context, c *Client, req CreateRequest) (*domain.Prediction[Out], error) {
	if req.Version == "" {
		return nil, errors.New("create prediction: version is required")
	}
	resp, err := c.call(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "predictions",
		Route:  "predictions.create",
		Body:   req,
	})
	if err != nil {
		return nil, fmt.Errorf("create prediction: %w", err)
	}
	return decodePrediction[Out](resp)
}

// GetPrediction fetches the current snapshot of a prediction.
func GetPrediction[Out any](ctx context.Context, c *Client, id string) (*domain.Prediction[Out], error) {
	if id == "" {
		return nil, errors.New("get prediction: id is required")
	}
	resp, err := c.call(ctx, transport.Request{
		Method: http.MethodGet,
		Path:   "predictions/" + url.PathEscape(id),
		Route:  "predictions.get",
	})
	if err != nil {
		return nil, fmt.Errorf("get prediction %s: %w", id, err)
	}
	return decodePrediction[Out](resp)
}

// CancelPrediction asks the API to cancel a running prediction.
func CancelPrediction[Out any](ctx context.Context, c *Client, id string) (*domain.Prediction[Out], error) {
	if id == "" {
		return nil, errors.New("cancel prediction: id is required")
	}
	resp, err := c.call(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   "predictions/" + url.PathEscape(id) + "/cancel",
		Route:  "predictions.cancel",
	})
	if err != nil {
		return nil, fmt.Errorf("cancel prediction %s: %w", id, err)
	}
	return decodePrediction[Out](resp)
}

func (c *Client) call(ctx context.Context, req transport.Request) (*transport.Response, error) {
	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		return nil, err
	}

	outcome := Classify(resp.StatusCode, resp.Body)
	if err := outcome.Err(); err != nil {
		metrics.APIErrorsTotal.WithLabelValues(req.Route, outcome.Kind.String()).Inc()
		c.log.Debug("API call rejected",
			"route", req.Route,
			"status", resp.StatusCode,
			"kind", outcome.Kind.String(),
			"request_id", resp.RequestID,
		)
		return nil, err
	}
	return resp, nil
}

func decode[T any](resp *transport.Response) (*T, error) {
	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, &domain.InvalidResponseError{
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			Err:        err,
		}
	}
	return &out, nil
}

func decodePrediction[Out any](resp *transport.Response) (*domain.Prediction[Out], error) {
	p, err := decode[domain.Prediction[Out]](resp)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, &domain.InvalidResponseError{
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
			Err:        err,
		}
	}
	return p, nil
}
