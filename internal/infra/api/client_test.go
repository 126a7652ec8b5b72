package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/replikit/internal/core/domain"
	"github.com/vietddude/replikit/internal/core/value"
)

type imageOutput []string

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{BaseURL: server.URL + "/v1/", Token: "secret", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNewClient_BaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{"default", "", false},
		{"https", "https://example.com/v1/", false},
		{"http without slash", "http://localhost:8080/v1", false},
		{"relative", "/v1/", true},
		{"no scheme", "example.com/v1", true},
		{"ftp", "ftp://example.com/", true},
		{"malformed", "http://[::1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(Config{BaseURL: tt.baseURL})
			if tt.wantErr {
				if !errors.Is(err, domain.ErrBaseURL) {
					t.Fatalf("expected ErrBaseURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.Provider() == nil {
				t.Error("expected HTTP provider")
			}
		})
	}
}

func TestCreatePrediction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/predictions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		if err := json.Unmarshal(raw, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["version"] != "abc123" {
			t.Errorf("version = %v", body["version"])
		}
		input, _ := body["input"].(map[string]any)
		if input["prompt"] != "an astronaut" {
			t.Errorf("input = %v", body["input"])
		}
		if _, ok := body["webhook"]; ok {
			t.Error("empty webhook should be omitted")
		}

		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"p1","version":"abc123","status":"starting"}`)
	})

	p, err := CreatePrediction[imageOutput](context.Background(), c, CreateRequest{
		Version: "abc123",
		Input:   value.Of(map[string]any{"prompt": "an astronaut"}),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID != "p1" || p.Status != domain.StatusStarting {
		t.Errorf("unexpected prediction %+v", p)
	}
	if p.Output != nil {
		t.Error("starting prediction should have no output")
	}
}

func TestCreatePrediction_RequiresVersion(t *testing.T) {
	c := NewClientWithTransport(nil)
	if _, err := CreatePrediction[imageOutput](context.Background(), c, CreateRequest{}); err == nil {
		t.Fatal("expected error for missing version")
	}
}

func TestGetPrediction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.EscapedPath() != "/v1/predictions/a%2Fb" {
			t.Errorf("id not escaped: %s", r.URL.EscapedPath())
		}
		_, _ = io.WriteString(w, `{"id":"a/b","version":"v","status":"succeeded","output":["https://x/1.png"],"metrics":{"predict_time":1.5}}`)
	})

	p, err := GetPrediction[imageOutput](context.Background(), c, "a/b")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.Output == nil || len(*p.Output) != 1 || (*p.Output)[0] != "https://x/1.png" {
		t.Errorf("unexpected output %v", p.Output)
	}
	if p.Metrics == nil || p.Metrics.PredictTime == nil || *p.Metrics.PredictTime != 1.5 {
		t.Errorf("unexpected metrics %+v", p.Metrics)
	}
}

func TestCancelPrediction(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/predictions/p1/cancel" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"id":"p1","version":"v","status":"canceled"}`)
	})

	p, err := CancelPrediction[imageOutput](context.Background(), c, "p1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if p.Status != domain.StatusCanceled {
		t.Errorf("status = %s", p.Status)
	}
}

func TestClient_ErrorResponses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "domain error",
			status: http.StatusUnauthorized,
			body:   `{"detail":"Invalid token."}`,
			check: func(t *testing.T, err error) {
				var respErr *domain.ResponseError
				if !errors.As(err, &respErr) || respErr.Detail != "Invalid token." {
					t.Errorf("expected response error, got %v", err)
				}
			},
		},
		{
			name:   "undecodable 4xx",
			status: http.StatusUnauthorized,
			body:   `bogus`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, domain.ErrCouldNotDecodeErrorContainer) {
					t.Errorf("expected ErrCouldNotDecodeErrorContainer, got %v", err)
				}
			},
		},
		{
			name:   "server error",
			status: http.StatusServiceUnavailable,
			body:   `{"detail":"maintenance"}`,
			check: func(t *testing.T, err error) {
				var transErr *domain.TransportError
				if !errors.As(err, &transErr) || transErr.StatusCode != 503 {
					t.Errorf("expected transport error, got %v", err)
				}
			},
		},
		{
			name:   "invalid success body",
			status: http.StatusOK,
			body:   `{"id":`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, domain.ErrInvalidResponse) {
					t.Errorf("expected ErrInvalidResponse, got %v", err)
				}
			},
		},
		{
			name:   "unknown status",
			status: http.StatusOK,
			body:   `{"id":"p1","status":"queued"}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, domain.ErrInvalidResponse) {
					t.Errorf("expected ErrInvalidResponse, got %v", err)
				}
			},
		},
		{
			name:   "missing status",
			status: http.StatusOK,
			body:   `{"id":"p1","version":"v1"}`,
			check: func(t *testing.T, err error) {
				var invalid *domain.InvalidResponseError
				if !errors.As(err, &invalid) || invalid.StatusCode != http.StatusOK {
					t.Errorf("expected InvalidResponseError, got %v", err)
				}
			},
		},
		{
			name:   "missing id",
			status: http.StatusOK,
			body:   `{"version":"v1","status":"starting"}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, domain.ErrInvalidResponse) {
					t.Errorf("expected ErrInvalidResponse, got %v", err)
				}
			},
		},
		{
			name:   "output shape mismatch",
			status: http.StatusOK,
			body:   `{"id":"p1","status":"succeeded","output":{"not":"a list"}}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, domain.ErrInvalidResponse) {
					t.Errorf("expected ErrInvalidResponse, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := GetPrediction[imageOutput](context.Background(), c, "p1")
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
		})
	}
}
