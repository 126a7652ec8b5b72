package api

import (
	"encoding/json"

	"github.com/vietddude/replikit/internal/core/domain"
)

// OutcomeKind is the classification of a finished API call.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeDomainError
	OutcomeTransportError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeDomainError:
		return "domain"
	default:
		return "transport"
	}
}

// Outcome describes how a response should be treated.
type Outcome struct {
	Kind       OutcomeKind
	StatusCode int
	// Detail is the server explanation of a domain error.
	Detail string
	// Body is kept for transport errors.
	Body []byte
}

// Classify maps a status code and raw body to an Outcome.
//
// 2xx is a success whatever the body. 4xx is a domain error when the body is
// an object with a string "detail", otherwise a transport error. Every other
// code is a transport error and the body is not inspected: only 4xx
// responses are documented to carry a detail.
func Classify(statusCode int, body []byte) Outcome {
	switch {
	case statusCode >= 200 && statusCode <= 299:
		return Outcome{Kind: OutcomeSuccess, StatusCode: statusCode}
	case statusCode >= 400 && statusCode <= 499:
		if detail, ok := parseDetail(body); ok {
			return Outcome{Kind: OutcomeDomainError, StatusCode: statusCode, Detail: detail}
		}
	}
	return Outcome{Kind: OutcomeTransportError, StatusCode: statusCode, Body: body}
}

// Err converts the outcome into the error taxonomy; nil on success.
func (o Outcome) Err() error {
	switch o.Kind {
	case OutcomeSuccess:
		return nil
	case OutcomeDomainError:
		return &domain.ResponseError{StatusCode: o.StatusCode, Detail: o.Detail}
	default:
		return &domain.TransportError{StatusCode: o.StatusCode, Body: o.Body}
	}
}

// parseDetail decodes {"detail": "..."}.
func parseDetail(body []byte) (string, bool) {
	var container struct {
		Detail *string `json:"detail"`
	}
	if err := json.Unmarshal(body, &container); err != nil {
		return "", false
	}
	if container.Detail == nil {
		return "", false
	}
	return *container.Detail, true
}
