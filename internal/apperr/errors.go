// Package apperr defines the closed error taxonomy for admin API interactions
// and the classifier that maps transport outcomes onto it.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind is the category of a classified failure.
type Kind string

// The taxonomy is closed: every failure the transport or the coordinators can
// produce maps to exactly one of these kinds.
const (
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindServerError  Kind = "server_error"
	KindNetworkError Kind = "network_error"
	KindBusy         Kind = "busy"
)

// Error is a classified failure. Fields carries per-field validation detail
// when the backend supplied it; Status is the HTTP status code when a
// response was received, 0 otherwise.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Status  int
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

// Unwrap exposes the underlying transport error, if any.
func (e *Error) Unwrap() error { return e.cause }

// KindOf returns the kind of a classified error, or an empty Kind for nil or
// unclassified errors.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// IsKind reports whether err is a classified error of the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}

// Retryable reports whether the user should be offered an explicit retry.
// Nothing in this taxonomy is retried automatically.
func (e *Error) Retryable() bool {
	return e.Kind == KindServerError || e.Kind == KindNetworkError
}

// Busy constructs the local-rejection error returned when a mutation scope is
// already occupied. It never corresponds to a request that reached the server.
func Busy(scope string) *Error {
	return &Error{Kind: KindBusy, Message: fmt.Sprintf("operation already in flight for %s", scope)}
}

// Network wraps a transport failure where no HTTP response was received
// (connection refused, timeout, context cancellation).
func Network(err error) *Error {
	return &Error{Kind: KindNetworkError, Message: err.Error(), cause: err}
}

// Classify maps a received HTTP response onto the taxonomy. body may be nil;
// when present it is probed for the backend's error message and field-level
// validation detail.
func Classify(status int, body []byte) *Error {
	e := &Error{Status: status, Message: extractMessage(body)}

	switch {
	case status == http.StatusUnauthorized:
		e.Kind = KindUnauthorized
	case status == http.StatusForbidden:
		e.Kind = KindForbidden
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status >= 500:
		e.Kind = KindServerError
	case status >= 400:
		// Remaining 4xx are treated as validation failures; field detail is
		// attached when the backend supplied any.
		e.Kind = KindValidation
		e.Fields = extractFields(body)
	default:
		e.Kind = KindServerError
	}
	return e
}

// errBody covers the error payload shapes the backend is known to emit:
// {"error": "..."}, {"message": "..."} and {"errors": {"field": "..."}} or
// {"errors": [{"field": "...", "message": "..."}]}.
type errBody struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

func extractMessage(body []byte) string {
	var eb errBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return strings.TrimSpace(truncate(string(body), 200))
	}
	if eb.Error != "" {
		return eb.Error
	}
	return eb.Message
}

func extractFields(body []byte) map[string]string {
	var eb errBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Errors) == 0 {
		return nil
	}

	asMap := map[string]string{}
	if err := json.Unmarshal(eb.Errors, &asMap); err == nil && len(asMap) > 0 {
		return asMap
	}

	var asList []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(eb.Errors, &asList); err == nil && len(asList) > 0 {
		out := make(map[string]string, len(asList))
		for _, fe := range asList {
			if fe.Field != "" {
				out[fe.Field] = fe.Message
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
