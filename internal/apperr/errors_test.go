package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify_StatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{400, KindValidation},
		{401, KindUnauthorized},
		{403, KindForbidden},
		{404, KindNotFound},
		{409, KindValidation},
		{422, KindValidation},
		{500, KindServerError},
		{502, KindServerError},
		{503, KindServerError},
	}
	for _, c := range cases {
		got := Classify(c.status, nil)
		if got.Kind != c.want {
			t.Errorf("Classify(%d).Kind = %s, want %s", c.status, got.Kind, c.want)
		}
		if got.Status != c.status {
			t.Errorf("Classify(%d).Status = %d", c.status, got.Status)
		}
	}
}

func TestClassify_ValidationFields_MapShape(t *testing.T) {
	body := []byte(`{"error":"invalid input","errors":{"email":"must be valid","name":"required"}}`)
	e := Classify(422, body)
	if e.Kind != KindValidation {
		t.Fatalf("kind = %s", e.Kind)
	}
	if e.Message != "invalid input" {
		t.Errorf("message = %q", e.Message)
	}
	if e.Fields["email"] != "must be valid" || e.Fields["name"] != "required" {
		t.Errorf("fields = %v", e.Fields)
	}
}

func TestClassify_ValidationFields_ListShape(t *testing.T) {
	body := []byte(`{"message":"bad request","errors":[{"field":"phone","message":"too short"}]}`)
	e := Classify(400, body)
	if e.Fields["phone"] != "too short" {
		t.Errorf("fields = %v", e.Fields)
	}
	if e.Message != "bad request" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestClassify_NonJSONBody(t *testing.T) {
	e := Classify(500, []byte("upstream exploded"))
	if e.Kind != KindServerError {
		t.Fatalf("kind = %s", e.Kind)
	}
	if e.Message != "upstream exploded" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestNetwork_WrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	e := Network(cause)
	if e.Kind != KindNetworkError {
		t.Fatalf("kind = %s", e.Kind)
	}
	if !errors.Is(e, cause) {
		t.Error("expected errors.Is to find the transport cause")
	}
}

func TestKindOf_WrappedError(t *testing.T) {
	err := fmt.Errorf("list orders: %w", Classify(404, nil))
	if KindOf(err) != KindNotFound {
		t.Errorf("KindOf = %s, want %s", KindOf(err), KindNotFound)
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain error should have empty kind")
	}
	if !IsKind(err, KindNotFound) {
		t.Error("IsKind should match through wrapping")
	}
}

func TestRetryable(t *testing.T) {
	if !Classify(500, nil).Retryable() {
		t.Error("server error should be retryable")
	}
	if !Network(errors.New("timeout")).Retryable() {
		t.Error("network error should be retryable")
	}
	if Classify(403, nil).Retryable() {
		t.Error("forbidden should not be retryable")
	}
	if Busy("company/C1/delete").Retryable() {
		t.Error("busy should not be retryable")
	}
}
