// Package testutil provides shared test helpers for running a seeded stub
// backend inside tests.
package testutil

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/starford/raido/internal/resources"
	"github.com/starford/raido/internal/stub"
)

// Token is the bearer token every test stub accepts.
const Token = "test-token"

// TestStore creates a temporary seeded fixture store that is cleaned up with
// the test.
func TestStore(t *testing.T) *stub.Store {
	t.Helper()
	store, err := stub.Open(filepath.Join(t.TempDir(), "raido-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	if err := stub.Seed(store); err != nil {
		t.Fatal(err)
	}
	return store
}

// TestServer starts a seeded stub backend over the default registry and
// returns it together with the registry it serves.
func TestServer(t *testing.T) (*httptest.Server, *resources.Registry) {
	t.Helper()
	reg := resources.Default()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(stub.NewRouter(TestStore(t), reg, Token, logger, nil))
	t.Cleanup(srv.Close)
	return srv, reg
}
