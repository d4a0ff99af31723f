// Package session holds the process-wide bearer credentials the transport
// layer reads before every request.
//
// Lifecycle: set on login, cleared on logout or on the first authorization
// failure. Clearing on a 401 fires the registered hook exactly once per
// credential generation, even when several in-flight requests fail with 401
// concurrently.
package session

import (
	"sync"
	"time"
)

// Store is the process-wide session state. The zero value is unusable;
// construct with New.
type Store struct {
	mu             sync.Mutex
	token          string
	expiry         time.Time
	gen            uint64
	onUnauthorized func()
	now            func() time.Time
}

// New creates an empty session store.
func New() *Store {
	return &Store{now: time.Now}
}

// OnUnauthorized registers the hook fired when the backend rejects the
// current credentials (the redirect-to-login side effect). Only one hook is
// held; later registrations replace earlier ones.
func (s *Store) OnUnauthorized(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUnauthorized = fn
}

// Set installs new credentials. expiry may be zero for tokens without a known
// expiry.
func (s *Store) Set(token string, expiry time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiry = expiry
	s.gen++
}

// Token returns the current bearer token (empty when logged out or expired)
// and the generation it belongs to. The generation is handed back to Expire
// so that a stale 401 cannot clear credentials issued after its request went
// out.
func (s *Store) Token() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" {
		return "", s.gen
	}
	if !s.expiry.IsZero() && s.now().After(s.expiry) {
		return "", s.gen
	}
	return s.token, s.gen
}

// Clear removes the credentials without firing the unauthorized hook
// (logout).
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// Expire is called by the transport on a 401 carrying the generation read at
// request time. The credentials are cleared and the hook fired only if that
// generation is still current, so concurrent 401s collapse to one clear and
// one hook invocation.
func (s *Store) Expire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.token == "" {
		s.mu.Unlock()
		return
	}
	s.clearLocked()
	hook := s.onUnauthorized
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}

func (s *Store) clearLocked() {
	s.token = ""
	s.expiry = time.Time{}
	s.gen++
}
