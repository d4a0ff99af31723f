// Package querystore caches list-query results and coordinates refetches.
//
// Each cache key runs the state machine idle → loading → success|error;
// later requests for the same key pass through fetching, during which the
// previous page stays visible so consumers can render the last-known list
// without a flash-to-empty. Concurrent identical requests collapse onto one
// upstream call, and a response whose key generation has been superseded by
// an invalidation is discarded rather than applied: last request wins, not
// last response.
package querystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/envelope"
	"github.com/starford/raido/internal/query"
)

// Status is the lifecycle state of one cache entry.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusLoading  Status = "loading"
	StatusFetching Status = "fetching"
	StatusSuccess  Status = "success"
	StatusError    Status = "error"
)

// DefaultCapacity bounds the cache size; a tuning parameter, not a
// correctness requirement.
const DefaultCapacity = 128

// Fetcher performs the actual list fetch for a query.
type Fetcher func(ctx context.Context, q query.Query) (*envelope.Page, error)

// Snapshot is a read-only view of one entry. Data carries the last-known-good
// page during both fetching and error states.
type Snapshot struct {
	Status Status
	Data   *envelope.Page
	Err    *apperr.Error
}

type entry struct {
	q         query.Query
	status    Status
	data      *envelope.Page
	err       *apperr.Error
	gen       uint64 // desired generation; bumped by Invalidate
	flightGen uint64 // generation of the most recently issued fetch
	stale     bool
	lastUsed  uint64
}

// Store is the fetch/cache orchestrator.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*entry
	clock    uint64
	group    singleflight.Group
	fetch    Fetcher
	capacity int
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity sets the LRU size bound.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithLogger sets the logger for cache debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New creates a Store around a Fetcher.
func New(fetch Fetcher, opts ...Option) *Store {
	s := &Store{
		entries:  map[string]*entry{},
		fetch:    fetch,
		capacity: DefaultCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type fetchResult struct {
	page *envelope.Page
	err  error
}

// Fetch returns the page for q, serving the cache when the entry is fresh and
// fetching otherwise. Concurrent calls for the same key share one upstream
// request. On error the classified failure is returned together with the
// last-known-good page, if any, so callers can keep rendering it.
func (s *Store) Fetch(ctx context.Context, q query.Query) (*envelope.Page, error) {
	key := q.Key()

	s.mu.Lock()
	e := s.ensureLocked(q, key)
	e.lastUsed = s.tick()

	if e.status == StatusSuccess && !e.stale {
		data := e.data
		s.mu.Unlock()
		s.logger.Debug("querystore: hit", slog.String("key", key))
		return data, nil
	}

	if e.data != nil {
		e.status = StatusFetching
	} else {
		e.status = StatusLoading
	}
	gen := e.gen
	e.flightGen = gen
	s.mu.Unlock()

	// The generation is part of the flight key so a request issued before an
	// invalidation never absorbs callers that arrived after it.
	flightKey := fmt.Sprintf("%s#%d", key, gen)
	v, _, shared := s.group.Do(flightKey, func() (any, error) {
		page, err := s.fetch(ctx, q)
		s.apply(key, gen, page, err)
		return fetchResult{page: page, err: err}, nil
	})
	if shared {
		s.logger.Debug("querystore: deduplicated", slog.String("key", key))
	}

	res := v.(fetchResult)
	if res.err != nil {
		s.mu.Lock()
		var last *envelope.Page
		if cur, ok := s.entries[key]; ok {
			last = cur.data
		}
		s.mu.Unlock()
		return last, res.err
	}
	return res.page, nil
}

// apply commits a completed fetch, unless the entry's generation moved on
// while the request was in flight — then the response is discarded.
func (s *Store) apply(key string, gen uint64, page *envelope.Page, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[key]
	if !ok || cur.gen != gen {
		s.logger.Debug("querystore: stale response discarded", slog.String("key", key))
		if ok && cur.flightGen == gen {
			// No newer fetch was issued; roll the status back so the entry
			// does not stay in a transfer state forever.
			if cur.data != nil {
				cur.status = StatusSuccess
			} else {
				cur.status = StatusIdle
			}
		}
		return
	}

	if err != nil {
		cur.status = StatusError
		cur.err = classify(err)
		// Stale data is kept alongside the error.
		return
	}
	cur.status = StatusSuccess
	cur.data = page
	cur.err = nil
	cur.stale = false
}

// Peek returns the entry's current snapshot without triggering a fetch.
func (s *Store) Peek(q query.Query) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[q.Key()]
	if !ok {
		return Snapshot{Status: StatusIdle}
	}
	return Snapshot{Status: e.status, Data: e.data, Err: e.err}
}

// Invalidate marks every entry whose query matches the predicate as stale.
// The next Fetch for those keys goes upstream instead of serving the cache,
// and any response already in flight for them is discarded on arrival.
// Returns the number of entries affected.
func (s *Store) Invalidate(pred func(query.Query) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if pred(e.q) {
			e.stale = true
			e.gen++
			n++
		}
	}
	return n
}

// InvalidateResource invalidates every cached listing of one resource family.
func (s *Store) InvalidateResource(name string) int {
	n := s.Invalidate(func(q query.Query) bool { return q.Resource == name })
	s.logger.Debug("querystore: invalidated", slog.String("resource", name), slog.Int("entries", n))
	return n
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) ensureLocked(q query.Query, key string) *entry {
	if e, ok := s.entries[key]; ok {
		return e
	}
	e := &entry{q: q, status: StatusIdle, gen: 1}
	s.entries[key] = e
	s.evictLocked(key)
	return e
}

// evictLocked drops least-recently-used entries past capacity. keep is never
// evicted.
func (s *Store) evictLocked(keep string) {
	for len(s.entries) > s.capacity {
		var victim string
		var oldest uint64
		first := true
		for k, e := range s.entries {
			if k == keep {
				continue
			}
			if first || e.lastUsed < oldest {
				victim, oldest, first = k, e.lastUsed, false
			}
		}
		if victim == "" {
			return
		}
		delete(s.entries, victim)
		s.logger.Debug("querystore: evicted", slog.String("key", victim))
	}
}

func (s *Store) tick() uint64 {
	s.clock++
	return s.clock
}

func classify(err error) *apperr.Error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae
	}
	return apperr.Network(err)
}
