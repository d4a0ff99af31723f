// Package query defines the canonical list query and its cache-key
// derivation.
package query

import (
	"strconv"

	"github.com/starford/raido/internal/filters"
)

// Query identifies one list fetch: a resource family plus its canonical
// filter mapping (pagination included). Queries are immutable once built; a
// UI state change constructs a fresh one.
type Query struct {
	Resource string
	Params   filters.Params
}

// New builds a Query. The params are expected to come from a
// filters.Builder, which guarantees page and limit are present.
func New(resource string, params filters.Params) Query {
	return Query{Resource: resource, Params: params}
}

// Key derives the cache key. Two queries are identical iff resource and the
// canonical (sorted) parameter mapping are equal, so the key is the resource
// joined with the stable encoding.
func (q Query) Key() string {
	return q.Resource + "?" + q.Params.Encode()
}

// Page returns the requested page number, defaulting to 1.
func (q Query) Page() int {
	if n, err := strconv.Atoi(q.Params["page"]); err == nil && n >= 1 {
		return n
	}
	return 1
}

// Limit returns the requested page size, defaulting to filters.DefaultLimit.
func (q Query) Limit() int {
	if n, err := strconv.Atoi(q.Params["limit"]); err == nil && n > 0 {
		return n
	}
	return filters.DefaultLimit
}
