// Package envelope normalizes the backend's list response shapes into one
// canonical page value.
//
// The backend returns paginated collections in several envelopes: the
// canonical {items, pagination} object, a bare array, or an object keyed by
// the resource's plural name with loose top-level pagination fields. The
// normalizer accepts all of them — and anything else degrades to an empty
// page rather than an error, so callers always have a renderable value.
package envelope

import (
	"encoding/json"

	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/record"
)

// Pagination is the canonical pagination block.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is the canonical fetch result. Never mutated after construction; a new
// fetch produces a new instance.
type Page struct {
	Items      []record.Record `json:"items"`
	Pagination Pagination      `json:"pagination"`
	// Degraded is set when the payload matched none of the known shapes and
	// the page was normalized to empty. Callers may surface it as a warning;
	// it is never a blocking error.
	Degraded bool `json:"-"`
}

// TotalPages computes ceil(total/limit), at least 1, and 1 when limit is not
// positive.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 1
	}
	tp := (total + limit - 1) / limit
	if tp < 1 {
		tp = 1
	}
	return tp
}

// Name variants for loose top-level pagination fields (shapes a and c).
var (
	pageNames  = []string{"page", "currentPage", "current_page"}
	limitNames = []string{"limit", "perPage", "per_page", "pageSize"}
	totalNames = []string{"total", "totalCount", "total_count", "count"}
)

// Normalize turns a raw list response into a canonical Page. pluralKey is the
// resource's named-array key for shape (c), e.g. "orders"; the generic
// "items" key is probed as a fallback. Normalize never fails: malformed input
// yields an empty degraded page.
//
// When the server returns more items than the requested limit (an
// un-paginated endpoint ignoring pagination parameters), items are truncated
// to the limit and total reflects the untruncated length.
func Normalize(raw []byte, q query.Query, pluralKey string) Page {
	var v any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &v); err != nil {
			v = nil
		}
	}

	switch t := v.(type) {
	case map[string]any:
		// Shape (a): canonical envelope.
		if items, ok := t["items"].([]any); ok {
			if pg, ok := t["pagination"].(map[string]any); ok {
				return build(items, q,
					intFrom(pg, q.Page(), pageNames...),
					intFrom(pg, q.Limit(), limitNames...),
					intFrom(pg, len(items), totalNames...))
			}
		}
		// Shape (c): named plural key, loose pagination fields.
		for _, key := range []string{pluralKey, "items", "data", "results"} {
			if key == "" {
				continue
			}
			if items, ok := t[key].([]any); ok {
				return build(items, q,
					intFrom(t, q.Page(), pageNames...),
					intFrom(t, q.Limit(), limitNames...),
					intFrom(t, len(items), totalNames...))
			}
		}
	case []any:
		// Shape (b): bare array.
		return build(t, q, q.Page(), q.Limit(), len(t))
	}

	// Shape (d): anything else.
	empty := build(nil, q, q.Page(), q.Limit(), 0)
	empty.Degraded = true
	return empty
}

// build assembles the canonical page, enforcing the pagination invariants and
// the truncation policy.
func build(rawItems []any, q query.Query, page, limit, total int) Page {
	items := make([]record.Record, 0, len(rawItems))
	for _, it := range rawItems {
		if m, ok := it.(map[string]any); ok {
			items = append(items, record.Record(m))
		}
	}

	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = q.Limit()
	}
	if total < 0 {
		total = 0
	}
	if total < len(items) {
		total = len(items)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	return Page{
		Items: items,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: TotalPages(total, limit),
		},
	}
}

// intFrom returns the first numeric value present under any of the names,
// falling back to def. JSON numbers arrive as float64.
func intFrom(m map[string]any, def int, names ...string) int {
	for _, name := range names {
		switch n := m[name].(type) {
		case float64:
			return int(n)
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i)
			}
		}
	}
	return def
}
