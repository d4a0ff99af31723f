// Package record provides the dynamic entity record type and logical-field
// resolution across the backend's inconsistent naming conventions.
package record

import (
	"fmt"
	"time"
)

// Record is a server-defined entity payload. No assumption is made about its
// field naming; lookups go through a Resolver.
type Record map[string]any

// Variants maps a logical field name to the server field names that may carry
// it, in priority order.
type Variants map[string][]string

// DefaultVariants covers the names the backend is known to emit for the
// logical fields every screen projects.
var DefaultVariants = Variants{
	"id":        {"id", "_id", "uuid"},
	"name":      {"name", "fullName", "full_name", "title", "label"},
	"status":    {"status", "state"},
	"createdAt": {"createdAt", "created_at", "createdDate"},
	"updatedAt": {"updatedAt", "updated_at", "modifiedDate"},
	"email":     {"email", "emailAddress", "email_address"},
	"phone":     {"phone", "phoneNumber", "phone_number", "mobile"},
	"amount":    {"amount", "total", "totalAmount", "total_amount"},
}

// Resolver answers logical-field lookups against raw records. Per-resource
// variant lists are layered over the defaults, taking priority.
type Resolver struct {
	variants Variants
}

// NewResolver builds a Resolver from the default variants overlaid with the
// given per-resource extras. extras may be nil.
func NewResolver(extras Variants) *Resolver {
	merged := make(Variants, len(DefaultVariants)+len(extras))
	for field, names := range DefaultVariants {
		merged[field] = names
	}
	for field, names := range extras {
		// Resource-declared names probe first, then the defaults.
		merged[field] = append(append([]string{}, names...), merged[field]...)
	}
	return &Resolver{variants: merged}
}

// Resolve returns the first present value for the logical field, probing each
// declared variant in order. Unknown logical fields fall back to a direct
// key lookup.
func (r *Resolver) Resolve(rec Record, field string) (any, bool) {
	if rec == nil {
		return nil, false
	}
	names, ok := r.variants[field]
	if !ok {
		v, present := rec[field]
		return v, present
	}
	for _, name := range names {
		if v, present := rec[name]; present && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String resolves the field and renders it as a string. Numbers are printed
// without a float suffix when integral. Absent fields yield "".
func (r *Resolver) String(rec Record, field string) string {
	v, ok := r.Resolve(rec, field)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		return fmt.Sprintf("%t", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Time resolves the field as a timestamp, accepting RFC 3339 and the plain
// date form the backend sometimes uses.
func (r *Resolver) Time(rec Record, field string) (time.Time, bool) {
	s := r.String(rec, field)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
