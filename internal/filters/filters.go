// Package filters converts declarative UI filter state into the canonical
// server-parameter mapping consumed by query construction.
package filters

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Unset is the sentinel a UI control reports when a filter is not applied.
// Unset (and empty) values are omitted from the canonical mapping.
const Unset = "all"

// DefaultLimit is the page size used when the UI state does not set one.
const DefaultLimit = 20

// Date-range presets. "all" omits the bounds entirely rather than emitting an
// unbounded range.
const (
	RangeToday   = "today"
	RangeWeek    = "week"
	RangeMonth   = "month"
	RangeQuarter = "quarter"
	RangeYear    = "year"
	RangeAll     = "all"
)

// State is the declarative filter state a list screen holds.
type State struct {
	Search    string
	Status    string
	Payment   string
	Category  string
	DateRange string
	// Extra carries resource-specific filters (e.g. seller, vehicleType).
	Extra map[string]string
	Page  int
	Limit int
}

// Params is the canonical filter mapping: sentinel-stripped, server-named,
// pagination always present.
type Params map[string]string

// Keys returns the parameter names in sorted order; the canonical form of a
// Params value is order-independent of how it was built.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Encode renders the mapping as a stable query string.
func (p Params) Encode() string {
	var b strings.Builder
	for i, k := range p.Keys() {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p[k]))
	}
	return b.String()
}

// Values converts the mapping to url.Values for the transport layer.
func (p Params) Values() url.Values {
	v := make(url.Values, len(p))
	for k, val := range p {
		v.Set(k, val)
	}
	return v
}

// Param is a server parameter assignment produced by an exclusive-filter rule.
type Param struct {
	Name  string
	Value string
}

// Builder turns filter state into canonical params. The zero value is not
// usable; construct with New.
type Builder struct {
	now       func() time.Time
	exclusive map[string]map[string]Param
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock overrides the clock used to resolve date-range presets.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithExclusive declares that the logical filter resolves to a different
// server parameter for the listed values. A single logical filter always
// yields exactly one server parameter: the mapped one when the value matches,
// the logical name otherwise.
func WithExclusive(logical string, rules map[string]Param) Option {
	return func(b *Builder) {
		if b.exclusive == nil {
			b.exclusive = map[string]map[string]Param{}
		}
		b.exclusive[logical] = rules
	}
}

// New creates a Builder.
func New(opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build produces the canonical mapping. Deterministic, no I/O; the only
// environmental input is the clock, for date presets.
func (b *Builder) Build(st State) Params {
	p := Params{}

	b.put(p, "search", st.Search)
	b.put(p, "status", st.Status)
	b.put(p, "paymentMethod", st.Payment)
	b.put(p, "category", st.Category)

	if from, to, ok := rangeFor(st.DateRange, b.now()); ok {
		p["dateFrom"] = from.Format(time.RFC3339)
		p["dateTo"] = to.Format(time.RFC3339)
	}

	for name, val := range st.Extra {
		b.put(p, name, val)
	}

	page := st.Page
	if page < 1 {
		page = 1
	}
	limit := st.Limit
	if limit < 1 {
		limit = DefaultLimit
	}
	p["page"] = strconv.Itoa(page)
	p["limit"] = strconv.Itoa(limit)

	return p
}

// put applies sentinel stripping and exclusive-filter resolution for one
// logical filter.
func (b *Builder) put(p Params, logical, value string) {
	if value == "" || value == Unset {
		return
	}
	if rules, ok := b.exclusive[logical]; ok {
		if mapped, ok := rules[value]; ok {
			p[mapped.Name] = mapped.Value
			return
		}
	}
	p[logical] = value
}

// rangeFor resolves a date-range preset to concrete bounds relative to now.
// The lower bound is calendar-anchored (start of day, ISO week, month,
// quarter, year); the upper bound is now. ok is false for RangeAll, empty and
// unknown presets.
func rangeFor(preset string, now time.Time) (from, to time.Time, ok bool) {
	loc := now.Location()
	y, m, d := now.Date()

	switch preset {
	case RangeToday:
		from = time.Date(y, m, d, 0, 0, 0, 0, loc)
	case RangeWeek:
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday belongs to the week that started last Monday
		}
		from = time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, -(weekday - 1))
	case RangeMonth:
		from = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case RangeQuarter:
		qm := time.Month((int(m)-1)/3*3 + 1)
		from = time.Date(y, qm, 1, 0, 0, 0, 0, loc)
	case RangeYear:
		from = time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Time{}, time.Time{}, false
	}
	return from, now, true
}
