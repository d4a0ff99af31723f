package record

import (
	"testing"
	"time"
)

func TestResolve_VariantOrder(t *testing.T) {
	r := NewResolver(nil)

	rec := Record{"created_at": "2024-01-02T03:04:05Z"}
	v, ok := r.Resolve(rec, "createdAt")
	if !ok || v != "2024-01-02T03:04:05Z" {
		t.Errorf("Resolve(createdAt) = %v, %v", v, ok)
	}

	// When both variants are present the first declared one wins.
	rec = Record{"createdAt": "a", "created_at": "b"}
	v, _ = r.Resolve(rec, "createdAt")
	if v != "a" {
		t.Errorf("expected camelCase variant to win, got %v", v)
	}
}

func TestResolve_SkipsNil(t *testing.T) {
	r := NewResolver(nil)
	rec := Record{"status": nil, "state": "active"}
	v, ok := r.Resolve(rec, "status")
	if !ok || v != "active" {
		t.Errorf("Resolve(status) = %v, %v; nil variant should be skipped", v, ok)
	}
}

func TestResolve_ExtrasTakePriority(t *testing.T) {
	r := NewResolver(Variants{"name": {"companyName"}})
	rec := Record{"companyName": "Acme", "name": "fallback"}
	v, _ := r.Resolve(rec, "name")
	if v != "Acme" {
		t.Errorf("extras should probe first, got %v", v)
	}

	// Defaults still apply when the extra name is absent.
	rec = Record{"name": "fallback"}
	v, _ = r.Resolve(rec, "name")
	if v != "fallback" {
		t.Errorf("default fallback broken, got %v", v)
	}
}

func TestResolve_UnknownFieldDirectLookup(t *testing.T) {
	r := NewResolver(nil)
	rec := Record{"vehicleType": "bike"}
	v, ok := r.Resolve(rec, "vehicleType")
	if !ok || v != "bike" {
		t.Errorf("direct lookup = %v, %v", v, ok)
	}
	if _, ok := r.Resolve(rec, "missing"); ok {
		t.Error("missing field should not resolve")
	}
}

func TestString_Rendering(t *testing.T) {
	r := NewResolver(nil)
	rec := Record{"amount": float64(42), "active": true, "name": "Bob"}
	if got := r.String(rec, "amount"); got != "42" {
		t.Errorf("amount = %q", got)
	}
	if got := r.String(rec, "active"); got != "true" {
		t.Errorf("active = %q", got)
	}
	if got := r.String(rec, "name"); got != "Bob" {
		t.Errorf("name = %q", got)
	}
	if got := r.String(rec, "missing"); got != "" {
		t.Errorf("missing = %q", got)
	}
}

func TestTime_Layouts(t *testing.T) {
	r := NewResolver(nil)
	cases := []Record{
		{"createdAt": "2024-03-10T12:30:00Z"},
		{"created_at": "2024-03-10 12:30:00"},
		{"createdDate": "2024-03-10"},
	}
	for _, rec := range cases {
		ts, ok := r.Time(rec, "createdAt")
		if !ok {
			t.Errorf("Time failed for %v", rec)
			continue
		}
		if ts.Year() != 2024 || ts.Month() != time.March {
			t.Errorf("parsed %v from %v", ts, rec)
		}
	}
	if _, ok := r.Time(Record{"createdAt": "not a date"}, "createdAt"); ok {
		t.Error("garbage timestamp should not parse")
	}
}
