package resources

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults_KnownFamilies(t *testing.T) {
	r := Default()

	for _, name := range []string{"products", "orders", "users", "kyc", "companies", "brands", "categories", "offers", "sellers", "delivery-persons"} {
		s, ok := r.Get(name)
		if !ok {
			t.Errorf("missing default resource %s", name)
			continue
		}
		if s.Path == "" || s.PluralKey == "" {
			t.Errorf("%s: defaults not applied: %+v", name, s)
		}
	}

	s, _ := r.Get("orders")
	if s.Path != "/admin/orders" || s.PluralKey != "orders" {
		t.Errorf("orders spec = %+v", s)
	}

	s, _ = r.Get("kyc")
	if s.PluralKey != "submissions" {
		t.Errorf("kyc plural key = %q", s.PluralKey)
	}
	if !s.HasAction(ActionVerify) || !s.HasAction(ActionReject) {
		t.Errorf("kyc actions = %v", s.Actions)
	}
}

func TestInvalidations_FanOut(t *testing.T) {
	r := Default()

	got := r.Invalidations("companies", "delete")
	if len(got) != 2 || got[0] != "companies" || got[1] != "brands" {
		t.Errorf("companies/delete invalidates %v, want [companies brands]", got)
	}

	got = r.Invalidations("orders", "delete")
	if len(got) != 1 || got[0] != "orders" {
		t.Errorf("orders/delete invalidates %v", got)
	}

	got = r.Invalidations("unknown", "delete")
	if len(got) != 1 || got[0] != "unknown" {
		t.Errorf("unknown resource invalidates %v", got)
	}
}

func TestSpec_Validate(t *testing.T) {
	if err := (Spec{Name: "orders"}).Validate(); err != nil {
		t.Errorf("valid spec rejected: %v", err)
	}
	if err := (Spec{}).Validate(); err == nil {
		t.Error("empty name accepted")
	}
	if err := (Spec{Name: "Bad Name"}).Validate(); err == nil {
		t.Error("bad name accepted")
	}
	if err := (Spec{Name: "orders", Actions: []string{"explode"}}).Validate(); err == nil {
		t.Error("unknown action accepted")
	}
}

func writeRegistry(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "resources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeRegistry(t, t.TempDir(), `
resources:
  - name: orders
    plural_key: orderList
  - name: warehouses
    actions: [toggle]
`)
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	s, _ := r.Get("orders")
	if s.PluralKey != "orderList" {
		t.Errorf("override not applied: %+v", s)
	}

	s, ok := r.Get("warehouses")
	if !ok || s.Path != "/admin/warehouses" {
		t.Errorf("new resource = %+v, ok=%v", s, ok)
	}

	// Untouched defaults survive.
	if _, ok := r.Get("companies"); !ok {
		t.Error("default resource lost after overlay")
	}
}

func TestLoad_RejectsInvalidFile(t *testing.T) {
	path := writeRegistry(t, t.TempDir(), `
resources:
  - name: orders
  - name: orders
`)
	if _, err := Load(path); err == nil {
		t.Error("duplicate resource accepted")
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeRegistry(t, dir, "resources:\n  - name: orders\n")
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Watch(ctx, slog.Default())
	}()

	// Give the watcher a moment to install.
	time.Sleep(100 * time.Millisecond)

	writeRegistry(t, dir, `
resources:
  - name: orders
    plural_key: reloadedKey
`)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if s, _ := r.Get("orders"); s.PluralKey == "reloadedKey" {
			cancel()
			<-done
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("registry was not reloaded after file change")
}
