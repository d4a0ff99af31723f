// Package resources holds the per-resource configuration registry: endpoint
// paths, envelope hints, field-name variants, transition actions and the
// invalidation fan-out each mutation triggers.
package resources

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/record"
	pkgconfig "github.com/starford/raido/pkg/config"
)

// Transition actions a resource may expose as /{id}/<action> endpoints.
const (
	ActionStatus = "status"
	ActionVerify = "verify"
	ActionReject = "reject"
	ActionToggle = "toggle"
)

var nameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// Spec is one resource family's configuration.
type Spec struct {
	// Name is the resource family, e.g. "orders".
	Name string `yaml:"name"`
	// Path is the endpoint prefix; defaults to "/admin/<name>".
	Path string `yaml:"path"`
	// PluralKey is the named-array key the backend uses in envelope shape
	// (c); defaults to Name.
	PluralKey string `yaml:"plural_key"`
	// Fields declares per-resource field-name variants layered over the
	// defaults.
	Fields record.Variants `yaml:"fields"`
	// Invalidates maps a mutation action to the other resource families
	// whose listings it affects. The resource itself is always invalidated.
	Invalidates map[string][]string `yaml:"invalidates"`
	// Actions lists the transition endpoints the resource exposes.
	Actions []string `yaml:"actions"`
}

// Validate checks the spec.
func (s Spec) Validate() error {
	if err := validation.ValidateStruct(&s,
		validation.Field(&s.Name, validation.Required, validation.Match(nameRe)),
	); err != nil {
		return err
	}
	for _, a := range s.Actions {
		switch a {
		case ActionStatus, ActionVerify, ActionReject, ActionToggle:
		default:
			return fmt.Errorf("resource %s: unknown action %q", s.Name, a)
		}
	}
	return nil
}

// withDefaults fills derived fields.
func (s Spec) withDefaults() Spec {
	if s.Path == "" {
		s.Path = "/admin/" + s.Name
	}
	if s.PluralKey == "" {
		s.PluralKey = s.Name
	}
	return s
}

// HasAction reports whether the resource exposes the transition action.
func (s Spec) HasAction(action string) bool {
	for _, a := range s.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// registryFile is the on-disk registry shape.
type registryFile struct {
	Resources []Spec `yaml:"resources"`
}

// Validate implements pkgconfig.Validator.
func (f *registryFile) Validate() error {
	seen := map[string]struct{}{}
	for _, s := range f.Resources {
		if err := s.Validate(); err != nil {
			return err
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("resource %s declared twice", s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// DefaultSpecs returns the built-in registry for the known endpoint families.
// A registry file overrides entries by name and may add new ones.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: "products", Actions: []string{ActionToggle}, Invalidates: map[string][]string{"update": {"offers"}}},
		{Name: "orders", Actions: []string{ActionStatus}},
		{Name: "users", Actions: []string{ActionStatus, ActionToggle}},
		{Name: "kyc", PluralKey: "submissions", Actions: []string{ActionVerify, ActionReject},
			Invalidates: map[string][]string{"transition": {"users"}}},
		{Name: "companies", Invalidates: map[string][]string{"delete": {"brands"}, "update": {"brands"}}},
		{Name: "brands", Fields: record.Variants{"name": {"brandName"}}},
		{Name: "categories", Invalidates: map[string][]string{"delete": {"products"}}},
		{Name: "offers", Actions: []string{ActionToggle}},
		{Name: "sellers", Actions: []string{ActionStatus, ActionVerify}},
		{Name: "delivery-persons", PluralKey: "deliveryPersons", Actions: []string{ActionStatus, ActionVerify},
			Fields: record.Variants{"name": {"fullName", "driverName"}}},
	}
}

// Registry is the live resource configuration. It can be reloaded from its
// file while long-running consumers keep reading it.
type Registry struct {
	mu    sync.RWMutex
	path  string
	specs map[string]Spec
}

// Default builds a registry from the built-in specs only.
func Default() *Registry {
	r := &Registry{specs: map[string]Spec{}}
	r.install(nil)
	return r
}

// Load builds a registry from the built-in specs overlaid with the YAML file
// at path.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path, specs: map[string]Spec{}}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the registry file. On failure the previous specs stay in
// effect and the error is returned.
func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	var f registryFile
	if err := pkgconfig.Load(r.path, &f); err != nil {
		return fmt.Errorf("resources: load registry: %w", err)
	}
	r.install(f.Resources)
	return nil
}

func (r *Registry) install(overrides []Spec) {
	specs := map[string]Spec{}
	for _, s := range DefaultSpecs() {
		specs[s.Name] = s.withDefaults()
	}
	for _, s := range overrides {
		specs[s.Name] = s.withDefaults()
	}
	r.mu.Lock()
	r.specs = specs
	r.mu.Unlock()
}

// Get returns the spec for a resource family.
func (r *Registry) Get(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	return s, ok
}

// Names returns all known resource names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.specs))
	for n := range r.specs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolver builds the field resolver for a resource, layering its declared
// variants over the defaults. Unknown resources get the plain defaults.
func (r *Registry) Resolver(name string) *record.Resolver {
	s, _ := r.Get(name)
	return record.NewResolver(s.Fields)
}

// Invalidations returns the resource families whose cached listings a
// successful mutation affects. The mutated resource itself always leads the
// list.
func (r *Registry) Invalidations(entity, action string) []string {
	out := []string{entity}
	s, ok := r.Get(entity)
	if !ok {
		return out
	}
	for _, extra := range s.Invalidates[action] {
		if extra != entity {
			out = append(out, extra)
		}
	}
	return out
}
