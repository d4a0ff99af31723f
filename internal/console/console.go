// Package console is the high-level facade the CLI (and the MCP server)
// consume: per-resource listing through the query store, detail reads,
// mutations through the coordinator, and binary exports.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/starford/raido/internal/envelope"
	"github.com/starford/raido/internal/filters"
	"github.com/starford/raido/internal/identity"
	"github.com/starford/raido/internal/mutation"
	"github.com/starford/raido/internal/query"
	"github.com/starford/raido/internal/querystore"
	"github.com/starford/raido/internal/record"
	"github.com/starford/raido/internal/resources"
	"github.com/starford/raido/internal/session"
	"github.com/starford/raido/internal/transport"
)

// Console wires the synchronization layer together for consumers. Every list
// screen equivalent goes through the same store; the per-resource differences
// live entirely in the registry.
type Console struct {
	reg      *resources.Registry
	client   *transport.Client
	store    *querystore.Store
	mut      *mutation.Coordinator
	fb       *filters.Builder
	sess     *session.Store
	logger   *slog.Logger
	capacity int
}

// Option configures a Console.
type Option func(*Console)

// WithFilterBuilder replaces the default filter builder (tests pin the
// clock through this).
func WithFilterBuilder(fb *filters.Builder) Option {
	return func(c *Console) { c.fb = fb }
}

// WithCacheCapacity bounds the query store.
func WithCacheCapacity(n int) Option {
	return func(c *Console) { c.capacity = n }
}

// New creates a Console over a transport client and resource registry.
func New(client *transport.Client, reg *resources.Registry, sess *session.Store, logger *slog.Logger, opts ...Option) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Console{
		reg:    reg,
		client: client,
		fb:     filters.New(),
		sess:   sess,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}

	storeOpts := []querystore.Option{querystore.WithLogger(logger)}
	if c.capacity > 0 {
		storeOpts = append(storeOpts, querystore.WithCapacity(c.capacity))
	}
	c.store = querystore.New(c.fetchPage, storeOpts...)
	c.mut = mutation.New(client, reg, c.store, logger)
	return c
}

// fetchPage is the store's Fetcher: transport call plus envelope
// normalization, with the plural key taken from the registry.
func (c *Console) fetchPage(ctx context.Context, q query.Query) (*envelope.Page, error) {
	spec, ok := c.reg.Get(q.Resource)
	if !ok {
		return nil, fmt.Errorf("console: unknown resource %q", q.Resource)
	}
	raw, err := c.client.GetList(ctx, spec.Path, q.Params)
	if err != nil {
		return nil, err
	}
	page := envelope.Normalize(raw, q, spec.PluralKey)
	if page.Degraded {
		c.logger.Warn("console: unrecognized list envelope",
			slog.String("resource", q.Resource))
	}
	return &page, nil
}

// List fetches one page of a resource listing through the cache.
func (c *Console) List(ctx context.Context, resource string, st filters.State) (*envelope.Page, error) {
	q := query.New(resource, c.fb.Build(st))
	return c.store.Fetch(ctx, q)
}

// Peek returns the cached view for a listing without fetching; watch mode
// renders from this between refreshes.
func (c *Console) Peek(resource string, st filters.State) querystore.Snapshot {
	return c.store.Peek(query.New(resource, c.fb.Build(st)))
}

// Get fetches a single record by id. Detail reads bypass the list cache.
func (c *Console) Get(ctx context.Context, resource, id string) (record.Record, error) {
	spec, ok := c.reg.Get(resource)
	if !ok {
		return nil, fmt.Errorf("console: unknown resource %q", resource)
	}
	raw, err := c.client.Get(ctx, spec.Path+"/"+identity.Normalize(id))
	if err != nil {
		return nil, err
	}
	var rec record.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("console: decode %s record: %w", resource, err)
	}
	return rec, nil
}

// Create posts a new record.
func (c *Console) Create(ctx context.Context, resource string, payload any) (record.Record, error) {
	return c.mut.Execute(ctx, mutation.Intent{Entity: resource, Action: mutation.ActionCreate, Payload: payload})
}

// Update replaces a record.
func (c *Console) Update(ctx context.Context, resource, id string, payload any) (record.Record, error) {
	return c.mut.Execute(ctx, mutation.Intent{Entity: resource, Action: mutation.ActionUpdate, ID: id, Payload: payload})
}

// Delete removes (or deactivates, backend's choice) a record.
func (c *Console) Delete(ctx context.Context, resource, id string) error {
	_, err := c.mut.Execute(ctx, mutation.Intent{Entity: resource, Action: mutation.ActionDelete, ID: id})
	return err
}

// Transition invokes a resource action endpoint (status, verify, reject,
// toggle).
func (c *Console) Transition(ctx context.Context, resource, id, action string, payload any) (record.Record, error) {
	return c.mut.Execute(ctx, mutation.Intent{
		Entity: resource, Action: mutation.ActionTransition, ID: id,
		Transition: action, Payload: payload,
	})
}

// Export streams a binary export of a filtered listing. format is passed as
// a server parameter; the blob bypasses the cache layer.
func (c *Console) Export(ctx context.Context, resource, format string, st filters.State) (io.ReadCloser, string, error) {
	spec, ok := c.reg.Get(resource)
	if !ok {
		return nil, "", fmt.Errorf("console: unknown resource %q", resource)
	}
	params := c.fb.Build(st)
	params["format"] = format
	return c.client.Export(ctx, spec.Path+"/export", params)
}

// Login authenticates against the backend and installs the session
// credentials.
func (c *Console) Login(ctx context.Context, email, password string) error {
	raw, err := c.client.Post(ctx, "/admin/auth/login", map[string]string{
		"email": email, "password": password,
	})
	if err != nil {
		return err
	}
	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return fmt.Errorf("console: decode login response: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("console: login response carried no token")
	}
	c.sess.Set(resp.Token, resp.ExpiresAt)
	return nil
}

// Resolver returns the field resolver for a resource's records.
func (c *Console) Resolver(resource string) *record.Resolver {
	return c.reg.Resolver(resource)
}

// Resources lists the known resource families.
func (c *Console) Resources() []string {
	return c.reg.Names()
}

// InvalidateResource drops cached listings for a family; exposed for
// consumers that learn out-of-band that data changed.
func (c *Console) InvalidateResource(name string) int {
	return c.store.InvalidateResource(name)
}
