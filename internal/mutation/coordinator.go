// Package mutation executes state-changing operations against the admin API
// and keeps cached listings coherent afterwards.
//
// At most one mutation per (entity, id, action) scope is in flight; a second
// request for an occupied scope is rejected locally with Busy and never sent.
// The scope is released unconditionally on every exit path — a leaked scope
// would leave the entity permanently un-mutatable for the session.
package mutation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/identity"
	"github.com/starford/raido/internal/record"
	"github.com/starford/raido/internal/resources"
)

// Action is the kind of state change an intent performs.
type Action string

const (
	ActionCreate     Action = "create"
	ActionUpdate     Action = "update"
	ActionDelete     Action = "delete"
	ActionTransition Action = "transition"
)

// Intent is one requested state change.
type Intent struct {
	// Entity is the resource family, e.g. "companies".
	Entity string
	// Action is what to do.
	Action Action
	// ID identifies the target record; empty for create.
	ID string
	// Transition names the action endpoint (status, verify, reject, toggle)
	// when Action is ActionTransition.
	Transition string
	// Payload is the request body; may be nil for delete and bodyless
	// transitions.
	Payload any
}

// Validate checks the intent before any network activity.
func (i Intent) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Entity, validation.Required),
		validation.Field(&i.Action, validation.Required,
			validation.In(ActionCreate, ActionUpdate, ActionDelete, ActionTransition)),
		validation.Field(&i.ID, validation.Required.When(i.Action != ActionCreate)),
		validation.Field(&i.Transition, validation.Required.When(i.Action == ActionTransition)),
	)
}

// Scope is the idempotency scope: at most one in-flight mutation per value.
func (i Intent) Scope() string {
	return fmt.Sprintf("%s/%s/%s", i.Entity, identity.Normalize(i.ID), i.Action)
}

// Backend is the transport surface the coordinator needs.
type Backend interface {
	Post(ctx context.Context, path string, payload any) ([]byte, error)
	Put(ctx context.Context, path string, payload any) ([]byte, error)
	Delete(ctx context.Context, path string) ([]byte, error)
}

// Invalidator receives the cache fan-out after a successful mutation.
type Invalidator interface {
	InvalidateResource(name string) int
}

// Coordinator serializes mutations per scope and applies invalidations.
type Coordinator struct {
	mu     sync.Mutex
	busy   map[string]struct{}
	client Backend
	reg    *resources.Registry
	inv    Invalidator
	logger *slog.Logger
}

// New creates a Coordinator.
func New(client Backend, reg *resources.Registry, inv Invalidator, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		busy:   map[string]struct{}{},
		client: client,
		reg:    reg,
		inv:    inv,
		logger: logger,
	}
}

// Execute runs the intent. On success the affected resource listings are
// invalidated per the registry's fan-out and the response record (when the
// backend returned one) is decoded. Failures are classified; nothing is
// retried here — retries are explicit user re-submissions.
func (c *Coordinator) Execute(ctx context.Context, intent Intent) (record.Record, error) {
	if err := intent.Validate(); err != nil {
		return nil, fmt.Errorf("mutation: invalid intent: %w", err)
	}

	spec, ok := c.reg.Get(intent.Entity)
	if !ok {
		return nil, fmt.Errorf("mutation: unknown resource %q", intent.Entity)
	}
	if intent.Action == ActionTransition && !spec.HasAction(intent.Transition) {
		return nil, fmt.Errorf("mutation: resource %s has no %q action", intent.Entity, intent.Transition)
	}

	scope := intent.Scope()
	c.mu.Lock()
	if _, occupied := c.busy[scope]; occupied {
		c.mu.Unlock()
		c.logger.Debug("mutation: scope busy", slog.String("scope", scope))
		return nil, apperr.Busy(scope)
	}
	c.busy[scope] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.busy, scope)
		c.mu.Unlock()
	}()

	body, err := c.dispatch(ctx, spec, intent)
	if err != nil {
		c.logger.Debug("mutation: failed",
			slog.String("scope", scope), slog.String("error", err.Error()))
		return nil, err
	}

	for _, res := range c.reg.Invalidations(intent.Entity, string(intent.Action)) {
		c.inv.InvalidateResource(res)
	}
	c.logger.Debug("mutation: applied", slog.String("scope", scope))

	return decodeRecord(body), nil
}

// Busy reports whether the scope for an intent is currently occupied.
func (c *Coordinator) Busy(intent Intent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, occupied := c.busy[intent.Scope()]
	return occupied
}

func (c *Coordinator) dispatch(ctx context.Context, spec resources.Spec, intent Intent) ([]byte, error) {
	id := identity.Normalize(intent.ID)
	switch intent.Action {
	case ActionCreate:
		return c.client.Post(ctx, spec.Path, intent.Payload)
	case ActionUpdate:
		return c.client.Put(ctx, spec.Path+"/"+id, intent.Payload)
	case ActionDelete:
		return c.client.Delete(ctx, spec.Path+"/"+id)
	case ActionTransition:
		return c.client.Post(ctx, spec.Path+"/"+id+"/"+intent.Transition, intent.Payload)
	default:
		return nil, fmt.Errorf("mutation: unsupported action %q", intent.Action)
	}
}

// decodeRecord best-effort decodes the response body as a record; mutations
// against endpoints that reply with no body or a non-object yield nil.
func decodeRecord(body []byte) record.Record {
	if len(body) == 0 {
		return nil
	}
	var rec record.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil
	}
	return rec
}
