package stub

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/raido/internal/envelope"
	"github.com/starford/raido/internal/record"
	"github.com/starford/raido/internal/resources"
	"github.com/starford/raido/internal/sse"
)

// Envelope shapes the stub answers list queries with, keyed by resource.
// Anything not listed gets the canonical {items, pagination} envelope; the
// mix mirrors the real backend's inconsistency.
var listShapes = map[string]string{
	"categories":       "array",
	"brands":           "array",
	"users":            "named",
	"kyc":              "named",
	"sellers":          "named",
	"delivery-persons": "named",
}

// Handler serves the stub admin API.
type Handler struct {
	store  *Store
	reg    *resources.Registry
	token  string
	logger *slog.Logger
	events *sse.Broker
}

// NewRouter builds the chi router for the stub backend. token guards every
// endpoint except login; login accepts any non-empty credentials and answers
// with that token. events may be nil to disable the change stream.
func NewRouter(store *Store, reg *resources.Registry, token string, logger *slog.Logger, events *sse.Broker) chi.Router {
	h := &Handler{store: store, reg: reg, token: token, logger: logger, events: events}

	r := chi.NewRouter()
	r.Post("/admin/auth/login", h.login)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)
		if events != nil {
			r.Get("/admin/events", events.ServeHTTP)
		}
		for _, name := range reg.Names() {
			spec, _ := reg.Get(name)
			h.mountResource(r, spec)
		}
	})

	return r
}

func (h *Handler) publish(kind, resource, id string) {
	if h.events != nil {
		h.events.PublishRecordEvent(kind, resource, id)
	}
}

func (h *Handler) mountResource(r chi.Router, spec resources.Spec) {
	name := spec.Name
	r.Route(spec.Path, func(r chi.Router) {
		r.Get("/", h.list(spec))
		r.Post("/", h.create(name))
		r.Get("/export", h.export(name))
		r.Get("/{id}", h.get(name))
		r.Put("/{id}", h.update(name))
		r.Delete("/{id}", h.remove(name))
		for _, action := range spec.Actions {
			r.Post("/{id}/"+action, h.transition(name, action))
		}
	})
}

// authMiddleware validates the bearer token on every request behind it.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != h.token {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": "invalid credentials payload",
			"errors": map[string]string{
				"email":    "required",
				"password": "required",
			},
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":     h.token,
		"expiresAt": time.Now().Add(12 * time.Hour).UTC().Format(time.RFC3339),
	})
}

func (h *Handler) list(spec resources.Spec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}

		items, total, err := h.store.List(spec.Name, ListFilter{
			Search: q.Get("search"),
			Status: q.Get("status"),
			Page:   page,
			Limit:  limit,
		})
		if err != nil {
			h.logger.Error("stub: list failed", slog.String("resource", spec.Name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}

		switch listShapes[spec.Name] {
		case "array":
			writeJSON(w, http.StatusOK, items)
		case "named":
			writeJSON(w, http.StatusOK, map[string]any{
				spec.PluralKey: items,
				"page":         page,
				"limit":        limit,
				"total":        total,
			})
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"items": items,
				"pagination": envelope.Pagination{
					Page:       page,
					Limit:      limit,
					Total:      total,
					TotalPages: envelope.TotalPages(total, limit),
				},
			})
		}
	}
}

func (h *Handler) get(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := h.store.Get(name, chi.URLParam(r, "id"))
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func (h *Handler) create(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := decodeRecord(w, r)
		if !ok {
			return
		}
		id, _ := rec["id"].(string)
		if id == "" {
			id = fmt.Sprintf("%s-%d", name, time.Now().UnixNano())
			rec["id"] = id
		}
		rec["createdAt"] = time.Now().UTC().Format(time.RFC3339)
		if err := h.store.Put(name, id, rec); err != nil {
			h.writeStoreError(w, err)
			return
		}
		h.publish("created", name, id)
		writeJSON(w, http.StatusCreated, rec)
	}
}

func (h *Handler) update(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		existing, err := h.store.Get(name, id)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}
		rec, ok := decodeRecord(w, r)
		if !ok {
			return
		}
		for k, v := range rec {
			existing[k] = v
		}
		existing["id"] = id
		if err := h.store.Put(name, id, existing); err != nil {
			h.writeStoreError(w, err)
			return
		}
		h.publish("updated", name, id)
		writeJSON(w, http.StatusOK, existing)
	}
}

func (h *Handler) remove(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := h.store.Delete(name, id); err != nil {
			h.writeStoreError(w, err)
			return
		}
		h.publish("deleted", name, id)
		writeJSON(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

func (h *Handler) transition(name, action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		rec, err := h.store.Get(name, id)
		if err != nil {
			h.writeStoreError(w, err)
			return
		}

		var payload record.Record
		_ = json.NewDecoder(r.Body).Decode(&payload)

		switch action {
		case resources.ActionStatus:
			status, _ := payload["status"].(string)
			if status == "" {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
					"error":  "status is required",
					"errors": map[string]string{"status": "required"},
				})
				return
			}
			rec["status"] = status
		case resources.ActionVerify:
			rec["status"] = "verified"
		case resources.ActionReject:
			rec["status"] = "rejected"
			if reason, ok := payload["reason"].(string); ok && reason != "" {
				rec["rejectionReason"] = reason
			}
		case resources.ActionToggle:
			active, _ := rec["isActive"].(bool)
			rec["isActive"] = !active
		}

		if err := h.store.Put(name, id, rec); err != nil {
			h.writeStoreError(w, err)
			return
		}
		h.publish("updated", name, id)
		writeJSON(w, http.StatusOK, rec)
	}
}

// export streams the filtered listing as CSV regardless of the requested
// format; format fidelity is not what the stub is for.
func (h *Handler) export(name string) http.HandlerFunc {
	resolver := record.NewResolver(nil)
	return func(w http.ResponseWriter, r *http.Request) {
		items, _, err := h.store.List(name, ListFilter{
			Search: r.URL.Query().Get("search"),
			Status: r.URL.Query().Get("status"),
			Page:   1,
			Limit:  10000,
		})
		if err != nil {
			h.writeStoreError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", name))
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"id", "name", "status", "createdAt"})
		for _, rec := range items {
			_ = cw.Write([]string{
				resolver.String(rec, "id"),
				resolver.String(rec, "name"),
				resolver.String(rec, "status"),
				resolver.String(rec, "createdAt"),
			})
		}
		cw.Flush()
	}
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	h.logger.Error("stub: store error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}

func decodeRecord(w http.ResponseWriter, r *http.Request) (record.Record, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var rec record.Record
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return nil, false
	}
	return rec, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
