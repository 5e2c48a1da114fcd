package audit

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/tendant/simple-share/pkg/delegation"
)

// Middleware records delegated mutations flowing through the routes it
// wraps. Must be mounted after the delegation middleware.
type Middleware struct {
	recorder *Recorder
	snapshot SnapshotFunc
}

// MiddlewareOption is a function that configures a Middleware
type MiddlewareOption func(*Middleware)

// WithSnapshotFunc captures resource state around mutations so records carry
// Before and After payloads
func WithSnapshotFunc(fn SnapshotFunc) MiddlewareOption {
	return func(m *Middleware) {
		m.snapshot = fn
	}
}

// NewMiddleware creates a new audit middleware instance
func NewMiddleware(recorder *Recorder, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{recorder: recorder}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func eventKindForMethod(method string) (EventKind, bool) {
	switch method {
	case http.MethodPost:
		return ResourceCreated, true
	case http.MethodPut, http.MethodPatch:
		return ResourceUpdated, true
	case http.MethodDelete:
		return ResourceDeleted, true
	default:
		return "", false
	}
}

// RecordChanges wraps a handler and appends a change record for every
// successful delegated mutation. Reads and owner-initiated mutations pass
// through untouched.
//
// The pre-mutation state comes from the snapshot func, keyed by the
// resource_id URL param. The post-mutation state is the handler's JSON
// response body, which the resource handlers render as the full resource.
func (m *Middleware) RecordChanges(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		eventKind, mutating := eventKindForMethod(r.Method)
		if !mutating {
			next.ServeHTTP(w, r)
			return
		}

		effective, ok := delegation.EffectiveFromContext(r.Context())
		if !ok || !effective.Delegated() {
			next.ServeHTTP(w, r)
			return
		}

		var resourceID uuid.UUID
		if raw := chi.URLParam(r, "resource_id"); raw != "" {
			if id, err := uuid.Parse(raw); err == nil {
				resourceID = id
			}
		}

		// The state being replaced or removed is only observable before the
		// handler runs
		var before Snapshot
		if m.snapshot != nil && resourceID != uuid.Nil && eventKind != ResourceCreated {
			snap, err := m.snapshot(r.Context(), effective.UserID, resourceID)
			if err != nil {
				slog.Warn("Failed to snapshot resource before change", "err", err, "resourceId", resourceID)
			} else {
				before = snap
			}
		}

		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		var body bytes.Buffer
		ww.Tee(&body)
		next.ServeHTTP(ww, r)

		if ww.Status() >= 300 {
			return
		}

		var after Snapshot
		if eventKind != ResourceDeleted {
			var snap Snapshot
			if err := json.Unmarshal(body.Bytes(), &snap); err == nil {
				after = snap
			}
		}
		if resourceID == uuid.Nil {
			// A create has no URL param; the handler's response names the new
			// resource
			if raw, ok := after["id"].(string); ok {
				if id, err := uuid.Parse(raw); err == nil {
					resourceID = id
				}
			}
		}

		record := ChangeRecord{
			OwnerID:         effective.UserID,
			ActorID:         effective.ActorID,
			OnBehalfOfEmail: effective.OnBehalfOfEmail,
			EventKind:       eventKind,
			ResourceID:      resourceID,
		}
		applySnapshots(&record, before, after)

		m.recorder.Record(r.Context(), record)
	})
}
