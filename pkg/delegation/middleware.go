package delegation

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// OwnerIDHeader selects whose data the request targets. Absent means the
// caller's own data.
const OwnerIDHeader = "X-Owner-ID"

// Middleware resolves the effective principal for every request and stores
// it in the request context. Must be used after PrincipalMiddleware.
//
// Requests carrying the owner header execute against that owner's data only
// if a usable editor session grants it; otherwise the request fails with
// 403 and the handler never runs.
func Middleware(resolver *Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := PrincipalFromContext(r.Context())
			if !ok {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ownerID := actor.UserID
			if header := r.Header.Get(OwnerIDHeader); header != "" {
				parsed, err := uuid.Parse(header)
				if err != nil {
					http.Error(w, "invalid owner id", http.StatusBadRequest)
					return
				}
				ownerID = parsed
			}

			effective, err := resolver.Resolve(r.Context(), actor, ownerID)
			if err != nil {
				if errors.Is(err, ErrDelegationForbidden) {
					slog.Warn("Delegation refused", "actor", actor.UserID, "owner", ownerID)
					http.Error(w, "Forbidden: no sharing session grants access", http.StatusForbidden)
					return
				}
				slog.Error("Failed to resolve delegation", "err", err, "actor", actor.UserID, "owner", ownerID)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			ctx := context.WithValue(r.Context(), EffectiveKey, &effective)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
