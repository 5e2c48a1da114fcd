package delegation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

// Principal is the authenticated caller as established by the JWT layer
type Principal struct {
	UserID uuid.UUID `json:"-"`
	UserId string    `json:"user_id,omitempty"`
	Email  string    `json:"email,omitempty"`
}

func (p Principal) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("user", p.UserId),
		slog.String("email", p.Email),
	)
}

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation. This technique
// for defining context keys was copied from Go 1.7's new use of context in net/http.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "delegation context value " + k.name
}

var (
	PrincipalKey = &contextKey{"Principal"}
	EffectiveKey = &contextKey{"EffectivePrincipal"}
)

func loadFromMap[T any](m map[string]interface{}, c *T) error {
	data, err := json.Marshal(m)
	if err == nil {
		err = json.Unmarshal(data, c)
	}
	return err
}

// PrincipalFromContext returns the authenticated principal, if any
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(PrincipalKey).(*Principal)
	if !ok || principal == nil {
		return Principal{}, false
	}
	return *principal, true
}

// EffectiveFromContext returns the resolved effective principal, if any
func EffectiveFromContext(ctx context.Context) (EffectivePrincipal, bool) {
	effective, ok := ctx.Value(EffectiveKey).(*EffectivePrincipal)
	if !ok || effective == nil {
		return EffectivePrincipal{}, false
	}
	return *effective, true
}

// PrincipalMiddleware extracts the authenticated principal from the verified
// JWT claims and stores it in the request context. Must be used after
// jwtauth.Verifier and jwtauth.Authenticator.
func PrincipalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			em := fmt.Errorf("missing jwt: %w", err)
			http.Error(w, em.Error(), http.StatusUnauthorized)
			return
		}

		principal := new(Principal)
		if customClaims, ok := claims["custom_claims"].(map[string]interface{}); ok {
			if err := loadFromMap(customClaims, principal); err != nil {
				http.Error(w, "invalid claims", http.StatusUnauthorized)
				return
			}
		}
		if err := loadFromMap(claims, principal); err != nil {
			http.Error(w, "invalid claims", http.StatusUnauthorized)
			return
		}

		if principal.UserId == "" {
			http.Error(w, "missing user id", http.StatusUnauthorized)
			return
		}
		principal.UserID, err = uuid.Parse(principal.UserId)
		if err != nil {
			http.Error(w, "invalid user id", http.StatusUnauthorized)
			return
		}
		principal.Email = strings.ToLower(principal.Email)

		ctx := context.WithValue(r.Context(), PrincipalKey, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenFromCookie extracts the access token from the accessToken cookie
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie("accessToken")
	if err != nil {
		return ""
	}
	return cookie.Value
}

// Verifier wraps jwtauth.Verify with header and cookie token sources
func Verifier(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return jwtauth.Verify(ja, jwtauth.TokenFromHeader, TokenFromCookie)(next)
	}
}
