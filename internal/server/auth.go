package server

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

type bearerKey struct{}

// WithBearer attaches a caller's bearer token to ctx.
func WithBearer(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

func bearerFrom(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// TokenGate authorizes callers whose bearer token matches a shared secret. An
// empty secret authorizes everyone.
type TokenGate struct {
	token string
}

func NewTokenGate(token string) TokenGate {
	return TokenGate{token: token}
}

func (g TokenGate) Authorized(ctx context.Context) bool {
	if g.token == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(bearerFrom(ctx)), []byte(g.token)) == 1
}

// withCaller copies the request's bearer token into its context.
func withCaller(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithBearer(r.Context(), bearerToken(r))))
	})
}

// requireAuth rejects requests the gate does not authorize.
func requireAuth(gate TokenGate, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !gate.Authorized(r.Context()) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeJSONError(w, http.StatusUnauthorized, "missing or invalid bearer token")
			return
		}
		next(w, r)
	}
}
