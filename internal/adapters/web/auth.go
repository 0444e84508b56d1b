package web

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"farmgate/internal/app"
	"farmgate/internal/core"
)

// jwtClaims is the JWT payload struct used for parsing access tokens. Tokens
// are issued by the identity service that owns the users table; this adapter
// only verifies them.
type jwtClaims struct {
	UserID int    `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// RequireAuth validates the bearer token (Authorization header, with an
// auth_token cookie fallback) and injects the resolved Actor into the request
// context. Returns 401 if the token is absent or invalid.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		claims := &jwtClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			writeError(w, r, "invalid or expired token", "UNAUTHORIZED", http.StatusUnauthorized)
			return
		}

		ctx := app.WithActor(r.Context(), core.Actor{
			UserID: claims.UserID,
			Role:   core.Role(claims.Role),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if after, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
		return ""
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return ""
}

// actorOrFail pulls the authenticated actor from the context. RequireAuth
// guarantees it is present on protected routes; the guard is for misuse.
func actorOrFail(w http.ResponseWriter, r *http.Request) (core.Actor, bool) {
	actor, ok := app.ActorFrom(r.Context())
	if !ok {
		writeError(w, r, "authentication required", "UNAUTHORIZED", http.StatusUnauthorized)
		return core.Actor{}, false
	}
	return actor, true
}
