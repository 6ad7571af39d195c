package rest

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/alexbor287kz-boop/marketplace/internal/common"
	"github.com/alexbor287kz-boop/marketplace/internal/server/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// authMiddleware verifies the bearer token and attaches the verified claims
// to the request context. The header is split on whitespace, so a bare or
// single-word header is rejected rather than panicking on a missing index.
func (s *RESTServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		header := r.Header.Get(common.AuthorizationHeaderName)
		if header == "" {
			errorJSON(w, http.StatusUnauthorized, "Нет токена")
			return
		}

		fields := strings.Fields(header)
		if len(fields) < 2 {
			errorJSON(w, http.StatusUnauthorized, "Неверный токен")
			return
		}

		claims, err := auth.ParseToken(fields[1], s.jwtSecret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				errorJSON(w, http.StatusUnauthorized, "Токен истёк")
				return
			}
			errorJSON(w, http.StatusUnauthorized, "Неверный токен")
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClaimsFromContext returns the verified token claims attached by
// authMiddleware. Only valid on requests routed through a gated group.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, error) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	if !ok || claims == nil {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// ContextWithClaims injects claims directly, bypassing the middleware.
// Used by handler tests.
func ContextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func (s *RESTServer) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error(r.Context(), "panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				errorJSON(w, http.StatusInternalServerError, "Server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
