// Package httpapi is the minimal JSON HTTP surface standing in for the
// out-of-scope GraphQL layer (spec §1 Non-goals): thin JWT-decode-only
// principal extraction plus two handlers exercising FetchSubscribedFeeds
// and FetchEntries.
package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"feedhub/internal/domain/subscription"
	"feedhub/internal/runtime"
)

// Authz decodes a Bearer JWT's "sub" claim into a subscription.Principal
// and attaches it to the request context. Unlike the teacher's role-based
// Authz, this middleware performs decode only — authorization itself is
// the individual usecase's responsibility (spec §4.7 step 3), not the
// transport's.
func Authz(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := decodeSubject(r.Header.Get("Authorization"), secret)
			if err != nil {
				// No principal on ctx; the usecase's Authorize step rejects
				// the empty-user_id principal per spec §4.5/§4.6 step 1.
				next.ServeHTTP(w, r)
				return
			}
			ctx := runtime.WithPrincipal(r.Context(), subscription.NewPrincipal(userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func decodeSubject(authz string, secret []byte) (string, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authz, prefix) {
		return "", errors.New("missing bearer token")
	}
	tokenString := strings.TrimPrefix(authz, prefix)
	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return "", errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("invalid sub claim")
	}
	return sub, nil
}
