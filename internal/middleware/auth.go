// Package middleware provides HTTP middleware: authentication, request IDs,
// and rate limiting.
package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"pkgindex/internal/domain"
	"pkgindex/internal/service/security"
)

// Authenticate resolves request credentials to a principal and stores it in
// the request context. Three credential forms are accepted: HTTP Basic
// (username/password), a Bearer session token (HS256 JWT from /login), and a
// Bearer token secret. Requests without credentials proceed as Anonymous;
// requests with bad credentials are rejected with 401.
func Authenticate(identity *security.IdentityService, jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := resolveRequest(r, identity, jwtSecret)
			if err != nil {
				writeUnauthorized(w, err.Error())
				return
			}
			ctx := domain.WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveRequest(r *http.Request, identity *security.IdentityService, jwtSecret []byte) (domain.Principal, error) {
	if username, password, ok := r.BasicAuth(); ok {
		return identity.Resolve(r.Context(), security.Credentials{Username: username, Password: password})
	}

	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		bearer := strings.TrimPrefix(auth, "Bearer ")
		// Session tokens and stored token secrets share the Bearer scheme;
		// a verifiable JWT is a session, anything else is a token secret.
		if subject, err := security.ParseSession(jwtSecret, bearer); err == nil {
			return identity.ResolveID(r.Context(), subject)
		}
		return identity.Resolve(r.Context(), security.Credentials{Token: bearer})
	}

	return domain.Anonymous{}, nil
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"code":    http.StatusUnauthorized,
		"message": message,
	})
}
