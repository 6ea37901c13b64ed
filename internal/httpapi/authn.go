package httpapi

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"innotour.org/internal/auth"
)

const (
	authHeader     = "Authorization"
	bearer         = "Bearer "
	internalHeader = "X-Internal-Token"
)

// Gate is the authorization gate shared by both services: authd backs
// it with the DB-checked verifier, schedulingd with the claims-only one.
type Gate struct {
	verifier auth.TokenVerifier
}

func NewGate(verifier auth.TokenVerifier) *Gate {
	return &Gate{verifier: verifier}
}

// Authenticate extracts the bearer token, verifies it and attaches the
// resolved user to the request context.
func (g *Gate) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "token_invalid", err.Error())
			return
		}
		user, err := g.verifier.VerifyAccessToken(r.Context(), token)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
	})
}

// RequireRole admits only authenticated users holding the role. It runs
// after Authenticate.
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "token_invalid", "authentication required")
				return
			}
			if user.Role != role {
				writeDomainError(w, r, auth.ErrPermissionRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireInternalKey admits only requests carrying the pre-shared
// service-to-service key. Comparison is constant time.
func RequireInternalKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(internalHeader)
			if key == "" || len(got) != len(key) ||
				subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				writeDomainError(w, r, auth.ErrPermissionRequired)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}
