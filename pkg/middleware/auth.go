package middleware

import (
	"errors"
	"net/http"

	"counsel/pkg/auth"
	apperrors "counsel/pkg/errors"
	httputil "counsel/pkg/http"
	"counsel/pkg/logger"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Authenticate resolves the bearer token into an identity on the request
// context. Requests without a token continue anonymously and are rejected by
// the services that need an identity. Invalid tokens are rejected here.
func Authenticate(verifier TokenVerifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if errors.Is(err, auth.ErrMissingToken) {
				next.ServeHTTP(w, r)
				return
			}

			var identity *auth.Identity
			if err == nil {
				identity, err = verifier.Verify(token)
			}
			if err != nil {
				log.Warn("Rejected bearer token",
					"request_id", RequestID(r),
					"path", r.URL.Path,
					"error", err,
				)
				httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}
