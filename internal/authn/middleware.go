package authn

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/coursekeeper/coursekeeper/internal/platform/httpx"
	"github.com/coursekeeper/coursekeeper/internal/shared"
)

// Middleware resolves the request credentials into a Principal and stores it
// in the request context. A request without credentials proceeds with the
// anonymous principal; presenting credentials that do not resolve is a 401.
func Middleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := resolveRequest(r, service)
			if err != nil {
				if logger != nil {
					logger.Info("credential resolution failed", slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, err)
				return
			}
			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func resolveRequest(r *http.Request, service *Service) (Principal, error) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return Anonymous(), nil
	}

	if username, secret, ok := r.BasicAuth(); ok {
		return service.ResolveUser(r.Context(), username, secret)
	}

	const bearerPrefix = "Bearer "
	if strings.HasPrefix(header, bearerPrefix) {
		token := strings.TrimSpace(header[len(bearerPrefix):])
		if token == "" {
			return Anonymous(), shared.ErrUnauthenticated
		}
		return service.ResolveCourseToken(r.Context(), token)
	}

	// No other credential forms are accepted.
	return Anonymous(), shared.ErrUnauthenticated
}
