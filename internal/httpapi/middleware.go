package httpapi

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/StricklySoft/cypher-gateway/internal/authadapter"
)

const requestIDHeader = "X-Request-Id"

// requestID assigns every request a correlation ID (reusing an inbound
// X-Request-Id if the caller already set one), attaches it to the request
// context and response header, and logs the request's outcome.
func requestID(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)
			ctx := contextWithRequestID(r.Context(), id)

			start := time.Now()
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "httpapi: request handled",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start),
			)
		})
	}
}

// basicOrBearerAuth authenticates each request against adapter: an
// "Authorization: Bearer <jwt>" header is tried first (the §4.6.1
// service-trust enrichment), falling back to HTTP Basic credentials
// checked against the service identity or, failing that, the Neo4j
// impersonation probe. A request with neither form of credential, or
// credentials that fail both checks, gets 401 with the AUTH_ERROR envelope
// and never reaches the route handler.
func basicOrBearerAuth(adapter *authadapter.Adapter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bearer, ok := bearerToken(r); ok {
				if principal, ok := adapter.AuthenticateServiceToken(bearer); ok {
					next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), principal)))
					return
				}
			}

			username, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}
			principal, err := adapter.Authenticate(r.Context(), username, password)
			if err != nil {
				writeError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	return strings.TrimPrefix(header, prefix), true
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="cypher-gateway"`)
	writeJSON(w, http.StatusUnauthorized, errorEnvelope{
		Error:  "Authentication required",
		Status: http.StatusUnauthorized,
	})
}
