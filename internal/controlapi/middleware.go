package controlapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/rafaeljc/verdandi/internal/logger"
	"github.com/rafaeljc/verdandi/internal/observability"
)

// apiKeyHeader carries the admin credential.
const apiKeyHeader = "X-API-Key"

// RequestLogger injects a request-scoped logger into the context and emits
// one structured line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		log := slog.Default().With(
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote_addr", r.RemoteAddr),
		)
		ctx := logger.WithContext(r.Context(), log)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		log.Info("request completed",
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.String("duration", time.Since(start).String()),
		)
	})
}

// MetricsCollector records per-route request counts and latencies. The chi
// route pattern is used as the path label so IDs and keys do not explode
// metric cardinality.
func MetricsCollector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := chi.RouteContext(r.Context()).RoutePattern()
		if path == "" {
			path = "unmatched"
		}

		observability.ControlPlaneReqDuration.
			WithLabelValues(r.Method, path).
			Observe(time.Since(start).Seconds())
		observability.ControlPlaneReqTotal.
			WithLabelValues(r.Method, path, strconv.Itoa(ww.Status())).
			Inc()
	})
}

// authenticateAPIKey guards the admin routes. The presented key is hashed
// with SHA-256 and compared in constant time against the configured hash, so
// the plaintext key is never stored server-side.
func (a *API) authenticateAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.skipAuth {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(apiKeyHeader)
		if key == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, newErrorResponse("unauthorized", "missing API key"))
			return
		}

		sum := sha256.Sum256([]byte(key))
		presented := hex.EncodeToString(sum[:])

		if subtle.ConstantTimeCompare([]byte(presented), []byte(a.apiKeyHash)) != 1 {
			logger.FromContext(r.Context()).Warn("rejected request with invalid API key")
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, newErrorResponse("unauthorized", "invalid API key"))
			return
		}

		next.ServeHTTP(w, r)
	})
}
