package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

type contextKey string

const ctxKeyClient contextKey = "api_client"

// maxBodyBytes bounds request bodies read by the auth middleware and the dashboard handler.
const maxBodyBytes = 1 << 20

// GetClientFromContext returns the authenticated API client from the request context
func GetClientFromContext(ctx context.Context) (APIClient, bool) {
	client, ok := ctx.Value(ctxKeyClient).(APIClient)
	return client, ok
}

// RecoveryMiddleware recovers from panics and returns a 500 error
func RecoveryMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", zap.Any("panic", err), zap.String("path", r.URL.Path))
					writeJSON(w, http.StatusInternalServerError, ErrorResponse{
						Error: "internal server error",
						Code:  http.StatusInternalServerError,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware adds CORS headers. An empty origins list allows any origin.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case len(allowed) == 0:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "":
				if _, ok := allowed[origin]; ok {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Add("Vary", "Origin")
				}
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
				"Content-Type", headerAPIKey, headerTimestamp, headerNonce, headerSignature,
			}, ", "))
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status code
			wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			clientName := "-"
			if client, ok := GetClientFromContext(r.Context()); ok {
				clientName = client.Name
			}

			logger.Info("http request",
				zap.String("client", clientName),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// AuthMiddleware validates the API key and, for clients with a secret, the HMAC signature.
// A store without clients lets every request through.
func AuthMiddleware(store *ClientStore, now func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !store.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get(headerAPIKey)
			if apiKey == "" {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error: "missing X-API-Key header",
					Code:  http.StatusUnauthorized,
				})
				return
			}

			client, err := store.GetClient(apiKey)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, ErrorResponse{
					Error: err.Error(),
					Code:  http.StatusUnauthorized,
				})
				return
			}

			if client.Secret != "" {
				// Read body for signature verification, then restore it for the handler
				body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
				if err != nil {
					writeJSON(w, http.StatusBadRequest, ErrorResponse{
						Error: "failed to read request body",
						Code:  http.StatusBadRequest,
					})
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))

				timestamp := r.Header.Get(headerTimestamp)
				nonce := r.Header.Get(headerNonce)
				signature := r.Header.Get(headerSignature)

				if timestamp == "" || nonce == "" || signature == "" {
					writeJSON(w, http.StatusUnauthorized, ErrorResponse{
						Error: "missing signature headers (X-Timestamp, X-Nonce, X-Signature)",
						Code:  http.StatusUnauthorized,
					})
					return
				}

				if err := ValidateSignature(client.Secret, r.Method, r.URL.Path, timestamp, nonce, string(body), signature, now()); err != nil {
					writeJSON(w, http.StatusUnauthorized, ErrorResponse{
						Error: "signature verification failed: " + err.Error(),
						Code:  http.StatusUnauthorized,
					})
					return
				}
			}

			ctx := context.WithValue(r.Context(), ctxKeyClient, client)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture status code
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
