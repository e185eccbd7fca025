package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/aura/internal/session"
	"github.com/desertthunder/aura/internal/shared"
	"github.com/gorilla/mux"
)

// HeaderRequestID carries the request id assigned by [RequestID].
const HeaderRequestID = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// RequestID assigns a request id, reusing the caller's X-Request-ID when present.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = shared.GenerateID()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r)
		})
	}
}

// Logging logs one line per request with its status and duration.
func Logging(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"bytes", rec.bytes,
				"duration", time.Since(start),
				"id", r.Header.Get(HeaderRequestID),
			)
		})
	}
}

// RateLimit rejects requests with 429 once the owner in the path has used up its allowance.
// Requests without an owner are not limited.
func RateLimit(sessions *session.Store) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			owner := mux.Vars(r)["owner"]
			if owner != "" && !sessions.Allow(owner) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, shared.ErrRateLimited.Error())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
