package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pbaille/echoes/internal/github"
	"github.com/pbaille/echoes/internal/syncer"
)

const requestIDHeader = "X-Request-ID"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestID tags every request with an id, echoed back in the response,
// and logs one line per request.
func (s *Server) withRequestID(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h.ServeHTTP(rec, r)

		s.Log.Debug(r.Context(), "request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"took", time.Since(start),
		)
	})
}

// syncStatus maps a sync failure to the status returned to the client.
func syncStatus(err error) int {
	switch {
	case errors.Is(err, syncer.ErrNotConfigured):
		return http.StatusPreconditionFailed
	case errors.Is(err, github.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, github.ErrUnauthorized),
		errors.Is(err, github.ErrTransport),
		errors.Is(err, github.ErrCorrupt):
		return http.StatusBadGateway
	}
	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
