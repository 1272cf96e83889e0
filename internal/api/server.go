// Package api exposes the diary over HTTP for the web front end.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/cors"

	"github.com/pbaille/echoes/internal/auth"
	"github.com/pbaille/echoes/internal/backup"
	"github.com/pbaille/echoes/internal/diary"
	"github.com/pbaille/echoes/internal/domain"
	"github.com/pbaille/echoes/internal/logging"
	"github.com/pbaille/echoes/internal/notify"
	"github.com/pbaille/echoes/internal/syncer"
)

// Deps are the services the API serves. Echoes may be nil when no language
// model is configured.
type Deps struct {
	Diary      *diary.Repository
	Echoes     diary.EchoProvider
	Syncer     *syncer.Syncer
	SyncConfig *syncer.ConfigStore
	Backup     *backup.Service
	Session    *auth.Session
	Log        logging.Logger

	AllowedOrigins []string
}

// Server handles HTTP requests for the diary API
type Server struct {
	Deps

	// syncMu lets only one pull or push run at a time.
	syncMu sync.Mutex
}

// New creates a new API server
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if len(d.AllowedOrigins) == 0 {
		d.AllowedOrigins = []string{"*"}
	}
	return &Server{Deps: d}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Entries
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("POST /entries", s.createEntry)
	mux.HandleFunc("GET /entries/{id}", s.getEntry)
	mux.HandleFunc("PUT /entries/{id}", s.updateEntry)
	mux.HandleFunc("DELETE /entries/{id}", s.deleteEntry)

	// Analysis
	mux.HandleFunc("POST /echoes", s.previewEchoes)
	mux.HandleFunc("GET /stats", s.stats)

	// Backup
	mux.HandleFunc("GET /export", s.exportEntries)
	mux.HandleFunc("POST /import", s.importEntries)

	// GitHub sync
	mux.HandleFunc("GET /sync/config", s.getSyncConfig)
	mux.HandleFunc("PUT /sync/config", s.putSyncConfig)
	mux.HandleFunc("DELETE /sync/config", s.deleteSyncConfig)
	mux.HandleFunc("POST /sync/pull", s.syncHandler(s.Syncer.Pull))
	mux.HandleFunc("POST /sync/push", s.syncHandler(s.Syncer.Push))

	// Auth
	mux.HandleFunc("GET /auth/callback", s.authCallback)
	mux.HandleFunc("GET /auth/me", s.authMe)
	mux.HandleFunc("POST /auth/logout", s.authLogout)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: s.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Content-Disposition"},
		MaxAge:         300,
	})
	return corsHandler(s.withRequestID(mux))
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Log.Info(ctx, "starting server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Log.Info(ctx, "shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EntryRequest is the body of POST /entries and PUT /entries/{id}
type EntryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	// Date accepts YYYY-MM-DD or phrases like "yesterday". Empty means today.
	Date    string `json:"date"`
	Analyze bool   `json:"analyze,omitempty"`
}

// EntryResponse carries the saved entry and what happened to it
type EntryResponse struct {
	Entry  domain.Entry   `json:"entry"`
	Notice *notify.Notice `json:"notice,omitempty"`
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.Diary.Entries()
	limit, offset := 0, 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if o := r.URL.Query().Get("offset"); o != "" {
		if n, err := strconv.Atoi(o); err == nil && n >= 0 {
			offset = n
		}
	}

	total := len(entries)
	page := entries[min(offset, total):]
	if limit > 0 && limit < len(page) {
		page = page[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": page,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	entry, found := s.Diary.Find(id)
	if !found {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) createEntry(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeEntryRequest(w, r)
	if !ok {
		return
	}
	s.saveEntry(w, r, diary.NewEditor(s.Diary, s.Echoes), req, http.StatusCreated)
}

func (s *Server) updateEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	req, ok := decodeEntryRequest(w, r)
	if !ok {
		return
	}

	ed := diary.NewEditor(s.Diary, s.Echoes)
	if err := ed.Load(id); err != nil {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}
	s.saveEntry(w, r, ed, req, http.StatusOK)
}

// saveEntry applies req to the editor's draft, optionally looks for echoes,
// and commits. A failed analysis still saves the entry and reports a notice.
func (s *Server) saveEntry(w http.ResponseWriter, r *http.Request, ed *diary.Editor, req EntryRequest, status int) {
	ctx := r.Context()

	ed.SetTitle(req.Title)
	ed.SetContent(req.Content)
	if strings.TrimSpace(req.Date) != "" {
		date, err := diary.ParseDate(req.Date, time.Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ed.SetDate(date)
	}

	var notice *notify.Notice
	if req.Analyze {
		echoes, err := ed.FindEchoes(ctx)
		n := notify.FromError(err)
		switch {
		case err == nil && len(echoes) > 0:
			n = notify.Successf("Discovered %d new historical echoes!", len(echoes))
		case err == nil:
			n = notify.Infof("No specific echoes found, but your entry is saved.")
		case !errors.Is(err, diary.ErrTooShort):
			s.Log.Warn(ctx, "echo analysis failed", "error", err)
		}
		notice = &n
	}

	entry, created, err := ed.Save(ctx)
	if err != nil {
		if errors.Is(err, diary.ErrBlankContent) {
			writeError(w, http.StatusBadRequest, "content is required")
			return
		}
		s.serverError(w, r, err)
		return
	}
	if created {
		status = http.StatusCreated
	}

	writeJSON(w, status, EntryResponse{Entry: entry, Notice: notice})
}

func (s *Server) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}
	if err := s.Diary.Delete(r.Context(), id); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) previewEchoes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ed := diary.NewEditor(s.Diary, s.Echoes)
	ed.SetContent(req.Content)
	echoes, err := ed.FindEchoes(r.Context())
	switch {
	case errors.Is(err, diary.ErrTooShort):
		writeError(w, http.StatusBadRequest, notify.FromError(err).Message)
		return
	case errors.Is(err, diary.ErrNoProvider):
		writeError(w, http.StatusServiceUnavailable, notify.FromError(err).Message)
		return
	case err != nil:
		s.Log.Warn(r.Context(), "echo analysis failed", "error", err)
		writeError(w, http.StatusBadGateway, "Failed to fetch historical echoes. Please try again.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"echoes":        echoes,
		"isRightToLeft": ed.IsRightToLeft(),
	})
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, diary.Summarize(s.Diary.Entries()))
}

func (s *Server) exportEntries(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := backup.Export(&buf, s.Diary.Entries()); err != nil {
		if errors.Is(err, backup.ErrNothingToExport) {
			writeError(w, http.StatusNotFound, notify.FromError(err).Message)
			return
		}
		s.serverError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", backup.DefaultFileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) importEntries(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 20<<20)

	added, err := s.Backup.Restore(r.Context(), r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		n := notify.FromError(err)
		switch {
		case errors.Is(err, backup.ErrInvalidType):
			writeError(w, http.StatusUnsupportedMediaType, n.Message)
		case errors.Is(err, backup.ErrMalformed), errors.Is(err, backup.ErrInvalidShape):
			writeError(w, http.StatusBadRequest, n.Message)
		default:
			s.serverError(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"added":  added,
		"notice": notify.Successf("Imported %d new entries.", added),
	})
}

// SyncConfigView is the sync configuration as shown to clients. The token
// itself never leaves the server.
type SyncConfigView struct {
	Username   string `json:"username"`
	Repo       string `json:"repo"`
	FilePath   string `json:"filePath"`
	TokenSet   bool   `json:"tokenSet"`
	Configured bool   `json:"configured"`
}

func viewOf(cfg domain.SyncConfig) SyncConfigView {
	return SyncConfigView{
		Username:   cfg.Username,
		Repo:       cfg.Repo,
		FilePath:   cfg.FilePath,
		TokenSet:   cfg.Token != "",
		Configured: syncer.IsConfigured(cfg),
	}
}

func (s *Server) getSyncConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.SyncConfig.SyncConfig(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(cfg))
}

// putSyncConfig saves new settings. An empty token keeps the stored one so
// clients can edit the other fields without re-entering it.
func (s *Server) putSyncConfig(w http.ResponseWriter, r *http.Request) {
	var req domain.SyncConfig
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		current, err := s.SyncConfig.SyncConfig(r.Context())
		if err != nil {
			s.serverError(w, r, err)
			return
		}
		req.Token = current.Token
	}

	if err := s.SyncConfig.Save(r.Context(), req); err != nil {
		if errors.Is(err, syncer.ErrNotConfigured) {
			writeError(w, http.StatusBadRequest, "Please fill in all fields.")
			return
		}
		s.serverError(w, r, err)
		return
	}

	saved, err := s.SyncConfig.SyncConfig(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.Log.Info(r.Context(), "sync settings saved", "config", saved)
	writeJSON(w, http.StatusOK, viewOf(saved))
}

func (s *Server) deleteSyncConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.SyncConfig.Clear(r.Context()); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) syncHandler(run func(context.Context) (syncer.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.syncMu.TryLock() {
			writeError(w, http.StatusConflict, "sync already in progress")
			return
		}
		defer s.syncMu.Unlock()

		res, err := run(r.Context())
		notice := notify.FromSync(res, err)
		if err != nil {
			s.Log.Warn(r.Context(), "sync failed", "action", res.Action, "error", err)
			writeJSON(w, syncStatus(err), map[string]any{
				"error":  notice.Message,
				"notice": notice,
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"result": res,
			"notice": notice,
		})
	}
}

func (s *Server) authCallback(w http.ResponseWriter, r *http.Request) {
	user, err := s.Session.Login(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		if errors.Is(err, auth.ErrEmptyCode) {
			writeError(w, http.StatusBadRequest, notify.FromError(err).Message)
			return
		}
		msg := err.Error()
		if inner := errors.Unwrap(err); inner != nil {
			msg = inner.Error()
		}
		writeError(w, http.StatusUnauthorized, msg)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) authMe(w http.ResponseWriter, r *http.Request) {
	user, ok, err := s.Session.Current(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not logged in")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) authLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.Session.Logout(r.Context()); err != nil {
		s.serverError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.Log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id")
		return 0, false
	}
	return id, true
}

func decodeEntryRequest(w http.ResponseWriter, r *http.Request) (EntryRequest, bool) {
	var req EntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
