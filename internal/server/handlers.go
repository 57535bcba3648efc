package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"git.sr.ht/~rkb/blogbuilder/internal/hugo"
	"git.sr.ht/~rkb/blogbuilder/internal/version"
)

type healthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Version       string    `json:"version"`
	UptimeSeconds float64   `json:"uptime_seconds"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC(),
		Version:       version.Version,
		UptimeSeconds: time.Since(s.start).Seconds(),
	})
}

type statusResponse struct {
	Site          string                        `json:"site"`
	UptimeSeconds float64                       `json:"uptime_seconds"`
	LastBuild     *hugo.BuildReportSerializable `json:"last_build"`
}

// handleStatus reports the most recent build. LastBuild is null until the
// first build of the checkout has run.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := statusResponse{
		Site:          s.cfg.Site.Title,
		UptimeSeconds: time.Since(s.start).Seconds(),
	}
	report, err := hugo.LoadReport(s.cfg.Site.Root)
	switch {
	case err == nil:
		resp.LastBuild = report
	case errors.Is(err, fs.ErrNotExist):
		// No build yet.
	default:
		slog.Warn("Failed to load build report", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

// siteHandler serves the rendered site. Caching is disabled so browsers
// re-fetch pages after every rebuild.
func (s *Server) siteHandler() http.Handler {
	public := s.cfg.PublicPath()
	files := http.FileServer(http.Dir(public))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")
		if _, err := os.Stat(filepath.Join(public, "index.html")); err != nil {
			// Show the pending page for the root path only; other paths
			// fall through to the file server and 404 naturally.
			if r.URL.Path == "/" || r.URL.Path == "" {
				renderPendingPage(w)
				return
			}
		}
		files.ServeHTTP(w, r)
	})
}

// renderPendingPage is shown before the first build has produced output.
func renderPendingPage(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = fmt.Fprint(w, `<!doctype html><html><head><meta charset="utf-8"><title>Site rendering</title></head><body><h1>Site not built yet</h1><p>Run a build, or save a content file if the watcher is active, and reload this page.</p></body></html>`)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Warn("Failed to encode JSON response", "error", err)
	}
}
