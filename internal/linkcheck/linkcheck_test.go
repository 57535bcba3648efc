package linkcheck

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/content"
	"git.sr.ht/~rkb/blogbuilder/internal/metrics"
)

func writePost(t *testing.T, dir, rel, body string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func scanContent(t *testing.T, dir string) *content.Inventory {
	t.Helper()
	inv, err := content.Scan(dir)
	if err != nil {
		t.Fatalf("failed to scan content: %v", err)
	}
	return inv
}

func newTestChecker(client *http.Client, lc config.LinkCheckConfig) *Checker {
	return &Checker{
		cfg:    lc,
		client: client,
		store:  newMemoryStore(),
		rec:    metrics.NoopRecorder{},
		ttl:    time.Hour,
		sem:    make(chan struct{}, 4),
	}
}

func TestCheckerRunReportsBrokenLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/head-shy":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	writePost(t, dir, "posts/alpha.md", fmt.Sprintf(
		"---\ntitle: Alpha\ndate: 2026-01-10\n---\n\n[good](%s/ok) and [shy](%s/head-shy) and [dead](%s/gone)\n",
		srv.URL, srv.URL, srv.URL))
	writePost(t, dir, "posts/beta.md", fmt.Sprintf(
		"---\ntitle: Beta\ndate: 2026-01-11\n---\n\n[dead too](%s/gone), [local](/posts/alpha/), [mail](mailto:rkb@example.org)\n",
		srv.URL))

	c := newTestChecker(srv.Client(), config.LinkCheckConfig{})
	report, err := c.Run(t.Context(), scanContent(t, dir))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if report.URLsChecked != 3 {
		t.Errorf("expected 3 URLs checked, got %d", report.URLsChecked)
	}
	if report.URLsCached != 0 {
		t.Errorf("expected no cached URLs, got %d", report.URLsCached)
	}
	if len(report.Broken) != 1 {
		t.Fatalf("expected 1 broken link, got %d: %+v", len(report.Broken), report.Broken)
	}

	broken := report.Broken[0]
	if broken.URL != srv.URL+"/gone" {
		t.Errorf("unexpected broken URL %q", broken.URL)
	}
	if broken.Status != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", broken.Status)
	}
	if len(broken.Sources) != 2 || broken.Sources[0] != "posts/alpha.md" || broken.Sources[1] != "posts/beta.md" {
		t.Errorf("unexpected sources %v", broken.Sources)
	}
}

func TestCheckerRunUsesFreshVerdicts(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	writePost(t, dir, "posts/cached.md", fmt.Sprintf(
		"---\ntitle: Cached\ndate: 2026-01-12\n---\n\n[ref](%s/cached)\n", srv.URL))

	c := newTestChecker(srv.Client(), config.LinkCheckConfig{})
	err := c.store.Put(t.Context(), &Verdict{
		URL:         srv.URL + "/cached",
		Status:      http.StatusOK,
		OK:          true,
		LastChecked: time.Now(),
	})
	if err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	report, err := c.Run(t.Context(), scanContent(t, dir))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if calls.Load() != 0 {
		t.Errorf("expected no requests, got %d", calls.Load())
	}
	if report.URLsCached != 1 || report.URLsChecked != 0 {
		t.Errorf("expected 1 cached / 0 checked, got %d / %d", report.URLsCached, report.URLsChecked)
	}
	if len(report.Broken) != 0 {
		t.Errorf("expected no broken links, got %+v", report.Broken)
	}
}

func TestCheckerRunRechecksStaleVerdicts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	writePost(t, dir, "posts/stale.md", fmt.Sprintf(
		"---\ntitle: Stale\ndate: 2026-01-13\n---\n\n[ref](%s/gone)\n", srv.URL))

	firstFailed := time.Now().Add(-72 * time.Hour)
	c := newTestChecker(srv.Client(), config.LinkCheckConfig{})
	err := c.store.Put(t.Context(), &Verdict{
		URL:           srv.URL + "/gone",
		Status:        http.StatusNotFound,
		OK:            false,
		Error:         "HTTP 404",
		LastChecked:   time.Now().Add(-2 * time.Hour),
		FailureCount:  3,
		FirstFailedAt: firstFailed,
	})
	if err != nil {
		t.Fatalf("failed to seed cache: %v", err)
	}

	report, err := c.Run(t.Context(), scanContent(t, dir))
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if report.URLsChecked != 1 || report.URLsCached != 0 {
		t.Errorf("expected a recheck, got %d checked / %d cached", report.URLsChecked, report.URLsCached)
	}

	v, err := c.store.Get(t.Context(), srv.URL+"/gone")
	if err != nil {
		t.Fatalf("failed to read verdict: %v", err)
	}
	if v.FailureCount != 4 {
		t.Errorf("expected failure count 4, got %d", v.FailureCount)
	}
	if !v.FirstFailedAt.Equal(firstFailed) {
		t.Errorf("expected first failure %v preserved, got %v", firstFailed, v.FirstFailedAt)
	}
}

func TestRequestFallsBackToGETWhenHeadIsRefused(t *testing.T) {
	var headCalls, getCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			headCalls.Add(1)
			w.WriteHeader(http.StatusNotFound)
		case http.MethodGet:
			getCalls.Add(1)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	t.Cleanup(srv.Close)

	c := newTestChecker(srv.Client(), config.LinkCheckConfig{})
	status, err := c.request(t.Context(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if status != http.StatusOK {
		t.Fatalf("expected status 200, got %d", status)
	}
	if headCalls.Load() != 1 || getCalls.Load() != 1 {
		t.Fatalf("expected 1 HEAD and 1 GET, got %d and %d", headCalls.Load(), getCalls.Load())
	}
}

func TestRequestTreatsAuthWallsAsAlive(t *testing.T) {
	for _, code := range []int{
		http.StatusUnauthorized,
		http.StatusForbidden,
		http.StatusMethodNotAllowed,
		http.StatusTooManyRequests,
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		c := newTestChecker(srv.Client(), config.LinkCheckConfig{})
		status, err := c.request(t.Context(), srv.URL+"/protected")
		if err != nil {
			t.Errorf("status %d: expected no error, got %v", code, err)
		}
		if status != code {
			t.Errorf("expected status %d, got %d", code, status)
		}
		srv.Close()
	}
}

func TestRequestReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c := newTestChecker(srv.Client(), config.LinkCheckConfig{})
	status, err := c.request(t.Context(), srv.URL+"/boom")
	if err == nil {
		t.Fatalf("expected error, got nil (status %d)", status)
	}
	if status != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", status)
	}
}

func TestCollectSkipsConfiguredPatterns(t *testing.T) {
	dir := t.TempDir()
	writePost(t, dir, "posts/links.md",
		"---\ntitle: Links\ndate: 2026-01-14\n---\n\n"+
			"[gh](https://github.com/rkb/eeg-notes) [site](https://example.org/page) ![fig](https://example.org/fig.png)\n")

	c := newTestChecker(http.DefaultClient, config.LinkCheckConfig{
		SkipPatterns: []string{"github.com"},
	})
	targets := c.collect(scanContent(t, dir))

	if len(targets) != 2 {
		t.Fatalf("expected 2 targets, got %v", targets)
	}
	for _, u := range []string{"https://example.org/page", "https://example.org/fig.png"} {
		if _, ok := targets[u]; !ok {
			t.Errorf("expected %s in targets", u)
		}
	}
}

func TestStreamNameSanitizesSubject(t *testing.T) {
	if got := streamName("blogbuilder.links.broken"); got != "blogbuilder-links-broken" {
		t.Errorf("unexpected stream name %q", got)
	}
}
