// Package linkcheck verifies the external links in post bodies. Verdicts
// are cached between runs, in a NATS JetStream KV bucket when one is
// configured, so unchanged links are not refetched on every deploy.
// Broken links are reported and, with NATS, published as events.
package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/content"
	"git.sr.ht/~rkb/blogbuilder/internal/markdown"
	"git.sr.ht/~rkb/blogbuilder/internal/metrics"
)

const userAgent = "blogbuilder-linkcheck/1.0"

// BrokenLink is one dead URL with every post that references it.
type BrokenLink struct {
	URL     string   `json:"url"`
	Status  int      `json:"status,omitempty"`
	Error   string   `json:"error,omitempty"`
	Sources []string `json:"sources"`
}

// Report summarizes one link check run.
type Report struct {
	URLsChecked int          `json:"urls_checked"`
	URLsCached  int          `json:"urls_cached"`
	Broken      []BrokenLink `json:"broken,omitempty"`
}

// Checker verifies external links with bounded concurrency.
type Checker struct {
	cfg    config.LinkCheckConfig
	client *http.Client
	store  store
	rec    metrics.Recorder
	ttl    time.Duration
	sem    chan struct{}
}

// New builds a Checker from configuration. With a NATS URL set,
// verdicts persist in a JetStream KV bucket and broken links are
// published as events; without one a process-local cache is used and
// findings are only reported.
func New(cfg *config.Config, rec metrics.Recorder) (*Checker, error) {
	lc := cfg.LinkCheck
	if !lc.Enabled {
		return nil, errors.New("link checking is disabled")
	}
	if lc.MaxConcurrent <= 0 {
		lc.MaxConcurrent = 10
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}

	var st store = newMemoryStore()
	if lc.NATSURL != "" {
		ns, err := newNATSStore(lc)
		if err != nil {
			return nil, fmt.Errorf("connect link verdict cache: %w", err)
		}
		st = ns
	}

	return &Checker{
		cfg:    lc,
		client: &http.Client{Timeout: config.Duration(lc.Timeout, 10*time.Second)},
		store:  st,
		rec:    rec,
		ttl:    config.Duration(lc.CacheTTL, 24*time.Hour),
		sem:    make(chan struct{}, lc.MaxConcurrent),
	}, nil
}

// Close releases the verdict cache.
func (c *Checker) Close() error { return c.store.Close() }

// Run checks every external link referenced by the scanned content and
// returns what it found. Fresh cached verdicts are reused; everything
// else is fetched with bounded concurrency.
func (c *Checker) Run(ctx context.Context, inv *content.Inventory) (*Report, error) {
	targets := c.collect(inv)

	urls := make([]string, 0, len(targets))
	for u := range targets {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	slog.Info("Checking external links", "urls", len(urls), "posts", len(inv.Posts))

	var (
		mu       sync.Mutex
		verdicts = make(map[string]*Verdict, len(urls))
		cached   int
		wg       sync.WaitGroup
	)

	for _, u := range urls {
		prior, err := c.store.Get(ctx, u)
		if err != nil {
			slog.Debug("Verdict cache lookup failed", "url", u, "error", err)
			prior = nil
		}
		if prior != nil && c.fresh(prior) {
			mu.Lock()
			verdicts[u] = prior
			cached++
			mu.Unlock()
			c.rec.IncLinkCheck("cached")
			continue
		}

		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		case c.sem <- struct{}{}:
		}

		wg.Add(1)
		go func(u string, prior *Verdict) {
			defer wg.Done()
			defer func() { <-c.sem }()

			v := c.check(ctx, u, prior)
			if err := c.store.Put(ctx, v); err != nil {
				slog.Warn("Failed to cache link verdict", "url", u, "error", err)
			}

			mu.Lock()
			verdicts[u] = v
			mu.Unlock()
		}(u, prior)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{URLsChecked: len(verdicts) - cached, URLsCached: cached}
	for _, u := range urls {
		v := verdicts[u]
		if v == nil || v.OK {
			continue
		}
		report.Broken = append(report.Broken, BrokenLink{
			URL:     u,
			Status:  v.Status,
			Error:   v.Error,
			Sources: targets[u],
		})
	}

	for _, bl := range report.Broken {
		v := verdicts[bl.URL]
		ev := &BrokenLinkEvent{
			URL:           bl.URL,
			Status:        bl.Status,
			Error:         bl.Error,
			Sources:       bl.Sources,
			FailureCount:  v.FailureCount,
			FirstFailedAt: v.FirstFailedAt,
		}
		if err := c.store.PublishBroken(ctx, ev); err != nil {
			slog.Error("Failed to publish broken link event", "url", bl.URL, "error", err)
		} else {
			slog.Warn("Broken link", "url", bl.URL, "status", bl.Status, "sources", len(bl.Sources))
		}
	}

	return report, nil
}

// collect gathers the distinct external URLs in all post bodies and the
// posts referencing each one.
func (c *Checker) collect(inv *content.Inventory) map[string][]string {
	targets := make(map[string][]string)
	for i := range inv.Posts {
		post := &inv.Posts[i]
		if len(post.Body) == 0 {
			continue
		}

		links, err := markdown.ExtractLinks(post.Body, markdown.Options{})
		if err != nil {
			slog.Debug("Skipping unparseable post body", "path", post.RelativePath, "error", err)
			continue
		}

		for _, l := range links {
			if !isExternal(l.Destination) {
				continue
			}
			if c.skipped(l.Destination) {
				c.rec.IncLinkCheck("skipped")
				continue
			}
			targets[l.Destination] = append(targets[l.Destination], post.RelativePath)
		}
	}

	for u, sources := range targets {
		targets[u] = dedupe(sources)
	}
	return targets
}

func isExternal(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func (c *Checker) skipped(raw string) bool {
	for _, pat := range c.cfg.SkipPatterns {
		if pat != "" && strings.Contains(raw, pat) {
			return true
		}
	}
	return false
}

func (c *Checker) fresh(v *Verdict) bool {
	return time.Since(v.LastChecked) < c.ttl
}

// check fetches one URL and folds the result into a verdict, carrying
// failure tracking over from any prior verdict.
func (c *Checker) check(ctx context.Context, rawURL string, prior *Verdict) *Verdict {
	status, err := c.request(ctx, rawURL)

	v := &Verdict{
		URL:         rawURL,
		Status:      status,
		OK:          err == nil,
		LastChecked: time.Now(),
	}
	if err == nil {
		c.rec.IncLinkCheck("ok")
		return v
	}

	v.Error = err.Error()
	v.FailureCount = 1
	v.FirstFailedAt = v.LastChecked
	if prior != nil && !prior.OK {
		v.FailureCount = prior.FailureCount + 1
		if !prior.FirstFailedAt.IsZero() {
			v.FirstFailedAt = prior.FirstFailedAt
		}
	}
	c.rec.IncLinkCheck("broken")
	return v
}

// request verifies a URL with HEAD, falling back to GET for servers
// that refuse HEAD before judging the link broken.
func (c *Checker) request(ctx context.Context, rawURL string) (int, error) {
	status, err := c.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return 0, err
	}

	if status == http.StatusNotFound || status == http.StatusMethodNotAllowed || status >= 500 {
		if getStatus, getErr := c.do(ctx, http.MethodGet, rawURL); getErr == nil {
			status = getStatus
		}
	}

	if acceptable(status) {
		return status, nil
	}
	return status, fmt.Errorf("HTTP %d", status)
}

func (c *Checker) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// acceptable reports whether a status proves the URL exists. Auth walls
// and rate limits mean the target is alive, just not talking to an
// anonymous checker.
func acceptable(status int) bool {
	if status < 400 {
		return true
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden,
		http.StatusMethodNotAllowed, http.StatusTooManyRequests:
		return true
	}
	return false
}

func dedupe(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	for i, s := range in {
		if i == 0 || s != in[i-1] {
			out = append(out, s)
		}
	}
	return out
}
