// Package pages reports the GitHub Pages state of the hosting
// repository. Publishing pushes commits to a Pages-backed repo; this
// client tells the status command what is live and lets a deploy wait
// until the pushed commit has actually been built.
package pages

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/go-github/v43/github"
	"github.com/gregjones/httpcache"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/peterbourgon/diskv"
	"golang.org/x/oauth2"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
)

// Build states reported by the Pages API.
const (
	StatusQueued   = "queued"
	StatusBuilding = "building"
	StatusBuilt    = "built"
	StatusErrored  = "errored"
)

// BuildStatus is the state of one Pages build of the hosting repository.
type BuildStatus struct {
	Status    string
	Commit    string
	Duration  time.Duration
	CreatedAt time.Time
	UpdatedAt time.Time
	Error     string // populated when Status is errored
}

// Built reports whether the build finished successfully.
func (b *BuildStatus) Built() bool { return b.Status == StatusBuilt }

// SiteInfo describes the Pages site serving the blog.
type SiteInfo struct {
	URL    string
	Status string
	CNAME  string
}

// Client queries the GitHub Pages deployment state of one repository.
type Client struct {
	gh    *github.Client
	owner string
	repo  string
}

// New builds a Pages client for the configured hosting repository. The
// token comes from the environment variable named in the config; the
// HTTP layer caches conditional responses on disk so repeated status
// calls cost no rate limit.
func New(ctx context.Context, pc *config.PagesConfig) (*Client, error) {
	if pc == nil {
		return nil, errors.New("pages is not configured")
	}

	token := os.Getenv(pc.TokenEnv)
	if token == "" {
		return nil, fmt.Errorf("environment variable %s is empty, a token with Pages read access is required", pc.TokenEnv)
	}

	cacheDir := pc.CacheDir
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			base = os.TempDir()
		}
		cacheDir = filepath.Join(base, "blogbuilder", "pages-http")
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	base := oauth2.NewClient(ctx, ts).Transport

	flatTransform := func(s string) []string { return []string{} }
	d := diskv.New(diskv.Options{
		BasePath:     cacheDir,
		Transform:    flatTransform,
		CacheSizeMax: 64 * 1024 * 1024,
	})

	cached := &httpcache.Transport{
		Transport:           base,
		Cache:               diskcache.NewWithDiskv(d),
		MarkCachedResponses: true,
	}

	return &Client{
		gh:    github.NewClient(cached.Client()),
		owner: pc.Owner,
		repo:  pc.Repo,
	}, nil
}

// LatestBuild returns the most recent Pages build of the hosting
// repository.
func (c *Client) LatestBuild(ctx context.Context) (*BuildStatus, error) {
	build, _, err := c.gh.Repositories.GetLatestPagesBuild(ctx, c.owner, c.repo)
	if err != nil {
		return nil, fmt.Errorf("query latest pages build for %s/%s: %w", c.owner, c.repo, err)
	}

	bs := &BuildStatus{
		Status:    build.GetStatus(),
		Commit:    build.GetCommit(),
		Duration:  time.Duration(build.GetDuration()) * time.Millisecond,
		CreatedAt: build.GetCreatedAt().Time,
		UpdatedAt: build.GetUpdatedAt().Time,
	}
	if pe := build.GetError(); pe != nil {
		bs.Error = pe.GetMessage()
	}
	return bs, nil
}

// Site returns the Pages site serving the hosting repository.
func (c *Client) Site(ctx context.Context) (*SiteInfo, error) {
	info, _, err := c.gh.Repositories.GetPagesInfo(ctx, c.owner, c.repo)
	if err != nil {
		return nil, fmt.Errorf("query pages site for %s/%s: %w", c.owner, c.repo, err)
	}

	return &SiteInfo{
		URL:    info.GetHTMLURL(),
		Status: info.GetStatus(),
		CNAME:  info.GetCNAME(),
	}, nil
}

// AwaitBuild polls until Pages reports the given commit as built. A
// build of that commit ending errored fails immediately; anything else,
// including builds of older commits, keeps polling until ctx expires.
func (c *Client) AwaitBuild(ctx context.Context, commit string, interval time.Duration) (*BuildStatus, error) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		bs, err := c.LatestBuild(ctx)
		if err != nil {
			return nil, err
		}
		if bs.Commit == commit {
			switch bs.Status {
			case StatusBuilt:
				return bs, nil
			case StatusErrored:
				return nil, fmt.Errorf("pages build of %.8s failed: %s", commit, bs.Error)
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
