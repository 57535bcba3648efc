package git

import (
	"fmt"
	"log/slog"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.sr.ht/~rkb/blogbuilder/internal/logfields"
)

// Client performs Git operations against a single checked-out repository.
type Client struct {
	path string
	repo *gogit.Repository
}

// Open opens the repository at path. Submodule checkouts, whose .git entry is
// a gitdir redirect file, open the same way.
func Open(path string) (*Client, error) {
	repo, err := gogit.PlainOpen(path)
	if err != nil {
		if err == gogit.ErrRepositoryNotExists {
			return nil, &NotFoundError{Op: "open", URL: path, Err: err}
		}
		return nil, fmt.Errorf("opening repository %s: %w", path, err)
	}
	return &Client{path: path, repo: repo}, nil
}

// Path returns the working tree path the client was opened on.
func (c *Client) Path() string {
	return c.path
}

// StatusSummary condenses worktree state into what the publish flow needs.
type StatusSummary struct {
	Clean     bool
	Staged    int
	Unstaged  int
	Untracked int
}

func (s StatusSummary) String() string {
	if s.Clean {
		return "clean"
	}
	return fmt.Sprintf("%d staged, %d unstaged, %d untracked", s.Staged, s.Unstaged, s.Untracked)
}

// Status summarizes the worktree.
func (c *Client) Status() (StatusSummary, error) {
	wt, err := c.repo.Worktree()
	if err != nil {
		return StatusSummary{}, fmt.Errorf("worktree for %s: %w", c.path, err)
	}
	status, err := wt.Status()
	if err != nil {
		return StatusSummary{}, fmt.Errorf("status for %s: %w", c.path, err)
	}

	summary := StatusSummary{Clean: status.IsClean()}
	for _, fs := range status {
		switch {
		case fs.Worktree == gogit.Untracked:
			summary.Untracked++
		default:
			if fs.Staging != gogit.Unmodified {
				summary.Staged++
			}
			if fs.Worktree != gogit.Unmodified {
				summary.Unstaged++
			}
		}
	}
	return summary, nil
}

// StageAll stages every change in the worktree, deletions and untracked
// files included. Equivalent to `git add -A`.
func (c *Client) StageAll() error {
	wt, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree for %s: %w", c.path, err)
	}
	if err := wt.AddWithOptions(&gogit.AddOptions{All: true}); err != nil {
		return fmt.Errorf("staging changes in %s: %w", c.path, err)
	}
	return nil
}

// Stage stages a single path, which may be a file, a directory, or a
// submodule entry.
func (c *Client) Stage(path string) error {
	wt, err := c.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree for %s: %w", c.path, err)
	}
	if _, err := wt.Add(path); err != nil {
		return fmt.Errorf("staging %s in %s: %w", path, c.path, err)
	}
	return nil
}

// Commit records the staged changes. A nil author falls back to the identity
// in git config, matching what a manual `git commit` would use.
func (c *Client) Commit(message string, author *object.Signature) (string, error) {
	wt, err := c.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree for %s: %w", c.path, err)
	}

	if author != nil && author.When.IsZero() {
		author.When = time.Now()
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: author})
	if err != nil {
		return "", fmt.Errorf("committing in %s: %w", c.path, err)
	}

	slog.Debug("Created commit", logfields.Commit(hash.String()[:8]), logfields.Path(c.path))
	return hash.String(), nil
}

// HeadInfo describes the current HEAD commit.
type HeadInfo struct {
	Branch  string
	Hash    string
	Message string
	Author  string
	When    time.Time
}

// ShortHash returns the abbreviated commit hash.
func (h HeadInfo) ShortHash() string {
	if len(h.Hash) < 8 {
		return h.Hash
	}
	return h.Hash[:8]
}

// RemoteURL returns the first URL of the named remote.
func (c *Client) RemoteURL(name string) (string, error) {
	remote, err := c.repo.Remote(name)
	if err != nil {
		return "", &NotFoundError{Op: "remote", URL: name, Err: err}
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %s has no URL configured", name)
	}
	return urls[0], nil
}

// Head resolves the current HEAD reference and commit.
func (c *Client) Head() (HeadInfo, error) {
	ref, err := c.repo.Head()
	if err != nil {
		return HeadInfo{}, fmt.Errorf("resolving HEAD of %s: %w", c.path, err)
	}

	info := HeadInfo{
		Branch: ref.Name().Short(),
		Hash:   ref.Hash().String(),
	}

	commit, err := c.repo.CommitObject(ref.Hash())
	if err != nil {
		return info, nil
	}
	info.Message = commit.Message
	info.Author = commit.Author.Name
	info.When = commit.Author.When
	return info, nil
}
