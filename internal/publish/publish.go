// Package publish pushes the rendered site to its hosting repository.
//
// The hosting checkout (usually the public/ submodule) gets every change
// staged, committed with a templated or overridden message, and pushed to
// the configured remote branch. A clean checkout publishes as a no-op.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/go-git/go-git/v5/plumbing/object"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/git"
	"git.sr.ht/~rkb/blogbuilder/internal/logfields"
	"git.sr.ht/~rkb/blogbuilder/internal/retry"
)

// Outcome states what publishing actually did.
type Outcome string

const (
	OutcomePublished Outcome = "published"
	OutcomeNoChanges Outcome = "no_changes"
)

// Record describes a completed publish.
type Record struct {
	Outcome      Outcome
	CommitHash   string
	Message      string
	FilesChanged int
	Remote       string
	Branch       string
	RemoteURL    string
}

// Publisher publishes the hosting checkout per the publish configuration.
type Publisher struct {
	cfg *config.Config
}

// New creates a Publisher for the given configuration.
func New(cfg *config.Config) *Publisher {
	return &Publisher{cfg: cfg}
}

// Publish stages, commits, and pushes the hosting checkout.
//
// override, when non-empty, replaces the configured message template.
// A clean checkout returns OutcomeNoChanges without committing or pushing.
// Any failing step aborts the rest of the sequence.
func (p *Publisher) Publish(ctx context.Context, override string) (*Record, error) {
	pubPath := p.cfg.PublicPath()
	pc := p.cfg.Publish

	client, err := git.Open(pubPath)
	if err != nil {
		return nil, fmt.Errorf("hosting checkout %s: %w", pubPath, err)
	}

	remoteURL, err := client.RemoteURL(pc.Remote)
	if err != nil {
		return nil, fmt.Errorf("hosting checkout %s: %w", pubPath, err)
	}

	if err := client.StageAll(); err != nil {
		return nil, err
	}

	status, err := client.Status()
	if err != nil {
		return nil, err
	}
	if status.Clean {
		slog.Info("Nothing to publish, hosting checkout is clean",
			logfields.Path(pubPath),
			logfields.Remote(pc.Remote))
		return &Record{
			Outcome:   OutcomeNoChanges,
			Remote:    pc.Remote,
			Branch:    pc.Branch,
			RemoteURL: remoteURL,
		}, nil
	}

	message, err := commitMessage(pc.MessageTemplate, override, time.Now())
	if err != nil {
		return nil, err
	}

	hash, err := client.Commit(message, signature(pc.Author))
	if err != nil {
		return nil, err
	}
	slog.Info("Committed site changes",
		logfields.Commit(hash[:8]),
		slog.Int("files", status.Staged),
		slog.String("message", message))

	pushOpts := git.PushOptions{
		Remote: pc.Remote,
		Branch: pc.Branch,
		Auth:   pc.Auth,
		Policy: retry.FromPublishConfig(pc),
	}
	if err := client.PushBranch(ctx, pushOpts); err != nil {
		return nil, err
	}
	slog.Info("Pushed site",
		logfields.Remote(pc.Remote),
		logfields.Branch(pc.Branch),
		logfields.URL(remoteURL))

	if pc.StagePointer {
		if err := p.stageParentPointer(hash); err != nil {
			return nil, err
		}
	}

	return &Record{
		Outcome:      OutcomePublished,
		CommitHash:   hash,
		Message:      message,
		FilesChanged: status.Staged,
		Remote:       pc.Remote,
		Branch:       pc.Branch,
		RemoteURL:    remoteURL,
	}, nil
}

// stageParentPointer stages the updated submodule pointer in the site
// repository. The commit stays with the author, matching how the original
// workflow treated the parent checkout.
func (p *Publisher) stageParentPointer(hash string) error {
	parent, err := git.Open(p.cfg.Site.Root)
	if err != nil {
		return fmt.Errorf("site repository %s: %w", p.cfg.Site.Root, err)
	}
	if err := parent.Stage(p.cfg.Site.PublicDir); err != nil {
		return fmt.Errorf("staging submodule pointer: %w", err)
	}
	slog.Info("Staged submodule pointer in site repository",
		logfields.Path(p.cfg.Site.Root),
		logfields.Commit(hash[:8]))
	return nil
}

// commitMessage renders the configured template, or returns the override
// verbatim when one was given on the command line.
func commitMessage(tmpl, override string, now time.Time) (string, error) {
	if strings.TrimSpace(override) != "" {
		return override, nil
	}
	if tmpl == "" {
		tmpl = config.DefaultMessageTemplate
	}

	t, err := template.New("message").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parsing message template: %w", err)
	}

	data := struct {
		Date string
	}{
		Date: now.Format(time.UnixDate),
	}

	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering message template: %w", err)
	}
	return sb.String(), nil
}

func signature(a config.AuthorConfig) *object.Signature {
	if a.Name == "" && a.Email == "" {
		return nil
	}
	return &object.Signature{Name: a.Name, Email: a.Email, When: time.Now()}
}
