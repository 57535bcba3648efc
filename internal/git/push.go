package git

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitcfg "github.com/go-git/go-git/v5/config"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/logfields"
	"git.sr.ht/~rkb/blogbuilder/internal/retry"
)

// PushOptions configures a branch push.
type PushOptions struct {
	Remote string
	Branch string
	Auth   *config.AuthConfig
	Policy retry.Policy
}

// PushBranch pushes the given branch to the remote, retrying transient
// failures per the policy. An up-to-date remote is success.
func (c *Client) PushBranch(ctx context.Context, opts PushOptions) error {
	auth, err := authMethod(opts.Auth)
	if err != nil {
		return err
	}

	refSpec := gitcfg.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", opts.Branch, opts.Branch))

	return withRetry(ctx, opts.Policy, "push", func(ctx context.Context) error {
		err := c.repo.PushContext(ctx, &gogit.PushOptions{
			RemoteName: opts.Remote,
			RefSpecs:   []gitcfg.RefSpec{refSpec},
			Auth:       auth,
		})
		if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
			slog.Debug("Remote already up to date",
				logfields.Remote(opts.Remote),
				logfields.Branch(opts.Branch))
			return nil
		}
		return classifyPushError(opts.Remote, opts.Branch, err)
	})
}

// withRetry runs fn, retrying transient failures with backoff delays from the
// policy. Permanent failures and context cancellation stop immediately.
func withRetry(ctx context.Context, pol retry.Policy, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= pol.MaxRetries; attempt++ {
		if attempt > 0 {
			slog.Warn("Retrying git operation",
				slog.String("operation", op),
				slog.Int("attempt", attempt))
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if isPermanentGitError(err) {
			slog.Error("Permanent git error",
				slog.String("operation", op),
				logfields.Error(err))
			return err
		}
		if attempt == pol.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pol.Delay(attempt + 1)):
		}
	}
	if pol.MaxRetries > 0 {
		return fmt.Errorf("git %s failed after %d retries: %w", op, pol.MaxRetries, lastErr)
	}
	return lastErr
}
