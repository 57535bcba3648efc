package git

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/retry"
)

func fastPolicy(maxRetries int) retry.Policy {
	return retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, 5*time.Millisecond, maxRetries)
}

func TestWithRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastPolicy(3), "push", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestWithRetry_PermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	permanent := &AuthError{Op: "push", URL: "origin", Err: errors.New("authentication required")}
	err := withRetry(context.Background(), fastPolicy(5), "push", func(context.Context) error {
		calls++
		return permanent
	})
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestWithRetry_ExhaustionWrapsLastError(t *testing.T) {
	calls := 0
	err := withRetry(context.Background(), fastPolicy(2), "push", func(context.Context) error {
		calls++
		return errors.New("connection reset by peer")
	})
	if calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", calls)
	}
	if err == nil {
		t.Fatalf("expected error after exhaustion")
	}
	if got := err.Error(); got == "connection reset by peer" {
		t.Fatalf("expected wrapped retries error, got bare %q", got)
	}
}

func TestWithRetry_ContextCancellationStopsDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pol := retry.NewPolicy(config.RetryBackoffFixed, time.Minute, time.Minute, 2)
	err := withRetry(ctx, pol, "push", func(context.Context) error {
		return errors.New("connection reset by peer")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestClassifyPushError(t *testing.T) {
	if classifyPushError("origin", "master", nil) != nil {
		t.Fatalf("nil should classify to nil")
	}

	err := classifyPushError("origin", "master", transport.ErrAuthenticationRequired)
	if _, ok := err.(*AuthError); !ok {
		t.Fatalf("expected AuthError, got %T", err)
	}

	err = classifyPushError("origin", "master", transport.ErrRepositoryNotFound)
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected NotFoundError, got %T", err)
	}

	err = classifyPushError("origin", "master", errors.New("non-fast-forward update: refs/heads/master"))
	var diverged *RemoteDivergedError
	if !errors.As(err, &diverged) {
		t.Fatalf("expected RemoteDivergedError, got %T", err)
	}
	if diverged.Branch != "master" {
		t.Fatalf("expected branch master, got %q", diverged.Branch)
	}

	err = classifyPushError("origin", "master", errors.New("unsupported protocol sftp"))
	if _, ok := err.(*UnsupportedProtocolError); !ok {
		t.Fatalf("expected UnsupportedProtocolError, got %T", err)
	}

	plain := errors.New("weird failure")
	if classifyPushError("origin", "master", plain) != plain {
		t.Fatalf("unknown errors should pass through unchanged")
	}
}

func TestIsPermanentGitError(t *testing.T) {
	cases := []struct {
		err       error
		permanent bool
	}{
		{nil, false},
		{errors.New("connection reset by peer"), false},
		{errors.New("remote: permission denied"), true},
		{errors.New("repository not found"), true},
		{errors.New("unsupported protocol"), true},
		{&RemoteDivergedError{Op: "push", URL: "origin", Branch: "master", Err: errors.New("x")}, true},
	}
	for _, c := range cases {
		if got := isPermanentGitError(c.err); got != c.permanent {
			t.Fatalf("isPermanentGitError(%v) = %v, want %v", c.err, got, c.permanent)
		}
	}
}

func TestAuthMethod(t *testing.T) {
	if m, err := authMethod(nil); err != nil || m != nil {
		t.Fatalf("nil config should produce nil method, got %v, %v", m, err)
	}
	if m, err := authMethod(&config.AuthConfig{Type: "none"}); err != nil || m != nil {
		t.Fatalf("none should produce nil method, got %v, %v", m, err)
	}

	if _, err := authMethod(&config.AuthConfig{Type: "token"}); err == nil {
		t.Fatalf("token without token should fail")
	}
	m, err := authMethod(&config.AuthConfig{Type: "token", Token: "s3cret"})
	if err != nil {
		t.Fatalf("token auth: %v", err)
	}
	basic, ok := m.(*githttp.BasicAuth)
	if !ok || basic.Username != "token" || basic.Password != "s3cret" {
		t.Fatalf("unexpected token method: %#v", m)
	}

	if _, err := authMethod(&config.AuthConfig{Type: "basic", Username: "u"}); err == nil {
		t.Fatalf("basic without password should fail")
	}
	m, err = authMethod(&config.AuthConfig{Type: "basic", Username: "u", Password: "p"})
	if err != nil {
		t.Fatalf("basic auth: %v", err)
	}
	if b, ok := m.(*githttp.BasicAuth); !ok || b.Username != "u" {
		t.Fatalf("unexpected basic method: %#v", m)
	}

	if _, err := authMethod(&config.AuthConfig{Type: "kerberos"}); err == nil {
		t.Fatalf("unsupported type should fail")
	}
}
