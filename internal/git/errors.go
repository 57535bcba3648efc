package git

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Typed git errors enabling structured classification without string parsing
// upstream.

type AuthError struct {
	Op  string
	URL string
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s auth error for %s: %v", e.Op, e.URL, e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Op  string
	URL string
	Err error
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s not found %s: %v", e.Op, e.URL, e.Err) }
func (e *NotFoundError) Unwrap() error { return e.Err }

type UnsupportedProtocolError struct {
	Op  string
	URL string
	Err error
}

func (e *UnsupportedProtocolError) Error() string {
	return fmt.Sprintf("%s unsupported protocol %s: %v", e.Op, e.URL, e.Err)
}
func (e *UnsupportedProtocolError) Unwrap() error { return e.Err }

type RemoteDivergedError struct {
	Op     string
	URL    string
	Branch string
	Err    error
}

func (e *RemoteDivergedError) Error() string {
	return fmt.Sprintf("%s remote diverged %s@%s: %v", e.Op, e.URL, e.Branch, e.Err)
}
func (e *RemoteDivergedError) Unwrap() error { return e.Err }

// classifyPushError wraps push failures into typed variants when possible.
func classifyPushError(remote, branch string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed):
		return &AuthError{Op: "push", URL: remote, Err: err}
	case errors.Is(err, transport.ErrRepositoryNotFound):
		return &NotFoundError{Op: "push", URL: remote, Err: err}
	}

	l := strings.ToLower(err.Error())
	switch {
	case strings.Contains(l, "non-fast-forward"):
		return &RemoteDivergedError{Op: "push", URL: remote, Branch: branch, Err: err}
	case strings.Contains(l, "auth"):
		return &AuthError{Op: "push", URL: remote, Err: err}
	case strings.Contains(l, "not found") || strings.Contains(l, "repository does not exist"):
		return &NotFoundError{Op: "push", URL: remote, Err: err}
	case strings.Contains(l, "unsupported protocol") || strings.Contains(l, "unsupported scheme"):
		return &UnsupportedProtocolError{Op: "push", URL: remote, Err: err}
	default:
		return err
	}
}

// isPermanentGitError reports whether retrying the operation is pointless.
// A diverged remote needs manual reconciliation, so it counts as permanent.
func isPermanentGitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.As(err, new(*AuthError)) ||
		errors.As(err, new(*NotFoundError)) ||
		errors.As(err, new(*UnsupportedProtocolError)) ||
		errors.As(err, new(*RemoteDivergedError)) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "auth") || strings.Contains(msg, "permission") || strings.Contains(msg, "denied") {
		return true
	}
	if strings.Contains(msg, "not found") || strings.Contains(msg, "no such remote") || strings.Contains(msg, "invalid reference") {
		return true
	}
	if strings.Contains(msg, "unsupported protocol") {
		return true
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return !nerr.Timeout()
	}
	return false
}
