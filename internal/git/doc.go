// Package git wraps go-git operations against the blog checkout and its
// hosting submodule.
//
// This package handles:
//   - Opening working trees, including submodule checkouts whose .git is a
//     gitdir redirect file
//   - Worktree status summaries and stage-all
//   - Commits with configured or git-config author identities
//   - Pushes with authentication (SSH, token, basic) and retry on transient
//     failures
//   - Typed errors for structured classification upstream
package git
