package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPath     = "path"
	KeyFile     = "file"
	KeySection  = "section"
	KeySlug     = "slug"
	KeyStage    = "stage"
	KeyDeployID = "deploy_id"
	KeyCommit   = "commit"
	KeyBranch   = "branch"
	KeyRemote   = "remote"
	KeyURL      = "url"
	KeyRule     = "rule"
	KeyError    = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Path(p string) slog.Attr      { return slog.String(KeyPath, p) }
func File(f string) slog.Attr      { return slog.String(KeyFile, f) }
func Section(s string) slog.Attr   { return slog.String(KeySection, s) }
func Slug(s string) slog.Attr      { return slog.String(KeySlug, s) }
func Stage(name string) slog.Attr  { return slog.String(KeyStage, name) }
func DeployID(id string) slog.Attr { return slog.String(KeyDeployID, id) }
func Commit(hash string) slog.Attr { return slog.String(KeyCommit, hash) }
func Branch(name string) slog.Attr { return slog.String(KeyBranch, name) }
func Remote(name string) slog.Attr { return slog.String(KeyRemote, name) }
func URL(u string) slog.Attr       { return slog.String(KeyURL, u) }
func Rule(name string) slog.Attr   { return slog.String(KeyRule, name) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
