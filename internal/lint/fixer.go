package lint

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"git.sr.ht/~rkb/blogbuilder/internal/content"
	"git.sr.ht/~rkb/blogbuilder/internal/frontmatter"
	"git.sr.ht/~rkb/blogbuilder/internal/logfields"
)

// Fixer applies the safe subset of lint fixes. Today that is adding missing
// uids; filename problems are report-only since renames change URLs.
type Fixer struct{}

// FixResult reports what a fix pass changed.
type FixResult struct {
	UIDsAdded    int
	FilesChanged []string
}

// AddMissingUIDs writes a fresh uid into every post that lacks one. Posts
// with broken front matter are left alone; rewriting them could destroy
// content the author still wants. Existing uids are never replaced, even
// invalid ones.
func (f *Fixer) AddMissingUIDs(inv *content.Inventory) (*FixResult, error) {
	res := &FixResult{}
	var merr *multierror.Error

	for i := range inv.Posts {
		post := &inv.Posts[i]
		if post.IsIndex || post.MetaError != nil {
			continue
		}
		if post.Meta.UID != "" {
			continue
		}
		fields := post.Meta.Fields()
		if fields == nil || !post.HasMeta {
			fields = map[string]any{}
		}
		if v, ok := fields[frontmatter.KeyUID]; ok && v != nil {
			if _, isStr := v.(string); !isStr {
				// Non-string uid is the uid rule's problem, not safe to overwrite.
				continue
			}
			// Empty string falls through and gets filled in.
		}

		style := post.Style
		if style.Newline == "" {
			style.Newline = "\n"
		}
		fields[frontmatter.KeyUID] = uuid.NewString()

		meta, err := frontmatter.SerializeYAML(fields, style)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: serialize front matter: %w", post.RelativePath, err))
			continue
		}
		data := frontmatter.Join(meta, post.Body, true, style)
		if err := os.WriteFile(post.Path, data, 0o644); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", post.RelativePath, err))
			continue
		}

		res.UIDsAdded++
		res.FilesChanged = append(res.FilesChanged, post.RelativePath)
		slog.Debug("Added uid", logfields.File(post.RelativePath))
	}

	return res, merr.ErrorOrNil()
}
