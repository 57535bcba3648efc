package content

import (
	"strings"
	"time"

	"git.sr.ht/~rkb/blogbuilder/internal/frontmatter"
)

// Status classifies a post's publication state at a point in time.
type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
)

// Post represents a discovered Markdown post.
type Post struct {
	Path         string // absolute path to the file
	RelativePath string // path relative to the content directory
	Section      string // directory under content, "" for root
	Filename     string // base name including extension
	Slug         string // front matter slug or slugified filename stem
	IsIndex      bool   // _index.md section pages

	Meta    frontmatter.PostMeta
	Style   frontmatter.Style
	HasMeta bool
	Body    []byte

	WordCount int

	// MetaError records a front matter parse failure. Posts with broken
	// front matter stay in the inventory so lint can report them.
	MetaError error
}

// StatusAt classifies the post relative to now. Drafts win over scheduling.
func (p *Post) StatusAt(now time.Time) Status {
	if p.Meta.Draft {
		return StatusDraft
	}
	if !p.Meta.Date.IsZero() && p.Meta.Date.After(now) {
		return StatusScheduled
	}
	return StatusPublished
}

// Title returns the front matter title, falling back to the slug.
func (p *Post) Title() string {
	if p.Meta.Title != "" {
		return p.Meta.Title
	}
	return p.Slug
}

func countWords(body []byte) int {
	return len(strings.Fields(string(body)))
}
