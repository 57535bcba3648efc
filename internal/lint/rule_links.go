package lint

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~rkb/blogbuilder/internal/content"
	"git.sr.ht/~rkb/blogbuilder/internal/markdown"
)

// LinkRule checks that internal links in post bodies resolve to existing
// content or static files. External URLs are the link checker's job, not the
// linter's.
type LinkRule struct{}

func (r *LinkRule) Name() string { return "internal-links" }

func (r *LinkRule) AppliesTo(post *content.Post) bool { return len(post.Body) > 0 }

func (r *LinkRule) Check(t *Target, post *content.Post) []Issue {
	links, err := markdown.ExtractLinks(post.Body, markdown.Options{})
	if err != nil {
		return nil
	}
	var issues []Issue
	for _, link := range links {
		ref, ok := internalRef(link.Destination)
		if !ok {
			continue
		}
		if r.resolves(t, post, ref) {
			continue
		}
		issues = append(issues, Issue{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  fmt.Sprintf("Broken internal link: %s", link.Destination),
			Fix:      "create the target or fix the path",
		})
	}
	return issues
}

// internalRef extracts the path component of site-internal destinations.
func internalRef(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" || u.Path == "" {
		return "", false
	}
	return u.Path, true
}

// resolves checks a single internal reference. Absolute paths with an
// extension must exist under static/ (or content/ for raw markdown links);
// relative paths with an extension resolve against the post's directory.
// Extensionless paths are treated as pretty URLs and must match a known
// section or post slug. Relative pretty URLs are skipped; they depend on
// Hugo's URL layout and reporting them would mostly be noise.
func (r *LinkRule) resolves(t *Target, post *content.Post, ref string) bool {
	hasExt := filepath.Ext(strings.TrimSuffix(ref, "/")) != ""

	if hasExt {
		rel := filepath.FromSlash(strings.TrimPrefix(ref, "/"))
		if strings.HasPrefix(ref, "/") {
			return fileExists(filepath.Join(t.Config.StaticPath(), rel)) ||
				fileExists(filepath.Join(t.Config.ContentPath(), rel))
		}
		return fileExists(filepath.Join(filepath.Dir(post.Path), rel))
	}

	if !strings.HasPrefix(ref, "/") {
		return true
	}
	trimmed := strings.Trim(ref, "/")
	if trimmed == "" {
		return true
	}
	segs := strings.Split(trimmed, "/")
	// Taxonomy pages are generated by Hugo and have no source file to check.
	if segs[0] == "tags" || segs[0] == "categories" {
		return true
	}
	switch len(segs) {
	case 1:
		for _, section := range t.Inventory.Sections() {
			if section == segs[0] {
				return true
			}
		}
		for i := range t.Inventory.Posts {
			p := &t.Inventory.Posts[i]
			if p.Section == "" && p.Slug == segs[0] {
				return true
			}
		}
	case 2:
		for i := range t.Inventory.Posts {
			p := &t.Inventory.Posts[i]
			if p.Section == segs[0] && p.Slug == segs[1] {
				return true
			}
		}
	}
	return false
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
