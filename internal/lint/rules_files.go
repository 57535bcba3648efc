package lint

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"git.sr.ht/~rkb/blogbuilder/internal/content"
)

// FilenameRule validates that post filenames stay lowercase, space-free and
// limited to characters that survive URLs and shells.
type FilenameRule struct{}

func (r *FilenameRule) Name() string { return "filename-conventions" }

func (r *FilenameRule) AppliesTo(*content.Post) bool { return true }

func (r *FilenameRule) Check(_ *Target, post *content.Post) []Issue {
	filename := post.Filename
	var issues []Issue

	if hasUppercase(filename) {
		issues = append(issues, Issue{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  "Filename contains uppercase letters",
			Fix:      "rename to " + suggestFilename(filename),
		})
	}
	if strings.Contains(filename, " ") {
		issues = append(issues, Issue{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  "Filename contains spaces",
			Fix:      "rename to " + suggestFilename(filename),
		})
	}
	if chars := specialChars(filename); len(chars) > 0 {
		issues = append(issues, Issue{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  "Filename contains unsupported characters: " + strings.Join(chars, " "),
			Fix:      "rename to " + suggestFilename(filename),
		})
	}
	return issues
}

func hasUppercase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// specialChars returns the distinct characters outside [a-z0-9._-] and space
// (spaces and uppercase have their own checks).
func specialChars(s string) []string {
	seen := map[rune]struct{}{}
	var out []string
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-' || r == ' ':
		default:
			if _, ok := seen[r]; !ok {
				seen[r] = struct{}{}
				out = append(out, string(r))
			}
		}
	}
	return out
}

// suggestFilename proposes a slugified replacement keeping the extension.
func suggestFilename(filename string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	slug := content.Slugify(stem)
	if slug == "" {
		slug = "post"
	}
	return slug + strings.ToLower(ext)
}

// DuplicateSlugRule reports posts whose section and slug collide with another
// post; Hugo would let one page silently shadow the other.
type DuplicateSlugRule struct{}

func (r *DuplicateSlugRule) Name() string { return "duplicate-slugs" }

func (r *DuplicateSlugRule) AppliesTo(post *content.Post) bool { return !post.IsIndex }

func (r *DuplicateSlugRule) Check(t *Target, post *content.Post) []Issue {
	key := post.Section + "/" + post.Slug
	paths, ok := t.Duplicates[key]
	if !ok {
		return nil
	}
	others := make([]string, 0, len(paths)-1)
	for _, p := range paths {
		if p != post.RelativePath {
			others = append(others, p)
		}
	}
	return []Issue{{
		File:     post.RelativePath,
		Severity: SeverityError,
		Rule:     r.Name(),
		Message:  fmt.Sprintf("Slug %q is also claimed by %s", post.Slug, strings.Join(others, ", ")),
		Fix:      "set a distinct slug in the front matter of one of the posts",
	}}
}
