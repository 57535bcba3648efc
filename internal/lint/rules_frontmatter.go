package lint

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"git.sr.ht/~rkb/blogbuilder/internal/content"
	"git.sr.ht/~rkb/blogbuilder/internal/frontmatter"
)

// FrontMatterRule checks that posts carry parseable front matter.
type FrontMatterRule struct{}

func (r *FrontMatterRule) Name() string { return "front-matter" }

func (r *FrontMatterRule) AppliesTo(*content.Post) bool { return true }

func (r *FrontMatterRule) Check(_ *Target, post *content.Post) []Issue {
	if post.MetaError != nil {
		return []Issue{{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  fmt.Sprintf("Front matter is not parseable: %v", post.MetaError),
			Fix:      "correct the YAML between the --- delimiters",
		}}
	}
	if !post.HasMeta && !post.IsIndex {
		return []Issue{{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  "Missing front matter",
			Fix:      "add a --- delimited YAML block with at least title and date",
		}}
	}
	return nil
}

// RequiredFieldsRule checks that configured front matter fields are present
// and non-empty.
type RequiredFieldsRule struct {
	Fields []string
}

func (r *RequiredFieldsRule) Name() string { return "required-fields" }

func (r *RequiredFieldsRule) AppliesTo(post *content.Post) bool {
	return !post.IsIndex && post.HasMeta && post.MetaError == nil
}

func (r *RequiredFieldsRule) Check(_ *Target, post *content.Post) []Issue {
	var issues []Issue
	fields := post.Meta.Fields()
	for _, field := range r.Fields {
		v, ok := fields[field]
		if !ok {
			issues = append(issues, Issue{
				File:     post.RelativePath,
				Severity: SeverityError,
				Rule:     r.Name(),
				Message:  fmt.Sprintf("Missing required field %q", field),
				Fix:      fmt.Sprintf("add %s to the front matter", field),
			})
			continue
		}
		if v == nil {
			issues = append(issues, Issue{
				File:     post.RelativePath,
				Severity: SeverityError,
				Rule:     r.Name(),
				Message:  fmt.Sprintf("Required field %q is empty", field),
				Fix:      fmt.Sprintf("give %s a value", field),
			})
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			issues = append(issues, Issue{
				File:     post.RelativePath,
				Severity: SeverityError,
				Rule:     r.Name(),
				Message:  fmt.Sprintf("Required field %q is empty", field),
				Fix:      fmt.Sprintf("give %s a value", field),
			})
		}
	}
	return issues
}

// DateRule checks that a present date field parses.
type DateRule struct{}

func (r *DateRule) Name() string { return "date-format" }

func (r *DateRule) AppliesTo(post *content.Post) bool {
	return !post.IsIndex && post.HasMeta && post.MetaError == nil && post.Meta.Has(frontmatter.KeyDate)
}

func (r *DateRule) Check(_ *Target, post *content.Post) []Issue {
	if _, err := frontmatter.ParseDate(post.Meta.Fields()[frontmatter.KeyDate]); err != nil {
		return []Issue{{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  fmt.Sprintf("Date is not parseable: %v", err),
			Fix:      "use an ISO date such as 2024-05-04 or 2024-05-04T09:00:00+02:00",
		}}
	}
	return nil
}

// TaxonomyRule checks that tags and categories are lists of strings.
type TaxonomyRule struct{}

func (r *TaxonomyRule) Name() string { return "taxonomy-lists" }

func (r *TaxonomyRule) AppliesTo(post *content.Post) bool {
	return post.HasMeta && post.MetaError == nil &&
		(post.Meta.Has(frontmatter.KeyTags) || post.Meta.Has(frontmatter.KeyCategories))
}

func (r *TaxonomyRule) Check(_ *Target, post *content.Post) []Issue {
	var issues []Issue
	fields := post.Meta.Fields()
	for _, key := range []string{frontmatter.KeyTags, frontmatter.KeyCategories} {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		switch vv := v.(type) {
		case []any:
			for _, item := range vv {
				if _, ok := item.(string); !ok {
					issues = append(issues, Issue{
						File:     post.RelativePath,
						Severity: SeverityError,
						Rule:     r.Name(),
						Message:  fmt.Sprintf("%s entries must be strings, found %T", key, item),
						Fix:      fmt.Sprintf("quote every %s entry", key),
					})
					break
				}
			}
		case string:
			issues = append(issues, Issue{
				File:     post.RelativePath,
				Severity: SeverityWarning,
				Rule:     r.Name(),
				Message:  fmt.Sprintf("%s should be a list, not a bare string", key),
				Fix:      fmt.Sprintf("write %s:\n  - %s", key, vv),
			})
		default:
			issues = append(issues, Issue{
				File:     post.RelativePath,
				Severity: SeverityError,
				Rule:     r.Name(),
				Message:  fmt.Sprintf("%s must be a list of strings, found %T", key, v),
				Fix:      fmt.Sprintf("rewrite %s as a YAML list", key),
			})
		}
	}
	return issues
}

// UIDRule checks uid well-formedness, and presence when lint.require_uid is
// set. The uid gives a post a stable identity across renames.
type UIDRule struct {
	Required bool
}

func (r *UIDRule) Name() string { return "uid" }

func (r *UIDRule) AppliesTo(post *content.Post) bool {
	return !post.IsIndex && post.MetaError == nil
}

func (r *UIDRule) Check(_ *Target, post *content.Post) []Issue {
	v, ok := post.Meta.Fields()[frontmatter.KeyUID]
	if !ok || v == nil {
		if !r.Required {
			return nil
		}
		return []Issue{{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  "Missing uid",
			Fix:      "run blogbuilder lint --fix to add one",
		}}
	}
	s, ok := v.(string)
	if !ok {
		return []Issue{{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  fmt.Sprintf("uid must be a string, got %T", v),
			Fix:      "quote the uid value",
		}}
	}
	s = strings.TrimSpace(s)
	if s == "" {
		if !r.Required {
			return nil
		}
		return []Issue{{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  "Missing uid",
			Fix:      "run blogbuilder lint --fix to add one",
		}}
	}
	if _, err := uuid.Parse(s); err != nil {
		return []Issue{{
			File:     post.RelativePath,
			Severity: SeverityError,
			Rule:     r.Name(),
			Message:  fmt.Sprintf("uid %q is not a valid UUID", s),
			Fix:      "replace it with a UUID, e.g. from uuidgen",
		}}
	}
	return nil
}
