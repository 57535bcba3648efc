package frontmatter

import (
	"fmt"
	"time"
)

// Front matter keys the typed view understands. Posts may carry any number
// of additional keys; those survive untouched in the underlying fields map.
const (
	KeyTitle      = "title"
	KeyDate       = "date"
	KeyDraft      = "draft"
	KeyTags       = "tags"
	KeyCategories = "categories"
	KeySlug       = "slug"
	KeySummary    = "summary"
	KeyAliases    = "aliases"
	KeyUID        = "uid"
)

// DateLayouts lists the accepted layouts for string-valued dates, tried in
// order. Unquoted ISO-style dates arrive as time.Time straight from the YAML
// decoder and skip this list.
var DateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// PostMeta is a typed, read-only view over a post's front matter fields.
//
// Construction is tolerant: missing or differently-typed values leave the
// corresponding field at its zero value. The original mapping is retained in
// full, so unknown keys are never lost.
type PostMeta struct {
	Title      string
	Date       time.Time
	Draft      bool
	Tags       []string
	Categories []string
	Slug       string
	Summary    string
	Aliases    []string
	UID        string

	fields map[string]any
}

// MetaFromFields builds the typed view from a parsed front matter map.
func MetaFromFields(fields map[string]any) PostMeta {
	if fields == nil {
		fields = map[string]any{}
	}

	m := PostMeta{fields: fields}
	m.Title, _ = stringValue(fields[KeyTitle])
	m.Slug, _ = stringValue(fields[KeySlug])
	m.Summary, _ = stringValue(fields[KeySummary])
	m.UID, _ = stringValue(fields[KeyUID])
	m.Tags = stringListValue(fields[KeyTags])
	m.Categories = stringListValue(fields[KeyCategories])
	m.Aliases = stringListValue(fields[KeyAliases])

	if draft, ok := fields[KeyDraft].(bool); ok {
		m.Draft = draft
	}
	if date, err := ParseDate(fields[KeyDate]); err == nil {
		m.Date = date
	}

	return m
}

// ParseMeta parses raw front matter bytes into the typed view.
func ParseMeta(meta []byte) (PostMeta, error) {
	fields, err := ParseYAML(meta)
	if err != nil {
		return PostMeta{}, err
	}
	return MetaFromFields(fields), nil
}

// Fields returns the mapping the view was built from, unknown keys included.
// Mutations to the returned map are visible to later Fields calls.
func (m PostMeta) Fields() map[string]any {
	return m.fields
}

// Has reports whether the given key was present in the front matter.
func (m PostMeta) Has(key string) bool {
	_, ok := m.fields[key]
	return ok
}

// ParseDate converts a front matter date value into a time.Time.
//
// The YAML decoder hands unquoted ISO dates over as time.Time already;
// quoted or nonstandard dates arrive as strings and are tried against
// DateLayouts.
func ParseDate(v any) (time.Time, error) {
	switch vv := v.(type) {
	case time.Time:
		return vv, nil
	case string:
		for _, layout := range DateLayouts {
			if t, err := time.Parse(layout, vv); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date %q", vv)
	case nil:
		return time.Time{}, fmt.Errorf("date is missing")
	default:
		return time.Time{}, fmt.Errorf("date has unexpected type %T", v)
	}
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

// stringListValue coerces tags-style values. Hugo accepts both a list and a
// bare string; both shapes appear in real posts.
func stringListValue(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if vv == "" {
			return nil
		}
		return []string{vv}
	default:
		return nil
	}
}
