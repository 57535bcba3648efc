package content

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"git.sr.ht/~rkb/blogbuilder/internal/frontmatter"
	"git.sr.ht/~rkb/blogbuilder/internal/logfields"
)

// Inventory holds every post discovered under a content directory.
type Inventory struct {
	ContentDir string
	Posts      []Post
}

// Scan walks contentDir and parses every Markdown file into a Post.
//
// Posts with unparseable front matter are kept with MetaError set so callers
// can report them. The result is ordered newest first with path as tiebreak.
func Scan(contentDir string) (*Inventory, error) {
	if _, err := os.Stat(contentDir); err != nil {
		return nil, fmt.Errorf("content directory %s: %w", contentDir, err)
	}

	inv := &Inventory{ContentDir: contentDir}

	err := filepath.Walk(contentDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != contentDir {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(info.Name(), ".") || !isMarkdownFile(path) {
			return nil
		}

		relPath, err := filepath.Rel(contentDir, path)
		if err != nil {
			return fmt.Errorf("relative path for %s: %w", path, err)
		}

		post, err := readPost(path, relPath)
		if err != nil {
			return err
		}
		inv.Posts = append(inv.Posts, post)

		slog.Debug("Discovered post",
			logfields.File(relPath),
			logfields.Section(post.Section),
			logfields.Slug(post.Slug))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", contentDir, err)
	}

	sortPosts(inv.Posts)
	slog.Debug("Content scan complete", slog.Int("posts", len(inv.Posts)), logfields.Path(contentDir))
	return inv, nil
}

func readPost(path, relPath string) (Post, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Post{}, fmt.Errorf("reading %s: %w", path, err)
	}

	section := filepath.Dir(relPath)
	if section == "." {
		section = ""
	}
	name := filepath.Base(relPath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	post := Post{
		Path:         path,
		RelativePath: relPath,
		Section:      section,
		Filename:     name,
		IsIndex:      stem == "_index" || stem == "index",
	}

	meta, body, had, style, err := frontmatter.Split(raw)
	post.Style = style
	if err != nil {
		post.MetaError = err
		post.Body = raw
	} else {
		post.HasMeta = had
		post.Body = body
		if had {
			fields, perr := frontmatter.ParseYAML(meta)
			if perr != nil {
				post.MetaError = perr
			} else {
				post.Meta = frontmatter.MetaFromFields(fields)
			}
		}
	}

	post.Slug = post.Meta.Slug
	if post.Slug == "" {
		post.Slug = Slugify(stem)
	}
	post.WordCount = countWords(post.Body)
	return post, nil
}

// sortPosts orders newest first; undated posts sink to the end. Path breaks
// ties so repeated scans are stable.
func sortPosts(posts []Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		di, dj := posts[i].Meta.Date, posts[j].Meta.Date
		if !di.Equal(dj) {
			if di.IsZero() {
				return false
			}
			if dj.IsZero() {
				return true
			}
			return di.After(dj)
		}
		return posts[i].RelativePath < posts[j].RelativePath
	})
}

// Sections returns the distinct sections in sorted order.
func (inv *Inventory) Sections() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, p := range inv.Posts {
		if _, ok := seen[p.Section]; !ok {
			seen[p.Section] = struct{}{}
			out = append(out, p.Section)
		}
	}
	sort.Strings(out)
	return out
}

// BySection returns the posts in a section, preserving inventory order.
func (inv *Inventory) BySection(section string) []Post {
	var out []Post
	for _, p := range inv.Posts {
		if p.Section == section {
			out = append(out, p)
		}
	}
	return out
}

// DuplicateSlugs maps "section/slug" keys claimed by more than one post to
// the relative paths involved. Section index pages do not claim slugs.
func (inv *Inventory) DuplicateSlugs() map[string][]string {
	claims := map[string][]string{}
	for _, p := range inv.Posts {
		if p.IsIndex {
			continue
		}
		key := p.Section + "/" + p.Slug
		claims[key] = append(claims[key], p.RelativePath)
	}
	dups := map[string][]string{}
	for key, paths := range claims {
		if len(paths) > 1 {
			sort.Strings(paths)
			dups[key] = paths
		}
	}
	return dups
}

// Scheduled returns non-draft posts dated after now, soonest first.
func (inv *Inventory) Scheduled(now time.Time) []Post {
	var out []Post
	for _, p := range inv.Posts {
		if p.IsIndex {
			continue
		}
		if p.StatusAt(now) == StatusScheduled {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Meta.Date.Before(out[j].Meta.Date)
	})
	return out
}

// Drafts returns every post marked draft.
func (inv *Inventory) Drafts() []Post {
	var out []Post
	for _, p := range inv.Posts {
		if p.Meta.Draft {
			out = append(out, p)
		}
	}
	return out
}

func isMarkdownFile(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return ext == ".md" || ext == ".markdown" || ext == ".mdown" || ext == ".mkd"
}
