// Package scaffold creates new posts from an archetype template.
package scaffold

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/content"
)

// defaultArchetype is used when the site has no archetypes/post.md.
const defaultArchetype = `---
title: {{ quote .Title }}
date: {{ .Date }}
draft: true
slug: {{ .Slug }}
tags: []
uid: {{ .UID }}
---

`

// Data is the template context available to archetypes.
type Data struct {
	Title   string
	Date    string
	Slug    string
	UID     string
	Section string
}

// Options controls where and how a post is scaffolded.
type Options struct {
	Section string // directory under content/, default "posts"
}

// Scaffolder writes new posts into the content tree.
type Scaffolder struct {
	cfg *config.Config
	now func() time.Time
}

func New(cfg *config.Config) *Scaffolder {
	return &Scaffolder{cfg: cfg, now: time.Now}
}

// Create scaffolds a new post for the given title and returns its path. The
// filename derives from the slugified title; an existing post is never
// overwritten.
func (s *Scaffolder) Create(title string, opts Options) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.New("post title is required")
	}
	slug := content.Slugify(title)
	if slug == "" {
		return "", fmt.Errorf("title %q produces an empty slug", title)
	}
	section := opts.Section
	if section == "" {
		section = "posts"
	}

	tmplText, err := s.archetype()
	if err != nil {
		return "", err
	}
	tpl, err := template.New("archetype").
		Funcs(template.FuncMap{"quote": strconv.Quote}).
		Option("missingkey=error").
		Parse(tmplText)
	if err != nil {
		return "", fmt.Errorf("parse archetype: %w", err)
	}

	data := Data{
		Title:   title,
		Date:    s.now().Format(time.RFC3339),
		Slug:    slug,
		UID:     uuid.NewString(),
		Section: section,
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render archetype: %w", err)
	}

	return writeNew(s.cfg.ContentPath(), filepath.Join(section, slug+".md"), buf.Bytes())
}

// archetype returns the site's archetype template, or the built-in default.
func (s *Scaffolder) archetype() (string, error) {
	path := filepath.Join(s.cfg.Site.Root, "archetypes", "post.md")
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultArchetype, nil
	}
	if err != nil {
		return "", fmt.Errorf("read archetype: %w", err)
	}
	return string(b), nil
}

// writeNew writes a fresh file under contentDir, refusing to overwrite.
func writeNew(contentDir, relativePath string, body []byte) (string, error) {
	cleanRel := filepath.Clean(relativePath)
	if filepath.IsAbs(cleanRel) || strings.HasPrefix(cleanRel, "..") {
		return "", errors.New("post path must stay under the content directory")
	}
	fullPath := filepath.Join(contentDir, cleanRel)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("create section directory: %w", err)
	}
	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("post already exists: %s", fullPath)
		}
		return "", fmt.Errorf("write post: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.Write(body); err != nil {
		return "", fmt.Errorf("write post: %w", err)
	}
	return fullPath, nil
}
