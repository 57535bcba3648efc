package lint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
)

func testSite(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Site: config.SiteConfig{
			Title:      "Test Blog",
			Root:       root,
			ContentDir: "content",
			StaticDir:  "static",
			PublicDir:  "public",
		},
		Lint: config.LintConfig{
			RequiredFields: []string{"title", "date"},
		},
	}
	require.NoError(t, os.MkdirAll(cfg.ContentPath(), 0o755))
	return cfg
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writePost(t *testing.T, cfg *config.Config, rel, content string) {
	t.Helper()
	writeFile(t, filepath.Join(cfg.ContentPath(), rel), content)
}

// byRule filters issues down to one rule.
func byRule(issues []Issue, rule string) []Issue {
	var out []Issue
	for _, issue := range issues {
		if issue.Rule == rule {
			out = append(out, issue)
		}
	}
	return out
}

func TestRun_CleanSiteHasNoIssues(t *testing.T) {
	cfg := testSite(t)
	writePost(t, cfg, "posts/alpha-waves.md", `---
title: Alpha waves in resting EEG
date: 2024-05-04
tags:
  - eeg
---

Resting-state recordings show a clear occipital alpha peak.
`)
	writePost(t, cfg, "posts/artifact-rejection.md", `---
title: Artifact rejection
date: 2024-06-01
---

Blink artifacts dominate frontal channels.
`)

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	require.Empty(t, result.Issues)
	require.Equal(t, 2, result.FilesTotal)
}

func TestRun_MissingFrontMatter(t *testing.T) {
	cfg := testSite(t)
	writePost(t, cfg, "posts/no-meta.md", "Just a body without front matter.\n")

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	require.Equal(t, "front-matter", result.Issues[0].Rule)
	require.Equal(t, SeverityError, result.Issues[0].Severity)
	require.Contains(t, result.Issues[0].Message, "Missing front matter")
}

func TestRun_BrokenFrontMatterYAML(t *testing.T) {
	cfg := testSite(t)
	writePost(t, cfg, "posts/broken.md", "---\ntitle: [unclosed\n---\nbody\n")

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	issues := byRule(result.Issues, "front-matter")
	require.Len(t, issues, 1)
	require.Contains(t, issues[0].Message, "not parseable")
}

func TestRun_MissingRequiredField(t *testing.T) {
	cfg := testSite(t)
	writePost(t, cfg, "posts/undated.md", "---\ntitle: Undated\n---\nbody\n")

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	issues := byRule(result.Issues, "required-fields")
	require.Len(t, issues, 1)
	require.Contains(t, issues[0].Message, `"date"`)
}

func TestRun_UnparseableDate(t *testing.T) {
	cfg := testSite(t)
	writePost(t, cfg, "posts/vague.md", "---\ntitle: Vague\ndate: sometime in May\n---\nbody\n")

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	issues := byRule(result.Issues, "date-format")
	require.Len(t, issues, 1)
	require.Equal(t, SeverityError, issues[0].Severity)
}

func TestRun_TaxonomyShapes(t *testing.T) {
	cfg := testSite(t)
	writePost(t, cfg, "posts/bare-string.md", "---\ntitle: A\ndate: 2024-01-01\ntags: eeg\n---\nbody\n")
	writePost(t, cfg, "posts/numeric.md", "---\ntitle: B\ndate: 2024-01-02\ncategories:\n  - 1\n  - 2\n---\nbody\n")

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	issues := byRule(result.Issues, "taxonomy-lists")
	require.Len(t, issues, 2)

	var sawWarning, sawError bool
	for _, issue := range issues {
		switch issue.Severity {
		case SeverityWarning:
			sawWarning = true
			require.Contains(t, issue.Message, "should be a list")
		case SeverityError:
			sawError = true
			require.Contains(t, issue.Message, "must be strings")
		}
	}
	require.True(t, sawWarning)
	require.True(t, sawError)
}

func TestRun_UIDValidation(t *testing.T) {
	cfg := testSite(t)
	cfg.Lint.RequireUID = true
	writePost(t, cfg, "posts/has-uid.md", `---
title: Good
date: 2024-01-01
uid: 1f6b2c2e-9f6e-4b27-9c58-0a41e1b3f0aa
---
body
`)
	writePost(t, cfg, "posts/no-uid.md", "---\ntitle: Missing\ndate: 2024-01-02\n---\nbody\n")
	writePost(t, cfg, "posts/bad-uid.md", "---\ntitle: Bad\ndate: 2024-01-03\nuid: not-a-uuid\n---\nbody\n")

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	issues := byRule(result.Issues, "uid")
	require.Len(t, issues, 2)

	byFile := map[string]Issue{}
	for _, issue := range issues {
		byFile[issue.File] = issue
	}
	require.Contains(t, byFile[filepath.Join("posts", "no-uid.md")].Message, "Missing uid")
	require.Contains(t, byFile[filepath.Join("posts", "bad-uid.md")].Message, "not a valid UUID")
}

func TestRun_FilenameConventions(t *testing.T) {
	cfg := testSite(t)
	writePost(t, cfg, "posts/My Post.md", "---\ntitle: Spacey\ndate: 2024-01-01\n---\nbody\n")

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	issues := byRule(result.Issues, "filename-conventions")
	require.Len(t, issues, 2)
	for _, issue := range issues {
		require.Contains(t, issue.Fix, "my-post.md")
	}
}

func TestRun_DuplicateSlugs(t *testing.T) {
	cfg := testSite(t)
	writePost(t, cfg, "posts/first.md", "---\ntitle: First\ndate: 2024-01-01\nslug: same\n---\nbody\n")
	writePost(t, cfg, "posts/second.md", "---\ntitle: Second\ndate: 2024-01-02\nslug: same\n---\nbody\n")

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	issues := byRule(result.Issues, "duplicate-slugs")
	require.Len(t, issues, 2)
	require.Contains(t, issues[0].Message, `"same"`)
}

func TestRun_IgnoreGlobs(t *testing.T) {
	cfg := testSite(t)
	cfg.Lint.Ignore = []string{"scratch/*"}
	writePost(t, cfg, "scratch/wip.md", "no front matter here\n")
	writePost(t, cfg, "posts/fine.md", "---\ntitle: Fine\ndate: 2024-01-01\n---\nbody\n")

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	require.Empty(t, result.Issues)
	require.Equal(t, 1, result.FilesTotal)
}

func TestRun_QuietSuppressesWarnings(t *testing.T) {
	cfg := testSite(t)
	writePost(t, cfg, "posts/mixed.md", "---\ntitle: Mixed\ntags: eeg\n---\nbody\n")

	result, err := New(cfg, Options{Quiet: true}).Run()
	require.NoError(t, err)
	require.Len(t, result.Issues, 1)
	require.Equal(t, "required-fields", result.Issues[0].Rule)
}

func TestRun_InternalLinks(t *testing.T) {
	cfg := testSite(t)
	writeFile(t, filepath.Join(cfg.StaticPath(), "code", "pca-zca.py"), "import numpy as np\n")
	writePost(t, cfg, "posts/figs/plot.png", "")
	writePost(t, cfg, "posts/target.md", "---\ntitle: Target\ndate: 2024-01-01\nslug: b-slug\n---\nbody\n")
	writePost(t, cfg, "posts/linker.md", `---
title: Linker
date: 2024-01-02
---

[good](/posts/b-slug/) and [code](/code/pca-zca.py) and [figure](figs/plot.png)
and [tag](/tags/eeg/) and [external](https://example.org/) but [missing](/posts/nope/).
`)

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	issues := byRule(result.Issues, "internal-links")
	require.Len(t, issues, 1)
	require.Contains(t, issues[0].Message, "/posts/nope/")
}

func TestRun_FixtureSite(t *testing.T) {
	cfg := &config.Config{
		Site: config.SiteConfig{
			Title:      "EEG Notes",
			Root:       filepath.Join("testdata", "site"),
			ContentDir: "content",
			StaticDir:  "static",
			PublicDir:  "public",
		},
		Lint: config.LintConfig{
			RequiredFields: []string{"title", "date"},
		},
	}

	result, err := New(cfg, Options{}).Run()
	require.NoError(t, err)
	require.Equal(t, 7, result.FilesTotal)
	require.Equal(t, 3, result.ErrorCount())
	require.Equal(t, 0, result.WarningCount())

	missing := byRule(result.Issues, "required-fields")
	require.Len(t, missing, 1)
	require.Equal(t, filepath.Join("posts", "missing-title.md"), missing[0].File)
	require.Contains(t, missing[0].Message, `"title"`)

	dupes := byRule(result.Issues, "duplicate-slugs")
	require.Len(t, dupes, 2)
	for _, issue := range dupes {
		require.Contains(t, issue.Message, `"artifact-removal"`)
	}

	require.Empty(t, byRule(result.Issues, "internal-links"))
}

func TestResult_Counts(t *testing.T) {
	r := &Result{Issues: []Issue{
		{Severity: SeverityError},
		{Severity: SeverityError},
		{Severity: SeverityWarning},
		{Severity: SeverityInfo},
	}}
	require.True(t, r.HasErrors())
	require.True(t, r.HasWarnings())
	require.Equal(t, 2, r.ErrorCount())
	require.Equal(t, 1, r.WarningCount())
}
