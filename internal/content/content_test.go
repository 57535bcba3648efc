package content

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func fixtureContentDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "post/loading-eeg-data.md",
		"---\ntitle: Loading EEG data\ndate: 2016-11-12T18:19:24+01:00\ntags:\n  - eeg\n  - python\n---\nReading raw recordings into memory.\n")
	writeFile(t, dir, "post/removing-eog-artifacts.md",
		"---\ntitle: Removing EOG artifacts\ndate: 2017-03-08T20:14:16+01:00\ntags:\n  - eeg\n  - eog\n---\nRegressing eye channels out of the signal.\n")
	writeFile(t, dir, "post/whitening-draft.md",
		"---\ntitle: PCA and ZCA whitening\ndate: 2017-05-01T10:00:00+02:00\ndraft: true\n---\nDecorrelating channels before further analysis.\n")
	writeFile(t, dir, "post/_index.md",
		"---\ntitle: Posts\n---\n")
	writeFile(t, dir, "about.md",
		"---\ntitle: About\n---\nWho writes this blog.\n")
	writeFile(t, dir, "post/notes.txt", "not content\n")
	writeFile(t, dir, ".obsidian/workspace.md", "editor state\n")

	return dir
}

func TestScan_DiscoversMarkdownOnly(t *testing.T) {
	inv, err := Scan(fixtureContentDir(t))
	require.NoError(t, err)
	require.Len(t, inv.Posts, 5)

	for _, p := range inv.Posts {
		require.NotContains(t, p.RelativePath, "notes.txt")
		require.NotContains(t, p.RelativePath, ".obsidian")
	}
}

func TestScan_MissingDirectory_ReturnsError(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestScan_OrdersNewestFirst(t *testing.T) {
	inv, err := Scan(fixtureContentDir(t))
	require.NoError(t, err)

	posts := inv.BySection("post")
	require.Len(t, posts, 4)
	require.Equal(t, "whitening-draft.md", posts[0].Filename)
	require.Equal(t, "removing-eog-artifacts.md", posts[1].Filename)
	require.Equal(t, "loading-eeg-data.md", posts[2].Filename)
	// The undated section index sinks to the end.
	require.Equal(t, "_index.md", posts[3].Filename)
	require.True(t, posts[3].IsIndex)
}

func TestScan_SectionAndSlugDerivation(t *testing.T) {
	inv, err := Scan(fixtureContentDir(t))
	require.NoError(t, err)

	require.Equal(t, []string{"", "post"}, inv.Sections())

	for _, p := range inv.Posts {
		if p.Filename == "loading-eeg-data.md" {
			require.Equal(t, "post", p.Section)
			require.Equal(t, "loading-eeg-data", p.Slug)
		}
		if p.Filename == "about.md" {
			require.Equal(t, "", p.Section)
		}
	}
}

func TestScan_FrontMatterSlugOverridesFilename(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "post/some-working-title.md",
		"---\ntitle: Final title\nslug: band-pass-filtering\ndate: 2017-01-01\n---\nBody.\n")

	inv, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, inv.Posts, 1)
	require.Equal(t, "band-pass-filtering", inv.Posts[0].Slug)
}

func TestScan_BrokenFrontMatter_KeptWithMetaError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "post/broken.md", "---\ntitle: no closing delimiter\n")

	inv, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, inv.Posts, 1)
	require.Error(t, inv.Posts[0].MetaError)
}

func TestStatusAt_Classification(t *testing.T) {
	now := time.Date(2017, 4, 1, 12, 0, 0, 0, time.UTC)
	inv, err := Scan(fixtureContentDir(t))
	require.NoError(t, err)

	byName := map[string]Post{}
	for _, p := range inv.Posts {
		byName[p.Filename] = p
	}

	published := byName["loading-eeg-data.md"]
	require.Equal(t, StatusPublished, published.StatusAt(now))
	draft := byName["whitening-draft.md"]
	require.Equal(t, StatusDraft, draft.StatusAt(now))

	scheduled := Post{Meta: byName["removing-eog-artifacts.md"].Meta}
	require.Equal(t, StatusScheduled, scheduled.StatusAt(time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestScheduled_SoonestFirstAndSkipsDrafts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "post/later.md", "---\ntitle: Later\ndate: 2030-06-01\n---\nB.\n")
	writeFile(t, dir, "post/sooner.md", "---\ntitle: Sooner\ndate: 2030-01-01\n---\nA.\n")
	writeFile(t, dir, "post/future-draft.md", "---\ntitle: D\ndate: 2031-01-01\ndraft: true\n---\nC.\n")

	inv, err := Scan(dir)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	scheduled := inv.Scheduled(now)
	require.Len(t, scheduled, 2)
	require.Equal(t, "sooner.md", scheduled[0].Filename)
	require.Equal(t, "later.md", scheduled[1].Filename)

	require.Len(t, inv.Drafts(), 1)
}

func TestDuplicateSlugs_DetectedPerSection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "post/filtering.md", "---\ntitle: A\ndate: 2017-01-01\n---\nA.\n")
	writeFile(t, dir, "post/Filtering Basics.md", "---\ntitle: B\nslug: filtering\ndate: 2017-02-01\n---\nB.\n")
	writeFile(t, dir, "talks/filtering.md", "---\ntitle: C\ndate: 2017-03-01\n---\nC.\n")

	inv, err := Scan(dir)
	require.NoError(t, err)

	dups := inv.DuplicateSlugs()
	require.Len(t, dups, 1)
	require.Equal(t, []string{
		filepath.Join("post", "Filtering Basics.md"),
		filepath.Join("post", "filtering.md"),
	}, dups["post/filtering"])
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Loading EEG data", "loading-eeg-data"},
		{"Klänge über EEG", "klange-uber-eeg"},
		{"PCA & ZCA whitening!", "pca-zca-whitening"},
		{"  spaced   out  ", "spaced-out"},
		{"Ærø", "r"},
		{"2017-03-08-removing-eog", "2017-03-08-removing-eog"},
		{"", ""},
	}
	for _, c := range cases {
		require.Equal(t, c.want, Slugify(c.in), "input %q", c.in)
	}
}

func TestWordCount(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "post/short.md", "---\ntitle: S\ndate: 2017-01-01\n---\none two three\n")

	inv, err := Scan(dir)
	require.NoError(t, err)
	require.Equal(t, 3, inv.Posts[0].WordCount)
}
