package commands

import (
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T) (*kong.Kong, *CLI) {
	t.Helper()
	cli := &CLI{}
	parser, err := kong.New(cli, kong.Vars{"version": "test"})
	require.NoError(t, err)
	return parser, cli
}

func TestCLIParse(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		parser, cli := newParser(t)
		kctx, err := parser.Parse([]string{"status"})
		require.NoError(t, err)
		require.Equal(t, "status", kctx.Command())
		require.Equal(t, "blog.yaml", cli.Config)
		require.False(t, cli.Verbose)
	})

	t.Run("global flags", func(t *testing.T) {
		parser, cli := newParser(t)
		_, err := parser.Parse([]string{"-c", "other.yaml", "-v", "build"})
		require.NoError(t, err)
		require.Equal(t, "other.yaml", cli.Config)
		require.True(t, cli.Verbose)
	})

	t.Run("deploy without message", func(t *testing.T) {
		parser, cli := newParser(t)
		kctx, err := parser.Parse([]string{"deploy"})
		require.NoError(t, err)
		require.Equal(t, "deploy", kctx.Command())
		require.Empty(t, cli.Deploy.Message)
	})

	t.Run("deploy message passthrough", func(t *testing.T) {
		parser, cli := newParser(t)
		kctx, err := parser.Parse([]string{"deploy", "fix", "broken", "figure"})
		require.NoError(t, err)
		require.Equal(t, "deploy <message>", kctx.Command())
		require.Equal(t, []string{"fix", "broken", "figure"}, cli.Deploy.Message)
	})

	t.Run("new title and default section", func(t *testing.T) {
		parser, cli := newParser(t)
		_, err := parser.Parse([]string{"new", "Whitening", "EEG", "data"})
		require.NoError(t, err)
		require.Equal(t, []string{"Whitening", "EEG", "data"}, cli.New.Title)
		require.Equal(t, "posts", cli.New.Section)
	})

	t.Run("lint flags", func(t *testing.T) {
		parser, cli := newParser(t)
		_, err := parser.Parse([]string{"lint", "--format", "json", "-q"})
		require.NoError(t, err)
		require.Equal(t, "json", cli.Lint.Format)
		require.True(t, cli.Lint.Quiet)
	})

	t.Run("lint rejects unknown format", func(t *testing.T) {
		parser, _ := newParser(t)
		_, err := parser.Parse([]string{"lint", "--format", "xml"})
		require.Error(t, err)
	})

	t.Run("history limit", func(t *testing.T) {
		parser, cli := newParser(t)
		_, err := parser.Parse([]string{"history", "-n", "3"})
		require.NoError(t, err)
		require.Equal(t, 3, cli.History.Limit)
	})

	t.Run("version subcommand", func(t *testing.T) {
		parser, _ := newParser(t)
		kctx, err := parser.Parse([]string{"version"})
		require.NoError(t, err)
		require.Equal(t, "version", kctx.Command())
	})
}

func TestShortHash(t *testing.T) {
	require.Equal(t, "deadbeef", shortHash("deadbeefcafe0123456789"))
	require.Equal(t, "abc", shortHash("abc"))
	require.Equal(t, "", shortHash(""))
}

func TestFirstLine(t *testing.T) {
	require.Equal(t, "subject", firstLine("subject\n\nbody text"))
	require.Equal(t, "one line", firstLine("one line"))
	require.Equal(t, "trimmed", firstLine("  trimmed  \nrest"))
}
