package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.sr.ht/~rkb/blogbuilder/cmd/blogbuilder/commands"
	"git.sr.ht/~rkb/blogbuilder/internal/version"
)

func main() {
	var cli commands.CLI
	kctx := kong.Parse(&cli,
		kong.Name("blogbuilder"),
		kong.Description("Build, lint and deploy a Hugo blog to its hosting repository."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	err := kctx.Run(&commands.Global{Logger: slog.Default()})
	kctx.FatalIfErrorf(err)
}
