package commands

import (
	"fmt"
	"strings"

	"git.sr.ht/~rkb/blogbuilder/internal/config"
	"git.sr.ht/~rkb/blogbuilder/internal/scaffold"
)

// NewCmd implements the 'new' command.
type NewCmd struct {
	Title   []string `arg:"" help:"Title of the new post"`
	Section string   `short:"s" default:"posts" help:"Content section to place the post in"`
}

func (n *NewCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	path, err := scaffold.New(cfg).Create(strings.Join(n.Title, " "), scaffold.Options{Section: n.Section})
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
