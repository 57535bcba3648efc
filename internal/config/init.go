package config

import (
	"fmt"
	"os"
)

// starterConfig is written by `blogbuilder init`. Kept as a literal so the
// comments survive into the generated file.
const starterConfig = `# blogbuilder configuration
site:
  title: "My Blog"
  base_url: "https://example.github.io/"
  root: "."
  content_dir: "content"
  static_dir: "static"
  public_dir: "public"
  hugo:
    binary: "hugo"
    # args: ["--minify"]
    clean: false

publish:
  remote: "origin"
  branch: "master"
  # message_template: "rebuilding site {{.Date}}"
  author:
    name: ""
    email: ""
  # auth:
  #   type: "ssh"
  #   key_path: "~/.ssh/id_ed25519"
  stage_pointer: false
  max_retries: 2

lint:
  required_fields: ["title", "date"]
  require_uid: false

serve:
  listen: "127.0.0.1:1313"

daemon:
  interval: "1h"
  # jitter: "5m"
  schedule_posts: true

linkcheck:
  enabled: false
  # nats_url: "nats://127.0.0.1:4222"

# pages:
#   owner: "example"
#   repo: "example.github.io"
#   token_env: "GITHUB_TOKEN"
`

// Init creates a new configuration file with commented starter content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	if err := os.WriteFile(configPath, []byte(starterConfig), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
