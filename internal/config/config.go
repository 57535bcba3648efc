package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Publish   PublishConfig   `yaml:"publish"`
	Lint      LintConfig      `yaml:"lint"`
	Serve     ServeConfig     `yaml:"serve"`
	Daemon    DaemonConfig    `yaml:"daemon"`
	LinkCheck LinkCheckConfig `yaml:"linkcheck"`
	Pages     *PagesConfig    `yaml:"pages,omitempty"`
}

// SiteConfig describes the Hugo site layout this tool operates on.
type SiteConfig struct {
	Title      string     `yaml:"title"`
	BaseURL    string     `yaml:"base_url,omitempty"`
	Root       string     `yaml:"root"`        // directory containing the Hugo site (config, content, themes)
	ContentDir string     `yaml:"content_dir"` // relative to root
	StaticDir  string     `yaml:"static_dir"`  // relative to root
	PublicDir  string     `yaml:"public_dir"`  // relative to root; the hosting submodule
	Hugo       HugoConfig `yaml:"hugo"`
}

// HugoConfig controls how the external hugo binary is invoked.
type HugoConfig struct {
	Binary      string   `yaml:"binary"`
	Args        []string `yaml:"args,omitempty"`
	Theme       string   `yaml:"theme,omitempty"`
	Clean       bool     `yaml:"clean"` // remove stale output before building (keeps .git, CNAME, .nojekyll)
	BuildDrafts bool     `yaml:"build_drafts"`
	BuildFuture bool     `yaml:"build_future"`
}

// PublishConfig controls pushing the built site to the hosting submodule.
type PublishConfig struct {
	Remote            string           `yaml:"remote"`
	Branch            string           `yaml:"branch"`
	MessageTemplate   string           `yaml:"message_template"`
	Author            AuthorConfig     `yaml:"author"`
	Auth              *AuthConfig      `yaml:"auth,omitempty"`
	StagePointer      bool             `yaml:"stage_pointer"` // also stage the submodule bump in the parent repo
	MaxRetries        int              `yaml:"max_retries"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff,omitempty"`
	RetryInitialDelay string           `yaml:"retry_initial_delay,omitempty"`
	RetryMaxDelay     string           `yaml:"retry_max_delay,omitempty"`
}

// AuthorConfig is the commit author identity for publish commits.
type AuthorConfig struct {
	Name  string `yaml:"name,omitempty"`
	Email string `yaml:"email,omitempty"`
}

// AuthConfig represents git authentication configuration.
type AuthConfig struct {
	Type     string `yaml:"type"` // "ssh", "token", "basic"
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
	KeyPath  string `yaml:"key_path,omitempty"`
}

// LintConfig controls content validation.
type LintConfig struct {
	RequiredFields []string `yaml:"required_fields"`
	RequireUID     bool     `yaml:"require_uid"`
	Ignore         []string `yaml:"ignore,omitempty"` // glob patterns relative to the content dir
}

// ServeConfig controls the local preview server.
type ServeConfig struct {
	Listen        string `yaml:"listen"`
	QuietWindow   string `yaml:"quiet_window"`
	MaxDelay      string `yaml:"max_delay"`
	Metrics       bool   `yaml:"metrics"`
	MetricsListen string `yaml:"metrics_listen"`
}

// DaemonConfig controls unattended periodic deploys.
type DaemonConfig struct {
	Interval               string `yaml:"interval"`
	Jitter                 string `yaml:"jitter,omitempty"` // random extra delay per interval, spreads deploys of multiple sites
	DeployOnStart          bool   `yaml:"deploy_on_start"`
	SchedulePosts          bool   `yaml:"schedule_posts"` // wake up when a future-dated post matures
	MaxConsecutiveFailures int    `yaml:"max_consecutive_failures"`
	Metrics                bool   `yaml:"metrics"`
	MetricsListen          string `yaml:"metrics_listen"`
}

// LinkCheckConfig controls external link verification.
type LinkCheckConfig struct {
	Enabled       bool     `yaml:"enabled"`
	NATSURL       string   `yaml:"nats_url,omitempty"`
	Subject       string   `yaml:"subject"`
	KVBucket      string   `yaml:"kv_bucket"`
	Timeout       string   `yaml:"timeout"`
	CacheTTL      string   `yaml:"cache_ttl"`
	MaxConcurrent int      `yaml:"max_concurrent"`
	SkipPatterns  []string `yaml:"skip_patterns,omitempty"` // substring matches against the URL
}

// PagesConfig identifies the hosting repository for deployment status checks.
type PagesConfig struct {
	Owner         string `yaml:"owner"`
	Repo          string `yaml:"repo"`
	TokenEnv      string `yaml:"token_env"`
	CacheDir      string `yaml:"cache_dir,omitempty"`
	VerifyDeploys bool   `yaml:"verify_deploys"` // poll the Pages build after each deploy
	VerifyTimeout string `yaml:"verify_timeout,omitempty"`
}

// RetryBackoffMode enumerates supported backoff strategies for push retries.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

// Load loads configuration from the specified file.
//
// Environment variables referenced as $VAR/${VAR} in the file are expanded
// before unmarshalling; a .env file next to the working directory is loaded
// first (existing process env wins).
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse unmarshals raw YAML configuration bytes, expanding env references and
// applying defaults.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Duration parses a config duration string with a fallback for empty/invalid values.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
