package config

// Default values applied after unmarshalling. Empty fields mean "use default",
// so explicit zero values that matter (e.g. publish.stage_pointer) are plain bools.
const (
	DefaultHugoBinary      = "hugo"
	DefaultRemote          = "origin"
	DefaultBranch          = "master"
	DefaultMessageTemplate = "rebuilding site {{.Date}}"
	DefaultServeListen     = "127.0.0.1:1313"
	DefaultMetricsListen   = "127.0.0.1:9090"
	DefaultQuietWindow     = "400ms"
	DefaultMaxDelay        = "3s"
	DefaultDaemonInterval  = "1h"
	DefaultLinkSubject     = "blogbuilder.links.broken"
	DefaultLinkKVBucket    = "blogbuilder-links"
	DefaultLinkTimeout     = "10s"
	DefaultLinkCacheTTL    = "24h"
	DefaultPagesTokenEnv   = "GITHUB_TOKEN"
	DefaultVerifyTimeout   = "2m"
)

func (c *Config) applyDefaults() {
	if c.Site.Root == "" {
		c.Site.Root = "."
	}
	if c.Site.ContentDir == "" {
		c.Site.ContentDir = "content"
	}
	if c.Site.StaticDir == "" {
		c.Site.StaticDir = "static"
	}
	if c.Site.PublicDir == "" {
		c.Site.PublicDir = "public"
	}
	if c.Site.Hugo.Binary == "" {
		c.Site.Hugo.Binary = DefaultHugoBinary
	}

	if c.Publish.Remote == "" {
		c.Publish.Remote = DefaultRemote
	}
	if c.Publish.Branch == "" {
		c.Publish.Branch = DefaultBranch
	}
	if c.Publish.MessageTemplate == "" {
		c.Publish.MessageTemplate = DefaultMessageTemplate
	}
	if c.Publish.RetryBackoff == "" {
		c.Publish.RetryBackoff = RetryBackoffLinear
	}

	if len(c.Lint.RequiredFields) == 0 {
		c.Lint.RequiredFields = []string{"title", "date"}
	}

	if c.Serve.Listen == "" {
		c.Serve.Listen = DefaultServeListen
	}
	if c.Serve.QuietWindow == "" {
		c.Serve.QuietWindow = DefaultQuietWindow
	}
	if c.Serve.MaxDelay == "" {
		c.Serve.MaxDelay = DefaultMaxDelay
	}
	if c.Serve.MetricsListen == "" {
		c.Serve.MetricsListen = DefaultMetricsListen
	}

	if c.Daemon.Interval == "" {
		c.Daemon.Interval = DefaultDaemonInterval
	}
	if c.Daemon.MaxConsecutiveFailures == 0 {
		c.Daemon.MaxConsecutiveFailures = 5
	}
	if c.Daemon.MetricsListen == "" {
		c.Daemon.MetricsListen = DefaultMetricsListen
	}

	if c.LinkCheck.Subject == "" {
		c.LinkCheck.Subject = DefaultLinkSubject
	}
	if c.LinkCheck.KVBucket == "" {
		c.LinkCheck.KVBucket = DefaultLinkKVBucket
	}
	if c.LinkCheck.Timeout == "" {
		c.LinkCheck.Timeout = DefaultLinkTimeout
	}
	if c.LinkCheck.CacheTTL == "" {
		c.LinkCheck.CacheTTL = DefaultLinkCacheTTL
	}
	if c.LinkCheck.MaxConcurrent <= 0 {
		c.LinkCheck.MaxConcurrent = 10
	}

	if c.Pages != nil {
		if c.Pages.TokenEnv == "" {
			c.Pages.TokenEnv = DefaultPagesTokenEnv
		}
		if c.Pages.VerifyTimeout == "" {
			c.Pages.VerifyTimeout = DefaultVerifyTimeout
		}
	}
}
