package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Validate checks the configuration for problems and reports all of them at
// once rather than stopping at the first.
func (c *Config) Validate() error {
	var errs *multierror.Error

	if c.Site.Title == "" {
		errs = multierror.Append(errs, fmt.Errorf("site.title is required"))
	}
	if c.Site.Root == "" {
		errs = multierror.Append(errs, fmt.Errorf("site.root must not be empty"))
	}
	if c.Site.PublicDir == "" {
		errs = multierror.Append(errs, fmt.Errorf("site.public_dir must not be empty"))
	}

	if c.Publish.Remote == "" {
		errs = multierror.Append(errs, fmt.Errorf("publish.remote must not be empty"))
	}
	if c.Publish.Branch == "" {
		errs = multierror.Append(errs, fmt.Errorf("publish.branch must not be empty"))
	}
	if c.Publish.MaxRetries < 0 {
		errs = multierror.Append(errs, fmt.Errorf("publish.max_retries cannot be negative"))
	}
	switch c.Publish.RetryBackoff {
	case "", RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential:
	default:
		errs = multierror.Append(errs, fmt.Errorf("publish.retry_backoff: unknown mode %q", c.Publish.RetryBackoff))
	}
	if c.Publish.Auth != nil {
		if err := c.Publish.Auth.validate(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	for field, raw := range map[string]string{
		"publish.retry_initial_delay": c.Publish.RetryInitialDelay,
		"publish.retry_max_delay":     c.Publish.RetryMaxDelay,
		"serve.quiet_window":          c.Serve.QuietWindow,
		"serve.max_delay":             c.Serve.MaxDelay,
		"daemon.interval":             c.Daemon.Interval,
		"daemon.jitter":               c.Daemon.Jitter,
		"linkcheck.timeout":           c.LinkCheck.Timeout,
		"linkcheck.cache_ttl":         c.LinkCheck.CacheTTL,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: invalid duration %q", field, raw))
		}
	}

	if c.Pages != nil {
		if c.Pages.Owner == "" {
			errs = multierror.Append(errs, fmt.Errorf("pages.owner is required when pages is configured"))
		}
		if c.Pages.Repo == "" {
			errs = multierror.Append(errs, fmt.Errorf("pages.repo is required when pages is configured"))
		}
		if raw := c.Pages.VerifyTimeout; raw != "" {
			if _, err := time.ParseDuration(raw); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("pages.verify_timeout: invalid duration %q", raw))
			}
		}
	}

	return errs.ErrorOrNil()
}

func (a *AuthConfig) validate() error {
	switch a.Type {
	case "", "none", "ssh":
		return nil
	case "token":
		if a.Token == "" {
			return fmt.Errorf("publish.auth: token authentication requires a token")
		}
	case "basic":
		if a.Username == "" || a.Password == "" {
			return fmt.Errorf("publish.auth: basic authentication requires username and password")
		}
	default:
		return fmt.Errorf("publish.auth: unsupported authentication type: %s", a.Type)
	}
	return nil
}
