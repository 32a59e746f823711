// Package config holds the run configuration for the harborcal pipeline.
//
// Configuration is an explicit struct handed down the call chain: the CLI
// builds it from flags (with environment-variable defaults), optionally
// merged over a YAML file, and the pipeline never reads settings ambiently.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults for optional settings.
const (
	DefaultPlatformHost = "fareharbor.com"
	DefaultTimezone     = "America/New_York"
	DefaultOutputPath   = "data/events.json"
	DefaultDelay        = 250 * time.Millisecond
	DefaultMaxItems     = 50
	DefaultHTTPTimeout  = 30 * time.Second
	DefaultPageTimeout  = 45 * time.Second
)

// Config is the full set of invocation parameters for one pipeline run.
type Config struct {
	// Company is the booking platform's company path segment, e.g. the
	// "acmetours" in /embeds/book/acmetours/items/123/. Used both to scope
	// listing discovery and to classify persisted events as platform-owned.
	Company string `yaml:"company"`

	// Flow is the booking-flow identifier carried in the listing URL's
	// query string.
	Flow string `yaml:"flow"`

	// PlatformHost is the booking platform hostname. Events whose URL is
	// on this host under the company path are platform events; everything
	// else is foreign and carried through merges untouched.
	PlatformHost string `yaml:"platform_host"`

	// ListingURL overrides the listing page URL derived from
	// PlatformHost/Company/Flow. Normally empty.
	ListingURL string `yaml:"listing_url"`

	// Timezone is the IANA zone used to compute "today" for the date
	// horizon filter. Stored timestamps themselves carry no offset.
	Timezone string `yaml:"timezone"`

	// OutputPath is the persisted events document.
	OutputPath string `yaml:"output"`

	// Write enables persisting the assembled document. When false the
	// document is printed to stdout instead (dry run).
	Write bool `yaml:"write"`

	// Merge carries forward foreign events from the existing document.
	Merge bool `yaml:"merge"`

	// Browser enables the headless-browser fallback tier.
	Browser bool `yaml:"browser"`

	// AllowEmpty permits writing an empty document. Without it a run that
	// assembles zero events refuses to touch the existing document.
	AllowEmpty bool `yaml:"allow_empty"`

	// Delay is the politeness pause after each item page. In YAML this is
	// delay_ms (milliseconds).
	Delay   time.Duration `yaml:"-"`
	DelayMS int           `yaml:"delay_ms"`

	// MaxItems caps how many item pages one run will visit.
	MaxItems int `yaml:"max_items"`

	// HTTPTimeout bounds a single static fetch. YAML: http_timeout_sec.
	HTTPTimeout    time.Duration `yaml:"-"`
	HTTPTimeoutSec int           `yaml:"http_timeout_sec"`

	// PageTimeout bounds a single browser-rendered page, waits included.
	// YAML: page_timeout_sec.
	PageTimeout    time.Duration `yaml:"-"`
	PageTimeoutSec int           `yaml:"page_timeout_sec"`
}

// Default returns a configuration with all optional settings filled in.
func Default() *Config {
	return &Config{
		PlatformHost: DefaultPlatformHost,
		Timezone:     DefaultTimezone,
		OutputPath:   DefaultOutputPath,
		Write:        true,
		Merge:        true,
		Browser:      true,
		Delay:        DefaultDelay,
		MaxItems:     DefaultMaxItems,
		HTTPTimeout:  DefaultHTTPTimeout,
		PageTimeout:  DefaultPageTimeout,
	}
}

// Normalize fills missing/zero optional values with defaults so that a
// partially-filled config (e.g. loaded from an older YAML file) still
// behaves correctly. Required fields are checked in Validate, not here.
func (c *Config) Normalize() {
	if c.PlatformHost == "" {
		c.PlatformHost = DefaultPlatformHost
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.OutputPath == "" {
		c.OutputPath = DefaultOutputPath
	}
	if c.DelayMS > 0 {
		c.Delay = time.Duration(c.DelayMS) * time.Millisecond
	}
	if c.Delay <= 0 {
		c.Delay = DefaultDelay
	}
	if c.MaxItems <= 0 || c.MaxItems > DefaultMaxItems {
		c.MaxItems = DefaultMaxItems
	}
	if c.HTTPTimeoutSec > 0 {
		c.HTTPTimeout = time.Duration(c.HTTPTimeoutSec) * time.Second
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.PageTimeoutSec > 0 {
		c.PageTimeout = time.Duration(c.PageTimeoutSec) * time.Second
	}
	if c.PageTimeout <= 0 {
		c.PageTimeout = DefaultPageTimeout
	}
}

// Validate checks the fields that have no sensible default.
func (c *Config) Validate() error {
	if c.Company == "" {
		return errors.New("company is required")
	}
	if c.Flow == "" && c.ListingURL == "" {
		return errors.New("flow is required when no listing URL is given")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// ListingPageURL returns the listing page to scrape: the explicit override
// if set, otherwise the platform's full-items grid for the configured
// company and flow.
func (c *Config) ListingPageURL() string {
	if c.ListingURL != "" {
		return c.ListingURL
	}
	return fmt.Sprintf("https://%s/embeds/book/%s/items/?flow=%s&full-items=yes",
		c.PlatformHost, c.Company, c.Flow)
}

// Load reads configuration from a YAML file. A missing file is not an
// error: it returns defaults, so a flags-only invocation works without any
// file on disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Normalize()

	return cfg, nil
}
