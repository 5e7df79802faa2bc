// Package config handles validation run configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultCacheDir is where fetched references are cached.
	DefaultCacheDir = "references_cache"

	// DefaultRateLimitDelay is the pause before every outbound request, in
	// seconds. NCBI allows 3 requests per second without an API key.
	DefaultRateLimitDelay = 0.5

	// DefaultEmail identifies us to providers that require a contact address.
	DefaultEmail = "refcheck@example.com"

	// RequestTimeout is the fixed per-request HTTP timeout. There is no
	// budget spanning a whole fetch chain.
	RequestTimeout = 30 * time.Second

	// UserAgent is sent to providers that key politeness on it (Crossref,
	// DataCite, Zenodo). The contact email is appended per their guidelines.
	UserAgent = "refcheck/1.0"
)

// ValidationConfig configures every component of a validation run. It is
// built once and shared read-only.
type ValidationConfig struct {
	CacheDir       string  `yaml:"cache_dir,omitempty"`
	RateLimitDelay float64 `yaml:"rate_limit_delay,omitempty"` // seconds
	Email          string  `yaml:"email,omitempty"`

	// PrefixAliases maps alternate identifier prefixes to canonical ones,
	// e.g. "NCBIGeo" -> "GEO".
	PrefixAliases map[string]string `yaml:"prefix_aliases,omitempty"`

	// Extraction parameters consumed by the supporting-text validator.
	SupportingTextRegex string `yaml:"supporting_text_regex,omitempty"`
	TextGroup           int    `yaml:"text_group,omitempty"`
	RefGroup            int    `yaml:"ref_group,omitempty"`
}

// Default returns a config with standard values.
func Default() *ValidationConfig {
	return &ValidationConfig{
		CacheDir:       DefaultCacheDir,
		RateLimitDelay: DefaultRateLimitDelay,
		Email:          DefaultEmail,
		TextGroup:      1,
		RefGroup:       2,
	}
}

// Load reads a YAML config file and applies environment overrides.
// A missing file is not an error; defaults are used.
func Load(path string) (*ValidationConfig, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.RateLimitDelay < 0 {
		return nil, fmt.Errorf("rate_limit_delay must be >= 0, got %v", cfg.RateLimitDelay)
	}
	if cfg.Email == "" {
		return nil, fmt.Errorf("email must not be empty (providers reject anonymous requests)")
	}

	return cfg, nil
}

// applyEnv overlays REFCHECK_* environment variables.
func (c *ValidationConfig) applyEnv() {
	if v := os.Getenv("REFCHECK_CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := os.Getenv("REFCHECK_EMAIL"); v != "" {
		c.Email = v
	}
	if v := os.Getenv("REFCHECK_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RateLimitDelay = f
		}
	}
}

// Delay returns the rate-limit delay as a duration.
func (c *ValidationConfig) Delay() time.Duration {
	return time.Duration(c.RateLimitDelay * float64(time.Second))
}

// NewLimiter builds the throttle applied before every outbound request:
// one request per delay interval, no bursting.
func (c *ValidationConfig) NewLimiter() *rate.Limiter {
	if c.RateLimitDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(c.Delay()), 1)
}

// CanonicalPrefix resolves a parsed prefix through the alias table.
// Lookup is case-insensitive; the result is always uppercase.
func (c *ValidationConfig) CanonicalPrefix(prefix string) string {
	for alias, canonical := range c.PrefixAliases {
		if strings.EqualFold(alias, prefix) {
			return strings.ToUpper(canonical)
		}
	}
	return strings.ToUpper(prefix)
}

// EnsureCacheDir creates the cache directory if needed and returns it.
func (c *ValidationConfig) EnsureCacheDir() (string, error) {
	if err := os.MkdirAll(c.CacheDir, 0755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}
	return c.CacheDir, nil
}

// MailtoUserAgent returns the polite User-Agent string with contact email.
func (c *ValidationConfig) MailtoUserAgent() string {
	return fmt.Sprintf("%s (mailto:%s)", UserAgent, c.Email)
}
