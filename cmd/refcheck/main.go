// Package main provides the refcheck CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/citewell/refcheck/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool

	configPath    string
	flagCacheDir  string
	flagEmail     string
	flagRateLimit float64
)

func main() {
	// A .env in the working directory may carry REFCHECK_* settings;
	// absence is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "refcheck",
	Short: "Resolve and validate biomedical references",
	Long: `refcheck resolves reference identifiers (PMID, DOI, NCT, URLs, local
files) against their home providers, caches the results on disk, and checks
supporting-text quotations against the fetched content.

Fulltext acquisition falls back across providers (BioC, Europe PMC,
Unpaywall via Crossref/DataCite metadata) and converts between DOI, PMID
and PMCID as needed. All commands output JSON by default.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagCacheDir, "cache-dir", "", "Override cache directory")
	rootCmd.PersistentFlags().StringVar(&flagEmail, "email", "", "Contact email sent to providers")
	rootCmd.PersistentFlags().Float64Var(&flagRateLimit, "rate-limit", -1, "Seconds to wait before each outbound request")
	rootCmd.Version = Version
}

// mustLoadConfig builds the run configuration from the config file,
// environment, and flags. Exits on invalid configuration.
func mustLoadConfig() *config.ValidationConfig {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	if flagCacheDir != "" {
		cfg.CacheDir = flagCacheDir
	}
	if flagEmail != "" {
		cfg.Email = flagEmail
	}
	if flagRateLimit >= 0 {
		cfg.RateLimitDelay = flagRateLimit
	}
	return cfg
}
