// Package cli wires the scrape pipeline into a cobra command.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"harborcal/internal/assemble"
	"harborcal/internal/config"
	"harborcal/internal/logger"
	"harborcal/internal/pipeline"
)

// Exit codes. The empty-result refusal gets its own code so automation can
// tell "site broke, calendar preserved" apart from ordinary failures.
const (
	ExitSuccess     = 0
	ExitError       = 1
	ExitEmptyResult = 2
)

var (
	flagConfig     string
	flagCompany    string
	flagFlow       string
	flagHost       string
	flagListingURL string
	flagTimezone   string
	flagOut        string
	flagWrite      bool
	flagMerge      bool
	flagBrowser    bool
	flagAllowEmpty bool
	flagDelayMS    int
	flagMaxItems   int
	flagVerbose    bool
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harborcal",
		Short: "Scrape the booking platform into a calendar events document",
		Long: `Scrapes the booking platform's listing and item pages for the next
available occurrence of each bookable item and rewrites the JSON events
document consumed by the calendar front end.`,
		SilenceUsage: true,
		RunE:         runScrape,
	}

	cmd.Flags().StringVar(&flagConfig, "config", envOr("HARBORCAL_CONFIG", ""), "Optional YAML config file")
	cmd.Flags().StringVar(&flagCompany, "company", envOr("HARBORCAL_COMPANY", ""), "Booking platform company path segment (required)")
	cmd.Flags().StringVar(&flagFlow, "flow", envOr("HARBORCAL_FLOW", ""), "Booking-flow identifier for the listing page")
	cmd.Flags().StringVar(&flagHost, "platform-host", envOr("HARBORCAL_HOST", config.DefaultPlatformHost), "Booking platform hostname")
	cmd.Flags().StringVar(&flagListingURL, "listing-url", "", "Override the derived listing page URL")
	cmd.Flags().StringVar(&flagTimezone, "timezone", envOr("HARBORCAL_TZ", config.DefaultTimezone), "IANA timezone used to compute today")
	cmd.Flags().StringVar(&flagOut, "out", envOr("HARBORCAL_OUT", config.DefaultOutputPath), "Path of the events JSON document")
	cmd.Flags().BoolVar(&flagWrite, "write", true, "Persist the document (false prints it to stdout)")
	cmd.Flags().BoolVar(&flagMerge, "merge", true, "Carry forward foreign events from the existing document")
	cmd.Flags().BoolVar(&flagBrowser, "browser", true, "Enable the headless-browser fallback tier")
	cmd.Flags().BoolVar(&flagAllowEmpty, "allow-empty", false, "Permit writing an empty events document")
	cmd.Flags().IntVar(&flagDelayMS, "delay-ms", 250, "Politeness delay between item pages, in milliseconds")
	cmd.Flags().IntVar(&flagMaxItems, "max-items", config.DefaultMaxItems, "Cap on item pages per run")
	cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")

	return cmd
}

// runScrape is the main command logic
func runScrape(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		logger.SetDefault(logger.New(logger.LevelDebug, os.Stderr))
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}
	return p.Run(cmd.Context())
}

// buildConfig loads the optional YAML file and lets explicitly-set flags
// win over it.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	setString := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) || *dst == "" {
			*dst = v
		}
	}
	setString("company", &cfg.Company, flagCompany)
	setString("flow", &cfg.Flow, flagFlow)
	setString("platform-host", &cfg.PlatformHost, flagHost)
	setString("listing-url", &cfg.ListingURL, flagListingURL)
	setString("timezone", &cfg.Timezone, flagTimezone)
	setString("out", &cfg.OutputPath, flagOut)

	if cmd.Flags().Changed("write") || flagConfig == "" {
		cfg.Write = flagWrite
	}
	if cmd.Flags().Changed("merge") || flagConfig == "" {
		cfg.Merge = flagMerge
	}
	if cmd.Flags().Changed("browser") || flagConfig == "" {
		cfg.Browser = flagBrowser
	}
	if cmd.Flags().Changed("allow-empty") || flagConfig == "" {
		cfg.AllowEmpty = flagAllowEmpty
	}
	if cmd.Flags().Changed("delay-ms") {
		cfg.Delay = time.Duration(flagDelayMS) * time.Millisecond
	}
	if cmd.Flags().Changed("max-items") {
		cfg.MaxItems = flagMaxItems
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Execute runs the root command and maps errors to exit codes.
func Execute() int {
	if err := NewRootCmd().Execute(); err != nil {
		if errors.Is(err, assemble.ErrEmptyResult) {
			fmt.Fprintln(os.Stderr, "refusing to write an empty events document (use --allow-empty to override)")
			return ExitEmptyResult
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
	return ExitSuccess
}

// envOr returns the environment value for key, or def when unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
