package config

import (
	"flag"
	"os"
	"time"

	"github.com/personewsap/personews/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-s string   base URL of the identity/data service (default from Config)
//	-k string   publishable API key (default from Config)
//	-d string   local sqlite database path (default from Config)
//	-t int      request timeout in seconds (default from Config)
//	-w int      fixed wizard step count (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-k", "-d", "-t", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServiceURL, "s", cfg.ServiceURL, "base URL of the identity/data service")
	fs.StringVar(&cfg.ServiceAPIKey, "k", cfg.ServiceAPIKey, "publishable API key")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local sqlite database path")
	requestTimeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.IntVar(&cfg.FixedWizardSteps, "w", cfg.FixedWizardSteps, "fixed wizard step count (4 or 5)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
}
