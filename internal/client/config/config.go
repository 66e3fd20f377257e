package config

import (
	"time"

	"github.com/personewsap/personews/internal/client/wizard"
)

// Config holds runtime settings for the PersoNewsAP CLI.
//
// Fields:
//   - ServiceURL: base URL of the external identity/data service.
//   - ServiceAPIKey: publishable key sent as the apikey header.
//   - DatabasePath: sqlite file holding the local draft slot.
//   - RequestTimeout: per-request HTTP timeout.
//   - FixedWizardSteps: fixed step count of the wizard (4 or 5).
type Config struct {
	ServiceURL       string
	ServiceAPIKey    string
	DatabasePath     string
	RequestTimeout   time.Duration
	FixedWizardSteps int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServiceURL = "http://127.0.0.1:54321"
	c.ServiceAPIKey = ""
	c.DatabasePath = "personews.db"
	c.RequestTimeout = 10 * time.Second
	c.FixedWizardSteps = wizard.DefaultFixedSteps
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
