// Package config loads runtime configuration for the PersoNewsAP CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-s string   base URL of the identity/data service
//	-k string   publishable API key sent with every request
//	-d string   path of the local sqlite database file
//	-t int      request timeout (seconds)
//	-w int      number of fixed wizard steps (4 or 5)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "10s" or integer nanoseconds:
//
//	{
//	  "service_url": "https://id.personewsap.example",
//	  "service_api_key": "pk_...",
//	  "database_path": "personews.db",
//	  "request_timeout": "10s",
//	  "fixed_wizard_steps": 4
//	}
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
