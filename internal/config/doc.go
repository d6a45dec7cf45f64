// Package config loads, validates, and normalizes the TOML configuration
// for the shrink daemon and CLI.
package config
