// Package env reads process settings that are needed before config.Load runs
// or that must stay out of the config struct.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of key, or fallback when unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Secret returns the raw value of key and unsets it so child processes and
// later dumps of the environment never see it.
func Secret(key string) string {
	val := os.Getenv(key)
	_ = os.Unsetenv(key)
	return val
}
