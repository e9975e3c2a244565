// Package env reads raw process environment values. It exists for the few
// knobs (log format, bootstrap overrides) that must resolve before pkg/config
// has loaded.
package env

import "os"

// Get returns the named variable, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
