// Package env reads process settings that are needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// Prefix namespaces every variable this service owns.
const Prefix = "STOREORDERS_"

// Get returns STOREORDERS_<key>, then the bare key, then fallback.
// Blank values count as unset.
func Get(key, fallback string) string {
	if val, ok := Lookup(key); ok {
		return val
	}
	return fallback
}

// Lookup is Get without a fallback.
func Lookup(key string) (string, bool) {
	for _, name := range []string{Prefix + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val, true
		}
	}
	return "", false
}
