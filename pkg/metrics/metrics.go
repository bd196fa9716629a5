// Package metrics defines the Prometheus collectors exported by the api and
// worker processes. Every recorder is nil-safe so callers may skip wiring.
package metrics

func labelOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
