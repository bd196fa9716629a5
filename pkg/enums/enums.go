// Package enums holds the string enums shared by the Go models and the
// Postgres enum types created in the migrations.
package enums

import (
	"fmt"
	"slices"
)

// closedSet is every value of one enum type.
type closedSet[T ~string] []T

func (s closedSet[T]) has(v T) bool {
	return slices.Contains(s, v)
}

func (s closedSet[T]) parse(kind, raw string) (T, error) {
	if v := T(raw); s.has(v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
