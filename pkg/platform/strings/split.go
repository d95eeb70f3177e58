// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// SplitAndTrim splits s on sep, trims whitespace from each piece and drops
// pieces that end up empty. Order and duplicates are preserved.
//
// Example:
//
//	SplitAndTrim(" Engineer, Pilot,,Engineer ", ",")
//	// Returns: []string{"Engineer", "Pilot", "Engineer"}
func SplitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed == "" {
			continue
		}
		result = append(result, trimmed)
	}
	return result
}
