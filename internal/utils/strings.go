package utils

import "strings"

// ParseCSV splits a comma-separated string and returns trimmed non-empty values.
// Returns nil for empty/whitespace-only input.
// Used for tier-filter lists stored in the database and for the event
// stream type filter query parameter.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// JoinCSV is the inverse of ParseCSV.
func JoinCSV(values []string) string {
	return strings.Join(values, ",")
}
