package citation

import "strings"

// ParseKeys splits a marker's comma-separated key attribute.
// Each key is whitespace-trimmed; empty keys are dropped.
func ParseKeys(attr string) []string {
	parts := strings.Split(attr, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// FormatKeys is the inverse of ParseKeys for display.
func FormatKeys(keys []string) string {
	return strings.Join(keys, ", ")
}
