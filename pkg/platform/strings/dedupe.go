// Package strings provides string slice helpers for configuration input.
package strings

import (
	"strings"
)

// DedupeAndTrim trims each element and drops empty and repeated values,
// keeping first occurrences in order. Comparison is case-sensitive.
//
//	DedupeAndTrim([]string{" kafka-1:9092", "kafka-2:9092", "kafka-1:9092", ""})
//	// []string{"kafka-1:9092", "kafka-2:9092"}
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
