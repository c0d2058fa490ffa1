// Package strings holds small helpers for list-valued input such as query
// parameters and CSV header rows.
package strings

import (
	"strings"
)

// DedupeAndTrimLower trims and lowercases each element, dropping empties and
// repeats. Order of first occurrence is preserved.
//
//	DedupeAndTrimLower([]string{"  Customer ", "order", "CUSTOMER"})
//	// Returns: []string{"customer", "order"}
func DedupeAndTrimLower(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		trimmed := strings.ToLower(strings.TrimSpace(v))
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}

	return result
}

// SplitList splits a comma separated value and normalizes it with DedupeAndTrimLower.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return DedupeAndTrimLower(strings.Split(s, ","))
}

// FirstDuplicate returns the first value that repeats an earlier one after
// trimming. Comparison is case-sensitive.
func FirstDuplicate(values []string) (string, bool) {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if _, ok := seen[trimmed]; ok {
			return trimmed, true
		}
		seen[trimmed] = struct{}{}
	}
	return "", false
}
