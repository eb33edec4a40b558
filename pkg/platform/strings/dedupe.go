// Package strings provides string list utilities shared by config parsing and
// warning aggregation.
package strings

import (
	"strings"
)

// DedupeAndTrim removes duplicates and blank entries from a slice, trimming
// whitespace from each element. First occurrence wins, so order is preserved.
//
// Example:
//
//	DedupeAndTrim([]string{" low OCR confidence ", "low OCR confidence", ""})
//	// Returns: []string{"low OCR confidence"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, strings.TrimSpace)
}

// SplitList splits a comma separated setting such as "ara, eng,ENG" into
// lowercased, trimmed, de-duplicated entries.
//
// Example:
//
//	SplitList("ara, eng,ENG,")
//	// Returns: []string{"ara", "eng"}
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return dedupe(strings.Split(raw, ","), func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			result = append(result, n)
		}
	}

	return result
}
