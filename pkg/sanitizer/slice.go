package sanitizer

import "strings"

func NormalizeStringSlice(items []string, normalizer func(string) string) []string {
	if len(items) == 0 {
		return []string{}
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizer(item)

		if normalized == "" {
			continue
		}

		key := strings.ToLower(normalized)
		if seen[key] {
			continue
		}

		seen[key] = true
		result = append(result, normalized)
	}

	return result
}

// NormalizeTags cleans a specialization list.
func NormalizeTags(tags []string) []string {
	return NormalizeStringSlice(tags, SanitizeText)
}
