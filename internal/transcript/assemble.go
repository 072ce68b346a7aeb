package transcript

import "strings"

// Assemble joins finalized segments in arrival order, then the interim
// suffix, with normalized single-space separation.
func Assemble(finalSegments []string, interim string) string {
	parts := make([]string, 0, len(finalSegments)+1)
	for _, segment := range finalSegments {
		if cleaned := cleanSegment(segment); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	if cleaned := cleanSegment(interim); cleaned != "" {
		parts = append(parts, cleaned)
	}
	return strings.Join(parts, " ")
}

// cleanSegment normalizes transcript whitespace.
func cleanSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.Join(strings.Fields(raw), " ")
}
