package model

import "strings"

// NormalizeName applies the one normalization rule used throughout the
// pipeline for name comparisons: lowercase, strip apostrophes, hyphens to
// spaces, trim. Enrichment matching, consensus grouping, and agreement
// counting all key off this function so a name compares equal to itself
// regardless of which provider or stage produced it.
func NormalizeName(name string) string {
	n := strings.ToLower(name)
	n = strings.ReplaceAll(n, "'", "")
	n = strings.ReplaceAll(n, "’", "") // curly apostrophe
	n = strings.ReplaceAll(n, "-", " ")
	n = strings.Join(strings.Fields(n), " ")
	return strings.TrimSpace(n)
}
