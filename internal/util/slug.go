// Package util provides common utility functions.
package util

import (
	"regexp"
	"strings"
)

var (
	// Matches spaces, underscores, and slashes (for replacement with dashes).
	wordSeparatorRe = regexp.MustCompile(`[\s_/]+`)
	// Matches non-alphanumeric characters (except dashes).
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9-]`)
	// Matches multiple consecutive dashes.
	multipleDashRe = regexp.MustCompile(`-+`)
)

// Slugify converts a display name to a canonical slug.
//
// Normalization rules:
//  1. Trim whitespace and lowercase
//  2. Replace spaces, underscores, and slashes with dashes
//  3. Remove non-alphanumeric characters (except dashes)
//  4. Collapse multiple dashes
//  5. Trim leading/trailing dashes
//
// Examples:
//
//	"Misty Forest"    → "misty-forest"
//	"misty_forest"    → "misty-forest"
//	"NEON/City"       → "neon-city"
//	"🌄 Sunrise!"     → "sunrise"
//	"  multi   word " → "multi-word"
//	"--leading--"     → "leading"
func Slugify(input string) string {
	// 1. Trim and lowercase
	s := strings.ToLower(strings.TrimSpace(input))

	// 2. Replace word separators (spaces, underscores, slashes) with dashes
	s = wordSeparatorRe.ReplaceAllString(s, "-")

	// 3. Remove non-alphanumeric (except dashes)
	s = nonAlphanumericRe.ReplaceAllString(s, "")

	// 4. Collapse multiple dashes
	s = multipleDashRe.ReplaceAllString(s, "-")

	// 5. Trim leading/trailing dashes
	s = strings.Trim(s, "-")

	return s
}
