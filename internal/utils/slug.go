package utils

import (
	"regexp"
	"strings"
)

// MaxSlugLength caps generated slugs.
const MaxSlugLength = 100

var (
	slugInvalid    = regexp.MustCompile(`[^a-z0-9\s\p{Zs}-]`)
	slugWhitespace = regexp.MustCompile(`[\s\p{Zs}]+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// Slugify derives a URL-safe key from a title: lower-cased, anything other than
// ASCII letters, digits, whitespace and hyphens dropped, whitespace runs (Unicode
// spaces included) turned into single hyphens, then truncated to MaxSlugLength.
func Slugify(title string) string {
	s := strings.ToLower(title)
	s = slugInvalid.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	s = slugHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > MaxSlugLength {
		s = strings.TrimRight(s[:MaxSlugLength], "-")
	}
	return s
}

// SlugWithSuffix appends "-suffix" to base, shortening base so the result stays within MaxSlugLength.
func SlugWithSuffix(base, suffix string) string {
	if base == "" {
		return suffix
	}
	limit := MaxSlugLength - len(suffix) - 1
	if len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	return base + "-" + suffix
}
