package domain

import (
	"regexp"
	"strings"

	"github.com/nixground/nixground-server/internal/errors"
)

// Slug grammar: lowercase alphanumeric tokens joined by single hyphens,
// starting with a letter. Tag slugs are "{kind}/{value}" where the value
// part may start with a digit.
var (
	slugRe         = regexp.MustCompile(`^[a-z][a-z0-9]*(?:-[a-z0-9]+)*$`)
	tagSlugRe      = regexp.MustCompile(`^[a-z][a-z0-9]*(?:-[a-z0-9]+)*/[a-z0-9]+(?:-[a-z0-9]+)*$`)
	imageExtRe     = regexp.MustCompile(`^[a-z0-9]+$`)
	base64Sha256Re = regexp.MustCompile(`^[A-Za-z0-9+/]{43}=$`)
	leadingDotsRe  = regexp.MustCompile(`^\.+`)
)

// AssertTagKindSlug validates a tag-kind slug.
func AssertTagKindSlug(value string) (string, error) {
	if !slugRe.MatchString(value) {
		return "", errors.Validationf("Tag kind slug must be lowercase and hyphenated: %q", value)
	}
	return value, nil
}

// AssertTagSlug validates a composite tag slug. Input is trimmed and
// lowercased before validation.
func AssertTagSlug(value string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if !tagSlugRe.MatchString(normalized) {
		return "", errors.Validationf("Tag slug must match `kind/slug` format: %q", value)
	}
	return normalized, nil
}

// SplitTagSlug splits a validated tag slug into its kind and value parts.
func SplitTagSlug(tagSlug string) (kindSlug, value string) {
	kindSlug, value, _ = strings.Cut(tagSlug, "/")
	return kindSlug, value
}

// AssertImageSlug validates an image slug.
func AssertImageSlug(value string) (string, error) {
	if !slugRe.MatchString(value) {
		return "", errors.Validationf("Image slug must be lowercase and hyphenated: %q", value)
	}
	return value, nil
}

// AssertImageExt validates and normalizes a file extension by trimming,
// lowercasing, and stripping leading dots.
func AssertImageExt(value string) (string, error) {
	normalized := leadingDotsRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), "")
	if !imageExtRe.MatchString(normalized) {
		return "", errors.Validationf("Image extension must be alphanumeric: %q", value)
	}
	return normalized, nil
}

// AssertSHA256 validates a base64-encoded SHA-256 digest.
func AssertSHA256(value string) (string, error) {
	normalized := strings.TrimSpace(value)
	if !base64Sha256Re.MatchString(normalized) {
		return "", errors.Validation("sha256 must be a base64-encoded SHA-256 digest")
	}
	return normalized, nil
}

// AssertUnixSeconds validates a unix timestamp in seconds.
func AssertUnixSeconds(value int64) (int64, error) {
	if value < 0 {
		return 0, errors.Validation("Unix timestamp seconds must be a non-negative integer")
	}
	return value, nil
}

// AssertSizeBytes validates an image byte size.
func AssertSizeBytes(value int64) (int64, error) {
	if value < 0 {
		return 0, errors.Validation("Image size bytes must be a non-negative integer")
	}
	return value, nil
}

// AssertWidthPx validates an image width.
func AssertWidthPx(value int) (int, error) {
	if value <= 0 {
		return 0, errors.Validation("Image width must be a positive integer")
	}
	return value, nil
}

// AssertHeightPx validates an image height.
func AssertHeightPx(value int) (int, error) {
	if value <= 0 {
		return 0, errors.Validation("Image height must be a positive integer")
	}
	return value, nil
}

// AssertImageName validates an image display name.
func AssertImageName(value string) (string, error) {
	return assertName(value, "Image name")
}

// AssertTagName validates a tag display name.
func AssertTagName(value string) (string, error) {
	return assertName(value, "Tag name")
}

// AssertTagKindName validates a tag-kind display name.
func AssertTagKindName(value string) (string, error) {
	return assertName(value, "Tag kind name")
}

func assertName(value, what string) (string, error) {
	normalized := strings.TrimSpace(value)
	if normalized == "" {
		return "", errors.Validationf("%s must not be empty", what)
	}
	return normalized, nil
}

// AssertPageLimit validates a listing page size.
func AssertPageLimit(value int) (int, error) {
	if value < 1 || value > 200 {
		return 0, errors.Validationf("Page limit must be between 1 and 200, got %d", value)
	}
	return value, nil
}
