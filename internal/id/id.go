// Package id generates unique image slugs.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/nixground/nixground-server/internal/util"
)

// slugAlphabet keeps generated suffixes lowercase alphanumeric so slugs
// stay URL- and case-safe.
const slugAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// suffixLength of 8 over a 36-char alphabet gives ~41 bits of entropy,
// plenty for a single-owner gallery.
const suffixLength = 8

// NewImageSlug derives a unique image slug from a display name.
// The name is slugified and a random suffix appended, so repeated uploads
// of the same name never collide.
//
// Returns an error if the system has insufficient entropy for secure
// random generation.
func NewImageSlug(name string) (string, error) {
	suffix, err := gonanoid.Generate(slugAlphabet, suffixLength)
	if err != nil {
		return "", fmt.Errorf("generate slug suffix: %w", err)
	}

	base := util.Slugify(name)
	// Slugs must start with a letter.
	if base == "" {
		base = "img"
	} else if base[0] < 'a' || base[0] > 'z' {
		base = "img-" + base
	}

	return base + "-" + suffix, nil
}

// MustNewImageSlug is like NewImageSlug but panics if generation fails.
// Use this only when failure should crash the program (e.g., seeding).
func MustNewImageSlug(name string) string {
	slug, err := NewImageSlug(name)
	if err != nil {
		panic(fmt.Sprintf("failed to generate image slug: %v", err))
	}
	return slug
}
