package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixground/nixground-server/internal/domain"
)

func TestNewImageSlug_Uniqueness(t *testing.T) {
	// Generate many slugs from the same name and verify they're unique
	slugs := make(map[string]bool)
	count := 1000

	for i := 0; i < count; i++ {
		slug, err := NewImageSlug("Misty Forest")
		require.NoError(t, err)
		assert.False(t, slugs[slug], "slug should be unique: %s", slug)
		slugs[slug] = true
	}

	assert.Len(t, slugs, count)
}

func TestNewImageSlug_Format(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPrefix string
	}{
		{"plain name", "Misty Forest", "misty-forest-"},
		{"empty name", "", "img-"},
		{"symbols only", "!!!", "img-"},
		{"leading digit", "4K Wallpaper", "img-4k-wallpaper-"},
		{"already a slug", "neon-city", "neon-city-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slug, err := NewImageSlug(tt.input)
			require.NoError(t, err)

			assert.True(t, strings.HasPrefix(slug, tt.wantPrefix), "slug %s", slug)
			assert.Len(t, slug, len(tt.wantPrefix)+suffixLength)

			// Every generated slug passes domain validation.
			_, err = domain.AssertImageSlug(slug)
			assert.NoError(t, err)
		})
	}
}

func TestMustNewImageSlug(t *testing.T) {
	slug := MustNewImageSlug("Sunrise")
	assert.True(t, strings.HasPrefix(slug, "sunrise-"))
}

func BenchmarkNewImageSlug(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = NewImageSlug("Misty Forest")
	}
}
