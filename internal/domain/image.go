// Package domain defines the gallery's core entities and the validators
// that guard every primitive value entering the system.
package domain

// Image represents a stored gallery asset.
// Slug is the source of truth for identity; the blob object key is derived
// from (slug, ext) and never stored.
type Image struct {
	Slug      string `json:"slug"`
	Ext       string `json:"ext"`  // Normalized: lowercase, no leading dot
	Name      string `json:"name"` // Display name, mutable
	AddedAt   int64  `json:"added_at"` // Unix seconds, immutable, ordering key
	SizeBytes int64  `json:"size_bytes"`
	WidthPx   int    `json:"width_px"`
	HeightPx  int    `json:"height_px"`
	SHA256    string `json:"sha256"`              // 43-char base64 digest + "="
	BlurHash  string `json:"blur_hash,omitempty"` // Preview placeholder, may be empty
	Ready     bool   `json:"ready"`               // False while an upload is mid-flight
}

// ObjectKey returns the blob store key for this image.
func (i *Image) ObjectKey() string {
	return ObjectKey(i.Slug, i.Ext)
}

// ObjectKey derives the blob store key from an image identity.
// Both parts must already be validated.
func ObjectKey(slug, ext string) string {
	return slug + "." + ext
}
