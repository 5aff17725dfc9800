package domain

import (
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/nixground/nixground-server/internal/errors"
)

// Cursor marks a resumable position in the newest-first image ordering.
// Slug breaks ties between images sharing AddedAt so the ordering is total.
type Cursor struct {
	AddedAt int64  `json:"added_at"`
	Slug    string `json:"slug"`
}

// Encode creates an opaque wire representation of the cursor.
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.AddedAt, 10) + ":" + c.Slug
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor decodes a wire cursor. An empty string means no cursor.
func DecodeCursor(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, nil
	}

	decoded, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Validation("Cursor is malformed").WithCause(err)
	}

	raw := string(decoded)
	sep := strings.Index(raw, ":")
	if sep < 0 {
		return nil, errors.Validation("Cursor is malformed")
	}

	addedAt, err := strconv.ParseInt(raw[:sep], 10, 64)
	if err != nil {
		return nil, errors.Validation("Cursor is malformed").WithCause(err)
	}
	if _, err := AssertUnixSeconds(addedAt); err != nil {
		return nil, err
	}

	slug, err := AssertImageSlug(raw[sep+1:])
	if err != nil {
		return nil, err
	}

	return &Cursor{AddedAt: addedAt, Slug: slug}, nil
}
