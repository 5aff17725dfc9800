package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixground/nixground-server/internal/errors"
)

func TestTagKindLifecycle(t *testing.T) {
	ts := setupTestServer(t, nil)

	// Create.
	resp := ts.api.Post("/api/v1/tag-kinds", map[string]any{"slug": "motive", "name": "Motive"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var kind TagKindResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &kind))
	assert.Equal(t, "motive", kind.Slug)
	assert.False(t, kind.SystemOnly)

	// Duplicate create conflicts.
	resp = ts.api.Post("/api/v1/tag-kinds", map[string]any{"slug": "motive", "name": "Motive"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	// Rename.
	resp = ts.api.Patch("/api/v1/tag-kinds/motive", map[string]any{"name": "Subject"})
	require.Equal(t, http.StatusOK, resp.Code)
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &kind))
	assert.Equal(t, "Subject", kind.Name)

	// Delete while empty succeeds.
	resp = ts.api.Delete("/api/v1/tag-kinds/motive")
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestDeleteTagKind_WithTagsRejected(t *testing.T) {
	ts := setupTestServer(t, nil)

	// The system vocabulary seeds resolution tags, so the kind is not empty.
	resp := ts.api.Delete("/api/v1/tag-kinds/resolution")
	assert.Equal(t, http.StatusConflict, resp.Code)

	apiErr := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, string(errors.CodeInvariant), apiErr.Code)
}

func TestCreateTag_SystemOnlyKindRejected(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/tags", map[string]any{"slug": "resolution/8k", "name": "8K"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	apiErr := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, string(errors.CodeInvariant), apiErr.Code)
}

func TestTagLifecycle(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/tag-kinds", map[string]any{"slug": "motive", "name": "Motive"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Post("/api/v1/tags", map[string]any{"slug": "motive/nature", "name": "Nature"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var tag TagResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tag))
	assert.Equal(t, "motive/nature", tag.Slug)
	assert.Equal(t, "motive", tag.KindSlug)
	assert.False(t, tag.System)

	// Rename via the split path form.
	resp = ts.api.Patch("/api/v1/tags/motive/nature", map[string]any{"name": "Wild Nature"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tag))
	assert.Equal(t, "Wild Nature", tag.Name)

	// Assignable listing shows it, system tags excluded.
	resp = ts.api.Get("/api/v1/tags")
	require.Equal(t, http.StatusOK, resp.Code)

	var listing ListTagsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listing))
	require.Len(t, listing.Tags, 1)
	assert.Equal(t, "motive/nature", listing.Tags[0].Slug)

	// Delete.
	resp = ts.api.Delete("/api/v1/tags/motive/nature")
	assert.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Delete("/api/v1/tags/motive/nature")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRenameTag_SystemRejected(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Patch("/api/v1/tags/resolution/4k", map[string]any{"name": "Ultra HD"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	apiErr := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, string(errors.CodeInvariant), apiErr.Code)
}

func TestListTagKinds_CountsAndSelection(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/tag-kinds", map[string]any{"slug": "motive", "name": "Motive"})
	require.Equal(t, http.StatusOK, resp.Code)
	resp = ts.api.Post("/api/v1/tags", map[string]any{"slug": "motive/nature", "name": "Nature"})
	require.Equal(t, http.StatusOK, resp.Code)

	// Two 16:10 images, one of them tagged nature.
	ts.uploadTestImage(t, "forest", 320, 200, map[string]string{"tags": "motive/nature"})
	ts.uploadTestImage(t, "city", 320, 200, nil)

	resp = ts.api.Get("/api/v1/tag-kinds?tag=motive/nature")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var listing ListTagKindsResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &listing))

	bySlug := make(map[string]TagKindWithCountsResponse)
	for _, kind := range listing.Kinds {
		bySlug[kind.Slug] = kind
	}

	motive, ok := bySlug["motive"]
	require.True(t, ok)
	assert.True(t, motive.HasSelected)
	require.Len(t, motive.Tags, 1)
	assert.True(t, motive.Tags[0].Selected)
	assert.Equal(t, 1, motive.Tags[0].ImageCount)

	// Under the nature selection only the tagged image counts.
	aspect, ok := bySlug["aspect-ratio"]
	require.True(t, ok)
	assert.Equal(t, 1, aspect.ImageCount)
	assert.False(t, aspect.HasSelected)
}

func TestReapplySystemTags(t *testing.T) {
	ts := setupTestServer(t, nil)
	ts.uploadTestImage(t, "wide", 3840, 2160, nil)

	resp := ts.api.Post("/api/v1/system-tags/reapply", map[string]any{})
	assert.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/images/wide")
	require.Equal(t, http.StatusOK, resp.Code)

	var img ImageResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &img))

	var tagSlugs []string
	for _, tag := range img.Tags {
		tagSlugs = append(tagSlugs, tag.Slug)
	}
	assert.Contains(t, tagSlugs, "resolution/4k")
	assert.Contains(t, tagSlugs, "aspect-ratio/16-9")
}
