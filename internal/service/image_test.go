package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixground/nixground-server/internal/errors"
	"github.com/nixground/nixground-server/internal/validation"
)

func newImageService(t *testing.T, blobs *blobDouble) (*ImageService, *UploadService) {
	t.Helper()
	store := newTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	validator := validation.New()
	return NewImageService(store, blobs, validator, logger),
		NewUploadService(store, blobs, nil, validator, logger)
}

func TestListImagesPagesWithOpaqueCursor(t *testing.T) {
	blobs := newBlobDouble()
	imgSvc, upSvc := newImageService(t, blobs)
	ctx := context.Background()

	for _, name := range []string{"alpha", "bravo", "charlie"} {
		_, err := upSvc.Upload(ctx, UploadRequest{
			Data:     pngBytes(t, 64, 64),
			Filename: name + ".png",
			Slug:     name,
		})
		require.NoError(t, err)
	}

	first, err := imgSvc.ListImages(ctx, ListImagesRequest{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, "https://img.test/"+first.Items[0].Slug+".png", first.Items[0].URL)

	second, err := imgSvc.ListImages(ctx, ListImagesRequest{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	assert.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)

	// Garbage cursors reject instead of restarting the listing.
	_, err = imgSvc.ListImages(ctx, ListImagesRequest{Limit: 2, Cursor: "not-a-cursor"})
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestRenameImage(t *testing.T) {
	blobs := newBlobDouble()
	imgSvc, upSvc := newImageService(t, blobs)
	ctx := context.Background()

	_, err := upSvc.Upload(ctx, UploadRequest{
		Data:     pngBytes(t, 64, 64),
		Filename: "old.png",
		Slug:     "pic",
	})
	require.NoError(t, err)

	view, err := imgSvc.RenameImage(ctx, "pic", "Better Name")
	require.NoError(t, err)
	assert.Equal(t, "Better Name", view.Name)

	_, err = imgSvc.RenameImage(ctx, "ghost", "X")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestDeleteImageRemovesBlobAndRow(t *testing.T) {
	blobs := newBlobDouble()
	imgSvc, upSvc := newImageService(t, blobs)
	ctx := context.Background()

	_, err := upSvc.Upload(ctx, UploadRequest{
		Data:     pngBytes(t, 64, 64),
		Filename: "gone.png",
		Slug:     "gone",
	})
	require.NoError(t, err)

	require.NoError(t, imgSvc.DeleteImage(ctx, "gone"))

	exists, err := blobs.Exists(ctx, "gone.png")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = imgSvc.GetImage(ctx, "gone", true)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
