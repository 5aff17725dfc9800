package service

import (
	"context"
	"log/slog"

	"github.com/nixground/nixground-server/internal/blob"
	"github.com/nixground/nixground-server/internal/domain"
	"github.com/nixground/nixground-server/internal/store/sqlite"
	"github.com/nixground/nixground-server/internal/validation"
)

// ImageService handles listing, retrieval, and mutation of stored images.
type ImageService struct {
	store     *sqlite.Store
	blobs     blob.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewImageService creates a new image service.
func NewImageService(store *sqlite.Store, blobs blob.Store, validator *validation.Validator, logger *slog.Logger) *ImageService {
	return &ImageService{
		store:     store,
		blobs:     blobs,
		validator: validator,
		logger:    logger,
	}
}

// ImageView is an image enriched with its public URL and, when loaded,
// its tags.
type ImageView struct {
	*domain.Image
	Tags []*domain.Tag `json:"tags,omitempty"`
	URL  string        `json:"url"`
}

// ImagePageView is one page of the listing with an opaque next cursor.
type ImagePageView struct {
	Items      []*ImageView `json:"items"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

func (s *ImageService) view(img *domain.Image, tags []*domain.Tag) *ImageView {
	return &ImageView{
		Image: img,
		Tags:  tags,
		URL:   s.blobs.PublicURL(img.ObjectKey()),
	}
}

// ListImagesRequest selects a page of the image listing.
type ListImagesRequest struct {
	Limit           int      `json:"limit" validate:"omitempty,gte=1,lte=200"`
	Cursor          string   `json:"cursor"`
	Tags            []string `json:"tags"`
	IncludeNotReady bool     `json:"include_not_ready"`
}

// defaultPageLimit applies when the client does not ask for one.
const defaultPageLimit = 60

// ListImages returns one page of the newest-first listing. Tags are grouped
// by kind: an image matches when it carries at least one selected tag from
// every kind present in the selection.
func (s *ImageService) ListImages(ctx context.Context, req ListImagesRequest) (*ImagePageView, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Limit == 0 {
		req.Limit = defaultPageLimit
	}

	cursor, err := domain.DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}

	selected := make([]string, 0, len(req.Tags))
	for _, raw := range req.Tags {
		slug, err := domain.AssertTagSlug(raw)
		if err != nil {
			return nil, err
		}
		selected = append(selected, slug)
	}

	session, err := s.store.BeginSession(ctx, sqlite.Read)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	page, err := session.ListImagesPage(ctx, sqlite.ListImagesParams{
		Cursor:          cursor,
		Limit:           req.Limit,
		Filter:          domain.GroupTagSlugs(selected),
		IncludeNotReady: req.IncludeNotReady,
	})
	if err != nil {
		return nil, err
	}

	result := &ImagePageView{Items: make([]*ImageView, 0, len(page.Items))}
	for _, img := range page.Items {
		result.Items = append(result.Items, s.view(img, nil))
	}
	if page.NextCursor != nil {
		result.NextCursor = page.NextCursor.Encode()
	}
	return result, nil
}

// GetImage returns one image with its tags.
func (s *ImageService) GetImage(ctx context.Context, slug string, includeNotReady bool) (*ImageView, error) {
	session, err := s.store.BeginSession(ctx, sqlite.Read)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	found, err := session.GetImageBySlug(ctx, slug, includeNotReady)
	if err != nil {
		return nil, err
	}
	return s.view(found.Image, found.Tags), nil
}

// RenameImage updates an image's display name.
func (s *ImageService) RenameImage(ctx context.Context, slug, name string) (*ImageView, error) {
	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := session.UpdateImageName(ctx, slug, name); err != nil {
		return nil, err
	}
	found, err := session.GetImageBySlug(ctx, slug, true)
	if err != nil {
		return nil, err
	}
	if err := session.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("Image renamed", "slug", slug, "name", found.Image.Name)
	return s.view(found.Image, found.Tags), nil
}

// SetUserTags replaces an image's user-assigned tags. System associations
// are preserved; a system tag in the set rejects the whole call.
func (s *ImageService) SetUserTags(ctx context.Context, slug string, tags []string) (*ImageView, error) {
	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := session.SetImageUserTags(ctx, slug, tags); err != nil {
		return nil, err
	}
	found, err := session.GetImageBySlug(ctx, slug, true)
	if err != nil {
		return nil, err
	}
	if err := session.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("Image user tags replaced", "slug", slug, "tag_count", len(tags))
	return s.view(found.Image, found.Tags), nil
}

// BulkModifyTagsRequest adds and removes tags across many images at once.
type BulkModifyTagsRequest struct {
	ImageSlugs []string `json:"image_slugs" validate:"required,min=1"`
	AddTags    []string `json:"add_tags"`
	RemoveTags []string `json:"remove_tags"`
}

// BulkModifyTags applies tag additions and removals to every named image
// that exists. Missing images are skipped, not errors.
func (s *ImageService) BulkModifyTags(ctx context.Context, req BulkModifyTagsRequest) (*domain.BulkModifyResult, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	result, err := session.BulkModifyImagesTags(ctx, req.ImageSlugs, req.AddTags, req.RemoveTags)
	if err != nil {
		return nil, err
	}
	if err := session.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("Bulk tag modification applied",
		"images", result.ImageCount,
		"inserted", result.InsertedCount,
		"removed", result.RemovedCount,
	)
	return result, nil
}

// DeleteImage removes an image's blob and row. The blob goes first so a
// failure never leaves a row pointing at deleted bytes; a missing blob is
// tolerated.
func (s *ImageService) DeleteImage(ctx context.Context, slug string) error {
	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return err
	}
	defer session.Close()

	found, err := session.GetImageBySlug(ctx, slug, true)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, found.Image.ObjectKey()); err != nil {
		return err
	}

	if err := session.DeleteImageBySlug(ctx, slug); err != nil {
		return err
	}
	if err := session.Commit(); err != nil {
		return err
	}

	s.logger.Info("Image deleted", "slug", slug)
	return nil
}
