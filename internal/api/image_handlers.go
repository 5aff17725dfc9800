package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nixground/nixground-server/internal/service"
)

func (s *Server) registerImageRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listImages",
		Method:      http.MethodGet,
		Path:        "/api/v1/images",
		Summary:     "List images",
		Description: "Returns a newest-first page of images, optionally filtered by tags",
		Tags:        []string{"Images"},
	}, s.handleListImages)

	huma.Register(s.api, huma.Operation{
		OperationID: "getImage",
		Method:      http.MethodGet,
		Path:        "/api/v1/images/{slug}",
		Summary:     "Get image",
		Description: "Returns one image with its tags",
		Tags:        []string{"Images"},
	}, s.handleGetImage)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameImage",
		Method:      http.MethodPatch,
		Path:        "/api/v1/images/{slug}",
		Summary:     "Rename image",
		Description: "Updates an image's display name",
		Tags:        []string{"Images"},
	}, s.handleRenameImage)

	huma.Register(s.api, huma.Operation{
		OperationID: "setImageTags",
		Method:      http.MethodPut,
		Path:        "/api/v1/images/{slug}/tags",
		Summary:     "Set image tags",
		Description: "Replaces an image's user-assigned tags; system tags are preserved",
		Tags:        []string{"Images"},
	}, s.handleSetImageTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteImage",
		Method:      http.MethodDelete,
		Path:        "/api/v1/images/{slug}",
		Summary:     "Delete image",
		Description: "Removes an image's stored bytes and metadata",
		Tags:        []string{"Images"},
	}, s.handleDeleteImage)

	huma.Register(s.api, huma.Operation{
		OperationID: "bulkModifyImageTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/images/bulk-tags",
		Summary:     "Bulk modify image tags",
		Description: "Adds and removes tags across many images in one transaction",
		Tags:        []string{"Images"},
	}, s.handleBulkModifyTags)
}

// === DTOs ===

// ListImagesInput contains parameters for listing images.
type ListImagesInput struct {
	Limit           int      `query:"limit" doc:"Page size, 1 to 200, default 60"`
	Cursor          string   `query:"cursor" doc:"Opaque cursor from the previous page"`
	Tags            []string `query:"tag" doc:"Tag slugs to filter by, OR within a kind, AND across kinds"`
	IncludeNotReady bool     `query:"includeNotReady" doc:"Include images whose upload has not finished"`
}

// ListImagesResponse contains one page of the image listing.
type ListImagesResponse struct {
	Items      []ImageResponse `json:"items" doc:"Images, newest first"`
	NextCursor string          `json:"next_cursor,omitempty" doc:"Cursor for the next page, empty on the last page"`
}

// ListImagesOutput wraps the list images response for Huma.
type ListImagesOutput struct {
	Body ListImagesResponse
}

// GetImageInput contains parameters for getting an image.
type GetImageInput struct {
	Slug            string `path:"slug" doc:"Image slug"`
	IncludeNotReady bool   `query:"includeNotReady" doc:"Also resolve images whose upload has not finished"`
}

// ImageOutput wraps a single image response for Huma.
type ImageOutput struct {
	Body ImageResponse
}

// RenameImageRequest is the request body for renaming an image.
type RenameImageRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200" doc:"New display name"`
}

// RenameImageInput wraps the rename request for Huma.
type RenameImageInput struct {
	Slug string `path:"slug" doc:"Image slug"`
	Body RenameImageRequest
}

// SetImageTagsRequest is the request body for replacing user tags.
type SetImageTagsRequest struct {
	Tags []string `json:"tags" doc:"Full replacement set of user tag slugs"`
}

// SetImageTagsInput wraps the set tags request for Huma.
type SetImageTagsInput struct {
	Slug string `path:"slug" doc:"Image slug"`
	Body SetImageTagsRequest
}

// DeleteImageInput contains parameters for deleting an image.
type DeleteImageInput struct {
	Slug string `path:"slug" doc:"Image slug"`
}

// BulkModifyTagsRequest is the request body for bulk tag modification.
type BulkModifyTagsRequest struct {
	ImageSlugs []string `json:"image_slugs" validate:"required,min=1" doc:"Target image slugs; missing images are skipped"`
	AddTags    []string `json:"add_tags,omitempty" doc:"Tag slugs to attach"`
	RemoveTags []string `json:"remove_tags,omitempty" doc:"Tag slugs to detach"`
}

// BulkModifyTagsResponse reports what the bulk modification touched.
type BulkModifyTagsResponse struct {
	ImageCount        int `json:"image_count" doc:"Images that exist and were processed"`
	TagsToAddCount    int `json:"tags_to_add_count" doc:"Distinct tags in the add set"`
	TagsToRemoveCount int `json:"tags_to_remove_count" doc:"Distinct tags in the remove set"`
	InsertedCount     int `json:"inserted_count" doc:"Associations actually inserted"`
	RemovedCount      int `json:"removed_count" doc:"Associations actually removed"`
}

// BulkModifyTagsInput wraps the bulk modification request for Huma.
type BulkModifyTagsInput struct {
	Body BulkModifyTagsRequest
}

// BulkModifyTagsOutput wraps the bulk modification response for Huma.
type BulkModifyTagsOutput struct {
	Body BulkModifyTagsResponse
}

// === Handlers ===

func (s *Server) handleListImages(ctx context.Context, input *ListImagesInput) (*ListImagesOutput, error) {
	page, err := s.services.Image.ListImages(ctx, service.ListImagesRequest{
		Limit:           input.Limit,
		Cursor:          input.Cursor,
		Tags:            input.Tags,
		IncludeNotReady: input.IncludeNotReady,
	})
	if err != nil {
		return nil, err
	}

	items := make([]ImageResponse, len(page.Items))
	for i, view := range page.Items {
		items[i] = toImageResponse(view)
	}

	return &ListImagesOutput{Body: ListImagesResponse{
		Items:      items,
		NextCursor: page.NextCursor,
	}}, nil
}

func (s *Server) handleGetImage(ctx context.Context, input *GetImageInput) (*ImageOutput, error) {
	view, err := s.services.Image.GetImage(ctx, input.Slug, input.IncludeNotReady)
	if err != nil {
		return nil, err
	}
	return &ImageOutput{Body: toImageResponse(view)}, nil
}

func (s *Server) handleRenameImage(ctx context.Context, input *RenameImageInput) (*ImageOutput, error) {
	view, err := s.services.Image.RenameImage(ctx, input.Slug, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &ImageOutput{Body: toImageResponse(view)}, nil
}

func (s *Server) handleSetImageTags(ctx context.Context, input *SetImageTagsInput) (*ImageOutput, error) {
	view, err := s.services.Image.SetUserTags(ctx, input.Slug, input.Body.Tags)
	if err != nil {
		return nil, err
	}
	return &ImageOutput{Body: toImageResponse(view)}, nil
}

func (s *Server) handleDeleteImage(ctx context.Context, input *DeleteImageInput) (*MessageOutput, error) {
	if err := s.services.Image.DeleteImage(ctx, input.Slug); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Image deleted"}}, nil
}

func (s *Server) handleBulkModifyTags(ctx context.Context, input *BulkModifyTagsInput) (*BulkModifyTagsOutput, error) {
	result, err := s.services.Image.BulkModifyTags(ctx, service.BulkModifyTagsRequest{
		ImageSlugs: input.Body.ImageSlugs,
		AddTags:    input.Body.AddTags,
		RemoveTags: input.Body.RemoveTags,
	})
	if err != nil {
		return nil, err
	}

	return &BulkModifyTagsOutput{Body: BulkModifyTagsResponse{
		ImageCount:        result.ImageCount,
		TagsToAddCount:    result.TagsToAddCount,
		TagsToRemoveCount: result.TagsToRemoveCount,
		InsertedCount:     result.InsertedCount,
		RemovedCount:      result.RemovedCount,
	}}, nil
}
