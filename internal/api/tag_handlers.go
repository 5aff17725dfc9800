package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nixground/nixground-server/internal/service"
	"github.com/nixground/nixground-server/internal/store/sqlite"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTagKinds",
		Method:      http.MethodGet,
		Path:        "/api/v1/tag-kinds",
		Summary:     "List tag kinds",
		Description: "Returns every tag kind with its tags and image counts, scoped to the current tag selection",
		Tags:        []string{"Tags"},
	}, s.handleListTagKinds)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTagKind",
		Method:      http.MethodPost,
		Path:        "/api/v1/tag-kinds",
		Summary:     "Create tag kind",
		Description: "Creates a user-assignable tag kind",
		Tags:        []string{"Tags"},
	}, s.handleCreateTagKind)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameTagKind",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tag-kinds/{slug}",
		Summary:     "Rename tag kind",
		Description: "Updates a tag kind's display name, creating the kind when absent",
		Tags:        []string{"Tags"},
	}, s.handleRenameTagKind)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTagKind",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tag-kinds/{slug}",
		Summary:     "Delete tag kind",
		Description: "Deletes an empty, user-manageable tag kind",
		Tags:        []string{"Tags"},
	}, s.handleDeleteTagKind)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List assignable tags",
		Description: "Returns the tags users may attach to images, system tags excluded",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "createTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags",
		Summary:     "Create tag",
		Description: "Creates a user tag under an existing, user-assignable kind",
		Tags:        []string{"Tags"},
	}, s.handleCreateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "renameTag",
		Method:      http.MethodPatch,
		Path:        "/api/v1/tags/{kind}/{value}",
		Summary:     "Rename tag",
		Description: "Updates a tag's display name; system tags reject the rename",
		Tags:        []string{"Tags"},
	}, s.handleRenameTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/tags/{kind}/{value}",
		Summary:     "Delete tag",
		Description: "Deletes a user tag; system tags reject the delete",
		Tags:        []string{"Tags"},
	}, s.handleDeleteTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "reapplySystemTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/system-tags/reapply",
		Summary:     "Reapply system tags",
		Description: "Recomputes system tag associations for every image in one transaction",
		Tags:        []string{"Tags"},
	}, s.handleReapplySystemTags)
}

// === DTOs ===

// ListTagKindsInput contains parameters for the tag kind listing.
type ListTagKindsInput struct {
	Tags            []string `query:"tag" doc:"Currently selected tag slugs; counts shrink to the matching images"`
	IncludeNotReady bool     `query:"includeNotReady" doc:"Count images whose upload has not finished"`
}

// TagWithCountResponse is a tag with its image count under the current
// selection.
type TagWithCountResponse struct {
	TagResponse
	ImageCount int  `json:"image_count" doc:"Distinct matching images carrying this tag"`
	Selected   bool `json:"selected" doc:"True when this tag is part of the selection"`
}

// TagKindWithCountsResponse is a tag kind with its tags and aggregate counts.
type TagKindWithCountsResponse struct {
	Slug        string                 `json:"slug" doc:"Kind slug"`
	Name        string                 `json:"name" doc:"Display name"`
	SystemOnly  bool                   `json:"system_only" doc:"True when only the rule engine may create tags here"`
	ImageCount  int                    `json:"image_count" doc:"Distinct matching images carrying any tag of this kind"`
	HasSelected bool                   `json:"has_selected" doc:"True when any tag of this kind is selected"`
	Tags        []TagWithCountResponse `json:"tags" doc:"Tags of this kind, ordered by name"`
}

// ListTagKindsResponse contains the tag kind listing.
type ListTagKindsResponse struct {
	Kinds []TagKindWithCountsResponse `json:"kinds" doc:"Tag kinds ordered by name"`
}

// ListTagKindsOutput wraps the tag kind listing for Huma.
type ListTagKindsOutput struct {
	Body ListTagKindsResponse
}

// TagKindResponse contains tag kind data in API responses.
type TagKindResponse struct {
	Slug       string `json:"slug" doc:"Kind slug"`
	Name       string `json:"name" doc:"Display name"`
	SystemOnly bool   `json:"system_only" doc:"True when only the rule engine may create tags here"`
}

// TagKindOutput wraps a tag kind response for Huma.
type TagKindOutput struct {
	Body TagKindResponse
}

// CreateTagKindRequest is the request body for creating a tag kind.
type CreateTagKindRequest struct {
	Slug string `json:"slug" validate:"required,max=100" doc:"Kind slug"`
	Name string `json:"name" validate:"required,max=100" doc:"Display name"`
}

// CreateTagKindInput wraps the create tag kind request for Huma.
type CreateTagKindInput struct {
	Body CreateTagKindRequest
}

// RenameTagKindRequest is the request body for renaming a tag kind.
type RenameTagKindRequest struct {
	Name string `json:"name" validate:"required,max=100" doc:"New display name"`
}

// RenameTagKindInput wraps the rename tag kind request for Huma.
type RenameTagKindInput struct {
	Slug string `path:"slug" doc:"Kind slug"`
	Body RenameTagKindRequest
}

// DeleteTagKindInput contains parameters for deleting a tag kind.
type DeleteTagKindInput struct {
	Slug string `path:"slug" doc:"Kind slug"`
}

// ListTagsResponse contains the assignable tag listing.
type ListTagsResponse struct {
	Tags []TagResponse `json:"tags" doc:"Assignable tags, ordered by kind then name"`
}

// ListTagsOutput wraps the assignable tag listing for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Slug string `json:"slug" validate:"required,max=200" doc:"Composite tag slug (kind/value)"`
	Name string `json:"name" validate:"required,max=100" doc:"Display name"`
}

// CreateTagInput wraps the create tag request for Huma.
type CreateTagInput struct {
	Body CreateTagRequest
}

// TagOutput wraps a tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// RenameTagRequest is the request body for renaming a tag.
type RenameTagRequest struct {
	Name string `json:"name" validate:"required,max=100" doc:"New display name"`
}

// RenameTagInput wraps the rename tag request for Huma.
type RenameTagInput struct {
	Kind  string `path:"kind" doc:"Kind slug"`
	Value string `path:"value" doc:"Tag value within the kind"`
	Body  RenameTagRequest
}

// DeleteTagInput contains parameters for deleting a tag.
type DeleteTagInput struct {
	Kind  string `path:"kind" doc:"Kind slug"`
	Value string `path:"value" doc:"Tag value within the kind"`
}

// === Handlers ===

func (s *Server) handleListTagKinds(ctx context.Context, input *ListTagKindsInput) (*ListTagKindsOutput, error) {
	kinds, err := s.services.Tag.ListTagKinds(ctx, input.Tags, input.IncludeNotReady)
	if err != nil {
		return nil, err
	}

	resp := make([]TagKindWithCountsResponse, len(kinds))
	for i, kind := range kinds {
		resp[i] = toTagKindWithCountsResponse(kind)
	}
	return &ListTagKindsOutput{Body: ListTagKindsResponse{Kinds: resp}}, nil
}

func toTagKindWithCountsResponse(kind *sqlite.TagKindWithCounts) TagKindWithCountsResponse {
	tags := make([]TagWithCountResponse, len(kind.Tags))
	for i, tag := range kind.Tags {
		tags[i] = TagWithCountResponse{
			TagResponse: toTagResponse(&tag.Tag),
			ImageCount:  tag.ImageCount,
			Selected:    tag.Selected,
		}
	}
	return TagKindWithCountsResponse{
		Slug:        kind.Slug,
		Name:        kind.Name,
		SystemOnly:  kind.SystemOnly,
		ImageCount:  kind.ImageCount,
		HasSelected: kind.HasSelected,
		Tags:        tags,
	}
}

func (s *Server) handleCreateTagKind(ctx context.Context, input *CreateTagKindInput) (*TagKindOutput, error) {
	kind, err := s.services.Tag.CreateTagKind(ctx, service.CreateTagKindRequest{
		Slug: input.Body.Slug,
		Name: input.Body.Name,
	})
	if err != nil {
		return nil, err
	}
	return &TagKindOutput{Body: TagKindResponse{
		Slug:       kind.Slug,
		Name:       kind.Name,
		SystemOnly: kind.SystemOnly,
	}}, nil
}

func (s *Server) handleRenameTagKind(ctx context.Context, input *RenameTagKindInput) (*TagKindOutput, error) {
	kind, err := s.services.Tag.RenameTagKind(ctx, input.Slug, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &TagKindOutput{Body: TagKindResponse{
		Slug:       kind.Slug,
		Name:       kind.Name,
		SystemOnly: kind.SystemOnly,
	}}, nil
}

func (s *Server) handleDeleteTagKind(ctx context.Context, input *DeleteTagKindInput) (*MessageOutput, error) {
	if err := s.services.Tag.DeleteTagKind(ctx, input.Slug); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Tag kind deleted"}}, nil
}

func (s *Server) handleListTags(ctx context.Context, _ *struct{}) (*ListTagsOutput, error) {
	tags, err := s.services.Tag.ListAssignableTags(ctx)
	if err != nil {
		return nil, err
	}
	return &ListTagsOutput{Body: ListTagsResponse{Tags: toTagResponses(tags)}}, nil
}

func (s *Server) handleCreateTag(ctx context.Context, input *CreateTagInput) (*TagOutput, error) {
	tag, err := s.services.Tag.CreateTag(ctx, service.CreateTagRequest{
		Slug: input.Body.Slug,
		Name: input.Body.Name,
	})
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleRenameTag(ctx context.Context, input *RenameTagInput) (*TagOutput, error) {
	tag, err := s.services.Tag.RenameTag(ctx, input.Kind+"/"+input.Value, input.Body.Name)
	if err != nil {
		return nil, err
	}
	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleDeleteTag(ctx context.Context, input *DeleteTagInput) (*MessageOutput, error) {
	if err := s.services.Tag.DeleteTag(ctx, input.Kind+"/"+input.Value); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "Tag deleted"}}, nil
}

func (s *Server) handleReapplySystemTags(ctx context.Context, _ *struct{}) (*MessageOutput, error) {
	if err := s.services.Tag.ReapplySystemTags(ctx); err != nil {
		return nil, err
	}
	return &MessageOutput{Body: MessageResponse{Message: "System tags reapplied"}}, nil
}
