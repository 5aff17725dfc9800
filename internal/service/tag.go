// Package service orchestrates gallery operations over the store and the
// blob backend. Services own session lifecycles; handlers never see one.
package service

import (
	"context"
	"log/slog"

	"github.com/nixground/nixground-server/internal/domain"
	"github.com/nixground/nixground-server/internal/store/sqlite"
	"github.com/nixground/nixground-server/internal/validation"
)

// TagService manages the tag vocabulary: kinds, tags, and the system
// vocabulary reconciliation.
type TagService struct {
	store     *sqlite.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store *sqlite.Store, validator *validation.Validator, logger *slog.Logger) *TagService {
	return &TagService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreateTagKindRequest creates a new tag kind.
type CreateTagKindRequest struct {
	Slug string `json:"slug" validate:"required,max=100"`
	Name string `json:"name" validate:"required,max=100"`
}

// CreateTagKind creates a user-assignable tag kind.
func (s *TagService) CreateTagKind(ctx context.Context, req CreateTagKindRequest) (*domain.TagKind, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	kind, err := session.CreateTagKind(ctx, req.Slug, req.Name)
	if err != nil {
		return nil, err
	}
	if err := session.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("Tag kind created", "slug", kind.Slug, "name", kind.Name)
	return kind, nil
}

// RenameTagKind updates a kind's display name, creating the kind when it
// does not exist yet. The system_only flag is never touched.
func (s *TagService) RenameTagKind(ctx context.Context, slug, name string) (*domain.TagKind, error) {
	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	kind, err := session.UpsertTagKind(ctx, slug, name)
	if err != nil {
		return nil, err
	}
	if err := session.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("Tag kind renamed", "slug", kind.Slug, "name", kind.Name)
	return kind, nil
}

// DeleteTagKind removes an empty, user-manageable tag kind.
func (s *TagService) DeleteTagKind(ctx context.Context, slug string) error {
	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.DeleteTagKind(ctx, slug); err != nil {
		return err
	}
	if err := session.Commit(); err != nil {
		return err
	}

	s.logger.Info("Tag kind deleted", "slug", slug)
	return nil
}

// CreateTagRequest creates a new tag.
type CreateTagRequest struct {
	Slug string `json:"slug" validate:"required,max=200"`
	Name string `json:"name" validate:"required,max=100"`
}

// CreateTag creates a user tag under an existing, user-assignable kind.
func (s *TagService) CreateTag(ctx context.Context, req CreateTagRequest) (*domain.Tag, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	tag, err := session.CreateTag(ctx, req.Slug, req.Name)
	if err != nil {
		return nil, err
	}
	if err := session.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("Tag created", "slug", tag.Slug, "name", tag.Name)
	return tag, nil
}

// RenameTag updates a tag's display name, creating the tag when it does not
// exist yet. System tags reject the rename.
func (s *TagService) RenameTag(ctx context.Context, slug, name string) (*domain.Tag, error) {
	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	tag, err := session.UpsertTag(ctx, slug, name)
	if err != nil {
		return nil, err
	}
	if err := session.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("Tag renamed", "slug", tag.Slug, "name", tag.Name)
	return tag, nil
}

// DeleteTag removes a user tag. System tags reject the delete.
func (s *TagService) DeleteTag(ctx context.Context, slug string) error {
	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.DeleteTag(ctx, slug); err != nil {
		return err
	}
	if err := session.Commit(); err != nil {
		return err
	}

	s.logger.Info("Tag deleted", "slug", slug)
	return nil
}

// ListAssignableTags returns the tags users may attach to images, ordered
// by kind then name. System tags are excluded.
func (s *TagService) ListAssignableTags(ctx context.Context) ([]*domain.Tag, error) {
	session, err := s.store.BeginSession(ctx, sqlite.Read)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return session.ListAssignableTags(ctx)
}

// ListTagKinds returns every kind with its tags and image counts. When
// selectedTagSlugs is non-empty, counts are relative to the images matching
// that selection and the selected tags are flagged.
func (s *TagService) ListTagKinds(ctx context.Context, selectedTagSlugs []string, includeNotReady bool) ([]*sqlite.TagKindWithCounts, error) {
	session, err := s.store.BeginSession(ctx, sqlite.Read)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	return session.ListTagKindsWithCounts(ctx, selectedTagSlugs, includeNotReady)
}

// ReapplySystemTags recomputes system tag associations for every image in
// one transaction. Fails without partial effects when a rule resolves to a
// missing definition.
func (s *TagService) ReapplySystemTags(ctx context.Context) error {
	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.ReapplySystemTagsForAllImages(ctx); err != nil {
		return err
	}
	if err := session.Commit(); err != nil {
		return err
	}

	s.logger.Info("System tags reapplied for all images")
	return nil
}
