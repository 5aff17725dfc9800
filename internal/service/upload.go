package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/nixground/nixground-server/internal/blob"
	"github.com/nixground/nixground-server/internal/domain"
	"github.com/nixground/nixground-server/internal/errors"
	"github.com/nixground/nixground-server/internal/fetch"
	"github.com/nixground/nixground-server/internal/id"
	"github.com/nixground/nixground-server/internal/media/images"
	"github.com/nixground/nixground-server/internal/store/sqlite"
	"github.com/nixground/nixground-server/internal/systemtags"
	"github.com/nixground/nixground-server/internal/validation"
)

// SourceFetcher downloads remote upload sources.
type SourceFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Result, error)
}

// UploadService runs the staged upload pipeline: fetch, inspect, persist,
// store bytes, finalize. Failures after the row insert are compensated in
// reverse so no half-uploaded image stays visible.
type UploadService struct {
	store     *sqlite.Store
	blobs     blob.Store
	fetcher   SourceFetcher
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewUploadService creates a new upload service.
func NewUploadService(store *sqlite.Store, blobs blob.Store, fetcher SourceFetcher, validator *validation.Validator, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:     store,
		blobs:     blobs,
		fetcher:   fetcher,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// UploadRequest describes one upload. Exactly one of Data or SourceURL must
// be set. Slug is optional; when empty it is derived from the name plus a
// random suffix.
type UploadRequest struct {
	Data      []byte   `json:"-"`
	Filename  string   `json:"filename"`
	SourceURL string   `json:"source_url" validate:"omitempty,url"`
	Name      string   `json:"name" validate:"omitempty,max=200"`
	Slug      string   `json:"slug" validate:"omitempty,max=200"`
	Tags      []string `json:"tags"`
}

// Upload runs the pipeline and returns the finished, ready image.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*ImageView, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if len(req.Data) == 0 && req.SourceURL == "" {
		return nil, errors.Validation("Upload requires file data or a source URL")
	}
	if len(req.Data) > 0 && req.SourceURL != "" {
		return nil, errors.Validation("Upload accepts either file data or a source URL, not both")
	}

	// Stage: fetchSource.
	data := req.Data
	filename := req.Filename
	contentType := ""
	if req.SourceURL != "" {
		fetched, err := s.fetcher.Fetch(ctx, req.SourceURL)
		if err != nil {
			return nil, err
		}
		data = fetched.Data
		contentType = fetched.ContentType
		if filename == "" {
			filename = fetched.Filename
		}
	}

	// Stage: determineExt.
	ext, err := determineExt(filename, contentType)
	if err != nil {
		return nil, err
	}

	// Stage: probeDimensions.
	info, err := images.Probe(data)
	if err != nil {
		return nil, err
	}

	name := req.Name
	if name == "" {
		name = nameFromFilename(filename)
	}

	slug := req.Slug
	if slug == "" {
		slug, err = id.NewImageSlug(name)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeInternal, "derive image slug")
		}
	}

	// Merge system tags resolved from the dimensions with the requested
	// user tags. User tags are validated against the vocabulary inside the
	// finalize transaction.
	dims := systemtags.Dimensions{
		WidthPx:   info.WidthPx,
		HeightPx:  info.HeightPx,
		SizeBytes: int64(len(data)),
	}
	systemSlugs := systemtags.Resolve(dims)

	digest := sha256.Sum256(data)
	sum := base64.StdEncoding.EncodeToString(digest[:])

	// Best effort: an image without a placeholder is still an image.
	blurHash, err := images.ComputeBlurHash(data)
	if err != nil {
		s.logger.Warn("Blurhash computation failed", "slug", slug, "error", err)
		blurHash = ""
	}

	// Stage: insertImage. Committed with ready=false so a crash between
	// here and finalize leaves only an invisible row.
	img, err := s.insertPending(ctx, sqlite.InsertImageParams{
		Slug:      slug,
		Ext:       ext,
		Name:      name,
		AddedAt:   s.now().Unix(),
		SizeBytes: int64(len(data)),
		WidthPx:   info.WidthPx,
		HeightPx:  info.HeightPx,
		SHA256:    sum,
		BlurHash:  blurHash,
	})
	if err != nil {
		return nil, err
	}

	// Stage: uploadObject.
	key := img.ObjectKey()
	if err := s.blobs.Put(ctx, key, data, contentType); err != nil {
		s.compensate(ctx, img.Slug, key, false)
		return nil, errors.Wrapf(err, errors.CodeInternal, "store image bytes for %s", img.Slug)
	}

	// Stage: finalize.
	tags, err := s.finalize(ctx, img.Slug, systemSlugs, req.Tags)
	if err != nil {
		s.compensate(ctx, img.Slug, key, true)
		return nil, err
	}
	img.Ready = true

	s.logger.Info("Image uploaded",
		"slug", img.Slug,
		"ext", img.Ext,
		"size_bytes", img.SizeBytes,
		"width_px", img.WidthPx,
		"height_px", img.HeightPx,
		"tag_count", len(tags),
	)

	return &ImageView{
		Image: img,
		Tags:  tags,
		URL:   s.blobs.PublicURL(key),
	}, nil
}

// insertPending writes the not-yet-ready image row in its own transaction.
func (s *UploadService) insertPending(ctx context.Context, params sqlite.InsertImageParams) (*domain.Image, error) {
	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	img, err := session.InsertImage(ctx, params)
	if err != nil {
		return nil, err
	}
	if err := session.Commit(); err != nil {
		return nil, err
	}
	return img, nil
}

// finalize validates the user tags, attaches the full tag set, and flips
// the image to ready, all in one transaction.
func (s *UploadService) finalize(ctx context.Context, slug string, systemSlugs, userSlugs []string) ([]*domain.Tag, error) {
	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	// User-supplied tags must exist and must not be system-owned;
	// SetImageTags alone cannot tell a user tag from a system one.
	for _, raw := range userSlugs {
		tag, err := session.GetTagBySlug(ctx, raw)
		if err != nil {
			return nil, err
		}
		if tag.System {
			return nil, errors.Invariantf("System tags cannot be assigned directly: %s", tag.Slug)
		}
	}

	if err := session.SetImageTags(ctx, slug, mergeTagSlugs(systemSlugs, userSlugs)); err != nil {
		return nil, err
	}
	if err := session.MarkImageReady(ctx, slug); err != nil {
		return nil, err
	}

	found, err := session.GetImageBySlug(ctx, slug, true)
	if err != nil {
		return nil, err
	}
	if err := session.Commit(); err != nil {
		return nil, err
	}
	return found.Tags, nil
}

// compensate undoes the persisted side effects of a failed upload in
// reverse order. Cleanup failures are logged, never returned; the caller
// propagates the original error.
func (s *UploadService) compensate(ctx context.Context, slug, key string, blobUploaded bool) {
	if blobUploaded {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Error("Upload cleanup: blob delete failed", "slug", slug, "key", key, "error", err)
		}
	}

	session, err := s.store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		s.logger.Error("Upload cleanup: session failed", "slug", slug, "error", err)
		return
	}
	defer session.Close()

	if err := session.DeleteImageBySlug(ctx, slug); err != nil {
		s.logger.Error("Upload cleanup: row delete failed", "slug", slug, "error", err)
		return
	}
	if err := session.Commit(); err != nil {
		s.logger.Error("Upload cleanup: commit failed", "slug", slug, "error", err)
	}
}

// extByMIME maps source content types to canonical extensions.
var extByMIME = map[string]string{
	"image/jpeg":    "jpg",
	"image/png":     "png",
	"image/webp":    "webp",
	"image/gif":     "gif",
	"image/avif":    "avif",
	"image/bmp":     "bmp",
	"image/tiff":    "tiff",
	"image/svg+xml": "svg",
}

// canonicalExt normalizes extension aliases.
var canonicalExt = map[string]string{
	"jpg":  "jpg",
	"jpeg": "jpg",
	"png":  "png",
	"webp": "webp",
	"gif":  "gif",
	"avif": "avif",
	"bmp":  "bmp",
	"tif":  "tiff",
	"tiff": "tiff",
	"svg":  "svg",
}

// determineExt picks the stored extension: the filename extension wins when
// it names a known format, then the declared content type.
func determineExt(filename, contentType string) (string, error) {
	if raw := strings.TrimPrefix(strings.ToLower(path.Ext(filename)), "."); raw != "" {
		if ext, ok := canonicalExt[raw]; ok {
			return ext, nil
		}
	}

	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err == nil {
			if ext, ok := extByMIME[mediaType]; ok {
				return ext, nil
			}
		}
	}

	return "", errors.SourceRejectedf("Cannot determine image format from %q / %q", filename, contentType)
}

// nameFromFilename derives a display name from the source filename.
func nameFromFilename(filename string) string {
	base := path.Base(filename)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.TrimSpace(base)
	if base == "" || base == "." {
		return "Untitled"
	}
	return base
}

// mergeTagSlugs combines system and user tag slugs, deduplicated, system
// tags first.
func mergeTagSlugs(system, user []string) []string {
	out := make([]string, 0, len(system)+len(user))
	seen := make(map[string]struct{}, len(system)+len(user))
	for _, group := range [][]string{system, user} {
		for _, slug := range group {
			if _, ok := seen[slug]; ok {
				continue
			}
			seen[slug] = struct{}{}
			out = append(out, slug)
		}
	}
	return out
}
