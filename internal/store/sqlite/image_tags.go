package sqlite

import (
	"context"

	"github.com/nixground/nixground-server/internal/domain"
	"github.com/nixground/nixground-server/internal/errors"
	"github.com/nixground/nixground-server/internal/systemtags"
)

// SetImageTags replaces every association for one image with the given
// set, de-duplicated. Trusted internal call: tag existence is not checked
// here, the foreign key catches genuinely unknown slugs.
func (sn *Session) SetImageTags(ctx context.Context, imageSlugInput string, tagSlugInputs []string) error {
	imageSlug, err := domain.AssertImageSlug(imageSlugInput)
	if err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(tagSlugInputs))
	tagSlugs := make([]string, 0, len(tagSlugInputs))
	for _, raw := range tagSlugInputs {
		slug, err := domain.AssertTagSlug(raw)
		if err != nil {
			return err
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		tagSlugs = append(tagSlugs, slug)
	}

	if _, err := sn.exec(ctx, "set image tags",
		`DELETE FROM image_tags WHERE image_slug = ?`, imageSlug); err != nil {
		return wrapQuery(err, "delete image tags")
	}

	for _, tagSlug := range tagSlugs {
		if _, err := sn.exec(ctx, "set image tags",
			`INSERT INTO image_tags (image_slug, tag_slug) VALUES (?, ?)`, imageSlug, tagSlug); err != nil {
			return wrapQuery(err, "insert image tag")
		}
	}

	return nil
}

// SetImageUserTags replaces the image's non-system associations with the
// requested set. System-tag associations are untouched. Every requested
// tag must exist and be a user tag.
func (sn *Session) SetImageUserTags(ctx context.Context, imageSlugInput string, tagSlugInputs []string) error {
	imageSlug, err := domain.AssertImageSlug(imageSlugInput)
	if err != nil {
		return err
	}

	if _, err := sn.GetImageBySlug(ctx, imageSlug, true); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(tagSlugInputs))
	tagSlugs := make([]string, 0, len(tagSlugInputs))
	for _, raw := range tagSlugInputs {
		slug, err := domain.AssertTagSlug(raw)
		if err != nil {
			return err
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		tagSlugs = append(tagSlugs, slug)
	}

	// Validate the whole set before touching any row.
	for _, tagSlug := range tagSlugs {
		tag, err := sn.GetTagBySlug(ctx, tagSlug)
		if err != nil {
			return err
		}
		if tag.System {
			return errors.Invariantf("System tags cannot be assigned directly: %s", tagSlug)
		}
	}

	if _, err := sn.exec(ctx, "set image user tags", `
		DELETE FROM image_tags
		WHERE image_slug = ?
		  AND tag_slug IN (SELECT slug FROM tags WHERE system = 0)`, imageSlug); err != nil {
		return wrapQuery(err, "delete user image tags")
	}

	for _, tagSlug := range tagSlugs {
		if _, err := sn.exec(ctx, "set image user tags",
			`INSERT OR IGNORE INTO image_tags (image_slug, tag_slug) VALUES (?, ?)`, imageSlug, tagSlug); err != nil {
			return wrapQuery(err, "insert user image tag")
		}
	}

	return nil
}

// BulkModifyImagesTags adds and removes user tags across many images in
// one atomic batch. Every add/remove tag is validated up front; any
// invalid or system tag rejects the whole call. Missing images are
// silently skipped. The result reports rows that actually changed state.
func (sn *Session) BulkModifyImagesTags(ctx context.Context, imageSlugInputs, tagSlugsToAdd, tagSlugsToRemove []string) (*domain.BulkModifyResult, error) {
	addSlugs, err := sn.validateUserTagSet(ctx, tagSlugsToAdd)
	if err != nil {
		return nil, err
	}
	removeSlugs, err := sn.validateUserTagSet(ctx, tagSlugsToRemove)
	if err != nil {
		return nil, err
	}

	requested := make([]string, 0, len(imageSlugInputs))
	seen := make(map[string]struct{}, len(imageSlugInputs))
	for _, raw := range imageSlugInputs {
		slug, err := domain.AssertImageSlug(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		requested = append(requested, slug)
	}

	// Resolve the actually existing subset; missing slugs are skipped.
	existing := []string{}
	if len(requested) > 0 {
		rows, err := sn.query(ctx, "bulk modify image tags",
			`SELECT slug FROM images WHERE slug IN (`+placeholders(len(requested))+`)`,
			asAnySlice(requested)...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		for rows.Next() {
			var slug string
			if err := rows.Scan(&slug); err != nil {
				return nil, wrapQuery(err, "scan bulk image slug")
			}
			existing = append(existing, slug)
		}
		if err := rows.Err(); err != nil {
			return nil, wrapQuery(err, "iterate bulk image slugs")
		}
	}

	result := &domain.BulkModifyResult{
		ImageCount:        len(existing),
		TagsToAddCount:    len(addSlugs),
		TagsToRemoveCount: len(removeSlugs),
	}

	for _, imageSlug := range existing {
		for _, tagSlug := range addSlugs {
			res, err := sn.exec(ctx, "bulk modify image tags",
				`INSERT OR IGNORE INTO image_tags (image_slug, tag_slug) VALUES (?, ?)`, imageSlug, tagSlug)
			if err != nil {
				return nil, wrapQuery(err, "bulk insert image tag")
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return nil, wrapQuery(err, "bulk insert image tag")
			}
			result.InsertedCount += int(affected)
		}
		for _, tagSlug := range removeSlugs {
			res, err := sn.exec(ctx, "bulk modify image tags",
				`DELETE FROM image_tags WHERE image_slug = ? AND tag_slug = ?`, imageSlug, tagSlug)
			if err != nil {
				return nil, wrapQuery(err, "bulk delete image tag")
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return nil, wrapQuery(err, "bulk delete image tag")
			}
			result.RemovedCount += int(affected)
		}
	}

	return result, nil
}

// validateUserTagSet normalizes and de-duplicates a tag slug set, failing
// when any tag is absent or a system tag.
func (sn *Session) validateUserTagSet(ctx context.Context, tagSlugInputs []string) ([]string, error) {
	seen := make(map[string]struct{}, len(tagSlugInputs))
	out := make([]string, 0, len(tagSlugInputs))
	for _, raw := range tagSlugInputs {
		slug, err := domain.AssertTagSlug(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}

		tag, err := sn.GetTagBySlug(ctx, slug)
		if err != nil {
			return nil, err
		}
		if tag.System {
			return nil, errors.Invariantf("System tags cannot be modified in bulk: %s", slug)
		}
		out = append(out, slug)
	}
	return out, nil
}

// ReapplySystemTagsForAllImages recomputes every image's system tags from
// its stored dimensions. For each image the existing system associations
// are dropped and the rule engine's output re-inserted; user associations
// are never touched. A rule emitting a slug with no tag row aborts the
// whole operation, since that is a vocabulary configuration error rather
// than a per-image condition. Idempotent by construction.
func (sn *Session) ReapplySystemTagsForAllImages(ctx context.Context) error {
	systemTags := make(map[string]struct{})
	tagRows, err := sn.query(ctx, "reapply system tags",
		`SELECT slug FROM tags WHERE system = 1`)
	if err != nil {
		return err
	}
	for tagRows.Next() {
		var slug string
		if err := tagRows.Scan(&slug); err != nil {
			tagRows.Close()
			return wrapQuery(err, "scan system tag")
		}
		systemTags[slug] = struct{}{}
	}
	if err := tagRows.Err(); err != nil {
		tagRows.Close()
		return wrapQuery(err, "iterate system tags")
	}
	tagRows.Close()

	type imageDims struct {
		slug string
		dims systemtags.Dimensions
	}

	images := []imageDims{}
	rows, err := sn.query(ctx, "reapply system tags",
		`SELECT slug, width_px, height_px, size_bytes FROM images`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var img imageDims
		if err := rows.Scan(&img.slug, &img.dims.WidthPx, &img.dims.HeightPx, &img.dims.SizeBytes); err != nil {
			rows.Close()
			return wrapQuery(err, "scan image dimensions")
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return wrapQuery(err, "iterate image dimensions")
	}
	rows.Close()

	// Validate every resolved slug before the first delete so a missing
	// definition aborts with no partial application.
	resolved := make([][]string, len(images))
	for i, img := range images {
		slugs := systemtags.Resolve(img.dims)
		for _, slug := range slugs {
			if _, ok := systemTags[slug]; !ok {
				return errors.Invariantf("Missing system tag definition: %s", slug)
			}
		}
		resolved[i] = slugs
	}

	for i, img := range images {
		if _, err := sn.exec(ctx, "reapply system tags", `
			DELETE FROM image_tags
			WHERE image_slug = ?
			  AND tag_slug IN (SELECT slug FROM tags WHERE system = 1)`, img.slug); err != nil {
			return wrapQuery(err, "delete system image tags")
		}
		for _, tagSlug := range resolved[i] {
			if _, err := sn.exec(ctx, "reapply system tags",
				`INSERT OR IGNORE INTO image_tags (image_slug, tag_slug) VALUES (?, ?)`, img.slug, tagSlug); err != nil {
				return wrapQuery(err, "insert system image tag")
			}
		}
	}

	return nil
}
