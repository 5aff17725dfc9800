package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/nixground/nixground-server/internal/domain"
	"github.com/nixground/nixground-server/internal/errors"
)

// imageColumns is the ordered list of columns selected in image queries.
// Must match the scan order in scanImage.
const imageColumns = `i.slug, i.ext, i.name, i.added_at, i.size_bytes, i.width_px, i.height_px, i.sha256, i.blur_hash, i.ready`

// scanImage scans a sql.Row (or sql.Rows via its Scan method) into a
// domain.Image. This is the single decode point for the image row shape.
func scanImage(scanner interface{ Scan(dest ...any) error }) (*domain.Image, error) {
	var (
		img      domain.Image
		blurHash sql.NullString
		ready    int
	)

	err := scanner.Scan(
		&img.Slug,
		&img.Ext,
		&img.Name,
		&img.AddedAt,
		&img.SizeBytes,
		&img.WidthPx,
		&img.HeightPx,
		&img.SHA256,
		&blurHash,
		&ready,
	)
	if err != nil {
		return nil, err
	}

	img.BlurHash = blurHash.String
	img.Ready = ready == 1

	return &img, nil
}

// InsertImageParams carries a new image row. Ready is false for rows
// created by the upload flow; the finalize step flips it.
type InsertImageParams struct {
	Slug      string
	Ext       string
	Name      string
	AddedAt   int64
	SizeBytes int64
	WidthPx   int
	HeightPx  int
	SHA256    string
	BlurHash  string
	Ready     bool
}

// InsertImage inserts a new image row. Every field is validated before the
// write. Returns errors.ErrAlreadyExists on duplicate slug.
func (sn *Session) InsertImage(ctx context.Context, params InsertImageParams) (*domain.Image, error) {
	slug, err := domain.AssertImageSlug(params.Slug)
	if err != nil {
		return nil, err
	}
	ext, err := domain.AssertImageExt(params.Ext)
	if err != nil {
		return nil, err
	}
	name, err := domain.AssertImageName(params.Name)
	if err != nil {
		return nil, err
	}
	addedAt, err := domain.AssertUnixSeconds(params.AddedAt)
	if err != nil {
		return nil, err
	}
	sizeBytes, err := domain.AssertSizeBytes(params.SizeBytes)
	if err != nil {
		return nil, err
	}
	widthPx, err := domain.AssertWidthPx(params.WidthPx)
	if err != nil {
		return nil, err
	}
	heightPx, err := domain.AssertHeightPx(params.HeightPx)
	if err != nil {
		return nil, err
	}
	sha256, err := domain.AssertSHA256(params.SHA256)
	if err != nil {
		return nil, err
	}

	ready := 0
	if params.Ready {
		ready = 1
	}
	var blurHash sql.NullString
	if params.BlurHash != "" {
		blurHash = sql.NullString{String: params.BlurHash, Valid: true}
	}

	_, err = sn.exec(ctx, "insert image", `
		INSERT INTO images (slug, ext, name, added_at, size_bytes, width_px, height_px, sha256, blur_hash, ready)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slug, ext, name, addedAt, sizeBytes, widthPx, heightPx, sha256, blurHash, ready,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.AlreadyExistsf("Image already exists: %s", slug)
		}
		return nil, wrapQuery(err, "insert image")
	}

	return &domain.Image{
		Slug:      slug,
		Ext:       ext,
		Name:      name,
		AddedAt:   addedAt,
		SizeBytes: sizeBytes,
		WidthPx:   widthPx,
		HeightPx:  heightPx,
		SHA256:    sha256,
		BlurHash:  params.BlurHash,
		Ready:     params.Ready,
	}, nil
}

// ImageWithTags pairs an image with its current tag definitions.
type ImageWithTags struct {
	Image *domain.Image `json:"image"`
	Tags  []*domain.Tag `json:"tags"`
}

// GetImageBySlug retrieves one image with its tags. Non-ready images are
// hidden unless includeNotReady is set. Returns errors.ErrNotFound when the
// image is absent or hidden.
func (sn *Session) GetImageBySlug(ctx context.Context, slugInput string, includeNotReady bool) (*ImageWithTags, error) {
	slug, err := domain.AssertImageSlug(slugInput)
	if err != nil {
		return nil, err
	}

	readyClause := "AND i.ready = 1"
	if includeNotReady {
		readyClause = ""
	}

	row, err := sn.queryRow(ctx, "get image",
		`SELECT `+imageColumns+` FROM images i WHERE i.slug = ? `+readyClause+` LIMIT 1`, slug)
	if err != nil {
		return nil, err
	}

	img, err := scanImage(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("Image not found: %s", slug)
	}
	if err != nil {
		return nil, wrapQuery(err, "get image")
	}

	rows, err := sn.query(ctx, "get image tags", `
		SELECT t.slug, t.name, t.kind_slug, t.system
		FROM tags t
		INNER JOIN image_tags it ON it.tag_slug = t.slug
		WHERE it.image_slug = ?
		ORDER BY t.kind_slug ASC, t.slug ASC`, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, wrapQuery(err, "scan image tag")
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(err, "iterate image tags")
	}

	return &ImageWithTags{Image: img, Tags: tags}, nil
}

// UpdateImageName renames an image. Returns errors.ErrNotFound if absent.
func (sn *Session) UpdateImageName(ctx context.Context, slugInput, nameInput string) error {
	slug, err := domain.AssertImageSlug(slugInput)
	if err != nil {
		return err
	}
	name, err := domain.AssertImageName(nameInput)
	if err != nil {
		return err
	}

	result, err := sn.exec(ctx, "update image name",
		`UPDATE images SET name = ? WHERE slug = ?`, name, slug)
	if err != nil {
		return wrapQuery(err, "update image name")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return wrapQuery(err, "update image name")
	}
	if affected == 0 {
		return errors.NotFoundf("Image not found: %s", slug)
	}
	return nil
}

// MarkImageReady flips the image to ready, making it visible to listings.
func (sn *Session) MarkImageReady(ctx context.Context, slugInput string) error {
	slug, err := domain.AssertImageSlug(slugInput)
	if err != nil {
		return err
	}
	_, err = sn.exec(ctx, "mark image ready",
		`UPDATE images SET ready = 1 WHERE slug = ?`, slug)
	return wrapQuery(err, "mark image ready")
}

// DeleteImageBySlug removes an image row; associations cascade.
func (sn *Session) DeleteImageBySlug(ctx context.Context, slugInput string) error {
	slug, err := domain.AssertImageSlug(slugInput)
	if err != nil {
		return err
	}
	_, err = sn.exec(ctx, "delete image",
		`DELETE FROM images WHERE slug = ?`, slug)
	return wrapQuery(err, "delete image")
}

// ListImagesParams selects a page of the filtered image listing.
type ListImagesParams struct {
	Cursor          *domain.Cursor
	Limit           int
	Filter          domain.GroupedTagFilter
	IncludeNotReady bool
}

// ImagePage is one page of the newest-first listing. NextCursor is nil when
// no rows remain beyond this page.
type ImagePage struct {
	Items      []*domain.Image `json:"items"`
	NextCursor *domain.Cursor  `json:"next_cursor,omitempty"`
}

// buildGroupFilterJoin builds the join restricting the listing to images
// matching the grouped filter: OR within a kind group, AND across groups.
// An image qualifies when its tags inside the flattened selection touch
// every group, counted as distinct kinds rather than tag rows.
func buildGroupFilterJoin(filter domain.GroupedTagFilter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}

	flattened := filter.Flatten()
	validated := make([]string, 0, len(flattened))
	for _, slug := range flattened {
		tagSlug, err := domain.AssertTagSlug(slug)
		if err != nil {
			return "", nil, err
		}
		validated = append(validated, tagSlug)
	}

	join := `
		JOIN (
			SELECT it.image_slug
			FROM image_tags it
			JOIN tags t ON t.slug = it.tag_slug
			WHERE it.tag_slug IN (` + placeholders(len(validated)) + `)
			GROUP BY it.image_slug
			HAVING COUNT(DISTINCT t.kind_slug) = ?
		) matched ON matched.image_slug = i.slug`

	args := asAnySlice(validated)
	args = append(args, len(filter))
	return join, args, nil
}

// ListImagesPage returns up to Limit images ordered by (added_at DESC,
// slug DESC). The slug tie-break makes the ordering total, so pagination
// never repeats or skips a row even when many images share added_at.
func (sn *Session) ListImagesPage(ctx context.Context, params ListImagesParams) (*ImagePage, error) {
	limit, err := domain.AssertPageLimit(params.Limit)
	if err != nil {
		return nil, err
	}

	join, args, err := buildGroupFilterJoin(params.Filter)
	if err != nil {
		return nil, err
	}

	var where []string
	if !params.IncludeNotReady {
		where = append(where, "i.ready = 1")
	}
	if params.Cursor != nil {
		addedAt, err := domain.AssertUnixSeconds(params.Cursor.AddedAt)
		if err != nil {
			return nil, err
		}
		slug, err := domain.AssertImageSlug(params.Cursor.Slug)
		if err != nil {
			return nil, err
		}
		where = append(where, "(i.added_at < ? OR (i.added_at = ? AND i.slug < ?))")
		args = append(args, addedAt, addedAt, slug)
	}

	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	// Fetch one row beyond the page to learn whether a next page exists.
	rows, err := sn.query(ctx, "list images", `
		SELECT `+imageColumns+`
		FROM images i
		`+join+`
		`+whereSQL+`
		ORDER BY i.added_at DESC, i.slug DESC
		LIMIT ?`, append(args, limit+1)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*domain.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, wrapQuery(err, "scan image")
		}
		items = append(items, img)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(err, "iterate images")
	}

	page := &ImagePage{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		last := page.Items[len(page.Items)-1]
		page.NextCursor = &domain.Cursor{AddedAt: last.AddedAt, Slug: last.Slug}
	}

	return page, nil
}
