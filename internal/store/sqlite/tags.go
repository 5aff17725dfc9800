package sqlite

import (
	"context"
	"database/sql"

	"github.com/nixground/nixground-server/internal/domain"
	"github.com/nixground/nixground-server/internal/errors"
)

// scanTagKind decodes the tag_kinds row shape.
func scanTagKind(scanner interface{ Scan(dest ...any) error }) (*domain.TagKind, error) {
	var (
		kind       domain.TagKind
		systemOnly int
	)
	if err := scanner.Scan(&kind.Slug, &kind.Name, &systemOnly); err != nil {
		return nil, err
	}
	kind.SystemOnly = systemOnly == 1
	return &kind, nil
}

// scanTag decodes the tags row shape.
func scanTag(scanner interface{ Scan(dest ...any) error }) (*domain.Tag, error) {
	var (
		tag    domain.Tag
		system int
	)
	if err := scanner.Scan(&tag.Slug, &tag.Name, &tag.KindSlug, &system); err != nil {
		return nil, err
	}
	tag.System = system == 1
	return &tag, nil
}

// GetTagKindBySlug retrieves a tag kind, or errors.ErrNotFound.
func (sn *Session) GetTagKindBySlug(ctx context.Context, slugInput string) (*domain.TagKind, error) {
	slug, err := domain.AssertTagKindSlug(slugInput)
	if err != nil {
		return nil, err
	}

	row, err := sn.queryRow(ctx, "get tag kind",
		`SELECT slug, name, system_only FROM tag_kinds WHERE slug = ? LIMIT 1`, slug)
	if err != nil {
		return nil, err
	}

	kind, err := scanTagKind(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("Tag kind not found: %s", slug)
	}
	if err != nil {
		return nil, wrapQuery(err, "get tag kind")
	}
	return kind, nil
}

// GetTagBySlug retrieves a tag definition, or errors.ErrNotFound.
func (sn *Session) GetTagBySlug(ctx context.Context, slugInput string) (*domain.Tag, error) {
	slug, err := domain.AssertTagSlug(slugInput)
	if err != nil {
		return nil, err
	}

	row, err := sn.queryRow(ctx, "get tag",
		`SELECT slug, name, kind_slug, system FROM tags WHERE slug = ? LIMIT 1`, slug)
	if err != nil {
		return nil, err
	}

	tag, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("Tag not found: %s", slug)
	}
	if err != nil {
		return nil, wrapQuery(err, "get tag")
	}
	return tag, nil
}

// requireUserAssignableKind fails unless the kind exists and allows user tags.
func (sn *Session) requireUserAssignableKind(ctx context.Context, kindSlug string) (*domain.TagKind, error) {
	kind, err := sn.GetTagKindBySlug(ctx, kindSlug)
	if err != nil {
		return nil, err
	}
	if kind.SystemOnly {
		return nil, errors.Invariantf("Tag kind is system-only: %s", kindSlug)
	}
	return kind, nil
}

// CreateTagKind inserts a new user tag kind (system_only = false).
func (sn *Session) CreateTagKind(ctx context.Context, slugInput, nameInput string) (*domain.TagKind, error) {
	slug, err := domain.AssertTagKindSlug(slugInput)
	if err != nil {
		return nil, err
	}
	name, err := domain.AssertTagKindName(nameInput)
	if err != nil {
		return nil, err
	}

	_, err = sn.exec(ctx, "create tag kind",
		`INSERT INTO tag_kinds (slug, name, system_only) VALUES (?, ?, 0)`, slug, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.AlreadyExistsf("Tag kind already exists: %s", slug)
		}
		return nil, wrapQuery(err, "create tag kind")
	}

	return &domain.TagKind{Slug: slug, Name: name}, nil
}

// UpsertTagKind inserts or renames a tag kind. system_only is never
// mutated through this path; it is immutable post-creation.
func (sn *Session) UpsertTagKind(ctx context.Context, slugInput, nameInput string) (*domain.TagKind, error) {
	slug, err := domain.AssertTagKindSlug(slugInput)
	if err != nil {
		return nil, err
	}
	name, err := domain.AssertTagKindName(nameInput)
	if err != nil {
		return nil, err
	}

	_, err = sn.exec(ctx, "upsert tag kind", `
		INSERT INTO tag_kinds (slug, name, system_only)
		VALUES (?, ?, 0)
		ON CONFLICT(slug) DO UPDATE
		SET name = excluded.name`, slug, name)
	if err != nil {
		return nil, wrapQuery(err, "upsert tag kind")
	}

	return sn.GetTagKindBySlug(ctx, slug)
}

// DeleteTagKind removes an empty tag kind. Fails while any tag still
// references the kind.
func (sn *Session) DeleteTagKind(ctx context.Context, slugInput string) error {
	slug, err := domain.AssertTagKindSlug(slugInput)
	if err != nil {
		return err
	}

	if _, err := sn.GetTagKindBySlug(ctx, slug); err != nil {
		return err
	}

	row, err := sn.queryRow(ctx, "count kind tags",
		`SELECT COUNT(*) FROM tags WHERE kind_slug = ?`, slug)
	if err != nil {
		return err
	}
	var tagCount int
	if err := row.Scan(&tagCount); err != nil {
		return wrapQuery(err, "count kind tags")
	}
	if tagCount > 0 {
		return errors.Invariantf("Tag kind has tags and cannot be deleted: %s", slug)
	}

	_, err = sn.exec(ctx, "delete tag kind",
		`DELETE FROM tag_kinds WHERE slug = ?`, slug)
	return wrapQuery(err, "delete tag kind")
}

// CreateTag inserts a new user tag. The kind is derived from the slug
// prefix and must exist and allow user tags.
func (sn *Session) CreateTag(ctx context.Context, slugInput, nameInput string) (*domain.Tag, error) {
	slug, err := domain.AssertTagSlug(slugInput)
	if err != nil {
		return nil, err
	}
	name, err := domain.AssertTagName(nameInput)
	if err != nil {
		return nil, err
	}
	kindSlug, _ := domain.SplitTagSlug(slug)

	if _, err := sn.requireUserAssignableKind(ctx, kindSlug); err != nil {
		return nil, err
	}

	_, err = sn.exec(ctx, "create tag",
		`INSERT INTO tags (slug, name, kind_slug, system) VALUES (?, ?, ?, 0)`, slug, name, kindSlug)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, errors.AlreadyExistsf("Tag already exists: %s", slug)
		}
		return nil, wrapQuery(err, "create tag")
	}

	return &domain.Tag{Slug: slug, Name: name, KindSlug: kindSlug}, nil
}

// UpsertTag inserts or renames a user tag. The insert is guarded by the
// kind existing and allowing user tags; the rename is guarded by the tag
// not being a system tag. When the statement changes nothing, the reason
// is diagnosed and returned as the matching domain error.
func (sn *Session) UpsertTag(ctx context.Context, slugInput, nameInput string) (*domain.Tag, error) {
	slug, err := domain.AssertTagSlug(slugInput)
	if err != nil {
		return nil, err
	}
	name, err := domain.AssertTagName(nameInput)
	if err != nil {
		return nil, err
	}
	kindSlug, _ := domain.SplitTagSlug(slug)

	_, err = sn.exec(ctx, "upsert tag", `
		INSERT INTO tags (slug, name, kind_slug, system)
		SELECT ?, ?, ?, 0
		WHERE EXISTS (
			SELECT 1 FROM tag_kinds
			WHERE slug = ? AND system_only = 0
		)
		ON CONFLICT(slug) DO UPDATE
		SET name = excluded.name
		WHERE tags.system = 0`, slug, name, kindSlug, kindSlug)
	if err != nil {
		return nil, wrapQuery(err, "upsert tag")
	}

	tag, err := sn.GetTagBySlug(ctx, slug)
	if errors.Is(err, errors.ErrNotFound) {
		kind, kindErr := sn.GetTagKindBySlug(ctx, kindSlug)
		if kindErr != nil {
			return nil, kindErr
		}
		if kind.SystemOnly {
			return nil, errors.Invariantf("Tag kind is system-only: %s", kindSlug)
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if tag.System {
		return nil, errors.Invariantf("System tags are not editable: %s", tag.Slug)
	}
	return tag, nil
}

// DeleteTag removes a user tag. System tags cannot be deleted.
func (sn *Session) DeleteTag(ctx context.Context, slugInput string) error {
	slug, err := domain.AssertTagSlug(slugInput)
	if err != nil {
		return err
	}

	existing, err := sn.GetTagBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if existing.System {
		return errors.Invariantf("System tags are not editable: %s", slug)
	}

	_, err = sn.exec(ctx, "delete tag",
		`DELETE FROM tags WHERE slug = ?`, slug)
	return wrapQuery(err, "delete tag")
}

// ListAssignableTags returns all non-system tags, the set users may pick
// from, ordered by kind then name.
func (sn *Session) ListAssignableTags(ctx context.Context) ([]*domain.Tag, error) {
	return sn.listTags(ctx, "list assignable tags",
		`SELECT slug, name, kind_slug, system FROM tags WHERE system = 0 ORDER BY kind_slug ASC, name ASC`)
}

// ListTagsForManagement returns every tag, ordered by kind then name.
func (sn *Session) ListTagsForManagement(ctx context.Context) ([]*domain.Tag, error) {
	return sn.listTags(ctx, "list tags",
		`SELECT slug, name, kind_slug, system FROM tags ORDER BY kind_slug ASC, name ASC`)
}

func (sn *Session) listTags(ctx context.Context, operation, querySQL string) ([]*domain.Tag, error) {
	rows, err := sn.query(ctx, operation, querySQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []*domain.Tag{}
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, wrapQuery(err, operation)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(err, operation)
	}
	return tags, nil
}

// ListTagKindsForManagement returns every tag kind ordered by name.
func (sn *Session) ListTagKindsForManagement(ctx context.Context) ([]*domain.TagKind, error) {
	rows, err := sn.query(ctx, "list tag kinds",
		`SELECT slug, name, system_only FROM tag_kinds ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kinds := []*domain.TagKind{}
	for rows.Next() {
		kind, err := scanTagKind(rows)
		if err != nil {
			return nil, wrapQuery(err, "scan tag kind")
		}
		kinds = append(kinds, kind)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapQuery(err, "iterate tag kinds")
	}
	return kinds, nil
}

// TagWithCount is a tag annotated for the filter sidebar.
type TagWithCount struct {
	domain.Tag
	ImageCount int  `json:"image_count"`
	Selected   bool `json:"selected"`
}

// TagKindWithCounts is a tag kind with its tags and aggregate counts under
// the currently selected filter.
type TagKindWithCounts struct {
	domain.TagKind
	ImageCount  int             `json:"image_count"`
	HasSelected bool            `json:"has_selected"`
	Tags        []*TagWithCount `json:"tags"`
}

// buildFilteredImagesCTE builds the filtered_images CTE shared by the count
// queries. The selection is regrouped per kind and applied with the same
// OR-within-group, AND-across-groups rule as the main listing, so counts
// shrink consistently with what the next listing call would return.
func buildFilteredImagesCTE(selected []string, includeNotReady bool) (string, []any) {
	readyWhere := "WHERE i.ready = 1"
	readyAnd := "AND i.ready = 1"
	if includeNotReady {
		readyWhere = ""
		readyAnd = ""
	}

	if len(selected) == 0 {
		return `filtered_images AS (SELECT i.slug FROM images i ` + readyWhere + `)`, nil
	}

	filter := domain.GroupTagSlugs(selected)
	flattened := filter.Flatten()

	cte := `
		filtered_images AS (
			SELECT it.image_slug AS slug
			FROM image_tags it
			INNER JOIN images i ON i.slug = it.image_slug
			INNER JOIN tags t ON t.slug = it.tag_slug
			WHERE it.tag_slug IN (` + placeholders(len(flattened)) + `)
			` + readyAnd + `
			GROUP BY it.image_slug
			HAVING COUNT(DISTINCT t.kind_slug) = ?
		)`

	args := asAnySlice(flattened)
	args = append(args, len(filter))
	return cte, args
}

// ListTagKindsWithCounts returns every tag kind with its tags, annotated
// with distinct-image counts within the filtered image set and selection
// flags for the given tag slugs.
func (sn *Session) ListTagKindsWithCounts(ctx context.Context, selectedTagSlugs []string, includeNotReady bool) ([]*TagKindWithCounts, error) {
	selectedSet := make(map[string]struct{}, len(selectedTagSlugs))
	selected := make([]string, 0, len(selectedTagSlugs))
	for _, raw := range selectedTagSlugs {
		slug, err := domain.AssertTagSlug(raw)
		if err != nil {
			return nil, err
		}
		if _, ok := selectedSet[slug]; ok {
			continue
		}
		selectedSet[slug] = struct{}{}
		selected = append(selected, slug)
	}

	cte, args := buildFilteredImagesCTE(selected, includeNotReady)

	kindRows, err := sn.query(ctx, "list tag kinds with counts", `
		WITH `+cte+`,
		kind_counts AS (
			SELECT t.kind_slug, COUNT(DISTINCT it.image_slug) AS image_count
			FROM image_tags it
			INNER JOIN tags t ON t.slug = it.tag_slug
			INNER JOIN filtered_images fi ON fi.slug = it.image_slug
			GROUP BY t.kind_slug
		)
		SELECT k.slug, k.name, k.system_only, COALESCE(kc.image_count, 0)
		FROM tag_kinds k
		LEFT JOIN kind_counts kc ON kc.kind_slug = k.slug
		ORDER BY k.name ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer kindRows.Close()

	kinds := []*TagKindWithCounts{}
	for kindRows.Next() {
		var (
			kind       TagKindWithCounts
			systemOnly int
		)
		if err := kindRows.Scan(&kind.Slug, &kind.Name, &systemOnly, &kind.ImageCount); err != nil {
			return nil, wrapQuery(err, "scan tag kind counts")
		}
		kind.SystemOnly = systemOnly == 1
		kind.Tags = []*TagWithCount{}
		kinds = append(kinds, &kind)
	}
	if err := kindRows.Err(); err != nil {
		return nil, wrapQuery(err, "iterate tag kind counts")
	}

	tagRows, err := sn.query(ctx, "list tags with counts", `
		WITH `+cte+`,
		tag_counts AS (
			SELECT it.tag_slug, COUNT(DISTINCT it.image_slug) AS image_count
			FROM image_tags it
			INNER JOIN filtered_images fi ON fi.slug = it.image_slug
			GROUP BY it.tag_slug
		)
		SELECT t.slug, t.name, t.kind_slug, t.system, COALESCE(tc.image_count, 0)
		FROM tags t
		LEFT JOIN tag_counts tc ON tc.tag_slug = t.slug
		ORDER BY t.kind_slug ASC, t.name ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()

	byKind := make(map[string]*TagKindWithCounts, len(kinds))
	for _, kind := range kinds {
		byKind[kind.Slug] = kind
	}

	for tagRows.Next() {
		var (
			tag    TagWithCount
			system int
		)
		if err := tagRows.Scan(&tag.Slug, &tag.Name, &tag.KindSlug, &system, &tag.ImageCount); err != nil {
			return nil, wrapQuery(err, "scan tag counts")
		}
		tag.System = system == 1
		_, tag.Selected = selectedSet[tag.Slug]

		kind, ok := byKind[tag.KindSlug]
		if !ok {
			continue
		}
		kind.Tags = append(kind.Tags, &tag)
		if tag.Selected {
			kind.HasSelected = true
		}
	}
	if err := tagRows.Err(); err != nil {
		return nil, wrapQuery(err, "iterate tag counts")
	}

	return kinds, nil
}
