package sqlite

import (
	"context"
	"testing"

	"github.com/nixground/nixground-server/internal/domain"
	"github.com/nixground/nixground-server/internal/errors"
)

func pageSlugs(page *ImagePage) []string {
	slugs := make([]string, len(page.Items))
	for i, img := range page.Items {
		slugs[i] = img.Slug
	}
	return slugs
}

func equalSlugs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestListImagesPageGroupedFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := newWriteSession(t, s)
	ensureTag(t, session, "resolution/4k", "4K")
	ensureTag(t, session, "aspect-ratio/16-9", "16:9")
	ensureTag(t, session, "aspect-ratio/16-10", "16:10")
	ensureTag(t, session, "aspect-ratio/21-9", "21:9")

	insertTestImage(t, session, "both", 4, 3840, 2160, true)
	insertTestImage(t, session, "wrong-ratio", 3, 3840, 2160, true)
	insertTestImage(t, session, "ratio-only", 2, 2560, 1440, true)

	mustSetTags := func(slug string, tags []string) {
		if err := session.SetImageTags(ctx, slug, tags); err != nil {
			t.Fatalf("set tags for %s: %v", slug, err)
		}
	}
	mustSetTags("both", []string{"resolution/4k", "aspect-ratio/16-9"})
	mustSetTags("wrong-ratio", []string{"resolution/4k", "aspect-ratio/21-9"})
	mustSetTags("ratio-only", []string{"aspect-ratio/16-9"})
	if err := session.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	read := newReadSession(t, s)
	filter := domain.GroupedTagFilter{
		"resolution":   {"resolution/4k"},
		"aspect-ratio": {"aspect-ratio/16-9", "aspect-ratio/16-10"},
	}

	page, err := read.ListImagesPage(ctx, ListImagesParams{Limit: 10, Filter: filter})
	if err != nil {
		t.Fatalf("list images: %v", err)
	}

	// "both" carries one tag from each group. "wrong-ratio" has no tag in
	// the aspect-ratio group's set; "ratio-only" misses the resolution
	// group entirely.
	if got := pageSlugs(page); !equalSlugs(got, []string{"both"}) {
		t.Errorf("filtered page = %v, want [both]", got)
	}
}

func TestListImagesPageDefaultsToReady(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := newWriteSession(t, s)
	ensureTag(t, session, "resolution/4k", "4K")
	ensureTag(t, session, "motive/nature", "Nature")

	insertTestImage(t, session, "a", 3, 3840, 2160, true)
	insertTestImage(t, session, "b", 2, 1920, 1080, true)
	insertTestImage(t, session, "c", 1, 1280, 720, true)
	insertTestImage(t, session, "d", 4, 3840, 2160, false)

	for slug, tags := range map[string][]string{
		"a": {"resolution/4k", "motive/nature"},
		"b": {"resolution/4k"},
		"c": {"motive/nature"},
		"d": {"resolution/4k", "motive/nature"},
	} {
		if err := session.SetImageTags(ctx, slug, tags); err != nil {
			t.Fatalf("set tags for %s: %v", slug, err)
		}
	}
	if err := session.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	read := newReadSession(t, s)
	filter := domain.GroupedTagFilter{
		"resolution": {"resolution/4k"},
		"motive":     {"motive/nature"},
	}

	readyOnly, err := read.ListImagesPage(ctx, ListImagesParams{Limit: 10, Filter: filter})
	if err != nil {
		t.Fatalf("list ready: %v", err)
	}
	if got := pageSlugs(readyOnly); !equalSlugs(got, []string{"a"}) {
		t.Errorf("ready-only page = %v, want [a]", got)
	}

	includingNotReady, err := read.ListImagesPage(ctx, ListImagesParams{
		Limit: 10, Filter: filter, IncludeNotReady: true,
	})
	if err != nil {
		t.Fatalf("list including not ready: %v", err)
	}
	if got := pageSlugs(includingNotReady); !equalSlugs(got, []string{"d", "a"}) {
		t.Errorf("include-not-ready page = %v, want [d a]", got)
	}
}

func TestListImagesPaginationTotality(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := newWriteSession(t, s)
	// Four images tie at added_at=10, two at 9; the slug tie-break must
	// visit each exactly once.
	insertTestImage(t, session, "delta", 10, 1920, 1080, true)
	insertTestImage(t, session, "charlie", 10, 1920, 1080, true)
	insertTestImage(t, session, "bravo", 10, 1920, 1080, true)
	insertTestImage(t, session, "alpha", 10, 1920, 1080, true)
	insertTestImage(t, session, "zulu", 9, 1920, 1080, true)
	insertTestImage(t, session, "yankee", 9, 1920, 1080, true)
	if err := session.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	read := newReadSession(t, s)

	var visited []string
	var cursor *domain.Cursor
	for page := 0; page < 3; page++ {
		result, err := read.ListImagesPage(ctx, ListImagesParams{Limit: 2, Cursor: cursor})
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if len(result.Items) != 2 {
			t.Fatalf("page %d has %d items, want 2", page, len(result.Items))
		}
		visited = append(visited, pageSlugs(result)...)

		if page < 2 && result.NextCursor == nil {
			t.Fatalf("page %d should have a next cursor", page)
		}
		cursor = result.NextCursor
	}

	want := []string{"delta", "charlie", "bravo", "alpha", "zulu", "yankee"}
	if !equalSlugs(visited, want) {
		t.Errorf("visited = %v, want %v", visited, want)
	}
	if cursor != nil {
		t.Errorf("final page should have nil next cursor, got %+v", cursor)
	}
}

func TestListImagesPageLimitValidation(t *testing.T) {
	s := newTestStore(t)
	read := newReadSession(t, s)

	for _, limit := range []int{0, -1, 201} {
		_, err := read.ListImagesPage(context.Background(), ListImagesParams{Limit: limit})
		if !errors.Is(err, errors.ErrValidation) {
			t.Errorf("limit %d: expected validation error, got %v", limit, err)
		}
	}
}

func TestGetImageBySlugReadyVisibility(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := newWriteSession(t, s)
	insertTestImage(t, session, "pending", 1, 3840, 2160, false)
	if err := session.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	read := newReadSession(t, s)
	if _, err := read.GetImageBySlug(ctx, "pending", false); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("hidden image should be not found, got %v", err)
	}

	visible, err := read.GetImageBySlug(ctx, "pending", true)
	if err != nil {
		t.Fatalf("get with includeNotReady: %v", err)
	}
	if visible.Image.Slug != "pending" || visible.Image.WidthPx != 3840 || visible.Image.HeightPx != 2160 {
		t.Errorf("unexpected image row: %+v", visible.Image)
	}
}

func TestUpdateImageName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := newWriteSession(t, s)
	insertTestImage(t, session, "renamable", 1, 1920, 1080, true)
	if err := session.UpdateImageName(ctx, "renamable", "  New Name  "); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := session.UpdateImageName(ctx, "missing-img", "X"); !errors.Is(err, errors.ErrNotFound) {
		t.Fatalf("rename missing should be not found, got %v", err)
	}
	if err := session.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	read := newReadSession(t, s)
	got, err := read.GetImageBySlug(ctx, "renamable", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Image.Name != "New Name" {
		t.Errorf("name = %q, want %q", got.Image.Name, "New Name")
	}
}

func TestDeleteImageCascadesAssociations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	session := newWriteSession(t, s)
	ensureTag(t, session, "motive/nature", "Nature")
	insertTestImage(t, session, "doomed", 1, 1920, 1080, true)
	if err := session.SetImageTags(ctx, "doomed", []string{"motive/nature"}); err != nil {
		t.Fatalf("set tags: %v", err)
	}
	if err := session.DeleteImageBySlug(ctx, "doomed"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := session.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM image_tags WHERE image_slug = 'doomed'").Scan(&count); err != nil {
		t.Fatalf("count associations: %v", err)
	}
	if count != 0 {
		t.Errorf("expected cascade delete, %d associations remain", count)
	}
}

func TestInsertImageDuplicateSlug(t *testing.T) {
	s := newTestStore(t)

	session := newWriteSession(t, s)
	insertTestImage(t, session, "dup", 1, 1920, 1080, true)
	_, err := session.InsertImage(context.Background(), InsertImageParams{
		Slug: "dup", Ext: "jpg", Name: "dup", AddedAt: 2,
		SizeBytes: 1, WidthPx: 1, HeightPx: 1, SHA256: testSHA256,
	})
	if !errors.Is(err, errors.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}
