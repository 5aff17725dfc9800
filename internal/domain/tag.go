package domain

// TagKind is a namespace for tags, e.g. "resolution".
type TagKind struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	SystemOnly bool   `json:"system_only"` // If true, no user-created tags may belong to this kind
}

// Tag is a single taggable value scoped to a kind.
// Slug is the composite identifier "{kindSlug}/{value}"; the kind is
// derivable from the slug and immutable after creation.
type Tag struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	KindSlug string `json:"kind_slug"`
	System   bool   `json:"system"` // System tags are owned by reconciliation, never user-editable
}

// GroupedTagFilter maps a tag-kind slug to the set of acceptable tag slugs
// within that kind. An image matches when it carries at least one tag from
// every group (OR within a group, AND across groups). An empty filter
// matches everything.
type GroupedTagFilter map[string][]string

// Flatten returns all tag slugs across groups, in no particular order.
func (f GroupedTagFilter) Flatten() []string {
	var out []string
	for _, slugs := range f {
		out = append(out, slugs...)
	}
	return out
}

// GroupTagSlugs regroups a flat selection of tag slugs into a filter keyed
// by kind. Slugs must already be validated; duplicates are dropped.
func GroupTagSlugs(tagSlugs []string) GroupedTagFilter {
	if len(tagSlugs) == 0 {
		return nil
	}
	filter := make(GroupedTagFilter)
	seen := make(map[string]struct{}, len(tagSlugs))
	for _, slug := range tagSlugs {
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		kind, _ := SplitTagSlug(slug)
		filter[kind] = append(filter[kind], slug)
	}
	return filter
}

// BulkModifyResult reports what a bulk tag modification actually changed.
// InsertedCount and RemovedCount may be lower than requested counts because
// pre-existing or absent associations do not change state.
type BulkModifyResult struct {
	ImageCount        int `json:"image_count"`
	TagsToAddCount    int `json:"tags_to_add_count"`
	TagsToRemoveCount int `json:"tags_to_remove_count"`
	InsertedCount     int `json:"inserted_count"`
	RemovedCount      int `json:"removed_count"`
}
