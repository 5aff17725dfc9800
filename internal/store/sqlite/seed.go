package sqlite

import (
	"context"

	"github.com/nixground/nixground-server/internal/domain"
	"github.com/nixground/nixground-server/internal/systemtags"
)

// EnsureSystemTagVocabulary makes sure every kind and tag the rule engine
// can emit exists, so reconciliation never aborts on a missing definition.
// Runs at startup; safe to call repeatedly.
func (s *Store) EnsureSystemTagVocabulary(ctx context.Context) error {
	session, err := s.BeginSession(ctx, Write)
	if err != nil {
		return err
	}
	defer session.Close()

	for _, kind := range systemtags.Kinds() {
		if _, err := session.exec(ctx, "seed system vocabulary", `
			INSERT INTO tag_kinds (slug, name, system_only)
			VALUES (?, ?, 1)
			ON CONFLICT(slug) DO NOTHING`, kind.Slug, kind.Name); err != nil {
			return wrapQuery(err, "seed tag kind")
		}
	}

	for _, def := range systemtags.Definitions() {
		kindSlug, _ := domain.SplitTagSlug(def.Slug)
		if _, err := session.exec(ctx, "seed system vocabulary", `
			INSERT INTO tags (slug, name, kind_slug, system)
			VALUES (?, ?, ?, 1)
			ON CONFLICT(slug) DO NOTHING`, def.Slug, def.Name, kindSlug); err != nil {
			return wrapQuery(err, "seed tag")
		}
	}

	return session.Commit()
}
