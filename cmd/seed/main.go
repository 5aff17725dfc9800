// Package main provides a tool to seed the database.
//
// It always reconciles the system tag vocabulary; with --demo it also
// creates a small set of user-assignable kinds and tags for local testing.
//
// Usage:
//
//	go run ./cmd/seed -db-path ~/nixground/nixground.db
//	go run ./cmd/seed --demo
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/nixground/nixground-server/internal/config"
	"github.com/nixground/nixground-server/internal/errors"
	"github.com/nixground/nixground-server/internal/logger"
	"github.com/nixground/nixground-server/internal/store/sqlite"
)

// demoVocabulary is the kind/tag set created by --demo.
var demoVocabulary = map[string]struct {
	name string
	tags map[string]string
}{
	"motive": {name: "Motive", tags: map[string]string{
		"motive/nature":       "Nature",
		"motive/architecture": "Architecture",
		"motive/abstract":     "Abstract",
	}},
	"color": {name: "Color", tags: map[string]string{
		"color/warm": "Warm",
		"color/cool": "Cool",
		"color/mono": "Monochrome",
	}},
}

func main() {
	demo := false
	args := make([]string, 0, len(os.Args)-1)
	for _, arg := range os.Args[1:] {
		if arg == "--demo" || arg == "-demo" {
			demo = true
			continue
		}
		args = append(args, arg)
	}

	cfg, err := config.LoadConfig(args)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Opening database at: %s\n", cfg.Database.Path)

	slogger := logger.New(logger.Config{Level: logger.ParseLevel(cfg.Logger.Level)})
	store, err := sqlite.Open(cfg.Database.Path, slogger.Logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if err := store.EnsureSystemTagVocabulary(ctx); err != nil {
		log.Fatalf("Failed to seed system vocabulary: %v", err)
	}
	fmt.Println("System tag vocabulary reconciled")

	if demo {
		if err := seedDemoVocabulary(ctx, store); err != nil {
			log.Fatalf("Failed to seed demo vocabulary: %v", err)
		}
		fmt.Println("Demo vocabulary seeded")
	}
}

// seedDemoVocabulary creates the demo kinds and tags, skipping anything that
// already exists so reruns are harmless.
func seedDemoVocabulary(ctx context.Context, store *sqlite.Store) error {
	session, err := store.BeginSession(ctx, sqlite.Write)
	if err != nil {
		return err
	}
	defer session.Close()

	for kindSlug, kind := range demoVocabulary {
		if _, err := session.CreateTagKind(ctx, kindSlug, kind.name); err != nil {
			if !errors.Is(err, errors.ErrAlreadyExists) {
				return err
			}
		}
		for tagSlug, tagName := range kind.tags {
			if _, err := session.CreateTag(ctx, tagSlug, tagName); err != nil {
				if !errors.Is(err, errors.ErrAlreadyExists) {
					return err
				}
			}
		}
	}

	return session.Commit()
}
