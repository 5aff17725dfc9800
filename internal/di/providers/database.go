package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/nixground/nixground-server/internal/config"
	"github.com/nixground/nixground-server/internal/logger"
	"github.com/nixground/nixground-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the database store with the system tag vocabulary
// seeded, so reconciliation never hits a missing definition.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	db, err := sqlite.Open(cfg.Database.Path, log.Logger)
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSystemTagVocabulary(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("Database initialized", "path", cfg.Database.Path)

	return &StoreHandle{Store: db}, nil
}
