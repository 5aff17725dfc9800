// Package di provides dependency injection configuration for the nixground
// server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/nixground/nixground-server/internal/config"
	"github.com/nixground/nixground-server/internal/di/providers"
	"github.com/nixground/nixground-server/internal/logger"
	"github.com/nixground/nixground-server/internal/service"
	"github.com/nixground/nixground-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBlobStore)
	do.Provide(injector, providers.ProvideFetcher)

	// Business services
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideImageService)
	do.Provide(injector, providers.ProvideUploadService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns once the server is running.
// This triggers lazy initialization of every provider in dependency order.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*validation.Validator](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.BlobStoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.TagService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.ImageService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.UploadService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
