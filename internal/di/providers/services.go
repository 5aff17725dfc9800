package providers

import (
	"github.com/samber/do/v2"

	"github.com/nixground/nixground-server/internal/fetch"
	"github.com/nixground/nixground-server/internal/logger"
	"github.com/nixground/nixground-server/internal/service"
	"github.com/nixground/nixground-server/internal/validation"
)

// ProvideTagService provides the tag vocabulary service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, validator, log.Logger), nil
}

// ProvideImageService provides the image listing and mutation service.
func ProvideImageService(i do.Injector) (*service.ImageService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobHandle := do.MustInvoke[*BlobStoreHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewImageService(storeHandle.Store, blobHandle.Store, validator, log.Logger), nil
}

// ProvideUploadService provides the upload pipeline service.
func ProvideUploadService(i do.Injector) (*service.UploadService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobHandle := do.MustInvoke[*BlobStoreHandle](i)
	fetcher := do.MustInvoke[*fetch.Fetcher](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewUploadService(storeHandle.Store, blobHandle.Store, fetcher, validator, log.Logger), nil
}
