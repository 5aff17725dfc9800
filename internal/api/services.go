package api

import (
	"github.com/nixground/nixground-server/internal/service"
)

// Services groups the business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Image  *service.ImageService
	Upload *service.UploadService
	Tag    *service.TagService
}
