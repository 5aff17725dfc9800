package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/nixground/nixground-server/internal/errors"
	"github.com/nixground/nixground-server/internal/service"
)

// maxMultipartMemory bounds the in-memory portion of multipart parsing.
const maxMultipartMemory = 32 << 20

func (s *Server) registerUploadRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "uploadImage",
		Method:      http.MethodPost,
		Path:        "/api/v1/uploads",
		Summary:     "Upload image",
		Description: "Accepts a multipart file or a JSON body with a source URL, runs the upload pipeline, and returns the finished image",
		Tags:        []string{"Uploads"},
	}, s.handleUpload)
}

// === DTOs ===

// UploadInput carries the raw upload body; the content type decides whether
// it is parsed as multipart form data or as a JSON source descriptor.
type UploadInput struct {
	ContentType string `header:"Content-Type"`
	RawBody     []byte
}

// uploadJSONRequest is the JSON body shape for URL-sourced uploads.
type uploadJSONRequest struct {
	URL  string   `json:"url"`
	Name string   `json:"name,omitempty"`
	Slug string   `json:"slug,omitempty"`
	Tags []string `json:"tags,omitempty"`
}

// === Handlers ===

func (s *Server) handleUpload(ctx context.Context, input *UploadInput) (*ImageOutput, error) {
	req, err := parseUploadBody(input.ContentType, input.RawBody)
	if err != nil {
		return nil, err
	}

	view, err := s.services.Upload.Upload(ctx, req)
	if err != nil {
		return nil, err
	}
	return &ImageOutput{Body: toImageResponse(view)}, nil
}

// parseUploadBody turns the raw request body into an upload request.
func parseUploadBody(contentType string, body []byte) (service.UploadRequest, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return service.UploadRequest{}, errors.Validation("Upload requires a Content-Type header")
	}

	switch {
	case mediaType == "multipart/form-data":
		return parseMultipartUpload(body, params["boundary"])
	case mediaType == "application/json":
		var req uploadJSONRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return service.UploadRequest{}, errors.Wrap(err, errors.CodeValidation, "Upload body is not valid JSON")
		}
		return service.UploadRequest{
			SourceURL: req.URL,
			Name:      req.Name,
			Slug:      req.Slug,
			Tags:      req.Tags,
		}, nil
	default:
		return service.UploadRequest{}, errors.Validationf("Unsupported upload content type: %s", mediaType)
	}
}

// parseMultipartUpload reads the "file" part plus the optional name, slug,
// and tags fields.
func parseMultipartUpload(body []byte, boundary string) (service.UploadRequest, error) {
	if boundary == "" {
		return service.UploadRequest{}, errors.Validation("Multipart upload is missing its boundary")
	}

	form, err := multipart.NewReader(bytes.NewReader(body), boundary).ReadForm(maxMultipartMemory)
	if err != nil {
		return service.UploadRequest{}, errors.Wrap(err, errors.CodeValidation, "Cannot parse multipart upload")
	}
	defer form.RemoveAll()

	files := form.File["file"]
	if len(files) != 1 {
		return service.UploadRequest{}, errors.Validation("Multipart upload requires exactly one file part named \"file\"")
	}

	part, err := files[0].Open()
	if err != nil {
		return service.UploadRequest{}, errors.Wrap(err, errors.CodeValidation, "Cannot read uploaded file")
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return service.UploadRequest{}, errors.Wrap(err, errors.CodeValidation, "Cannot read uploaded file")
	}

	return service.UploadRequest{
		Data:     data,
		Filename: files[0].Filename,
		Name:     formValue(form, "name"),
		Slug:     formValue(form, "slug"),
		Tags:     formTags(form),
	}, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// formTags collects tag slugs from repeated "tags" fields, each of which may
// hold a comma-separated list.
func formTags(form *multipart.Form) []string {
	var tags []string
	for _, value := range form.Value["tags"] {
		for _, tag := range strings.Split(value, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
