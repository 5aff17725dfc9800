package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixground/nixground-server/internal/blob"
	"github.com/nixground/nixground-server/internal/service"
	"github.com/nixground/nixground-server/internal/store/sqlite"
	"github.com/nixground/nixground-server/internal/validation"
)

// testServer wraps the API server for handler testing.
type testServer struct {
	*Server
	api humatest.TestAPI
}

// setupTestServer creates a server over a temp database and a filesystem
// blob store. The fetcher is optional; tests that exercise URL uploads
// provide one.
func setupTestServer(t *testing.T, fetcher service.SourceFetcher) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.EnsureSystemTagVocabulary(context.Background()))

	blobs, err := blob.NewFSStore(t.TempDir(), "https://img.test", logger)
	require.NoError(t, err)

	validator := validation.New()
	services := &Services{
		Image:  service.NewImageService(st, blobs, validator, logger),
		Upload: service.NewUploadService(st, blobs, fetcher, validator, logger),
		Tag:    service.NewTagService(st, validator, logger),
	}

	s := NewServer(st, services, "", logger)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
	}
}

// pngBytes renders a small test image.
func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 90, B: 160, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// multipartUpload builds a multipart body with a file part plus extra fields.
func multipartUpload(t *testing.T, filename string, data []byte, fields map[string]string) (contentType string, body *bytes.Buffer) {
	t.Helper()

	body = &bytes.Buffer{}
	w := multipart.NewWriter(body)

	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)

	for key, value := range fields {
		require.NoError(t, w.WriteField(key, value))
	}
	require.NoError(t, w.Close())

	return w.FormDataContentType(), body
}

// uploadTestImage uploads a png through the API and returns the response.
func (ts *testServer) uploadTestImage(t *testing.T, slug string, width, height int, fields map[string]string) ImageResponse {
	t.Helper()

	if fields == nil {
		fields = map[string]string{}
	}
	fields["slug"] = slug

	contentType, body := multipartUpload(t, slug+".png", pngBytes(t, width, height), fields)
	resp := ts.api.Post("/api/v1/uploads", "Content-Type: "+contentType, body)
	require.Equal(t, http.StatusOK, resp.Code, "Upload failed: %s", resp.Body.String())

	var img ImageResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &img))
	return img
}

// decodeError pulls the error code out of an error response body.
func decodeError(t *testing.T, body []byte) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(body, &apiErr))
	return apiErr
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/api/v1/health")
	assert.Equal(t, http.StatusOK, resp.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
}
