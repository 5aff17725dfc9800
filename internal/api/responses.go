package api

import (
	"github.com/nixground/nixground-server/internal/domain"
	"github.com/nixground/nixground-server/internal/service"
)

// MessageResponse contains a simple confirmation message.
type MessageResponse struct {
	Message string `json:"message" doc:"Human-readable confirmation"`
}

// MessageOutput wraps a message response for Huma.
type MessageOutput struct {
	Body MessageResponse
}

// TagResponse contains tag data in API responses.
type TagResponse struct {
	Slug     string `json:"slug" doc:"Composite tag slug (kind/value)"`
	Name     string `json:"name" doc:"Display name"`
	KindSlug string `json:"kind_slug" doc:"Owning tag kind"`
	System   bool   `json:"system" doc:"True when owned by the rule engine"`
}

// ImageResponse contains image data in API responses.
type ImageResponse struct {
	Slug      string        `json:"slug" doc:"Image slug"`
	Ext       string        `json:"ext" doc:"Stored file extension"`
	Name      string        `json:"name" doc:"Display name"`
	AddedAt   int64         `json:"added_at" doc:"Upload time, unix seconds"`
	SizeBytes int64         `json:"size_bytes" doc:"Source size in bytes"`
	WidthPx   int           `json:"width_px" doc:"Pixel width"`
	HeightPx  int           `json:"height_px" doc:"Pixel height"`
	SHA256    string        `json:"sha256" doc:"Base64 content digest"`
	BlurHash  string        `json:"blur_hash,omitempty" doc:"Preview placeholder"`
	Ready     bool          `json:"ready" doc:"False while an upload is mid-flight"`
	URL       string        `json:"url" doc:"Public URL of the stored bytes"`
	Tags      []TagResponse `json:"tags,omitempty" doc:"Attached tags"`
}

func toTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		Slug:     t.Slug,
		Name:     t.Name,
		KindSlug: t.KindSlug,
		System:   t.System,
	}
}

func toTagResponses(tags []*domain.Tag) []TagResponse {
	out := make([]TagResponse, len(tags))
	for i, t := range tags {
		out[i] = toTagResponse(t)
	}
	return out
}

func toImageResponse(view *service.ImageView) ImageResponse {
	resp := ImageResponse{
		Slug:      view.Slug,
		Ext:       view.Ext,
		Name:      view.Name,
		AddedAt:   view.AddedAt,
		SizeBytes: view.SizeBytes,
		WidthPx:   view.WidthPx,
		HeightPx:  view.HeightPx,
		SHA256:    view.SHA256,
		BlurHash:  view.BlurHash,
		Ready:     view.Ready,
		URL:       view.URL,
	}
	if len(view.Tags) > 0 {
		resp.Tags = toTagResponses(view.Tags)
	}
	return resp
}
