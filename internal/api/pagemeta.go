package api

import (
	"context"
	"net/http"
	"net/url"
)

// MetaExtractor pulls preview image URLs out of a page's head.
type MetaExtractor interface {
	Extract(ctx context.Context, pageURL string) ([]string, error)
}

// PagemetaHandler serves social preview image extraction.
type PagemetaHandler struct {
	extractor MetaExtractor
}

func NewPagemetaHandler(extractor MetaExtractor) *PagemetaHandler {
	return &PagemetaHandler{extractor: extractor}
}

type pagemetaResponse struct {
	URL    string   `json:"url"`
	Images []string `json:"images"`
}

// Handle extracts the page's declared preview images.
// GET /api/pagemeta?url=..
func (h *PagemetaHandler) Handle(w http.ResponseWriter, r *http.Request) {
	pageURL := r.URL.Query().Get("url")
	if pageURL == "" {
		writeBadRequest(w, "url is required")
		return
	}
	parsed, err := url.Parse(pageURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		writeBadRequest(w, "url must be absolute http(s)")
		return
	}

	images, err := h.extractor.Extract(r.Context(), pageURL)
	if err != nil {
		writeError(w, err)
		return
	}
	if images == nil {
		images = []string{}
	}
	writeJSON(w, http.StatusOK, pagemetaResponse{URL: pageURL, Images: images})
}
