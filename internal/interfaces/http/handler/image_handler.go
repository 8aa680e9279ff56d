package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/usecase"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

// ImageHandler serves stored screenshot payloads back by identifier. The
// identifier is the whole access model, so errors stay terse plain text.
type ImageHandler struct {
	getArtifactUC *usecase.GetArtifactUseCase
	logger        *logger.Logger
}

func NewImageHandler(getArtifactUC *usecase.GetArtifactUseCase, log *logger.Logger) *ImageHandler {
	return &ImageHandler{getArtifactUC: getArtifactUC, logger: log}
}

func (h *ImageHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/image/")
	result, err := h.getArtifactUC.Execute(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, port.ErrArtifactNotFound):
			http.Error(w, "Image not found", http.StatusNotFound)
		case errors.Is(err, port.ErrArtifactDataNotFound):
			http.Error(w, "Image data not found", http.StatusNotFound)
		case errors.Is(err, usecase.ErrCacheNotConfigured):
			http.Error(w, "SCREENSHOTS KV binding is not available", http.StatusInternalServerError)
		default:
			h.logger.Error("Failed to load stored image", err, "id", id)
			http.Error(w, "Failed to load image", http.StatusInternalServerError)
		}
		return
	}

	contentType := result.Metadata.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(result.FreshFor.Seconds())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Payload)
}
