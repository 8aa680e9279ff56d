package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/usecase"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

type ContentHandler struct {
	renderUC *usecase.RenderContentUseCase
	logger   *logger.Logger
}

type contentRequest struct {
	URL                 string   `json:"url"`
	WaitUntil           string   `json:"waitUntil"`
	TimeoutMillis       float64  `json:"timeout"`
	RejectResourceTypes []string `json:"rejectResourceTypes"`
}

type contentResponse struct {
	Content string `json:"content"`
}

type contentErrorResponse struct {
	Error string `json:"error"`
	Stack string `json:"stack,omitempty"`
}

func NewContentHandler(renderUC *usecase.RenderContentUseCase, log *logger.Logger) *ContentHandler {
	return &ContentHandler{renderUC: renderUC, logger: log}
}

func (h *ContentHandler) Render(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer r.Body.Close()

	var req contentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, contentErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.renderUC.Execute(r.Context(), usecase.RenderContentCommand{
		URL:                 req.URL,
		WaitUntil:           req.WaitUntil,
		Timeout:             time.Duration(req.TimeoutMillis) * time.Millisecond,
		RejectResourceTypes: req.RejectResourceTypes,
	})
	if err != nil {
		h.writeRenderError(w, req.URL, err)
		return
	}

	WriteJSON(w, http.StatusOK, contentResponse{Content: result.Content})
}

func (h *ContentHandler) writeRenderError(w http.ResponseWriter, targetURL string, err error) {
	var validationErr *usecase.ValidationError
	if errors.As(err, &validationErr) {
		WriteJSON(w, http.StatusBadRequest, contentErrorResponse{Error: validationErr.Message})
		return
	}

	if errors.Is(err, usecase.ErrBrowserNotConfigured) {
		WriteJSON(w, http.StatusInternalServerError, contentErrorResponse{Error: "Browser binding is not available"})
		return
	}

	h.logger.Error("Content render failed", err, "url", targetURL)
	WriteJSON(w, http.StatusInternalServerError, contentErrorResponse{
		Error: "Failed to fetch content",
		Stack: err.Error(),
	})
}
