package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/usecase"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

const maxRequestBodyBytes = 64 * 1024

type ScreenshotHandler struct {
	captureUC *usecase.CaptureScreenshotUseCase
	logger    *logger.Logger
}

type screenshotRequest struct {
	URL                 string   `json:"url"`
	Width               int      `json:"width"`
	Height              int      `json:"height"`
	FullPage            bool     `json:"fullPage"`
	ForceFullPage       bool     `json:"forceFullPage"`
	WaitUntil           string   `json:"waitUntil"`
	TimeoutMillis       float64  `json:"timeout"`
	IncludeResources    bool     `json:"includeResources"`
	RejectResourceTypes []string `json:"rejectResourceTypes"`
}

type screenshotResponse struct {
	URL       string `json:"url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	FullPage  bool   `json:"fullPage"`
	ExpiresIn string `json:"expiresIn"`
	ID        string `json:"id"`
}

type screenshotErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Type    string `json:"type,omitempty"`
}

func NewScreenshotHandler(captureUC *usecase.CaptureScreenshotUseCase, log *logger.Logger) *ScreenshotHandler {
	return &ScreenshotHandler{captureUC: captureUC, logger: log}
}

func (h *ScreenshotHandler) Capture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	defer r.Body.Close()

	var req screenshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSON(w, http.StatusBadRequest, screenshotErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.captureUC.Execute(r.Context(), usecase.CaptureScreenshotCommand{
		URL:                 req.URL,
		Width:               req.Width,
		Height:              req.Height,
		FullPage:            req.FullPage,
		ForceFullPage:       req.ForceFullPage,
		WaitUntil:           req.WaitUntil,
		Timeout:             time.Duration(req.TimeoutMillis) * time.Millisecond,
		IncludeResources:    req.IncludeResources,
		RejectResourceTypes: req.RejectResourceTypes,
	})
	if err != nil {
		h.writeCaptureError(w, req.URL, err)
		return
	}

	WriteJSON(w, http.StatusOK, screenshotResponse{
		URL:       result.Locator,
		Width:     result.Metadata.Width,
		Height:    result.Metadata.Height,
		Format:    result.Metadata.Format,
		FullPage:  result.Metadata.FullPage,
		ExpiresIn: fmt.Sprintf("%d seconds", int(result.ExpiresIn.Seconds())),
		ID:        result.ID,
	})
}

func (h *ScreenshotHandler) writeCaptureError(w http.ResponseWriter, targetURL string, err error) {
	var validationErr *usecase.ValidationError
	if errors.As(err, &validationErr) {
		WriteJSON(w, http.StatusBadRequest, screenshotErrorResponse{Error: validationErr.Message})
		return
	}

	switch {
	case errors.Is(err, usecase.ErrBrowserNotConfigured):
		WriteJSON(w, http.StatusInternalServerError, screenshotErrorResponse{Error: "Browser binding is not available"})
	case errors.Is(err, usecase.ErrCacheNotConfigured):
		WriteJSON(w, http.StatusInternalServerError, screenshotErrorResponse{Error: "SCREENSHOTS KV binding is not available"})
	default:
		h.logger.Error("Screenshot capture failed", err, "url", targetURL)
		WriteJSON(w, http.StatusInternalServerError, screenshotErrorResponse{
			Error:   "Failed to take screenshot",
			Details: err.Error(),
			Type:    "screenshot_error",
		})
	}
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
