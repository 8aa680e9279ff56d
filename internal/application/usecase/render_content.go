package usecase

import (
	"context"
	"time"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/valueobject"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

type RenderContentCommand struct {
	URL                 string
	WaitUntil           string
	Timeout             time.Duration
	RejectResourceTypes []string
}

type RenderContentResult struct {
	Content string
}

// RenderContentUseCase retrieves the full rendered document markup for a
// target URL through a dedicated browser session. It shares the capture
// pipeline's validation, filtering and deadline rules but persists nothing.
type RenderContentUseCase struct {
	engine port.BrowserEngine
	logger *logger.Logger
}

func NewRenderContentUseCase(engine port.BrowserEngine, log *logger.Logger) *RenderContentUseCase {
	return &RenderContentUseCase{engine: engine, logger: log}
}

func (uc *RenderContentUseCase) Execute(ctx context.Context, cmd RenderContentCommand) (*RenderContentResult, error) {
	targetURL, err := validateTargetURL(cmd.URL)
	if err != nil {
		return nil, err
	}

	waitUntil, err := valueobject.ParseWaitCondition(cmd.WaitUntil)
	if err != nil {
		return nil, newValidationError(err.Error())
	}

	filter, err := buildResourceFilter(false, cmd.RejectResourceTypes)
	if err != nil {
		return nil, err
	}

	if uc.engine == nil {
		return nil, ErrBrowserNotConfigured
	}

	started := time.Now()
	content, err := uc.engine.RenderContent(ctx, port.RenderRequest{
		URL:       targetURL,
		WaitUntil: waitUntil,
		Timeout:   clampNavigationTimeout(cmd.Timeout),
		Filter:    filter,
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Debug("Rendered page content",
		"url", targetURL,
		"bytes", len(content),
		"duration_ms", time.Since(started).Milliseconds(),
	)

	return &RenderContentResult{Content: content}, nil
}
