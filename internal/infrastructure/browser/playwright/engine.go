package playwright

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

const (
	// jpegQuality bounds artifact size; captures are always lossy JPEG.
	jpegQuality = 80

	defaultLaunchTimeout = 15 * time.Second
)

type Config struct {
	Headless      bool
	LaunchTimeout time.Duration
}

// Engine implements port.BrowserEngine on Playwright-driven Chromium. The
// driver process is started once and shared; every capture request launches
// its own browser process so concurrent requests never share a handle or a
// page.
type Engine struct {
	pw            *playwright.Playwright
	headless      bool
	launchTimeout time.Duration
	logger        *logger.Logger
}

// NewEngine installs the Playwright driver and browsers if needed and starts
// the driver process. Call Shutdown to stop it.
func NewEngine(cfg Config, log *logger.Logger) (*Engine, error) {
	if cfg.LaunchTimeout <= 0 {
		cfg.LaunchTimeout = defaultLaunchTimeout
	}

	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	log.Info("Browser engine started", "headless", cfg.Headless)

	return &Engine{
		pw:            pw,
		headless:      cfg.Headless,
		launchTimeout: cfg.LaunchTimeout,
		logger:        log,
	}, nil
}

// CaptureScreenshot drives one full session: launch, configure, navigate,
// capture. The session is released on every path once launch succeeded.
func (e *Engine) CaptureScreenshot(ctx context.Context, req port.CaptureRequest) (*port.CaptureResult, error) {
	sess, err := e.openSession(req.Viewport.Width, req.Viewport.Height, req.Filter)
	if err != nil {
		return nil, err
	}
	defer sess.close(e.logger)

	if err := sess.navigate(ctx, req.URL, req.WaitUntil, req.Timeout); err != nil {
		return nil, err
	}

	data, err := sess.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(req.FullPage),
		Type:     playwright.ScreenshotTypeJpeg,
		Quality:  playwright.Int(jpegQuality),
		Timeout:  playwright.Float(float64(req.Timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}

	e.logger.Debug("Screenshot captured",
		"url", req.URL,
		"bytes", len(data),
		"full_page", req.FullPage,
	)

	return &port.CaptureResult{
		Data:   data,
		Width:  req.Viewport.Width,
		Height: req.Viewport.Height,
		Format: "jpeg",
	}, nil
}

// RenderContent drives one full session and returns the document markup
// after script execution.
func (e *Engine) RenderContent(ctx context.Context, req port.RenderRequest) (string, error) {
	sess, err := e.openSession(defaultRenderWidth, defaultRenderHeight, req.Filter)
	if err != nil {
		return "", err
	}
	defer sess.close(e.logger)

	if err := sess.navigate(ctx, req.URL, req.WaitUntil, req.Timeout); err != nil {
		return "", err
	}

	content, err := sess.page.Content()
	if err != nil {
		return "", fmt.Errorf("content extraction failed: %w", err)
	}
	return content, nil
}

// Shutdown stops the shared driver process. In-flight sessions hold their
// own browser handles and finish independently.
func (e *Engine) Shutdown() error {
	if err := e.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	e.logger.Info("Browser engine stopped")
	return nil
}
