package port

import (
	"context"
	"errors"
	"time"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/service"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/valueobject"
)

var (
	// ErrBrowserUnavailable is returned when a browser process could not be
	// acquired at all (launch failure or launch deadline exceeded). No page
	// was created, so there is nothing to release.
	ErrBrowserUnavailable = errors.New("browser unavailable")

	// ErrNavigationTimeout is returned when the target did not reach the
	// requested ready condition within the navigation deadline.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrNavigationFailed is returned for transport-level navigation
	// failures: DNS errors, refused connections, aborted loads.
	ErrNavigationFailed = errors.New("navigation failed")
)

// CaptureRequest drives one screenshot capture through a dedicated browser
// session. All fields are already validated and clamped by the caller.
type CaptureRequest struct {
	URL       string
	Viewport  valueobject.Viewport
	FullPage  bool
	WaitUntil valueobject.WaitCondition
	Timeout   time.Duration
	Filter    *service.ResourceFilter
}

// CaptureResult is the raw binary outcome of a successful capture.
type CaptureResult struct {
	Data   []byte
	Width  int
	Height int
	Format string
}

// RenderRequest drives one rendered-markup retrieval through a dedicated
// browser session.
type RenderRequest struct {
	URL       string
	WaitUntil valueobject.WaitCondition
	Timeout   time.Duration
	Filter    *service.ResourceFilter
}

// BrowserEngine owns headless browser processes. Every call acquires a fresh
// browser handle, drives it through configure/navigate/capture and releases
// it before returning, on every code path. Handles are never shared between
// concurrent calls.
type BrowserEngine interface {
	// CaptureScreenshot renders the target and produces exactly one binary
	// image artifact from the final page state.
	CaptureScreenshot(ctx context.Context, req CaptureRequest) (*CaptureResult, error)

	// RenderContent renders the target and returns the full document markup
	// after script execution.
	RenderContent(ctx context.Context, req RenderRequest) (string, error)
}
