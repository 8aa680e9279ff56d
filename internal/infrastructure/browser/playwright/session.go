package playwright

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/service"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/valueobject"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

const (
	defaultRenderWidth  = valueobject.DefaultViewportWidth
	defaultRenderHeight = valueobject.DefaultViewportHeight
)

// session is one browser process handle with exactly one open page. It lives
// for the duration of a single request and is never reused.
type session struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page
}

// openSession launches a browser and configures viewport and interception.
// On any configuration failure the partially acquired resources are released
// before returning; on success the caller owns the session and must close it.
func (e *Engine) openSession(width, height int, filter *service.ResourceFilter) (*session, error) {
	browser, err := e.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(e.headless),
		Timeout:  playwright.Float(float64(e.launchTimeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrBrowserUnavailable, err)
	}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: width, Height: height},
	})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("%w: failed to create context: %v", port.ErrBrowserUnavailable, err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		_ = browserContext.Close()
		_ = browser.Close()
		return nil, fmt.Errorf("%w: failed to create page: %v", port.ErrBrowserUnavailable, err)
	}

	sess := &session{browser: browser, context: browserContext, page: page}

	if err := sess.installFilter(filter); err != nil {
		sess.close(e.logger)
		return nil, err
	}

	return sess, nil
}

// installFilter registers the resource filter as the interception hook for
// every sub-request the page makes during navigation and script execution.
func (s *session) installFilter(filter *service.ResourceFilter) error {
	if filter == nil || len(filter.RejectedTypes()) == 0 {
		return nil
	}

	err := s.page.Route("**/*", func(route playwright.Route) {
		rt := valueobject.NormalizeResourceType(route.Request().ResourceType())
		if filter.Allow(rt) {
			_ = route.Continue()
			return
		}
		_ = route.Abort()
	})
	if err != nil {
		return fmt.Errorf("failed to install resource filter: %w", err)
	}
	return nil
}

// navigate requests the target URL under the given ready condition and
// deadline, classifying failures into timeout vs unreachable.
func (s *session) navigate(ctx context.Context, url string, waitUntil valueobject.WaitCondition, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", port.ErrNavigationFailed, err)
	}

	state := playwright.WaitUntilState(waitUntil)
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: &state,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %s did not reach %s within %s", port.ErrNavigationTimeout, url, waitUntil, timeout)
		}
		return fmt.Errorf("%w: %v", port.ErrNavigationFailed, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, playwright.ErrTimeout) {
		return true
	}
	// Some driver timeouts only surface in the message.
	return strings.Contains(err.Error(), "Timeout") || strings.Contains(err.Error(), "timeout")
}

// close releases page, context and browser in order, ignoring individual
// close errors so a wedged page never leaks the process handle. It runs on
// every exit path once launch succeeded.
func (s *session) close(log *logger.Logger) {
	_ = s.page.Close()
	_ = s.context.Close()
	if err := s.browser.Close(); err != nil {
		log.Warn("Failed to close browser process", "error", err.Error())
	}
}
