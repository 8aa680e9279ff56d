package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

func TestRenderContentSuccess(t *testing.T) {
	engine := &fakeBrowserEngine{renderedOutput: "<html><body>hello</body></html>"}
	uc := NewRenderContentUseCase(engine, logger.New("error"))

	result, err := uc.Execute(context.Background(), RenderContentCommand{URL: "https://example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "<html><body>hello</body></html>" {
		t.Errorf("unexpected content %q", result.Content)
	}
}

func TestRenderContentMissingURL(t *testing.T) {
	engine := &fakeBrowserEngine{}
	uc := NewRenderContentUseCase(engine, logger.New("error"))

	_, err := uc.Execute(context.Background(), RenderContentCommand{})

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(engine.renderCalls) != 0 {
		t.Error("no browser session may be started for an invalid request")
	}
}

func TestRenderContentMissingEngine(t *testing.T) {
	uc := NewRenderContentUseCase(nil, logger.New("error"))

	_, err := uc.Execute(context.Background(), RenderContentCommand{URL: "https://example.com"})
	if !errors.Is(err, ErrBrowserNotConfigured) {
		t.Fatalf("expected ErrBrowserNotConfigured, got %v", err)
	}
}

func TestRenderContentEngineFailure(t *testing.T) {
	engine := &fakeBrowserEngine{renderErr: port.ErrNavigationFailed}
	uc := NewRenderContentUseCase(engine, logger.New("error"))

	_, err := uc.Execute(context.Background(), RenderContentCommand{URL: "https://example.com"})
	if !errors.Is(err, port.ErrNavigationFailed) {
		t.Fatalf("expected navigation failure to pass through, got %v", err)
	}
}

func TestRenderContentCustomRejectList(t *testing.T) {
	engine := &fakeBrowserEngine{renderedOutput: "<html></html>"}
	uc := NewRenderContentUseCase(engine, logger.New("error"))

	_, err := uc.Execute(context.Background(), RenderContentCommand{
		URL:                 "https://example.com",
		RejectResourceTypes: []string{"Script", " websocket "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	filter := engine.renderCalls[0].Filter
	if filter.Allow("script") || filter.Allow("websocket") {
		t.Error("custom reject list must be normalized and applied")
	}
	if !filter.Allow("image") {
		t.Error("categories outside the custom list must be allowed")
	}
}
