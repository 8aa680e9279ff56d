package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/usecase"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/entity"
	wsInfra "github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/infrastructure/notification/websocket"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/interfaces/http/handler"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/interfaces/http/middleware"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/config"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

const testBaseURL = "http://render.test"

type stubEngine struct {
	captureErr error
	renderErr  error
	content    string
}

func (s *stubEngine) CaptureScreenshot(_ context.Context, req port.CaptureRequest) (*port.CaptureResult, error) {
	if s.captureErr != nil {
		return nil, s.captureErr
	}
	return &port.CaptureResult{
		Data:   []byte("jpeg-bytes"),
		Width:  req.Viewport.Width,
		Height: req.Viewport.Height,
		Format: "jpeg",
	}, nil
}

func (s *stubEngine) RenderContent(_ context.Context, req port.RenderRequest) (string, error) {
	if s.renderErr != nil {
		return "", s.renderErr
	}
	return s.content, nil
}

type cacheRecord struct {
	meta      entity.ArtifactMetadata
	payload   []byte
	expiresAt time.Time
}

// memoryCache mirrors the two-record layout of the real store: metadata and
// payload can go missing independently.
type memoryCache struct {
	mu      sync.Mutex
	records map[string]*cacheRecord
}

func newMemoryCache() *memoryCache {
	return &memoryCache{records: make(map[string]*cacheRecord)}
}

func (c *memoryCache) Put(_ context.Context, id string, meta entity.ArtifactMetadata, payload []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[id] = &cacheRecord{meta: meta, payload: payload, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (c *memoryCache) Get(_ context.Context, id string) (entity.ArtifactMetadata, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, ok := c.records[id]
	if !ok || time.Now().After(record.expiresAt) {
		return entity.ArtifactMetadata{}, nil, port.ErrArtifactNotFound
	}
	if record.payload == nil {
		return entity.ArtifactMetadata{}, nil, port.ErrArtifactDataNotFound
	}
	return record.meta, record.payload, nil
}

func (c *memoryCache) Close() error { return nil }

func (c *memoryCache) dropPayload(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if record, ok := c.records[id]; ok {
		record.payload = nil
	}
}

type testServer struct {
	handler http.Handler
	cache   *memoryCache
}

func newTestServer(t *testing.T, engine port.BrowserEngine, cache port.ArtifactCache) *testServer {
	t.Helper()

	log := logger.New("error")
	captureUC := usecase.NewCaptureScreenshotUseCase(engine, cache, usecase.CaptureScreenshotConfig{
		PublicBaseURL: testBaseURL,
		ArtifactTTL:   time.Hour,
	}, log)
	renderUC := usecase.NewRenderContentUseCase(engine, log)
	getArtifactUC := usecase.NewGetArtifactUseCase(cache, time.Hour, log)

	hub := wsInfra.NewHub(log)
	go hub.Run()

	security := config.SecurityConfig{
		AllowedOrigins:     []string{"http://app.test", "http://other.test"},
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
	}

	router := NewRouter(
		handler.NewContentHandler(renderUC, log),
		handler.NewScreenshotHandler(captureUC, log),
		handler.NewImageHandler(getArtifactUC, log),
		handler.NewStatusHandler(handler.Subsystems{Browser: engine != nil, Cache: cache != nil}, hub, log),
		handler.NewWebSocketHandler(hub, security.AllowedOrigins, middleware.AuthConfig{}, log),
		security,
		log,
	)

	memCache, _ := cache.(*memoryCache)
	return &testServer{handler: router.Setup(), cache: memCache}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func parseMaxAge(t *testing.T, cacheControl string) int {
	t.Helper()
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if value, ok := strings.CutPrefix(directive, "max-age="); ok {
			seconds, err := strconv.Atoi(value)
			if err != nil {
				t.Fatalf("bad max-age in %q: %v", cacheControl, err)
			}
			return seconds
		}
	}
	t.Fatalf("no max-age directive in %q", cacheControl)
	return 0
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

func TestScreenshotAndRetrieveFlow(t *testing.T) {
	ts := newTestServer(t, &stubEngine{}, newMemoryCache())

	rec := ts.do(t, http.MethodPost, "/screenshot", map[string]any{
		"url":    "https://example.com",
		"width":  1024,
		"height": 768,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		URL       string `json:"url"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Format    string `json:"format"`
		FullPage  bool   `json:"fullPage"`
		ExpiresIn string `json:"expiresIn"`
		ID        string `json:"id"`
	}
	decodeJSON(t, rec, &resp)

	if resp.ID == "" {
		t.Fatal("expected non-empty id")
	}
	if want := testBaseURL + "/image/" + resp.ID; resp.URL != want {
		t.Errorf("expected locator %q, got %q", want, resp.URL)
	}
	if resp.Width != 1024 || resp.Height != 768 {
		t.Errorf("expected 1024x768, got %dx%d", resp.Width, resp.Height)
	}
	if resp.Format != "jpeg" {
		t.Errorf("expected jpeg format, got %q", resp.Format)
	}
	if resp.ExpiresIn != "3600 seconds" {
		t.Errorf("expected %q, got %q", "3600 seconds", resp.ExpiresIn)
	}

	imageRec := ts.do(t, http.MethodGet, "/image/"+resp.ID, nil)
	if imageRec.Code != http.StatusOK {
		t.Fatalf("expected 200 for stored image, got %d", imageRec.Code)
	}
	if got := imageRec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("expected image/jpeg, got %q", got)
	}
	maxAge := parseMaxAge(t, imageRec.Header().Get("Cache-Control"))
	if maxAge > 3600 || maxAge < 3540 {
		t.Errorf("expected max-age just under 3600 for a fresh artifact, got %d", maxAge)
	}
	if imageRec.Body.String() != "jpeg-bytes" {
		t.Errorf("unexpected payload %q", imageRec.Body.String())
	}
}

func TestScreenshotViewportClamped(t *testing.T) {
	ts := newTestServer(t, &stubEngine{}, newMemoryCache())

	rec := ts.do(t, http.MethodPost, "/screenshot", map[string]any{
		"url":    "https://example.com",
		"width":  2000,
		"height": 2000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Width != 1600 || resp.Height != 1200 {
		t.Errorf("expected clamped 1600x1200, got %dx%d", resp.Width, resp.Height)
	}
}

func TestScreenshotMissingURL(t *testing.T) {
	ts := newTestServer(t, &stubEngine{}, newMemoryCache())

	rec := ts.do(t, http.MethodPost, "/screenshot", map[string]any{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp struct {
		Error string `json:"error"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Error != "URL is required" {
		t.Errorf("expected %q, got %q", "URL is required", resp.Error)
	}
}

func TestScreenshotMissingBindings(t *testing.T) {
	t.Run("browser missing", func(t *testing.T) {
		ts := newTestServer(t, nil, newMemoryCache())

		rec := ts.do(t, http.MethodPost, "/screenshot", map[string]any{"url": "https://example.com"})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		var resp struct {
			Error string `json:"error"`
		}
		decodeJSON(t, rec, &resp)
		if resp.Error != "Browser binding is not available" {
			t.Errorf("unexpected error %q", resp.Error)
		}
	})

	t.Run("cache missing", func(t *testing.T) {
		ts := newTestServer(t, &stubEngine{}, nil)

		rec := ts.do(t, http.MethodPost, "/screenshot", map[string]any{"url": "https://example.com"})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
		var resp struct {
			Error string `json:"error"`
		}
		decodeJSON(t, rec, &resp)
		if resp.Error != "SCREENSHOTS KV binding is not available" {
			t.Errorf("unexpected error %q", resp.Error)
		}
	})
}

func TestScreenshotCaptureFailureShape(t *testing.T) {
	ts := newTestServer(t, &stubEngine{captureErr: port.ErrNavigationTimeout}, newMemoryCache())

	rec := ts.do(t, http.MethodPost, "/screenshot", map[string]any{"url": "https://example.com"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var resp struct {
		Error   string `json:"error"`
		Details string `json:"details"`
		Type    string `json:"type"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Error != "Failed to take screenshot" {
		t.Errorf("unexpected error %q", resp.Error)
	}
	if resp.Details == "" {
		t.Error("expected failure details")
	}
	if resp.Type != "screenshot_error" {
		t.Errorf("expected screenshot_error type, got %q", resp.Type)
	}
}

func TestImageNotFound(t *testing.T) {
	ts := newTestServer(t, &stubEngine{}, newMemoryCache())

	rec := ts.do(t, http.MethodGet, "/image/unknown-id", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "Image not found" {
		t.Errorf("expected plain %q, got %q", "Image not found", got)
	}
}

func TestImageDataNotFound(t *testing.T) {
	cache := newMemoryCache()
	ts := newTestServer(t, &stubEngine{}, cache)

	rec := ts.do(t, http.MethodPost, "/screenshot", map[string]any{"url": "https://example.com"})
	var resp struct {
		ID string `json:"id"`
	}
	decodeJSON(t, rec, &resp)

	ts.cache.dropPayload(resp.ID)

	imageRec := ts.do(t, http.MethodGet, "/image/"+resp.ID, nil)
	if imageRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", imageRec.Code)
	}
	if got := strings.TrimSpace(imageRec.Body.String()); got != "Image data not found" {
		t.Errorf("expected plain %q, got %q", "Image data not found", got)
	}
}

func TestImageCacheControlShrinksWithAge(t *testing.T) {
	cache := newMemoryCache()
	ts := newTestServer(t, &stubEngine{}, cache)

	meta := entity.ArtifactMetadata{
		ContentType: "image/jpeg",
		CreatedAt:   time.Now().UTC().Add(-59 * time.Minute),
	}
	if err := cache.Put(context.Background(), "aging", meta, []byte("x"), time.Hour); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/image/aging", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	maxAge := parseMaxAge(t, rec.Header().Get("Cache-Control"))
	if maxAge > 60 {
		t.Errorf("artifact with ~1m of life left must not advertise max-age=%d", maxAge)
	}
	if maxAge < 0 {
		t.Errorf("max-age must not go negative, got %d", maxAge)
	}
}

func TestImageExpired(t *testing.T) {
	cache := newMemoryCache()
	ts := newTestServer(t, &stubEngine{}, cache)

	meta := entity.ArtifactMetadata{ContentType: "image/jpeg"}
	if err := cache.Put(context.Background(), "stale", meta, []byte("x"), -time.Second); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/image/stale", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for expired artifact, got %d", rec.Code)
	}
}

func TestContentEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubEngine{content: "<html><body>rendered</body></html>"}, newMemoryCache())

	rec := ts.do(t, http.MethodPost, "/content", map[string]any{"url": "https://example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Content string `json:"content"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Content != "<html><body>rendered</body></html>" {
		t.Errorf("unexpected content %q", resp.Content)
	}
}

func TestContentFailureShape(t *testing.T) {
	ts := newTestServer(t, &stubEngine{renderErr: port.ErrNavigationFailed}, newMemoryCache())

	rec := ts.do(t, http.MethodPost, "/content", map[string]any{"url": "https://example.com"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var resp struct {
		Error string `json:"error"`
		Stack string `json:"stack"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Error != "Failed to fetch content" {
		t.Errorf("unexpected error %q", resp.Error)
	}
	if resp.Stack == "" {
		t.Error("expected stack detail in failure body")
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &stubEngine{}, newMemoryCache())

	req := httptest.NewRequest(http.MethodOptions, "/screenshot", nil)
	req.Header.Set("Origin", "http://other.test")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://other.test" {
		t.Errorf("expected origin reflected, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("expected POST in allow-methods, got %q", got)
	}
}

func TestCORSUnknownOriginFallsBack(t *testing.T) {
	ts := newTestServer(t, &stubEngine{}, newMemoryCache())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.test" {
		t.Errorf("expected first allow-listed origin, got %q", got)
	}
}

func TestUnmatchedPathListsEndpoints(t *testing.T) {
	ts := newTestServer(t, &stubEngine{}, newMemoryCache())

	rec := ts.do(t, http.MethodGet, "/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var resp struct {
		Error     string   `json:"error"`
		Endpoints []string `json:"endpoints"`
	}
	decodeJSON(t, rec, &resp)
	if len(resp.Endpoints) == 0 {
		t.Fatal("expected endpoint listing in 404 body")
	}

	joined := strings.Join(resp.Endpoints, " ")
	for _, want := range []string{"/content", "/screenshot", "/image/{id}"} {
		if !strings.Contains(joined, want) {
			t.Errorf("endpoint listing missing %q: %v", want, resp.Endpoints)
		}
	}
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, &stubEngine{}, newMemoryCache())

	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rec := ts.do(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
		if rec.Body.String() != want {
			t.Errorf("%s: expected %q, got %q", path, want, rec.Body.String())
		}
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := newTestServer(t, &stubEngine{}, newMemoryCache())

	rec := ts.do(t, http.MethodGet, "/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status     string `json:"status"`
		Subsystems struct {
			Browser bool `json:"browser"`
			Cache   bool `json:"cache"`
		} `json:"subsystems"`
	}
	decodeJSON(t, rec, &resp)
	if resp.Status != "ok" {
		t.Errorf("expected ok status, got %q", resp.Status)
	}
	if !resp.Subsystems.Browser || !resp.Subsystems.Cache {
		t.Errorf("expected browser and cache subsystems reported up: %+v", resp.Subsystems)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &stubEngine{}, newMemoryCache())

	rec := ts.do(t, http.MethodGet, "/screenshot", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
