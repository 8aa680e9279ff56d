package http

import (
	"net/http"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/interfaces/http/handler"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/interfaces/http/middleware"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/config"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

type Router struct {
	mux               *http.ServeMux
	contentHandler    *handler.ContentHandler
	screenshotHandler *handler.ScreenshotHandler
	imageHandler      *handler.ImageHandler
	statusHandler     *handler.StatusHandler
	websocketHandler  *handler.WebSocketHandler
	security          config.SecurityConfig
	logger            *logger.Logger
}

func NewRouter(
	contentHandler *handler.ContentHandler,
	screenshotHandler *handler.ScreenshotHandler,
	imageHandler *handler.ImageHandler,
	statusHandler *handler.StatusHandler,
	websocketHandler *handler.WebSocketHandler,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:               http.NewServeMux(),
		contentHandler:    contentHandler,
		screenshotHandler: screenshotHandler,
		imageHandler:      imageHandler,
		statusHandler:     statusHandler,
		websocketHandler:  websocketHandler,
		security:          security,
		logger:            logger,
	}
}

// Setup wires all routes and the middleware chain.
func (rt *Router) Setup() http.Handler {
	// Health endpoints are intentionally unauthenticated for probes.
	rt.mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rt.mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	authMiddleware := middleware.Auth(middleware.AuthConfig{
		Enabled:     rt.security.AuthEnabled,
		BearerToken: rt.security.AuthToken,
	}, rt.logger)

	rateLimiter := middleware.NewIPRateLimiter(rt.security.RateLimitPerSecond, rt.security.RateLimitBurst)
	renderLimit := middleware.RateLimit(rateLimiter)

	// Render endpoints hold a browser for their whole request, so only they
	// are rate limited.
	rt.mux.Handle("/content", authMiddleware(renderLimit(http.HandlerFunc(rt.contentHandler.Render))))
	rt.mux.Handle("/screenshot", authMiddleware(renderLimit(http.HandlerFunc(rt.screenshotHandler.Capture))))

	// Retrieval relies on possession of the identifier, not on auth, so the
	// locator stays shareable for the artifact's lifetime.
	rt.mux.HandleFunc("/image/", rt.imageHandler.Serve)

	rt.mux.Handle("/status", authMiddleware(http.HandlerFunc(rt.statusHandler.Status)))
	rt.mux.Handle("/ws", authMiddleware(http.HandlerFunc(rt.websocketHandler.HandleConnection)))

	rt.mux.HandleFunc("/", rt.notFound)

	var h http.Handler = rt.mux
	h = middleware.Compression(h)
	h = middleware.CORS(rt.security.AllowedOrigins)(h)
	h = middleware.Logger(rt.logger)(h)
	h = middleware.Recovery(rt.logger)(h)

	return h
}

func (rt *Router) notFound(w http.ResponseWriter, r *http.Request) {
	handler.WriteJSON(w, http.StatusNotFound, map[string]any{
		"error": "Not found",
		"endpoints": []string{
			"POST /content",
			"POST /screenshot",
			"GET /image/{id}",
			"GET /status",
			"GET /ws",
			"GET /healthz",
			"GET /readyz",
		},
	})
}
