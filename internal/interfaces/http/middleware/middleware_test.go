package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func TestCORSReflectsAllowedOrigin(t *testing.T) {
	h := CORS([]string{"http://app.test", "http://other.test"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://other.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://other.test" {
		t.Errorf("expected reflected origin, got %q", got)
	}
	if got := rec.Header().Get("Vary"); got != "Origin" {
		t.Errorf("expected Vary: Origin, got %q", got)
	}
}

func TestCORSUnknownOriginUsesFirstAllowed(t *testing.T) {
	h := CORS([]string{"http://app.test", "http://other.test"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://app.test" {
		t.Errorf("expected first allow-listed origin, got %q", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { called = true })
	h := CORS([]string{"http://app.test"})(next)

	req := httptest.NewRequest(http.MethodOptions, "/screenshot", nil)
	req.Header.Set("Origin", "http://app.test")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if called {
		t.Error("preflight must not reach the next handler")
	}
}

func TestRecoveryConvertsPanic(t *testing.T) {
	h := Recovery(logger.New("error"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 after panic, got %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "Internal Server Error" {
		t.Errorf("expected plain 500 body, got %q", got)
	}
}

func TestRecoveryPassesThroughNormalResponses(t *testing.T) {
	h := Recovery(logger.New("error"))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Errorf("expected body to pass through, got %q", rec.Body.String())
	}
}

func TestAuthValidation(t *testing.T) {
	cfg := AuthConfig{Enabled: true, BearerToken: "secret"}

	tests := []struct {
		name    string
		setup   func(r *http.Request)
		wantErr bool
	}{
		{"valid bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret") }, false},
		{"valid query token", func(r *http.Request) { q := r.URL.Query(); q.Set("token", "secret"); r.URL.RawQuery = q.Encode() }, false},
		{"wrong token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, true},
		{"missing token", func(*http.Request) {}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			tt.setup(req)
			err := ValidateRequestAuth(req, cfg)
			if tt.wantErr && err == nil {
				t.Error("expected rejection")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected rejection: %v", err)
			}
		})
	}
}

func TestAuthDisabledAllowsAll(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if err := ValidateRequestAuth(req, AuthConfig{}); err != nil {
		t.Errorf("disabled auth must allow requests: %v", err)
	}
}

func TestRateLimitRejectsBurstOverflow(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2)
	h := RateLimit(limiter)(okHandler())

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/screenshot", nil)
		req.Header.Set("X-Forwarded-For", "10.0.0.1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("burst requests must pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("expected 429 after burst exhausted, got %d", statuses[2])
	}
}

func TestClientIPKeysOnFirstForwardedHop(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		realIP    string
		remote    string
		want      string
	}{
		{"single forwarded entry", "10.0.0.1", "", "192.168.1.5:1234", "10.0.0.1"},
		{"proxy chain keeps first hop", "10.0.0.1, 172.16.0.9, 172.16.0.10", "", "192.168.1.5:1234", "10.0.0.1"},
		{"chain with spaces", " 10.0.0.2 ,172.16.0.9", "", "192.168.1.5:1234", "10.0.0.2"},
		{"real ip fallback", "", "10.0.0.3", "192.168.1.5:1234", "10.0.0.3"},
		{"remote addr strips port", "", "", "192.168.1.5:1234", "192.168.1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/screenshot", nil)
			req.RemoteAddr = tt.remote
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimitSharesBucketAcrossProxyChains(t *testing.T) {
	limiter := NewIPRateLimiter(1, 2)
	h := RateLimit(limiter)(okHandler())

	// Same client arriving through different proxy paths must drain one
	// bucket, not one per distinct header value.
	chains := []string{"10.0.0.1", "10.0.0.1, 172.16.0.9", "10.0.0.1, 172.16.0.10"}
	statuses := make([]int, 0, len(chains))
	for _, chain := range chains {
		req := httptest.NewRequest(http.MethodPost, "/screenshot", nil)
		req.Header.Set("X-Forwarded-For", chain)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}

	if statuses[0] != http.StatusOK || statuses[1] != http.StatusOK {
		t.Errorf("burst requests must pass, got %v", statuses)
	}
	if statuses[2] != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the shared bucket drained, got %d", statuses[2])
	}
}
