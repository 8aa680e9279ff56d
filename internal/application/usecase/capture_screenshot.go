package usecase

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/dto"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/entity"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/service"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/valueobject"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

const (
	// DefaultArtifactTTL is how long a captured artifact stays retrievable.
	DefaultArtifactTTL = time.Hour

	// DefaultNavigationTimeout applies when the caller supplies none;
	// MaxNavigationTimeout clamps whatever the caller asks for.
	DefaultNavigationTimeout = 30 * time.Second
	MaxNavigationTimeout     = 60 * time.Second

	artifactFormat      = "jpeg"
	artifactContentType = "image/jpeg"
)

type CaptureScreenshotCommand struct {
	URL                 string
	Width               int
	Height              int
	FullPage            bool
	ForceFullPage       bool
	WaitUntil           string
	Timeout             time.Duration
	IncludeResources    bool
	RejectResourceTypes []string
}

type CaptureScreenshotResult struct {
	ID        string
	Locator   string
	Metadata  entity.ArtifactMetadata
	ExpiresIn time.Duration
}

type CaptureScreenshotConfig struct {
	// PublicBaseURL is the serving origin combined with the identifier to
	// form the retrieval locator.
	PublicBaseURL string
	ArtifactTTL   time.Duration
}

// CaptureScreenshotUseCase orchestrates resource filter, browser session and
// artifact cache for one capture request: validate, drive the session,
// persist the artifact under a fresh identifier and compute the retrieval
// locator. The browser handle is guaranteed released by the engine before
// any return, success or failure.
type CaptureScreenshotUseCase struct {
	engine      port.BrowserEngine
	cache       port.ArtifactCache
	archive     port.ArtifactArchive
	archiveMeta port.ArchiveMetadataRepository
	events      port.EventPublisher
	metrics     port.MetricsPublisher
	notifier    port.CaptureNotifier
	config      CaptureScreenshotConfig
	logger      *logger.Logger
}

func NewCaptureScreenshotUseCase(
	engine port.BrowserEngine,
	cache port.ArtifactCache,
	config CaptureScreenshotConfig,
	log *logger.Logger,
) *CaptureScreenshotUseCase {
	if config.ArtifactTTL <= 0 {
		config.ArtifactTTL = DefaultArtifactTTL
	}
	config.PublicBaseURL = strings.TrimRight(config.PublicBaseURL, "/")

	return &CaptureScreenshotUseCase{
		engine: engine,
		cache:  cache,
		config: config,
		logger: log,
	}
}

// WithArchive attaches the optional long-term archive pair.
func (uc *CaptureScreenshotUseCase) WithArchive(archive port.ArtifactArchive, meta port.ArchiveMetadataRepository) *CaptureScreenshotUseCase {
	uc.archive = archive
	uc.archiveMeta = meta
	return uc
}

// WithObservers attaches the optional event, metric and notification sinks.
// Any of them may be nil.
func (uc *CaptureScreenshotUseCase) WithObservers(events port.EventPublisher, metrics port.MetricsPublisher, notifier port.CaptureNotifier) *CaptureScreenshotUseCase {
	uc.events = events
	uc.metrics = metrics
	uc.notifier = notifier
	return uc
}

func (uc *CaptureScreenshotUseCase) Execute(ctx context.Context, cmd CaptureScreenshotCommand) (*CaptureScreenshotResult, error) {
	targetURL, err := validateTargetURL(cmd.URL)
	if err != nil {
		return nil, err
	}

	waitUntil, err := valueobject.ParseWaitCondition(cmd.WaitUntil)
	if err != nil {
		return nil, newValidationError(err.Error())
	}

	filter, err := buildResourceFilter(cmd.IncludeResources, cmd.RejectResourceTypes)
	if err != nil {
		return nil, err
	}

	// Binding checks come after validation so a malformed request is always
	// reported as the caller's fault, never as a server misconfiguration.
	if uc.engine == nil {
		return nil, ErrBrowserNotConfigured
	}
	if uc.cache == nil {
		return nil, ErrCacheNotConfigured
	}

	viewport := valueobject.NewViewport(cmd.Width, cmd.Height)
	fullPage := cmd.FullPage || cmd.ForceFullPage
	timeout := clampNavigationTimeout(cmd.Timeout)

	uc.notify(&dto.CaptureEventDTO{
		Kind:      dto.CaptureEventStarted,
		SourceURL: targetURL,
		FullPage:  fullPage,
		Timestamp: time.Now().UTC(),
	})

	started := time.Now()
	capture, err := uc.engine.CaptureScreenshot(ctx, port.CaptureRequest{
		URL:       targetURL,
		Viewport:  viewport,
		FullPage:  fullPage,
		WaitUntil: waitUntil,
		Timeout:   timeout,
		Filter:    filter,
	})
	if err != nil {
		uc.reportFailure(targetURL, started, err)
		return nil, err
	}

	id := entity.NewArtifactID()
	meta := entity.ArtifactMetadata{
		ContentType: artifactContentType,
		Width:       capture.Width,
		Height:      capture.Height,
		FullPage:    fullPage,
		Format:      artifactFormat,
		CreatedAt:   time.Now().UTC(),
		SourceURL:   targetURL,
	}

	if err := uc.cache.Put(ctx, id, meta, capture.Data, uc.config.ArtifactTTL); err != nil {
		uc.reportFailure(targetURL, started, err)
		return nil, fmt.Errorf("failed to store artifact: %w", err)
	}

	uc.archiveCapture(ctx, id, meta, capture.Data)
	uc.reportSuccess(id, meta, len(capture.Data), started)

	return &CaptureScreenshotResult{
		ID:        id,
		Locator:   uc.config.PublicBaseURL + "/image/" + id,
		Metadata:  meta,
		ExpiresIn: uc.config.ArtifactTTL,
	}, nil
}

// archiveCapture uploads the artifact to the long-term archive when one is
// configured. Archive failures are logged and never fail the capture: the
// cache already holds the artifact and the locator is valid.
func (uc *CaptureScreenshotUseCase) archiveCapture(ctx context.Context, id string, meta entity.ArtifactMetadata, data []byte) {
	if uc.archive == nil {
		return
	}

	key := buildArchiveKey(meta.SourceURL, meta.CreatedAt, id)
	objectURL, err := uc.archive.PutObject(ctx, key, meta.ContentType, data)
	if err != nil {
		uc.logger.Warn("Failed to archive artifact", "artifact_id", id, "error", err.Error())
		return
	}

	if uc.archiveMeta == nil {
		return
	}

	record := port.ArchiveRecord{
		ArtifactID:  id,
		ObjectKey:   key,
		URL:         objectURL,
		ContentType: meta.ContentType,
		SourceURL:   meta.SourceURL,
		Width:       meta.Width,
		Height:      meta.Height,
		FullPage:    meta.FullPage,
		SizeBytes:   int64(len(data)),
		CapturedAt:  meta.CreatedAt,
		ExpiresAt:   meta.CreatedAt.Add(uc.config.ArtifactTTL),
	}
	if err := uc.archiveMeta.Put(ctx, record); err != nil {
		uc.logger.Warn("Failed to record archive metadata", "artifact_id", id, "error", err.Error())
	}
}

func (uc *CaptureScreenshotUseCase) reportSuccess(id string, meta entity.ArtifactMetadata, sizeBytes int, started time.Time) {
	duration := time.Since(started)

	uc.notify(&dto.CaptureEventDTO{
		Kind:       dto.CaptureEventCompleted,
		ArtifactID: id,
		SourceURL:  meta.SourceURL,
		FullPage:   meta.FullPage,
		SizeBytes:  sizeBytes,
		DurationMS: duration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	})

	uc.publishMetrics([]port.CaptureMetric{
		{Name: "CaptureCount", Value: 1, Unit: "Count", Timestamp: time.Now().UTC()},
		{Name: "CaptureDuration", Value: float64(duration.Milliseconds()), Unit: "Milliseconds", Timestamp: time.Now().UTC()},
		{Name: "ArtifactBytes", Value: float64(sizeBytes), Unit: "Bytes", Timestamp: time.Now().UTC()},
	})
}

func (uc *CaptureScreenshotUseCase) reportFailure(targetURL string, started time.Time, cause error) {
	uc.notify(&dto.CaptureEventDTO{
		Kind:       dto.CaptureEventFailed,
		SourceURL:  targetURL,
		DurationMS: time.Since(started).Milliseconds(),
		Error:      cause.Error(),
		Timestamp:  time.Now().UTC(),
	})

	uc.publishMetrics([]port.CaptureMetric{
		{Name: "CaptureFailures", Value: 1, Unit: "Count", Timestamp: time.Now().UTC()},
	})
}

func (uc *CaptureScreenshotUseCase) notify(event *dto.CaptureEventDTO) {
	if uc.notifier != nil {
		uc.notifier.Broadcast(event)
	}

	if uc.events != nil {
		subject := "captures." + strings.TrimPrefix(event.Kind, "capture_")
		// Publish with its own short deadline so a slow broker cannot hold a
		// finished capture hostage.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := uc.events.PublishEvent(ctx, subject, event); err != nil {
			uc.logger.Warn("Failed to publish capture event", "subject", subject, "error", err.Error())
		}
	}
}

func (uc *CaptureScreenshotUseCase) publishMetrics(metrics []port.CaptureMetric) {
	if uc.metrics == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := uc.metrics.Publish(ctx, metrics); err != nil {
		uc.logger.Warn("Failed to publish capture metrics", "error", err.Error())
	}
}

func validateTargetURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", newValidationError("URL is required")
	}

	parsed, err := url.ParseRequestURI(trimmed)
	if err != nil || parsed.Host == "" {
		return "", newValidationError("Invalid URL: " + trimmed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", newValidationError("Unsupported URL scheme: " + parsed.Scheme)
	}

	return trimmed, nil
}

func buildResourceFilter(includeResources bool, rejectTypes []string) (*service.ResourceFilter, error) {
	if includeResources {
		return service.AllowAllFilter(), nil
	}
	if len(rejectTypes) == 0 {
		return service.DefaultResourceFilter(), nil
	}

	reject := make([]valueobject.ResourceType, 0, len(rejectTypes))
	for _, raw := range rejectTypes {
		rt := valueobject.NormalizeResourceType(raw)
		if rt == "" {
			return nil, newValidationError("Empty resource type in rejectResourceTypes")
		}
		reject = append(reject, rt)
	}
	return service.NewResourceFilter(reject), nil
}

func clampNavigationTimeout(requested time.Duration) time.Duration {
	if requested <= 0 {
		return DefaultNavigationTimeout
	}
	if requested > MaxNavigationTimeout {
		return MaxNavigationTimeout
	}
	return requested
}

func buildArchiveKey(sourceURL string, capturedAt time.Time, id string) string {
	host := "unknown"
	if parsed, err := url.Parse(sourceURL); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	return fmt.Sprintf("captures/%s/%s/%s.jpg", host, capturedAt.Format("2006/01/02"), id)
}
