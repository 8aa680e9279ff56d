package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/entity"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

type GetArtifactResult struct {
	Metadata entity.ArtifactMetadata
	Payload  []byte

	// FreshFor is the Cache-Control window handed to intermediaries: the
	// artifact's remaining lifetime, never the full TTL. An intermediary
	// must not serve the payload past the store's own expiry.
	FreshFor time.Duration
}

// GetArtifactUseCase resolves a retrieval identifier back to metadata and
// binary payload. Possession of the identifier is the entire authorization
// model; an absent or expired pair is simply not found.
type GetArtifactUseCase struct {
	cache  port.ArtifactCache
	ttl    time.Duration
	logger *logger.Logger
}

func NewGetArtifactUseCase(cache port.ArtifactCache, ttl time.Duration, log *logger.Logger) *GetArtifactUseCase {
	if ttl <= 0 {
		ttl = DefaultArtifactTTL
	}
	return &GetArtifactUseCase{cache: cache, ttl: ttl, logger: log}
}

func (uc *GetArtifactUseCase) Execute(ctx context.Context, id string) (*GetArtifactResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, port.ErrArtifactNotFound
	}

	if uc.cache == nil {
		return nil, ErrCacheNotConfigured
	}

	meta, payload, err := uc.cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &GetArtifactResult{
		Metadata: meta,
		Payload:  payload,
		FreshFor: uc.remainingLifetime(meta),
	}, nil
}

func (uc *GetArtifactUseCase) remainingLifetime(meta entity.ArtifactMetadata) time.Duration {
	if meta.CreatedAt.IsZero() {
		return uc.ttl
	}
	remaining := time.Until(meta.CreatedAt.Add(uc.ttl))
	if remaining < 0 {
		return 0
	}
	return remaining
}
