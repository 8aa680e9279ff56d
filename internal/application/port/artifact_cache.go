package port

import (
	"context"
	"errors"
	"time"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/domain/entity"
)

var (
	// ErrArtifactNotFound is returned when the metadata record for an
	// identifier is absent or already expired.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrArtifactDataNotFound is returned when metadata resolved but the
	// payload record is missing. The store expires the two records
	// independently, so a narrow window of partial visibility is possible;
	// the pair is treated as a unit only at read time.
	ErrArtifactDataNotFound = errors.New("artifact data not found")
)

// ArtifactCache stores captured artifacts as two co-expiring records per
// identifier: metadata and encoded payload. Records are written once, read
// until expiry and removed solely by the store's own TTL mechanism. The
// cache issues no sweeps and no deletes.
type ArtifactCache interface {
	// Put writes both records with the same TTL. It fails only when the
	// underlying store is unavailable, which is fatal for the capture.
	Put(ctx context.Context, id string, meta entity.ArtifactMetadata, payload []byte, ttl time.Duration) error

	// Get returns the metadata and decoded payload for an identifier, or
	// ErrArtifactNotFound / ErrArtifactDataNotFound. No partial result is
	// ever synthesized.
	Get(ctx context.Context, id string) (entity.ArtifactMetadata, []byte, error)

	// Close releases the store connection.
	Close() error
}
