package port

import "context"

// ArtifactArchive is the optional long-term home for captured artifacts.
// The cache stays the source of truth for retrieval links; the archive only
// preserves captures past their cache TTL. PutObject uploads the object and
// returns a URL for reading it back.
type ArtifactArchive interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) (string, error)
}
