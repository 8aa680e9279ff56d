package port

import (
	"context"
	"time"
)

// ArchiveRecord describes one archived capture.
type ArchiveRecord struct {
	ArtifactID  string
	ObjectKey   string
	URL         string
	ContentType string
	SourceURL   string
	Width       int
	Height      int
	FullPage    bool
	SizeBytes   int64
	CapturedAt  time.Time
	ExpiresAt   time.Time
}

// ArchiveMetadataRepository persists archive records so archived captures
// remain discoverable after the cache records expire.
type ArchiveMetadataRepository interface {
	Put(ctx context.Context, record ArchiveRecord) error
}
