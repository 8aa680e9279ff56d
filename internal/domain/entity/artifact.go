package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArtifactMetadata describes one captured screenshot. It is written to the
// cache once, alongside the encoded payload, and never updated.
type ArtifactMetadata struct {
	ContentType string    `json:"contentType"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	FullPage    bool      `json:"fullPage"`
	Format      string    `json:"format"`
	CreatedAt   time.Time `json:"createdAt"`
	SourceURL   string    `json:"url"`
}

// NewArtifactID generates a cache identifier for a fresh artifact. The
// millisecond timestamp keeps ids roughly sortable; the random suffix makes
// concurrent generation collision-free. Identifiers are never reused.
func NewArtifactID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}
