package dto

import "time"

// Capture lifecycle event kinds broadcast to websocket subscribers and
// published to the message broker.
const (
	CaptureEventStarted   = "capture_started"
	CaptureEventCompleted = "capture_completed"
	CaptureEventFailed    = "capture_failed"
)

// CaptureEventDTO describes one transition of a capture request, shaped for
// transport. ArtifactID and SizeBytes are set only on completion; Error only
// on failure.
type CaptureEventDTO struct {
	Kind       string    `json:"kind"`
	ArtifactID string    `json:"artifactId,omitempty"`
	SourceURL  string    `json:"url"`
	FullPage   bool      `json:"fullPage,omitempty"`
	SizeBytes  int       `json:"sizeBytes,omitempty"`
	DurationMS int64     `json:"durationMs,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
