package port

import (
	"context"
	"time"
)

// CaptureMetric is one observability datapoint emitted by the capture
// pipeline (capture count, duration, artifact size).
type CaptureMetric struct {
	Name       string
	Value      float64
	Unit       string
	Timestamp  time.Time
	Dimensions map[string]string
}

// MetricsPublisher ships capture metrics to an external observability
// platform. Implementations may buffer; Flush must be called during graceful
// shutdown to avoid losing the tail of the buffer.
type MetricsPublisher interface {
	Publish(ctx context.Context, metrics []CaptureMetric) error
	Flush(ctx context.Context) error
	Close() error
}
