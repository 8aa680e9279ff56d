package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

// CaptureEventPublisher implements port.EventPublisher for NATS JetStream.
// Capture lifecycle events are published asynchronously; a slow broker never
// blocks the capture pipeline.
type CaptureEventPublisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	logger *logger.Logger
}

// NewCaptureEventPublisher connects to NATS with reconnect handling and
// obtains a JetStream context.
func NewCaptureEventPublisher(natsURL string, log *logger.Logger) (*CaptureEventPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "error", err.Error())
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to get JetStream context: %w", err)
	}

	log.Info("Connected to NATS", "url", natsURL)

	return &CaptureEventPublisher{nc: nc, js: js, logger: log}, nil
}

// PublishEvent publishes an event to the given subject (fire-and-forget).
func (p *CaptureEventPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.js.PublishAsync(subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("Capture event published", "subject", subject, "size", len(data))
	return nil
}

// Close closes the NATS connection.
func (p *CaptureEventPublisher) Close() error {
	if p.nc != nil {
		p.logger.Info("Closing NATS connection")
		p.nc.Close()
	}
	return nil
}
