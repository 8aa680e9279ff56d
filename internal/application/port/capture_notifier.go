package port

import "github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/dto"

// CaptureNotifier fans capture lifecycle events out to connected websocket
// clients. Delivery is best-effort: a slow subscriber never blocks a capture.
type CaptureNotifier interface {
	// Broadcast sends the event to all connected clients.
	Broadcast(event *dto.CaptureEventDTO)

	// ClientCount returns the number of connected clients.
	ClientCount() int
}
