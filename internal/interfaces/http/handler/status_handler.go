package handler

import (
	"net/http"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/thapecroth/cloudflare-browser-rendering-mcp/internal/application/port"
	"github.com/thapecroth/cloudflare-browser-rendering-mcp/pkg/logger"
)

// Subsystems reports which optional integrations were wired at startup.
type Subsystems struct {
	Browser bool `json:"browser"`
	Cache   bool `json:"cache"`
	Archive bool `json:"archive"`
	Events  bool `json:"events"`
	Metrics bool `json:"metrics"`
}

type StatusHandler struct {
	subsystems Subsystems
	notifier   port.CaptureNotifier
	startedAt  time.Time
	logger     *logger.Logger
}

type statusResponse struct {
	Status           string     `json:"status"`
	UptimeSeconds    int64      `json:"uptime_seconds"`
	CPUPercent       float64    `json:"cpu_percent"`
	CPUCores         int        `json:"cpu_cores"`
	MemoryUsedBytes  uint64     `json:"memory_used_bytes"`
	MemoryTotalBytes uint64     `json:"memory_total_bytes"`
	MemoryPercent    float64    `json:"memory_percent"`
	WebSocketClients int        `json:"websocket_clients"`
	Subsystems       Subsystems `json:"subsystems"`
}

func NewStatusHandler(subsystems Subsystems, notifier port.CaptureNotifier, log *logger.Logger) *StatusHandler {
	return &StatusHandler{
		subsystems: subsystems,
		notifier:   notifier,
		startedAt:  time.Now(),
		logger:     log,
	}
}

func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Subsystems:    h.subsystems,
	}

	// interval 0 returns utilization since the previous call instead of
	// blocking the request for a sampling window.
	if percentages, err := cpu.PercentWithContext(r.Context(), 0, false); err == nil && len(percentages) > 0 {
		resp.CPUPercent = percentages[0]
	}
	if counts, err := cpu.Counts(true); err == nil {
		resp.CPUCores = counts
	}

	if vmStat, err := mem.VirtualMemoryWithContext(r.Context()); err != nil {
		h.logger.Warn("Failed to read memory stats", "error", err)
	} else {
		resp.MemoryUsedBytes = vmStat.Used
		resp.MemoryTotalBytes = vmStat.Total
		resp.MemoryPercent = vmStat.UsedPercent
	}

	if h.notifier != nil {
		resp.WebSocketClients = h.notifier.ClientCount()
	}

	WriteJSON(w, http.StatusOK, resp)
}
