package monitoring

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemStats is a snapshot of host and process resource usage.
type SystemStats struct {
	UptimeSeconds     int64   `json:"uptimeSeconds"`
	Goroutines        int     `json:"goroutines"`
	MemoryUsedPercent float64 `json:"memoryUsedPercent"`
	ProcessRSSBytes   uint64  `json:"processRssBytes"`
}

// SystemMonitor reports resource usage of the running service.
type SystemMonitor struct {
	startedAt time.Time
	pid       int32
}

// NewSystemMonitor creates a monitor; uptime is measured from this call.
func NewSystemMonitor() *SystemMonitor {
	return &SystemMonitor{startedAt: time.Now(), pid: int32(os.Getpid())}
}

// Stats collects a snapshot. Probes that fail are left at zero.
func (m *SystemMonitor) Stats(ctx context.Context) SystemStats {
	stats := SystemStats{
		UptimeSeconds: int64(time.Since(m.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to read host memory stats")
	} else {
		stats.MemoryUsedPercent = vm.UsedPercent
	}

	proc, err := process.NewProcessWithContext(ctx, m.pid)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to inspect own process")
		return stats
	}
	if info, err := proc.MemoryInfoWithContext(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to read process memory stats")
	} else {
		stats.ProcessRSSBytes = info.RSS
	}
	return stats
}
