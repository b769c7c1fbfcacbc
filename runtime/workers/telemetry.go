package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/process"

	"chat-core/contract"
)

// TelemetryWorker logs self process stats (RSS, CPU, goroutines) on a fixed
// interval. Lightweight operational visibility only; it carries no domain
// state and may be restarted freely by the supervisor.
type TelemetryWorker struct {
	log      *slog.Logger
	interval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, interval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{log: log, interval: interval}
}

var _ contract.Worker = (*TelemetryWorker)(nil)

func (w *TelemetryWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			memInfo, err := p.MemoryInfo()
			if err != nil {
				w.log.Warn("self stats unavailable", "error", err)
				continue
			}
			cpuPercent, err := p.CPUPercent()
			if err != nil {
				w.log.Warn("self stats unavailable", "error", err)
				continue
			}
			w.log.Info("process stats",
				"rss_mb", memInfo.RSS/1024/1024,
				"cpu_percent", cpuPercent,
				"goroutines", runtime.NumGoroutine())
		}
	}
}
