package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/oddsmith/picks-engine/internal/config"
)

// Monitor periodically samples process health and logs it. It exists so
// a quota-starved or leaking deployment shows up in the logs before it
// shows up as missing picks.
type Monitor struct {
	interval time.Duration
	logger   *logrus.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// New creates a monitor from config.
func New(cfg config.MonitorConfig, logger *logrus.Logger) *Monitor {
	return &Monitor{
		interval: cfg.Interval,
		logger:   logger,
	}
}

// Start launches the sampling loop. No-op when the interval is zero.
func (m *Monitor) Start(ctx context.Context) {
	if m.interval <= 0 {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.loop(ctx)
}

// Stop halts the sampling loop and waits for it to exit.
func (m *Monitor) Stop() {
	m.once.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()
	})
}

func (m *Monitor) loop(ctx context.Context) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sample(ctx)
		}
	}
}

func (m *Monitor) sample(ctx context.Context) {
	fields := logrus.Fields{
		"goroutines": runtime.NumGoroutine(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	fields["heap_alloc_mb"] = ms.HeapAlloc / 1024 / 1024

	if cpuPercent, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(cpuPercent) > 0 {
		fields["cpu_percent"] = cpuPercent[0]
	}
	if memInfo, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		fields["mem_used_percent"] = memInfo.UsedPercent
	}

	m.logger.WithFields(fields).Info("Resource sample")

	if runtime.NumGoroutine() > 1000 {
		m.logger.WithField("goroutines", runtime.NumGoroutine()).Warn("Goroutine count unusually high")
	}
}
