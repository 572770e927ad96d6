package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// MonitorConfig holds configuration for the connectivity monitor.
type MonitorConfig struct {
	// ProbeInterval is how often to probe the remote store (default: 15s).
	ProbeInterval time.Duration

	// ProbeTimeout bounds a single probe (default: 5s).
	ProbeTimeout time.Duration
}

// DefaultMonitorConfig returns sensible defaults.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		ProbeInterval: 15 * time.Second,
		ProbeTimeout:  5 * time.Second,
	}
}

// Monitor probes the remote store and edge-triggers the service's
// connectivity flag. The service itself never polls; it only reacts to the
// transitions this monitor reports.
type Monitor struct {
	remote  RemoteStore
	service *ReceiptService
	config  MonitorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewMonitor(remote RemoteStore, svc *ReceiptService, config MonitorConfig) *Monitor {
	return &Monitor{
		remote:  remote,
		service: svc,
		config:  config,
	}
}

// Start begins probing. Returns an error if already running.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("connectivity monitor is already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.mu.Unlock()

	go m.runLoop(ctx)

	slog.InfoContext(ctx, "Connectivity monitor started",
		"probe_interval", m.config.ProbeInterval)
	return nil
}

// Stop gracefully stops the monitor and waits for completion.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	close(m.stopCh)

	select {
	case <-m.doneCh:
		slog.InfoContext(ctx, "Connectivity monitor stopped")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Connectivity monitor stop timed out")
		return ctx.Err()
	}

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
	return nil
}

// IsRunning returns whether the monitor is currently running.
func (m *Monitor) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) runLoop(ctx context.Context) {
	defer close(m.doneCh)

	ticker := time.NewTicker(m.config.ProbeInterval)
	defer ticker.Stop()

	// Probe immediately on startup.
	m.probe(ctx)

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.config.ProbeTimeout)
	defer cancel()

	err := m.remote.Ping(probeCtx)
	if err != nil {
		slog.DebugContext(ctx, "Remote probe failed", "error", err)
	}
	m.service.SetOnline(ctx, err == nil)
}
