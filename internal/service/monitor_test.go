package service

import (
	"context"
	"testing"
	"time"
)

func TestDefaultMonitorConfig(t *testing.T) {
	config := DefaultMonitorConfig()
	if config.ProbeInterval != 15*time.Second {
		t.Errorf("expected ProbeInterval 15s, got %v", config.ProbeInterval)
	}
	if config.ProbeTimeout != 5*time.Second {
		t.Errorf("expected ProbeTimeout 5s, got %v", config.ProbeTimeout)
	}
}

func TestMonitorIsRunning(t *testing.T) {
	remote := newFakeRemote()
	svc := NewReceiptService(remote, newFakeCache(), nil, fixedClock)
	monitor := NewMonitor(remote, svc, DefaultMonitorConfig())

	if monitor.IsRunning() {
		t.Error("monitor should not be running initially")
	}
}

func TestMonitorStartTwice(t *testing.T) {
	remote := newFakeRemote()
	svc := NewReceiptService(remote, newFakeCache(), nil, fixedClock)
	config := DefaultMonitorConfig()
	config.ProbeInterval = 100 * time.Millisecond
	monitor := NewMonitor(remote, svc, config)

	ctx := context.Background()
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("first start failed: %v", err)
	}
	if err := monitor.Start(ctx); err == nil {
		t.Error("second start should fail")
	}
	if err := monitor.Stop(ctx); err != nil {
		t.Errorf("stop failed: %v", err)
	}
	if monitor.IsRunning() {
		t.Error("monitor should not be running after stop")
	}
}

func TestMonitorFlipsServiceOnline(t *testing.T) {
	remote := newFakeRemote()
	svc := NewReceiptService(remote, newFakeCache(), nil, fixedClock)
	config := MonitorConfig{ProbeInterval: 10 * time.Millisecond, ProbeTimeout: time.Second}
	monitor := NewMonitor(remote, svc, config)

	ctx := context.Background()
	if err := monitor.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer monitor.Stop(ctx)

	deadline := time.Now().Add(time.Second)
	for !svc.Online() {
		if time.Now().After(deadline) {
			t.Fatal("service never came online")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
