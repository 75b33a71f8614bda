package services

import (
	"context"
	"testing"
	"time"
)

func TestDefaultResyncProcessorConfig(t *testing.T) {
	config := DefaultResyncProcessorConfig()

	if config.PollInterval != 30*time.Second {
		t.Errorf("expected PollInterval 30s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
}

func TestResyncProcessor_IsRunning(t *testing.T) {
	processor := NewResyncProcessor(nil, DefaultResyncProcessorConfig())

	if processor.IsRunning() {
		t.Error("processor should not be running initially")
	}
}

func TestResyncProcessor_StartTwice(t *testing.T) {
	config := DefaultResyncProcessorConfig()
	config.PollInterval = 100 * time.Millisecond
	processor := NewResyncProcessor(nil, config)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	processor.mu.Lock()
	processor.running = true
	processor.mu.Unlock()

	err := processor.Start(ctx)
	if err == nil {
		t.Error("expected error when starting already running processor")
	}
}

func TestResyncProcessor_StopNotRunning(t *testing.T) {
	processor := NewResyncProcessor(nil, DefaultResyncProcessorConfig())

	err := processor.Stop(context.Background())
	if err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}
