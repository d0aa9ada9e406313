package otel

import (
	"context"
	"testing"
)

func TestNewMeterDisabled(t *testing.T) {
	m, err := NewMeter(context.Background(), &Config{
		Enabled:      false,
		ServiceName:  "casgen",
		ExporterType: ExporterNone,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Enabled() {
		t.Error("meter should report disabled")
	}

	// Recording on a disabled meter must be safe.
	m.JobStarted()
	m.JobFinished(context.Background(), "COMPLETED", 100, 1.5)

	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestNewMeterNilConfig(t *testing.T) {
	m, err := NewMeter(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Enabled() {
		t.Error("default config should be disabled")
	}
}

func TestNewMeterStdout(t *testing.T) {
	m, err := NewMeter(context.Background(), &Config{
		Enabled:      true,
		ServiceName:  "casgen",
		ExporterType: ExporterStdout,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Enabled() {
		t.Error("stdout meter should report enabled")
	}

	m.JobStarted()
	m.JobFinished(context.Background(), "FAILED", 0, 0.1)
	if err := m.Shutdown(context.Background()); err != nil {
		t.Errorf("shutdown failed: %v", err)
	}
}

func TestNewMeterUnknownExporter(t *testing.T) {
	_, err := NewMeter(context.Background(), &Config{
		Enabled:      true,
		ExporterType: ExporterType("jaeger"),
	})
	if err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestGlobalMeter(t *testing.T) {
	defer SetGlobalMeter(nil)

	if got := GetGlobalMeter(); got == nil {
		t.Fatal("global meter should never be nil")
	}

	m := NoopMeter()
	SetGlobalMeter(m)
	if got := GetGlobalMeter(); got != m {
		t.Error("global meter not returned after set")
	}
}
