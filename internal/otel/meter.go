package otel

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Meter wraps OpenTelemetry metrics with casgen-specific instruments.
// It complements the Prometheus registry: Prometheus serves the scrape
// endpoint, the OTel meter ships to a collector when one is configured.
type Meter struct {
	config        *Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	shutdown      func(context.Context) error
	mu            sync.RWMutex

	activeJobs  atomic.Int64
	activeGauge metric.Int64ObservableGauge
	activeReg   metric.Registration

	jobsFinished      metric.Int64Counter
	patientsGenerated metric.Int64Counter
	jobDuration       metric.Float64Histogram
}

var (
	globalMeter   *Meter
	globalMeterMu sync.RWMutex
)

// NewMeter creates a Meter with the given configuration. The same
// Config drives tracer and meter so both ship to the same collector.
func NewMeter(ctx context.Context, cfg *Config) (*Meter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	m := &Meter{config: cfg}

	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		m.meterProvider = sdkmetric.NewMeterProvider()
		m.meter = m.meterProvider.Meter(cfg.ServiceName)
		m.shutdown = func(context.Context) error { return nil }
		return m, nil
	}

	exporter, err := createMetricExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric resource: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	m.meterProvider = mp
	m.meter = mp.Meter(cfg.ServiceName)
	m.shutdown = mp.Shutdown

	if err := m.registerInstruments(); err != nil {
		return nil, err
	}
	return m, nil
}

func createMetricExporter(ctx context.Context, cfg *Config) (sdkmetric.Exporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		return stdoutmetric.New()

	case ExporterOTLPGRPC:
		opts := []otlpmetricgrpc.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)

	case ExporterOTLPHTTP:
		opts := []otlpmetrichttp.Option{}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unknown exporter type: %s", cfg.ExporterType)
	}
}

func (m *Meter) registerInstruments() error {
	var err error

	m.jobsFinished, err = m.meter.Int64Counter(
		"casgen.jobs.finished",
		metric.WithDescription("Generation jobs reaching a terminal state, by status"),
	)
	if err != nil {
		return fmt.Errorf("failed to create jobs counter: %w", err)
	}

	m.patientsGenerated, err = m.meter.Int64Counter(
		"casgen.patients.generated",
		metric.WithDescription("Patient records serialized across all jobs"),
	)
	if err != nil {
		return fmt.Errorf("failed to create patients counter: %w", err)
	}

	m.jobDuration, err = m.meter.Float64Histogram(
		"casgen.job.duration",
		metric.WithDescription("Wall-clock duration of generation jobs"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("failed to create duration histogram: %w", err)
	}

	m.activeGauge, err = m.meter.Int64ObservableGauge(
		"casgen.jobs.active",
		metric.WithDescription("Jobs currently in the RUNNING state"),
	)
	if err != nil {
		return fmt.Errorf("failed to create active jobs gauge: %w", err)
	}

	m.activeReg, err = m.meter.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(m.activeGauge, m.activeJobs.Load())
			return nil
		},
		m.activeGauge,
	)
	if err != nil {
		return fmt.Errorf("failed to register active jobs callback: %w", err)
	}
	return nil
}

// JobStarted marks a job entering the RUNNING state.
func (m *Meter) JobStarted() {
	m.activeJobs.Add(1)
}

// JobFinished records a terminal job with its final status, patient
// count, and duration in seconds.
func (m *Meter) JobFinished(ctx context.Context, status string, patients int, seconds float64) {
	m.activeJobs.Add(-1)
	if m.jobsFinished == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.jobsFinished.Add(ctx, 1, attrs)
	m.patientsGenerated.Add(ctx, int64(patients), attrs)
	m.jobDuration.Record(ctx, seconds, attrs)
}

// Shutdown flushes pending metrics.
func (m *Meter) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeReg != nil {
		if err := m.activeReg.Unregister(); err != nil {
			return fmt.Errorf("failed to unregister active jobs callback: %w", err)
		}
	}
	if m.shutdown != nil {
		return m.shutdown(ctx)
	}
	return nil
}

// Enabled returns whether metric export is enabled.
func (m *Meter) Enabled() bool {
	return m.config.Enabled && m.config.ExporterType != ExporterNone
}

// SetGlobalMeter sets the global meter instance.
func SetGlobalMeter(m *Meter) {
	globalMeterMu.Lock()
	defer globalMeterMu.Unlock()
	globalMeter = m
	if m != nil && m.Enabled() {
		otel.SetMeterProvider(m.meterProvider)
	}
}

// GetGlobalMeter returns the global meter, or a no-op meter when none
// has been set.
func GetGlobalMeter() *Meter {
	globalMeterMu.RLock()
	defer globalMeterMu.RUnlock()
	if globalMeter == nil {
		return NoopMeter()
	}
	return globalMeter
}

// NoopMeter returns a meter that does nothing.
func NoopMeter() *Meter {
	cfg := DefaultConfig()
	mp := sdkmetric.NewMeterProvider()
	return &Meter{
		config:        cfg,
		meterProvider: mp,
		meter:         mp.Meter(cfg.ServiceName),
		shutdown:      func(context.Context) error { return nil },
	}
}
