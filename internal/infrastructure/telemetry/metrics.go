// Package telemetry exports importer metrics over OTLP.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/importer/internal/infrastructure/config"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const (
	meterName             = "github.com/erp/importer/import"
	defaultServiceName    = "erp-importer"
	defaultExportInterval = 15 * time.Second
	flushTimeout          = 10 * time.Second
)

// Pipeline owns the meter provider of one importer process. When metrics
// are disabled it hands out a no-op meter.
type Pipeline struct {
	provider *sdkmetric.MeterProvider
	log      *zap.Logger
}

// Option configures Start
type Option func(*options)

type options struct {
	reader sdkmetric.Reader
}

// WithReader replaces the OTLP exporter, e.g. with a manual reader in tests
func WithReader(r sdkmetric.Reader) Option {
	return func(o *options) { o.reader = r }
}

// Start builds the metric pipeline described by cfg
func Start(ctx context.Context, cfg config.TelemetryConfig, log *zap.Logger, opts ...Option) (*Pipeline, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	p := &Pipeline{log: log.Named("telemetry")}

	if !cfg.Enabled && o.reader == nil {
		p.log.Debug("Metrics export disabled")
		return p, nil
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = defaultExportInterval
	}
	reader := o.reader
	if reader == nil {
		exporter, err := newExporter(ctx, cfg)
		if err != nil {
			return nil, err
		}
		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	}

	name := cfg.ServiceName
	if name == "" {
		name = defaultServiceName
	}
	res, err := resource.Merge(resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(name)))
	if err != nil {
		return nil, fmt.Errorf("failed to build metrics resource: %w", err)
	}

	p.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	p.log.Info("Metrics export enabled",
		zap.String("collector", cfg.CollectorEndpoint),
		zap.String("service", name),
		zap.Duration("interval", interval))
	return p, nil
}

func newExporter(ctx context.Context, cfg config.TelemetryConfig) (sdkmetric.Exporter, error) {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	return exporter, nil
}

// Enabled reports whether recorded values leave the process
func (p *Pipeline) Enabled() bool {
	return p.provider != nil
}

// Meter returns the importer meter
func (p *Pipeline) Meter() metric.Meter {
	if p.provider == nil {
		return noop.NewMeterProvider().Meter(meterName)
	}
	return p.provider.Meter(meterName)
}

// Flush pushes pending values and stops the provider. A run exits right
// after importing, so it must be called before the process ends.
func (p *Pipeline) Flush(ctx context.Context) error {
	if p.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	if err := p.provider.Shutdown(ctx); err != nil {
		p.log.Error("Failed to flush metrics", zap.Error(err))
		return fmt.Errorf("failed to flush metrics: %w", err)
	}
	return nil
}
