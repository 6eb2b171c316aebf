// Package observer provides OTEL-based observability for maitre structuring
// and export operations.
//
// It configures trace, metric, and log providers with OTLP HTTP exporters and
// exposes instruments for the pipeline stages. Users export to any
// OTEL-compatible backend by setting standard OTEL env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/platewise/maitre/observer"

// Instruments holds all OTEL instruments used by the structuring pipeline.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	StructureRuns  metric.Int64Counter
	ChunksProduced metric.Int64Counter
	Relationships  metric.Int64Counter
	Exports        metric.Int64Counter
	Extractions    metric.Int64Counter

	// Histograms
	StructureDuration metric.Float64Histogram
	ExportDuration    metric.Float64Histogram
	ExportSize        metric.Int64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("maitre")),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	// Trace provider
	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	// Metric provider
	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	// Log provider
	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := newInstruments()
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

func newInstruments() (*Instruments, error) {
	tracer := otel.Tracer(scopeName)
	meter := otel.Meter(scopeName)
	logger := global.GetLoggerProvider().Logger(scopeName)

	structureRuns, err := meter.Int64Counter("structure.runs",
		metric.WithDescription("Structuring run count"),
		metric.WithUnit("{run}"))
	if err != nil {
		return nil, err
	}

	chunksProduced, err := meter.Int64Counter("structure.chunks",
		metric.WithDescription("Chunks produced"),
		metric.WithUnit("{chunk}"))
	if err != nil {
		return nil, err
	}

	relationships, err := meter.Int64Counter("structure.relationships",
		metric.WithDescription("Relationships produced"),
		metric.WithUnit("{relationship}"))
	if err != nil {
		return nil, err
	}

	exports, err := meter.Int64Counter("export.requests",
		metric.WithDescription("Export request count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	extractions, err := meter.Int64Counter("extract.requests",
		metric.WithDescription("Content extraction count"),
		metric.WithUnit("{request}"))
	if err != nil {
		return nil, err
	}

	structureDuration, err := meter.Float64Histogram("structure.duration",
		metric.WithDescription("Structuring run duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	exportDuration, err := meter.Float64Histogram("export.duration",
		metric.WithDescription("Export duration"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}

	exportSize, err := meter.Int64Histogram("export.size",
		metric.WithDescription("Exported payload size"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}

	return &Instruments{
		Tracer:            tracer,
		Meter:             meter,
		Logger:            logger,
		StructureRuns:     structureRuns,
		ChunksProduced:    chunksProduced,
		Relationships:     relationships,
		Exports:           exports,
		Extractions:       extractions,
		StructureDuration: structureDuration,
		ExportDuration:    exportDuration,
		ExportSize:        exportSize,
	}, nil
}
