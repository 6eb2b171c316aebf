package observer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	maitre "github.com/platewise/maitre"
)

// Recording helpers over the pipeline instruments. All methods are safe on
// a nil receiver so callers can record unconditionally regardless of whether
// observability is enabled.

// RecordStructureRun records one structuring run: the run counter, the chunk
// and relationship counters, and the run duration in milliseconds.
func (in *Instruments) RecordStructureRun(ctx context.Context, result maitre.StructuredResult, mode string, durationMS float64) {
	if in == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("structure.mode", mode),
		AttrRecordName.String(resultSource(result)),
	)
	in.StructureRuns.Add(ctx, 1, attrs)
	in.ChunksProduced.Add(ctx, int64(len(result.Chunks)), attrs)
	in.Relationships.Add(ctx, int64(len(result.Relationships)), attrs)
	in.StructureDuration.Record(ctx, durationMS, attrs)
}

// RecordExport records one export request with its payload size and duration.
// A sizeBytes of 0 means the size is unknown and no size sample is recorded.
func (in *Instruments) RecordExport(ctx context.Context, format, profile string, sizeBytes int, durationMS float64) {
	if in == nil {
		return
	}
	attrs := metric.WithAttributes(
		AttrExportFormat.String(format),
		AttrExportProfile.String(profile),
	)
	in.Exports.Add(ctx, 1, attrs)
	if sizeBytes > 0 {
		in.ExportSize.Record(ctx, int64(sizeBytes), attrs)
	}
	in.ExportDuration.Record(ctx, durationMS, attrs)
}

// RecordExtraction records one content extraction request.
func (in *Instruments) RecordExtraction(ctx context.Context, contentType, method string) {
	if in == nil {
		return
	}
	in.Extractions.Add(ctx, 1, metric.WithAttributes(
		AttrExtractType.String(contentType),
		AttrExtractMethod.String(method),
	))
}

func resultSource(result maitre.StructuredResult) string {
	if s, ok := result.Metadata["source"].(string); ok {
		return s
	}
	return "unknown"
}
