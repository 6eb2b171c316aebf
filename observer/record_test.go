package observer

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	maitre "github.com/platewise/maitre"
)

func TestNilInstrumentsRecordSafely(t *testing.T) {
	var in *Instruments
	ctx := context.Background()
	in.RecordStructureRun(ctx, maitre.StructuredResult{}, "rag", 1)
	in.RecordExport(ctx, "json", "", 10, 1)
	in.RecordExtraction(ctx, "text/html", "record")
}

func TestRecordPipelineMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	in, err := newInstruments()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	result := maitre.StructuredResult{
		Chunks:        []maitre.Chunk{{ID: "name"}, {ID: "cuisine"}},
		Relationships: []maitre.Relationship{{From: "a", To: "b"}},
		Metadata:      map[string]any{"source": "Luigi's Trattoria"},
	}
	in.RecordStructureRun(ctx, result, "rag", 12.5)
	in.RecordExport(ctx, "json", "chatbot", 128, 3.0)
	in.RecordExtraction(ctx, "text/html", "record")

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}

	byName := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			byName[m.Name] = m
		}
	}

	for _, name := range []string{
		"structure.runs", "structure.chunks", "structure.relationships",
		"export.requests", "extract.requests",
		"structure.duration", "export.duration", "export.size",
	} {
		if _, ok := byName[name]; !ok {
			t.Errorf("metric %s was not recorded", name)
		}
	}

	if m, ok := byName["structure.chunks"]; ok {
		sum, ok := m.Data.(metricdata.Sum[int64])
		if !ok || len(sum.DataPoints) == 0 {
			t.Fatalf("structure.chunks has no data points")
		}
		if sum.DataPoints[0].Value != 2 {
			t.Errorf("structure.chunks = %d, expected 2", sum.DataPoints[0].Value)
		}
	}
}

func TestRecordExportSkipsUnknownSize(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(mp)
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	in, err := newInstruments()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	in.RecordExport(ctx, "json", "", 0, 1.0)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == "export.size" {
				t.Error("export.size should not record a sample for unknown size")
			}
		}
	}
}
