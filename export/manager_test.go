package export

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	maitre "github.com/platewise/maitre"
)

type captureTracer struct {
	names []string
	attrs [][]maitre.SpanAttr
	errs  []error
	ended int
}

func (t *captureTracer) Start(ctx context.Context, name string, attrs ...maitre.SpanAttr) (context.Context, maitre.Span) {
	t.names = append(t.names, name)
	t.attrs = append(t.attrs, attrs)
	return ctx, &captureSpan{tracer: t}
}

type captureSpan struct {
	tracer *captureTracer
}

func (s *captureSpan) SetAttr(attrs ...maitre.SpanAttr) {
	s.tracer.attrs = append(s.tracer.attrs, attrs)
}
func (s *captureSpan) Event(string, ...maitre.SpanAttr) {}
func (s *captureSpan) Error(err error)                  { s.tracer.errs = append(s.tracer.errs, err) }
func (s *captureSpan) End()                             { s.tracer.ended++ }

func sampleData() map[string]any {
	return map[string]any{
		"chunks": []any{
			map[string]any{
				"id":      "parking",
				"content": "Street parking only",
				"type":    "text",
				"metadata": map[string]any{
					"importance_weight": 0.3,
				},
			},
			map[string]any{
				"id":      "name",
				"content": "Luigi's Trattoria",
				"type":    "text",
				"metadata": map[string]any{
					"importance_weight": 1.0,
				},
			},
		},
		"relationships": []any{
			map[string]any{"from": "restaurant_info", "to": "menu_items", "type": "has_menu"},
		},
		"metadata": map[string]any{"source": "Luigi's Trattoria"},
	}
}

func TestExportJSON(t *testing.T) {
	m := NewManager()
	out, err := m.Export(sampleData(), "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	meta, _ := decoded["metadata"].(map[string]any)
	if meta["export_format"] != "json" {
		t.Errorf("unexpected export_format %v", meta["export_format"])
	}
	if meta["export_version"] != ExportVersion {
		t.Errorf("unexpected export_version %v", meta["export_version"])
	}
	if meta["chunk_count"] != 2.0 {
		t.Errorf("unexpected chunk_count %v", meta["chunk_count"])
	}
	if meta["relationship_count"] != 1.0 {
		t.Errorf("unexpected relationship_count %v", meta["relationship_count"])
	}
	if decoded["version"] != ExportVersion {
		t.Errorf("unexpected top-level version %v", decoded["version"])
	}
}

func TestExportDoesNotMutateInput(t *testing.T) {
	m := NewManager()
	data := sampleData()
	if _, err := m.Export(data, "json", WithProfile("search")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	meta := data["metadata"].(map[string]any)
	if _, ok := meta["export_format"]; ok {
		t.Error("input metadata gained export fields")
	}
	chunk := data["chunks"].([]any)[0].(map[string]any)
	chunkMeta := chunk["metadata"].(map[string]any)
	if _, ok := chunkMeta["search_optimized"]; ok {
		t.Error("input chunk metadata mutated by profile")
	}
}

func TestExportStartsSpan(t *testing.T) {
	tr := &captureTracer{}
	m := NewManager(WithExportTracer(tr))

	if _, err := m.Export(sampleData(), "json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tr.names) != 1 || tr.names[0] != "export.run" {
		t.Fatalf("expected one export.run span, got %v", tr.names)
	}
	if tr.ended != 1 {
		t.Errorf("span ended %d times, expected 1", tr.ended)
	}

	if _, err := m.Export(sampleData(), "protobuf"); err == nil {
		t.Fatal("expected a format error")
	}
	if len(tr.errs) == 0 {
		t.Error("format error should be recorded on the span")
	}
	if tr.ended != 2 {
		t.Errorf("span ended %d times, expected 2", tr.ended)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	m := NewManager()
	_, err := m.Export(sampleData(), "protobuf")
	var fe *maitre.ErrFormat
	if !errors.As(err, &fe) {
		t.Fatalf("expected format error, got %v", err)
	}
	if fe.Format != "protobuf" {
		t.Errorf("unexpected format %q", fe.Format)
	}
}

func TestExportCustomSerializer(t *testing.T) {
	m := NewManager()
	out, err := m.Export(sampleData(), "custom", WithSerializer(func(data map[string]any) ([]byte, error) {
		return []byte("serialized"), nil
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "serialized" {
		t.Errorf("custom serializer not used: %q", out)
	}
}

func TestValidateExportData(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		ok   bool
	}{
		{"nil data", nil, false},
		{"missing chunks", map[string]any{}, false},
		{"chunks not a list", map[string]any{"chunks": "nope"}, false},
		{"chunk not a map", map[string]any{"chunks": []any{"nope"}}, false},
		{"chunk missing id", map[string]any{"chunks": []any{map[string]any{"content": "x"}}}, false},
		{"chunk missing content", map[string]any{"chunks": []any{map[string]any{"id": "x"}}}, false},
		{"valid", map[string]any{"chunks": []any{map[string]any{"id": "x", "content": "y"}}}, true},
		{"empty chunk list", map[string]any{"chunks": []any{}}, true},
	}
	for _, tt := range tests {
		err := ValidateExportData(tt.data)
		if tt.ok && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.ok {
			var ve *maitre.ErrValidation
			if !errors.As(err, &ve) {
				t.Errorf("%s: expected validation error, got %v", tt.name, err)
			}
		}
	}
}

func TestChatbotProfileSortsByImportance(t *testing.T) {
	m := NewManager()
	data := sampleData()
	out, err := m.Export(data, "json", WithProfile("chatbot"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(out, &decoded)

	chunks := decoded["chunks"].([]any)
	first := chunks[0].(map[string]any)
	if first["id"] != "name" {
		t.Errorf("highest importance chunk should come first, got %v", first["id"])
	}
	second := chunks[1].(map[string]any)
	if second["id"] != "parking" {
		t.Errorf("lowest importance chunk should come last, got %v", second["id"])
	}
	if data["chunks"].([]any)[0].(map[string]any)["id"] != "parking" {
		t.Error("profile sort must not reorder the caller's chunk list")
	}
	meta := decoded["metadata"].(map[string]any)
	if meta["profile"] != "chatbot" {
		t.Errorf("unexpected profile %v", meta["profile"])
	}
	if meta["profile_config"] == nil {
		t.Error("missing profile_config")
	}
}

func TestSearchProfileFlagsChunks(t *testing.T) {
	m := NewManager()
	out, err := m.Export(sampleData(), "json", WithProfile("search"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(out, &decoded)

	for _, rc := range decoded["chunks"].([]any) {
		c := rc.(map[string]any)
		meta := c["metadata"].(map[string]any)
		if meta["search_optimized"] != true {
			t.Errorf("chunk %v missing search_optimized", c["id"])
		}
	}
}

func TestAnalyticsProfileAddsCounts(t *testing.T) {
	m := NewManager()
	out, err := m.Export(sampleData(), "json", WithProfile("analytics"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(out, &decoded)

	meta := decoded["metadata"].(map[string]any)
	analytics, ok := meta["export_analytics"].(map[string]any)
	if !ok {
		t.Fatal("missing export_analytics")
	}
	if analytics["chunk_count"] != 2.0 {
		t.Errorf("unexpected chunk_count %v", analytics["chunk_count"])
	}
	types, _ := analytics["chunk_types"].(map[string]any)
	if types["text"] != 2.0 {
		t.Errorf("unexpected chunk_types %v", types)
	}
}

func TestUnknownProfilePassesThrough(t *testing.T) {
	m := NewManager()
	out, err := m.Export(sampleData(), "json", WithProfile("bogus"))
	if err != nil {
		t.Fatalf("unknown profile should not fail: %v", err)
	}
	var decoded map[string]any
	json.Unmarshal(out, &decoded)
	meta := decoded["metadata"].(map[string]any)
	if meta["profile"] != nil {
		t.Errorf("unknown profile should not stamp metadata, got %v", meta["profile"])
	}
}

func TestExportJSONL(t *testing.T) {
	m := NewManager()
	out, err := m.Export(sampleData(), "jsonl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	// 2 chunk lines, 1 metadata line, 1 relationship line
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}

	var chunk map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &chunk); err != nil {
		t.Fatalf("chunk line invalid: %v", err)
	}
	if chunk["id"] != "parking" {
		t.Errorf("jsonl should preserve input chunk order, got %v first", chunk["id"])
	}

	var tagged map[string]any
	json.Unmarshal([]byte(lines[2]), &tagged)
	if tagged["type"] != "metadata" {
		t.Errorf("expected metadata line, got %v", tagged["type"])
	}
	json.Unmarshal([]byte(lines[3]), &tagged)
	if tagged["type"] != "relationship" {
		t.Errorf("expected relationship line, got %v", tagged["type"])
	}
}

func TestExportJSONLWithoutMetadata(t *testing.T) {
	m := NewManager(WithIncludeMetadata(false))
	out, err := m.Export(sampleData(), "jsonl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 2 {
		t.Errorf("expected chunk lines only, got %d lines", len(lines))
	}
}

func TestExportCSVHeader(t *testing.T) {
	m := NewManager()
	out, err := m.Export(sampleData(), "csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	header := lines[0]
	if !strings.HasPrefix(header, "id,content,type") {
		t.Errorf("well-known columns should lead: %s", header)
	}
	if !strings.Contains(header, "metadata_importance_weight") {
		t.Errorf("metadata columns missing: %s", header)
	}
}

func TestParquetRoundTrip(t *testing.T) {
	m := NewManager()
	out, err := m.Export(sampleData(), "parquet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("PAR1")) || !bytes.HasSuffix(out, []byte("PAR1")) {
		t.Error("missing PAR1 framing")
	}

	decoded, err := DecodeParquet(out)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(decoded["chunks"].([]any)) != 2 {
		t.Error("chunks lost in round trip")
	}
}

func TestDecodeParquetRejectsGarbage(t *testing.T) {
	for _, raw := range [][]byte{nil, []byte("PAR1"), []byte("not parquet at all")} {
		if _, err := DecodeParquet(raw); err == nil {
			t.Errorf("garbage %q should fail", raw)
		}
	}
}

func TestCompressGzip(t *testing.T) {
	m := NewManager()
	compressed, err := m.Compress([]byte("hello hello hello"), "gzip")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		t.Fatalf("not valid gzip: %v", err)
	}
	decompressed, _ := io.ReadAll(zr)
	if string(decompressed) != "hello hello hello" {
		t.Errorf("round trip failed: %q", decompressed)
	}

	if _, err := m.Compress([]byte("x"), "zstd"); err == nil {
		t.Error("unsupported algorithm should fail")
	}
}

func TestSaveToFile(t *testing.T) {
	m := NewManager()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.json")

	finalPath, err := m.SaveToFile(sampleData(), path, "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if finalPath != path {
		t.Errorf("unexpected path %s", finalPath)
	}
	raw, err := os.ReadFile(finalPath)
	if err != nil {
		t.Fatalf("file not written: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Errorf("written file is not JSON: %v", err)
	}
}

func TestSaveToFileGzip(t *testing.T) {
	m := NewManager(WithCompression("gzip"))
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")

	finalPath, err := m.SaveToFile(sampleData(), path, "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(finalPath, ".gzip") {
		t.Errorf("expected .gzip suffix, got %s", finalPath)
	}
	raw, _ := os.ReadFile(finalPath)
	if _, err := gzip.NewReader(bytes.NewReader(raw)); err != nil {
		t.Errorf("file is not gzip: %v", err)
	}
}

func TestFromResult(t *testing.T) {
	res := maitre.StructuredResult{
		Chunks: []maitre.Chunk{{ID: "name", Content: "Luigi's", Type: maitre.ChunkText}},
		Metadata: map[string]any{
			"source": "Luigi's",
		},
		Relationships: []maitre.Relationship{
			{From: "a", To: "b", Type: maitre.RelContains, Confidence: 0.8},
		},
	}
	data := FromResult(res)
	if err := ValidateExportData(data); err != nil {
		t.Fatalf("converted result should validate: %v", err)
	}
	chunks := data["chunks"].([]any)
	if chunks[0].(map[string]any)["id"] != "name" {
		t.Error("chunk id lost in conversion")
	}
}

func TestExportStream(t *testing.T) {
	var lines []string
	for line := range NewManager().ExportStream(sampleData()) {
		lines = append(lines, line)
	}
	// 2 chunks + 1 metadata + 1 relationship
	if len(lines) != 4 {
		t.Fatalf("expected 4 stream lines, got %d", len(lines))
	}
	for _, line := range lines {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Errorf("stream line invalid JSON: %v", err)
		}
	}
}

func TestExportStreamEarlyStop(t *testing.T) {
	count := 0
	for range NewManager().ExportStream(sampleData()) {
		count++
		if count == 1 {
			break
		}
	}
	if count != 1 {
		t.Errorf("early break should stop iteration, got %d", count)
	}
}
