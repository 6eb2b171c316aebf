// Package export serializes a StructuredResult into wire and storage
// formats (JSON, JSONL, simulated Parquet, CSV, XLSX), optionally shaped by
// a named profile and optionally compressed or streamed. Sinks under
// export/sqlite and export/postgres persist results to a database instead
// of a byte stream.
package export

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	maitre "github.com/platewise/maitre"
)

// ExportVersion is stamped into every export envelope.
const ExportVersion = "1.0"

// Serializer converts export data to bytes for a custom format.
type Serializer func(data map[string]any) ([]byte, error)

// Manager serializes export data. Profiles are fixed at construction and
// read-only afterwards, so a Manager is safe for concurrent use.
type Manager struct {
	defaultFormat   string
	includeMetadata bool
	prettyPrint     bool
	compression     string
	profiles        map[string]map[string]any
	tracer          maitre.Tracer
	logger          *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithDefaultFormat sets the format used by SaveToFile when none is given
// (default "json").
func WithDefaultFormat(f string) Option {
	return func(m *Manager) { m.defaultFormat = f }
}

// WithIncludeMetadata controls whether JSONL and stream output carry the
// metadata and relationship lines (default true).
func WithIncludeMetadata(v bool) Option {
	return func(m *Manager) { m.includeMetadata = v }
}

// WithPrettyPrint toggles indented JSON output (default true).
func WithPrettyPrint(v bool) Option {
	return func(m *Manager) { m.prettyPrint = v }
}

// WithCompression sets the compression applied by SaveToFile ("gzip" or
// empty for none).
func WithCompression(c string) Option {
	return func(m *Manager) { m.compression = c }
}

// WithExportTracer sets a Tracer for span creation around exports.
func WithExportTracer(t maitre.Tracer) Option {
	return func(m *Manager) { m.tracer = t }
}

// WithLogger sets a structured logger. When unset, nothing is logged.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager with sensible defaults.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		defaultFormat:   "json",
		includeMetadata: true,
		prettyPrint:     true,
		profiles: map[string]map[string]any{
			"chatbot":   {"order_by": "importance", "include_queries": true},
			"search":    {"optimize_fields": true},
			"analytics": {"include_statistics": true},
		},
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// ExportOption configures a single Export call.
type ExportOption func(*exportCall)

type exportCall struct {
	profile    string
	serializer Serializer
}

// WithProfile applies a named transformation profile (chatbot, search,
// analytics) before serialization.
func WithProfile(name string) ExportOption {
	return func(c *exportCall) { c.profile = name }
}

// WithSerializer supplies a custom serializer for formats the Manager does
// not know.
func WithSerializer(s Serializer) ExportOption {
	return func(c *exportCall) { c.serializer = s }
}

// FromResult converts a StructuredResult to the generic export data shape.
func FromResult(res maitre.StructuredResult) map[string]any {
	raw, err := json.Marshal(res)
	if err != nil {
		// StructuredResult is plain data; marshalling cannot fail in practice.
		return map[string]any{"chunks": []any{}}
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return map[string]any{"chunks": []any{}}
	}
	return data
}

// Export validates the data, applies the requested profile, injects the
// export envelope metadata, and serializes to the named format. Validation
// failures and unknown formats surface as errors before any formatting work.
func (m *Manager) Export(data map[string]any, format string, opts ...ExportOption) ([]byte, error) {
	var call exportCall
	for _, o := range opts {
		o(&call)
	}

	var span maitre.Span
	if m.tracer != nil {
		_, span = m.tracer.Start(context.Background(), "export.run",
			maitre.StringAttr("format", format),
			maitre.StringAttr("profile", call.profile))
		defer span.End()
	}

	if err := ValidateExportData(data); err != nil {
		if span != nil {
			span.Error(err)
		}
		return nil, err
	}

	data = m.applyProfile(data, call.profile)
	m.injectExportMetadata(data, format)

	if m.logger != nil {
		m.logger.Debug("exporting", "format", format, "profile", call.profile,
			"chunks", len(chunkList(data)))
	}

	out, err := m.serialize(data, format, call)
	if span != nil {
		if err != nil {
			span.Error(err)
		} else {
			span.SetAttr(maitre.IntAttr("bytes", len(out)))
		}
	}
	return out, err
}

func (m *Manager) serialize(data map[string]any, format string, call exportCall) ([]byte, error) {
	switch format {
	case "json":
		return m.exportJSON(data)
	case "jsonl":
		return m.exportJSONL(data)
	case "parquet":
		return encodeParquet(data)
	case "csv":
		return exportCSV(data)
	case "xlsx":
		return exportXLSX(data)
	default:
		if call.serializer != nil {
			return call.serializer(data)
		}
		return nil, &maitre.ErrFormat{Format: format}
	}
}

// ValidateExportData rejects structurally invalid input: data must be a
// mapping with a chunks list, and every chunk must carry at least an id and
// content.
func ValidateExportData(data map[string]any) error {
	if data == nil {
		return &maitre.ErrValidation{Field: "data", Message: "must not be nil"}
	}
	rawChunks, ok := data["chunks"].([]any)
	if !ok {
		return &maitre.ErrValidation{Field: "chunks", Message: "must be a list"}
	}
	for i, rc := range rawChunks {
		chunk, ok := rc.(map[string]any)
		if !ok {
			return &maitre.ErrValidation{Field: "chunks", Message: fmt.Sprintf("chunk %d is not a mapping", i)}
		}
		if _, ok := chunk["id"]; !ok {
			return &maitre.ErrValidation{Field: "chunks", Message: fmt.Sprintf("chunk %d missing id", i)}
		}
		if _, ok := chunk["content"]; !ok {
			return &maitre.ErrValidation{Field: "chunks", Message: fmt.Sprintf("chunk %d missing content", i)}
		}
	}
	return nil
}

// applyProfile shapes the data for a named consumer before serialization.
// The input is shallow-copied at every level the profile touches, so the
// caller's data is never mutated.
func (m *Manager) applyProfile(data map[string]any, profile string) map[string]any {
	out := copyData(data)
	if profile == "" {
		return out
	}

	cfg, known := m.profiles[profile]
	if !known {
		if m.logger != nil {
			m.logger.Warn("unknown export profile, passing data through", "profile", profile)
		}
		return out
	}

	chunks := chunkList(out)
	switch profile {
	case "chatbot":
		if raw, ok := out["chunks"].([]any); ok {
			sort.SliceStable(raw, func(i, j int) bool {
				return rawChunkImportance(raw[i]) > rawChunkImportance(raw[j])
			})
		}
	case "search":
		for _, c := range chunks {
			meta := make(map[string]any)
			for k, v := range chunkMeta(c) {
				meta[k] = v
			}
			meta["search_optimized"] = true
			c["metadata"] = meta
		}
	case "analytics":
		typeCounts := make(map[string]int)
		for _, c := range chunks {
			if t, ok := c["type"].(string); ok {
				typeCounts[t]++
			}
		}
		meta := dataMeta(out)
		meta["export_analytics"] = map[string]any{
			"chunk_count":        len(chunks),
			"relationship_count": len(relationshipList(out)),
			"chunk_types":        typeCounts,
		}
		out["metadata"] = meta
	}

	meta := dataMeta(out)
	meta["profile"] = profile
	meta["profile_config"] = cfg
	out["metadata"] = meta
	return out
}

// injectExportMetadata stamps the envelope fields every export carries.
func (m *Manager) injectExportMetadata(data map[string]any, format string) {
	meta := dataMeta(data)
	meta["export_format"] = format
	meta["export_timestamp"] = maitre.NowUTC()
	meta["export_version"] = ExportVersion
	meta["chunk_count"] = len(chunkList(data))
	meta["relationship_count"] = len(relationshipList(data))
	data["metadata"] = meta
	data["version"] = ExportVersion
}

func (m *Manager) exportJSON(data map[string]any) ([]byte, error) {
	if m.prettyPrint {
		return json.MarshalIndent(data, "", "  ")
	}
	return json.Marshal(data)
}

// exportJSONL writes one JSON object per chunk line, then (when metadata is
// included) one metadata line and one line per relationship, each tagged
// with its record type.
func (m *Manager) exportJSONL(data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	for _, c := range chunkList(data) {
		if err := enc.Encode(c); err != nil {
			return nil, fmt.Errorf("encode chunk: %w", err)
		}
	}

	if m.includeMetadata {
		if meta, ok := data["metadata"].(map[string]any); ok {
			if err := enc.Encode(map[string]any{"type": "metadata", "data": meta}); err != nil {
				return nil, fmt.Errorf("encode metadata: %w", err)
			}
		}
		for _, r := range relationshipList(data) {
			if err := enc.Encode(map[string]any{"type": "relationship", "data": r}); err != nil {
				return nil, fmt.Errorf("encode relationship: %w", err)
			}
		}
	}

	return buf.Bytes(), nil
}

// Compress compresses exported bytes. Only gzip is supported; anything else
// is an error.
func (m *Manager) Compress(data []byte, algorithm string) ([]byte, error) {
	if algorithm != "gzip" {
		return nil, fmt.Errorf("unsupported compression %q", algorithm)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveToFile exports data, applies the configured compression, creates the
// target directory, and writes the file. Returns the final path, which gains
// a .gzip suffix when compression applies.
func (m *Manager) SaveToFile(data map[string]any, path, format string, opts ...ExportOption) (string, error) {
	if format == "" {
		format = m.defaultFormat
	}

	out, err := m.Export(data, format, opts...)
	if err != nil {
		return "", err
	}

	finalPath := path
	if m.compression != "" {
		out, err = m.Compress(out, m.compression)
		if err != nil {
			return "", err
		}
		finalPath = path + ".gzip"
	}

	if dir := filepath.Dir(finalPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create dir: %w", err)
		}
	}
	if err := os.WriteFile(finalPath, out, 0o644); err != nil {
		return "", fmt.Errorf("write: %w", err)
	}

	if m.logger != nil {
		m.logger.Info("export saved", "path", finalPath, "format", format, "bytes", len(out))
	}
	return finalPath, nil
}

// --- shared accessors over the generic data shape ---

func chunkList(data map[string]any) []map[string]any {
	raw, _ := data["chunks"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, rc := range raw {
		if c, ok := rc.(map[string]any); ok {
			out = append(out, c)
		}
	}
	return out
}

func relationshipList(data map[string]any) []map[string]any {
	raw, _ := data["relationships"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, rr := range raw {
		if r, ok := rr.(map[string]any); ok {
			out = append(out, r)
		}
	}
	return out
}

func dataMeta(data map[string]any) map[string]any {
	if meta, ok := data["metadata"].(map[string]any); ok {
		return meta
	}
	return make(map[string]any)
}

func chunkMeta(c map[string]any) map[string]any {
	if meta, ok := c["metadata"].(map[string]any); ok {
		return meta
	}
	return make(map[string]any)
}

func chunkImportance(c map[string]any) float64 {
	if w, ok := chunkMeta(c)["importance_weight"].(float64); ok {
		return w
	}
	return 0.5
}

func rawChunkImportance(v any) float64 {
	if c, ok := v.(map[string]any); ok {
		return chunkImportance(c)
	}
	return 0.5
}

// copyData shallow-copies the top-level map, the chunk list, and each chunk
// map so profile transforms never mutate caller data.
func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	if raw, ok := data["chunks"].([]any); ok {
		chunks := make([]any, len(raw))
		for i, rc := range raw {
			if c, ok := rc.(map[string]any); ok {
				cc := make(map[string]any, len(c))
				for k, v := range c {
					cc[k] = v
				}
				chunks[i] = cc
			} else {
				chunks[i] = rc
			}
		}
		out["chunks"] = chunks
	}
	if meta, ok := data["metadata"].(map[string]any); ok {
		mm := make(map[string]any, len(meta))
		for k, v := range meta {
			mm[k] = v
		}
		out["metadata"] = mm
	}
	return out
}
