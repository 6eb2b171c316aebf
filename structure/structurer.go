package structure

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	maitre "github.com/platewise/maitre"
)

// Structurer turns a flat extracted record into chunks and composes the
// downstream engines into the unified StructureForRAG entrypoint plus the
// specialized modes (multimodal, temporal, hierarchical, summary-first).
//
// Chunking strategy by field value type: strings become text chunks (split
// on word windows trimmed to sentence ends when oversized), nested maps
// become one structured chunk per key, lists become list chunks, anything
// else is skipped. Reserved fields (leading underscore) are never chunked.
type Structurer struct {
	chunkSize       int
	overlapSize     int
	enableSummaries bool
	enricher        *Enricher
	tracer          maitre.Tracer
	logger          *slog.Logger
}

// StructurerOption configures a Structurer.
type StructurerOption func(*Structurer)

// WithChunkSize sets the chunk size in whitespace tokens (default 512).
func WithChunkSize(n int) StructurerOption {
	return func(s *Structurer) { s.chunkSize = n }
}

// WithStructurerOverlap sets the overlap window in tokens for intelligent
// chunking (default 50).
func WithStructurerOverlap(n int) StructurerOption {
	return func(s *Structurer) { s.overlapSize = n }
}

// WithSummaries toggles summary generation support (default on).
func WithSummaries(v bool) StructurerOption {
	return func(s *Structurer) { s.enableSummaries = v }
}

// WithEnricher sets the metadata enricher used when enrichment is requested.
func WithEnricher(e *Enricher) StructurerOption {
	return func(s *Structurer) { s.enricher = e }
}

// WithTracer sets a Tracer for span creation around structuring runs.
func WithTracer(t maitre.Tracer) StructurerOption {
	return func(s *Structurer) { s.tracer = t }
}

// WithStructurerLogger sets a structured logger. When unset, nothing is logged.
func WithStructurerLogger(l *slog.Logger) StructurerOption {
	return func(s *Structurer) { s.logger = l }
}

// NewStructurer creates a Structurer with sensible defaults.
func NewStructurer(opts ...StructurerOption) *Structurer {
	s := &Structurer{
		chunkSize:       512,
		overlapSize:     50,
		enableSummaries: true,
	}
	for _, o := range opts {
		o(s)
	}
	if s.enricher == nil {
		s.enricher = NewEnricher()
	}
	return s
}

// StructureOption configures a single StructureForRAG call.
type StructureOption func(*structureCall)

type structureCall struct {
	enrich        bool
	handleMissing bool
	stampConfig   bool
}

// WithMetadataEnrichment runs the enricher over every chunk.
func WithMetadataEnrichment() StructureOption {
	return func(c *structureCall) { c.enrich = true }
}

// WithMissingDataHandling computes a missing-field report against the
// expected restaurant field set and stamps every chunk with it.
func WithMissingDataHandling() StructureOption {
	return func(c *structureCall) { c.handleMissing = true }
}

// WithConfigStamp records the active configuration on every chunk.
func WithConfigStamp() StructureOption {
	return func(c *structureCall) { c.stampConfig = true }
}

// StructureForRAG converts a record into a StructuredResult: chunks per the
// type-directed strategies, optional missing-data handling and enrichment,
// and the basic field-level relationship set.
func (s *Structurer) StructureForRAG(ctx context.Context, record maitre.Record, opts ...StructureOption) maitre.StructuredResult {
	start := time.Now()

	var call structureCall
	for _, o := range opts {
		o(&call)
	}

	if s.tracer != nil {
		var span maitre.Span
		ctx, span = s.tracer.Start(ctx, "structure.for_rag",
			maitre.StringAttr("entity", record.Name()))
		defer span.End()
	}
	_ = ctx

	chunks := s.chunkRecord(record)

	if call.handleMissing {
		chunks = s.handleMissingData(record, chunks)
	}
	if call.enrich {
		chunks = s.enricher.EnrichChunks(chunks, record)
	}
	if call.stampConfig {
		cfg := map[string]any{
			"chunk_size":       s.chunkSize,
			"overlap_size":     s.overlapSize,
			"enable_summaries": s.enableSummaries,
		}
		for i := range chunks {
			chunks[i].SetMeta("config", cfg)
		}
	}

	rels := s.fieldRelationships(record)

	if s.logger != nil {
		s.logger.Info("record structured",
			"entity", record.Name(), "chunks", len(chunks), "relationships", len(rels))
	}

	return s.assemble(record, chunks, rels, start)
}

// CreateRelationships builds the basic field-level relationship set from the
// static field table, without chunk-level graph construction. Use Mapper for
// the full graph.
func (s *Structurer) CreateRelationships(record maitre.Record) []maitre.Relationship {
	return s.fieldRelationships(record)
}

// GenerateEmbeddingHints returns per-field importance weights and suggested
// retrieval queries for every field present in the record.
func (s *Structurer) GenerateEmbeddingHints(record maitre.Record) map[string]any {
	hints := make(map[string]any)
	name := record.Name()
	for _, field := range record.FieldOrder() {
		weight, ok := importanceWeights[field]
		if !ok {
			weight = defaultImportance
		}
		templates, ok := queryTemplates[field]
		if !ok {
			templates = defaultQueryTemplates
		}
		queries := make([]string, len(templates))
		for i, t := range templates {
			queries[i] = fmt.Sprintf(t, name)
		}
		hints[field] = map[string]any{
			"importance_weight": weight,
			"suggested_queries": queries,
		}
	}
	return hints
}

// --- chunking strategies ---

func (s *Structurer) chunkRecord(record maitre.Record) []maitre.Chunk {
	var chunks []maitre.Chunk
	for _, field := range record.FieldOrder() {
		switch v := record[field].(type) {
		case string:
			chunks = append(chunks, s.chunkString(field, v)...)
		case map[string]any:
			chunks = append(chunks, s.chunkNested(field, v)...)
		case []any:
			chunks = append(chunks, s.chunkList(field, v)...)
		default:
			// Scalars and unknown shapes are skipped.
		}
	}
	return chunks
}

// chunkString emits one text chunk when the value fits the budget, otherwise
// word windows trimmed backward to the nearest sentence terminator so a cut
// never lands mid-sentence when one is available.
func (s *Structurer) chunkString(field, text string) []maitre.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	if len(words) <= s.chunkSize {
		return []maitre.Chunk{{
			ID:          field,
			Content:     ensureTerminalPunctuation(strings.TrimSpace(text)),
			Type:        maitre.ChunkText,
			SourceField: field,
		}}
	}

	var chunks []maitre.Chunk
	i := 0
	n := 0
	for i < len(words) {
		end := min(i+s.chunkSize, len(words))

		// Trim back to the last sentence terminator inside the window unless
		// the window already ends on one or reaches the end of the text.
		if end < len(words) && !endsSentence(words[end-1]) {
			for j := end - 1; j > i; j-- {
				if endsSentence(words[j-1]) {
					end = j
					break
				}
			}
		}

		chunks = append(chunks, maitre.Chunk{
			ID:          fmt.Sprintf("%s_split_%d", field, n),
			Content:     ensureTerminalPunctuation(strings.Join(words[i:end], " ")),
			Type:        maitre.ChunkText,
			SourceField: field,
		})
		i = end
		n++
	}
	return chunks
}

// chunkNested emits one structured chunk per nested key, content formatted
// as "key: value" with lists comma-joined.
func (s *Structurer) chunkNested(field string, nested map[string]any) []maitre.Chunk {
	keys := make([]string, 0, len(nested))
	for k := range nested {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	chunks := make([]maitre.Chunk, 0, len(keys))
	for _, k := range keys {
		chunks = append(chunks, maitre.Chunk{
			ID:          field + "_" + k,
			Content:     k + ": " + formatValue(nested[k]),
			Type:        maitre.ChunkStructured,
			SourceField: field + "." + k,
		})
	}
	return chunks
}

// chunkList emits one list chunk when the item count fits the budget,
// otherwise windows of chunkSize items.
func (s *Structurer) chunkList(field string, items []any) []maitre.Chunk {
	if len(items) == 0 {
		return nil
	}

	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = formatValue(item)
	}

	if len(items) <= s.chunkSize {
		return []maitre.Chunk{{
			ID:          field,
			Content:     strings.Join(lines, "\n"),
			Type:        maitre.ChunkList,
			SourceField: field,
		}}
	}

	var chunks []maitre.Chunk
	for i := 0; i < len(lines); i += s.chunkSize {
		end := min(i+s.chunkSize, len(lines))
		chunks = append(chunks, maitre.Chunk{
			ID:          fmt.Sprintf("%s_list_%d", field, len(chunks)),
			Content:     strings.Join(lines[i:end], "\n"),
			Type:        maitre.ChunkList,
			SourceField: field,
		})
	}
	return chunks
}

// handleMissingData computes the missing-field report against the expected
// restaurant field set and stamps every chunk with the result. Confidence is
// capped at 0.8 even for complete records: this path only runs when the
// caller already suspects gaps.
func (s *Structurer) handleMissingData(record maitre.Record, chunks []maitre.Chunk) []maitre.Chunk {
	var missing []string
	present := 0
	for _, f := range expectedFields {
		if base, sub, ok := strings.Cut(f, "."); ok {
			if m := record.Map(base); m != nil && m[sub] != nil {
				present++
				continue
			}
			missing = append(missing, f)
			continue
		}
		if record.Has(f) {
			present++
		} else {
			missing = append(missing, f)
		}
	}

	completeness := float64(present) / float64(len(expectedFields))
	confidence := completeness
	if confidence > 0.8 {
		confidence = 0.8
	}

	if s.logger != nil && len(missing) > 0 {
		s.logger.Debug("incomplete record",
			"entity", record.Name(), "missing", missing, "completeness", completeness)
	}

	out := make([]maitre.Chunk, len(chunks))
	for i, c := range chunks {
		c.Metadata = copyMeta(c.Metadata)
		c.SetMeta("missing_fields", missing)
		c.SetMeta("confidence_score", confidence)
		out[i] = c
	}
	return out
}

// fieldRelationships builds the basic field-level relationship set: a
// has_<field> edge from the restaurant node to every present field node,
// plus a priced_in edge when both menu and price_range exist.
func (s *Structurer) fieldRelationships(record maitre.Record) []maitre.Relationship {
	var rels []maitre.Relationship
	if record.Has("name") {
		for _, field := range record.FieldOrder() {
			if field == "name" {
				continue
			}
			rels = append(rels, maitre.Relationship{
				From:          fieldNodes["name"],
				To:            fieldNode(field),
				Type:          maitre.HasField(field),
				Confidence:    0.9,
				Bidirectional: true,
			})
		}
	}
	if record.Has("menu") && record.Has("price_range") {
		rels = append(rels, maitre.Relationship{
			From:       fieldNodes["menu"],
			To:         fieldNodes["price_range"],
			Type:       maitre.RelPricedIn,
			Confidence: 0.8,
		})
	}
	return annotateRelationships(rels)
}

func fieldNode(field string) string {
	if node, ok := fieldNodes[field]; ok {
		return node
	}
	return field + "_info"
}

// assemble builds the result envelope. Metadata always carries the schema
// version, generation timestamp, chunk count, and source entity name.
func (s *Structurer) assemble(record maitre.Record, chunks []maitre.Chunk, rels []maitre.Relationship, start time.Time) maitre.StructuredResult {
	return maitre.StructuredResult{
		Chunks:        chunks,
		Relationships: rels,
		Metadata: map[string]any{
			"schema_version": maitre.SchemaVersion,
			"generated_at":   maitre.NowUTC(),
			"chunk_count":    len(chunks),
			"source":         record.Name(),
		},
		ProcessingTime: time.Since(start).Seconds(),
	}
}

// formatValue renders an arbitrary record value as chunk content. Lists are
// comma-joined; nested maps render as "k: v" pairs in key order.
func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = formatValue(item)
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + formatValue(t[k])
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprintf("%v", t)
	}
}

func endsSentence(word string) bool {
	if word == "" {
		return false
	}
	switch word[len(word)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}
