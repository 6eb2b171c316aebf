package structure

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	maitre "github.com/platewise/maitre"
)

// Enricher attaches derived, queryable metadata to chunks without altering
// their content or ordering. Enrichment is additive: each flag activates one
// independent metadata block, and every lookup into the source record has a
// default, so enrichment never fails on incomplete records.
type Enricher struct {
	addTimestamps         bool
	addConfidenceScores   bool
	addExtractionMetadata bool
	addDomainKeywords     bool
	addContentMetrics     bool
	addRelationshipHints  bool
	addEmbeddingHints     bool
	addTemporalMetadata   bool
	logger                *slog.Logger

	lower cases.Caser
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithTimestamps toggles the timestamp block (default on).
func WithTimestamps(v bool) EnricherOption {
	return func(e *Enricher) { e.addTimestamps = v }
}

// WithConfidenceScores toggles the confidence block (default on).
func WithConfidenceScores(v bool) EnricherOption {
	return func(e *Enricher) { e.addConfidenceScores = v }
}

// WithExtractionMetadata toggles provenance from the record's _metadata (default on).
func WithExtractionMetadata(v bool) EnricherOption {
	return func(e *Enricher) { e.addExtractionMetadata = v }
}

// WithDomainKeywords toggles the per-field keyword vocabulary (default on).
func WithDomainKeywords(v bool) EnricherOption {
	return func(e *Enricher) { e.addDomainKeywords = v }
}

// WithContentMetrics toggles word/sentence/readability metrics (default on).
func WithContentMetrics(v bool) EnricherOption {
	return func(e *Enricher) { e.addContentMetrics = v }
}

// WithRelationshipHints toggles the field-adjacency hint block (default on).
func WithRelationshipHints(v bool) EnricherOption {
	return func(e *Enricher) { e.addRelationshipHints = v }
}

// WithEmbeddingHints toggles importance weights and suggested queries (default on).
func WithEmbeddingHints(v bool) EnricherOption {
	return func(e *Enricher) { e.addEmbeddingHints = v }
}

// WithTemporalMetadata toggles temporal-relevance classification (default on).
func WithTemporalMetadata(v bool) EnricherOption {
	return func(e *Enricher) { e.addTemporalMetadata = v }
}

// WithEnricherLogger sets a structured logger. When unset, nothing is logged.
func WithEnricherLogger(l *slog.Logger) EnricherOption {
	return func(e *Enricher) { e.logger = l }
}

// NewEnricher creates an Enricher with every block enabled.
func NewEnricher(opts ...EnricherOption) *Enricher {
	e := &Enricher{
		addTimestamps:         true,
		addConfidenceScores:   true,
		addExtractionMetadata: true,
		addDomainKeywords:     true,
		addContentMetrics:     true,
		addRelationshipHints:  true,
		addEmbeddingHints:     true,
		addTemporalMetadata:   true,
		lower:                 cases.Lower(language.English),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// EnrichChunks enriches every chunk against the original record.
func (e *Enricher) EnrichChunks(chunks []maitre.Chunk, record maitre.Record) []maitre.Chunk {
	out := make([]maitre.Chunk, len(chunks))
	for i, c := range chunks {
		out[i] = e.EnrichChunk(c, record)
	}
	return out
}

// EnrichChunk returns a copy of the chunk with all enabled metadata blocks
// attached. Basic metadata (entity name, source type, confidence) is always
// applied.
func (e *Enricher) EnrichChunk(chunk maitre.Chunk, record maitre.Record) maitre.Chunk {
	c := chunk
	c.Metadata = copyMeta(chunk.Metadata)
	extraction := record.Extraction()
	if _, ok := record["_metadata"]; !ok && e.logger != nil {
		e.logger.Debug("record carries no extraction metadata, using defaults",
			"chunk", c.ID, "confidence", extraction.Confidence)
	}

	c.SetMeta("entity_name", record.Name())
	c.SetMeta("source_type", "restaurant")
	if e.addConfidenceScores {
		c.SetMeta("confidence_score", extraction.Confidence)
	}

	if e.addTimestamps {
		now := maitre.NowUTC()
		c.SetMeta("timestamp", now)
		c.SetMeta("processing_date", now[:10])
	}

	if e.addExtractionMetadata {
		c.SetMeta("extraction_method", extraction.Method)
		c.SetMeta("extraction_confidence", extraction.Confidence)
		if extraction.URL != "" {
			c.SetMeta("source_url", extraction.URL)
		}
		if extraction.ScrapeTimestamp != "" {
			c.SetMeta("scraped_at", extraction.ScrapeTimestamp)
		}
	}

	if e.addDomainKeywords {
		c.SetMeta("domain_keywords", e.domainKeywordsFor(c, record))
	}

	if e.addContentMetrics {
		e.attachContentMetrics(&c)
	}

	if e.addRelationshipHints {
		e.attachRelationshipHints(&c, record)
	}

	if e.addEmbeddingHints {
		e.attachEmbeddingHints(&c, record)
	}

	if e.addTemporalMetadata {
		e.attachTemporalMetadata(&c)
	}

	return c
}

// domainKeywordsFor combines the fixed per-field vocabulary with the
// record's cuisine, normalized and deduplicated.
func (e *Enricher) domainKeywordsFor(c maitre.Chunk, record maitre.Record) []string {
	keywords := append([]string(nil), domainKeywords[c.BaseField()]...)
	if cuisine := record.String("cuisine", ""); cuisine != "" {
		keywords = append(keywords, cuisine)
	}

	seen := make(map[string]bool, len(keywords))
	out := keywords[:0]
	for _, kw := range keywords {
		normalized := e.lower.String(norm.NFC.String(strings.TrimSpace(kw)))
		if normalized == "" || seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	return out
}

// attachContentMetrics records word count, sentence count, and a readability
// score derived from average sentence length (15 words reads easiest, each
// 10 words of drift costs a full point, clamped to [0,1]).
func (e *Enricher) attachContentMetrics(c *maitre.Chunk) {
	words := strings.Fields(c.Content)
	sentences := splitSentences(c.Content)

	readability := 0.0
	if len(sentences) > 0 {
		avg := float64(len(words)) / float64(len(sentences))
		readability = clamp01(1.0 - (avg-15.0)/10.0)
	}

	c.SetMeta("content_metrics", map[string]any{
		"word_count":        len(words),
		"sentence_count":    len(sentences),
		"readability_score": readability,
	})
}

// attachRelationshipHints filters the static field-adjacency table to
// fields actually present in the record.
func (e *Enricher) attachRelationshipHints(c *maitre.Chunk, record maitre.Record) {
	var related []string
	for _, f := range relationshipHints[c.BaseField()] {
		if record.Has(f) {
			related = append(related, f)
		}
	}
	strength := "medium"
	if len(related) > 2 {
		strength = "high"
	}
	c.SetMeta("relationship_hints", map[string]any{
		"related_fields": related,
		"strength":       strength,
	})
}

// attachEmbeddingHints records the static field importance weight and three
// templated retrieval queries.
func (e *Enricher) attachEmbeddingHints(c *maitre.Chunk, record maitre.Record) {
	field := c.BaseField()
	weight, ok := importanceWeights[field]
	if !ok {
		weight = defaultImportance
	}

	templates, ok := queryTemplates[field]
	if !ok {
		templates = defaultQueryTemplates
	}
	name := record.Name()
	queries := make([]string, len(templates))
	for i, t := range templates {
		queries[i] = fmt.Sprintf(t, name)
	}

	c.SetMeta("importance_weight", weight)
	c.SetMeta("suggested_queries", queries)
}

// attachTemporalMetadata classifies the chunk's shelf life from month,
// weekday, and relative-date keyword presence.
func (e *Enricher) attachTemporalMetadata(c *maitre.Chunk) {
	if hasTemporalKeywords(c.Content) {
		c.SetMeta("temporal_relevance", "high")
		c.SetMeta("expiry_hint", "may_expire")
	} else {
		c.SetMeta("temporal_relevance", "low")
		c.SetMeta("expiry_hint", "stable")
	}
}

// ChunkImportance ranks a chunk for retrieval ordering: the static field
// importance, scaled up for longer content (capped at 1.5×) and down by
// extraction confidence, capped at 1.0.
func (e *Enricher) ChunkImportance(chunk maitre.Chunk, record maitre.Record) float64 {
	base, ok := importanceWeights[chunk.BaseField()]
	if !ok {
		base = defaultImportance
	}

	lengthMult := math.Min(1.5, 1.0+float64(chunk.TokenCount())/200.0)
	confidence := record.Extraction().Confidence

	return math.Min(1.0, base*lengthMult*confidence)
}
