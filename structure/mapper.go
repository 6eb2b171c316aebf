package structure

import (
	"log/slog"
	"sort"
	"strings"

	maitre "github.com/platewise/maitre"
)

// Mapper builds the typed relationship graph over a chunk set by unioning
// several independent detectors, then filtering by confidence, removing
// duplicates, and annotating every surviving edge.
type Mapper struct {
	createHierarchical  bool
	createSemantic      bool
	createTemporal      bool
	confidenceThreshold float64
	logger              *slog.Logger
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithHierarchical toggles the hierarchical detector (default on).
func WithHierarchical(v bool) MapperOption {
	return func(m *Mapper) { m.createHierarchical = v }
}

// WithSemantic toggles the semantic-similarity detector (default on).
func WithSemantic(v bool) MapperOption {
	return func(m *Mapper) { m.createSemantic = v }
}

// WithTemporal toggles the temporal detector (default off).
func WithTemporal(v bool) MapperOption {
	return func(m *Mapper) { m.createTemporal = v }
}

// WithConfidenceThreshold sets the minimum edge confidence (default 0.5).
func WithConfidenceThreshold(t float64) MapperOption {
	return func(m *Mapper) { m.confidenceThreshold = t }
}

// WithMapperLogger sets a structured logger. When unset, nothing is logged.
func WithMapperLogger(l *slog.Logger) MapperOption {
	return func(m *Mapper) { m.logger = l }
}

// NewMapper creates a Mapper with hierarchical and semantic detection
// enabled, temporal detection off, and a 0.5 confidence threshold.
func NewMapper(opts ...MapperOption) *Mapper {
	m := &Mapper{
		createHierarchical:  true,
		createSemantic:      true,
		confidenceThreshold: 0.5,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// CreateRelationships runs every enabled detector over the chunk set and
// post-processes the union: confidence filtering, duplicate removal, and
// metadata annotation always apply.
func (m *Mapper) CreateRelationships(chunks []maitre.Chunk, record maitre.Record) []maitre.Relationship {
	byField := groupByBaseField(chunks)

	var rels []maitre.Relationship
	if m.createHierarchical {
		rels = append(rels, m.hierarchicalRelationships(byField)...)
	}
	if m.createSemantic {
		rels = append(rels, m.semanticRelationships(chunks)...)
	}
	if m.createTemporal {
		rels = append(rels, m.temporalRelationships(byField)...)
	}
	rels = append(rels, m.crossReferenceRelationships(byField)...)
	rels = append(rels, m.containmentRelationships(chunks)...)

	rels = m.FilterByConfidence(rels)
	rels = RemoveDuplicateRelationships(rels)
	rels = annotateRelationships(rels)

	if m.logger != nil {
		m.logger.Debug("relationship graph built",
			"chunks", len(chunks), "relationships", len(rels))
	}
	return rels
}

// hierarchicalRelationships walks the static field hierarchy and links every
// chunk of a present parent field to every chunk of every present child
// field with a bidirectional has_<child> edge.
func (m *Mapper) hierarchicalRelationships(byField map[string][]maitre.Chunk) []maitre.Relationship {
	var rels []maitre.Relationship
	for _, parent := range sortedTableKeys(fieldHierarchy) {
		children := fieldHierarchy[parent]
		parentChunks := byField[parent]
		if len(parentChunks) == 0 {
			continue
		}
		for _, child := range children {
			for _, pc := range parentChunks {
				for _, cc := range byField[child] {
					rels = append(rels, maitre.Relationship{
						From:          pc.ID,
						To:            cc.ID,
						Type:          maitre.HasField(child),
						Confidence:    0.9,
						Bidirectional: true,
					})
				}
			}
		}
	}
	return rels
}

// semanticRelationships scores every chunk pair by Jaccard similarity of
// lowercase word sets, boosted ×1.2 (capped at 1.0) when the two source
// fields belong to the same related-field group. Plain word overlap, not
// embeddings; downstream consumers depend on this heuristic's exact output.
func (m *Mapper) semanticRelationships(chunks []maitre.Chunk) []maitre.Relationship {
	var rels []maitre.Relationship
	for i := 0; i < len(chunks); i++ {
		for j := i + 1; j < len(chunks); j++ {
			sim := jaccardSimilarity(chunks[i].Content, chunks[j].Content)
			if fieldsRelated(chunks[i].BaseField(), chunks[j].BaseField()) {
				sim = clamp01(sim * 1.2)
			}
			if sim < m.confidenceThreshold {
				continue
			}
			rels = append(rels, maitre.Relationship{
				From:          chunks[i].ID,
				To:            chunks[j].ID,
				Type:          maitre.RelSemantic,
				Confidence:    sim,
				Bidirectional: true,
			})
		}
	}
	return rels
}

// temporalRelationships flags time-sensitive chunks and links hours chunks
// to specials chunks.
func (m *Mapper) temporalRelationships(byField map[string][]maitre.Chunk) []maitre.Relationship {
	flagged := func(c maitre.Chunk) bool {
		return temporalFields[c.BaseField()] || hasTemporalKeywords(c.Content)
	}

	var rels []maitre.Relationship
	for _, hc := range byField["hours"] {
		if !flagged(hc) {
			continue
		}
		for _, sc := range byField["specials"] {
			if !flagged(sc) {
				continue
			}
			rels = append(rels, maitre.Relationship{
				From:          hc.ID,
				To:            sc.ID,
				Type:          maitre.RelTemporal,
				Confidence:    0.8,
				Bidirectional: true,
			})
		}
	}
	return rels
}

// crossReferenceRelationships links every chunk of a source field to every
// chunk of each statically cross-referenced target field.
func (m *Mapper) crossReferenceRelationships(byField map[string][]maitre.Chunk) []maitre.Relationship {
	var rels []maitre.Relationship
	for _, source := range sortedTableKeys(crossReferenceTable) {
		targets := crossReferenceTable[source]
		for _, sc := range byField[source] {
			for _, target := range targets {
				for _, tc := range byField[target] {
					rels = append(rels, maitre.Relationship{
						From:       sc.ID,
						To:         tc.ID,
						Type:       maitre.RelCrossRef,
						Confidence: 0.7,
					})
				}
			}
		}
	}
	return rels
}

// containmentRelationships links main chunks (name, description) to every
// chunk derived from a nested source path.
func (m *Mapper) containmentRelationships(chunks []maitre.Chunk) []maitre.Relationship {
	var mains, nested []maitre.Chunk
	for _, c := range chunks {
		switch {
		case mainFields[c.BaseField()]:
			mains = append(mains, c)
		case strings.Contains(c.SourceField, "."):
			nested = append(nested, c)
		}
	}

	var rels []maitre.Relationship
	for _, mc := range mains {
		for _, nc := range nested {
			rels = append(rels, maitre.Relationship{
				From:       mc.ID,
				To:         nc.ID,
				Type:       maitre.RelContains,
				Confidence: 0.8,
			})
		}
	}
	return rels
}

// DependencyRelationships links dependent-field chunks to their
// prerequisite-field chunks from the static dependency table. Not included
// in CreateRelationships; callers opt in explicitly.
func (m *Mapper) DependencyRelationships(chunks []maitre.Chunk) []maitre.Relationship {
	byField := groupByBaseField(chunks)

	var rels []maitre.Relationship
	for _, dependent := range sortedTableKeys(dependencyTable) {
		prerequisites := dependencyTable[dependent]
		for _, dc := range byField[dependent] {
			for _, prereq := range prerequisites {
				for _, pc := range byField[prereq] {
					rels = append(rels, maitre.Relationship{
						From:       dc.ID,
						To:         pc.ID,
						Type:       maitre.RelDependsOn,
						Confidence: 0.6,
					})
				}
			}
		}
	}

	rels = m.FilterByConfidence(rels)
	rels = RemoveDuplicateRelationships(rels)
	return annotateRelationships(rels)
}

// FilterByConfidence drops relationships below the configured threshold.
func (m *Mapper) FilterByConfidence(rels []maitre.Relationship) []maitre.Relationship {
	out := rels[:0:0]
	for _, r := range rels {
		if r.Confidence >= m.confidenceThreshold {
			out = append(out, r)
		}
	}
	return out
}

// RemoveDuplicateRelationships removes edges sharing a normalized
// (from, to, type) key. For bidirectional edges the endpoint pair is sorted
// first, so (a,b) and (b,a) collapse to one edge.
func RemoveDuplicateRelationships(rels []maitre.Relationship) []maitre.Relationship {
	seen := make(map[string]bool, len(rels))
	out := rels[:0:0]
	for _, r := range rels {
		k := r.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, r)
	}
	return out
}

// annotateRelationships stamps every edge with created_at, a strength tier,
// and a type category.
func annotateRelationships(rels []maitre.Relationship) []maitre.Relationship {
	now := maitre.NowUTC()
	out := make([]maitre.Relationship, len(rels))
	for i, r := range rels {
		r.Metadata = copyMeta(r.Metadata)
		r.SetMeta("created_at", now)
		r.SetMeta("strength", relationshipStrength(r))
		r.SetMeta("type_category", relationshipCategory(r.Type))
		out[i] = r
	}
	return out
}

// relationshipStrength classifies an edge by base-weight × confidence:
// hierarchy and containment edges start at 0.8, semantic edges at their own
// confidence, everything else at 0.6. ≥0.8 strong, ≥0.6 medium, else weak.
func relationshipStrength(r maitre.Relationship) string {
	var base float64
	switch {
	case strings.HasPrefix(string(r.Type), "has_"), r.Type == maitre.RelContains:
		base = 0.8
	case r.Type == maitre.RelSemantic:
		base = r.Confidence
	default:
		base = 0.6
	}

	final := base * r.Confidence
	switch {
	case final >= 0.8:
		return "strong"
	case final >= 0.6:
		return "medium"
	default:
		return "weak"
	}
}

func relationshipCategory(t maitre.RelationType) string {
	switch {
	case strings.HasPrefix(string(t), "has_"), t == maitre.RelContains:
		return "structural"
	case t == maitre.RelSemantic:
		return "semantic"
	case t == maitre.RelTemporal:
		return "temporal"
	case t == maitre.RelCrossRef, t == maitre.RelDependsOn, t == maitre.RelPricedIn:
		return "referential"
	case t == maitre.RelSummarizes:
		return "summary"
	default:
		return "other"
	}
}

// jaccardSimilarity computes word-set overlap between two texts, lowercase.
func jaccardSimilarity(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		set[strings.Trim(w, ".,!?;:\"'")] = true
	}
	return set
}

// fieldsRelated reports whether two base fields belong to the same
// related-field group.
func fieldsRelated(a, b string) bool {
	if a == b {
		return false
	}
	for _, group := range relatedFieldGroups {
		inA, inB := false, false
		for _, f := range group {
			if f == a {
				inA = true
			}
			if f == b {
				inB = true
			}
		}
		if inA && inB {
			return true
		}
	}
	return false
}

func groupByBaseField(chunks []maitre.Chunk) map[string][]maitre.Chunk {
	byField := make(map[string][]maitre.Chunk)
	for _, c := range chunks {
		byField[c.BaseField()] = append(byField[c.BaseField()], c)
	}
	return byField
}

// sortedTableKeys fixes the iteration order over the static field tables so
// the relationship list is identical across runs for identical input.
func sortedTableKeys(table map[string][]string) []string {
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
