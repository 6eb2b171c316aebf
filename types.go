package maitre

import (
	"fmt"
	"sort"
	"strings"
)

// --- Chunk ---

// ChunkType tags the kind of content a chunk carries.
type ChunkType string

const (
	ChunkText        ChunkType = "text"
	ChunkStructured  ChunkType = "structured"
	ChunkList        ChunkType = "list"
	ChunkTemporal    ChunkType = "temporal"
	ChunkSummary     ChunkType = "summary"
	ChunkDetail      ChunkType = "detail"
	ChunkParent      ChunkType = "parent"
	ChunkChild       ChunkType = "child"
	ChunkChildParent ChunkType = "child_parent"
	ChunkImage       ChunkType = "image"
	ChunkPDF         ChunkType = "pdf"
)

// Chunk is the atomic unit of structured output. IDs embed the source field
// (and, for split chunks, the parent chunk ID) so a chunk can be traced back
// to where it came from without a lookup table.
type Chunk struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	Type           ChunkType      `json:"type"`
	SourceField    string         `json:"source_field"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	HierarchyLevel int            `json:"hierarchy_level,omitempty"`
	ParentID       string         `json:"parent_id,omitempty"`
}

// TokenCount returns the whitespace-delimited token count of the content.
// Chunk size budgets are expressed in these tokens.
func (c Chunk) TokenCount() int {
	return len(strings.Fields(c.Content))
}

// SetMeta stores a metadata value, allocating the map on first use.
func (c *Chunk) SetMeta(key string, value any) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]any)
	}
	c.Metadata[key] = value
}

// Meta returns a metadata value, or nil when absent.
func (c Chunk) Meta(key string) any {
	if c.Metadata == nil {
		return nil
	}
	return c.Metadata[key]
}

// BaseField returns the first segment of the dotted source-field path.
// "location.address" -> "location".
func (c Chunk) BaseField() string {
	if i := strings.IndexByte(c.SourceField, '.'); i >= 0 {
		return c.SourceField[:i]
	}
	return c.SourceField
}

// --- ChunkBoundary ---

// BoundaryType identifies what kind of break a boundary sits on, in
// descending preference order: paragraph, sentence, word.
type BoundaryType string

const (
	BoundaryParagraph BoundaryType = "paragraph"
	BoundarySentence  BoundaryType = "sentence"
	BoundaryWord      BoundaryType = "word"
)

// DefaultConfidence returns the conventional confidence for the boundary type.
func (bt BoundaryType) DefaultConfidence() float64 {
	switch bt {
	case BoundaryParagraph:
		return 0.9
	case BoundarySentence:
		return 0.7
	default:
		return 0.3
	}
}

// ChunkBoundary is a ranked candidate split point within a larger text.
type ChunkBoundary struct {
	Position   int          `json:"position"`
	Type       BoundaryType `json:"boundary_type"`
	Confidence float64      `json:"confidence"`
}

// NewChunkBoundary validates and constructs a boundary. Position must be
// non-negative and confidence must lie in [0,1].
func NewChunkBoundary(position int, bt BoundaryType, confidence float64) (ChunkBoundary, error) {
	if position < 0 {
		return ChunkBoundary{}, &ErrValidation{Field: "position", Message: fmt.Sprintf("must be non-negative, got %d", position)}
	}
	if confidence < 0 || confidence > 1 {
		return ChunkBoundary{}, &ErrValidation{Field: "confidence", Message: fmt.Sprintf("must be in [0,1], got %g", confidence)}
	}
	return ChunkBoundary{Position: position, Type: bt, Confidence: confidence}, nil
}

// SortBoundaries orders boundaries by position ascending and removes
// duplicates by (position, type).
func SortBoundaries(boundaries []ChunkBoundary) []ChunkBoundary {
	sorted := make([]ChunkBoundary, len(boundaries))
	copy(sorted, boundaries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})

	type key struct {
		pos int
		bt  BoundaryType
	}
	seen := make(map[key]bool, len(sorted))
	out := sorted[:0]
	for _, b := range sorted {
		k := key{b.Position, b.Type}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, b)
	}
	return out
}

// --- Relationship ---

// RelationType names a typed edge between chunks.
type RelationType string

const (
	RelContains     RelationType = "contains"
	RelSemantic     RelationType = "semantically_related"
	RelTemporal     RelationType = "temporally_related"
	RelCrossRef     RelationType = "cross_references"
	RelDependsOn    RelationType = "depends_on"
	RelSummarizes   RelationType = "summarizes"
	RelHasChild     RelationType = "has_child"
	RelHasParent    RelationType = "has_parent"
	RelPricedIn     RelationType = "priced_in"
)

// HasField builds the dynamic has_<field> relation type used by the
// hierarchical detectors ("menu" -> "has_menu").
func HasField(field string) RelationType {
	return RelationType("has_" + field)
}

// Relationship is a directed, optionally bidirectional, typed edge between
// two chunk IDs.
type Relationship struct {
	From          string         `json:"from"`
	To            string         `json:"to"`
	Type          RelationType   `json:"type"`
	Confidence    float64        `json:"confidence"`
	Bidirectional bool           `json:"bidirectional"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Key returns the deduplication key. For bidirectional edges the endpoint
// pair is sorted so (a,b,type) and (b,a,type) collapse to the same key.
func (r Relationship) Key() string {
	from, to := r.From, r.To
	if r.Bidirectional && to < from {
		from, to = to, from
	}
	return from + "\x00" + to + "\x00" + string(r.Type)
}

// SetMeta stores a metadata value, allocating the map on first use.
func (r *Relationship) SetMeta(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// --- StructuredResult ---

// SchemaVersion identifies the StructuredResult envelope layout.
const SchemaVersion = "1.0"

// StructuredResult is the top-level output envelope of a structuring run.
type StructuredResult struct {
	Chunks         []Chunk        `json:"chunks"`
	Metadata       map[string]any `json:"metadata"`
	Relationships  []Relationship `json:"relationships"`
	ProcessingTime float64        `json:"processing_time"`
}
