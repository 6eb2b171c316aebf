package structure

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"unicode"

	maitre "github.com/platewise/maitre"
)

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n`)
	sentenceBreak  = regexp.MustCompile(`[.!?]+\s+`)
)

// Optimizer normalizes a chunk list so every chunk satisfies the configured
// size bounds while preserving semantic boundaries. Splitting never breaks
// inside a word: when neither paragraph nor sentence boundaries fit the
// budget, word-count boundaries are synthesized and snapped to whitespace.
type Optimizer struct {
	maxChunkSize      int
	minChunkSize      int
	overlapSize       int
	preserveSentences bool
	logger            *slog.Logger
}

// OptimizerOption configures an Optimizer.
type OptimizerOption func(*Optimizer)

// WithMaxChunkSize sets the maximum chunk size in whitespace tokens (default 512).
func WithMaxChunkSize(n int) OptimizerOption {
	return func(o *Optimizer) { o.maxChunkSize = n }
}

// WithMinChunkSize sets the minimum chunk size in tokens below which chunks
// are merged with their successor (default 50). Zero disables merging.
func WithMinChunkSize(n int) OptimizerOption {
	return func(o *Optimizer) { o.minChunkSize = n }
}

// WithOverlapSize sets the contextual overlap window in tokens (default 25).
func WithOverlapSize(n int) OptimizerOption {
	return func(o *Optimizer) { o.overlapSize = n }
}

// WithPreserveSentences controls whether split chunks are forced to end on
// terminal punctuation (default true).
func WithPreserveSentences(v bool) OptimizerOption {
	return func(o *Optimizer) { o.preserveSentences = v }
}

// WithOptimizerLogger sets a structured logger. When unset, nothing is logged.
func WithOptimizerLogger(l *slog.Logger) OptimizerOption {
	return func(o *Optimizer) { o.logger = l }
}

// NewOptimizer creates an Optimizer with sensible defaults.
func NewOptimizer(opts ...OptimizerOption) *Optimizer {
	o := &Optimizer{
		maxChunkSize:      512,
		minChunkSize:      50,
		overlapSize:       25,
		preserveSentences: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OptimizeChunks splits oversized chunks at natural boundaries, merges
// undersized chunks when no splitting occurred, and attaches contextual
// overlap metadata. Input chunks already within bounds pass through
// unchanged, so the operation is idempotent.
func (o *Optimizer) OptimizeChunks(chunks []maitre.Chunk) []maitre.Chunk {
	out := make([]maitre.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.TokenCount() > o.maxChunkSize {
			out = append(out, o.splitChunk(c)...)
		} else {
			out = append(out, c)
		}
	}

	if len(out) == len(chunks) && o.minChunkSize > 0 {
		out = o.MergeSmallChunks(out)
	}

	return o.AddContextualOverlap(out)
}

// SplitLargeChunks applies the same split logic as OptimizeChunks to a
// pre-built list, without the merge and overlap phases.
func (o *Optimizer) SplitLargeChunks(chunks []maitre.Chunk) []maitre.Chunk {
	out := make([]maitre.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.TokenCount() > o.maxChunkSize {
			out = append(out, o.splitChunk(c)...)
		} else {
			out = append(out, c)
		}
	}
	return out
}

// splitChunk splits one oversized chunk at the best available boundaries.
// A single token longer than the budget cannot be split without breaking
// inside a word; it is logged and passed through as-is.
func (o *Optimizer) splitChunk(c maitre.Chunk) []maitre.Chunk {
	words := strings.Fields(c.Content)
	if len(words) <= 1 {
		if o.logger != nil {
			o.logger.Warn("unsplittable chunk exceeds size budget",
				"chunk_id", c.ID, "tokens", len(words), "max", o.maxChunkSize)
		}
		return []maitre.Chunk{c}
	}

	boundaries := o.FindOptimalBoundaries(c.Content, o.maxChunkSize)

	suffix := "word"
	for _, b := range boundaries {
		if b.Type == maitre.BoundaryParagraph || b.Type == maitre.BoundarySentence {
			suffix = "split"
			break
		}
	}

	var segments []string
	prev := 0
	for _, b := range boundaries {
		if b.Position <= prev || b.Position > len(c.Content) {
			continue
		}
		seg := strings.TrimSpace(c.Content[prev:b.Position])
		if seg != "" {
			segments = append(segments, seg)
		}
		prev = b.Position
	}
	if tail := strings.TrimSpace(c.Content[prev:]); tail != "" {
		segments = append(segments, tail)
	}

	// Dropped boundaries can leave an out-of-budget segment behind; word-split
	// those so the size invariant holds.
	var fitted []string
	for _, seg := range segments {
		if len(strings.Fields(seg)) > o.maxChunkSize {
			fitted = append(fitted, splitOnWordWindows(seg, o.maxChunkSize)...)
		} else {
			fitted = append(fitted, seg)
		}
	}

	out := make([]maitre.Chunk, 0, len(fitted))
	for i, seg := range fitted {
		if o.preserveSentences {
			seg = ensureTerminalPunctuation(seg)
		}
		child := maitre.Chunk{
			ID:          fmt.Sprintf("%s_%s_%d", c.ID, suffix, i),
			Content:     seg,
			Type:        c.Type,
			SourceField: c.SourceField,
			Metadata:    copyMeta(c.Metadata),
		}
		child.SetMeta("split_from", c.ID)
		child.SetMeta("split_index", i)
		child.SetMeta("total_splits", len(fitted))
		out = append(out, child)
	}
	return out
}

// FindOptimalBoundaries scans for paragraph breaks first, then sentence
// breaks, keeping only boundaries whose preceding word count falls within
// [1, maxSize]. When no natural boundary qualifies, word-count boundaries
// are synthesized every maxSize words, snapped to the next whitespace so a
// split never lands mid-word. The result is sorted by position and
// deduplicated by (position, type).
func (o *Optimizer) FindOptimalBoundaries(text string, maxSize int) []maitre.ChunkBoundary {
	var candidates []maitre.ChunkBoundary
	for _, m := range paragraphBreak.FindAllStringIndex(text, -1) {
		candidates = append(candidates, maitre.ChunkBoundary{
			Position:   m[1],
			Type:       maitre.BoundaryParagraph,
			Confidence: maitre.BoundaryParagraph.DefaultConfidence(),
		})
	}
	for _, m := range sentenceBreak.FindAllStringIndex(text, -1) {
		candidates = append(candidates, maitre.ChunkBoundary{
			Position:   m[1],
			Type:       maitre.BoundarySentence,
			Confidence: maitre.BoundarySentence.DefaultConfidence(),
		})
	}
	candidates = maitre.SortBoundaries(candidates)

	var kept []maitre.ChunkBoundary
	prev := 0
	for _, b := range candidates {
		n := len(strings.Fields(text[prev:b.Position]))
		if n >= 1 && n <= maxSize {
			kept = append(kept, b)
			prev = b.Position
		}
	}
	if len(kept) > 0 {
		return kept
	}

	return synthesizeWordBoundaries(text, maxSize)
}

// synthesizeWordBoundaries emits a word-type boundary after every maxSize
// words, positioned at the whitespace following the word.
func synthesizeWordBoundaries(text string, maxSize int) []maitre.ChunkBoundary {
	if maxSize <= 0 {
		return nil
	}
	var boundaries []maitre.ChunkBoundary
	wordCount := 0
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				inWord = false
				wordCount++
				if wordCount%maxSize == 0 {
					boundaries = append(boundaries, maitre.ChunkBoundary{
						Position:   i,
						Type:       maitre.BoundaryWord,
						Confidence: maitre.BoundaryWord.DefaultConfidence(),
					})
				}
			}
		} else {
			inWord = true
		}
	}
	return boundaries
}

// splitOnWordWindows splits text into windows of at most maxSize words.
func splitOnWordWindows(text string, maxSize int) []string {
	words := strings.Fields(text)
	var out []string
	for i := 0; i < len(words); i += maxSize {
		end := min(i+maxSize, len(words))
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}

// MergeSmallChunks iteratively merges chunks below the minimum size with
// their immediate successor until the minimum is reached or a merge would
// exceed the maximum. Terminates at the fixed point where no chunk in a
// pass was merged.
func (o *Optimizer) MergeSmallChunks(chunks []maitre.Chunk) []maitre.Chunk {
	if o.minChunkSize <= 0 || len(chunks) < 2 {
		return chunks
	}

	out := make([]maitre.Chunk, len(chunks))
	copy(out, chunks)

	for {
		merged := false
		for i := 0; i < len(out)-1; i++ {
			a, b := out[i], out[i+1]
			if a.TokenCount() >= o.minChunkSize {
				continue
			}
			if a.TokenCount()+b.TokenCount() > o.maxChunkSize {
				continue
			}
			combined := a
			combined.Content = strings.TrimSpace(a.Content + " " + b.Content)
			combined.Metadata = copyMeta(a.Metadata)
			mergedIDs, _ := combined.Meta("merged_ids").([]string)
			combined.SetMeta("merged_ids", append(mergedIDs, b.ID))
			out = append(out[:i], append([]maitre.Chunk{combined}, out[i+2:]...)...)
			merged = true
			break
		}
		if !merged {
			return out
		}
	}
}

// AddContextualOverlap copies the trailing overlap window of the previous
// chunk and the leading overlap window of the next chunk into metadata,
// only when the neighbor has at least overlapSize words.
func (o *Optimizer) AddContextualOverlap(chunks []maitre.Chunk) []maitre.Chunk {
	if o.overlapSize <= 0 || len(chunks) < 2 {
		return chunks
	}
	out := make([]maitre.Chunk, len(chunks))
	copy(out, chunks)

	for i := range out {
		if i > 0 {
			prev := strings.Fields(out[i-1].Content)
			if len(prev) >= o.overlapSize {
				out[i].SetMeta("overlap_with_previous",
					strings.Join(prev[len(prev)-o.overlapSize:], " "))
			}
		}
		if i < len(out)-1 {
			next := strings.Fields(out[i+1].Content)
			if len(next) >= o.overlapSize {
				out[i].SetMeta("overlap_with_next",
					strings.Join(next[:o.overlapSize], " "))
			}
		}
	}
	return out
}

// SemanticCoherence scores how self-consistent a text reads, in [0,1].
// Weighted combination of meaningful-word repetition (0.6) and sentence
// length proximity to a 12.5-word optimum (0.4). Heuristic, not ML-based.
func (o *Optimizer) SemanticCoherence(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	var meaningful []string
	for _, w := range words {
		if len(w) > 3 {
			meaningful = append(meaningful, strings.Trim(w, ".,!?;:\"'"))
		}
	}

	repetition := 0.0
	if len(meaningful) > 0 {
		freq := make(map[string]int, len(meaningful))
		for _, w := range meaningful {
			freq[w]++
		}
		repeated := 0
		for _, w := range meaningful {
			if freq[w] > 1 {
				repeated++
			}
		}
		repetition = float64(repeated) / float64(len(meaningful))
	}

	sentences := splitSentences(text)
	lengthScore := 0.0
	if len(sentences) > 0 {
		total := 0
		for _, s := range sentences {
			total += len(strings.Fields(s))
		}
		avg := float64(total) / float64(len(sentences))
		lengthScore = clamp01(1.0 - math.Abs(avg-12.5)/12.5)
	}

	return 0.6*repetition + 0.4*lengthScore
}

// OptimizeForEmbeddings attaches an embedding_metadata block per chunk
// (keyword density, word count, coherence score) without altering chunk
// boundaries.
func (o *Optimizer) OptimizeForEmbeddings(chunks []maitre.Chunk) []maitre.Chunk {
	out := make([]maitre.Chunk, len(chunks))
	copy(out, chunks)
	for i := range out {
		words := strings.Fields(strings.ToLower(out[i].Content))
		unique := make(map[string]bool)
		for _, w := range words {
			if len(w) > 3 {
				unique[strings.Trim(w, ".,!?;:\"'")] = true
			}
		}
		density := 0.0
		if len(words) > 0 {
			density = float64(len(unique)) / float64(len(words))
		}
		out[i].SetMeta("embedding_metadata", map[string]any{
			"keyword_density": density,
			"word_count":      len(words),
			"coherence_score": o.SemanticCoherence(out[i].Content),
		})
	}
	return out
}

// --- helpers shared across the package ---

var sentenceSplit = regexp.MustCompile(`[.!?]+`)

// splitSentences splits text on terminal punctuation runs, dropping empties.
func splitSentences(text string) []string {
	parts := sentenceSplit.Split(text, -1)
	var out []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, strings.TrimSpace(p))
		}
	}
	return out
}

// ensureTerminalPunctuation appends a period to texts long enough to read as
// prose that do not already end on terminal punctuation or a closing quote.
func ensureTerminalPunctuation(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= 20 {
		return trimmed
	}
	last := trimmed[len(trimmed)-1]
	switch last {
	case '.', '!', '?', '"', '\'':
		return trimmed
	}
	return trimmed + "."
}

func copyMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
