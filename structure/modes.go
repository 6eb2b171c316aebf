package structure

import (
	"fmt"
	"strings"
	"time"

	maitre "github.com/platewise/maitre"
)

// StructureMultimodal splits a record's text, image, and PDF content into
// typed chunks and links every text chunk to every media chunk. Image and
// PDF entries come from the record's "images" and "pdfs" lists; media items
// may be plain strings (URLs) or maps carrying name/content.
func (s *Structurer) StructureMultimodal(record maitre.Record) maitre.StructuredResult {
	start := time.Now()

	var textChunks, mediaChunks []maitre.Chunk
	for _, field := range record.FieldOrder() {
		switch field {
		case "images":
			for i, item := range record.List("images") {
				mediaChunks = append(mediaChunks, maitre.Chunk{
					ID:          fmt.Sprintf("image_%d", i),
					Content:     formatValue(item),
					Type:        maitre.ChunkImage,
					SourceField: "images",
				})
			}
		case "pdfs":
			for i, item := range record.List("pdfs") {
				mediaChunks = append(mediaChunks, maitre.Chunk{
					ID:          fmt.Sprintf("pdf_%d", i),
					Content:     formatValue(item),
					Type:        maitre.ChunkPDF,
					SourceField: "pdfs",
				})
			}
		default:
			if text, ok := record[field].(string); ok {
				textChunks = append(textChunks, s.chunkString(field, text)...)
			}
		}
	}

	var rels []maitre.Relationship
	for _, tc := range textChunks {
		for _, mc := range mediaChunks {
			rels = append(rels, maitre.Relationship{
				From:       tc.ID,
				To:         mc.ID,
				Type:       maitre.RelCrossRef,
				Confidence: 0.6,
			})
		}
	}

	chunks := append(textChunks, mediaChunks...)
	result := s.assemble(record, chunks, annotateRelationships(rels), start)
	result.Metadata["structure_type"] = "multimodal"
	return result
}

// StructureTemporal extracts the record's time-sensitive content: hours
// become recurring_schedule chunks, named events become specific_date
// chunks, and hours link to every event.
func (s *Structurer) StructureTemporal(record maitre.Record) maitre.StructuredResult {
	start := time.Now()

	var hoursChunks, eventChunks []maitre.Chunk
	switch v := record["hours"].(type) {
	case string:
		for _, c := range s.chunkString("hours", v) {
			c.Type = maitre.ChunkTemporal
			c.SetMeta("temporal_type", "recurring_schedule")
			hoursChunks = append(hoursChunks, c)
		}
	case map[string]any:
		for _, c := range s.chunkNested("hours", v) {
			c.Type = maitre.ChunkTemporal
			c.SetMeta("temporal_type", "recurring_schedule")
			hoursChunks = append(hoursChunks, c)
		}
	}

	for i, item := range record.List("events") {
		c := maitre.Chunk{
			ID:          fmt.Sprintf("event_%d", i),
			Content:     formatValue(item),
			Type:        maitre.ChunkTemporal,
			SourceField: "events",
		}
		c.SetMeta("temporal_type", "specific_date")
		eventChunks = append(eventChunks, c)
	}

	var rels []maitre.Relationship
	for _, hc := range hoursChunks {
		for _, ec := range eventChunks {
			rels = append(rels, maitre.Relationship{
				From:          hc.ID,
				To:            ec.ID,
				Type:          maitre.RelTemporal,
				Confidence:    0.8,
				Bidirectional: true,
			})
		}
	}

	chunks := append(hoursChunks, eventChunks...)
	result := s.assemble(record, chunks, annotateRelationships(rels), start)
	result.Metadata["structure_type"] = "temporal"
	return result
}

// GenerateSummary synthesizes one summary chunk from the record's headline
// fields (name, cuisine, price range, location) plus one detail chunk per
// remaining string field, each linked summary→detail.
func (s *Structurer) GenerateSummary(record maitre.Record) maitre.StructuredResult {
	start := time.Now()

	summary := maitre.Chunk{
		ID:          "summary",
		Content:     summaryText(record),
		Type:        maitre.ChunkSummary,
		SourceField: "summary",
	}

	headline := map[string]bool{
		"name": true, "cuisine": true, "price_range": true, "location": true,
	}

	chunks := []maitre.Chunk{summary}
	var rels []maitre.Relationship
	for _, field := range record.FieldOrder() {
		if headline[field] {
			continue
		}
		text, ok := record[field].(string)
		if !ok || strings.TrimSpace(text) == "" {
			continue
		}
		detail := maitre.Chunk{
			ID:          "detail_" + field,
			Content:     ensureTerminalPunctuation(text),
			Type:        maitre.ChunkDetail,
			SourceField: field,
		}
		chunks = append(chunks, detail)
		rels = append(rels, maitre.Relationship{
			From:       summary.ID,
			To:         detail.ID,
			Type:       maitre.RelSummarizes,
			Confidence: 0.9,
		})
	}

	result := s.assemble(record, chunks, annotateRelationships(rels), start)
	result.Metadata["structure_type"] = "summary"
	return result
}

// summaryText composes a one-sentence overview from whatever headline fields
// the record has. Missing fields degrade the sentence, never fail it.
func summaryText(record maitre.Record) string {
	var b strings.Builder
	b.WriteString(record.Name())

	if cuisine := record.String("cuisine", ""); cuisine != "" {
		b.WriteString(" is a " + cuisine + " restaurant")
	} else {
		b.WriteString(" is a restaurant")
	}

	if loc := locationText(record); loc != "" {
		b.WriteString(" located at " + loc)
	}
	b.WriteString(".")

	if pr := record.String("price_range", ""); pr != "" {
		b.WriteString(" Price range: " + pr + ".")
	}
	return b.String()
}

func locationText(record maitre.Record) string {
	switch v := record["location"].(type) {
	case string:
		return v
	case map[string]any:
		if addr, ok := v["address"].(string); ok {
			return addr
		}
		if city, ok := v["city"].(string); ok {
			return city
		}
	}
	return ""
}

// ChunkIntelligently packs text into chunks of at most chunkSize words,
// preferring paragraph boundaries and falling back to sentence packing for
// oversized paragraphs. Interior chunks carry overlap flags referencing the
// trailing words of their predecessor.
func (s *Structurer) ChunkIntelligently(text string) []maitre.Chunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var segments []string
	for _, p := range paragraphBreak.Split(text, -1) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(strings.Fields(p)) <= s.chunkSize {
			segments = append(segments, p)
			continue
		}
		segments = append(segments, packSentences(p, s.chunkSize)...)
	}

	// Greedy packing of segments into word-budgeted chunks.
	var contents []string
	var current strings.Builder
	currentWords := 0
	for _, seg := range segments {
		n := len(strings.Fields(seg))
		if currentWords > 0 && currentWords+n > s.chunkSize {
			contents = append(contents, current.String())
			current.Reset()
			currentWords = 0
		}
		if currentWords > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(seg)
		currentWords += n
	}
	if current.Len() > 0 {
		contents = append(contents, current.String())
	}

	chunks := make([]maitre.Chunk, len(contents))
	for i, content := range contents {
		chunks[i] = maitre.Chunk{
			ID:          fmt.Sprintf("intelligent_%d", i),
			Content:     content,
			Type:        maitre.ChunkText,
			SourceField: "text",
		}
		if i > 0 && s.overlapSize > 0 {
			prev := strings.Fields(contents[i-1])
			overlap := prev
			if len(prev) > s.overlapSize {
				overlap = prev[len(prev)-s.overlapSize:]
			}
			chunks[i].SetMeta("has_overlap", true)
			chunks[i].SetMeta("overlap_words", strings.Join(overlap, " "))
		}
	}
	return chunks
}

// packSentences packs an oversized paragraph into segments of at most
// maxWords words, never breaking inside a sentence unless a single sentence
// alone exceeds the budget.
func packSentences(paragraph string, maxWords int) []string {
	sentences := splitSentencesKeepingPunct(paragraph)

	var segments []string
	var current []string
	currentWords := 0
	for _, sent := range sentences {
		n := len(strings.Fields(sent))
		if n > maxWords {
			if len(current) > 0 {
				segments = append(segments, strings.Join(current, " "))
				current = nil
				currentWords = 0
			}
			segments = append(segments, splitOnWordWindows(sent, maxWords)...)
			continue
		}
		if currentWords+n > maxWords && len(current) > 0 {
			segments = append(segments, strings.Join(current, " "))
			current = nil
			currentWords = 0
		}
		current = append(current, sent)
		currentWords += n
	}
	if len(current) > 0 {
		segments = append(segments, strings.Join(current, " "))
	}
	return segments
}

// splitSentencesKeepingPunct splits on terminal punctuation but keeps it
// attached to the preceding sentence.
func splitSentencesKeepingPunct(text string) []string {
	var sentences []string
	start := 0
	for _, m := range sentenceBreak.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[start:m[1]])
		if s != "" {
			sentences = append(sentences, s)
		}
		start = m[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}
