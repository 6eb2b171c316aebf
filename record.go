package maitre

import "sort"

// Record is a loosely-typed extraction result from the upstream scraper or
// LLM layer: string, map, list, or scalar values keyed by field name.
// Missing keys never error; every accessor substitutes a default. Keys with
// a leading underscore are reserved and are never chunked.
type Record map[string]any

// preferredFieldOrder fixes the iteration order of well-known restaurant
// fields so chunk IDs come out identical across runs. Fields not listed here
// follow in sorted order.
var preferredFieldOrder = []string{
	"name", "cuisine", "description", "menu", "location",
	"hours", "contact", "price_range", "ambiance", "specialties",
	"specials", "events", "reviews", "dietary_options",
}

// FieldOrder returns the record's non-reserved field names in deterministic
// order: well-known restaurant fields first, then the rest sorted.
func (r Record) FieldOrder() []string {
	rank := make(map[string]int, len(preferredFieldOrder))
	for i, f := range preferredFieldOrder {
		rank[f] = i
	}

	var known, rest []string
	for k := range r {
		if len(k) > 0 && k[0] == '_' {
			continue
		}
		if _, ok := rank[k]; ok {
			known = append(known, k)
		} else {
			rest = append(rest, k)
		}
	}
	sort.Slice(known, func(i, j int) bool { return rank[known[i]] < rank[known[j]] })
	sort.Strings(rest)
	return append(known, rest...)
}

// Has reports whether a non-reserved field is present.
func (r Record) Has(field string) bool {
	_, ok := r[field]
	return ok
}

// String returns the field as a string, or def when absent or not a string.
func (r Record) String(field, def string) string {
	if s, ok := r[field].(string); ok {
		return s
	}
	return def
}

// Map returns the field as a nested map, or nil.
func (r Record) Map(field string) map[string]any {
	if m, ok := r[field].(map[string]any); ok {
		return m
	}
	return nil
}

// List returns the field as a list, or nil.
func (r Record) List(field string) []any {
	if l, ok := r[field].([]any); ok {
		return l
	}
	return nil
}

// Name returns the entity name, defaulting to "Unknown".
func (r Record) Name() string {
	return r.String("name", "Unknown")
}

// ExtractionMeta carries provenance from the upstream extraction layer,
// taken from the reserved _metadata field.
type ExtractionMeta struct {
	Confidence      float64
	Method          string
	URL             string
	ScrapeTimestamp string
}

// Extraction returns the record's extraction metadata with defaults applied
// for anything missing.
func (r Record) Extraction() ExtractionMeta {
	meta := ExtractionMeta{Confidence: 0.9, Method: "unknown"}
	m, ok := r["_metadata"].(map[string]any)
	if !ok {
		return meta
	}
	switch v := m["confidence"].(type) {
	case float64:
		meta.Confidence = v
	case int:
		meta.Confidence = float64(v)
	}
	if s, ok := m["extraction_method"].(string); ok {
		meta.Method = s
	}
	if s, ok := m["url"].(string); ok {
		meta.URL = s
	}
	if s, ok := m["scrape_timestamp"].(string); ok {
		meta.ScrapeTimestamp = s
	}
	return meta
}
