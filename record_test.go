package maitre

import (
	"reflect"
	"testing"
)

func TestFieldOrderDeterministic(t *testing.T) {
	r := Record{
		"zebra":     "z",
		"menu":      map[string]any{},
		"name":      "Luigi's",
		"_metadata": map[string]any{"url": "https://example.com"},
		"awards":    []any{"star"},
		"cuisine":   "Italian",
	}
	want := []string{"name", "cuisine", "menu", "awards", "zebra"}
	for i := 0; i < 10; i++ {
		if got := r.FieldOrder(); !reflect.DeepEqual(got, want) {
			t.Fatalf("iteration %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestFieldOrderSkipsReserved(t *testing.T) {
	r := Record{"_metadata": map[string]any{}, "_raw": "x", "name": "A"}
	if got := r.FieldOrder(); len(got) != 1 || got[0] != "name" {
		t.Errorf("expected [name], got %v", got)
	}
}

func TestRecordAccessors(t *testing.T) {
	r := Record{
		"name":     "Luigi's",
		"menu":     map[string]any{"pasta": "12"},
		"events":   []any{"wine night"},
		"capacity": 40,
	}
	if r.String("name", "") != "Luigi's" {
		t.Error("string accessor failed")
	}
	if r.String("capacity", "n/a") != "n/a" {
		t.Error("non-string should fall back to default")
	}
	if r.Map("menu") == nil || r.Map("name") != nil {
		t.Error("map accessor failed")
	}
	if r.List("events") == nil || r.List("menu") != nil {
		t.Error("list accessor failed")
	}
	if !r.Has("menu") || r.Has("missing") {
		t.Error("has accessor failed")
	}
}

func TestRecordNameDefault(t *testing.T) {
	if (Record{}).Name() != "Unknown" {
		t.Errorf("expected Unknown, got %s", (Record{}).Name())
	}
	if (Record{"name": "Chez Nous"}).Name() != "Chez Nous" {
		t.Error("name not returned")
	}
}

func TestExtractionDefaults(t *testing.T) {
	meta := (Record{}).Extraction()
	if meta.Confidence != 0.9 {
		t.Errorf("expected default confidence 0.9, got %g", meta.Confidence)
	}
	if meta.Method != "unknown" {
		t.Errorf("expected unknown method, got %s", meta.Method)
	}
}

func TestExtractionFromMetadata(t *testing.T) {
	r := Record{"_metadata": map[string]any{
		"confidence":        0.6,
		"extraction_method": "jsonld",
		"url":               "https://example.com/r",
		"scrape_timestamp":  "2026-08-01T00:00:00Z",
	}}
	meta := r.Extraction()
	if meta.Confidence != 0.6 || meta.Method != "jsonld" {
		t.Errorf("unexpected meta %+v", meta)
	}
	if meta.URL != "https://example.com/r" || meta.ScrapeTimestamp != "2026-08-01T00:00:00Z" {
		t.Errorf("unexpected provenance %+v", meta)
	}
}
