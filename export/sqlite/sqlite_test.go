package sqlite

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	maitre "github.com/platewise/maitre"
)

func testSink(t *testing.T) *Sink {
	t.Helper()
	s := New(filepath.Join(t.TempDir(), "test.db"))
	t.Cleanup(func() { s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func sampleResult() maitre.StructuredResult {
	return maitre.StructuredResult{
		Chunks: []maitre.Chunk{
			{ID: "name", Content: "Luigi's Trattoria", Type: maitre.ChunkText, SourceField: "name",
				Metadata: map[string]any{"entity_name": "Luigi's Trattoria"}},
			{ID: "menu_carbonara", Content: "carbonara: 18", Type: maitre.ChunkStructured,
				SourceField: "menu.carbonara", HierarchyLevel: 1, ParentID: "name"},
		},
		Relationships: []maitre.Relationship{
			{From: "restaurant_info", To: "menu_items", Type: maitre.HasField("menu"),
				Confidence: 0.9, Bidirectional: true},
		},
		Metadata:       map[string]any{"source": "Luigi's Trattoria", "schema_version": "1.0"},
		ProcessingTime: 0.25,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testSink(t)
	ctx := context.Background()

	id, err := s.Save(ctx, sampleResult())
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" {
		t.Fatal("expected a result id")
	}

	loaded, err := s.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	want := sampleResult()
	if len(loaded.Chunks) != len(want.Chunks) {
		t.Fatalf("expected %d chunks, got %d", len(want.Chunks), len(loaded.Chunks))
	}
	for i := range want.Chunks {
		if loaded.Chunks[i].ID != want.Chunks[i].ID {
			t.Errorf("chunk %d: expected id %s, got %s", i, want.Chunks[i].ID, loaded.Chunks[i].ID)
		}
		if loaded.Chunks[i].Content != want.Chunks[i].Content {
			t.Errorf("chunk %d content mismatch", i)
		}
		if loaded.Chunks[i].Type != want.Chunks[i].Type {
			t.Errorf("chunk %d type mismatch", i)
		}
	}
	if loaded.Chunks[1].ParentID != "name" || loaded.Chunks[1].HierarchyLevel != 1 {
		t.Errorf("hierarchy fields lost: %+v", loaded.Chunks[1])
	}
	if !reflect.DeepEqual(loaded.Chunks[0].Metadata, want.Chunks[0].Metadata) {
		t.Errorf("chunk metadata mismatch: %v", loaded.Chunks[0].Metadata)
	}

	if len(loaded.Relationships) != 1 {
		t.Fatalf("expected 1 relationship, got %d", len(loaded.Relationships))
	}
	rel := loaded.Relationships[0]
	if rel.From != "restaurant_info" || rel.To != "menu_items" || !rel.Bidirectional {
		t.Errorf("relationship mismatch: %+v", rel)
	}
	if rel.Confidence != 0.9 {
		t.Errorf("confidence %g, expected 0.9", rel.Confidence)
	}

	if loaded.Metadata["source"] != "Luigi's Trattoria" {
		t.Errorf("metadata mismatch: %v", loaded.Metadata)
	}
	if loaded.ProcessingTime != 0.25 {
		t.Errorf("processing time %g, expected 0.25", loaded.ProcessingTime)
	}
}

func TestLoadPreservesChunkOrder(t *testing.T) {
	s := testSink(t)
	ctx := context.Background()

	result := maitre.StructuredResult{Metadata: map[string]any{"source": "x"}}
	for i := 0; i < 20; i++ {
		result.Chunks = append(result.Chunks, maitre.Chunk{
			ID:      maitre.NewID(),
			Content: "chunk",
			Type:    maitre.ChunkText,
		})
	}

	id, err := s.Save(ctx, result)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := s.Load(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for i := range result.Chunks {
		if loaded.Chunks[i].ID != result.Chunks[i].ID {
			t.Fatalf("order broken at %d", i)
		}
	}
}

func TestLoadMissingResult(t *testing.T) {
	s := testSink(t)
	if _, err := s.Load(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestSaveTwoResultsIsolated(t *testing.T) {
	s := testSink(t)
	ctx := context.Background()

	a, err := s.Save(ctx, sampleResult())
	if err != nil {
		t.Fatalf("save a: %v", err)
	}
	b, err := s.Save(ctx, maitre.StructuredResult{
		Chunks:   []maitre.Chunk{{ID: "only", Content: "solo", Type: maitre.ChunkText}},
		Metadata: map[string]any{"source": "other"},
	})
	if err != nil {
		t.Fatalf("save b: %v", err)
	}
	if a == b {
		t.Fatal("result ids should differ")
	}

	loadedB, err := s.Load(ctx, b)
	if err != nil {
		t.Fatalf("load b: %v", err)
	}
	if len(loadedB.Chunks) != 1 || loadedB.Chunks[0].ID != "only" {
		t.Errorf("result b leaked chunks: %+v", loadedB.Chunks)
	}
}
