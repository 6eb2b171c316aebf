package export

import (
	"encoding/json"
	"iter"
	"sort"
)

// ExportStream lazily yields one JSON line per chunk, then the metadata
// line, then one line per relationship, matching the layout of the jsonl
// format without materializing the full output. The sequence is pulled
// synchronously by the caller; this is a memory optimization for large
// results, not a concurrency mechanism.
func (m *Manager) ExportStream(data map[string]any) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, c := range chunkList(data) {
			line, err := json.Marshal(c)
			if err != nil {
				continue
			}
			if !yield(string(line)) {
				return
			}
		}

		if !m.includeMetadata {
			return
		}

		if meta, ok := data["metadata"].(map[string]any); ok {
			line, err := json.Marshal(map[string]any{"type": "metadata", "data": meta})
			if err == nil && !yield(string(line)) {
				return
			}
		}
		for _, r := range relationshipList(data) {
			line, err := json.Marshal(map[string]any{"type": "relationship", "data": r})
			if err != nil {
				continue
			}
			if !yield(string(line)) {
				return
			}
		}
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
