package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
)

// exportCSV flattens the chunk list into rows. The header derives from the
// first chunk's keys with nested metadata flattened to metadata_<key>
// columns; list and map cell values are JSON-stringified.
func exportCSV(data map[string]any) ([]byte, error) {
	chunks := chunkList(data)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if len(chunks) == 0 {
		w.Flush()
		return buf.Bytes(), w.Error()
	}

	header := csvHeader(chunks[0])
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}

	for _, c := range chunks {
		flat := flattenChunk(c)
		row := make([]string, len(header))
		for i, col := range header {
			row[i] = csvCell(flat[col])
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("csv row: %w", err)
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// csvHeader derives the column order from one chunk: the well-known columns
// first, then remaining top-level keys sorted, then metadata_<key> columns
// sorted.
func csvHeader(chunk map[string]any) []string {
	known := []string{"id", "content", "type", "source_field"}
	inKnown := map[string]bool{}
	for _, k := range known {
		inKnown[k] = true
	}

	var header []string
	for _, k := range known {
		if _, ok := chunk[k]; ok {
			header = append(header, k)
		}
	}

	var rest, metaCols []string
	for k, v := range chunk {
		if inKnown[k] {
			continue
		}
		if k == "metadata" {
			if meta, ok := v.(map[string]any); ok {
				for mk := range meta {
					metaCols = append(metaCols, "metadata_"+mk)
				}
				continue
			}
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	sort.Strings(metaCols)
	return append(append(header, rest...), metaCols...)
}

func flattenChunk(chunk map[string]any) map[string]any {
	flat := make(map[string]any, len(chunk))
	for k, v := range chunk {
		if k == "metadata" {
			if meta, ok := v.(map[string]any); ok {
				for mk, mv := range meta {
					flat["metadata_"+mk] = mv
				}
				continue
			}
		}
		flat[k] = v
	}
	return flat
}

func csvCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any, map[string]any:
		raw, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(raw)
	default:
		return fmt.Sprintf("%v", t)
	}
}
