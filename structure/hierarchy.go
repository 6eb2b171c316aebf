package structure

import (
	"sort"
	"time"

	maitre "github.com/platewise/maitre"
)

// maxHierarchyDepth bounds recursive hierarchy building. Levels beyond this
// are dropped so adversarially nested input cannot recurse unboundedly.
const maxHierarchyDepth = 3

// CreateHierarchy builds a parent/child chunk tree over the record: the
// entity name roots the tree at level 0, nested maps become child_parent
// chunks, and leaf values become child chunks. Every parent-child pair gets
// a has_child edge and the inverse has_parent edge. Depth is capped at 3.
func (s *Structurer) CreateHierarchy(record maitre.Record) maitre.StructuredResult {
	start := time.Now()

	root := maitre.Chunk{
		ID:             "root",
		Content:        record.Name(),
		Type:           maitre.ChunkParent,
		SourceField:    "name",
		HierarchyLevel: 0,
	}

	chunks := []maitre.Chunk{root}
	var rels []maitre.Relationship
	for _, field := range record.FieldOrder() {
		if field == "name" {
			continue
		}
		chunks, rels = s.addHierarchyNode(chunks, rels, root.ID, field, field, record[field], 1)
	}

	result := s.assemble(record, chunks, annotateRelationships(rels), start)
	result.Metadata["structure_type"] = "hierarchical"
	result.Metadata["max_depth"] = maxHierarchyDepth
	return result
}

// addHierarchyNode appends the chunk (and subtree) for one value under the
// given parent, emitting the has_child/has_parent pair for every node.
func (s *Structurer) addHierarchyNode(chunks []maitre.Chunk, rels []maitre.Relationship, parentID, key, path string, value any, level int) ([]maitre.Chunk, []maitre.Relationship) {
	if level > maxHierarchyDepth {
		if s.logger != nil {
			s.logger.Debug("hierarchy depth cap reached", "path", path)
		}
		return chunks, rels
	}

	id := parentID + "_" + key

	nested, isMap := value.(map[string]any)
	if isMap && level < maxHierarchyDepth {
		node := maitre.Chunk{
			ID:             id,
			Content:        key,
			Type:           maitre.ChunkChildParent,
			SourceField:    path,
			HierarchyLevel: level,
			ParentID:       parentID,
		}
		chunks = append(chunks, node)
		rels = appendParentChildPair(rels, parentID, id)

		keys := make([]string, 0, len(nested))
		for k := range nested {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			chunks, rels = s.addHierarchyNode(chunks, rels, id, k, path+"."+k, nested[k], level+1)
		}
		return chunks, rels
	}

	leaf := maitre.Chunk{
		ID:             id,
		Content:        formatValue(value),
		Type:           maitre.ChunkChild,
		SourceField:    path,
		HierarchyLevel: level,
		ParentID:       parentID,
	}
	chunks = append(chunks, leaf)
	return chunks, appendParentChildPair(rels, parentID, id)
}

func appendParentChildPair(rels []maitre.Relationship, parentID, childID string) []maitre.Relationship {
	return append(rels,
		maitre.Relationship{
			From:       parentID,
			To:         childID,
			Type:       maitre.RelHasChild,
			Confidence: 0.9,
		},
		maitre.Relationship{
			From:       childID,
			To:         parentID,
			Type:       maitre.RelHasParent,
			Confidence: 0.9,
		},
	)
}
