package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// exportXLSX writes chunks, relationships, and metadata to separate sheets
// of a spreadsheet, reusing the CSV flattening for chunk columns.
func exportXLSX(data map[string]any) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const chunkSheet = "Chunks"
	if err := f.SetSheetName("Sheet1", chunkSheet); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	chunks := chunkList(data)
	if len(chunks) > 0 {
		header := csvHeader(chunks[0])
		for col, name := range header {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(chunkSheet, cell, name); err != nil {
				return nil, fmt.Errorf("xlsx: %w", err)
			}
		}
		for row, c := range chunks {
			flat := flattenChunk(c)
			for col, name := range header {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				if err := f.SetCellValue(chunkSheet, cell, csvCell(flat[name])); err != nil {
					return nil, fmt.Errorf("xlsx: %w", err)
				}
			}
		}
	}

	if rels := relationshipList(data); len(rels) > 0 {
		const relSheet = "Relationships"
		if _, err := f.NewSheet(relSheet); err != nil {
			return nil, fmt.Errorf("xlsx: %w", err)
		}
		relHeader := []string{"from", "to", "type", "confidence", "bidirectional"}
		for col, name := range relHeader {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(relSheet, cell, name); err != nil {
				return nil, fmt.Errorf("xlsx: %w", err)
			}
		}
		for row, r := range rels {
			for col, name := range relHeader {
				cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
				if err := f.SetCellValue(relSheet, cell, csvCell(r[name])); err != nil {
					return nil, fmt.Errorf("xlsx: %w", err)
				}
			}
		}
	}

	if meta, ok := data["metadata"].(map[string]any); ok && len(meta) > 0 {
		const metaSheet = "Metadata"
		if _, err := f.NewSheet(metaSheet); err != nil {
			return nil, fmt.Errorf("xlsx: %w", err)
		}
		row := 1
		for _, k := range sortedKeys(meta) {
			keyCell, _ := excelize.CoordinatesToCellName(1, row)
			valCell, _ := excelize.CoordinatesToCellName(2, row)
			if err := f.SetCellValue(metaSheet, keyCell, k); err != nil {
				return nil, fmt.Errorf("xlsx: %w", err)
			}
			if err := f.SetCellValue(metaSheet, valCell, csvCell(meta[k])); err != nil {
				return nil, fmt.Errorf("xlsx: %w", err)
			}
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
