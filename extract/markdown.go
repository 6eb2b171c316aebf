package extract

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownExtractor strips markdown formatting to plain text by walking the
// parsed AST, so link targets, emphasis markers, and code fences never leak
// into chunk content.
type MarkdownExtractor struct{}

var _ Extractor = MarkdownExtractor{}

func (MarkdownExtractor) Extract(content []byte) (string, error) {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(content))

	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			b.Write(node.Segment.Value(content))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			// Code blocks carry no prose; skip their contents entirely.
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}

	return collapseBlankLines(strings.TrimSpace(b.String())), nil
}

// collapseBlankLines reduces runs of three or more newlines to a paragraph
// break.
func collapseBlankLines(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
