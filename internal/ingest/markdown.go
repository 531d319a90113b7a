package ingest

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// ExtractMarkdown parses markdown and returns its plain text plus the
// first level-1 heading as title. Code blocks are kept; formatting
// markers are dropped.
func ExtractMarkdown(src []byte) (plain string, title string) {
	doc := markdown.Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if isBlock(n) {
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 && title == "" {
				title = string(node.Text(src))
			}
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.FencedCodeBlock:
			for i := 0; i < node.Lines().Len(); i++ {
				line := node.Lines().At(i)
				sb.Write(line.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			for i := 0; i < node.Lines().Len(); i++ {
				line := node.Lines().At(i)
				sb.Write(line.Value(src))
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan:
			// Children are Text nodes; handled normally.
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(sb.String()), title
}

func isBlock(n ast.Node) bool {
	switch n.(type) {
	case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.Blockquote, *ast.FencedCodeBlock, *ast.CodeBlock:
		return true
	}
	return false
}
