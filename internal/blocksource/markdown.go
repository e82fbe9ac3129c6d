package blocksource

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
)

// MarkdownSource handles Markdown files using goldmark. Pipe tables become
// table-cell blocks; standalone images become figures.
type MarkdownSource struct{}

func (s *MarkdownSource) Blocks(r io.Reader, filename string) ([]block.ContentBlock, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	reader := text.NewReader(src)
	doc := md.Parser().Parse(reader)

	var e emitter
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			e.heading(node.Level, extractText(node, src))

		case *east.Table:
			emitTable(&e, node, src)

		case *ast.Paragraph:
			if img := soleImage(node); img != nil {
				e.figure(extractText(node, src), nil)
				continue
			}
			e.text(extractText(node, src))

		default:
			e.text(extractText(n, src))
		}
	}
	return e.blocks, nil
}

// emitTable flattens a goldmark table into row/col-addressed cells.
func emitTable(e *emitter, tbl *east.Table, src []byte) {
	id := e.nextTableID()
	row := 0
	for section := tbl.FirstChild(); section != nil; section = section.NextSibling() {
		switch sec := section.(type) {
		case *east.TableHeader:
			emitTableRow(e, sec, id, row, src)
			row++
		case *east.TableRow:
			emitTableRow(e, sec, id, row, src)
			row++
		}
	}
}

func emitTableRow(e *emitter, rowNode ast.Node, tableID, row int, src []byte) {
	col := 0
	for c := rowNode.FirstChild(); c != nil; c = c.NextSibling() {
		if cell, ok := c.(*east.TableCell); ok {
			e.cell(tableID, row, col, extractText(cell, src))
			col++
		}
	}
}

// soleImage returns the image when a paragraph contains nothing else.
func soleImage(p *ast.Paragraph) *ast.Image {
	img, ok := p.FirstChild().(*ast.Image)
	if ok && p.ChildCount() == 1 {
		return img
	}
	return nil
}

// extractText gets the text content of a goldmark AST node. Blocks with
// source lines use them directly; otherwise inline children are walked.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && n.Lines().Len() > 0 {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		return strings.TrimSpace(buf.String())
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			if t.HardLineBreak() || t.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		} else {
			// Recurse for nested inlines.
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
