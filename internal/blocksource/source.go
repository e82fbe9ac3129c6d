// Package blocksource extracts normalized-input content blocks from
// uploaded document files. Each format-specific source flattens its input
// into the block stream the pipeline consumes; structure recovery happens
// downstream.
package blocksource

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
)

// Source converts raw document bytes into content blocks.
type Source interface {
	Blocks(r io.Reader, filename string) ([]block.ContentBlock, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".html": true,
	".htm":  true,
	".pdf":  true,
	".docx": true,
}

// ForFile returns the appropriate source for a filename.
func ForFile(filename string) (Source, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextSource{}, nil
	case ".md", ".markdown":
		return &MarkdownSource{}, nil
	case ".csv":
		return &CSVSource{}, nil
	case ".html", ".htm":
		return &HTMLSource{}, nil
	case ".pdf":
		return &PDFSource{}, nil
	case ".docx":
		return &DOCXSource{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// TitleFromFilename strips the extension for use as a fallback title.
func TitleFromFilename(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// emitter accumulates blocks with running indices.
type emitter struct {
	blocks []block.ContentBlock
	page   int
	tables int
}

func (e *emitter) add(b block.ContentBlock) {
	b.Index = len(e.blocks)
	if b.Page == 0 {
		b.Page = max(1, e.page)
	}
	e.blocks = append(e.blocks, b)
}

func (e *emitter) text(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	e.add(block.ContentBlock{Kind: block.KindText, Text: s})
}

func (e *emitter) heading(level int, s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	e.add(block.ContentBlock{Kind: block.KindHeading, HeadingLevel: level, Text: s})
}

func (e *emitter) cell(tableID, row, col int, s string) {
	e.add(block.ContentBlock{Kind: block.KindTableCell, TableID: tableID, Row: row, Col: col, Text: s})
}

func (e *emitter) caption(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	e.add(block.ContentBlock{Kind: block.KindCaption, Text: s})
}

func (e *emitter) figure(alt string, payload []byte) {
	e.add(block.ContentBlock{Kind: block.KindFigure, Text: alt, Payload: payload})
}

// nextTableID reserves an id for a new table.
func (e *emitter) nextTableID() int {
	e.tables++
	return e.tables
}
