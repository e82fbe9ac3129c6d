package blocksource

import (
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
)

// PDFSource handles PDF files. It reads positioned text rows with the Go
// library first, then falls back to pdftotext if available. Headings are
// recovered from font sizes; "Table N" / "Figure N" rows become captions.
type PDFSource struct {
	FallbackPdftotext bool
}

// letterHeight flips the PDF's bottom-left origin into page coordinates.
// Only relative vertical gaps matter downstream, so the exact page height
// is not critical.
const letterHeight = 792.0

var captionRe = regexp.MustCompile(`^(Table|Figure|Fig\.)\s+\d+`)

type pdfRow struct {
	page int
	text string
	size float64
	box  block.BBox
}

func (s *PDFSource) Blocks(r io.Reader, filename string) ([]block.ContentBlock, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docreporter-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	rows, err := extractPDFRows(tmpPath)
	if err != nil || len(rows) == 0 {
		if s.FallbackPdftotext {
			return extractPdftotext(tmpPath)
		}
		if err == nil {
			err = fmt.Errorf("no extractable text")
		}
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	return classifyRows(rows), nil
}

func extractPDFRows(path string) ([]pdfRow, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []pdfRow
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			var sb strings.Builder
			size := 0.0
			x0, x1 := math.Inf(1), math.Inf(-1)
			for _, t := range row.Content {
				sb.WriteString(t.S)
				if t.FontSize > size {
					size = t.FontSize
				}
				if t.X < x0 {
					x0 = t.X
				}
				if t.X+t.W > x1 {
					x1 = t.X + t.W
				}
			}
			text := strings.TrimSpace(sb.String())
			if text == "" {
				continue
			}
			yTop := letterHeight - float64(row.Position)
			out = append(out, pdfRow{
				page: i,
				text: text,
				size: size,
				box:  block.BBox{X0: x0, Y0: yTop - size, X1: x1, Y1: yTop},
			})
		}
	}
	return out, nil
}

// classifyRows turns raw rows into blocks: the dominant font size is body
// text, noticeably larger short rows are headings (larger size means
// shallower level), and caption-pattern rows become captions.
func classifyRows(rows []pdfRow) []block.ContentBlock {
	body := bodyFontSize(rows)

	var headingSizes []float64
	for _, row := range rows {
		if isHeadingRow(row, body) {
			headingSizes = append(headingSizes, round1(row.size))
		}
	}
	levelFor := headingLevels(headingSizes)

	var e emitter
	for _, row := range rows {
		b := block.ContentBlock{Kind: block.KindText, Page: row.page, BBox: row.box, Text: row.text}
		switch {
		case captionRe.MatchString(row.text):
			b.Kind = block.KindCaption
		case isHeadingRow(row, body):
			b.Kind = block.KindHeading
			b.HeadingLevel = levelFor[round1(row.size)]
		}
		e.add(b)
	}
	return e.blocks
}

func isHeadingRow(row pdfRow, body float64) bool {
	if row.size < body+1.5 {
		return false
	}
	if len([]rune(row.text)) > 120 {
		return false
	}
	return !strings.HasSuffix(row.text, ".")
}

// bodyFontSize returns the most common rounded font size.
func bodyFontSize(rows []pdfRow) float64 {
	counts := make(map[float64]int)
	for _, row := range rows {
		counts[round1(row.size)]++
	}
	best, bestN := 0.0, 0
	for size, n := range counts {
		if n > bestN || (n == bestN && size < best) {
			best, bestN = size, n
		}
	}
	return best
}

// headingLevels maps distinct heading font sizes to levels 1..6, largest
// first.
func headingLevels(sizes []float64) map[float64]int {
	distinct := make(map[float64]bool)
	for _, s := range sizes {
		distinct[s] = true
	}
	ordered := make([]float64, 0, len(distinct))
	for s := range distinct {
		ordered = append(ordered, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(ordered)))

	levels := make(map[float64]int, len(ordered))
	for i, s := range ordered {
		levels[s] = min(i+1, 6)
	}
	return levels
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// extractPdftotext shells out to poppler's pdftotext and emits plain
// paragraph blocks, one page per form feed.
func extractPdftotext(path string) ([]block.ContentBlock, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	var e emitter
	for i, page := range strings.Split(string(out), "\f") {
		e.page = i + 1
		for _, para := range strings.Split(page, "\n\n") {
			e.text(strings.TrimSpace(para))
		}
	}
	if len(e.blocks) == 0 {
		return nil, fmt.Errorf("pdftotext produced no text")
	}
	return e.blocks, nil
}
