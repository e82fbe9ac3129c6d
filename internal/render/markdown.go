// Package render turns the assembled report document into output
// artifacts: a Markdown file and PNG charts.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/VishnuVamsi7/DocReporter/internal/digest"
	"github.com/VishnuVamsi7/DocReporter/internal/report"
)

// MarkdownWriter outputs a report document as Markdown.
type MarkdownWriter struct {
	output io.Writer

	// ChartDir, when set, is the directory charts were rendered into;
	// chart fragments become image links. Unset, charts degrade to
	// their data tables.
	ChartDir string
}

// NewMarkdownWriter creates a writer that outputs to w.
func NewMarkdownWriter(w io.Writer) *MarkdownWriter {
	return &MarkdownWriter{output: w}
}

// Write renders the whole document.
func (w *MarkdownWriter) Write(doc *report.Document) error {
	md := markdown.NewMarkdown(w.output)

	md.H1(doc.Title)
	md.PlainText("")

	for _, sec := range doc.Sections {
		w.writeSection(md, sec)
	}

	w.writeManifest(md, doc.Manifest)
	return md.Build()
}

func (w *MarkdownWriter) writeSection(md *markdown.Markdown, sec *report.Section) {
	w.writeHeading(md, sec.Level+1, sec.Title)
	md.PlainText("")

	for _, frag := range sec.Fragments {
		w.writeFragment(md, frag)
	}
	for _, child := range sec.Children {
		w.writeSection(md, child)
	}
}

func (w *MarkdownWriter) writeHeading(md *markdown.Markdown, level int, title string) {
	switch {
	case level <= 2:
		md.H2(title)
	case level == 3:
		md.H3(title)
	case level == 4:
		md.H4(title)
	case level == 5:
		md.H5(title)
	default:
		md.H6(title)
	}
}

func (w *MarkdownWriter) writeFragment(md *markdown.Markdown, frag report.Fragment) {
	switch frag.Kind {
	case report.FragmentText:
		md.PlainText(frag.Text)
		md.PlainText("")

	case report.FragmentStub:
		md.PlainText("*" + frag.Text + "*")
		md.PlainText("")

	case report.FragmentTable:
		w.writeTable(md, frag.Table)

	case report.FragmentChart:
		w.writeChart(md, frag.Chart)

	case report.FragmentFigure:
		w.writeFigure(md, frag.Figure)
	}
}

func (w *MarkdownWriter) writeTable(md *markdown.Markdown, t *digest.TableDigest) {
	if t.Caption != "" {
		md.PlainText(fmt.Sprintf("**Table %d.** %s", t.Number, t.Caption))
		md.PlainText("")
	}
	rows := t.Rows
	if len(t.Aggregate) > 0 {
		rows = append(append([][]string{}, rows...), t.Aggregate)
	}
	md.Table(markdown.TableSet{
		Header: t.Header,
		Rows:   rows,
	})
	if t.OmittedRows > 0 {
		md.PlainText(fmt.Sprintf("*%d rows omitted.*", t.OmittedRows))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeChart(md *markdown.Markdown, c *digest.ChartSpec) {
	if w.ChartDir != "" {
		md.PlainText(fmt.Sprintf("![%s](%s/%s)", c.Title, w.ChartDir, ChartFilename(c)))
		md.PlainText("")
		return
	}

	// Without rendered images the chart's data table stands in.
	header := append([]string{""}, c.XLabels...)
	rows := make([][]string, 0, len(c.Series))
	for _, s := range c.Series {
		row := make([]string, 0, len(s.Values)+1)
		row = append(row, s.Name)
		for _, v := range s.Values {
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		rows = append(rows, row)
	}
	if c.Title != "" {
		md.PlainText(fmt.Sprintf("**Table %d.** %s", c.Number, c.Title))
		md.PlainText("")
	}
	md.Table(markdown.TableSet{Header: header, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeFigure(md *markdown.Markdown, f *digest.FigureDigest) {
	label := fmt.Sprintf("**Figure %d.**", f.Number)
	switch {
	case f.Caption != "":
		md.PlainText(label + " " + f.Caption)
	case f.Alt != "":
		md.PlainText(label + " " + f.Alt)
	default:
		md.PlainText(label)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeManifest(md *markdown.Markdown, m report.Manifest) {
	md.H2("Coverage")
	md.PlainText("")
	md.BulletList(
		fmt.Sprintf("%d units total", m.TotalUnits),
		fmt.Sprintf("%d compressed", m.Compressed),
		fmt.Sprintf("%d dropped", m.Dropped),
		fmt.Sprintf("%d truncated", m.Truncated),
		fmt.Sprintf("%d with entity loss", m.PreservationFailed),
	)
	md.PlainText("")

	if len(m.Entries) == 0 {
		return
	}
	rows := make([][]string, 0, len(m.Entries))
	for _, e := range m.Entries {
		rows = append(rows, []string{e.UnitID, e.Section, string(e.Disposition), e.Note})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Unit", "Section", "Disposition", "Note"},
		Rows:   rows,
	})
}
