// Package digest reduces tables and figures to report-sized artifacts:
// either a sampled digest table or a chart specification.
package digest

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/VishnuVamsi7/DocReporter/internal/doctree"
	"github.com/VishnuVamsi7/DocReporter/internal/salience"
)

// Config controls the chart-vs-digest heuristic. All cutoffs are product
// tunables, surfaced in the pipeline configuration.
type Config struct {
	// MaxRows caps digest tables; rows beyond it are sampled away and
	// counted in OmittedRows.
	MaxRows int
	// ChartMinNumericRows is the minimum data rows for a chart.
	ChartMinNumericRows int
	// ChartMaxCategoricalDims is the maximum non-numeric columns for a
	// chart.
	ChartMaxCategoricalDims int
}

// DefaultConfig returns the defaults used by the pipeline.
func DefaultConfig() Config {
	return Config{
		MaxRows:                 10,
		ChartMinNumericRows:     3,
		ChartMaxCategoricalDims: 2,
	}
}

// ChartKind selects the rendering.
type ChartKind string

const (
	ChartBar  ChartKind = "bar"
	ChartLine ChartKind = "line"
)

// Series is one named sequence of values.
type Series struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

// ChartSpec describes a generated chart: kind, axes, and series data.
// Rendering to pixels is the writer's job.
type ChartSpec struct {
	NodeID  int       `json:"node_id"`
	Number  int       `json:"number"`
	Title   string    `json:"title"`
	Kind    ChartKind `json:"kind"`
	XLabels []string  `json:"x_labels"`
	XTitle  string    `json:"x_title,omitempty"`
	YTitle  string    `json:"y_title,omitempty"`
	Series  []Series  `json:"series"`
}

// TableDigest is a reduced table: header, sampled rows, an aggregate row
// for numeric columns, and the count of omitted rows.
type TableDigest struct {
	NodeID      int        `json:"node_id"`
	Number      int        `json:"number"`
	Caption     string     `json:"caption,omitempty"`
	Header      []string   `json:"header"`
	Rows        [][]string `json:"rows"`
	Aggregate   []string   `json:"aggregate,omitempty"`
	OmittedRows int        `json:"omitted_rows"`
}

// FigureDigest passes a figure through with its caption compressed.
type FigureDigest struct {
	NodeID  int    `json:"node_id"`
	Number  int    `json:"number"`
	Caption string `json:"caption,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Payload []byte `json:"-"`
}

// Result is the digest of one table or figure node; exactly one field is
// set.
type Result struct {
	Table  *TableDigest  `json:"table,omitempty"`
	Chart  *ChartSpec    `json:"chart,omitempty"`
	Figure *FigureDigest `json:"figure,omitempty"`
}

// DigestTable reduces a table node. Numeric tables with at most
// ChartMaxCategoricalDims categorical columns and at least
// ChartMinNumericRows data rows become charts; everything else becomes a
// digest table. caption is the (already compressed) caption text.
func DigestTable(n *doctree.Node, caption string, cfg Config) Result {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 10
	}
	if cfg.ChartMinNumericRows <= 0 {
		cfg.ChartMinNumericRows = 3
	}

	shape := analyzeTable(n.Rows)
	if len(shape.numericCols) >= 1 &&
		len(shape.categoricalCols) <= cfg.ChartMaxCategoricalDims &&
		shape.numericRows >= cfg.ChartMinNumericRows {
		if spec := buildChart(n, caption, shape); spec != nil {
			return Result{Chart: spec}
		}
	}
	return Result{Table: reduceTable(n, caption, cfg.MaxRows)}
}

// DigestFigure passes the figure through; the caption arrives already
// compressed like a small unit.
func DigestFigure(n *doctree.Node, caption string) Result {
	return Result{Figure: &FigureDigest{
		NodeID:  n.ID,
		Number:  n.Number,
		Caption: caption,
		Alt:     n.Text,
		Payload: n.Payload,
	}}
}

type tableShape struct {
	header          []string
	dataRows        [][]string
	numericCols     []int
	categoricalCols []int
	numericRows     int
}

// analyzeTable classifies columns as numeric (>= 80% parseable cells) or
// categorical, treating the first row as a header.
func analyzeTable(rows [][]string) tableShape {
	var shape tableShape
	if len(rows) == 0 {
		return shape
	}
	shape.header = rows[0]
	if len(rows) > 1 {
		shape.dataRows = rows[1:]
	}

	cols := 0
	for _, r := range rows {
		if len(r) > cols {
			cols = len(r)
		}
	}

	for c := 0; c < cols; c++ {
		total, numeric := 0, 0
		for _, row := range shape.dataRows {
			if c >= len(row) || strings.TrimSpace(row[c]) == "" {
				continue
			}
			total++
			if _, ok := salience.ParseNumeric(row[c]); ok {
				numeric++
			}
		}
		if total > 0 && float64(numeric)/float64(total) >= 0.8 {
			shape.numericCols = append(shape.numericCols, c)
		} else {
			shape.categoricalCols = append(shape.categoricalCols, c)
		}
	}

	for _, row := range shape.dataRows {
		hasNumeric := false
		for _, c := range shape.numericCols {
			if c < len(row) {
				if _, ok := salience.ParseNumeric(row[c]); ok {
					hasNumeric = true
					break
				}
			}
		}
		if hasNumeric {
			shape.numericRows++
		}
	}
	return shape
}

// buildChart turns the table into a chart spec. The row axis comes from
// the first categorical column (or the row ordinal); the kind is line for
// ordinal/time-like axes, bar for plain categories.
func buildChart(n *doctree.Node, caption string, shape tableShape) *ChartSpec {
	if len(shape.dataRows) == 0 || len(shape.numericCols) == 0 {
		return nil
	}

	labelCol := -1
	if len(shape.categoricalCols) > 0 {
		labelCol = shape.categoricalCols[0]
	}

	labels := make([]string, 0, len(shape.dataRows))
	for i, row := range shape.dataRows {
		if labelCol >= 0 && labelCol < len(row) {
			labels = append(labels, strings.TrimSpace(row[labelCol]))
		} else {
			labels = append(labels, fmt.Sprintf("%d", i+1))
		}
	}

	series := make([]Series, 0, len(shape.numericCols))
	for _, c := range shape.numericCols {
		name := fmt.Sprintf("col %d", c+1)
		if c < len(shape.header) && strings.TrimSpace(shape.header[c]) != "" {
			name = strings.TrimSpace(shape.header[c])
		}
		values := make([]float64, len(shape.dataRows))
		for i, row := range shape.dataRows {
			if c < len(row) {
				if v, ok := salience.ParseNumeric(row[c]); ok {
					values[i] = v
				}
			}
		}
		series = append(series, Series{Name: name, Values: values})
	}

	kind := ChartBar
	if isOrdinalAxis(labels) {
		kind = ChartLine
	}

	title := caption
	if title == "" {
		title = fmt.Sprintf("Table %d", n.Number)
	}
	xTitle := ""
	if labelCol >= 0 && labelCol < len(shape.header) {
		xTitle = strings.TrimSpace(shape.header[labelCol])
	}

	return &ChartSpec{
		NodeID:  n.ID,
		Number:  n.Number,
		Title:   title,
		Kind:    kind,
		XLabels: labels,
		XTitle:  xTitle,
		Series:  series,
	}
}

var (
	yearRe    = regexp.MustCompile(`^(19|20)\d{2}$`)
	quarterRe = regexp.MustCompile(`(?i)^(q[1-4]|fy\d{2,4})\b`)
	monthRe   = regexp.MustCompile(`(?i)^(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)`)
)

// isOrdinalAxis reports whether the labels read as a time-like or ordered
// sequence, which calls for a line chart instead of bars.
func isOrdinalAxis(labels []string) bool {
	if len(labels) == 0 {
		return false
	}
	ordinal := 0
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if yearRe.MatchString(l) || quarterRe.MatchString(l) || monthRe.MatchString(l) {
			ordinal++
			continue
		}
		if _, ok := salience.ParseNumeric(l); ok {
			ordinal++
		}
	}
	return float64(ordinal) >= 0.8*float64(len(labels))
}

// reduceTable samples rows down to maxRows and appends numeric aggregates.
// A table already within the cap is returned unchanged (digesting is
// idempotent).
func reduceTable(n *doctree.Node, caption string, maxRows int) *TableDigest {
	d := &TableDigest{
		NodeID:  n.ID,
		Number:  n.Number,
		Caption: caption,
	}
	if len(n.Rows) == 0 {
		return d
	}
	d.Header = n.Rows[0]
	data := n.Rows[1:]

	if len(data) <= maxRows {
		d.Rows = data
		return d
	}

	d.Rows = data[:maxRows]
	d.OmittedRows = len(data) - maxRows

	shape := analyzeTable(n.Rows)
	if len(shape.numericCols) > 0 {
		agg := make([]string, len(d.Header))
		for i := range agg {
			agg[i] = ""
		}
		if len(agg) > 0 {
			agg[0] = "Total"
		}
		for _, c := range shape.numericCols {
			sum := 0.0
			for _, row := range data {
				if c < len(row) {
					if v, ok := salience.ParseNumeric(row[c]); ok {
						sum += v
					}
				}
			}
			if c < len(agg) {
				agg[c] = formatNumber(sum)
			}
		}
		d.Aggregate = agg
	}
	return d
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
