package render

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"

	"github.com/VishnuVamsi7/DocReporter/internal/digest"
	"github.com/VishnuVamsi7/DocReporter/internal/report"
)

const (
	chartWidth  = 800
	chartHeight = 480

	marginLeft   = 70.0
	marginRight  = 30.0
	marginTop    = 50.0
	marginBottom = 70.0
)

// series colors, cycled
var palette = [][3]float64{
	{0.22, 0.49, 0.72},
	{0.89, 0.47, 0.15},
	{0.30, 0.68, 0.29},
	{0.84, 0.23, 0.27},
	{0.58, 0.40, 0.74},
}

// ChartFilename returns the deterministic file name for a chart.
func ChartFilename(c *digest.ChartSpec) string {
	return fmt.Sprintf("table-%d-%s.png", c.Number, string(c.Kind))
}

// RenderCharts renders every chart fragment in the document into dir as
// PNG files and returns the paths written.
func RenderCharts(doc *report.Document, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create chart dir: %w", err)
	}

	var paths []string
	var walk func(secs []*report.Section) error
	walk = func(secs []*report.Section) error {
		for _, sec := range secs {
			for _, frag := range sec.Fragments {
				if frag.Kind != report.FragmentChart {
					continue
				}
				path := filepath.Join(dir, ChartFilename(frag.Chart))
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("create chart file: %w", err)
				}
				err = RenderChart(frag.Chart, f)
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return fmt.Errorf("render %s: %w", path, err)
				}
				paths = append(paths, path)
			}
			if err := walk(sec.Children); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc.Sections); err != nil {
		return nil, err
	}
	return paths, nil
}

// RenderChart draws one chart spec as a PNG.
func RenderChart(c *digest.ChartSpec, w io.Writer) error {
	dc := gg.NewContext(chartWidth, chartHeight)

	dc.SetRGB(1, 1, 1)
	dc.Clear()

	lo, hi := valueRange(c)

	plotW := float64(chartWidth) - marginLeft - marginRight
	plotH := float64(chartHeight) - marginTop - marginBottom

	// title
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.DrawStringAnchored(c.Title, float64(chartWidth)/2, marginTop/2, 0.5, 0.5)

	// axes
	dc.SetRGB(0.3, 0.3, 0.3)
	dc.SetLineWidth(1)
	dc.DrawLine(marginLeft, marginTop, marginLeft, marginTop+plotH)
	dc.DrawLine(marginLeft, marginTop+plotH, marginLeft+plotW, marginTop+plotH)
	dc.Stroke()

	// y gridlines and labels
	for i := 0; i <= 4; i++ {
		frac := float64(i) / 4
		y := marginTop + plotH*(1-frac)
		v := lo + (hi-lo)*frac
		dc.SetRGB(0.85, 0.85, 0.85)
		dc.DrawLine(marginLeft, y, marginLeft+plotW, y)
		dc.Stroke()
		dc.SetRGB(0.3, 0.3, 0.3)
		dc.DrawStringAnchored(formatTick(v), marginLeft-8, y, 1, 0.5)
	}

	// x labels
	n := len(c.XLabels)
	for i, label := range c.XLabels {
		x := marginLeft + plotW*(float64(i)+0.5)/float64(n)
		dc.SetRGB(0.3, 0.3, 0.3)
		dc.DrawStringAnchored(truncLabel(label), x, marginTop+plotH+16, 0.5, 0.5)
	}

	toY := func(v float64) float64 {
		if hi == lo {
			return marginTop + plotH/2
		}
		return marginTop + plotH*(1-(v-lo)/(hi-lo))
	}

	switch c.Kind {
	case digest.ChartLine:
		for si, s := range c.Series {
			col := palette[si%len(palette)]
			dc.SetRGB(col[0], col[1], col[2])
			dc.SetLineWidth(2)
			for i := 1; i < len(s.Values); i++ {
				x0 := marginLeft + plotW*(float64(i-1)+0.5)/float64(n)
				x1 := marginLeft + plotW*(float64(i)+0.5)/float64(n)
				dc.DrawLine(x0, toY(s.Values[i-1]), x1, toY(s.Values[i]))
				dc.Stroke()
			}
		}
	default: // bar
		groups := len(c.Series)
		slot := plotW / float64(n)
		barW := slot * 0.7 / float64(max(1, groups))
		for si, s := range c.Series {
			col := palette[si%len(palette)]
			dc.SetRGB(col[0], col[1], col[2])
			for i, v := range s.Values {
				if i >= n {
					break
				}
				x := marginLeft + slot*float64(i) + slot*0.15 + barW*float64(si)
				y := toY(v)
				base := toY(math.Max(lo, 0))
				if y > base {
					y, base = base, y
				}
				dc.DrawRectangle(x, y, barW, base-y)
				dc.Fill()
			}
		}
	}

	// legend, only when multiple series
	if len(c.Series) > 1 {
		x := marginLeft
		y := float64(chartHeight) - marginBottom/2
		for si, s := range c.Series {
			col := palette[si%len(palette)]
			dc.SetRGB(col[0], col[1], col[2])
			dc.DrawRectangle(x, y-5, 10, 10)
			dc.Fill()
			dc.SetRGB(0.2, 0.2, 0.2)
			dc.DrawStringAnchored(s.Name, x+16, y, 0, 0.5)
			tw, _ := dc.MeasureString(s.Name)
			x += 16 + tw + 20
		}
	}

	return dc.EncodePNG(w)
}

// valueRange finds the plotted min/max, padded and anchored at zero for
// positive data.
func valueRange(c *digest.ChartSpec) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range c.Series {
		for _, v := range s.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if lo > 0 {
		lo = 0
	}
	if hi == lo {
		hi = lo + 1
	}
	hi += (hi - lo) * 0.05
	return lo, hi
}

func formatTick(v float64) string {
	switch {
	case math.Abs(v) >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case math.Abs(v) >= 1e3:
		return fmt.Sprintf("%.1fk", v/1e3)
	}
	return fmt.Sprintf("%.4g", v)
}

func truncLabel(s string) string {
	r := []rune(s)
	if len(r) > 12 {
		return string(r[:11]) + "…"
	}
	return s
}
