// Package block defines the positioned content blocks delivered by the
// layout extractor and the normalizer that turns them into a clean,
// reading-ordered sequence.
package block

// Kind classifies a content block.
type Kind string

const (
	KindText      Kind = "text"
	KindHeading   Kind = "heading"
	KindTableCell Kind = "table_cell"
	KindFigure    Kind = "figure"
	KindCaption   Kind = "caption"
)

// BBox is an axis-aligned bounding box in page coordinates (origin top-left).
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Width returns the horizontal extent of the box.
func (b BBox) Width() float64 { return b.X1 - b.X0 }

// Height returns the vertical extent of the box.
func (b BBox) Height() float64 { return b.Y1 - b.Y0 }

// IsZero reports whether the box carries no position information.
func (b BBox) IsZero() bool {
	return b.X0 == 0 && b.Y0 == 0 && b.X1 == 0 && b.Y1 == 0
}

// VerticalGap returns the vertical distance between this box and a box
// below it. Overlapping boxes return 0.
func (b BBox) VerticalGap(below BBox) float64 {
	gap := below.Y0 - b.Y1
	if gap < 0 {
		return 0
	}
	return gap
}

// Union returns the smallest box covering both b and o.
func (b BBox) Union(o BBox) BBox {
	if b.IsZero() {
		return o
	}
	if o.IsZero() {
		return b
	}
	out := b
	if o.X0 < out.X0 {
		out.X0 = o.X0
	}
	if o.Y0 < out.Y0 {
		out.Y0 = o.Y0
	}
	if o.X1 > out.X1 {
		out.X1 = o.X1
	}
	if o.Y1 > out.Y1 {
		out.Y1 = o.Y1
	}
	return out
}

// ContentBlock is one atomic extracted item. Blocks are immutable once
// produced by Normalize; later stages hold them read-only.
type ContentBlock struct {
	// Index is the reading-order position assigned by the normalizer.
	Index int  `json:"index"`
	Kind  Kind `json:"kind"`
	Page  int  `json:"page"`
	BBox  BBox `json:"bbox"`

	Text    string `json:"text,omitempty"`
	Payload []byte `json:"payload,omitempty"`

	// HeadingLevel is set for KindHeading blocks (1-6).
	HeadingLevel int `json:"heading_level,omitempty"`

	// TableID groups table cells belonging to the same table region.
	// Row/Col locate the cell within that table.
	TableID int `json:"table_id,omitempty"`
	Row     int `json:"row,omitempty"`
	Col     int `json:"col,omitempty"`
}
