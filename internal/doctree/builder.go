package doctree

import (
	"sort"
	"strings"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
)

// BuilderConfig controls structure assembly.
type BuilderConfig struct {
	// CaptionProximity is the maximum vertical gap (page units) between a
	// table/figure and a trailing caption for the caption to attach to it.
	CaptionProximity float64
}

// DefaultBuilderConfig returns the defaults used by the pipeline.
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{CaptionProximity: 120.0}
}

// Build groups normalized blocks into a semantic tree. A heading closes all
// open sections with level >= its own and opens a new section; everything
// else attaches to the innermost open section. A document with no headings
// yields a single wrapping section. Build returns a *StructureError when
// the block sequence cannot be ordered consistently.
func Build(title string, blocks []block.ContentBlock, cfg BuilderConfig) (*Tree, error) {
	if cfg.CaptionProximity <= 0 {
		cfg.CaptionProximity = 120.0
	}

	root := &Node{Kind: NodeDocument, Title: title}
	tree := &Tree{Title: title, Root: root}

	type stackEntry struct {
		node  *Node
		level int
	}
	stack := []stackEntry{{node: root, level: 0}}

	// current open paragraph, reset by any non-text block
	var para *Node
	// last table/figure attached, candidate for caption adoption
	var lastAnchor *Node
	var lastAnchorBox block.BBox

	lastPage := 0

	attach := func(n *Node) {
		top := stack[len(stack)-1].node
		top.Children = append(top.Children, n)
	}

	// openSection ensures non-heading content has a section to live in.
	openSection := func() {
		if stack[len(stack)-1].node.Kind != NodeDocument {
			return
		}
		sec := &Node{Kind: NodeSection, Title: title, Level: 1}
		attach(sec)
		stack = append(stack, stackEntry{node: sec, level: 1})
	}

	i := 0
	for i < len(blocks) {
		b := blocks[i]

		if b.Page < lastPage {
			return nil, &StructureError{
				BlockIndex: b.Index,
				Page:       b.Page,
				Reason:     "reading order goes backwards across pages",
			}
		}
		if b.Page > 0 {
			lastPage = b.Page
		}

		switch b.Kind {
		case block.KindHeading:
			if b.HeadingLevel < 1 || b.HeadingLevel > 6 {
				return nil, &StructureError{
					BlockIndex: b.Index,
					Page:       b.Page,
					Reason:     "heading level out of range",
				}
			}
			para, lastAnchor = nil, nil
			for len(stack) > 1 && stack[len(stack)-1].level >= b.HeadingLevel {
				stack = stack[:len(stack)-1]
			}
			sec := &Node{
				Kind:   NodeSection,
				Title:  b.Text,
				Level:  b.HeadingLevel,
				Page:   b.Page,
				Blocks: []int{b.Index},
			}
			attach(sec)
			stack = append(stack, stackEntry{node: sec, level: b.HeadingLevel})
			i++

		case block.KindText:
			openSection()
			lastAnchor = nil
			if para != nil && para.Page == b.Page {
				para.Text += "\n\n" + b.Text
				para.Blocks = append(para.Blocks, b.Index)
			} else {
				para = &Node{
					Kind:   NodeParagraph,
					Text:   b.Text,
					Page:   b.Page,
					Blocks: []int{b.Index},
				}
				attach(para)
			}
			i++

		case block.KindTableCell:
			openSection()
			para = nil
			tbl, box, consumed := assembleTable(blocks[i:])
			attach(tbl)
			lastAnchor, lastAnchorBox = tbl, box
			i += consumed

		case block.KindFigure:
			openSection()
			para = nil
			fig := &Node{
				Kind:    NodeFigure,
				Text:    b.Text,
				Payload: b.Payload,
				Page:    b.Page,
				Blocks:  []int{b.Index},
			}
			attach(fig)
			lastAnchor, lastAnchorBox = fig, b.BBox
			i++

		case block.KindCaption:
			openSection()
			para = nil
			cn := &Node{
				Kind:   NodeCaption,
				Text:   b.Text,
				Page:   b.Page,
				Blocks: []int{b.Index},
			}
			if adoptable(lastAnchor, lastAnchorBox, b, cfg.CaptionProximity) {
				lastAnchor.Children = append(lastAnchor.Children, cn)
			} else {
				// Orphan caption degrades to a paragraph.
				cn.Kind = NodeParagraph
				attach(cn)
			}
			lastAnchor = nil
			i++

		default:
			return nil, &StructureError{
				BlockIndex: b.Index,
				Page:       b.Page,
				Reason:     "unknown block kind " + string(b.Kind),
			}
		}
	}

	if title == "" {
		tree.Title = inferTitle(root)
		root.Title = tree.Title
	}
	tree.assignIDs()
	return tree, nil
}

// adoptable reports whether a caption block belongs to the table/figure
// with the given box.
func adoptable(anchor *Node, box block.BBox, cb block.ContentBlock, proximity float64) bool {
	if anchor == nil {
		return false
	}
	if anchor.Page != cb.Page {
		return false
	}
	// Without geometry on either side the same page is all we can require.
	if cb.BBox.IsZero() || box.IsZero() {
		return true
	}
	return box.VerticalGap(cb.BBox) <= proximity
}

// assembleTable consumes the run of table-cell blocks sharing the leading
// block's table id and reconstructs the row/column grid.
func assembleTable(blocks []block.ContentBlock) (*Node, block.BBox, int) {
	id := blocks[0].TableID
	n := 0
	for n < len(blocks) && blocks[n].Kind == block.KindTableCell && blocks[n].TableID == id {
		n++
	}
	cells := blocks[:n]

	maxRow, maxCol := 0, 0
	for _, c := range cells {
		if c.Row > maxRow {
			maxRow = c.Row
		}
		if c.Col > maxCol {
			maxCol = c.Col
		}
	}
	rows := make([][]string, maxRow+1)
	for r := range rows {
		rows[r] = make([]string, maxCol+1)
	}
	refs := make([]int, 0, n)
	var box block.BBox
	for _, c := range cells {
		rows[c.Row][c.Col] = c.Text
		refs = append(refs, c.Index)
		box = box.Union(c.BBox)
	}
	sort.Ints(refs)

	return &Node{
		Kind:   NodeTable,
		Rows:   rows,
		Page:   cells[0].Page,
		Blocks: refs,
	}, box, n
}

// inferTitle uses the first top-level section title when the caller gave none.
func inferTitle(root *Node) string {
	for _, c := range root.Children {
		if c.Kind == NodeSection && strings.TrimSpace(c.Title) != "" {
			return c.Title
		}
	}
	return "Untitled Document"
}
