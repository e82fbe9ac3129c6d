// Package segment partitions the document tree into units sized to fit the
// compression backend's input window.
package segment

import (
	"fmt"
	"strings"

	"github.com/VishnuVamsi7/DocReporter/internal/doctree"
)

// Unit is a contiguous slice of sibling leaf nodes. Units partition the
// tree's leaf set: every leaf belongs to exactly one unit.
type Unit struct {
	// ID is stable and deterministic across runs of the same input.
	ID    string
	Index int

	// Nodes are non-owning references into the tree, in document order.
	Nodes []*doctree.Node

	// Breadcrumb is the section-title path to the unit's parent.
	Breadcrumb []string

	// Size is the estimated token count of the serialized unit.
	Size int

	// Oversized marks a single node that alone exceeds the window. The
	// unit is compressed anyway and force-truncated downstream; this is
	// never an error.
	Oversized bool
}

// FirstNodeID returns the tree id of the unit's first node.
func (u *Unit) FirstNodeID() int {
	if len(u.Nodes) == 0 {
		return -1
	}
	return u.Nodes[0].ID
}

// Title returns a human-readable label for manifests and stubs.
func (u *Unit) Title() string {
	if len(u.Breadcrumb) > 0 {
		return u.Breadcrumb[len(u.Breadcrumb)-1]
	}
	return u.ID
}

// Config controls segmentation.
type Config struct {
	// MaxUnitSize is the backend input window in estimated tokens.
	MaxUnitSize int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxUnitSize: 1500}
}

// Split walks the tree depth-first, greedily accumulating sibling leaves
// into units until adding the next sibling would exceed MaxUnitSize.
// Container nodes (sections) close the current unit, so a unit never mixes
// nodes from different parents. Tables and figures are atomic: they are
// never split across unit boundaries.
func Split(tree *doctree.Tree, cfg Config) []*Unit {
	if cfg.MaxUnitSize <= 0 {
		cfg.MaxUnitSize = 1500
	}

	var units []*Unit
	var walk func(n *doctree.Node, breadcrumb []string)
	walk = func(n *doctree.Node, breadcrumb []string) {
		bc := breadcrumb
		if n.Kind == doctree.NodeSection && n.Title != "" {
			bc = append(append([]string(nil), breadcrumb...), n.Title)
		}

		var current *Unit
		flush := func() {
			if current != nil && len(current.Nodes) > 0 {
				units = append(units, current)
			}
			current = nil
		}

		for _, c := range n.Children {
			if !c.IsLeaf() {
				flush()
				walk(c, bc)
				continue
			}

			size := EstimateTokens(SerializeNode(c))
			if size > cfg.MaxUnitSize {
				// A single oversized node becomes its own flagged unit.
				flush()
				units = append(units, &Unit{
					Nodes:      []*doctree.Node{c},
					Breadcrumb: bc,
					Size:       size,
					Oversized:  true,
				})
				continue
			}

			if current != nil && current.Size+size > cfg.MaxUnitSize {
				flush()
			}
			if current == nil {
				current = &Unit{Breadcrumb: bc}
			}
			current.Nodes = append(current.Nodes, c)
			current.Size += size
		}
		flush()
	}
	walk(tree.Root, nil)

	for i, u := range units {
		u.Index = i
		u.ID = fmt.Sprintf("u%04d", i)
	}
	return units
}

// SerializeNode renders a leaf node as the text handed to the compression
// backend. Table bodies are replaced downstream by digests, so only their
// shape and caption contribute here.
func SerializeNode(n *doctree.Node) string {
	switch n.Kind {
	case doctree.NodeParagraph:
		return n.Text
	case doctree.NodeTable:
		var sb strings.Builder
		fmt.Fprintf(&sb, "[Table %d: %d rows x %d columns]", n.Number, len(n.Rows), tableCols(n.Rows))
		if c := n.Caption(); c != "" {
			sb.WriteString(" ")
			sb.WriteString(c)
		}
		return sb.String()
	case doctree.NodeFigure:
		var sb strings.Builder
		fmt.Fprintf(&sb, "[Figure %d]", n.Number)
		if n.Text != "" {
			sb.WriteString(" ")
			sb.WriteString(n.Text)
		}
		if c := n.Caption(); c != "" {
			sb.WriteString(" ")
			sb.WriteString(c)
		}
		return sb.String()
	}
	return n.Text
}

// Serialize renders the whole unit for the backend, with its breadcrumb as
// context the same way chunk prompts carry section paths.
func (u *Unit) Serialize() string {
	var sb strings.Builder
	if len(u.Breadcrumb) > 0 {
		sb.WriteString(strings.Join(u.Breadcrumb, " > "))
		sb.WriteString("\n\n")
	}
	for i, n := range u.Nodes {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(SerializeNode(n))
	}
	return sb.String()
}

func tableCols(rows [][]string) int {
	max := 0
	for _, r := range rows {
		if len(r) > max {
			max = len(r)
		}
	}
	return max
}
