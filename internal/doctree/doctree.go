// Package doctree builds the semantic document tree from normalized
// content blocks.
package doctree

// NodeKind is the closed set of node variants in the semantic tree.
type NodeKind string

const (
	NodeDocument  NodeKind = "document"
	NodeSection   NodeKind = "section"
	NodeParagraph NodeKind = "paragraph"
	NodeTable     NodeKind = "table"
	NodeFigure    NodeKind = "figure"
	NodeCaption   NodeKind = "caption"
)

// Node is one node of the semantic tree. The tree is built once and is
// read-only input to every later stage.
type Node struct {
	// ID is the preorder position of the node, assigned after building.
	ID   int      `json:"id"`
	Kind NodeKind `json:"kind"`

	// Title and Level are set for sections. A child section's level is
	// strictly greater than its parent's.
	Title string `json:"title,omitempty"`
	Level int    `json:"level,omitempty"`

	// Text holds paragraph and caption content.
	Text string `json:"text,omitempty"`

	// Rows holds table content, first row is the header when present.
	Rows [][]string `json:"rows,omitempty"`

	// Payload holds figure bytes (non-owning pass-through).
	Payload []byte `json:"-"`

	// Number is the 1-based document-order ordinal for tables and
	// figures ("Table 3"). Zero for other kinds.
	Number int `json:"number,omitempty"`

	Page int `json:"page,omitempty"`

	// Blocks lists the indexes of the source ContentBlocks this node
	// derives from. Back-reference only, never ownership.
	Blocks []int `json:"blocks,omitempty"`

	Children []*Node `json:"children,omitempty"`
}

// Tree is the root of the semantic document tree.
type Tree struct {
	Title string `json:"title"`
	Root  *Node  `json:"root"`
}

// IsLeaf reports whether the node carries content rather than structure.
func (n *Node) IsLeaf() bool {
	switch n.Kind {
	case NodeParagraph, NodeTable, NodeFigure:
		return true
	}
	return false
}

// Caption returns the node's caption child text, if any.
func (n *Node) Caption() string {
	for _, c := range n.Children {
		if c.Kind == NodeCaption {
			return c.Text
		}
	}
	return ""
}

// Walk visits every node in preorder.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	if t.Root == nil {
		return
	}
	t.Root.Walk(fn)
}

// Walk visits the subtree rooted at n in preorder.
func (n *Node) Walk(fn func(n *Node, depth int)) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}

// Leaves returns all leaf nodes in document order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	t.Walk(func(n *Node, _ int) {
		if n.IsLeaf() {
			out = append(out, n)
		}
	})
	return out
}

// NodeByID returns the node with the given id, or nil.
func (t *Tree) NodeByID(id int) *Node {
	var found *Node
	t.Walk(func(n *Node, _ int) {
		if n.ID == id {
			found = n
		}
	})
	return found
}

// assignIDs numbers nodes in preorder and tables/figures in document order.
func (t *Tree) assignIDs() {
	next := 0
	tables, figures := 0, 0
	t.Walk(func(n *Node, _ int) {
		n.ID = next
		next++
		switch n.Kind {
		case NodeTable:
			tables++
			n.Number = tables
		case NodeFigure:
			figures++
			n.Number = figures
		}
	})
}
