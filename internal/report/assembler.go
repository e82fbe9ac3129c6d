package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/VishnuVamsi7/DocReporter/internal/budget"
	"github.com/VishnuVamsi7/DocReporter/internal/compress"
	"github.com/VishnuVamsi7/DocReporter/internal/digest"
	"github.com/VishnuVamsi7/DocReporter/internal/doctree"
	"github.com/VishnuVamsi7/DocReporter/internal/segment"
)

// AssemblyError reports a missing artifact during assembly. It signals an
// internal consistency bug, not a user-facing condition, and aborts the
// pipeline with full context.
type AssemblyError struct {
	UnitID   string
	NodeID   int
	NodePath string
	Reason   string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembly failed at %s (unit %q, node %d): %s",
		e.NodePath, e.UnitID, e.NodeID, e.Reason)
}

// Inputs carries everything the assembler joins.
type Inputs struct {
	Tree       *doctree.Tree
	Units      []*segment.Unit
	Plan       *budget.Plan
	Compressed map[string]*compress.CompressedUnit
	// Digests maps table/figure node ids to their digest results.
	Digests map[int]digest.Result
}

// Assemble walks the original tree in order, substituting each node's
// content with its compressed or digested form, resolving cross-references,
// and producing the manifest.
func Assemble(in Inputs) (*Document, error) {
	a := &assembler{
		in:         in,
		unitByNode: make(map[int]*segment.Unit),
		anchors:    newAnchorIndex(),
	}
	for _, u := range in.Units {
		for _, n := range u.Nodes {
			a.unitByNode[n.ID] = u
		}
	}

	doc := &Document{Title: in.Tree.Title}

	// First pass: anchors for every section, table, and figure, so
	// references can point forward as well as back.
	in.Tree.Walk(func(n *doctree.Node, _ int) {
		switch n.Kind {
		case doctree.NodeSection:
			a.anchors.addSection(n, a.fullyDropped(n))
		case doctree.NodeTable:
			a.anchors.add(fmt.Sprintf("table %d", n.Number), fmt.Sprintf("table-%d", n.Number))
		case doctree.NodeFigure:
			a.anchors.add(fmt.Sprintf("figure %d", n.Number), fmt.Sprintf("figure-%d", n.Number))
		}
	})

	for _, child := range in.Tree.Root.Children {
		sec, err := a.buildSection(child, nil)
		if err != nil {
			return nil, err
		}
		if sec != nil {
			doc.Sections = append(doc.Sections, sec)
		}
	}

	doc.Manifest = a.buildManifest()
	return doc, nil
}

type assembler struct {
	in         Inputs
	unitByNode map[int]*segment.Unit
	anchors    *anchorIndex
	// emitted tracks units whose fragment is already placed.
	emitted map[string]bool
}

// fullyDropped reports whether every unit under the section was dropped by
// the allocator, so a reference into it lands on a stub.
func (a *assembler) fullyDropped(sec *doctree.Node) bool {
	any := false
	dropped := true
	sec.Walk(func(n *doctree.Node, _ int) {
		if !n.IsLeaf() {
			return
		}
		if u := a.unitByNode[n.ID]; u != nil {
			any = true
			if !a.in.Plan.Dropped[u.ID] {
				dropped = false
			}
		}
	})
	return any && dropped
}

func (a *assembler) buildSection(n *doctree.Node, path []string) (*Section, error) {
	if n.Kind != doctree.NodeSection {
		return nil, &AssemblyError{
			NodeID:   n.ID,
			NodePath: strings.Join(path, " > "),
			Reason:   "expected section at top of subtree, got " + string(n.Kind),
		}
	}
	if a.emitted == nil {
		a.emitted = make(map[string]bool)
	}

	sec := &Section{
		Title:  n.Title,
		Level:  n.Level,
		Anchor: a.anchors.sectionAnchor(n),
	}
	childPath := append(append([]string(nil), path...), n.Title)

	for _, c := range n.Children {
		switch {
		case c.Kind == doctree.NodeSection:
			child, err := a.buildSection(c, childPath)
			if err != nil {
				return nil, err
			}
			sec.Children = append(sec.Children, child)

		case c.IsLeaf():
			frags, err := a.leafFragments(c, childPath)
			if err != nil {
				return nil, err
			}
			sec.Fragments = append(sec.Fragments, frags...)

		case c.Kind == doctree.NodeCaption:
			// Captions live under tables/figures; one at section level
			// is a builder bug.
			return nil, &AssemblyError{
				NodeID:   c.ID,
				NodePath: strings.Join(childPath, " > "),
				Reason:   "caption node attached directly to section",
			}
		}
	}
	return sec, nil
}

// leafFragments emits the unit fragment (once, at the unit's first node)
// and the digest fragment for table/figure nodes.
func (a *assembler) leafFragments(n *doctree.Node, path []string) ([]Fragment, error) {
	var out []Fragment
	pathStr := strings.Join(path, " > ")

	u := a.unitByNode[n.ID]
	if u == nil {
		return nil, &AssemblyError{
			NodeID:   n.ID,
			NodePath: pathStr,
			Reason:   "leaf node not covered by any unit",
		}
	}

	if !a.emitted[u.ID] && u.FirstNodeID() == n.ID {
		a.emitted[u.ID] = true
		frag, err := a.unitFragment(u, pathStr)
		if err != nil {
			return nil, err
		}
		out = append(out, frag)
	}

	switch n.Kind {
	case doctree.NodeTable, doctree.NodeFigure:
		res, ok := a.in.Digests[n.ID]
		if !ok {
			return nil, &AssemblyError{
				UnitID:   u.ID,
				NodeID:   n.ID,
				NodePath: pathStr,
				Reason:   "no digest produced for table/figure node",
			}
		}
		switch {
		case res.Chart != nil:
			out = append(out, Fragment{Kind: FragmentChart, Chart: res.Chart})
		case res.Table != nil:
			out = append(out, Fragment{Kind: FragmentTable, Table: res.Table})
		case res.Figure != nil:
			out = append(out, Fragment{Kind: FragmentFigure, Figure: res.Figure})
		default:
			return nil, &AssemblyError{
				UnitID:   u.ID,
				NodeID:   n.ID,
				NodePath: pathStr,
				Reason:   "empty digest result",
			}
		}
	}
	return out, nil
}

func (a *assembler) unitFragment(u *segment.Unit, pathStr string) (Fragment, error) {
	if a.in.Plan.Dropped[u.ID] {
		return Fragment{
			Kind:   FragmentStub,
			UnitID: u.ID,
			Text:   fmt.Sprintf("[%s omitted for length]", u.Title()),
		}, nil
	}

	cu, ok := a.in.Compressed[u.ID]
	if !ok {
		return Fragment{}, &AssemblyError{
			UnitID:   u.ID,
			NodePath: pathStr,
			Reason:   "no compressed artifact for non-dropped unit",
		}
	}

	frag := Fragment{
		Kind:   FragmentText,
		UnitID: u.ID,
		Flag:   cu.Flag,
		Text:   cu.Text,
	}
	frag.Refs = a.resolveRefs(cu.Text)
	return frag, nil
}

var refRe = regexp.MustCompile(`(?i)\b(table|figure|section)\s+(\d+(?:\.\d+)*)`)

// resolveRefs maps textual references to anchors in the compressed output.
// A reference into a dropped unit points at the stub's section.
func (a *assembler) resolveRefs(text string) []Ref {
	var refs []Ref
	seen := make(map[string]bool)
	for _, m := range refRe.FindAllStringSubmatch(text, -1) {
		key := strings.ToLower(m[1]) + " " + m[2]
		if seen[key] {
			continue
		}
		seen[key] = true
		anchor, stub, ok := a.anchors.lookup(key)
		if !ok {
			continue
		}
		refs = append(refs, Ref{Text: m[0], Anchor: anchor, Stub: stub})
	}
	return refs
}

func (a *assembler) buildManifest() Manifest {
	m := Manifest{TotalUnits: len(a.in.Units)}
	for _, u := range a.in.Units {
		section := strings.Join(u.Breadcrumb, " > ")
		if a.in.Plan.Dropped[u.ID] {
			m.Dropped++
			m.Entries = append(m.Entries, ManifestEntry{
				UnitID:      u.ID,
				Section:     section,
				Disposition: DispositionDropped,
				Note:        "below salience threshold, rendered as stub",
			})
			continue
		}
		cu := a.in.Compressed[u.ID]
		if cu == nil {
			continue
		}
		switch cu.Flag {
		case compress.FlagTruncated:
			m.Truncated++
			m.Entries = append(m.Entries, ManifestEntry{
				UnitID:      u.ID,
				Section:     section,
				Disposition: DispositionTruncated,
				Note:        "backend unavailable, verbatim truncation",
			})
		case compress.FlagPreservationFailed:
			m.PreservationFailed++
			m.Entries = append(m.Entries, ManifestEntry{
				UnitID:      u.ID,
				Section:     section,
				Disposition: DispositionPreservationFailed,
				Note:        fmt.Sprintf("%d entities lost after retry", len(cu.Missing)),
			})
		default:
			m.Compressed++
		}
	}
	return m
}

// anchorIndex maps reference keys ("table 3", "section 2") to anchors.
type anchorIndex struct {
	byKey map[string]anchorTarget
	// section anchors by node id, deduplicated slugs
	byNode map[int]string
	counts map[string]int
	// section ordinals by depth, so "Section 2" and "Section 2.1" both
	// resolve. Filled in document order.
	ordinals []int
}

type anchorTarget struct {
	anchor string
	stub   bool
}

func newAnchorIndex() *anchorIndex {
	return &anchorIndex{
		byKey:  make(map[string]anchorTarget),
		byNode: make(map[int]string),
		counts: make(map[string]int),
	}
}

func (ai *anchorIndex) add(key, anchor string) {
	ai.byKey[key] = anchorTarget{anchor: anchor}
}

func (ai *anchorIndex) addSection(n *doctree.Node, stub bool) {
	slug := Slugify(n.Title)
	if c := ai.counts[slug]; c > 0 {
		ai.counts[slug] = c + 1
		slug = slug + "-" + strconv.Itoa(c)
	} else {
		ai.counts[slug] = 1
	}
	ai.byNode[n.ID] = slug
	if n.Level < 1 {
		return
	}
	if n.Level <= len(ai.ordinals) {
		ai.ordinals = ai.ordinals[:n.Level]
	}
	for len(ai.ordinals) < n.Level {
		ai.ordinals = append(ai.ordinals, 0)
	}
	ai.ordinals[n.Level-1]++
	parts := make([]string, len(ai.ordinals))
	for i, o := range ai.ordinals {
		parts[i] = strconv.Itoa(o)
	}
	ai.byKey["section "+strings.Join(parts, ".")] = anchorTarget{anchor: slug, stub: stub}
}

func (ai *anchorIndex) sectionAnchor(n *doctree.Node) string {
	return ai.byNode[n.ID]
}

func (ai *anchorIndex) lookup(key string) (string, bool, bool) {
	t, ok := ai.byKey[key]
	if !ok {
		return "", false, false
	}
	return t.anchor, t.stub, true
}
