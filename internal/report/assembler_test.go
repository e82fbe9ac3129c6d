package report

import (
	"errors"
	"testing"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
	"github.com/VishnuVamsi7/DocReporter/internal/budget"
	"github.com/VishnuVamsi7/DocReporter/internal/compress"
	"github.com/VishnuVamsi7/DocReporter/internal/digest"
	"github.com/VishnuVamsi7/DocReporter/internal/doctree"
	"github.com/VishnuVamsi7/DocReporter/internal/segment"
)

// fixture builds a two-section document: an introduction with a paragraph
// and a table, and an appendix whose sole unit the plan drops.
func fixture(t *testing.T) (in Inputs, introUnit, appendixUnit string, tableNode int) {
	t.Helper()
	blocks := []block.ContentBlock{
		{Index: 0, Kind: block.KindHeading, Page: 1, HeadingLevel: 1, Text: "Introduction"},
		{Index: 1, Kind: block.KindText, Page: 1, Text: "Results improved, as Table 1 shows. Section 2 holds raw data."},
		{Index: 2, Kind: block.KindTableCell, Page: 1, TableID: 1, Row: 0, Col: 0, Text: "Metric"},
		{Index: 3, Kind: block.KindTableCell, Page: 1, TableID: 1, Row: 0, Col: 1, Text: "Value"},
		{Index: 4, Kind: block.KindTableCell, Page: 1, TableID: 1, Row: 1, Col: 0, Text: "Latency"},
		{Index: 5, Kind: block.KindTableCell, Page: 1, TableID: 1, Row: 1, Col: 1, Text: "12"},
		{Index: 6, Kind: block.KindCaption, Page: 1, Text: "Summary metrics"},
		{Index: 7, Kind: block.KindHeading, Page: 2, HeadingLevel: 1, Text: "Appendix"},
		{Index: 8, Kind: block.KindText, Page: 2, Text: "Raw data tables and methodology notes."},
	}
	tree, err := doctree.Build("Test Report", blocks, doctree.DefaultBuilderConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	units := segment.Split(tree, segment.DefaultConfig())
	if len(units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(units))
	}
	introUnit = units[0].ID
	appendixUnit = units[1].ID

	tree.Walk(func(n *doctree.Node, _ int) {
		if n.Kind == doctree.NodeTable {
			tableNode = n.ID
		}
	})

	in = Inputs{
		Tree:  tree,
		Units: units,
		Plan: &budget.Plan{
			Global:      1000,
			Floor:       100,
			Allocations: map[string]int{introUnit: 900, appendixUnit: 0},
			Dropped:     map[string]bool{appendixUnit: true},
		},
		Compressed: map[string]*compress.CompressedUnit{
			introUnit: {
				UnitID: introUnit,
				Text:   "Latency fell, see Table 1. Details live in Section 2.",
				Flag:   compress.FlagOK,
			},
		},
		Digests: map[int]digest.Result{
			tableNode: {Table: &digest.TableDigest{
				NodeID: tableNode,
				Number: 1,
				Header: []string{"Metric", "Value"},
				Rows:   [][]string{{"Latency", "12"}},
			}},
		},
	}
	return in, introUnit, appendixUnit, tableNode
}

func TestAssemble_FragmentOrderFollowsTree(t *testing.T) {
	in, introUnit, _, _ := fixture(t)
	doc, err := Assemble(in)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if doc.Title != "Test Report" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(doc.Sections))
	}

	intro := doc.Sections[0]
	if intro.Title != "Introduction" || intro.Anchor != "introduction" {
		t.Errorf("intro section = %q anchor %q", intro.Title, intro.Anchor)
	}
	if len(intro.Fragments) != 2 {
		t.Fatalf("intro fragments = %d, want text then table", len(intro.Fragments))
	}
	if intro.Fragments[0].Kind != FragmentText || intro.Fragments[0].UnitID != introUnit {
		t.Errorf("first fragment = %+v", intro.Fragments[0])
	}
	if intro.Fragments[1].Kind != FragmentTable {
		t.Errorf("second fragment kind = %v, want table", intro.Fragments[1].Kind)
	}
}

func TestAssemble_DroppedUnitRendersStub(t *testing.T) {
	in, _, appendixUnit, _ := fixture(t)
	doc, err := Assemble(in)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	appendix := doc.Sections[1]
	if len(appendix.Fragments) != 1 {
		t.Fatalf("appendix fragments = %d", len(appendix.Fragments))
	}
	stub := appendix.Fragments[0]
	if stub.Kind != FragmentStub || stub.UnitID != appendixUnit {
		t.Errorf("stub fragment = %+v", stub)
	}
	if stub.Text != "[Appendix omitted for length]" {
		t.Errorf("stub text = %q", stub.Text)
	}
}

func TestAssemble_ResolvesReferences(t *testing.T) {
	in, _, _, _ := fixture(t)
	doc, err := Assemble(in)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	refs := doc.Sections[0].Fragments[0].Refs
	if len(refs) != 2 {
		t.Fatalf("refs = %+v, want table and section", refs)
	}
	if refs[0].Anchor != "table-1" || refs[0].Stub {
		t.Errorf("table ref = %+v", refs[0])
	}
	// Section 2 is fully dropped, so the reference lands on a stub.
	if refs[1].Anchor != "appendix" || !refs[1].Stub {
		t.Errorf("section ref = %+v", refs[1])
	}
}

func TestAssemble_ResolvesNestedSectionReferences(t *testing.T) {
	blocks := []block.ContentBlock{
		{Index: 0, Kind: block.KindHeading, Page: 1, HeadingLevel: 1, Text: "Methods"},
		{Index: 1, Kind: block.KindText, Page: 1, Text: "We follow the protocol in Section 2.2."},
		{Index: 2, Kind: block.KindHeading, Page: 2, HeadingLevel: 1, Text: "Results"},
		{Index: 3, Kind: block.KindHeading, Page: 2, HeadingLevel: 2, Text: "Setup"},
		{Index: 4, Kind: block.KindText, Page: 2, Text: "Machines and configurations."},
		{Index: 5, Kind: block.KindHeading, Page: 3, HeadingLevel: 2, Text: "Findings"},
		{Index: 6, Kind: block.KindText, Page: 3, Text: "Latency numbers in depth."},
	}
	tree, err := doctree.Build("Nested", blocks, doctree.DefaultBuilderConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	units := segment.Split(tree, segment.DefaultConfig())
	if len(units) != 3 {
		t.Fatalf("expected 3 units, got %d", len(units))
	}

	in := Inputs{
		Tree:  tree,
		Units: units,
		Plan: &budget.Plan{
			Global:      1000,
			Floor:       100,
			Allocations: map[string]int{},
			Dropped:     map[string]bool{},
		},
		Compressed: map[string]*compress.CompressedUnit{},
	}
	for _, u := range units {
		in.Plan.Allocations[u.ID] = 100
		in.Compressed[u.ID] = &compress.CompressedUnit{
			UnitID: u.ID,
			Text:   u.Serialize(),
			Flag:   compress.FlagOK,
		}
	}

	doc, err := Assemble(in)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	refs := doc.Sections[0].Fragments[0].Refs
	if len(refs) != 1 {
		t.Fatalf("refs = %+v, want the dotted section reference", refs)
	}
	if refs[0].Anchor != "findings" || refs[0].Stub {
		t.Errorf("Section 2.2 ref = %+v, want anchor to the Findings subsection", refs[0])
	}
}

func TestAssemble_MissingCompressedUnitAborts(t *testing.T) {
	in, introUnit, _, _ := fixture(t)
	delete(in.Compressed, introUnit)
	_, err := Assemble(in)
	var aerr *AssemblyError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AssemblyError, got %v", err)
	}
	if aerr.UnitID != introUnit {
		t.Errorf("error unit = %q, want %q", aerr.UnitID, introUnit)
	}
}

func TestAssemble_MissingDigestAborts(t *testing.T) {
	in, _, _, tableNode := fixture(t)
	delete(in.Digests, tableNode)
	_, err := Assemble(in)
	var aerr *AssemblyError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AssemblyError, got %v", err)
	}
	if aerr.NodeID != tableNode {
		t.Errorf("error node = %d, want %d", aerr.NodeID, tableNode)
	}
}

func TestAssemble_Manifest(t *testing.T) {
	in, introUnit, appendixUnit, _ := fixture(t)
	in.Compressed[introUnit].Flag = compress.FlagTruncated
	doc, err := Assemble(in)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	m := doc.Manifest
	if m.TotalUnits != 2 || m.Truncated != 1 || m.Dropped != 1 || m.Compressed != 0 {
		t.Errorf("manifest = %+v", m)
	}
	for _, e := range m.Entries {
		switch e.UnitID {
		case introUnit:
			if e.Disposition != DispositionTruncated {
				t.Errorf("intro disposition = %v", e.Disposition)
			}
		case appendixUnit:
			if e.Disposition != DispositionDropped {
				t.Errorf("appendix disposition = %v", e.Disposition)
			}
		}
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Introduction", "introduction"},
		{"Results & Discussion", "results-discussion"},
		{"  Spaced   Out  ", "spaced-out"},
		{"", "section"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
