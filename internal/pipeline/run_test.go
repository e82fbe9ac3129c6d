package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/VishnuVamsi7/DocReporter/internal/block"
	"github.com/VishnuVamsi7/DocReporter/internal/compress"
	"github.com/VishnuVamsi7/DocReporter/internal/config"
	"github.com/VishnuVamsi7/DocReporter/internal/report"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// entityBackend is the well-behaved stub: output always contains the
// required entities and respects the target size.
type entityBackend struct{}

func (entityBackend) Compress(_ context.Context, req compress.Request) (*compress.Response, error) {
	text := "Condensed: " + strings.Join(req.RequiredEntities, ", ") + "."
	if len([]rune(text)) > req.TargetChars {
		text = compress.Truncate(req.Text, req.TargetChars)
	}
	return &compress.Response{Text: text, CoveredEntities: req.RequiredEntities}, nil
}

// outageBackend simulates a dead compression service.
type outageBackend struct{}

func (outageBackend) Compress(_ context.Context, _ compress.Request) (*compress.Response, error) {
	return nil, &compress.RetryableError{StatusCode: 503, Message: "service unavailable"}
}

func newTestRunner(backend compress.Compressor, workers int) *Runner {
	cfg := compress.DefaultEngineConfig()
	cfg.CallTimeout = time.Second
	engine := compress.NewEngine(backend, nil, nil, testLog, cfg)
	return NewRunner(engine, config.Tuning{}, workers, testLog)
}

func reportBlocks() []block.ContentBlock {
	return []block.ContentBlock{
		{Index: 0, Kind: block.KindHeading, Page: 1, HeadingLevel: 1, Text: "Executive Summary"},
		{Index: 1, Kind: block.KindText, Page: 1, Text: "Acme Corp revenue grew 18% to $4.2M this quarter, see Table 1."},
		{Index: 2, Kind: block.KindHeading, Page: 2, HeadingLevel: 1, Text: "Results"},
		{Index: 3, Kind: block.KindText, Page: 2, Text: "Latency dropped across every region after the cache rollout."},
		{Index: 4, Kind: block.KindTableCell, Page: 2, TableID: 1, Row: 0, Col: 0, Text: "Region"},
		{Index: 5, Kind: block.KindTableCell, Page: 2, TableID: 1, Row: 0, Col: 1, Text: "P99 ms"},
		{Index: 6, Kind: block.KindTableCell, Page: 2, TableID: 1, Row: 1, Col: 0, Text: "East"},
		{Index: 7, Kind: block.KindTableCell, Page: 2, TableID: 1, Row: 1, Col: 1, Text: "120"},
		{Index: 8, Kind: block.KindTableCell, Page: 2, TableID: 1, Row: 2, Col: 0, Text: "West"},
		{Index: 9, Kind: block.KindTableCell, Page: 2, TableID: 1, Row: 2, Col: 1, Text: "95"},
		{Index: 10, Kind: block.KindCaption, Page: 2, Text: "P99 latency by region"},
	}
}

func TestRun_EndToEnd(t *testing.T) {
	r := newTestRunner(entityBackend{}, 2)
	doc, err := r.Run(context.Background(), RunRequest{Title: "Quarterly Report", Blocks: reportBlocks()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if doc.Title != "Quarterly Report" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(doc.Sections))
	}
	if doc.Manifest.TotalUnits == 0 {
		t.Error("manifest has no units")
	}
	if doc.Manifest.Truncated != 0 || doc.Manifest.PreservationFailed != 0 {
		t.Errorf("healthy backend should leave no degraded units: %+v", doc.Manifest)
	}

	var sawTable bool
	for _, sec := range doc.Sections {
		for _, f := range sec.Fragments {
			if f.Kind == report.FragmentTable || f.Kind == report.FragmentChart {
				sawTable = true
			}
		}
	}
	if !sawTable {
		t.Error("table digest missing from assembled report")
	}
}

func TestRun_Deterministic(t *testing.T) {
	r := newTestRunner(entityBackend{}, 4)
	run := func() []byte {
		doc, err := r.Run(context.Background(), RunRequest{Title: "Doc", Blocks: reportBlocks()})
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		b, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		return b
	}
	if string(run()) != string(run()) {
		t.Error("identical inputs must produce byte-identical reports")
	}
}

func TestRun_BackendOutageDegradesLocally(t *testing.T) {
	r := newTestRunner(outageBackend{}, 2)
	doc, err := r.Run(context.Background(), RunRequest{Title: "Doc", Blocks: reportBlocks()})
	if err != nil {
		t.Fatalf("outage must not abort the pipeline: %v", err)
	}
	if doc.Manifest.Truncated == 0 {
		t.Error("expected truncated units in the manifest")
	}
	if doc.Manifest.Compressed != 0 {
		t.Errorf("no unit should count as cleanly compressed, got %d", doc.Manifest.Compressed)
	}
}

// longDocumentBlocks builds 12 sections spread over 250 pages.
func longDocumentBlocks() []block.ContentBlock {
	var blocks []block.ContentBlock
	page := 1
	for s := 0; s < 12; s++ {
		blocks = append(blocks, block.ContentBlock{
			Kind: block.KindHeading, Page: page, HeadingLevel: 1,
			Text: fmt.Sprintf("Chapter %d", s+1),
		})
		for p := 0; p < 20; p++ {
			blocks = append(blocks, block.ContentBlock{
				Kind: block.KindText, Page: page,
				Text: fmt.Sprintf("Section %d paragraph %d discusses topic %d in moderate detail across several sentences of filler prose.", s+1, p+1, s*20+p),
			})
			page++
		}
	}
	for i := range blocks {
		blocks[i].Index = i
	}
	return blocks
}

func TestRun_LargeDocumentDropsLowSalienceUnits(t *testing.T) {
	// A tight budget forces the allocator to drop the tail.
	blocks := longDocumentBlocks()

	r := newTestRunner(entityBackend{}, 4)
	doc, err := r.Run(context.Background(), RunRequest{
		Title:        "Long Document",
		Blocks:       blocks,
		GlobalBudget: 2000,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(doc.Sections) != 12 {
		t.Fatalf("sections = %d, want 12", len(doc.Sections))
	}
	m := doc.Manifest
	if m.TotalUnits < 12 {
		t.Errorf("total units = %d", m.TotalUnits)
	}
	if m.Dropped == 0 {
		t.Error("tight budget should drop low-salience units")
	}
	if m.Compressed+m.Dropped+m.Truncated+m.PreservationFailed != m.TotalUnits {
		t.Errorf("manifest counts do not partition units: %+v", m)
	}
}

func TestRun_EnvBudgetReachesAllocator(t *testing.T) {
	// GLOBAL_BUDGET must be honored when neither the tuning file nor
	// the request overrides the budget.
	t.Setenv("GLOBAL_BUDGET", "300")
	t.Setenv("TUNING_PATH", "")

	cfg := config.Load()
	tuning, err := cfg.ResolveTuning()
	if err != nil {
		t.Fatalf("resolve tuning: %v", err)
	}

	ecfg := compress.DefaultEngineConfig()
	ecfg.CallTimeout = time.Second
	engine := compress.NewEngine(entityBackend{}, nil, nil, testLog, ecfg)
	r := NewRunner(engine, tuning, 4, testLog)

	doc, err := r.Run(context.Background(), RunRequest{Title: "Long Document", Blocks: longDocumentBlocks()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if doc.Manifest.Dropped == 0 {
		t.Errorf("a 300-char budget over 12 sections must drop units, manifest: %+v", doc.Manifest)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	r := newTestRunner(entityBackend{}, 1)
	if _, err := r.Run(context.Background(), RunRequest{Blocks: nil}); err == nil {
		t.Error("expected error for empty input")
	}
}

func TestRun_HooksObserveProgress(t *testing.T) {
	r := newTestRunner(entityBackend{}, 1)
	var phases []string
	var unitsDone, digested int
	_, err := r.Run(context.Background(), RunRequest{
		Title:  "Doc",
		Blocks: reportBlocks(),
		Hooks: Hooks{
			Phase:    func(name string) { phases = append(phases, name) },
			UnitDone: func(*compress.CompressedUnit) { unitsDone++ },
			Digested: func() { digested++ },
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"normalizing", "building_structure", "segmenting", "ranking", "compressing", "assembling"}
	if len(phases) != len(want) {
		t.Fatalf("phases = %v", phases)
	}
	for i, p := range want {
		if phases[i] != p {
			t.Errorf("phase[%d] = %q, want %q", i, phases[i], p)
		}
	}
	if unitsDone == 0 {
		t.Error("UnitDone hook never fired")
	}
	if digested != 1 {
		t.Errorf("digested = %d, want 1 table", digested)
	}
}
