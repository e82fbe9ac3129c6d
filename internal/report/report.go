// Package report assembles compressed units and digests back into an
// ordered report document, the pipeline's sole output artifact.
package report

import (
	"regexp"
	"strings"

	"github.com/VishnuVamsi7/DocReporter/internal/compress"
	"github.com/VishnuVamsi7/DocReporter/internal/digest"
)

// FragmentKind is the closed set of content fragments inside a section.
type FragmentKind string

const (
	FragmentText   FragmentKind = "text"
	FragmentStub   FragmentKind = "stub"
	FragmentTable  FragmentKind = "table"
	FragmentChart  FragmentKind = "chart"
	FragmentFigure FragmentKind = "figure"
)

// Ref is a resolved cross-reference found in fragment text.
type Ref struct {
	// Text is the literal reference ("Table 3").
	Text string `json:"text"`
	// Anchor is the target's anchor in this report.
	Anchor string `json:"anchor"`
	// Stub is true when the target was dropped and the anchor points at
	// its stub.
	Stub bool `json:"stub,omitempty"`
}

// Fragment is one ordered piece of section content.
type Fragment struct {
	Kind   FragmentKind         `json:"kind"`
	UnitID string               `json:"unit_id,omitempty"`
	Flag   compress.QualityFlag `json:"flag,omitempty"`
	Text   string               `json:"text,omitempty"`
	Refs   []Ref                `json:"refs,omitempty"`

	Table  *digest.TableDigest  `json:"table,omitempty"`
	Chart  *digest.ChartSpec    `json:"chart,omitempty"`
	Figure *digest.FigureDigest `json:"figure,omitempty"`
}

// Section mirrors a source section with condensed content.
type Section struct {
	Title     string     `json:"title"`
	Level     int        `json:"level"`
	Anchor    string     `json:"anchor"`
	Fragments []Fragment `json:"fragments,omitempty"`
	Children  []*Section `json:"children,omitempty"`
}

// Disposition says what happened to a unit, for the manifest.
type Disposition string

const (
	DispositionCompressed         Disposition = "compressed"
	DispositionTruncated          Disposition = "truncated"
	DispositionPreservationFailed Disposition = "preservation_failed"
	DispositionDropped            Disposition = "dropped"
)

// ManifestEntry is one unit's audit record.
type ManifestEntry struct {
	UnitID      string      `json:"unit_id"`
	Section     string      `json:"section"`
	Disposition Disposition `json:"disposition"`
	Note        string      `json:"note,omitempty"`
}

// Manifest lists what was dropped, truncated, or degraded so the
// summary's completeness can be audited.
type Manifest struct {
	TotalUnits         int             `json:"total_units"`
	Compressed         int             `json:"compressed"`
	Dropped            int             `json:"dropped"`
	Truncated          int             `json:"truncated"`
	PreservationFailed int             `json:"preservation_failed"`
	Entries            []ManifestEntry `json:"entries,omitempty"`
}

// Document is the final report: an ordered tree of condensed sections,
// digests, and chart specs, plus the transparency manifest. It contains no
// timestamps or random identifiers, so identical inputs produce identical
// bytes.
type Document struct {
	Title    string     `json:"title"`
	Sections []*Section `json:"sections"`
	Manifest Manifest   `json:"manifest"`
}

var (
	slugStripRe    = regexp.MustCompile(`[^a-z0-9-]`)
	slugCollapseRe = regexp.MustCompile(`-+`)
)

// Slugify converts a title to a URL/anchor-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "-")
	s = slugStripRe.ReplaceAllString(s, "-")
	s = slugCollapseRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 60 {
		s = s[:60]
	}
	if s == "" {
		s = "section"
	}
	return s
}
