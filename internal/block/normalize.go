package block

import (
	"sort"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// NormalizeConfig controls block cleanup and coalescing.
type NormalizeConfig struct {
	// MergeGap is the maximum vertical gap (in page units) between two
	// consecutive text blocks that may be merged into one run.
	MergeGap float64
	// MinPrintableRatio drops blocks whose text is mostly garbage
	// (broken font encodings, PUA runes).
	MinPrintableRatio float64
}

// DefaultNormalizeConfig returns the defaults used by the pipeline.
func DefaultNormalizeConfig() NormalizeConfig {
	return NormalizeConfig{
		MergeGap:          6.0,
		MinPrintableRatio: 0.7,
	}
}

// Normalize cleans raw extractor output and returns blocks in reading order.
// Text is whitespace-normalized, garbage blocks are dropped, and consecutive
// text runs on the same page within MergeGap are coalesced. Indexes are
// reassigned sequentially; the result is the immutable input to the
// structure builder.
//
// A block whose box spans a page boundary keeps the page it starts on;
// ordering is a stable sort by page with incoming order breaking ties.
func Normalize(raw []ContentBlock, cfg NormalizeConfig) []ContentBlock {
	if cfg.MergeGap <= 0 {
		cfg.MergeGap = 6.0
	}
	if cfg.MinPrintableRatio <= 0 {
		cfg.MinPrintableRatio = 0.7
	}

	cleaned := make([]ContentBlock, 0, len(raw))
	for _, b := range raw {
		if b.Kind != KindFigure {
			b.Text = cleanText(b.Text)
			if b.Text == "" {
				continue
			}
			if printableRatio(b.Text) < cfg.MinPrintableRatio {
				continue
			}
		}
		cleaned = append(cleaned, b)
	}

	// Stable: preserves extractor order within a page.
	sort.SliceStable(cleaned, func(i, j int) bool {
		return cleaned[i].Page < cleaned[j].Page
	})

	out := make([]ContentBlock, 0, len(cleaned))
	for _, b := range cleaned {
		if n := len(out); n > 0 && mergeable(out[n-1], b, cfg.MergeGap) {
			prev := &out[n-1]
			prev.Text = prev.Text + " " + b.Text
			prev.BBox = prev.BBox.Union(b.BBox)
			continue
		}
		out = append(out, b)
	}

	for i := range out {
		out[i].Index = i
	}
	return out
}

// mergeable reports whether b continues the text run started by prev.
func mergeable(prev, b ContentBlock, gap float64) bool {
	if prev.Kind != KindText || b.Kind != KindText {
		return false
	}
	if prev.Page != b.Page {
		return false
	}
	if prev.BBox.IsZero() || b.BBox.IsZero() {
		return false
	}
	return prev.BBox.VerticalGap(b.BBox) <= gap
}

// cleanText collapses whitespace and strips unprintable runes.
func cleanText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			space = true
		case isGarbageRune(r):
			// skip
		default:
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = false
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// isGarbageRune flags runes produced by broken PDF font maps: the Unicode
// private use area, the replacement character, and raw control codes.
func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == 0xFFFD {
		return true
	}
	return r < 0x20
}

// printableRatio returns the fraction of printable runes in text.
func printableRatio(text string) float64 {
	if text == "" {
		return 1.0
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) {
			printable++
		}
	}
	if total == 0 {
		return 1.0
	}
	return float64(printable) / float64(total)
}

// ContentHash returns a stable hash of the normalized block text, used for
// duplicate-submission detection.
func ContentHash(blocks []ContentBlock) uint64 {
	h := xxhash.New()
	for _, b := range blocks {
		_, _ = h.WriteString(b.Text)
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}
