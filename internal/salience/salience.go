// Package salience scores units and tables/figures by importance relative
// to the whole document. Scoring is deterministic and independent of
// computation order.
package salience

import (
	"math"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/VishnuVamsi7/DocReporter/internal/doctree"
	"github.com/VishnuVamsi7/DocReporter/internal/segment"
)

// Weights are the mixing coefficients for the three signals.
type Weights struct {
	Structural float64 `yaml:"structural"`
	Lexical    float64 `yaml:"lexical"`
	Uniqueness float64 `yaml:"uniqueness"`
}

// Features records the per-signal contributions behind a score, kept for
// explainability and tests.
type Features struct {
	Structural float64 `json:"structural"`
	Lexical    float64 `json:"lexical"`
	Uniqueness float64 `json:"uniqueness"`
}

// Score is the final [0,1] salience of one unit.
type Score struct {
	UnitID   string   `json:"unit_id"`
	Value    float64  `json:"value"`
	Features Features `json:"features"`
}

// Config controls ranking.
type Config struct {
	Weights Weights
	// Keywords are domain terms that raise lexical signal when present.
	Keywords []string
}

// DefaultConfig returns the default weights.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{Structural: 0.4, Lexical: 0.35, Uniqueness: 0.25},
	}
}

// Result holds the unit scores (parallel to the input unit slice) and the
// per-table/figure node scores.
type Result struct {
	Units []Score
	// Nodes maps table/figure node ids to their salience.
	Nodes map[int]float64
}

// ByUnitID returns the score for a unit id.
func (r Result) ByUnitID(id string) (Score, bool) {
	for _, s := range r.Units {
		if s.UnitID == id {
			return s, true
		}
	}
	return Score{}, false
}

// Rank scores every unit and every table/figure. The final value is a
// weighted sum of structural weight, lexical signal, and uniqueness,
// max-normalized to [0,1] across units. Equal inputs always produce equal
// outputs: all iteration is over slices in document order.
func Rank(tree *doctree.Tree, units []*segment.Unit, cfg Config) Result {
	w := cfg.Weights
	if w.Structural+w.Lexical+w.Uniqueness <= 0 {
		w = DefaultConfig().Weights
	}

	keywords := make(map[string]bool, len(cfg.Keywords))
	for _, k := range cfg.Keywords {
		keywords[strings.ToLower(k)] = true
	}

	// Document frequency of terms across units.
	unitTerms := make([][]uint64, len(units))
	df := make(map[uint64]int, 1024)
	for i, u := range units {
		terms := distinctTerms(u.Serialize())
		unitTerms[i] = terms
		for _, t := range terms {
			df[t]++
		}
	}

	// Intro/conclusion detection: first and last unit under each
	// top-level section path.
	first, last := sectionEdges(units)

	n := float64(len(units))
	scores := make([]Score, len(units))
	for i, u := range units {
		f := Features{
			Structural: structuralWeight(u, first[i], last[i]),
			Lexical:    lexicalSignal(u.Serialize(), keywords),
			Uniqueness: uniqueness(unitTerms[i], df, n),
		}
		scores[i] = Score{
			UnitID:   u.ID,
			Value:    w.Structural*f.Structural + w.Lexical*f.Lexical + w.Uniqueness*f.Uniqueness,
			Features: f,
		}
	}

	// Max-normalize to [0,1].
	max := 0.0
	for _, s := range scores {
		if s.Value > max {
			max = s.Value
		}
	}
	if max > 0 {
		for i := range scores {
			scores[i].Value /= max
		}
	}

	nodes := make(map[int]float64)
	for i, u := range units {
		for _, nd := range u.Nodes {
			if nd.Kind != doctree.NodeTable && nd.Kind != doctree.NodeFigure {
				continue
			}
			// A table's salience rides on its unit, lifted by how
			// numeric its body is: dense data tables matter.
			v := scores[i].Value
			if nd.Kind == doctree.NodeTable {
				v = 0.5*v + 0.5*numericFraction(nd.Rows)
			}
			if v > 1 {
				v = 1
			}
			nodes[nd.ID] = v
		}
	}

	return Result{Units: scores, Nodes: nodes}
}

// structuralWeight favors shallow sections; introductions and conclusions
// of top-level sections get a fixed lift.
func structuralWeight(u *segment.Unit, isFirst, isLast bool) float64 {
	depth := len(u.Breadcrumb)
	if depth < 1 {
		depth = 1
	}
	v := 1.0 / float64(depth)
	if depth == 1 && (isFirst || isLast) {
		v += 0.2
	}
	if v > 1 {
		v = 1
	}
	return v
}

// lexicalSignal measures the density of numbers, named entities, and
// domain keywords relative to unit length.
func lexicalSignal(text string, keywords map[string]bool) float64 {
	tokens := segment.EstimateTokens(text)
	if tokens == 0 {
		return 0
	}
	hits := len(Entities(text))
	for _, word := range strings.Fields(strings.ToLower(text)) {
		if keywords[strings.Trim(word, ".,;:!?()")] {
			hits++
		}
	}
	d := float64(hits) / float64(tokens)
	v := d * 8.0
	if v > 1 {
		v = 1
	}
	return v
}

// uniqueness is the mean inverse document frequency of the unit's distinct
// terms: distinctive content outranks boilerplate repeated across units.
func uniqueness(terms []uint64, df map[uint64]int, n float64) float64 {
	if len(terms) == 0 || n <= 1 {
		return 0
	}
	sum := 0.0
	for _, t := range terms {
		sum += math.Log(1.0+n/float64(df[t])) / math.Log(1.0+n)
	}
	return sum / float64(len(terms))
}

// distinctTerms returns xxhash-hashed lowercase terms (len >= 4, stopwords
// removed) in first-appearance order.
func distinctTerms(text string) []uint64 {
	seen := make(map[uint64]bool)
	var out []uint64
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?()[]{}\"'")
		if len(w) < 4 || stopwords[w] {
			continue
		}
		if _, err := strconv.ParseFloat(w, 64); err == nil {
			continue
		}
		h := xxhash.Sum64String(w)
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

// sectionEdges marks, for each unit, whether it is the first or last unit
// under its top-level section.
func sectionEdges(units []*segment.Unit) (first, last []bool) {
	first = make([]bool, len(units))
	last = make([]bool, len(units))
	top := func(u *segment.Unit) string {
		if len(u.Breadcrumb) == 0 {
			return ""
		}
		return u.Breadcrumb[0]
	}
	seen := make(map[string]bool)
	for i, u := range units {
		k := top(u)
		if !seen[k] {
			seen[k] = true
			first[i] = true
		}
	}
	lastIdx := make(map[string]int)
	for i, u := range units {
		lastIdx[top(u)] = i
	}
	for _, i := range lastIdx {
		last[i] = true
	}
	return first, last
}

var stopwords = map[string]bool{
	"this": true, "that": true, "with": true, "from": true, "have": true,
	"were": true, "been": true, "their": true, "which": true, "would": true,
	"there": true, "about": true, "other": true, "these": true, "than": true,
	"will": true, "also": true, "such": true, "into": true, "over": true,
	"more": true, "most": true, "some": true, "each": true, "when": true,
	"where": true, "while": true, "after": true, "before": true, "between": true,
}

// numericFraction is the share of non-header cells that parse as numbers.
func numericFraction(rows [][]string) float64 {
	if len(rows) < 2 {
		return 0
	}
	total, numeric := 0, 0
	for _, row := range rows[1:] {
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if cell == "" {
				continue
			}
			total++
			if _, ok := ParseNumeric(cell); ok {
				numeric++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(numeric) / float64(total)
}

// ParseNumeric parses a table cell as a number, tolerating currency signs,
// thousands separators, and percent suffixes.
func ParseNumeric(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	s = strings.TrimLeft(s, "$€£")
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
