package salience

import (
	"regexp"
	"strings"
)

// EntityKind classifies a preservation-relevant token.
type EntityKind string

const (
	EntityNumber  EntityKind = "number"
	EntityName    EntityKind = "name"
	EntityAcronym EntityKind = "acronym"
)

// Entity is a token whose survival through compression is checked.
type Entity struct {
	Text   string
	Kind   EntityKind
	Weight float64
}

var (
	// Currency, thousands separators, decimals, percentages.
	numberRe = regexp.MustCompile(`[-+]?[$€£]?\d[\d,]*(?:\.\d+)?%?`)
	// Two or more capitalized words in sequence.
	nameRe = regexp.MustCompile(`\b[A-Z][a-z]+(?: [A-Z][a-z]+)+\b`)
	// All-caps tokens of length >= 2, excluding pure roman numerals.
	acronymRe = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,9}\b`)
	romanRe   = regexp.MustCompile(`^[IVXLCDM]+$`)
)

// Entities extracts the numbers, multiword proper names, and acronyms from
// text, deduplicated in first-occurrence order. Weights reflect how
// load-bearing each kind tends to be; numbers are never allowed to vanish
// silently.
func Entities(text string) []Entity {
	var out []Entity
	seen := make(map[string]bool)

	add := func(s string, kind EntityKind, w float64) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, Entity{Text: s, Kind: kind, Weight: w})
	}

	for _, m := range numberRe.FindAllString(text, -1) {
		// Bare one-digit numbers are usually list markers, not facts.
		if len(strings.Trim(m, "+-$€£%")) < 2 {
			continue
		}
		add(m, EntityNumber, 1.0)
	}
	for _, m := range nameRe.FindAllString(text, -1) {
		add(m, EntityName, 0.8)
	}
	for _, m := range acronymRe.FindAllString(text, -1) {
		if romanRe.MatchString(m) {
			continue
		}
		add(m, EntityAcronym, 0.7)
	}
	return out
}

// FilterByWeight returns the entity texts whose weight meets the threshold.
func FilterByWeight(entities []Entity, threshold float64) []string {
	var out []string
	for _, e := range entities {
		if e.Weight >= threshold {
			out = append(out, e.Text)
		}
	}
	return out
}
