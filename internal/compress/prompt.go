package compress

import (
	"fmt"
	"strings"
)

const condensePrompt = `You are given a section of a long document. Rewrite it as a condensed summary.

Rules:
- The summary MUST be at most %d characters.
- Preserve every number, amount, date, and named entity from the REQUIRED list below VERBATIM — do not round, reword, or omit them.
- Keep the original meaning and order of ideas. Do not add opinions or new facts.
- Plain prose only: no headings, no bullet markers, no markdown.

Respond with ONLY the condensed text, no preamble.`

// BuildPrompt creates the backend prompt for one compression request.
func BuildPrompt(req Request) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, condensePrompt, req.TargetChars)
	if len(req.RequiredEntities) > 0 {
		sb.WriteString("\n\nREQUIRED (preserve verbatim): ")
		sb.WriteString(strings.Join(req.RequiredEntities, "; "))
	}
	sb.WriteString("\n\n---\n")
	sb.WriteString(req.Text)
	return sb.String()
}
