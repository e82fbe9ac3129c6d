// Package compress orchestrates the external text-compression backend:
// per-unit requests under a character budget, entity preservation checks,
// retries, and the truncation fallback that keeps the pipeline alive when
// the backend is down.
package compress

import (
	"context"
	"fmt"
	"strings"
)

// Request is one call to the compression backend.
type Request struct {
	UnitID string
	Text   string
	// TargetChars is the budget for the condensed text.
	TargetChars int
	// RequiredEntities must appear verbatim in the output.
	RequiredEntities []string
}

// Response is the backend's answer.
type Response struct {
	Text string
	// CoveredEntities is the backend's own report of which required
	// entities it kept. The engine verifies independently.
	CoveredEntities []string
}

// Compressor is the black-box text-compression service.
type Compressor interface {
	Compress(ctx context.Context, req Request) (*Response, error)
}

// QualityFlag records how a unit's compression went.
type QualityFlag string

const (
	FlagOK                 QualityFlag = "ok"
	FlagTruncated          QualityFlag = "truncated"
	FlagPreservationFailed QualityFlag = "preservation_failed"
)

// CompressedUnit is the engine's output for one unit.
type CompressedUnit struct {
	UnitID string      `json:"unit_id"`
	Text   string      `json:"text"`
	Flag   QualityFlag `json:"flag"`
	// Preserved lists required entities verified present in Text;
	// Missing lists the ones that did not survive.
	Preserved []string `json:"preserved,omitempty"`
	Missing   []string `json:"missing,omitempty"`
	Attempts  int      `json:"attempts"`
}

// RetryableError indicates a transient backend failure worth retrying.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable backend error (status %d): %s", e.StatusCode, truncateStr(e.Message, 200))
}

// CompressionError reports a backend that stayed unreachable or malformed
// after retries. The pipeline recovers locally (truncation fallback);
// the error surfaces only in logs and the manifest.
type CompressionError struct {
	UnitID string
	Err    error
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("compression backend failed for unit %s: %v", e.UnitID, e.Err)
}

func (e *CompressionError) Unwrap() error { return e.Err }

// Truncate cuts text to at most limit characters at a word boundary,
// appending an ellipsis. It is the verbatim fallback when the backend is
// unavailable or keeps dropping entities.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	const ellipsis = " …"
	cut := limit - len([]rune(ellipsis))
	if cut < 1 {
		cut = 1
	}
	s := string(runes[:cut])
	if i := strings.LastIndexAny(s, " \n\t"); i > cut/2 {
		s = s[:i]
	}
	return s + ellipsis
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
