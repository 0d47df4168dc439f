// Package interpret defines the consumer contract for the external
// regulation annotator: plain-language summaries keyed by a canonicalized
// regulation-field tuple. The matching and evaluation core only ever reads
// from the cache; computing interpretations is an external concern.
package interpret

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
)

// Interpretation is one annotator output.
type Interpretation struct {
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

// Request carries the raw regulation fields the annotator summarizes.
type Request struct {
	Description string
	Days        string
	Hours       string
	PermitZone  string
}

// Key returns the canonical cache key for a regulation-field tuple: SHA-256
// hex of the normalized fields.
func (r Request) Key() string {
	normalized := fmt.Sprintf("%s|%s|%s|%s",
		strings.ToLower(strings.TrimSpace(r.Description)),
		strings.ToLower(strings.TrimSpace(r.Days)),
		strings.ToLower(strings.TrimSpace(r.Hours)),
		strings.ToLower(strings.TrimSpace(r.PermitZone)),
	)
	return fmt.Sprintf("%x", sha256.Sum256([]byte(normalized)))
}

// Annotator produces interpretations. Implementations are expected to be
// expensive; callers should wrap them in a Cache.
type Annotator interface {
	Interpret(ctx context.Context, req Request) (*Interpretation, error)
}
