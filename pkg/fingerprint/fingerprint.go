// Package fingerprint derives the content identity used for idea
// deduplication. Every site that needs an idea's fingerprint goes
// through Compute so the normalization can never drift between the
// assignment site and fallback recomputation.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/Mindburn-Labs/rudder/pkg/contracts"
)

// Compute hashes the normalized semantic fields of an idea. Field order
// is fixed (title, recommended action, description) and fields are
// separated so content cannot shift across a boundary and collide.
func Compute(title, recommendedAction, description string) string {
	h := sha256.New()
	h.Write([]byte(normalize(title)))
	h.Write([]byte{'\n'})
	h.Write([]byte(normalize(recommendedAction)))
	h.Write([]byte{'\n'})
	h.Write([]byte(normalize(description)))
	return hex.EncodeToString(h.Sum(nil))
}

// normalize trims surrounding whitespace and applies NFC plus Unicode
// case folding, so the digest is independent of locale and of how the
// producer happened to compose or case the text.
func normalize(s string) string {
	s = strings.TrimSpace(norm.NFC.String(s))
	return cases.Fold().String(s)
}

// Of returns the idea's carried fingerprint when present, computing one
// only as a fallback for records that genuinely lost it.
func Of(idea *contracts.Idea) string {
	if idea == nil {
		return ""
	}
	if idea.Fingerprint != "" {
		return idea.Fingerprint
	}
	return Compute(idea.Title, idea.RecommendedAction, idea.Description)
}

// Assign sets the fingerprint if the idea does not carry one yet and
// returns it. Existing fingerprints are never overwritten.
func Assign(idea *contracts.Idea) string {
	if idea.Fingerprint == "" {
		idea.Fingerprint = Compute(idea.Title, idea.RecommendedAction, idea.Description)
	}
	return idea.Fingerprint
}
