package contracts

import "strings"

// Idea is a candidate suggestion flowing through the pipeline. Research
// ideas arrive from a producer; operational suggestions arrive from the
// log-ingest worker. OperationalRisk and Confidence stay untyped on
// purpose: they are externally supplied and the ops scoring model is the
// single place allowed to judge whether they are usable numbers.
type Idea struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	Severity          string `json:"severity,omitempty"`
	RecommendedAction string `json:"recommended_action"`
	OperationalRisk   any    `json:"operational_risk,omitempty"`
	Confidence        any    `json:"confidence,omitempty"`
	Priority          string `json:"priority,omitempty"`

	// Fingerprint is assigned once, at first creation of the idea, and
	// propagated unchanged through every downstream record.
	Fingerprint string `json:"fingerprint,omitempty"`
}

// PriorityTier returns the normalized priority, defaulting to "medium".
func (i Idea) PriorityTier() string {
	p := strings.ToLower(strings.TrimSpace(i.Priority))
	if p == "" {
		return "medium"
	}
	return p
}

// SeverityTier returns the normalized severity. Unknown tiers are left
// as-is; the ops model maps anything unrecognized to the lowest bonus.
func (i Idea) SeverityTier() string {
	return strings.ToLower(strings.TrimSpace(i.Severity))
}
