package contracts

import (
	"strings"
	"testing"
)

func TestValidateEnvelopeJSON(t *testing.T) {
	valid := `{
		"task_id": "t-1",
		"trace_id": "tr-1",
		"task_type": "RND_ANALYSIS",
		"created_at": "2026-08-21T10:00:00Z",
		"payload": {"title": "x", "description": "Build distributed agent bus using SQS", "priority": "high"}
	}`
	if err := ValidateEnvelopeJSON([]byte(valid)); err != nil {
		t.Fatalf("valid envelope rejected: %v", err)
	}
}

func TestValidateEnvelopeJSONRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{"task_id": `},
		{"missing task_id", `{"trace_id":"tr","task_type":"X","payload":{"description":"d"}}`},
		{"missing payload", `{"task_id":"t","trace_id":"tr","task_type":"X"}`},
		{"missing description", `{"task_id":"t","trace_id":"tr","task_type":"X","payload":{"title":"only"}}`},
		{"empty task_id", `{"task_id":"","trace_id":"tr","task_type":"X","payload":{"description":"d"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := ValidateEnvelopeJSON([]byte(tc.raw)); err == nil {
				t.Fatalf("expected rejection for %s", tc.name)
			}
		})
	}
}

func TestValidateEnvelopeJSONLeavesNumericsToScoring(t *testing.T) {
	// operational_risk arriving as a string must pass the boundary; the
	// ops model is the component that fails loudly on it.
	raw := `{
		"task_id": "t-1",
		"trace_id": "tr-1",
		"task_type": "LOG_SUGGESTION",
		"payload": {"description": "d", "severity": "high", "operational_risk": "not-a-number", "confidence": 0.7}
	}`
	if err := ValidateEnvelopeJSON([]byte(raw)); err != nil {
		t.Fatalf("boundary should not judge numeric fields: %v", err)
	}
}

func TestValidateEnvelopeJSONErrorMentionsSchema(t *testing.T) {
	err := ValidateEnvelopeJSON([]byte(`{"task_id":"t"}`))
	if err == nil || !strings.Contains(err.Error(), "schema") {
		t.Fatalf("expected schema validation error, got %v", err)
	}
}
