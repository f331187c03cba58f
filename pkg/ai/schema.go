package ai

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
	"github.com/Sumatoshi-tech/codedrift/pkg/node"
)

// responseSchema constrains the advisory reply: a JSON array of labelled
// events with bounded confidence. Anything outside it is rejected before
// conversion.
const responseSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["label", "confidence"],
    "properties": {
      "label": {"type": "string", "minLength": 1},
      "node_id": {"type": "string"},
      "details": {"type": "string"},
      "reasoning": {"type": "string"},
      "confidence": {"type": "number", "minimum": 0, "maximum": 1},
      "impact": {"type": "string", "enum": ["none", "low", "medium", "high"]},
      "start_line": {"type": "integer", "minimum": 0},
      "end_line": {"type": "integer", "minimum": 0}
    },
    "additionalProperties": false
  }
}`

// advisoryPayload is the wire form of one advisory event.
type advisoryPayload struct {
	Label      string  `json:"label"`
	NodeID     string  `json:"node_id"`
	Details    string  `json:"details"`
	Reasoning  string  `json:"reasoning"`
	Confidence float64 `json:"confidence"`
	Impact     string  `json:"impact"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
}

// decodeAdvisoryEvents validates a reply against the schema and converts it
// into advisory events for the given file.
func decodeAdvisoryEvents(raw []byte, path string) ([]event.Event, error) {
	var payload any

	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(responseSchema),
		gojsonschema.NewGoLoader(payload),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, err)
	}

	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, result.Errors()[0].String())
	}

	var entries []advisoryPayload
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, err)
	}

	events := make([]event.Event, 0, len(entries))

	for _, entry := range entries {
		confidence := entry.Confidence

		events = append(events, event.Event{
			Kind:       event.KindAdvisory,
			Advisory:   entry.Label,
			NodeID:     entry.NodeID,
			File:       path,
			Span:       node.Span{StartLine: entry.StartLine, EndLine: entry.EndLine},
			Details:    entry.Details,
			Layer:      event.LayerAdvisory,
			Confidence: &confidence,
			Reasoning:  entry.Reasoning,
			Impact:     parseImpact(entry.Impact),
		})
	}

	return events, nil
}

func parseImpact(name string) event.Impact {
	switch name {
	case "low":
		return event.ImpactLow
	case "medium":
		return event.ImpactMedium
	case "high":
		return event.ImpactHigh
	default:
		return event.ImpactNone
	}
}
