package ai

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

type stubCompleter struct {
	content string
	err     error
}

func (s *stubCompleter) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}

	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.content}},
		},
	}, nil
}

func classifierWith(content string) *OpenAI {
	return newOpenAI(&stubCompleter{content: content}, "", nil)
}

func TestClassifyValidResponse(t *testing.T) {
	t.Parallel()

	classifier := classifierWith(`[
		{
			"label": "error_handling_weakened",
			"node_id": "fetch",
			"details": "broad except replaces typed handler",
			"reasoning": "the new handler swallows all exceptions",
			"confidence": 0.82,
			"impact": "medium",
			"start_line": 10,
			"end_line": 18
		}
	]`)

	events, err := classifier.Classify(context.Background(), []byte("a"), []byte("b"), "app.py")
	require.NoError(t, err)
	require.Len(t, events, 1)

	evt := events[0]
	assert.Equal(t, event.KindAdvisory, evt.Kind)
	assert.Equal(t, "error_handling_weakened", evt.Advisory)
	assert.Equal(t, "fetch", evt.NodeID)
	assert.Equal(t, "app.py", evt.File)
	assert.Equal(t, event.LayerAdvisory, evt.Layer)
	require.NotNil(t, evt.Confidence)
	assert.InDelta(t, 0.82, *evt.Confidence, 1e-9)
	assert.Equal(t, event.ImpactMedium, evt.Impact)
}

func TestClassifyFencedResponse(t *testing.T) {
	t.Parallel()

	classifier := classifierWith("```json\n[]\n```")

	events, err := classifier.Classify(context.Background(), nil, nil, "app.py")
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestClassifyRejectsMalformedJSON(t *testing.T) {
	t.Parallel()

	classifier := classifierWith(`not json at all`)

	_, err := classifier.Classify(context.Background(), nil, nil, "app.py")
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestClassifyRejectsSchemaViolation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{"missing label", `[{"confidence": 0.5}]`},
		{"confidence out of range", `[{"label": "x", "confidence": 1.5}]`},
		{"unknown field", `[{"label": "x", "confidence": 0.5, "extra": 1}]`},
		{"not an array", `{"label": "x", "confidence": 0.5}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			classifier := classifierWith(tc.content)

			_, err := classifier.Classify(context.Background(), nil, nil, "app.py")
			require.ErrorIs(t, err, ErrInvalidResponse)
		})
	}
}

func TestClassifyTransportFailure(t *testing.T) {
	t.Parallel()

	classifier := newOpenAI(&stubCompleter{err: errors.New("connection refused")}, "", nil)

	_, err := classifier.Classify(context.Background(), nil, nil, "app.py")
	require.ErrorIs(t, err, ErrUnavailable)
}
