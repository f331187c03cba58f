package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Sumatoshi-tech/codedrift/pkg/event"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "gpt-4o-mini"

const systemPrompt = `You are a senior code reviewer. Given the before and
after text of one changed source file, report notable semantic observations
that pattern-based analysis would miss. Reply with ONLY a JSON array; each
element has: label (snake_case string), node_id (qualified path or empty),
details, reasoning, confidence (0..1), impact (none|low|medium|high),
start_line, end_line. Reply [] when nothing is notable.`

// chatCompleter is the slice of the OpenAI client the classifier needs.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI is the go-openai backed advisory classifier.
type OpenAI struct {
	client chatCompleter
	model  string
	log    *slog.Logger
}

// NewOpenAI creates the classifier with its own client for the given key.
func NewOpenAI(apiKey, model string, log *slog.Logger) *OpenAI {
	return newOpenAI(openai.NewClient(apiKey), model, log)
}

func newOpenAI(client chatCompleter, model string, log *slog.Logger) *OpenAI {
	if model == "" {
		model = DefaultModel
	}

	if log == nil {
		log = slog.Default()
	}

	return &OpenAI{client: client, model: model, log: log}
}

// Classify requests advisory events for one file's revision pair. The reply
// must satisfy the embedded schema; anything else is ErrInvalidResponse.
func (o *OpenAI) Classify(ctx context.Context, beforeText, afterText []byte, path string) ([]event.Event, error) {
	prompt := buildPrompt(beforeText, afterText, path)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty completion", ErrInvalidResponse)
	}

	raw := stripFences(resp.Choices[0].Message.Content)

	events, err := decodeAdvisoryEvents([]byte(raw), path)
	if err != nil {
		return nil, err
	}

	o.log.Debug("advisory classification",
		slog.String("file", path),
		slog.Int("events", len(events)))

	return events, nil
}

func buildPrompt(beforeText, afterText []byte, path string) string {
	var sb strings.Builder

	sb.WriteString("File: ")
	sb.WriteString(path)
	sb.WriteString("\n\n--- BEFORE ---\n")
	sb.Write(beforeText)
	sb.WriteString("\n--- AFTER ---\n")
	sb.Write(afterText)

	return sb.String()
}

// stripFences unwraps a markdown code fence around the JSON body, which chat
// models add despite instructions.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)

	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")

	return strings.TrimSpace(trimmed)
}
