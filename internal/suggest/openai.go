package suggest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const systemPrompt = `You are a comic recommendation engine. Respond only with a JSON object of the form
{"recommendations": [{"title": "...", "reason": "..."}]}
where title is the exact official English title of a real published series and reason is one short sentence.`

type Config struct {
	APIKey string
	Model  string
}

// New returns an OpenAI-backed suggester, or a disabled no-op one when no
// API key is configured. A missing credential disables the capability; it
// is never an error path.
func New(cfg Config, log zerolog.Logger) Suggester {
	if cfg.APIKey == "" {
		log.Info().Msg("no API key configured, AI suggestions disabled")
		return disabled{}
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAISuggester{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
		log:    log,
	}
}

type OpenAISuggester struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

func (s *OpenAISuggester) Enabled() bool { return true }

func (s *OpenAISuggester) Suggest(ctx context.Context, prompt string) ([]Suggestion, error) {
	req := openai.ChatCompletionRequest{
		Model: s.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	suggs, err := ParseSuggestions(resp.Choices[0].Message.Content)
	if err != nil {
		s.log.Warn().Err(err).Str("finish_reason", string(resp.Choices[0].FinishReason)).Msg("unparsable model output")
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}
	return suggs, nil
}

// disabled satisfies Suggester when no credential is configured.
type disabled struct{}

func (disabled) Enabled() bool { return false }

func (disabled) Suggest(context.Context, string) ([]Suggestion, error) {
	return nil, nil
}
