package chat

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIChatModel implements ChatModel using an OpenAI-compatible API.
type OpenAIChatModel struct {
	client openai.Client
	config LLMConfig
}

var _ ChatModel = (*OpenAIChatModel)(nil)

// NewOpenAIChatModel creates an OpenAI-compatible chat model.
// Returns an error if the API key or model name is missing.
func NewOpenAIChatModel(config LLMConfig) (*OpenAIChatModel, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", ErrInvalidConfig)
	}
	if config.Model == "" {
		return nil, fmt.Errorf("%w: missing model name", ErrInvalidConfig)
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAIChatModel{
		client: openai.NewClient(opts...),
		config: config,
	}, nil
}

// Model returns the configured model name.
func (o *OpenAIChatModel) Model() string {
	return o.config.Model
}

// Chat sends the transcript and returns the first choice's content.
func (o *OpenAIChatModel) Chat(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", ErrInvalidConfig)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.config.Model),
		Messages: toOpenAIMessages(messages),
	}

	// Set optional parameters if configured
	if o.config.Temperature != nil {
		params.Temperature = openai.Float(float64(*o.config.Temperature))
	}
	if o.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(o.config.MaxTokens))
	}

	completion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}

	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no response generated", ErrLLMFailed)
	}

	return completion.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
