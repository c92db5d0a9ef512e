// Package chat provides the language-model side of the chatbot. It defines a
// provider-agnostic ChatModel interface with an implementation for
// OpenAI-compatible chat completion APIs (Gemini by default) and a
// deterministic mock for testing, plus assembly of the per-turn message list.
package chat

import (
	"context"
	"errors"
)

var (
	ErrLLMFailed     = errors.New("LLM request failed")
	ErrInvalidConfig = errors.New("invalid LLM configuration")
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat transcript.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// UserMessage creates a user message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// SystemMessage creates a system message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// ChatModel defines the interface for interacting with language models.
// Implementations must be stateless and thread-safe.
type ChatModel interface {
	// Chat sends the transcript and returns the model's reply text.
	Chat(ctx context.Context, messages []Message) (string, error)
}

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Model specifies the model identifier (e.g., "gemini-2.5-flash-lite")
	Model string

	// Temperature controls randomness (0.0 = deterministic, 2.0 = very random).
	// nil leaves it to the provider.
	Temperature *float32

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// APIKey is the authentication key for the provider
	APIKey string

	// BaseURL points the client at an OpenAI-compatible endpoint.
	BaseURL string
}

// DefaultTemperature is the sampling temperature used by DefaultLLMConfig.
const DefaultTemperature float32 = 0.8

// DefaultLLMConfig returns the Gemini chat defaults. APIKey and BaseURL are
// left for the caller.
func DefaultLLMConfig() LLMConfig {
	temperature := DefaultTemperature
	return LLMConfig{
		Model:       "gemini-2.5-flash-lite",
		Temperature: &temperature,
	}
}
