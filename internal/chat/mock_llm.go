package chat

import (
	"context"
	"fmt"
	"sync"
)

// MockLLM is a deterministic ChatModel for testing.
type MockLLM struct {
	mu sync.Mutex

	// Response is the fixed text returned by Chat.
	// If empty, a reply echoing the last user message is generated.
	Response string

	// Error, if set, is returned by Chat instead of a response.
	Error error

	// LastMessages stores the most recent transcript passed to Chat.
	LastMessages []Message

	// Calls counts Chat invocations.
	Calls int
}

var _ ChatModel = (*MockLLM)(nil)

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Chat returns the configured response or a deterministic echo.
func (m *MockLLM) Chat(_ context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.LastMessages = append([]Message(nil), messages...)

	if m.Error != nil {
		return "", m.Error
	}
	if m.Response != "" {
		return m.Response, nil
	}

	return fmt.Sprintf("respuesta %d a %d mensajes", m.Calls, len(messages)), nil
}

// Last returns a copy of the most recent transcript.
func (m *MockLLM) Last() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.LastMessages...)
}
