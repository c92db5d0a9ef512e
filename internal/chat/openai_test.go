package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completionRequest struct {
	Model       string    `json:"model"`
	Temperature *float64  `json:"temperature"`
	Messages    []Message `json:"messages"`
}

func newCompletionServer(t *testing.T, reply string, got *completionRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(got))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gemini-2.5-flash-lite",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": ` + reply + `}}]
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string) LLMConfig {
	cfg := DefaultLLMConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = baseURL + "/"
	return cfg
}

func TestDefaultLLMConfig(t *testing.T) {
	cfg := DefaultLLMConfig()
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Model)
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.8, *cfg.Temperature, 1e-6)
	assert.Empty(t, cfg.BaseURL)
}

func TestNewOpenAIChatModel_Validation(t *testing.T) {
	_, err := NewOpenAIChatModel(LLMConfig{Model: "m"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewOpenAIChatModel(LLMConfig{APIKey: "k"})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	m, err := NewOpenAIChatModel(LLMConfig{APIKey: "k", Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "m", m.Model())
}

func TestOpenAIChatModel_Chat(t *testing.T) {
	var got completionRequest
	srv := newCompletionServer(t, `"¡Hola! ¿En qué te ayudo?"`, &got)

	m, err := NewOpenAIChatModel(testConfig(srv.URL))
	require.NoError(t, err)

	reply, err := m.Chat(context.Background(), []Message{
		SystemMessage("Eres un asistente."),
		UserMessage("hola"),
		AssistantMessage("buenas"),
		UserMessage("¿qué tal?"),
	})
	require.NoError(t, err)
	assert.Equal(t, "¡Hola! ¿En qué te ayudo?", reply)

	assert.Equal(t, "gemini-2.5-flash-lite", got.Model)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.8, *got.Temperature, 1e-6)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, RoleUser, got.Messages[1].Role)
	assert.Equal(t, RoleAssistant, got.Messages[2].Role)
	assert.Equal(t, "¿qué tal?", got.Messages[3].Content)
}

func TestOpenAIChatModel_Temperature(t *testing.T) {
	zero := float32(0)
	tests := []struct {
		name        string
		temperature *float32
		want        *float64
	}{
		{name: "zero is sent", temperature: &zero, want: new(float64)},
		{name: "nil is omitted", temperature: nil, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got completionRequest
			srv := newCompletionServer(t, `"ok"`, &got)

			cfg := testConfig(srv.URL)
			cfg.Temperature = tt.temperature
			m, err := NewOpenAIChatModel(cfg)
			require.NoError(t, err)

			_, err = m.Chat(context.Background(), []Message{UserMessage("hola")})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Temperature)
		})
	}
}

func TestOpenAIChatModel_NoMessages(t *testing.T) {
	m, err := NewOpenAIChatModel(LLMConfig{APIKey: "k", Model: "m"})
	require.NoError(t, err)

	_, err = m.Chat(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpenAIChatModel_RequestFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"message": "bad request", "type": "invalid_request_error"}}`))
	}))
	defer srv.Close()

	m, err := NewOpenAIChatModel(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = m.Chat(context.Background(), []Message{UserMessage("hola")})
	assert.ErrorIs(t, err, ErrLLMFailed)
}

func TestOpenAIChatModel_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "x", "object": "chat.completion", "created": 1, "model": "m", "choices": []}`))
	}))
	defer srv.Close()

	m, err := NewOpenAIChatModel(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = m.Chat(context.Background(), []Message{UserMessage("hola")})
	assert.ErrorIs(t, err, ErrLLMFailed)
}

func TestMockLLM(t *testing.T) {
	m := NewMockLLM("fijo")
	reply, err := m.Chat(context.Background(), []Message{UserMessage("a")})
	require.NoError(t, err)
	assert.Equal(t, "fijo", reply)
	assert.Equal(t, 1, m.Calls)
	assert.Equal(t, []Message{UserMessage("a")}, m.Last())

	boom := errors.New("quota exceeded")
	failing := NewMockLLMWithError(boom)
	_, err = failing.Chat(context.Background(), []Message{UserMessage("a")})
	assert.ErrorIs(t, err, boom)

	echo := &MockLLM{}
	reply, err = echo.Chat(context.Background(), []Message{UserMessage("a"), UserMessage("b")})
	require.NoError(t, err)
	assert.Equal(t, "respuesta 1 a 2 mensajes", reply)
}
