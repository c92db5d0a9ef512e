// Package orchestrator runs conversation turns: it retrieves context for a
// question, asks the chat model and records the exchange in the session.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Yates-Labs/ragchat/internal/chat"
	"github.com/Yates-Labs/ragchat/internal/rag"
	"github.com/Yates-Labs/ragchat/internal/session"
)

// Retriever returns the chunks most relevant to a query, best first.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]rag.Chunk, error)
}

// Orchestrator answers questions within sessions.
type Orchestrator struct {
	retriever    Retriever
	model        chat.ChatModel
	store        session.Store
	systemPrompt string
	topK         int
}

// New creates an orchestrator. k <= 0 uses rag.DefaultTopK.
func New(retriever Retriever, model chat.ChatModel, store session.Store, systemPrompt string, k int) (*Orchestrator, error) {
	if retriever == nil {
		return nil, errors.New("retriever cannot be nil")
	}
	if model == nil {
		return nil, errors.New("chat model cannot be nil")
	}
	if store == nil {
		return nil, errors.New("session store cannot be nil")
	}
	if k <= 0 {
		k = rag.DefaultTopK
	}
	return &Orchestrator{
		retriever:    retriever,
		model:        model,
		store:        store,
		systemPrompt: systemPrompt,
		topK:         k,
	}, nil
}

// Answer runs one turn. Turns on the same session are serialized; the
// question and answer are appended to history only if the model call
// succeeds.
func (o *Orchestrator) Answer(ctx context.Context, sessionID, question string) (string, error) {
	answer, _, err := o.AnswerWithSources(ctx, sessionID, question)
	return answer, err
}

// AnswerWithSources is Answer that also returns the chunks the answer was
// grounded on, best first.
func (o *Orchestrator) AnswerWithSources(ctx context.Context, sessionID, question string) (string, []rag.Chunk, error) {
	if sessionID == "" {
		sessionID = session.DefaultID
	}

	unlock := o.store.Lock(sessionID)
	defer unlock()

	sess := o.store.GetOrCreate(sessionID)

	chunks, err := o.retriever.Retrieve(ctx, question, o.topK)
	if err != nil {
		return "", nil, &RetrievalError{Query: question, Err: err}
	}

	contents := make([]string, len(chunks))
	for i, c := range chunks {
		contents[i] = c.Content
	}

	messages := chat.BuildMessages(o.systemPrompt, sess.History, chat.JoinContext(contents), question)
	slog.Debug("generating answer",
		"session", sessionID,
		"history", len(sess.History),
		"chunks", len(chunks))

	answer, err := o.model.Chat(ctx, messages)
	if err != nil {
		return "", nil, &GenerationError{SessionID: sessionID, Err: err}
	}

	o.store.Append(sessionID, chat.UserMessage(question), chat.AssistantMessage(answer))
	return answer, chunks, nil
}
