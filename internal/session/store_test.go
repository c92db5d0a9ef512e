package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yates-Labs/ragchat/internal/chat"
)

func TestMemoryStore_UnknownSessionIsEmpty(t *testing.T) {
	s := NewMemoryStore()
	assert.Empty(t, s.History("nadie"))
	assert.Empty(t, s.Sessions())
}

func TestMemoryStore_AppendPreservesOrder(t *testing.T) {
	s := NewMemoryStore()
	s.Append(DefaultID, chat.UserMessage("q1"), chat.AssistantMessage("a1"))
	s.Append(DefaultID, chat.UserMessage("q2"), chat.AssistantMessage("a2"))

	assert.Equal(t, []chat.Message{
		chat.UserMessage("q1"),
		chat.AssistantMessage("a1"),
		chat.UserMessage("q2"),
		chat.AssistantMessage("a2"),
	}, s.History(DefaultID))
}

func TestMemoryStore_HistoryReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	s.Append("a", chat.UserMessage("original"))

	h := s.History("a")
	h[0].Content = "cambiado"

	assert.Equal(t, "original", s.History("a")[0].Content)
}

func TestMemoryStore_SessionsAreIsolated(t *testing.T) {
	s := NewMemoryStore()
	s.Append("a", chat.UserMessage("de a"))
	s.Append("b", chat.UserMessage("de b"))

	require.Len(t, s.History("a"), 1)
	assert.Equal(t, "de a", s.History("a")[0].Content)
	assert.Len(t, s.Sessions(), 2)

	s.Clear("a")
	assert.Empty(t, s.History("a"))
	assert.Len(t, s.History("b"), 1)
}

func TestMemoryStore_GetOrCreate(t *testing.T) {
	s := NewMemoryStore()
	sess := s.GetOrCreate("nuevo")
	assert.Equal(t, "nuevo", sess.ID)
	assert.Empty(t, sess.History)
	require.Len(t, s.Sessions(), 1)

	s.Append("nuevo", chat.UserMessage("hola"))
	sess = s.GetOrCreate("nuevo")
	assert.Len(t, sess.History, 1)
	assert.Len(t, s.Sessions(), 1)
}

func TestMemoryStore_AppendNothing(t *testing.T) {
	s := NewMemoryStore()
	s.Append("a")
	assert.Empty(t, s.Sessions())
}

func TestMemoryStore_ConcurrentTurns(t *testing.T) {
	s := NewMemoryStore()
	const sessions, turns = 8, 50

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("s%d", i)
		for j := 0; j < turns; j++ {
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				unlock := s.Lock(id)
				defer unlock()
				s.Append(id, chat.UserMessage(fmt.Sprint(j)), chat.AssistantMessage(fmt.Sprint(j)))
			}(j)
		}
	}
	wg.Wait()

	for i := 0; i < sessions; i++ {
		h := s.History(fmt.Sprintf("s%d", i))
		require.Len(t, h, 2*turns)
		for k := 0; k < len(h); k += 2 {
			assert.Equal(t, chat.RoleUser, h[k].Role)
			assert.Equal(t, chat.RoleAssistant, h[k+1].Role)
			assert.Equal(t, h[k].Content, h[k+1].Content, "turn pairs must stay adjacent")
		}
	}
}
