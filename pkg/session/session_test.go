package session_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/coursechat/pkg/session"
)

func TestGetHistory_EmptySession(t *testing.T) {
	m := session.NewWithConfig(session.ManagerConfig{})

	history, ok := m.GetHistory("missing")
	assert.False(t, ok)
	assert.Empty(t, history)
}

func TestGetHistory_Formatting(t *testing.T) {
	m := session.NewWithConfig(session.ManagerConfig{MaxHistory: 2})
	m.AddExchange("s1", "What is MCP?", "MCP is a protocol.")
	m.AddExchange("s1", "Who maintains it?", "Anthropic does.")

	history, ok := m.GetHistory("s1")
	require.True(t, ok)
	assert.Equal(t,
		"User: What is MCP?\n"+
			"Assistant: MCP is a protocol.\n"+
			"User: Who maintains it?\n"+
			"Assistant: Anthropic does.",
		history)
}

func TestAddExchange_EvictsOldest(t *testing.T) {
	m := session.NewWithConfig(session.ManagerConfig{MaxHistory: 2})
	m.AddExchange("s1", "first question", "first answer")
	m.AddExchange("s1", "second question", "second answer")
	m.AddExchange("s1", "third question", "third answer")

	history, ok := m.GetHistory("s1")
	require.True(t, ok)
	assert.NotContains(t, history, "first question")
	assert.Contains(t, history, "second question")
	assert.Contains(t, history, "third question")
}

func TestSessionsAreIsolated(t *testing.T) {
	m := session.NewWithConfig(session.ManagerConfig{MaxHistory: 2})
	m.AddExchange("a", "question for a", "answer for a")
	m.AddExchange("b", "question for b", "answer for b")

	historyA, ok := m.GetHistory("a")
	require.True(t, ok)
	assert.NotContains(t, historyA, "question for b")

	historyB, ok := m.GetHistory("b")
	require.True(t, ok)
	assert.NotContains(t, historyB, "question for a")
}

func TestClearSession(t *testing.T) {
	m := session.NewWithConfig(session.ManagerConfig{MaxHistory: 2})
	m.AddExchange("s1", "question", "answer")
	m.ClearSession("s1")

	_, ok := m.GetHistory("s1")
	assert.False(t, ok)
}

func TestNewSessionID_Unique(t *testing.T) {
	m := session.NewWithConfig(session.ManagerConfig{})
	assert.NotEqual(t, m.NewSessionID(), m.NewSessionID())
}

func TestConcurrentAccess(t *testing.T) {
	m := session.NewWithConfig(session.ManagerConfig{MaxHistory: 5})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("session-%d", n%4)
			m.AddExchange(id, "question", "answer")
			m.GetHistory(id)
		}(i)
	}
	wg.Wait()

	history, ok := m.GetHistory("session-0")
	require.True(t, ok)
	assert.Contains(t, history, "User: question")
}
