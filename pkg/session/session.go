package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type ManagerConfig struct {
	MaxHistory int // exchanges retained per session
}

type exchange struct {
	user      string
	assistant string
}

// Manager keeps per-session conversation history in memory. It is safe
// for concurrent use; history is lost on restart.
type Manager struct {
	config   ManagerConfig
	mu       sync.Mutex
	sessions map[string][]exchange
}

func NewWithConfig(config ManagerConfig) *Manager {
	if config.MaxHistory == 0 {
		config.MaxHistory = 2
	}
	return &Manager{
		config:   config,
		sessions: make(map[string][]exchange),
	}
}

// NewSessionID returns a fresh identifier for callers that did not
// supply one.
func (m *Manager) NewSessionID() string {
	return uuid.New().String()
}

// AddExchange appends a completed user/assistant turn, evicting the
// oldest exchange once the session exceeds MaxHistory.
func (m *Manager) AddExchange(sessionID, userMessage, assistantMessage string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.sessions[sessionID], exchange{user: userMessage, assistant: assistantMessage})
	if len(history) > m.config.MaxHistory {
		history = history[len(history)-m.config.MaxHistory:]
	}
	m.sessions[sessionID] = history
}

// GetHistory formats a session's exchanges oldest first. The second
// return is false when the session has no history yet.
func (m *Manager) GetHistory(sessionID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := m.sessions[sessionID]
	if len(history) == 0 {
		return "", false
	}

	lines := make([]string, 0, len(history)*2)
	for _, e := range history {
		lines = append(lines, fmt.Sprintf("User: %s", e.user))
		lines = append(lines, fmt.Sprintf("Assistant: %s", e.assistant))
	}
	return strings.Join(lines, "\n"), true
}

// ClearSession drops a session's history entirely.
func (m *Manager) ClearSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}
