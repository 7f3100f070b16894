package session

import (
	"context"
	"sync"
)

// HistoryLimit caps how many past exchanges feed back into the LLM prompt.
const HistoryLimit = 5

// Store tracks per-session conversation state. The session key is whatever
// the transport derives for a client (its IP); the core treats it as opaque.
type Store interface {
	// SetActive pins a document so following questions scope to it.
	SetActive(ctx context.Context, sessionKey string, documentId string) error
	// GetActive returns the pinned document id, empty when none is set.
	GetActive(ctx context.Context, sessionKey string) (string, error)
	ClearActive(ctx context.Context, sessionKey string) error

	// SaveExchange appends a question and answer pair to the history.
	SaveExchange(ctx context.Context, sessionKey string, question string, answer string) error
	// History returns up to HistoryLimit recent exchanges, oldest first.
	History(ctx context.Context, sessionKey string) ([]string, error)
}

type memoryStore struct {
	mu      sync.RWMutex
	active  map[string]string
	history map[string][]string
}

// NewMemoryStore is the fallback used when redis is offline. State is lost
// on restart, which only costs clients their pinned document.
func NewMemoryStore() Store {
	return &memoryStore{
		active:  make(map[string]string),
		history: make(map[string][]string),
	}
}

func (s *memoryStore) SetActive(ctx context.Context, sessionKey string, documentId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[sessionKey] = documentId
	return nil
}

func (s *memoryStore) GetActive(ctx context.Context, sessionKey string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[sessionKey], nil
}

func (s *memoryStore) ClearActive(ctx context.Context, sessionKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, sessionKey)
	return nil
}

func (s *memoryStore) SaveExchange(ctx context.Context, sessionKey string, question string, answer string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[sessionKey] = append(s.history[sessionKey], formatExchange(question, answer))
	return nil
}

func (s *memoryStore) History(ctx context.Context, sessionKey string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.history[sessionKey]
	if len(all) > HistoryLimit {
		all = all[len(all)-HistoryLimit:]
	}
	out := make([]string, len(all))
	copy(out, all)
	return out, nil
}

// FormatExchange renders one question and answer pair for prompt history.
func FormatExchange(question string, answer string) string {
	return formatExchange(question, answer)
}

func formatExchange(question string, answer string) string {
	return "Question: " + question + "\nAnswer: " + answer
}
