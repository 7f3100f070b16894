package store

import (
	"context"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/data/redisStore"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/session"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

// RedisSessionStore keeps the active document and conversation history per
// session key. No TTL on the active document: a pinned document stays pinned
// until the client clears it or the document disappears.
type RedisSessionStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisSessionStore(ctx context.Context) *RedisSessionStore {
	inner := redisStore.GetRedisStore(ctx, config.RedisSessionStore)
	if inner == nil {
		return nil
	}
	return &RedisSessionStore{
		store:  inner,
		logger: logger_i.NewLogger("SessionStore"),
	}
}

func activeKey(sessionKey string) string  { return "active:" + sessionKey }
func historyKey(sessionKey string) string { return "history:" + sessionKey }

func (s *RedisSessionStore) SetActive(ctx context.Context, sessionKey string, documentId string) error {
	return s.store.Set(ctx, activeKey(sessionKey), documentId, 0)
}

func (s *RedisSessionStore) GetActive(ctx context.Context, sessionKey string) (string, error) {
	val, err := s.store.Get(ctx, activeKey(sessionKey))
	if s.store.IsNil(err) {
		return "", nil
	}
	if err != nil {
		s.logger.Error("Error reading active document", "sessionKey", sessionKey, "error", err)
		return "", err
	}
	return val, nil
}

func (s *RedisSessionStore) ClearActive(ctx context.Context, sessionKey string) error {
	return s.store.Del(ctx, activeKey(sessionKey))
}

func (s *RedisSessionStore) SaveExchange(ctx context.Context, sessionKey string, question string, answer string) error {
	return s.store.ListPush(ctx, historyKey(sessionKey), session.FormatExchange(question, answer))
}

func (s *RedisSessionStore) History(ctx context.Context, sessionKey string) ([]string, error) {
	return s.store.ListGetLast(ctx, historyKey(sessionKey), session.HistoryLimit)
}

func TestSessionStore(store *redisStore.Store) *RedisSessionStore {
	return &RedisSessionStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
