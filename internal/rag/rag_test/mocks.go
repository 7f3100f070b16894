package rag_test

import (
	"context"
	"sync/atomic"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB"
)

// MockVectorDB implements vectorDB.DataProcessor
type MockVectorDB struct {
	// Control fields to simulate different behaviors
	OnAdd    func(ctx context.Context, documentId string, chunks []docModel.Chunk, vectors [][]float32) (int, error)
	OnDelete func(ctx context.Context, documentId string) (int, error)
	OnSearch func(ctx context.Context, queryVector []float32, k int, scopeDocumentId string) ([]vectorDB.Match, error)
	OnStats  func() vectorDB.Stats
}

func (m *MockVectorDB) Add(ctx context.Context, documentId string, chunks []docModel.Chunk, vectors [][]float32) (int, error) {
	if m.OnAdd != nil {
		return m.OnAdd(ctx, documentId, chunks, vectors)
	}
	return len(chunks), nil
}

func (m *MockVectorDB) Delete(ctx context.Context, documentId string) (int, error) {
	if m.OnDelete != nil {
		return m.OnDelete(ctx, documentId)
	}
	return 0, nil
}

func (m *MockVectorDB) Search(ctx context.Context, queryVector []float32, k int, scopeDocumentId string) ([]vectorDB.Match, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, queryVector, k, scopeDocumentId)
	}
	return nil, nil
}

func (m *MockVectorDB) Stats() vectorDB.Stats {
	if m.OnStats != nil {
		return m.OnStats()
	}
	return vectorDB.Stats{}
}

func (m *MockVectorDB) Save() error { return nil }
func (m *MockVectorDB) Load() error { return nil }

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks, isHuge)
	}
	// Return dummy vectors matching chunk size
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = []float32{0.1}
	}
	return vectors, nil
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{0.1}, nil
}

// MockAnswerCache implements rag.AnswerCache
type MockAnswerCache struct {
	OnLookup        func(ctx context.Context, queryVector []float32, scope string) (string, string, bool)
	OnStore         func(ctx context.Context, queryVector []float32, question string, answerText string, model string, scope string) error
	InvalidateCount int32
}

func (m *MockAnswerCache) Lookup(ctx context.Context, queryVector []float32, scope string) (string, string, bool) {
	if m.OnLookup != nil {
		return m.OnLookup(ctx, queryVector, scope)
	}
	return "", "", false
}

func (m *MockAnswerCache) Store(ctx context.Context, queryVector []float32, question string, answerText string, model string, scope string) error {
	if m.OnStore != nil {
		return m.OnStore(ctx, queryVector, question, answerText, model, scope)
	}
	return nil
}

func (m *MockAnswerCache) Invalidate(ctx context.Context) error {
	atomic.AddInt32(&m.InvalidateCount, 1)
	return nil
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, question string, contextText string, history []string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, question string, contextText string, history []string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, question, contextText, history)
	}
	return "mocked llm response", nil
}
