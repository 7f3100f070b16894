package rag_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/jobModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/answer"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/chunker"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/ingest"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/registry"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/retrieval"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/session"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

func init() {
	logger_i.Init()
}

type testEnv struct {
	service  rag.Service
	vectors  *MockVectorDB
	embedder *MockEmbedder
	llm      *MockLLM
	cache    *MockAnswerCache
	registry *registry.Registry
	sessions session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mVec := &MockVectorDB{}
	mEmbed := &MockEmbedder{}
	mLLM := &MockLLM{}
	mCache := &MockAnswerCache{}

	reg := registry.NewRegistry(t.TempDir())
	sessions := session.NewMemoryStore()

	c, err := chunker.New(config.ChunkSize, config.ChunkOverlap)
	if err != nil {
		t.Fatalf("chunker setup failed: %v", err)
	}

	pipeline := ingest.NewPipeline(c, mEmbed, mVec, reg)
	retriever := retrieval.NewEngine(mEmbed, mVec)
	generator := answer.NewGenerator(reg, mLLM, "test-model")

	return &testEnv{
		service:  rag.NewService(mVec, mEmbed, reg, sessions, pipeline, retriever, generator, mCache),
		vectors:  mVec,
		embedder: mEmbed,
		llm:      mLLM,
		cache:    mCache,
		registry: reg,
		sessions: sessions,
	}
}

func registerDoc(t *testing.T, env *testEnv, id string, filename string) {
	t.Helper()
	env.registry.Register(docModel.Document{Id: id, Filename: filename, FileType: docModel.TXT})
}

func testCtx() context.Context {
	return context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
}

func relevantMatch(documentId string) vectorDB.Match {
	return vectorDB.Match{
		ChunkId:    documentId + "_chunk_0000",
		DocumentId: documentId,
		Text:       "relevant chunk text",
		Similarity: 0.92,
	}
}

func TestAsk_ScopeResolution(t *testing.T) {
	tests := []struct {
		name          string
		explicit      string
		activeDoc     string
		expectedScope string
	}{
		{name: "Explicit_Wins_Over_Active", explicit: "doc-1", activeDoc: "doc-2", expectedScope: "doc-1"},
		{name: "Active_Document_Used", explicit: "", activeDoc: "doc-2", expectedScope: "doc-2"},
		{name: "Unscoped_When_Nothing_Set", explicit: "", activeDoc: "", expectedScope: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			registerDoc(t, env, "doc-1", "first.txt")
			registerDoc(t, env, "doc-2", "second.txt")

			var searchedScope string
			env.vectors.OnSearch = func(ctx context.Context, v []float32, k int, scope string) ([]vectorDB.Match, error) {
				searchedScope = scope
				return []vectorDB.Match{relevantMatch("doc-1")}, nil
			}

			ctx := testCtx()
			if tt.activeDoc != "" {
				if err := env.sessions.SetActive(ctx, "client-1", tt.activeDoc); err != nil {
					t.Fatal(err)
				}
			}

			result, err := env.service.Ask(ctx, "what is this", "client-1", tt.explicit)
			if err != nil {
				t.Fatalf("Ask failed: %v", err)
			}

			if searchedScope != tt.expectedScope {
				t.Errorf("Search scope got %q, want %q", searchedScope, tt.expectedScope)
			}
			if result.ScopeDocumentId != tt.expectedScope {
				t.Errorf("Result scope got %q, want %q", result.ScopeDocumentId, tt.expectedScope)
			}
		})
	}
}

func TestAsk_UnknownExplicitDocument(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "first.txt")

	_, err := env.service.Ask(testCtx(), "question", "client-1", "ghost-doc")
	if !errors.Is(err, docModel.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAsk_StaleActiveDocumentCleared(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "first.txt")

	ctx := testCtx()
	if err := env.sessions.SetActive(ctx, "client-1", "deleted-doc"); err != nil {
		t.Fatal(err)
	}

	var searchedScope string
	env.vectors.OnSearch = func(ctx context.Context, v []float32, k int, scope string) ([]vectorDB.Match, error) {
		searchedScope = scope
		return []vectorDB.Match{relevantMatch("doc-1")}, nil
	}

	if _, err := env.service.Ask(ctx, "question", "client-1", ""); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if searchedScope != "" {
		t.Errorf("Stale active document still scoped the search: %q", searchedScope)
	}
	active, _ := env.sessions.GetActive(ctx, "client-1")
	if active != "" {
		t.Errorf("Stale active document not cleared, still %q", active)
	}
}

func TestAsk_LLMAnswerCarriesSources(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "first.txt")

	env.vectors.OnSearch = func(ctx context.Context, v []float32, k int, scope string) ([]vectorDB.Match, error) {
		return []vectorDB.Match{relevantMatch("doc-1")}, nil
	}
	env.llm.OnGenerate = func(ctx context.Context, q string, c string, h []string) (string, error) {
		return "generated answer", nil
	}

	ctx := testCtx()
	result, err := env.service.Ask(ctx, "what is this", "client-1", "")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if result.Answer.Mode != answer.ModeLLM {
		t.Errorf("Mode got %q, want %q", result.Answer.Mode, answer.ModeLLM)
	}
	if result.Answer.Text != "generated answer" {
		t.Errorf("Answer got %q", result.Answer.Text)
	}
	if len(result.Answer.Sources) != 1 || result.Answer.Sources[0].Filename != "first.txt" {
		t.Errorf("Sources got %+v", result.Answer.Sources)
	}
	if result.ContextLength == 0 {
		t.Error("Expected non-zero context length")
	}

	history, _ := env.sessions.History(ctx, "client-1")
	if len(history) != 1 {
		t.Errorf("History length got %d, want 1", len(history))
	}
}

func TestAsk_NoHitsFallsBackToKeywords(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "guide.txt")
	if err := env.registry.StoreContent("doc-1", "Support email is help@example.com\nUnrelated line"); err != nil {
		t.Fatal(err)
	}

	env.vectors.OnSearch = func(ctx context.Context, v []float32, k int, scope string) ([]vectorDB.Match, error) {
		return nil, nil
	}

	llmCalled := false
	env.llm.OnGenerate = func(ctx context.Context, q string, c string, h []string) (string, error) {
		llmCalled = true
		return "should not be used", nil
	}

	result, err := env.service.Ask(testCtx(), "support email", "client-1", "")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if llmCalled {
		t.Error("LLM called without retrieval context")
	}
	if result.Answer.Mode != answer.ModeFallback {
		t.Errorf("Mode got %q, want %q", result.Answer.Mode, answer.ModeFallback)
	}
}

func TestAsk_QuestionEmbeddingFailureIsServerError(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "guide.txt")

	env.embedder.OnGetEmbedding = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("api limit")
	}

	llmCalled := false
	env.llm.OnGenerate = func(ctx context.Context, q string, c string, h []string) (string, error) {
		llmCalled = true
		return "should not be used", nil
	}

	_, err := env.service.Ask(testCtx(), "question words", "client-1", "")
	if err == nil {
		t.Fatal("Expected a server error when the question cannot be embedded")
	}
	if errors.Is(err, docModel.ErrNotFound) {
		t.Errorf("Embedding failure misreported as not-found: %v", err)
	}
	if llmCalled {
		t.Error("LLM called despite failed embedding")
	}
}

func TestAsk_IndexFailureIsServerError(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "guide.txt")

	env.vectors.OnSearch = func(ctx context.Context, v []float32, k int, scope string) ([]vectorDB.Match, error) {
		return nil, errors.New("index unavailable")
	}

	if _, err := env.service.Ask(testCtx(), "question words", "client-1", ""); err == nil {
		t.Fatal("Expected a server error when the vector search fails")
	}
}

func TestAsk_CachedAnswerSkipsRetrievalAndLLM(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "guide.txt")

	env.cache.OnLookup = func(ctx context.Context, v []float32, scope string) (string, string, bool) {
		return "cached answer", "test-model", true
	}

	searchCalled := false
	env.vectors.OnSearch = func(ctx context.Context, v []float32, k int, scope string) ([]vectorDB.Match, error) {
		searchCalled = true
		return nil, nil
	}
	llmCalled := false
	env.llm.OnGenerate = func(ctx context.Context, q string, c string, h []string) (string, error) {
		llmCalled = true
		return "freshly generated", nil
	}

	ctx := testCtx()
	result, err := env.service.Ask(ctx, "what is this", "client-1", "")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if result.Answer.Text != "cached answer" {
		t.Errorf("Answer got %q, want the cached one", result.Answer.Text)
	}
	if result.Answer.Mode != answer.ModeLLM {
		t.Errorf("Mode got %q, want %q", result.Answer.Mode, answer.ModeLLM)
	}
	if searchCalled {
		t.Error("Vector search ran despite a cache hit")
	}
	if llmCalled {
		t.Error("LLM called despite a cache hit")
	}

	history, _ := env.sessions.History(ctx, "client-1")
	if len(history) != 1 {
		t.Errorf("Cached answer not recorded in session history, got %d entries", len(history))
	}
}

func TestAsk_LLMAnswerStoredInCache(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "guide.txt")

	env.vectors.OnSearch = func(ctx context.Context, v []float32, k int, scope string) ([]vectorDB.Match, error) {
		return []vectorDB.Match{relevantMatch("doc-1")}, nil
	}
	env.llm.OnGenerate = func(ctx context.Context, q string, c string, h []string) (string, error) {
		return "generated answer", nil
	}

	var storedAnswer, storedScope string
	env.cache.OnStore = func(ctx context.Context, v []float32, q string, a string, model string, scope string) error {
		storedAnswer = a
		storedScope = scope
		return nil
	}

	if _, err := env.service.Ask(testCtx(), "what is this", "client-1", "doc-1"); err != nil {
		t.Fatalf("Ask failed: %v", err)
	}

	if storedAnswer != "generated answer" {
		t.Errorf("Cached answer got %q, want the generated one", storedAnswer)
	}
	if storedScope != "doc-1" {
		t.Errorf("Cached scope got %q, want doc-1", storedScope)
	}
}

func TestAsk_FallbackAnswerNotCached(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "guide.txt")
	if err := env.registry.StoreContent("doc-1", "Support email is help@example.com"); err != nil {
		t.Fatal(err)
	}

	env.vectors.OnSearch = func(ctx context.Context, v []float32, k int, scope string) ([]vectorDB.Match, error) {
		return nil, nil
	}
	env.cache.OnStore = func(ctx context.Context, v []float32, q string, a string, model string, scope string) error {
		t.Error("Fallback answer ended up in the cache")
		return nil
	}

	result, err := env.service.Ask(testCtx(), "support email", "client-1", "")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if result.Answer.Mode != answer.ModeFallback {
		t.Errorf("Mode got %q, want %q", result.Answer.Mode, answer.ModeFallback)
	}
}

func TestDeleteDocument_Scenarios(t *testing.T) {
	t.Run("Removes_Vectors_And_Registry_Entry", func(t *testing.T) {
		env := newTestEnv(t)
		registerDoc(t, env, "doc-1", "first.txt")
		if err := env.registry.StoreContent("doc-1", "some content"); err != nil {
			t.Fatal(err)
		}

		env.vectors.OnDelete = func(ctx context.Context, documentId string) (int, error) {
			return 3, nil
		}

		removed, err := env.service.DeleteDocument(testCtx(), "doc-1")
		if err != nil {
			t.Fatalf("DeleteDocument failed: %v", err)
		}
		if removed != 3 {
			t.Errorf("Removed got %d, want 3", removed)
		}
		if _, err := env.registry.Get("doc-1"); !errors.Is(err, docModel.ErrNotFound) {
			t.Errorf("Document still registered after delete: %v", err)
		}
	})

	t.Run("Unknown_Document", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.service.DeleteDocument(testCtx(), "ghost-doc")
		if !errors.Is(err, docModel.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Vector_Failure_Keeps_Registry_Entry", func(t *testing.T) {
		env := newTestEnv(t)
		registerDoc(t, env, "doc-1", "first.txt")

		env.vectors.OnDelete = func(ctx context.Context, documentId string) (int, error) {
			return 0, errors.New("index unavailable")
		}

		if _, err := env.service.DeleteDocument(testCtx(), "doc-1"); err == nil {
			t.Fatal("Expected delete error")
		}
		if _, err := env.registry.Get("doc-1"); err != nil {
			t.Errorf("Registry entry dropped despite vector failure: %v", err)
		}
	})
}

func TestDeleteDocument_WaitsForActiveIngestion(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "notes.txt")

	srcPath := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(srcPath, []byte("gate ordering content"), 0o644); err != nil {
		t.Fatal(err)
	}

	embedderEntered := make(chan struct{})
	releaseEmbedder := make(chan struct{})
	env.embedder.OnBatchEmbedding = func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
		close(embedderEntered)
		<-releaseEmbedder
		vectors := make([][]float32, len(chunks))
		for i := range vectors {
			vectors[i] = []float32{0.1}
		}
		return vectors, nil
	}

	var mu sync.Mutex
	var events []string
	env.vectors.OnAdd = func(ctx context.Context, documentId string, chunks []docModel.Chunk, vectors [][]float32) (int, error) {
		mu.Lock()
		events = append(events, "add")
		mu.Unlock()
		return len(chunks), nil
	}
	env.vectors.OnDelete = func(ctx context.Context, documentId string) (int, error) {
		mu.Lock()
		events = append(events, "delete")
		mu.Unlock()
		return 1, nil
	}

	ingestDone := make(chan jobModel.Job, 1)
	go func() {
		job := jobModel.Job{
			Id: "ingest-job-1",
			JobPayload: jobModel.JobPayload{
				DocumentId: "doc-1",
				Filename:   "notes.txt",
				SourcePath: srcPath,
			},
		}
		ingestDone <- env.service.IngestDocument(testCtx(), job)
	}()

	<-embedderEntered

	deleteDone := make(chan struct{})
	go func() {
		defer close(deleteDone)
		if _, err := env.service.DeleteDocument(testCtx(), "doc-1"); err != nil {
			t.Errorf("DeleteDocument failed: %v", err)
		}
	}()

	select {
	case <-deleteDone:
		t.Fatal("Delete finished while ingestion still held the document")
	case <-time.After(100 * time.Millisecond):
	}

	close(releaseEmbedder)

	result := <-ingestDone
	if result.Status != jobModel.JobStatusComplete {
		t.Fatalf("Ingestion status got %v, want %v", result.Status, jobModel.JobStatusComplete)
	}

	select {
	case <-deleteDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Delete never completed after ingestion finished")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) < 2 || events[len(events)-1] != "delete" {
		t.Errorf("Vector delete did not run last: %v", events)
	}
	if _, err := env.registry.Get("doc-1"); !errors.Is(err, docModel.ErrNotFound) {
		t.Errorf("Document still registered after delete: %v", err)
	}
}

func TestDeleteDocument_InvalidatesAnswerCache(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "first.txt")

	if _, err := env.service.DeleteDocument(testCtx(), "doc-1"); err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}

	if atomic.LoadInt32(&env.cache.InvalidateCount) == 0 {
		t.Error("Answer cache not invalidated after delete")
	}
}

func TestIngestDocument_UnsupportedFileFails(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "image.png")

	job := jobModel.Job{
		Id:     "ingest-job-1",
		Status: jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			DocumentId: "doc-1",
			Filename:   "image.png",
			SourcePath: "image.png",
		},
	}

	result := env.service.IngestDocument(testCtx(), job)

	if result.Status != jobModel.JobStatusError {
		t.Errorf("Status got %v, want %v", result.Status, jobModel.JobStatusError)
	}
	if result.Error.Code != http.StatusInternalServerError {
		t.Errorf("Error code got %d, want 500", result.Error.Code)
	}
}

func TestStats_ReportsDocumentAndVectorCounts(t *testing.T) {
	env := newTestEnv(t)
	registerDoc(t, env, "doc-1", "first.txt")
	registerDoc(t, env, "doc-2", "second.txt")

	env.vectors.OnStats = func() vectorDB.Stats {
		return vectorDB.Stats{TotalVectors: 10, LiveVectors: 8, Tombstones: 2, Dimension: 384}
	}

	stats := env.service.Stats()
	if stats.Documents != 2 {
		t.Errorf("Documents got %d, want 2", stats.Documents)
	}
	if stats.VectorStore.LiveVectors != 8 {
		t.Errorf("LiveVectors got %d, want 8", stats.VectorStore.LiveVectors)
	}
}
