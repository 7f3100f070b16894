package rag

import (
	"context"
	"errors"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/jobModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/metrics"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/answer"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/embedding"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/ingest"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/registry"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/retrieval"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/session"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

/*
ARCHITECTURE NOTE: OPAQUE INTERFACE PATTERN
---------------------------------------------------------

1. Service (Interface):
  - This is the PUBLIC contract.
  - It defines the "behavior" (what handlers and workers can do).
  - We expose this to keep callers decoupled from our specific logic.

2. service (Private Struct):
  - This is the PRIVATE implementation.
  - It holds the "state" (vector store, registry, session store, clients).
  - It is lowercase to prevent external packages from accessing our
    internal dependencies directly.

3. Pointer Receiver (*service):
  - By defining methods on (*service), the struct IMPLICITLY satisfies
    the Service interface.

4. Dependency Injection (NewService):
  - This constructor links the private struct to the public interface.
  - It allows us to swap real stores for mocks during testing without
    changing the caller's code.
*/

// AskResult carries the generated answer plus the request-level metadata
// handlers need for the response envelope.
type AskResult struct {
	Answer          answer.Answer
	ScopeDocumentId string
	ContextLength   int
	Elapsed         time.Duration
}

type StatsSnapshot struct {
	Documents   int
	VectorStore vectorDB.Stats
}

// AnswerCache is a semantic cache over generated answers, keyed by the
// question embedding. Lookup returns the cached answer text and model when an
// earlier question against the same scope embeds close enough. A nil cache
// disables caching.
type AnswerCache interface {
	Lookup(ctx context.Context, queryVector []float32, scopeDocumentId string) (answerText string, model string, ok bool)
	Store(ctx context.Context, queryVector []float32, question string, answerText string, model string, scopeDocumentId string) error
	Invalidate(ctx context.Context) error
}

// Service is the only surface handlers and workers call. They don't need to
// know the llm, the embedder or the vector store.
type Service interface {
	Ask(ctx context.Context, question string, sessionKey string, explicitDocumentId string) (AskResult, error)
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	DeleteDocument(ctx context.Context, documentId string) (int, error)
	RegisterDocument(doc docModel.Document)
	ListDocuments() []docModel.Document
	GetDocument(documentId string) (docModel.Document, error)
	DocumentContent(documentId string) (string, error)
	ActiveDocument(ctx context.Context, sessionKey string) (string, error)
	SetActiveDocument(ctx context.Context, sessionKey string, documentId string) error
	Stats() StatsSnapshot
	Warmup(ctx context.Context) error
	Persist() error
}

type service struct {
	vectorDB    vectorDB.DataProcessor
	embedder    embedding.Embedder
	registry    *registry.Registry
	sessions    session.Store
	pipeline    *ingest.Pipeline
	retriever   *retrieval.Engine
	generator   *answer.Generator
	answerCache AnswerCache //nil when the backend has no cache
	logger      *logger_i.Logger
}

// NewService constructor
func NewService(vector vectorDB.DataProcessor, em embedding.Embedder, reg *registry.Registry,
	sessions session.Store, pipeline *ingest.Pipeline, retriever *retrieval.Engine,
	generator *answer.Generator, cache AnswerCache) Service {
	return &service{
		vectorDB:    vector,
		embedder:    em,
		registry:    reg,
		sessions:    sessions,
		pipeline:    pipeline,
		retriever:   retriever,
		generator:   generator,
		answerCache: cache,
		logger:      logger_i.NewLogger("RAG Service :"),
	}
}

func (s *service) Ask(ctx context.Context, question string, sessionKey string, explicitDocumentId string) (AskResult, error) {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "sessionKey", sessionKey)
	start := time.Now()

	scope, err := s.resolveScope(ctx, inMethodLogger, sessionKey, explicitDocumentId)
	if err != nil {
		return AskResult{}, err
	}

	history := s.loadHistory(ctx, inMethodLogger, sessionKey)

	var queryVector []float32
	if s.answerCache != nil {
		queryVector, err = s.retriever.EmbedQuestion(ctx, question)
		if err != nil {
			return AskResult{}, err
		}
		if text, model, ok := s.answerCache.Lookup(ctx, queryVector, scope); ok {
			ans := answer.Answer{Text: text, Sources: []answer.Source{}, Mode: answer.ModeLLM, Model: model}
			s.saveExchange(ctx, inMethodLogger, sessionKey, question, ans.Text)
			return AskResult{
				Answer:          ans,
				ScopeDocumentId: scope,
				Elapsed:         time.Since(start),
			}, nil
		}
	}

	res, err := s.executeRetrievalStep(ctx, inMethodLogger, question, queryVector, scope)
	if err != nil {
		return AskResult{}, err
	}
	ans := s.executeAnswerStep(ctx, question, res, scope, history)

	if s.answerCache != nil && ans.Mode == answer.ModeLLM {
		if cacheErr := s.answerCache.Store(ctx, queryVector, question, ans.Text, ans.Model, scope); cacheErr != nil {
			inMethodLogger.Error("Failed to cache answer", "error", cacheErr)
		}
	}

	s.saveExchange(ctx, inMethodLogger, sessionKey, question, ans.Text)

	contextLength := 0
	if res != nil {
		contextLength = len(res.ContextText)
	}

	return AskResult{
		Answer:          ans,
		ScopeDocumentId: scope,
		ContextLength:   contextLength,
		Elapsed:         time.Since(start),
	}, nil
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()

	// hold the document gate for the whole run so a concurrent delete blocks
	// until the job reaches a terminal status instead of pulling vectors out
	// from under a mid-write pipeline
	documentId := job.JobPayload.DocumentId
	s.registry.AcquireGate(documentId)
	defer s.registry.ReleaseGate(documentId)

	j := ingest.ProcessDocumentIngestion(ctx, job, s.pipeline)
	if j.Status != jobModel.JobStatusComplete {
		return s.jobError(j, errors.New("ingest Document Failed"), "INGESTION_FAILURE", true)
	}

	s.invalidateAnswerCache(ctx)

	if err := s.Persist(); err != nil {
		s.logger.Error("Failed to persist after ingestion", "error", err)
	}
	return j
}

// DeleteDocument removes a document's vectors, registry entry and stored
// content. The per-document gate keeps it from racing an in-flight ingestion
// of the same document.
func (s *service) DeleteDocument(ctx context.Context, documentId string) (int, error) {
	inMethodLogger := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)

	if _, err := s.registry.Get(documentId); err != nil {
		return 0, err
	}

	s.registry.AcquireGate(documentId)
	defer s.registry.ReleaseGate(documentId)

	// re-check under the gate, an ingestion error path may have removed it
	if _, err := s.registry.Get(documentId); err != nil {
		return 0, err
	}

	removed, err := s.vectorDB.Delete(ctx, documentId)
	if err != nil {
		inMethodLogger.Error("Vector delete failed, keeping registry entry", "error", err)
		return 0, err
	}

	if err := s.registry.Remove(documentId); err != nil {
		return removed, err
	}
	if err := s.registry.DeleteContent(documentId); err != nil {
		inMethodLogger.Error("Failed to delete stored content", "error", err)
	}

	s.invalidateAnswerCache(ctx)

	if err := s.Persist(); err != nil {
		inMethodLogger.Error("Failed to persist after delete", "error", err)
	}

	inMethodLogger.Info("Document deleted", "vectorsRemoved", removed)
	return removed, nil
}

func (s *service) RegisterDocument(doc docModel.Document) {
	s.registry.Register(doc)
}

func (s *service) ListDocuments() []docModel.Document {
	return s.registry.List()
}

func (s *service) GetDocument(documentId string) (docModel.Document, error) {
	return s.registry.Get(documentId)
}

func (s *service) DocumentContent(documentId string) (string, error) {
	if _, err := s.registry.Get(documentId); err != nil {
		return "", err
	}
	return s.registry.ReadContent(documentId)
}

func (s *service) ActiveDocument(ctx context.Context, sessionKey string) (string, error) {
	return s.sessions.GetActive(ctx, sessionKey)
}

// SetActiveDocument pins a document for the session. An empty document id
// clears the pin.
func (s *service) SetActiveDocument(ctx context.Context, sessionKey string, documentId string) error {
	if documentId == "" {
		return s.sessions.ClearActive(ctx, sessionKey)
	}
	if _, err := s.registry.Get(documentId); err != nil {
		return err
	}
	return s.sessions.SetActive(ctx, sessionKey, documentId)
}

func (s *service) Stats() StatsSnapshot {
	return StatsSnapshot{
		Documents:   s.registry.Count(),
		VectorStore: s.vectorDB.Stats(),
	}
}

// Warmup forces the embedding client through a full round trip so the first
// real question doesn't pay the cold-start cost.
func (s *service) Warmup(ctx context.Context) error {
	_, err := s.embedder.GetEmbedding(ctx, "warmup test")
	return err
}

func (s *service) Persist() error {
	if err := s.vectorDB.Save(); err != nil {
		return err
	}
	return s.registry.Save()
}
