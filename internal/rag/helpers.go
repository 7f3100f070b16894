package rag

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/jobModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/metrics"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/answer"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/retrieval"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobModel.JobError{
		Code:    http.StatusInternalServerError,
		Message: "Internal Server Error",
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

// resolveScope picks the document a question runs against: an explicit
// document id wins, then the session's active document, then the whole
// corpus. A stale active pointer is cleared rather than surfaced.
func (s *service) resolveScope(ctx context.Context, log *logger_i.Logger, sessionKey string, explicitDocumentId string) (string, error) {
	if explicitDocumentId != "" {
		if _, err := s.registry.Get(explicitDocumentId); err != nil {
			return "", err
		}
		return explicitDocumentId, nil
	}

	active, err := s.sessions.GetActive(ctx, sessionKey)
	if err != nil {
		log.Error("Failed to read active document, answering unscoped", "error", err)
		return "", nil
	}
	if active == "" {
		return "", nil
	}

	if _, err := s.registry.Get(active); errors.Is(err, docModel.ErrNotFound) {
		log.Warn("Active document no longer exists, clearing", "documentId", active)
		if clearErr := s.sessions.ClearActive(ctx, sessionKey); clearErr != nil {
			log.Error("Failed to clear stale active document", "error", clearErr)
		}
		return "", nil
	}
	return active, nil
}

func (s *service) loadHistory(ctx context.Context, log *logger_i.Logger, sessionKey string) []string {
	history, err := s.sessions.History(ctx, sessionKey)
	if err != nil {
		log.Error("Failed to load session history", "error", err)
		return nil
	}
	return history
}

// executeRetrievalStep returns a nil result when nothing scored above the
// similarity threshold, which routes the answer down the fallback path. Any
// other failure, the question embedding included, is a hard error and
// propagates to the caller. A non-nil queryVector skips the embedding step.
func (s *service) executeRetrievalStep(ctx context.Context, log *logger_i.Logger, question string, queryVector []float32, scope string) (*retrieval.Result, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("retrieval", time.Since(start)) }()

	var res *retrieval.Result
	var err error
	if queryVector != nil {
		res, err = s.retriever.RetrieveVector(ctx, queryVector, scope)
	} else {
		res, err = s.retriever.Retrieve(ctx, question, scope)
	}
	if errors.Is(err, docModel.ErrNoHits) {
		log.Debug("No chunks above similarity threshold")
		return nil, nil
	}
	if err != nil {
		log.Error("Retrieval failed", "error", err)
		return nil, err
	}
	return res, nil
}

func (s *service) saveExchange(ctx context.Context, log *logger_i.Logger, sessionKey string, question string, answerText string) {
	if err := s.sessions.SaveExchange(ctx, sessionKey, question, answerText); err != nil {
		log.Error("Failed to save exchange to session", "error", err)
	}
}

// cached answers are derived from corpus content and go stale the moment a
// document is added or removed
func (s *service) invalidateAnswerCache(ctx context.Context) {
	if s.answerCache == nil {
		return
	}
	if err := s.answerCache.Invalidate(ctx); err != nil {
		s.logger.Error("Failed to invalidate answer cache", "error", err)
	}
}

func (s *service) executeAnswerStep(ctx context.Context, question string, res *retrieval.Result, scope string, history []string) answer.Answer {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("answer_generation", time.Since(start)) }()

	return s.generator.Generate(ctx, question, res, scope, history)
}
