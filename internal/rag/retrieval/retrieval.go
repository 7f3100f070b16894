package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/metrics"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/embedding"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

var logger = logger_i.NewLogger("Retrieval")

const sourceSeparator = "\n\n---\n\n"

// Result is the retrieval outcome handed to the answer generator.
type Result struct {
	ContextText string
	Matches     []vectorDB.Match
}

// Engine embeds questions and pulls the best-matching chunks out of the
// vector store.
type Engine struct {
	embedder  embedding.Embedder
	vectors   vectorDB.DataProcessor
	topK      int
	threshold float64
	maxLength int
}

func NewEngine(e embedding.Embedder, v vectorDB.DataProcessor) *Engine {
	return &Engine{
		embedder:  e,
		vectors:   v,
		topK:      config.TopKResults,
		threshold: config.SimilarityThreshold,
		maxLength: config.MaxContextLength,
	}
}

// Retrieve embeds the question and returns the surviving matches with their
// assembled context. ErrNoHits means the index had nothing above the
// similarity threshold, which the caller treats as a fallback signal, not a
// failure. An embedding failure on the question propagates.
func (e *Engine) Retrieve(ctx context.Context, question string, scopeDocumentId string) (*Result, error) {
	queryVector, err := e.EmbedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}
	return e.RetrieveVector(ctx, queryVector, scopeDocumentId)
}

// EmbedQuestion embeds the question text under the embedding call timeout.
// Callers that also need the vector, the answer cache lookup for one, use
// this with RetrieveVector instead of Retrieve to embed only once.
func (e *Engine) EmbedQuestion(ctx context.Context, question string) ([]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	embedCtx, cancel := context.WithTimeout(ctx, config.EmbeddingCallTimeout)
	defer cancel()

	start := time.Now()
	queryVector, err := e.embedder.GetEmbedding(embedCtx, question)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		log.Error("Could not embed question", "error", err)
		return nil, fmt.Errorf("embedding question: %w", err)
	}
	return queryVector, nil
}

// RetrieveVector is the search half of Retrieve, for callers that already
// hold the question embedding.
func (e *Engine) RetrieveVector(ctx context.Context, queryVector []float32, scopeDocumentId string) (*Result, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	matches, err := e.vectors.Search(ctx, queryVector, e.topK, scopeDocumentId)
	if err != nil {
		log.Error("Vector search failed", "error", err)
		return nil, err
	}

	kept := matches[:0:0]
	for _, m := range matches {
		if m.Similarity >= e.threshold {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		log.Debug("No matches above threshold", "candidates", len(matches), "threshold", e.threshold)
		return nil, docModel.ErrNoHits
	}

	contextText, used := buildContext(kept, e.maxLength)
	log.Debug("Retrieved context", "matches", len(kept), "used", used, "contextLength", len(contextText))

	return &Result{
		ContextText: contextText,
		Matches:     kept[:used],
	}, nil
}

// buildContext joins match texts best-first until the length budget runs out,
// so truncation always drops the lowest-ranked sources. Returns the context
// and how many matches made it in.
func buildContext(matches []vectorDB.Match, maxLength int) (string, int) {
	var b strings.Builder
	used := 0
	for _, m := range matches {
		addition := len(m.Text)
		if used > 0 {
			addition += len(sourceSeparator)
		}
		if b.Len()+addition > maxLength {
			break
		}
		if used > 0 {
			b.WriteString(sourceSeparator)
		}
		b.WriteString(m.Text)
		used++
	}

	// a single over-budget match still yields usable context, clipped on a
	// rune boundary so the prompt never sees a torn character
	if used == 0 && len(matches) > 0 {
		text := matches[0].Text
		if len(text) > maxLength {
			cut := maxLength
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			text = text[:cut]
		}
		return text, 1
	}
	return b.String(), used
}
