package answer

import (
	"context"
	"fmt"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/metrics"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/llm"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/registry"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/retrieval"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

var logger = logger_i.NewLogger("AnswerGenerator")

type Mode string

const (
	ModeNoContext Mode = "no_context"
	ModeLLM       Mode = "llm"
	ModeFallback  Mode = "keyword_fallback"
)

// Source is a tagged citation. Kind decides which fields are meaningful:
// retrieval sources carry chunk and similarity, fallback sources carry the
// matched line, file sources just name the document.
type Source struct {
	Kind       string  `json:"kind"`
	DocumentId string  `json:"document_id,omitempty"`
	Filename   string  `json:"filename,omitempty"`
	ChunkId    string  `json:"chunk_id,omitempty"`
	Similarity float64 `json:"similarity,omitempty"`
	Line       int     `json:"line,omitempty"`
	Excerpt    string  `json:"excerpt,omitempty"`
}

const (
	SourceRetrieval = "retrieval"
	SourceFallback  = "fallback"
	SourceFile      = "file"
)

type Answer struct {
	Text    string
	Sources []Source
	Mode    Mode
	Model   string
}

const noDocumentsAnswer = "No documents have been indexed yet. Upload a document first, then ask your question again."

// Generator picks how to answer: LLM over retrieved context when both exist,
// keyword scan otherwise. The mode is re-evaluated on every request since
// documents and provider availability change at runtime.
type Generator struct {
	registry *registry.Registry
	provider llm.Provider //nil when no provider is configured
	model    string
}

func NewGenerator(r *registry.Registry, p llm.Provider, modelName string) *Generator {
	return &Generator{
		registry: r,
		provider: p,
		model:    modelName,
	}
}

// Generate produces the final answer. A nil retrieval result means nothing
// survived the similarity threshold and routes to the keyword fallback.
func (g *Generator) Generate(ctx context.Context, question string, res *retrieval.Result, scopeDocumentId string, messageHistory []string) Answer {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	if g.registry.Count() == 0 {
		log.Debug("No documents indexed, answering without context")
		return Answer{Text: noDocumentsAnswer, Sources: []Source{}, Mode: ModeNoContext, Model: "no-context"}
	}

	if res != nil && g.provider != nil {
		llmCtx, cancel := context.WithTimeout(ctx, config.LLMCallTimeout)
		defer cancel()

		start := time.Now()
		text, err := g.provider.Generate(llmCtx, question, res.ContextText, messageHistory)
		metrics.CaptureExecutionMetrics("llm", time.Since(start))
		if err == nil && text != "" {
			return Answer{
				Text:    text,
				Sources: g.retrievalSources(res),
				Mode:    ModeLLM,
				Model:   g.model,
			}
		}
		// provider trouble downgrades to the keyword path instead of failing
		// the request
		log.Error("LLM generation failed, falling back to keyword scan", "error", err)
	}

	return g.keywordFallback(ctx, question, scopeDocumentId)
}

func (g *Generator) retrievalSources(res *retrieval.Result) []Source {
	sources := make([]Source, 0, len(res.Matches))
	for _, m := range res.Matches {
		filename := ""
		if doc, err := g.registry.Get(m.DocumentId); err == nil {
			filename = doc.Filename
		}
		sources = append(sources, Source{
			Kind:       SourceRetrieval,
			DocumentId: m.DocumentId,
			Filename:   filename,
			ChunkId:    m.ChunkId,
			Similarity: m.Similarity,
			Excerpt:    excerpt(m.Text),
		})
	}
	return sources
}

func excerpt(text string) string {
	const limit = 200
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return fmt.Sprintf("%s...", string(runes[:limit]))
}
