package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/metrics"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/chunker"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/embedding"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/registry"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

var logger = logger_i.NewLogger("Document Ingestion")

// chunk counts past this go through the provider's async batch job API
// instead of inline embedding calls
const largeDataSetThreshold = 100000

// Pipeline turns extracted text into indexed vectors and keeps the registry
// status in step with the vector store.
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder embedding.Embedder
	vectors  vectorDB.DataProcessor
	registry *registry.Registry
}

func NewPipeline(c *chunker.Chunker, e embedding.Embedder, v vectorDB.DataProcessor, r *registry.Registry) *Pipeline {
	return &Pipeline{
		chunker:  c,
		embedder: e,
		vectors:  v,
		registry: r,
	}
}

// Ingest chunks, embeds and indexes the document text, returning the number
// of chunks indexed. Empty text indexes zero chunks and is not an error. Any
// failure marks the document errored and rolls back vectors already written
// so the store never holds a partial document.
func (p *Pipeline) Ingest(ctx context.Context, documentId string, rawText string) (int, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)

	chunks := p.chunker.Chunk(documentId, rawText)
	if len(chunks) == 0 {
		log.Info("Document produced no chunks")
		if err := p.registry.MarkIndexed(documentId, 0); err != nil {
			return 0, err
		}
		return 0, nil
	}
	log.Debug("Chunked document", "chunks", len(chunks))

	isLargeDataSet := len(chunks) > largeDataSetThreshold

	indexed := 0
	batchSize := config.EmbeddingBatchSize
	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		currentBatch := chunks[i:end]

		texts := make([]string, len(currentBatch))
		for j, c := range currentBatch {
			texts[j] = c.Text
		}

		embedCtx, cancel := context.WithTimeout(ctx, config.EmbeddingCallTimeout)
		start := time.Now()
		vectors, err := p.embedder.BatchEmbedding(embedCtx, texts, isLargeDataSet)
		cancel()
		metrics.CaptureExecutionMetrics("embedding", time.Since(start))
		if err != nil {
			return indexed, p.fail(ctx, documentId, fmt.Errorf("embedding batch failed: %w", err))
		}

		added, err := p.vectors.Add(ctx, documentId, currentBatch, vectors)
		if err != nil {
			return indexed, p.fail(ctx, documentId, fmt.Errorf("indexing batch failed: %w", err))
		}
		indexed += added
	}

	if err := p.registry.MarkIndexed(documentId, indexed); err != nil {
		return indexed, p.fail(ctx, documentId, err)
	}

	log.Info("Indexed document", "chunks", indexed)
	return indexed, nil
}

// fail parks the document in error state and removes whatever vectors the
// partial run already wrote.
func (p *Pipeline) fail(ctx context.Context, documentId string, cause error) error {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "documentId", documentId)
	log.Error("Ingestion failed, rolling back", "error", cause)

	if _, err := p.vectors.Delete(ctx, documentId); err != nil {
		log.Error("Rollback delete failed", "error", err)
	}
	if err := p.registry.MarkError(documentId); err != nil {
		log.Error("Could not mark document errored", "error", err)
	}
	return cause
}
