package chunker

import (
	"fmt"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

// Chunker splits extracted document text into fixed-size spans with a fixed
// overlap between consecutive spans. Splitting is rune based so multi-byte
// text never gets cut mid character.
type Chunker struct {
	size    int
	overlap int
	logger  *logger_i.Logger
}

func New(size int, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", docModel.ErrConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0,%d)", docModel.ErrConfig, overlap, size)
	}
	return &Chunker{
		size:    size,
		overlap: overlap,
		logger:  logger_i.NewLogger("Chunker"),
	}, nil
}

// Chunk returns ordered spans of at most size runes. Consecutive spans share
// exactly overlap runes except the final span, which keeps whatever remains.
// Empty input produces an empty slice, not an error.
func (c *Chunker) Chunk(documentId string, text string) []docModel.Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return []docModel.Chunk{}
	}

	stride := c.size - c.overlap
	var chunks []docModel.Chunk

	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, docModel.Chunk{
			ChunkId:    fmt.Sprintf("%s_chunk_%04d", documentId, len(chunks)),
			DocumentId: documentId,
			Text:       string(runes[start:end]),
			Order:      len(chunks),
		})

		if end == len(runes) {
			break
		}
	}

	c.logger.Debug("Chunked document", "documentId", documentId, "chunks", len(chunks))
	return chunks
}

// Size and Overlap expose the configured policy for stats reporting.
func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }
