package vectorDB

import (
	"context"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
)

// Match is one scored search hit.
type Match struct {
	ChunkId    string
	DocumentId string
	Text       string
	Order      int
	Similarity float64
}

// Stats is a read-only snapshot of the index.
type Stats struct {
	TotalVectors int    `json:"total_vectors"`
	LiveVectors  int    `json:"live_vectors"`
	Tombstones   int    `json:"tombstones"`
	Dimension    int    `json:"dimension"`
	IndexKind    string `json:"index_kind"`
}

// DataProcessor is the vector store contract the rest of the pipeline talks to.
// Backed either by the local flat index or by a remote Qdrant collection.
type DataProcessor interface {
	// Add pairs chunks with vectors 1:1 in input order and appends them.
	Add(ctx context.Context, documentId string, chunks []docModel.Chunk, vectors [][]float32) (int, error)

	// Delete removes every entry belonging to the document. Zero matching
	// entries is a no-op returning 0.
	Delete(ctx context.Context, documentId string) (int, error)

	// Search returns up to k live entries ranked by cosine similarity,
	// descending. A non-empty scopeDocumentId restricts candidates to that
	// document before truncating to k.
	Search(ctx context.Context, queryVector []float32, k int, scopeDocumentId string) ([]Match, error)

	Stats() Stats

	// Save and Load round-trip the index through durable storage.
	Save() error
	Load() error
}
