package localDB

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/metrics"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

type entry struct {
	chunkId    string
	documentId string
	text       string
	order      int
}

// Store is a flat in-process vector index with logical deletes.
//
// The index itself is append-only: Delete only marks internal ids in the
// tombstone set, and Search skips them. When the tombstone ratio crosses the
// configured threshold the store compacts - it rebuilds the live entries with
// fresh internal ids and clears the tombstones. Compaction runs under the
// writer lock so no reader ever observes a half-rebuilt index.
type Store struct {
	mu           sync.RWMutex
	dimension    int
	vectors      [][]float32 //L2-normalized at insert
	entries      []entry
	tombstones   map[int]struct{}
	byDocument   map[string][]int //live internal ids per document, insertion order
	compactRatio float64
	path         string
	logger       *logger_i.Logger
}

// NewStore creates an empty index. A dimension of 0 defers the dimension
// invariant to the first successful Add.
func NewStore(path string, dimension int, compactRatio float64) (*Store, error) {
	if dimension < 0 {
		return nil, fmt.Errorf("%w: negative embedding dimension %d", docModel.ErrConfig, dimension)
	}
	if compactRatio <= 0 || compactRatio >= 1 {
		return nil, fmt.Errorf("%w: compaction ratio %f must be in (0,1)", docModel.ErrConfig, compactRatio)
	}
	return &Store{
		dimension:    dimension,
		tombstones:   make(map[int]struct{}),
		byDocument:   make(map[string][]int),
		compactRatio: compactRatio,
		path:         path,
		logger:       logger_i.NewLogger("LocalVectorDB"),
	}, nil
}

func (s *Store) Add(ctx context.Context, documentId string, chunks []docModel.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has dimension %d, store expects %d",
				docModel.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	s.dimension = dim

	for i, chunk := range chunks {
		internalId := len(s.entries)
		s.entries = append(s.entries, entry{
			chunkId:    chunk.ChunkId,
			documentId: documentId,
			text:       chunk.Text,
			order:      chunk.Order,
		})
		s.vectors = append(s.vectors, normalize(vectors[i]))
		s.byDocument[documentId] = append(s.byDocument[documentId], internalId)
	}

	metrics.SetVectorCount(float64(s.liveCountLocked()))
	s.logger.Debug("Added vectors", "documentId", documentId, "count", len(chunks), "total", len(s.entries))
	return len(chunks), nil
}

func (s *Store) Delete(ctx context.Context, documentId string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.byDocument[documentId]
	if !ok {
		return 0, nil
	}

	for _, id := range ids {
		s.tombstones[id] = struct{}{}
	}
	delete(s.byDocument, documentId)
	removed := len(ids)

	if len(s.entries) > 0 && float64(len(s.tombstones))/float64(len(s.entries)) > s.compactRatio {
		s.compactLocked()
	}

	metrics.SetVectorCount(float64(s.liveCountLocked()))
	s.logger.Info("Deleted document vectors", "documentId", documentId, "removed", removed)
	return removed, nil
}

func (s *Store) Search(ctx context.Context, queryVector []float32, k int, scopeDocumentId string) ([]vectorDB.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return nil, nil
	}
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, store expects %d",
			docModel.ErrDimensionMismatch, len(queryVector), s.dimension)
	}

	query := normalize(queryVector)

	//scoped queries pre-filter candidates so k applies within the document
	var candidates []int
	if scopeDocumentId != "" {
		candidates = s.byDocument[scopeDocumentId]
	} else {
		candidates = make([]int, 0, len(s.entries))
		for id := range s.entries {
			if _, dead := s.tombstones[id]; !dead {
				candidates = append(candidates, id)
			}
		}
	}

	matches := make([]vectorDB.Match, 0, len(candidates))
	for _, id := range candidates {
		e := s.entries[id]
		matches = append(matches, vectorDB.Match{
			ChunkId:    e.chunkId,
			DocumentId: e.documentId,
			Text:       e.text,
			Order:      e.order,
			Similarity: dot(query, s.vectors[id]),
		})
	}

	//stable sort keeps insertion order on ties - earlier chunk wins
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Similarity > matches[b].Similarity
	})

	if k > 0 && k < len(matches) {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *Store) Stats() vectorDB.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return vectorDB.Stats{
		TotalVectors: len(s.entries),
		LiveVectors:  s.liveCountLocked(),
		Tombstones:   len(s.tombstones),
		Dimension:    s.dimension,
		IndexKind:    "flat-cosine",
	}
}

// compactLocked rebuilds the index from live entries only, reassigning
// internal ids. Caller must hold the writer lock.
func (s *Store) compactLocked() {
	liveVectors := make([][]float32, 0, len(s.entries)-len(s.tombstones))
	liveEntries := make([]entry, 0, len(s.entries)-len(s.tombstones))
	byDocument := make(map[string][]int)

	for id, e := range s.entries {
		if _, dead := s.tombstones[id]; dead {
			continue
		}
		newId := len(liveEntries)
		liveEntries = append(liveEntries, e)
		liveVectors = append(liveVectors, s.vectors[id])
		byDocument[e.documentId] = append(byDocument[e.documentId], newId)
	}

	dropped := len(s.entries) - len(liveEntries)
	s.entries = liveEntries
	s.vectors = liveVectors
	s.byDocument = byDocument
	s.tombstones = make(map[int]struct{})

	metrics.IncrementCompactions()
	s.logger.Info("Compacted vector index", "dropped", dropped, "live", len(liveEntries))
}

func (s *Store) liveCountLocked() int {
	return len(s.entries) - len(s.tombstones)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	mag := math.Sqrt(sum)
	out := make([]float32, len(v))
	if mag == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = float32(float64(x) / mag)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
