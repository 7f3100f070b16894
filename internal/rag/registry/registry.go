package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

// Registry is the authoritative record of known documents and their
// lifecycle state. Metadata lives in memory behind an RWMutex; the
// processed text and a JSON snapshot are persisted via persistence.go.
//
// Each document carries its own lock so a delete issued mid-ingestion
// blocks until the pipeline reaches a terminal status instead of pulling
// vectors out from under it.
type Registry struct {
	mu      sync.RWMutex
	docs    map[string]*docModel.Document
	gates   map[string]*sync.Mutex
	order   []string
	dataDir string
	logger  *logger_i.Logger
}

func NewRegistry(dataDir string) *Registry {
	return &Registry{
		docs:    make(map[string]*docModel.Document),
		gates:   make(map[string]*sync.Mutex),
		dataDir: dataDir,
		logger:  logger_i.NewLogger("DocumentRegistry"),
	}
}

// Register records a freshly uploaded document in uploaded state.
func (r *Registry) Register(doc docModel.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.docs[doc.Id]; !exists {
		r.order = append(r.order, doc.Id)
	}
	doc.Status = docModel.StatusUploaded
	if doc.UploadTime.IsZero() {
		doc.UploadTime = time.Now().UTC()
	}
	stored := doc
	r.docs[doc.Id] = &stored
	r.gates[doc.Id] = &sync.Mutex{}

	r.logger.Info("Registered document", "documentId", doc.Id, "filename", doc.Filename)
}

func (r *Registry) Get(documentId string) (docModel.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, ok := r.docs[documentId]
	if !ok {
		return docModel.Document{}, fmt.Errorf("%w: document %s", docModel.ErrNotFound, documentId)
	}
	return *doc, nil
}

// List returns documents in upload order.
func (r *Registry) List() []docModel.Document {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]docModel.Document, 0, len(r.order))
	for _, id := range r.order {
		if doc, ok := r.docs[id]; ok {
			out = append(out, *doc)
		}
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// MarkProcessed transitions uploaded→processed after text extraction.
func (r *Registry) MarkProcessed(documentId string, textLength int) error {
	return r.update(documentId, func(doc *docModel.Document) {
		doc.Status = docModel.StatusProcessed
		doc.TextLength = textLength
		doc.ProcessedTime = time.Now().UTC()
	})
}

// MarkIndexed transitions to the indexed terminal state and records how many
// chunks made it into the vector store.
func (r *Registry) MarkIndexed(documentId string, chunkCount int) error {
	return r.update(documentId, func(doc *docModel.Document) {
		doc.Status = docModel.StatusIndexed
		doc.ChunkCount = chunkCount
	})
}

// MarkError parks the document in the error terminal state.
func (r *Registry) MarkError(documentId string) error {
	return r.update(documentId, func(doc *docModel.Document) {
		doc.Status = docModel.StatusError
	})
}

func (r *Registry) SetChunkCount(documentId string, chunkCount int) error {
	return r.update(documentId, func(doc *docModel.Document) {
		doc.ChunkCount = chunkCount
	})
}

// AcquireGate locks the per-document gate, registering it first if the
// document is unknown (a delete racing a just-registered upload). The caller
// must call ReleaseGate.
func (r *Registry) AcquireGate(documentId string) {
	r.mu.Lock()
	gate, ok := r.gates[documentId]
	if !ok {
		gate = &sync.Mutex{}
		r.gates[documentId] = gate
	}
	r.mu.Unlock()

	gate.Lock()
}

func (r *Registry) ReleaseGate(documentId string) {
	r.mu.RLock()
	gate, ok := r.gates[documentId]
	r.mu.RUnlock()

	if ok {
		gate.Unlock()
	}
}

// Remove deletes the metadata entry. The caller is expected to hold the
// document gate and to have already cleaned up the vector store.
func (r *Registry) Remove(documentId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[documentId]; !ok {
		return fmt.Errorf("%w: document %s", docModel.ErrNotFound, documentId)
	}
	delete(r.docs, documentId)
	for i, id := range r.order {
		if id == documentId {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	r.logger.Info("Removed document", "documentId", documentId)
	return nil
}

func (r *Registry) update(documentId string, apply func(*docModel.Document)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[documentId]
	if !ok {
		return fmt.Errorf("%w: document %s", docModel.ErrNotFound, documentId)
	}
	apply(doc)
	return nil
}
