package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/config"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/jobModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/chunker"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/registry"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB"
)

// --- Mocks for the pipeline ---

type mockEmbedder struct {
	batchFunc func(ctx context.Context, chunks []string, isLarge bool) ([][]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}
func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isLarge bool) ([][]float32, error) {
	return m.batchFunc(ctx, chunks, isLarge)
}

type mockVectorDB struct {
	addFunc    func(ctx context.Context, documentId string, chunks []docModel.Chunk, vectors [][]float32) (int, error)
	deleteFunc func(ctx context.Context, documentId string) (int, error)
}

func (m *mockVectorDB) Add(ctx context.Context, documentId string, chunks []docModel.Chunk, vectors [][]float32) (int, error) {
	if m.addFunc != nil {
		return m.addFunc(ctx, documentId, chunks, vectors)
	}
	return len(chunks), nil
}
func (m *mockVectorDB) Delete(ctx context.Context, documentId string) (int, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, documentId)
	}
	return 0, nil
}
func (m *mockVectorDB) Search(ctx context.Context, v []float32, k int, scope string) ([]vectorDB.Match, error) {
	return nil, nil
}
func (m *mockVectorDB) Stats() vectorDB.Stats { return vectorDB.Stats{} }
func (m *mockVectorDB) Save() error           { return nil }
func (m *mockVectorDB) Load() error           { return nil }

func newTestPipeline(t *testing.T, e *mockEmbedder, v *mockVectorDB) (*Pipeline, *registry.Registry) {
	t.Helper()
	c, err := chunker.New(config.ChunkSize, config.ChunkOverlap)
	if err != nil {
		t.Fatal(err)
	}
	r := registry.NewRegistry(t.TempDir())
	return NewPipeline(c, e, v, r), r
}

func registerDoc(r *registry.Registry, id string) {
	r.Register(docModel.Document{Id: id, Filename: id + ".txt", FileType: docModel.TXT})
}

// --- Unit Tests ---

func TestGetDocType(t *testing.T) {
	tests := []struct {
		path     string
		expected docModel.DocType
	}{
		{"test.pdf", docModel.PDF},
		{"DOC.DOCX", docModel.DOCX},
		{"letter.rtf", docModel.DOCX},
		{"notes.txt", docModel.TXT},
		{"image.png", docModel.ERR},
	}

	for _, tt := range tests {
		if got := GetDocType(tt.path); got != tt.expected {
			t.Errorf("GetDocType(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestIngest_BatchesByConfiguredSize(t *testing.T) {
	embedCalls := 0
	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, ch []string, large bool) ([][]float32, error) {
			embedCalls++
			if len(ch) > config.EmbeddingBatchSize {
				t.Errorf("Batch of %d exceeds configured size %d", len(ch), config.EmbeddingBatchSize)
			}
			return make([][]float32, len(ch)), nil
		},
	}
	p, r := newTestPipeline(t, emb, &mockVectorDB{})
	registerDoc(r, "doc-1")

	// enough text for several embedding batches
	text := strings.Repeat("word ", 12000)
	indexed, err := p.Ingest(context.Background(), "doc-1", text)
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}
	if indexed <= config.EmbeddingBatchSize {
		t.Fatalf("Test text too small, only %d chunks", indexed)
	}

	wantCalls := (indexed + config.EmbeddingBatchSize - 1) / config.EmbeddingBatchSize
	if embedCalls != wantCalls {
		t.Errorf("Embedder called %d times, want %d", embedCalls, wantCalls)
	}

	doc, _ := r.Get("doc-1")
	if doc.Status != docModel.StatusIndexed || doc.ChunkCount != indexed {
		t.Errorf("Registry after ingest: status=%s chunkCount=%d, indexed=%d", doc.Status, doc.ChunkCount, indexed)
	}
}

func TestIngest_EmptyTextIndexesNothing(t *testing.T) {
	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, ch []string, large bool) ([][]float32, error) {
			t.Error("Embedder should not be called for empty text")
			return nil, nil
		},
	}
	p, r := newTestPipeline(t, emb, &mockVectorDB{})
	registerDoc(r, "doc-1")

	indexed, err := p.Ingest(context.Background(), "doc-1", "")
	if err != nil {
		t.Fatalf("Ingest of empty text should not error, got %v", err)
	}
	if indexed != 0 {
		t.Errorf("Indexed %d chunks, want 0", indexed)
	}

	doc, _ := r.Get("doc-1")
	if doc.Status != docModel.StatusIndexed {
		t.Errorf("Status = %s, want %s", doc.Status, docModel.StatusIndexed)
	}
}

func TestIngest_EmbedderFailureRollsBack(t *testing.T) {
	deleted := false
	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, ch []string, large bool) ([][]float32, error) {
			return nil, errors.New("embedding provider down")
		},
	}
	vDB := &mockVectorDB{
		deleteFunc: func(ctx context.Context, documentId string) (int, error) {
			deleted = true
			return 0, nil
		},
	}
	p, r := newTestPipeline(t, emb, vDB)
	registerDoc(r, "doc-1")

	_, err := p.Ingest(context.Background(), "doc-1", "some document text")
	if err == nil {
		t.Fatal("Expected error from Ingest")
	}
	if !deleted {
		t.Error("Expected rollback delete on the vector store")
	}

	doc, _ := r.Get("doc-1")
	if doc.Status != docModel.StatusError {
		t.Errorf("Status = %s, want %s", doc.Status, docModel.StatusError)
	}
}

func TestIngest_IndexFailureRollsBack(t *testing.T) {
	deleted := false
	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, ch []string, large bool) ([][]float32, error) {
			return make([][]float32, len(ch)), nil
		},
	}
	vDB := &mockVectorDB{
		addFunc: func(ctx context.Context, documentId string, chunks []docModel.Chunk, vectors [][]float32) (int, error) {
			return 0, errors.New("index write failed")
		},
		deleteFunc: func(ctx context.Context, documentId string) (int, error) {
			deleted = true
			return 0, nil
		},
	}
	p, r := newTestPipeline(t, emb, vDB)
	registerDoc(r, "doc-1")

	_, err := p.Ingest(context.Background(), "doc-1", "some document text")
	if err == nil {
		t.Fatal("Expected error from Ingest")
	}
	if !deleted {
		t.Error("Expected rollback delete on the vector store")
	}
}

func TestProcessDocumentIngestion_UnsupportedType(t *testing.T) {
	p, r := newTestPipeline(t, &mockEmbedder{}, &mockVectorDB{})
	registerDoc(r, "doc-1")

	job := jobModel.Job{
		Id:     "job-1",
		Status: jobModel.JobStatusRunning,
		JobPayload: jobModel.JobPayload{
			DocumentId: "doc-1",
			Filename:   "upload.png",
			SourcePath: "/tmp/upload.png",
		},
	}
	result := ProcessDocumentIngestion(context.Background(), job, p)

	if result.Status != jobModel.JobStatusError {
		t.Errorf("Job status = %s, want %s", result.Status, jobModel.JobStatusError)
	}
	doc, _ := r.Get("doc-1")
	if doc.Status != docModel.StatusError {
		t.Errorf("Registry status = %s, want %s", doc.Status, docModel.StatusError)
	}
}
