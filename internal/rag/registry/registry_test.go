package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/pkg/logger_i"
)

func init() {
	logger_i.Init()
}

func newDoc(id, filename string) docModel.Document {
	return docModel.Document{
		Id:       id,
		Filename: filename,
		FileSize: 128,
		FileType: "txt",
	}
}

func TestGet_UnknownDocument(t *testing.T) {
	r := NewRegistry(t.TempDir())
	_, err := r.Get("missing")
	if !errors.Is(err, docModel.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRegister_SetsUploadedStatus(t *testing.T) {
	r := NewRegistry(t.TempDir())
	r.Register(newDoc("doc-1", "a.txt"))

	doc, err := r.Get("doc-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if doc.Status != docModel.StatusUploaded {
		t.Errorf("Status = %s, want %s", doc.Status, docModel.StatusUploaded)
	}
	if doc.UploadTime.IsZero() {
		t.Error("Expected upload time to be set")
	}
}

func TestList_PreservesUploadOrder(t *testing.T) {
	r := NewRegistry(t.TempDir())
	for i := 0; i < 5; i++ {
		r.Register(newDoc(fmt.Sprintf("doc-%d", i), fmt.Sprintf("f%d.txt", i)))
	}

	docs := r.List()
	if len(docs) != 5 {
		t.Fatalf("List returned %d docs, want 5", len(docs))
	}
	for i, doc := range docs {
		if want := fmt.Sprintf("doc-%d", i); doc.Id != want {
			t.Errorf("Position %d has %s, want %s", i, doc.Id, want)
		}
	}
}

func TestStatusTransitions(t *testing.T) {
	r := NewRegistry(t.TempDir())
	r.Register(newDoc("doc-1", "a.txt"))

	if err := r.MarkProcessed("doc-1", 4200); err != nil {
		t.Fatalf("MarkProcessed failed: %v", err)
	}
	doc, _ := r.Get("doc-1")
	if doc.Status != docModel.StatusProcessed || doc.TextLength != 4200 {
		t.Errorf("After MarkProcessed: status=%s textLength=%d", doc.Status, doc.TextLength)
	}

	if err := r.MarkIndexed("doc-1", 7); err != nil {
		t.Fatalf("MarkIndexed failed: %v", err)
	}
	doc, _ = r.Get("doc-1")
	if doc.Status != docModel.StatusIndexed || doc.ChunkCount != 7 {
		t.Errorf("After MarkIndexed: status=%s chunkCount=%d", doc.Status, doc.ChunkCount)
	}
	if !doc.Status.IsTerminal() {
		t.Error("Indexed should be terminal")
	}
}

func TestMarkError_OnUnknownDocument(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if err := r.MarkError("ghost"); !errors.Is(err, docModel.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry(t.TempDir())
	r.Register(newDoc("doc-1", "a.txt"))
	r.Register(newDoc("doc-2", "b.txt"))

	if err := r.Remove("doc-1"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := r.Get("doc-1"); !errors.Is(err, docModel.ErrNotFound) {
		t.Errorf("Expected removed document to be gone, got %v", err)
	}

	docs := r.List()
	if len(docs) != 1 || docs[0].Id != "doc-2" {
		t.Errorf("List after remove = %v", docs)
	}

	if err := r.Remove("doc-1"); !errors.Is(err, docModel.ErrNotFound) {
		t.Errorf("Double remove should return ErrNotFound, got %v", err)
	}
}

func TestGate_SerializesDeleteAgainstIngestion(t *testing.T) {
	r := NewRegistry(t.TempDir())
	r.Register(newDoc("doc-1", "a.txt"))

	r.AcquireGate("doc-1")

	done := make(chan struct{})
	go func() {
		r.AcquireGate("doc-1")
		r.ReleaseGate("doc-1")
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Second gate acquisition should have blocked")
	default:
	}

	r.ReleaseGate("doc-1")
	<-done
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := NewRegistry(dir)
	r.Register(newDoc("doc-1", "a.txt"))
	r.Register(newDoc("doc-2", "b.pdf"))
	r.MarkProcessed("doc-1", 1000)
	r.MarkIndexed("doc-1", 3)

	if err := r.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	restored := NewRegistry(dir)
	if err := restored.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	docs := restored.List()
	if len(docs) != 2 {
		t.Fatalf("Restored %d docs, want 2", len(docs))
	}
	if docs[0].Id != "doc-1" || docs[1].Id != "doc-2" {
		t.Errorf("Order not preserved: %s, %s", docs[0].Id, docs[1].Id)
	}

	doc, err := restored.Get("doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != docModel.StatusIndexed || doc.ChunkCount != 3 {
		t.Errorf("Restored doc-1: status=%s chunkCount=%d", doc.Status, doc.ChunkCount)
	}
}

func TestLoad_MissingFileStartsEmpty(t *testing.T) {
	r := NewRegistry(t.TempDir())
	if err := r.Load(); err != nil {
		t.Fatalf("Load of missing file should not error, got %v", err)
	}
	if r.Count() != 0 {
		t.Error("Expected empty registry")
	}
}

func TestContent_RoundTripAndDelete(t *testing.T) {
	r := NewRegistry(t.TempDir())
	r.Register(newDoc("doc-1", "a.txt"))

	if err := r.StoreContent("doc-1", "hello extracted world"); err != nil {
		t.Fatalf("StoreContent failed: %v", err)
	}
	text, err := r.ReadContent("doc-1")
	if err != nil {
		t.Fatalf("ReadContent failed: %v", err)
	}
	if text != "hello extracted world" {
		t.Errorf("ReadContent = %q", text)
	}

	if err := r.DeleteContent("doc-1"); err != nil {
		t.Fatalf("DeleteContent failed: %v", err)
	}
	if _, err := r.ReadContent("doc-1"); !errors.Is(err, docModel.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}

	// deleting twice is a no-op
	if err := r.DeleteContent("doc-1"); err != nil {
		t.Errorf("Second DeleteContent should not error, got %v", err)
	}
}
