package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/registry"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/retrieval"
	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/rag/vectorDB"
)

type mockProvider struct {
	generateFunc func(ctx context.Context, question string, contextText string, history []string) (string, error)
}

func (m *mockProvider) Generate(ctx context.Context, question string, contextText string, history []string) (string, error) {
	return m.generateFunc(ctx, question, contextText, history)
}

func seededRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.NewRegistry(t.TempDir())
	r.Register(docModel.Document{Id: "doc-1", Filename: "guide.txt", FileType: docModel.TXT})
	r.MarkIndexed("doc-1", 2)
	if err := r.StoreContent("doc-1", "The gopher lives in Go.\nInstall via the golang website.\nUnrelated line."); err != nil {
		t.Fatal(err)
	}
	return r
}

func retrievalResult() *retrieval.Result {
	return &retrieval.Result{
		ContextText: "The gopher lives in Go.",
		Matches: []vectorDB.Match{
			{ChunkId: "doc-1_chunk_0000", DocumentId: "doc-1", Text: "The gopher lives in Go.", Similarity: 0.91},
		},
	}
}

func TestGenerate_EmptyRegistryGivesNoContext(t *testing.T) {
	r := registry.NewRegistry(t.TempDir())
	g := NewGenerator(r, nil, "")

	ans := g.Generate(context.Background(), "anything?", nil, "", nil)
	if ans.Mode != ModeNoContext {
		t.Errorf("Mode = %s, want %s", ans.Mode, ModeNoContext)
	}
	if len(ans.Sources) != 0 {
		t.Errorf("Expected no sources, got %d", len(ans.Sources))
	}
	if ans.Text == "" {
		t.Error("Expected a fixed answer text")
	}
}

func TestGenerate_LLMPathWithRetrievalSources(t *testing.T) {
	p := &mockProvider{
		generateFunc: func(ctx context.Context, q string, c string, h []string) (string, error) {
			if !strings.Contains(c, "gopher") {
				t.Errorf("Context not passed to provider: %q", c)
			}
			return "Gophers live in Go.", nil
		},
	}
	g := NewGenerator(seededRegistry(t), p, "test-model")

	ans := g.Generate(context.Background(), "where do gophers live?", retrievalResult(), "", nil)
	if ans.Mode != ModeLLM {
		t.Fatalf("Mode = %s, want %s", ans.Mode, ModeLLM)
	}
	if ans.Text != "Gophers live in Go." {
		t.Errorf("Text = %q", ans.Text)
	}
	if len(ans.Sources) != 1 {
		t.Fatalf("Got %d sources, want 1", len(ans.Sources))
	}
	s := ans.Sources[0]
	if s.Kind != SourceRetrieval || s.DocumentId != "doc-1" || s.Filename != "guide.txt" {
		t.Errorf("Unexpected source: %+v", s)
	}
	if s.Similarity != 0.91 {
		t.Errorf("Similarity = %f", s.Similarity)
	}
}

func TestGenerate_LLMFailureDowngradesToFallback(t *testing.T) {
	p := &mockProvider{
		generateFunc: func(ctx context.Context, q string, c string, h []string) (string, error) {
			return "", errors.New("provider down")
		},
	}
	g := NewGenerator(seededRegistry(t), p, "test-model")

	ans := g.Generate(context.Background(), "gopher?", retrievalResult(), "", nil)
	if ans.Mode != ModeFallback {
		t.Fatalf("Mode = %s, want %s", ans.Mode, ModeFallback)
	}
	if !strings.Contains(ans.Text, "gopher") {
		t.Errorf("Fallback answer should quote the matched line, got %q", ans.Text)
	}
}

func TestGenerate_NoProviderUsesKeywordScan(t *testing.T) {
	g := NewGenerator(seededRegistry(t), nil, "")

	ans := g.Generate(context.Background(), "where does the gopher live?", retrievalResult(), "", nil)
	if ans.Mode != ModeFallback {
		t.Fatalf("Mode = %s, want %s", ans.Mode, ModeFallback)
	}
	if len(ans.Sources) == 0 || ans.Sources[0].Kind != SourceFallback {
		t.Errorf("Expected fallback sources, got %+v", ans.Sources)
	}
}

func TestKeywordFallback_ScopedToDocument(t *testing.T) {
	r := seededRegistry(t)
	r.Register(docModel.Document{Id: "doc-2", Filename: "other.txt", FileType: docModel.TXT})
	r.StoreContent("doc-2", "The gopher also appears here.")
	g := NewGenerator(r, nil, "")

	ans := g.keywordFallback(context.Background(), "gopher", "doc-2")
	for _, s := range ans.Sources {
		if s.DocumentId != "doc-2" {
			t.Errorf("Scoped fallback leaked source from %s", s.DocumentId)
		}
	}
	if len(ans.Sources) != 1 {
		t.Fatalf("Got %d sources, want 1", len(ans.Sources))
	}
}

func TestKeywordFallback_NoMatchGivesTemplatedAnswer(t *testing.T) {
	g := NewGenerator(seededRegistry(t), nil, "")

	ans := g.keywordFallback(context.Background(), "quantum chromodynamics", "")
	if len(ans.Sources) != 0 {
		t.Errorf("Expected no sources, got %d", len(ans.Sources))
	}
	if !strings.Contains(ans.Text, "couldn't find") {
		t.Errorf("Unexpected answer text: %q", ans.Text)
	}
}

func TestExtractTerms_FiltersStopWords(t *testing.T) {
	terms := extractTerms("What is the Email of the Go team?")
	for _, term := range terms {
		switch term {
		case "what", "is", "the", "of", "email":
			t.Errorf("Stop word %q survived filtering", term)
		}
	}
	found := false
	for _, term := range terms {
		if term == "go" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected 'go' in terms, got %v", terms)
	}
}
