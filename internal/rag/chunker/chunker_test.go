package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
)

func TestNew_RejectsBadPolicy(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"Overlap_Equals_Size", 100, 100},
		{"Overlap_Exceeds_Size", 100, 150},
		{"Negative_Overlap", 100, -1},
		{"Zero_Size", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.size, tt.overlap)
			if !errors.Is(err, docModel.ErrConfig) {
				t.Errorf("New(%d, %d) error = %v, want ErrConfig", tt.size, tt.overlap, err)
			}
		})
	}
}

func TestChunk_EmptyInput(t *testing.T) {
	c, err := New(800, 150)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	chunks := c.Chunk("doc-1", "")
	if len(chunks) != 0 {
		t.Errorf("Expected 0 chunks for empty input, got %d", len(chunks))
	}
}

func TestChunk_ExactOverlap(t *testing.T) {
	c, err := New(100, 20)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	text := strings.Repeat("abcdefghij", 35) // 350 chars
	chunks := c.Chunk("doc-1", text)

	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		tail := string(prev[len(prev)-20:])
		if !strings.HasPrefix(chunks[i].Text, tail) {
			t.Errorf("Chunk %d does not start with previous chunk's last 20 runes", i)
		}
	}
}

func TestChunk_Reconstruction(t *testing.T) {
	c, err := New(100, 20)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	text := strings.Repeat("0123456789", 47) // 470 chars, ends mid-window
	chunks := c.Chunk("doc-1", text)

	var rebuilt strings.Builder
	for i, ch := range chunks {
		runes := []rune(ch.Text)
		if i == 0 {
			rebuilt.WriteString(ch.Text)
		} else {
			rebuilt.WriteString(string(runes[20:]))
		}
	}

	if rebuilt.String() != text {
		t.Error("Concatenating chunks with overlap removed did not reconstruct the original text")
	}
}

func TestChunk_ScenarioFourChunks(t *testing.T) {
	c, err := New(1000, 150)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	text := strings.Repeat("x", 3000)
	chunks := c.Chunk("doc-1", text)

	if len(chunks) != 4 {
		t.Fatalf("Expected 4 chunks for 3000 chars at size=1000 overlap=150, got %d", len(chunks))
	}
	for i := 0; i < 3; i++ {
		if len(chunks[i].Text) != 1000 {
			t.Errorf("Chunk %d length = %d, want 1000", i, len(chunks[i].Text))
		}
	}
	if len(chunks[3].Text) != 450 {
		t.Errorf("Final chunk length = %d, want 450 remainder", len(chunks[3].Text))
	}
}

func TestChunk_ShortInputSingleChunk(t *testing.T) {
	c, _ := New(800, 150)
	chunks := c.Chunk("doc-1", "short text")

	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].ChunkId != "doc-1_chunk_0000" {
		t.Errorf("ChunkId = %s, want doc-1_chunk_0000", chunks[0].ChunkId)
	}
	if chunks[0].Order != 0 {
		t.Errorf("Order = %d, want 0", chunks[0].Order)
	}
}

func TestChunk_MultiByteRunes(t *testing.T) {
	c, _ := New(10, 2)
	text := strings.Repeat("é", 25)
	chunks := c.Chunk("doc-1", text)

	for i, ch := range chunks {
		if !strings.HasPrefix(ch.Text, "é") {
			t.Errorf("Chunk %d starts mid-rune: %q", i, ch.Text)
		}
	}
}
