package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/faisalirshadkhan8/rag-chatbot-backend/internal/domain/docModel"
)

const registryFileName = "registry.json"

type snapshot struct {
	Order     []string            `json:"order"`
	Documents []docModel.Document `json:"documents"`
}

// Save writes the metadata snapshot as JSON, atomically.
func (r *Registry) Save() error {
	r.mu.RLock()
	snap := snapshot{
		Order:     append([]string(nil), r.order...),
		Documents: make([]docModel.Document, 0, len(r.order)),
	}
	for _, id := range r.order {
		if doc, ok := r.docs[id]; ok {
			snap.Documents = append(snap.Documents, *doc)
		}
	}
	r.mu.RUnlock()

	if err := os.MkdirAll(r.dataDir, 0750); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	target := filepath.Join(r.dataDir, registryFileName)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0640); err != nil {
		return fmt.Errorf("writing registry file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing registry file: %w", err)
	}

	r.logger.Info("Saved registry", "documents", len(snap.Documents))
	return nil
}

// Load restores the metadata snapshot. A missing file starts an empty registry.
func (r *Registry) Load() error {
	target := filepath.Join(r.dataDir, registryFileName)
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			r.logger.Info("No persisted registry found, starting empty", "path", target)
			return nil
		}
		return fmt.Errorf("reading registry file: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decoding registry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.docs = make(map[string]*docModel.Document, len(snap.Documents))
	r.gates = make(map[string]*sync.Mutex, len(snap.Documents))
	r.order = snap.Order
	for i := range snap.Documents {
		doc := snap.Documents[i]
		r.docs[doc.Id] = &doc
		r.gates[doc.Id] = &sync.Mutex{}
	}

	r.logger.Info("Loaded registry", "documents", len(r.docs))
	return nil
}

// StoreContent persists the extracted text so keyword fallback and the
// content endpoint can read it without re-extracting.
func (r *Registry) StoreContent(documentId string, text string) error {
	dir := filepath.Join(r.dataDir, "processed")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}
	target := filepath.Join(dir, documentId+".txt")
	if err := os.WriteFile(target, []byte(text), 0640); err != nil {
		return fmt.Errorf("writing processed text: %w", err)
	}
	return nil
}

func (r *Registry) ReadContent(documentId string) (string, error) {
	target := filepath.Join(r.dataDir, "processed", documentId+".txt")
	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: no processed text for document %s", docModel.ErrNotFound, documentId)
		}
		return "", fmt.Errorf("reading processed text: %w", err)
	}
	return string(data), nil
}

func (r *Registry) DeleteContent(documentId string) error {
	target := filepath.Join(r.dataDir, "processed", documentId+".txt")
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing processed text: %w", err)
	}
	return nil
}
