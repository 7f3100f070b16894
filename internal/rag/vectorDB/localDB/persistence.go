package localDB

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// On-disk layout (little endian): dimension uint32, entry count uint32, then
// per entry: chunkId, documentId and text as uint32-length-prefixed bytes,
// order uint32, and dimension float32 values. Only live entries are written,
// so a save acts as a compaction of the durable copy.

const indexFileName = "vector_index.bin"

func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(s.path, 0750); err != nil {
		return fmt.Errorf("creating vector store dir: %w", err)
	}

	target := filepath.Join(s.path, indexFileName)
	tmp := target + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}

	w := bufio.NewWriter(f)
	if err := s.writeLocked(w); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("flushing index file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	//atomic swap so a crash never leaves a torn index on disk
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing index file: %w", err)
	}

	s.logger.Info("Saved vector index", "path", target, "vectors", s.liveCountLocked())
	return nil
}

func (s *Store) Load() error {
	target := filepath.Join(s.path, indexFileName)
	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Info("No persisted index found, starting empty", "path", target)
			return nil
		}
		return fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	r := bufio.NewReader(f)

	var dim, count uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("reading index header: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("reading index header: %w", err)
	}

	vectors := make([][]float32, 0, count)
	entries := make([]entry, 0, count)
	byDocument := make(map[string][]int)

	for i := uint32(0); i < count; i++ {
		chunkId, err := readString(r)
		if err != nil {
			return fmt.Errorf("reading entry %d: %w", i, err)
		}
		documentId, err := readString(r)
		if err != nil {
			return fmt.Errorf("reading entry %d: %w", i, err)
		}
		var order uint32
		if err := binary.Read(r, binary.LittleEndian, &order); err != nil {
			return fmt.Errorf("reading entry %d: %w", i, err)
		}
		text, err := readString(r)
		if err != nil {
			return fmt.Errorf("reading entry %d: %w", i, err)
		}

		vec := make([]float32, dim)
		for j := range vec {
			var bits uint32
			if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
				return fmt.Errorf("reading entry %d vector: %w", i, err)
			}
			vec[j] = math.Float32frombits(bits)
		}

		internalId := len(entries)
		entries = append(entries, entry{chunkId: chunkId, documentId: documentId, text: text, order: int(order)})
		vectors = append(vectors, vec)
		byDocument[documentId] = append(byDocument[documentId], internalId)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dimension != 0 && dim != 0 && int(dim) != s.dimension {
		return fmt.Errorf("persisted index dimension %d does not match configured %d", dim, s.dimension)
	}
	if dim != 0 {
		s.dimension = int(dim)
	}
	s.entries = entries
	s.vectors = vectors
	s.byDocument = byDocument
	s.tombstones = make(map[int]struct{})

	s.logger.Info("Loaded vector index", "path", target, "vectors", len(entries), "dimension", dim)
	return nil
}

func (s *Store) writeLocked(w io.Writer) error {
	live := s.liveCountLocked()
	if err := binary.Write(w, binary.LittleEndian, uint32(s.dimension)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(live)); err != nil {
		return err
	}

	for id, e := range s.entries {
		if _, dead := s.tombstones[id]; dead {
			continue
		}
		if err := writeString(w, e.chunkId); err != nil {
			return err
		}
		if err := writeString(w, e.documentId); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(e.order)); err != nil {
			return err
		}
		if err := writeString(w, e.text); err != nil {
			return err
		}
		for _, v := range s.vectors[id] {
			if err := binary.Write(w, binary.LittleEndian, math.Float32bits(v)); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
