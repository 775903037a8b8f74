package index

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	tandem "github.com/tandem-ai/tandem"
)

// Persistence layout: two artifacts side by side in the index directory.
// index.gob holds the serialized vector structure, metadata.json the
// vector_id → metadata mapping. They are written together under the writer
// lock and must load together; a directory holding only one of them, or two
// with disagreeing counts, is inconsistent.
const (
	indexFile = "index.gob"
	metaFile  = "metadata.json"
)

// indexArtifact is the on-disk form of the vector structure.
type indexArtifact struct {
	Dim     int
	Vectors [][]float32
}

func (f *Flat) indexPath() string { return filepath.Join(f.dir, indexFile) }
func (f *Flat) metaPath() string  { return filepath.Join(f.dir, metaFile) }

// persistLocked writes both artifacts. Callers must hold the write lock.
// Each artifact is written to a temp file and renamed into place so a crash
// mid-write never truncates an existing artifact.
func (f *Flat) persistLocked() error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(indexArtifact{Dim: f.dim, Vectors: f.vectors}); err != nil {
		return fmt.Errorf("encode index artifact: %w", err)
	}
	if err := writeAtomic(f.indexPath(), buf.Bytes()); err != nil {
		return fmt.Errorf("write index artifact: %w", err)
	}

	data, err := json.Marshal(f.meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := writeAtomic(f.metaPath(), data); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// load reads persisted state. A missing directory or two missing artifacts
// means a fresh index; anything partial or count-mismatched is an
// InconsistentStateError.
func (f *Flat) load() error {
	idxExists := fileExists(f.indexPath())
	metaExists := fileExists(f.metaPath())

	if !idxExists && !metaExists {
		return nil
	}
	if idxExists != metaExists {
		missing := indexFile
		if idxExists {
			missing = metaFile
		}
		return &tandem.InconsistentStateError{Msg: missing + " missing from " + f.dir}
	}

	idx, err := os.Open(f.indexPath())
	if err != nil {
		return fmt.Errorf("open index artifact: %w", err)
	}
	defer idx.Close()

	var artifact indexArtifact
	if err := gob.NewDecoder(idx).Decode(&artifact); err != nil {
		return fmt.Errorf("decode index artifact: %w", err)
	}
	if artifact.Dim != f.dim {
		return fmt.Errorf("index dimension %d does not match embedding provider dimension %d", artifact.Dim, f.dim)
	}

	data, err := os.ReadFile(f.metaPath())
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	meta := make(map[int]Meta)
	if err := json.Unmarshal(data, &meta); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}

	if len(artifact.Vectors) != len(meta) {
		return &tandem.InconsistentStateError{
			Msg: fmt.Sprintf("%d vectors but %d metadata entries", len(artifact.Vectors), len(meta)),
		}
	}

	f.vectors = artifact.Vectors
	f.meta = meta
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
