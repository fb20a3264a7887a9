package vecindex

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"tikdex/record"
)

// ErrMissing is returned when similarity search is requested before an index
// has been built. It is a remediation condition, not a crash.
var ErrMissing = errors.New("vector index missing: build it first with the index command")

const (
	matrixFile   = "embeddings.f32"
	manifestFile = "metadata.json"
)

// Meta is the light per-row metadata persisted alongside the matrix.
type Meta struct {
	ID        string `json:"id"`
	URL       string `json:"url,omitempty"`
	Timestamp *int64 `json:"timestamp,omitempty"`
	TextLen   int    `json:"text_len"`
}

// Manifest is the JSON sidecar describing the binary matrix. IDs[i]
// corresponds to row i; vectors from different embedding models are never
// mixed without a full rebuild.
type Manifest struct {
	Model     string   `json:"model"`
	CreatedAt string   `json:"created_at"`
	Count     int      `json:"count"`
	Dim       int      `json:"dim"`
	IDs       []string `json:"ids"`
	Meta      []Meta   `json:"meta"`
}

// Matrix is a dense row-major float32 matrix.
type Matrix struct {
	Rows int
	Dim  int
	Data []float32
}

// Row returns row i without copying.
func (m *Matrix) Row(i int) []float32 {
	return m.Data[i*m.Dim : (i+1)*m.Dim]
}

// Index is the full persisted retrieval unit: ordered ids, the aligned vector
// matrix, and the model that produced it.
type Index struct {
	Manifest Manifest
	Matrix   Matrix
}

// Save persists the index wholesale into dir: the raw little-endian float32
// matrix plus its JSON sidecar. Rebuilding always replaces both files; there
// are no partial updates.
func (idx *Index) Save(dir string) error {
	if len(idx.Manifest.IDs) != idx.Matrix.Rows {
		return fmt.Errorf("index inconsistent: %d ids vs %d rows", len(idx.Manifest.IDs), idx.Matrix.Rows)
	}

	raw := make([]byte, len(idx.Matrix.Data)*4)
	for i, v := range idx.Matrix.Data {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	if err := record.WriteBytes(filepath.Join(dir, matrixFile), raw); err != nil {
		return fmt.Errorf("write matrix: %w", err)
	}
	if err := record.WriteJSON(filepath.Join(dir, manifestFile), idx.Manifest); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// Load reads a persisted index from dir. A missing index yields ErrMissing;
// a malformed or inconsistent one is fatal.
func Load(dir string) (*Index, error) {
	metaRaw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if os.IsNotExist(err) {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var man Manifest
	if err := json.Unmarshal(metaRaw, &man); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, matrixFile))
	if os.IsNotExist(err) {
		return nil, ErrMissing
	}
	if err != nil {
		return nil, fmt.Errorf("read matrix: %w", err)
	}

	if man.Count < 0 || (man.Count > 0 && man.Dim <= 0) {
		return nil, fmt.Errorf("manifest has invalid shape: count=%d dim=%d", man.Count, man.Dim)
	}
	if len(raw) != man.Count*man.Dim*4 {
		return nil, fmt.Errorf("matrix size %d does not match manifest shape %dx%d", len(raw), man.Count, man.Dim)
	}
	if len(man.IDs) != man.Count {
		return nil, fmt.Errorf("manifest lists %d ids for count %d", len(man.IDs), man.Count)
	}

	data := make([]float32, man.Count*man.Dim)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	return &Index{
		Manifest: man,
		Matrix:   Matrix{Rows: man.Count, Dim: man.Dim, Data: data},
	}, nil
}
