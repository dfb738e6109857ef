package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/coder/hnsw"
	_ "modernc.org/sqlite"
)

// VectorRecord is one durable entry in the Vector Index.
type VectorRecord struct {
	ID     string
	Model  string
	Vector []float32
}

// VectorMatch is one ranked search result.
type VectorMatch struct {
	ID       string
	Distance float32
}

// VectorIndex is a durable, fixed-dimension vector store keyed by node id.
// SQLite rows are the source of truth (§4.5); an in-memory coder/hnsw graph
// is rebuilt from those rows at open time and kept incrementally in sync to
// make search sub-linear at vault scale.
type VectorIndex struct {
	mu          sync.RWMutex
	db          *sql.DB
	graph       *hnsw.Graph[uint64]
	dimensions  int
	models      map[string]bool
	warnedMulti bool
	logger      *slog.Logger

	idToKey map[string]uint64
	keyToID map[uint64]string
	nextKey uint64
}

// OpenVectorIndex opens (creating if necessary) the vector database at path
// and rebuilds the in-memory HNSW graph from its rows. An empty path opens a
// private in-memory database, used in tests. A nil logger defaults to
// slog.Default().
func OpenVectorIndex(path string, logger *slog.Logger) (*VectorIndex, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("vectors: create directory: %w", err)
		}
		dsn = path
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("vectors: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("vectors: pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS vectors (
		id     TEXT PRIMARY KEY,
		model  TEXT NOT NULL,
		vector BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("vectors: migrate: %w", err)
	}

	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance

	idx := &VectorIndex{
		db:      db,
		graph:   graph,
		models:  make(map[string]bool),
		logger:  logger,
		idToKey: make(map[string]uint64),
		keyToID: make(map[uint64]string),
	}

	if err := idx.rebuildFromRows(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (v *VectorIndex) rebuildFromRows() error {
	rows, err := v.db.Query(`SELECT id, model, vector FROM vectors`)
	if err != nil {
		return fmt.Errorf("vectors: rebuild: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, model string
		var blob []byte
		if err := rows.Scan(&id, &model, &blob); err != nil {
			return fmt.Errorf("vectors: rebuild scan: %w", err)
		}
		vec := decodeVector(blob)
		if v.dimensions == 0 {
			v.dimensions = len(vec)
		}
		v.models[model] = true
		v.addToGraph(id, vec)
	}
	return rows.Err()
}

func (v *VectorIndex) addToGraph(id string, vec []float32) {
	if existing, ok := v.idToKey[id]; ok {
		// Lazy deletion: orphan the old key rather than mutate the graph,
		// which coder/hnsw does not support removing the last node from.
		delete(v.keyToID, existing)
	}
	key := v.nextKey
	v.nextKey++
	normalized := normalizeCopy(vec)
	v.graph.Add(hnsw.MakeNode(key, normalized))
	v.idToKey[id] = key
	v.keyToID[key] = id
}

// Close releases the underlying database handle.
func (v *VectorIndex) Close() error {
	return v.db.Close()
}

// Store validates and upserts a vector record.
func (v *VectorIndex) Store(id string, vector []float32, model string) error {
	if len(vector) == 0 {
		return fmt.Errorf("vectors: vector for %q is empty", id)
	}
	for _, f := range vector {
		if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
			return fmt.Errorf("vectors: vector for %q has a non-finite component", id)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.dimensions == 0 {
		v.dimensions = len(vector)
	} else if len(vector) != v.dimensions {
		return fmt.Errorf("vectors: dimension mismatch for %q: expected %d, got %d", id, v.dimensions, len(vector))
	}

	if !v.models[model] {
		v.models[model] = true
		if len(v.models) > 1 && !v.warnedMulti {
			v.warnedMulti = true
			v.logger.Warn("vectors: index holds embeddings from more than one model; distances between them are not comparable",
				"models", modelNames(v.models))
		}
	}

	_, err := v.db.Exec(`
		INSERT INTO vectors (id, model, vector) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET model = excluded.model, vector = excluded.vector
	`, id, model, encodeVector(vector))
	if err != nil {
		return fmt.Errorf("vectors: store: %w", err)
	}

	v.addToGraph(id, vector)
	return nil
}

// Search returns the top-limit matches for query by ascending cosine
// distance (1 - cos similarity; a zero vector on either side is distance 1).
func (v *VectorIndex) Search(query []float32, limit int) ([]VectorMatch, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("vectors: limit must be positive, got %d", limit)
	}
	if len(query) == 0 {
		return nil, fmt.Errorf("vectors: query vector is empty")
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.dimensions != 0 && len(query) != v.dimensions {
		return nil, fmt.Errorf("vectors: query dimension mismatch: expected %d, got %d", v.dimensions, len(query))
	}
	if v.graph.Len() == 0 {
		return nil, nil
	}

	normalized := normalizeCopy(query)
	// Over-fetch to absorb lazily-deleted (orphaned) graph nodes.
	k := limit * 4
	if k < limit {
		k = limit
	}
	nodes := v.graph.Search(normalized, k)

	matches := make([]VectorMatch, 0, limit)
	for _, n := range nodes {
		id, ok := v.keyToID[n.Key]
		if !ok {
			continue
		}
		dist := cosineDistance(normalized, n.Value)
		matches = append(matches, VectorMatch{ID: id, Distance: dist})
		if len(matches) == limit {
			break
		}
	}
	return matches, nil
}

// Delete removes a vector record.
func (v *VectorIndex) Delete(id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, err := v.db.Exec(`DELETE FROM vectors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("vectors: delete: %w", err)
	}
	if key, ok := v.idToKey[id]; ok {
		delete(v.keyToID, key)
		delete(v.idToKey, id)
	}
	return nil
}

// GetModel returns the model identifier a vector was stored under.
func (v *VectorIndex) GetModel(id string) (string, bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var model string
	err := v.db.QueryRow(`SELECT model FROM vectors WHERE id = ?`, id).Scan(&model)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("vectors: get model: %w", err)
	}
	return model, true, nil
}

// HasEmbedding reports whether a vector record exists for id.
func (v *VectorIndex) HasEmbedding(id string) (bool, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var exists int
	err := v.db.QueryRow(`SELECT 1 FROM vectors WHERE id = ?`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("vectors: has embedding: %w", err)
	}
	return true, nil
}

// Count returns the number of durable vector records.
func (v *VectorIndex) Count() (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var n int
	if err := v.db.QueryRow(`SELECT COUNT(*) FROM vectors`).Scan(&n); err != nil {
		return 0, fmt.Errorf("vectors: count: %w", err)
	}
	return n, nil
}

// AllIDs returns every id with a durable vector record, for consistency checks.
func (v *VectorIndex) AllIDs() ([]string, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	rows, err := v.db.Query(`SELECT id FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("vectors: all ids: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func modelNames(models map[string]bool) []string {
	names := make([]string, 0, len(models))
	for m := range models {
		names = append(names, m)
	}
	return names
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}

func normalizeCopy(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	var sumSq float64
	for _, f := range out {
		sumSq += float64(f) * float64(f)
	}
	if sumSq == 0 {
		return out
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range out {
		out[i] /= norm
	}
	return out
}

// cosineDistance computes 1 - cos(a, b) on already-normalized vectors,
// defining distance 1 when either side is a zero vector.
func cosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 1
	}
	cos := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return float32(1 - cos)
}
