package corpus

import (
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"sync"
)

// EmbeddingCache memoizes corpus embeddings keyed by a hash of model and
// description. The corpus is fixed-size and small, so entries are never
// evicted. The sqlite table is the persistent arm; the in-memory map is the
// hot path.
type EmbeddingCache struct {
	db    *sql.DB
	model string

	mu   sync.Mutex
	vecs map[string][]float64
}

// NewEmbeddingCache builds a cache for one embedding model. db may be nil for
// a purely in-memory cache (tests).
func NewEmbeddingCache(db *sql.DB, model string) *EmbeddingCache {
	c := &EmbeddingCache{
		db:    db,
		model: model,
		vecs:  make(map[string][]float64),
	}
	c.loadPersisted()
	return c
}

// Key derives the cache key for a text under the given model.
func Key(model, text string) string {
	h := sha1.New()
	io.WriteString(h, model)
	io.WriteString(h, "|")
	io.WriteString(h, text)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached vector for a text, if present.
func (c *EmbeddingCache) Get(text string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.vecs[Key(c.model, text)]
	return vec, ok
}

// Put stores a vector for a text. Concurrent puts of the same text are an
// idempotent overwrite.
func (c *EmbeddingCache) Put(text string, vec []float64) {
	key := Key(c.model, text)
	c.mu.Lock()
	c.vecs[key] = vec
	c.mu.Unlock()
	c.persist(key, vec)
}

// Len reports the number of cached vectors.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.vecs)
}

func (c *EmbeddingCache) loadPersisted() {
	if c.db == nil {
		return
	}
	rows, err := c.db.Query(`SELECT key, vector FROM corpus_embeddings WHERE model = ?`, c.model)
	if err != nil {
		log.Printf("embedding cache load error: %v", err)
		return
	}
	defer rows.Close()

	loaded := 0
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			continue
		}
		var vec []float64
		if err := json.Unmarshal([]byte(raw), &vec); err != nil {
			continue
		}
		c.vecs[key] = vec
		loaded++
	}
	if loaded > 0 {
		log.Printf("embedding cache loaded entries=%d model=%s", loaded, c.model)
	}
}

func (c *EmbeddingCache) persist(key string, vec []float64) {
	if c.db == nil {
		return
	}
	raw, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if _, err := c.db.Exec(
		`INSERT OR REPLACE INTO corpus_embeddings (key, model, vector) VALUES (?, ?, ?)`,
		key, c.model, string(raw),
	); err != nil {
		log.Printf("embedding cache persist error: %v", err)
	}
}
