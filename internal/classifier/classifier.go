package classifier

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"tradeforms/internal/corpus"
	"tradeforms/internal/embedding"
	"tradeforms/internal/metrics"
)

// keywordDiscount scales keyword-overlap scores so fallback confidences stay
// clearly below typical embedding cosines. Lexical overlap is a weaker signal
// and must not look as certain as the embedding path.
const keywordDiscount = 0.5

var ErrEmptyDescription = errors.New("classifier: empty product description")

// Result is one ranked HS-code suggestion.
type Result struct {
	Code        string  `json:"hs_code"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Reasoning   string  `json:"reasoning,omitempty"`
}

// Classifier ranks corpus entries against a product description. The
// embedding path is primary; keyword overlap serves when the embedder is
// absent or errors.
type Classifier struct {
	entries  []corpus.Entry
	embedder embedding.Embedder // nil disables the embedding path
	cache    *corpus.EmbeddingCache
}

func New(entries []corpus.Entry, embedder embedding.Embedder, cache *corpus.EmbeddingCache) *Classifier {
	return &Classifier{entries: entries, embedder: embedder, cache: cache}
}

// CorpusSize reports the number of loaded reference entries.
func (c *Classifier) CorpusSize() int {
	return len(c.entries)
}

// Classify returns the topN corpus entries most similar to description,
// highest confidence first, ties broken by corpus order. An empty corpus
// yields an empty result and no error.
func (c *Classifier) Classify(ctx context.Context, description string, topN int) ([]Result, error) {
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if len(c.entries) == 0 {
		return nil, nil
	}
	if topN < 1 {
		topN = 1
	}
	if topN > len(c.entries) {
		topN = len(c.entries)
	}

	if c.embedder != nil {
		results, err := c.classifyByEmbedding(ctx, description, topN)
		if err == nil {
			metrics.ClassifyRequests.WithLabelValues("embedding").Inc()
			return results, nil
		}
		log.Printf("classify embedding path failed, using keyword fallback: %v", err)
	}

	metrics.ClassifyRequests.WithLabelValues("keyword").Inc()
	return c.classifyByKeywords(description, topN), nil
}

func (c *Classifier) classifyByEmbedding(ctx context.Context, description string, topN int) ([]Result, error) {
	queryVec, err := c.embedder.EmbedText(ctx, description)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	scores := make([]float64, len(c.entries))
	for i, entry := range c.entries {
		vec, ok := c.cache.Get(entry.Description)
		if !ok {
			vec, err = c.embedder.EmbedText(ctx, entry.Description)
			if err != nil {
				return nil, fmt.Errorf("corpus embedding for %s: %w", entry.Code, err)
			}
			c.cache.Put(entry.Description, vec)
		}
		scores[i] = clamp01(embedding.Cosine(queryVec, vec))
	}

	reasoning := fmt.Sprintf("embedding similarity (%s)", c.embedder.Model())
	return c.rank(scores, topN, reasoning), nil
}

func (c *Classifier) classifyByKeywords(description string, topN int) []Result {
	queryTokens := tokenSet(description)

	scores := make([]float64, len(c.entries))
	if len(queryTokens) > 0 {
		for i, entry := range c.entries {
			overlap := 0
			for token := range tokenSet(entry.Description) {
				if queryTokens[token] {
					overlap++
				}
			}
			scores[i] = float64(overlap) / float64(len(queryTokens)) * keywordDiscount
		}
	}

	return c.rank(scores, topN, "keyword overlap (fallback)")
}

// rank selects the topN highest-scoring entries. The stable sort keeps corpus
// insertion order for equal scores.
func (c *Classifier) rank(scores []float64, topN int, reasoning string) []Result {
	order := make([]int, len(c.entries))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	results := make([]Result, 0, topN)
	for _, idx := range order[:topN] {
		results = append(results, Result{
			Code:        c.entries[idx].Code,
			Description: c.entries[idx].Description,
			Confidence:  scores[idx],
			Reasoning:   reasoning,
		})
	}
	return results
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
