package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"tradeforms/internal/embedding"
	"tradeforms/internal/metrics"
)

// keywordDiscount mirrors the classifier's normalization so history
// similarity scores from the lexical path read on the same scale.
const keywordDiscount = 0.5

// Submission is one persisted (template, input, output) tuple. Records are
// append-only; they are created on save and never mutated.
type Submission struct {
	ID           string            `json:"id"`
	TemplateName string            `json:"template"`
	InputText    string            `json:"input_text"`
	FilledForm   map[string]string `json:"data"`
	CreatedAt    time.Time         `json:"timestamp"`

	embedding []float64
}

// Store persists submissions in sqlite and ranks them by similarity to a
// query. The embedder is optional; without it (or on embedder errors) ranking
// degrades to keyword overlap.
type Store struct {
	db       *sql.DB
	embedder embedding.Embedder
}

func NewStore(db *sql.DB, embedder embedding.Embedder) *Store {
	return &Store{db: db, embedder: embedder}
}

// Save appends a submission. The input text is embedded at save time when an
// embedder is available; embedding failures degrade to a record without a
// vector rather than failing the save.
func (s *Store) Save(ctx context.Context, templateName, inputText string, form map[string]string) (Submission, error) {
	sub := Submission{
		ID:           uuid.NewString(),
		TemplateName: templateName,
		InputText:    inputText,
		FilledForm:   form,
		CreatedAt:    time.Now().UTC(),
	}

	if s.embedder != nil {
		vec, err := s.embedder.EmbedText(ctx, inputText)
		if err != nil {
			log.Printf("history embedding failed, saving without vector: %v", err)
		} else {
			sub.embedding = vec
		}
	}

	formJSON, err := json.Marshal(form)
	if err != nil {
		return Submission{}, fmt.Errorf("marshaling filled form: %w", err)
	}
	vecJSON := ""
	if len(sub.embedding) > 0 {
		raw, err := json.Marshal(sub.embedding)
		if err != nil {
			return Submission{}, fmt.Errorf("marshaling embedding: %w", err)
		}
		vecJSON = string(raw)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, template_name, input_text, filled_form, embedding, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.TemplateName, sub.InputText, string(formJSON), vecJSON, sub.CreatedAt,
	)
	if err != nil {
		return Submission{}, fmt.Errorf("inserting submission: %w", err)
	}
	return sub, nil
}

// FindSimilar returns at most limit stored records ranked by descending
// similarity to query. templateName filters when non-empty. Ties keep
// insertion order.
func (s *Store) FindSimilar(ctx context.Context, query, templateName string, limit int) ([]Submission, error) {
	if limit < 1 {
		limit = 10
	}
	metrics.HistorySearches.Inc()

	subs, err := s.load(ctx, templateName)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, nil
	}

	var queryVec []float64
	if s.embedder != nil {
		queryVec, err = s.embedder.EmbedText(ctx, query)
		if err != nil {
			log.Printf("history query embedding failed, using keyword ranking: %v", err)
			queryVec = nil
		}
	}

	queryTokens := tokenSet(query)
	scores := make([]float64, len(subs))
	for i, sub := range subs {
		if queryVec != nil && len(sub.embedding) > 0 {
			scores[i] = clamp01(embedding.Cosine(queryVec, sub.embedding))
			continue
		}
		scores[i] = keywordOverlap(queryTokens, sub.InputText)
	}

	order := make([]int, len(subs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if limit > len(order) {
		limit = len(order)
	}
	out := make([]Submission, 0, limit)
	for _, idx := range order[:limit] {
		out = append(out, subs[idx])
	}
	return out, nil
}

// AutofillSeed returns the filled form of the single most similar prior
// submission, or nil when history is empty.
func (s *Store) AutofillSeed(ctx context.Context, query, templateName string) (map[string]string, error) {
	similar, err := s.FindSimilar(ctx, query, templateName, 1)
	if err != nil || len(similar) == 0 {
		return nil, err
	}
	return similar[0].FilledForm, nil
}

func (s *Store) load(ctx context.Context, templateName string) ([]Submission, error) {
	query := `SELECT id, template_name, input_text, filled_form, embedding, created_at FROM submissions`
	args := []any{}
	if templateName != "" {
		query += ` WHERE template_name = ?`
		args = append(args, templateName)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}
	defer rows.Close()

	var subs []Submission
	for rows.Next() {
		var sub Submission
		var formJSON, vecJSON string
		if err := rows.Scan(&sub.ID, &sub.TemplateName, &sub.InputText, &formJSON, &vecJSON, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning submission: %w", err)
		}
		if err := json.Unmarshal([]byte(formJSON), &sub.FilledForm); err != nil {
			return nil, fmt.Errorf("parsing filled form for %s: %w", sub.ID, err)
		}
		if vecJSON != "" {
			if err := json.Unmarshal([]byte(vecJSON), &sub.embedding); err != nil {
				log.Printf("history skipping bad embedding for %s: %v", sub.ID, err)
				sub.embedding = nil
			}
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

func keywordOverlap(queryTokens map[string]bool, text string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	overlap := 0
	for token := range tokenSet(text) {
		if queryTokens[token] {
			overlap++
		}
	}
	return float64(overlap) / float64(len(queryTokens)) * keywordDiscount
}

func tokenSet(text string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[f] = true
	}
	return set
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
