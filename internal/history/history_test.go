package history

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"tradeforms/internal/storage/sqlite"
)

type fakeEmbedder struct {
	vecs map[string][]float64
	err  error
}

func (f *fakeEmbedder) Model() string { return "fake-model" }

func (f *fakeEmbedder) EmbedText(_ context.Context, text string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vecs[text]; ok {
		return vec, nil
	}
	return []float64{0, 0, 1}, nil
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "history-test.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveAndFindSimilarByEmbedding(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{vecs: map[string][]float64{
		"shipping headphones to Berlin": {1, 0, 0},
		"exporting cheese to France":    {0, 1, 0},
		"wireless headphones order":     {0.95, 0.05, 0},
	}}
	store := NewStore(newTestDB(t), emb)

	if _, err := store.Save(ctx, "invoice.json", "shipping headphones to Berlin", map[string]string{"product": "headphones"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.Save(ctx, "invoice.json", "exporting cheese to France", map[string]string{"product": "cheese"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	results, err := store.FindSimilar(ctx, "wireless headphones order", "", 5)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].FilledForm["product"] != "headphones" {
		t.Fatalf("expected headphone submission first, got %+v", results[0])
	}
}

func TestFindSimilarRespectsLimit(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t), nil)

	for i := 0; i < 5; i++ {
		if _, err := store.Save(ctx, "invoice.json", "container shipment of machine parts", map[string]string{}); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	results, err := store.FindSimilar(ctx, "machine parts", "", 3)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected limit of 3 results, got %d", len(results))
	}
}

func TestFindSimilarKeywordFallback(t *testing.T) {
	ctx := context.Background()
	// Embedder fails at query time: ranking must degrade to keyword overlap.
	store := NewStore(newTestDB(t), &fakeEmbedder{err: errors.New("connection refused")})

	if _, err := store.Save(ctx, "invoice.json", "bulk order of cotton t-shirts", map[string]string{"product": "t-shirts"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.Save(ctx, "invoice.json", "laptop computers pallet", map[string]string{"product": "laptops"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	results, err := store.FindSimilar(ctx, "cotton t-shirts", "", 2)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if results[0].FilledForm["product"] != "t-shirts" {
		t.Fatalf("expected t-shirt submission first, got %+v", results[0])
	}
}

func TestFindSimilarTemplateFilter(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t), nil)

	if _, err := store.Save(ctx, "invoice.json", "headphones shipment", map[string]string{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.Save(ctx, "packing_list.json", "headphones shipment", map[string]string{}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	results, err := store.FindSimilar(ctx, "headphones", "invoice.json", 10)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) != 1 || results[0].TemplateName != "invoice.json" {
		t.Fatalf("expected only invoice.json records, got %+v", results)
	}
}

func TestFindSimilarEmptyStore(t *testing.T) {
	store := NewStore(newTestDB(t), nil)
	results, err := store.FindSimilar(context.Background(), "anything", "", 5)
	if err != nil {
		t.Fatalf("FindSimilar failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %d", len(results))
	}
}

func TestAutofillSeed(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newTestDB(t), nil)

	seed, err := store.AutofillSeed(ctx, "anything", "")
	if err != nil || seed != nil {
		t.Fatalf("expected nil seed on empty history, got %v err=%v", seed, err)
	}

	if _, err := store.Save(ctx, "invoice.json", "headphones to Berlin", map[string]string{"consignee": "Acme GmbH"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	seed, err = store.AutofillSeed(ctx, "headphones shipment", "invoice.json")
	if err != nil {
		t.Fatalf("AutofillSeed failed: %v", err)
	}
	if seed["consignee"] != "Acme GmbH" {
		t.Fatalf("unexpected seed: %v", seed)
	}
}
