package sqlite

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

// InitDB opens (or creates) the service database. Submissions are append-only;
// corpus_embeddings is the persistent arm of the corpus embedding cache so
// restarts skip recomputation.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS submissions (
		id            TEXT PRIMARY KEY,
		template_name TEXT NOT NULL,
		input_text    TEXT NOT NULL,
		filled_form   TEXT NOT NULL,
		embedding     TEXT DEFAULT '',
		created_at    DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_submissions_template ON submissions(template_name);
	CREATE INDEX IF NOT EXISTS idx_submissions_created ON submissions(created_at);

	CREATE TABLE IF NOT EXISTS corpus_embeddings (
		key        TEXT PRIMARY KEY,
		model      TEXT NOT NULL,
		vector     TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
