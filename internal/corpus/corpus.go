package corpus

import (
	"encoding/json"
	"fmt"
	"os"
)

// Entry is one (code, description) record of the static HS reference set.
// Entries are immutable after load.
type Entry struct {
	Code        string `json:"htsno"`
	Description string `json:"description"`
}

// Load reads an HTS JSON export (array of {htsno, description, ...}).
// Entries without a description are skipped; order is preserved and is the
// tie-break order for classification.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading corpus %s: %w", path, err)
	}
	var raw []Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing corpus %s: %w", path, err)
	}
	entries := make([]Entry, 0, len(raw))
	for _, e := range raw {
		if e.Description == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
