package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrNotFound      = errors.New("template not found")
	ErrAlreadyExists = errors.New("template already exists")
)

// Store is a directory of JSON template files. Templates are immutable at
// request time; the only mutation is Create, which appends a new file.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// List returns all templates, sorted by name.
func (s *Store) List() ([]Template, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading templates dir %s: %w", s.dir, err)
	}

	var out []Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		tmpl, err := s.Get(entry.Name())
		if err != nil {
			return nil, err
		}
		out = append(out, tmpl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get loads one template by file name. The .json suffix is optional.
func (s *Store) Get(name string) (Template, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Template{}, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return Template{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Template{}, err
	}
	return Parse(name, data)
}

// Create validates and writes a new template file. Existing templates are
// never overwritten.
func (s *Store) Create(name string, definition []byte) (Template, error) {
	name, err := normalizeName(name)
	if err != nil {
		return Template{}, err
	}
	tmpl, err := Parse(name, definition)
	if err != nil {
		return Template{}, err
	}

	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		return Template{}, fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Template{}, err
	}
	if err := os.WriteFile(path, definition, 0o644); err != nil {
		return Template{}, fmt.Errorf("writing template %s: %w", name, err)
	}
	return tmpl, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("template name is required")
	}
	if !strings.HasSuffix(name, ".json") {
		name += ".json"
	}
	// File names only: reject anything that escapes the templates dir.
	if filepath.Base(name) != name {
		return "", fmt.Errorf("invalid template name %q", name)
	}
	return name, nil
}
