package templates

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Field is one named field of a form template.
type Field struct {
	Name        string `json:"-"`
	Label       string `json:"label"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Template is an ordered set of uniquely named fields. Order does not affect
// extraction but is preserved for display, so templates are parsed from the
// JSON token stream rather than into a map.
type Template struct {
	Name   string
	Fields []Field
}

// FieldNames returns the field names in template order.
func (t Template) FieldNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name.
func (t Template) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// MarshalJSON renders the template back to its on-disk object form,
// preserving field order.
func (t Template) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range t.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse reads a template definition ({"field": {"label": ..., "type": ...}})
// preserving key order and rejecting duplicate field names.
func Parse(name string, data []byte) (Template, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return Template{}, fmt.Errorf("parsing template %s: %w", name, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Template{}, fmt.Errorf("parsing template %s: expected JSON object", name)
	}

	tmpl := Template{Name: name}
	seen := make(map[string]bool)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Template{}, fmt.Errorf("parsing template %s: %w", name, err)
		}
		fieldName, ok := keyTok.(string)
		if !ok {
			return Template{}, fmt.Errorf("parsing template %s: unexpected token %v", name, keyTok)
		}
		if seen[fieldName] {
			return Template{}, fmt.Errorf("parsing template %s: duplicate field %q", name, fieldName)
		}
		seen[fieldName] = true

		var field Field
		if err := dec.Decode(&field); err != nil {
			return Template{}, fmt.Errorf("parsing template %s field %q: %w", name, fieldName, err)
		}
		field.Name = fieldName
		tmpl.Fields = append(tmpl.Fields, field)
	}
	if len(tmpl.Fields) == 0 {
		return Template{}, errors.New("template has no fields")
	}
	return tmpl, nil
}
