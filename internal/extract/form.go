package extract

import "tradeforms/internal/templates"

// FilledForm maps every field name of a template to its extracted value.
// Unmatched fields are present with an empty value, never omitted.
type FilledForm map[string]string

// NewFilledForm returns an all-empty form for the template.
func NewFilledForm(tmpl templates.Template) FilledForm {
	form := make(FilledForm, len(tmpl.Fields))
	for _, f := range tmpl.Fields {
		form[f.Name] = ""
	}
	return form
}

// CountFilled reports how many fields carry a non-empty value.
func (f FilledForm) CountFilled() int {
	n := 0
	for _, v := range f {
		if v != "" {
			n++
		}
	}
	return n
}
