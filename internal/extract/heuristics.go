package extract

import (
	"fmt"
	"regexp"
	"strings"

	"tradeforms/internal/templates"
)

// Heuristic extraction: an ordered set of deterministic pattern rules per
// field, keyed on recognized field-name substrings and generic value shapes.
// The first rule that applies to a field and matches the prompt wins.

var (
	emailRe     = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRe     = regexp.MustCompile(`\+?[0-9][0-9()\s.\-]{6,}[0-9]`)
	isoDateRe   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)
	slashDateRe = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	hsCodeRe    = regexp.MustCompile(`\b\d{6,10}\b`)
	containerRe = regexp.MustCompile(`\b[A-Z]{4}\d{7}\b`)
	weightRe    = regexp.MustCompile(`(?i)\b\d[\d,]*(?:\.\d+)?\s*(?:kg|kgs|kilograms?|lbs?|pounds|tonnes?|tons?|mt)\b`)
	quantityRe  = regexp.MustCompile(`(?i)\b(\d[\d,]*)\s*(?:units?|pcs?|pieces|cartons?|boxes|bags|pallets|containers)\b`)
	dimensionRe = regexp.MustCompile(`(?i)\b\d+(?:\.\d+)?\s*[x×]\s*\d+(?:\.\d+)?(?:\s*[x×]\s*\d+(?:\.\d+)?)?\s*(?:cm|mm|m|in|ft)?\b`)
)

var incoterms = []string{
	"EXW", "FCA", "FAS", "FOB", "CFR", "CIF", "CPT", "CIP", "DAP", "DPU", "DDP", "DAT",
}

var currencyCodes = []string{
	"USD", "EUR", "GBP", "JPY", "CNY", "RMB", "CHF", "CAD", "AUD", "HKD", "SGD", "INR", "KRW", "MXN", "BRL",
}

// refIndicators mark fields holding a document reference (invoice number,
// booking ref, bill of lading) extractable as a code-like token after a
// keyword, e.g. "Invoice CI-2025-001".
var refIndicators = []string{"number", "no", "ref", "reference", "id"}

type rule struct {
	appliesTo func(hint string) bool
	extract   func(field templates.Field, prompt string) string
}

var rules = []rule{
	{hintHasAny("email", "e-mail"), matchFirst(emailRe)},
	{hintHasAny("phone", "tel", "mobile", "fax"), extractPhone},
	{hintHasAny("date"), extractDate},
	{hintHasAny("currency"), wordWhitelist(currencyCodes)},
	{hintHasAny("incoterm"), wordWhitelist(incoterms)},
	{isHSCodeHint, matchFirst(hsCodeRe)},
	{hintHasAny("container"), matchFirst(containerRe)},
	{hintHasAny("weight"), matchFirst(weightRe)},
	{hintHasAny("quantity", "qty"), extractQuantity},
	{hintHasAny("dimension", "size", "measurement"), matchFirst(dimensionRe)},
	{isReferenceHint, extractReferenceToken},
	{func(string) bool { return true }, extractLabeledValue},
}

// HeuristicFill extracts field values from the prompt without any external
// dependency. Deterministic: identical inputs yield identical forms.
func HeuristicFill(tmpl templates.Template, prompt string) FilledForm {
	form := NewFilledForm(tmpl)
	for _, field := range tmpl.Fields {
		hint := fieldHint(field)
		for _, r := range rules {
			if !r.appliesTo(hint) {
				continue
			}
			if value := r.extract(field, prompt); value != "" {
				form[field.Name] = value
				break
			}
		}
	}
	return form
}

// fieldHint is the lowercase haystack the rules match field identity against.
func fieldHint(field templates.Field) string {
	return strings.ToLower(field.Name + " " + field.Label + " " + field.Type)
}

func hintHasAny(substrings ...string) func(string) bool {
	return func(hint string) bool {
		for _, s := range substrings {
			if strings.Contains(hint, s) {
				return true
			}
		}
		return false
	}
}

func isHSCodeHint(hint string) bool {
	if strings.Contains(hint, "hts") || strings.Contains(hint, "tariff") || strings.Contains(hint, "harmonized") {
		return true
	}
	return strings.Contains(hint, "hs") && strings.Contains(hint, "code")
}

func isReferenceHint(hint string) bool {
	for _, ind := range refIndicators {
		for _, word := range splitWords(hint) {
			if word == ind {
				return true
			}
		}
	}
	return false
}

func matchFirst(re *regexp.Regexp) func(templates.Field, string) string {
	return func(_ templates.Field, prompt string) string {
		return strings.TrimSpace(re.FindString(prompt))
	}
}

// extractPhone filters phoneRe matches so date, reference, and bare code
// digit runs do not pass as phone numbers: a match needs a leading +, or at
// least 9 digits grouped by separators.
func extractPhone(_ templates.Field, prompt string) string {
	matches := phoneRe.FindAllString(prompt, -1)
	for _, m := range matches {
		if strings.HasPrefix(m, "+") {
			return strings.TrimSpace(m)
		}
	}
	for _, m := range matches {
		digits := 0
		separators := 0
		for _, r := range m {
			if r >= '0' && r <= '9' {
				digits++
			} else {
				separators++
			}
		}
		if digits >= 9 && separators > 0 {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

func extractDate(_ templates.Field, prompt string) string {
	if m := isoDateRe.FindString(prompt); m != "" {
		return m
	}
	return slashDateRe.FindString(prompt)
}

func extractQuantity(_ templates.Field, prompt string) string {
	if m := quantityRe.FindStringSubmatch(prompt); m != nil {
		return m[1]
	}
	return ""
}

func wordWhitelist(words []string) func(templates.Field, string) string {
	return func(_ templates.Field, prompt string) string {
		for _, w := range words {
			re := regexp.MustCompile(`(?i)\b` + w + `\b`)
			if re.MatchString(prompt) {
				return w
			}
		}
		return ""
	}
}

// extractReferenceToken finds a code-like token (letters, digits, dashes,
// at least one digit) following a keyword derived from the field's label,
// e.g. label "Invoice Number" + prompt "Invoice CI-2025-001" -> "CI-2025-001".
func extractReferenceToken(field templates.Field, prompt string) string {
	for _, keyword := range referenceKeywords(field) {
		re := regexp.MustCompile(
			`(?i)\b` + regexp.QuoteMeta(keyword) + `\b(?:\s+(?:no\.?|number|num|#))?\s*[:#\-]?\s*([A-Za-z]{0,5}[-/]?\d[\w/\-]*)`)
		if m := re.FindStringSubmatch(prompt); m != nil {
			return strings.TrimRight(m[1], "-/.")
		}
	}
	return ""
}

// referenceKeywords are the label/name words other than the indicator words
// themselves ("number", "ref", ...).
func referenceKeywords(field templates.Field) []string {
	var keywords []string
	seen := make(map[string]bool)
	for _, word := range splitWords(strings.ToLower(field.Label + " " + field.Name)) {
		if len(word) < 2 || seen[word] {
			continue
		}
		indicator := false
		for _, ind := range refIndicators {
			if word == ind {
				indicator = true
				break
			}
		}
		if !indicator {
			seen[word] = true
			keywords = append(keywords, word)
		}
	}
	return keywords
}

// extractLabeledValue scans for "Label: value" or "Label - value", trying the
// field's display label first and then the field name with separators spaced.
func extractLabeledValue(field templates.Field, prompt string) string {
	candidates := []string{
		field.Label,
		strings.ReplaceAll(field.Name, "_", " "),
		strings.ReplaceAll(field.Name, "-", " "),
	}
	for _, label := range candidates {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(label) + `\b\s*[:\-]\s*([^\n;|]+)`)
		if m := re.FindStringSubmatch(prompt); m != nil {
			value := strings.TrimSpace(m[1])
			// Keep the first comma-separated segment so trailing clauses do
			// not leak into the value.
			if idx := strings.Index(value, ","); idx > 0 {
				value = strings.TrimSpace(value[:idx])
			}
			if value != "" {
				return value
			}
		}
	}
	return ""
}

func splitWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('A' <= r && r <= 'Z') && !('0' <= r && r <= '9')
	})
}

// describeField renders "name (label)" for prompt construction.
func describeField(f templates.Field) string {
	label := f.Label
	if label == "" {
		label = f.Name
	}
	return fmt.Sprintf("%s (%s)", f.Name, label)
}
