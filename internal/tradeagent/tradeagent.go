package tradeagent

import (
	"context"
	"log"
	"strings"

	"tradeforms/internal/classifier"
	"tradeforms/internal/extract"
	"tradeforms/internal/history"
	"tradeforms/internal/templates"
)

// Options control one form-filling run.
type Options struct {
	UseAI          bool
	AutoClassifyHS bool
	UseHistory     bool
}

// Result is a filled form plus metadata about how it was produced.
type Result struct {
	Form        extract.FilledForm
	Source      extract.Source
	FromHistory bool
	// HSClassification carries the top suggestion when auto-classification
	// ran, whether or not it cleared the acceptance threshold.
	HSClassification *classifier.Result
}

// Agent composes extraction, HS classification, and history autofill. It runs
// one request to completion with no side effects beyond the returned Result;
// persisting a submission is an explicit separate call on the history store.
type Agent struct {
	extractor  *extract.Agent
	classifier *classifier.Classifier
	history    *history.Store // nil disables autofill
	threshold  float64
	topN       int
}

func New(extractor *extract.Agent, cls *classifier.Classifier, hist *history.Store, threshold float64, topN int) *Agent {
	if topN < 1 {
		topN = 1
	}
	return &Agent{
		extractor:  extractor,
		classifier: cls,
		history:    hist,
		threshold:  threshold,
		topN:       topN,
	}
}

// FillTradeForm extracts the template's fields from the prompt and optionally
// auto-populates HS-code fields from detected product descriptions.
// Extraction always takes precedence: history seeds only fields extraction
// left empty, and classification never overwrites a non-empty HS field.
func (a *Agent) FillTradeForm(ctx context.Context, tmpl templates.Template, prompt string, opts Options) (Result, error) {
	var seed map[string]string
	if opts.UseHistory && a.history != nil {
		var err error
		seed, err = a.history.AutofillSeed(ctx, prompt, tmpl.Name)
		if err != nil {
			log.Printf("history autofill lookup failed: %v", err)
			seed = nil
		}
	}

	form, source := a.extractor.Fill(ctx, tmpl, prompt, opts.UseAI)

	result := Result{Form: form, Source: source, FromHistory: len(seed) > 0}
	for _, f := range tmpl.Fields {
		if form[f.Name] == "" && seed[f.Name] != "" {
			form[f.Name] = seed[f.Name]
		}
	}

	if opts.AutoClassifyHS && a.classifier != nil {
		a.autoClassify(ctx, tmpl, form, &result)
	}

	return result, nil
}

func (a *Agent) autoClassify(ctx context.Context, tmpl templates.Template, form extract.FilledForm, result *Result) {
	productDesc := ""
	for _, f := range tmpl.Fields {
		if isProductDescriptionField(f) && strings.TrimSpace(form[f.Name]) != "" {
			productDesc = form[f.Name]
			break
		}
	}
	if productDesc == "" {
		return
	}

	suggestions, err := a.classifier.Classify(ctx, productDesc, a.topN)
	if err != nil || len(suggestions) == 0 {
		if err != nil {
			log.Printf("auto-classify failed (non-fatal): %v", err)
		}
		return
	}

	top := suggestions[0]
	result.HSClassification = &top
	if top.Confidence < a.threshold {
		log.Printf("auto-classify below threshold code=%s confidence=%.3f threshold=%.3f", top.Code, top.Confidence, a.threshold)
		return
	}

	for _, f := range tmpl.Fields {
		if !isHSCodeField(f) {
			continue
		}
		if form[f.Name] != "" {
			// Explicitly extracted value wins over classification.
			return
		}
		form[f.Name] = top.Code
		log.Printf("auto-classify filled field=%s code=%s confidence=%.3f", f.Name, top.Code, top.Confidence)
		return
	}
}

func isProductDescriptionField(f templates.Field) bool {
	name := strings.ToLower(f.Name)
	switch name {
	case "product_description", "description", "description_of_goods", "goods_description", "product_name", "product":
		return true
	}
	if strings.Contains(name, "product") && strings.Contains(name, "desc") {
		return true
	}
	hint := strings.ToLower(f.Label + " " + f.Type)
	return strings.Contains(hint, "product description")
}

func isHSCodeField(f templates.Field) bool {
	name := strings.ToLower(f.Name)
	if strings.Contains(name, "hts") || strings.Contains(name, "harmonized") || strings.Contains(name, "tariff") {
		return true
	}
	return strings.Contains(name, "hs") && strings.Contains(name, "code")
}
