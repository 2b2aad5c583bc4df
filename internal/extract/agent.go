package extract

import (
	"context"
	"log"
	"net/http"

	"tradeforms/internal/config"
	"tradeforms/internal/httpx"
	"tradeforms/internal/metrics"
	"tradeforms/internal/templates"
)

// Source names the arm that produced a FilledForm.
type Source string

const (
	SourceLLM       Source = "llm"
	SourceHeuristic Source = "heuristic"
)

// Agent fills forms with an explicit two-arm strategy: one LLM completion as
// the primary source, the deterministic heuristic rules as the secondary.
// Any LLM failure (missing key, network, timeout, unparseable output) selects
// the secondary arm; it is never surfaced to the caller.
type Agent struct {
	cfg            config.Config
	httpClient     *http.Client
	openAIEndpoint string
}

func NewAgent(cfg config.Config) *Agent {
	return &Agent{
		cfg:            cfg,
		httpClient:     httpx.ExternalHTTPClient,
		openAIEndpoint: openAIEndpoint,
	}
}

// Fill extracts the template's fields from the prompt. The returned form
// always carries exactly the template's field names.
func (a *Agent) Fill(ctx context.Context, tmpl templates.Template, prompt string, useAI bool) (FilledForm, Source) {
	if useAI && a.cfg.LLMConfigured() {
		form, err := a.fillWithLLM(ctx, tmpl, prompt)
		if err == nil {
			metrics.FillRequests.WithLabelValues(string(SourceLLM)).Inc()
			log.Printf("llm extract provider=%s fields=%d filled=%d", a.cfg.LLMProvider, len(tmpl.Fields), form.CountFilled())
			return form, SourceLLM
		}
		metrics.LLMFailures.WithLabelValues("call_or_parse").Inc()
		log.Printf("llm extract failed, using heuristic fallback: %v", err)
	} else if useAI {
		metrics.LLMFailures.WithLabelValues("not_configured").Inc()
	}

	metrics.FillRequests.WithLabelValues(string(SourceHeuristic)).Inc()
	return HeuristicFill(tmpl, prompt), SourceHeuristic
}

func (a *Agent) fillWithLLM(ctx context.Context, tmpl templates.Template, prompt string) (FilledForm, error) {
	systemPrompt, userPrompt := buildExtractionPrompts(tmpl, prompt)

	callCtx, cancel := context.WithTimeout(ctx, a.cfg.ExternalHTTPTimeout())
	defer cancel()

	var responseText string
	var err error
	switch a.cfg.LLMProvider {
	case "openai":
		model := a.cfg.LLMModel
		if model == "" {
			model = defaultOpenAIModel
		}
		responseText, err = callOpenAI(callCtx, a.httpClient, a.openAIEndpoint, a.cfg.OpenAIAPIKey, model, systemPrompt, userPrompt)
	default:
		model := a.cfg.LLMModel
		if model == "" {
			model = defaultAnthropicModel
		}
		responseText, err = callAnthropic(callCtx, a.httpClient, a.cfg.AnthropicAPIKey, model, systemPrompt, userPrompt)
	}
	if err != nil {
		return nil, err
	}

	return parseFieldResponse(responseText, tmpl)
}
