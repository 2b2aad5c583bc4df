package extract

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tradeforms/internal/config"
	"tradeforms/internal/httpx"
)

func openAITestConfig() config.Config {
	return config.Config{
		LLMProvider:                "openai",
		OpenAIAPIKey:               "sk-test",
		ExternalHTTPTimeoutSeconds: 5,
	}
}

func newTestAgent(cfg config.Config, endpoint string) *Agent {
	a := NewAgent(cfg)
	a.httpClient = httpx.ExternalHTTPClient
	if endpoint != "" {
		a.openAIEndpoint = endpoint
	}
	return a
}

func TestFillUsesLLMWhenAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"{\"shipper\": \"Acme Corp\", \"quantity\": \"50\", \"hs_code\": \"851830\"}"}}]}`))
	}))
	defer server.Close()

	agent := newTestAgent(openAITestConfig(), server.URL)
	form, source := agent.Fill(context.Background(), smallTemplate(t), "ship 50 units from Acme Corp", true)

	if source != SourceLLM {
		t.Fatalf("expected LLM source, got %s", source)
	}
	if form["shipper"] != "Acme Corp" || form["quantity"] != "50" || form["hs_code"] != "851830" {
		t.Fatalf("unexpected form: %v", form)
	}
}

func TestFillFallsBackOnNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // simulated network failure

	agent := newTestAgent(openAITestConfig(), server.URL)
	form, source := agent.Fill(context.Background(), smallTemplate(t), "Quantity: 50 units, HS code 851830", true)

	if source != SourceHeuristic {
		t.Fatalf("expected heuristic fallback, got %s", source)
	}
	if form["quantity"] != "50" {
		t.Fatalf("expected heuristics to fill quantity, got %q", form["quantity"])
	}
	if form["hs_code"] != "851830" {
		t.Fatalf("expected heuristics to fill hs_code, got %q", form["hs_code"])
	}
}

func TestFillFallsBackOnMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"sorry, I cannot help with that"}}]}`))
	}))
	defer server.Close()

	agent := newTestAgent(openAITestConfig(), server.URL)
	form, source := agent.Fill(context.Background(), smallTemplate(t), "HS code 851830", true)

	if source != SourceHeuristic {
		t.Fatalf("expected heuristic fallback on unparseable output, got %s", source)
	}
	if form["hs_code"] != "851830" {
		t.Fatalf("hs_code = %q", form["hs_code"])
	}
}

func TestFillHeuristicWhenAIDisabled(t *testing.T) {
	agent := NewAgent(openAITestConfig())
	_, source := agent.Fill(context.Background(), smallTemplate(t), "anything", false)
	if source != SourceHeuristic {
		t.Fatalf("expected heuristic source with useAI=false, got %s", source)
	}
}

func TestFillHeuristicWhenNotConfigured(t *testing.T) {
	cfg := config.Config{LLMProvider: "anthropic", ExternalHTTPTimeoutSeconds: 5}
	agent := NewAgent(cfg)
	form, source := agent.Fill(context.Background(), smallTemplate(t), "Shipper: Acme Corp", true)
	if source != SourceHeuristic {
		t.Fatalf("expected heuristic source without credentials, got %s", source)
	}
	if form["shipper"] != "Acme Corp" {
		t.Fatalf("shipper = %q", form["shipper"])
	}
}
