package app

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"tradeforms/internal/classifier"
	"tradeforms/internal/config"
	"tradeforms/internal/corpus"
	"tradeforms/internal/embedding"
	"tradeforms/internal/extract"
	"tradeforms/internal/history"
	"tradeforms/internal/httpx"
	"tradeforms/internal/server"
	"tradeforms/internal/storage/sqlite"
	"tradeforms/internal/templates"
	"tradeforms/internal/tradeagent"
)

// Main wires the service together and serves until SIGINT or SIGTERM.
func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. Listen=%s LLMProvider=%s EmbeddingModel=%s HSConfidenceThreshold=%.2f HSTopN=%d ExternalHTTPTimeout=%s",
		cfg.ListenAddr,
		cfg.LLMProvider,
		cfg.EmbeddingModel,
		cfg.HSConfidenceThreshold,
		cfg.HSTopN,
		appliedHTTPTimeout,
	)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	entries, err := corpus.Load(cfg.CorpusPath)
	if err != nil {
		// The classifier degrades to an empty result set without a corpus;
		// the rest of the service still works.
		log.Printf("Warning: HS corpus unavailable (%s): %v", cfg.CorpusPath, err)
		entries = nil
	} else {
		log.Printf("Loaded HS corpus entries=%d path=%s", len(entries), cfg.CorpusPath)
	}

	var embedder embedding.Embedder
	if cfg.EmbeddingConfigured() {
		ollama, err := embedding.NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbeddingModel, httpx.ExternalHTTPClient, cfg.ExternalHTTPTimeout())
		if err != nil {
			log.Printf("Warning: embedding backend disabled: %v", err)
		} else {
			embedder = ollama
			log.Printf("Embedding backend enabled host=%s model=%s", cfg.OllamaHost, cfg.EmbeddingModel)
		}
	} else {
		log.Println("Embedding backend disabled. Set OLLAMA_HOST to enable semantic classification.")
	}
	if !cfg.LLMConfigured() {
		log.Println("LLM extraction disabled. Set ANTHROPIC_API_KEY or OPENAI_API_KEY to enable.")
	}

	cache := corpus.NewEmbeddingCache(db, cfg.EmbeddingModel)
	cls := classifier.New(entries, embedder, cache)
	hist := history.NewStore(db, embedder)
	agent := tradeagent.New(extract.NewAgent(cfg), cls, hist, cfg.HSConfidenceThreshold, cfg.HSTopN)
	tmplStore := templates.NewStore(cfg.TemplatesDir)

	srv := server.New(cfg, agent, cls, tmplStore, hist)

	go func() {
		if err := srv.Listen(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()
	log.Printf("Server started on %s", cfg.ListenAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := srv.Shutdown(); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	log.Println("Server exited")
}
