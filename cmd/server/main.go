package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/awais7012/Generative-AI/internal/api"
	"github.com/awais7012/Generative-AI/internal/config"
	"github.com/awais7012/Generative-AI/internal/core"
	"github.com/awais7012/Generative-AI/internal/index"
	"github.com/awais7012/Generative-AI/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()
	cfg := config.AppConfig

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if cfg.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Command line flags for one-shot document ingestion
	ingestFile := flag.String("ingest", "", "Ingest a text file for the given user and exit")
	ingestUser := flag.String("user", "", "User id to ingest the file under (with -ingest)")
	flag.Parse()

	// Durable document store (users, chats)
	usageStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer usageStore.Close()

	// TTL cache (conversation windows, ranker models)
	cache, err := store.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to initialize redis cache: %v", err)
	}
	defer cache.Close()

	// Vector index client
	indexClient := index.NewPineconeClient(index.Config{
		Host:    cfg.PineconeHost,
		APIKey:  cfg.PineconeAPIKey,
		Timeout: cfg.ExternalTimeout,
	})

	// LLM service (embeddings, enhancement, generation, token counting)
	llmService, err := core.NewLLMService(cfg.GeminiAPIKey, cfg.ExternalTimeout)
	if err != nil {
		log.Fatalf("Failed to initialize LLM service: %v", err)
	}
	defer llmService.Close()

	rankerStore := core.NewRankerStore(cache, indexClient, cfg.ContextTTL, cfg.RankerRescanLimit)
	ingestService := core.NewIngestService(indexClient, llmService, rankerStore)

	// Handle one-shot ingestion if requested
	if *ingestFile != "" {
		if *ingestUser == "" {
			log.Fatal("-ingest requires -user")
		}
		content, err := os.ReadFile(*ingestFile)
		if err != nil {
			log.Fatalf("Failed to read %s: %v", *ingestFile, err)
		}
		count, err := ingestService.IngestText(context.Background(), *ingestUser, *ingestFile, string(content))
		if err != nil {
			log.Fatalf("Ingestion failed: %v", err)
		}
		log.Printf("Ingestion complete. Stored %d chunks for user %s. Exiting.", count, *ingestUser)
		os.Exit(0)
	}

	retriever := core.NewRetriever(indexClient, llmService, rankerStore, cfg.ScoreThreshold)
	contexts := core.NewContextStore(cache, cfg.ContextWindowSize, cfg.ContextTTL)
	accountant := core.NewAccountant(usageStore, llmService)
	policy := core.LimitPolicy{
		GuestTokenLimit: cfg.GuestTokenLimit,
		FreeTokenLimit:  cfg.FreeTokenLimit,
		ChatTokenLimit:  cfg.ChatTokenLimit,
	}
	pipeline := core.NewPipeline(usageStore, contexts, retriever, llmService, accountant, policy, cfg.RetrievalTopK)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(pipeline, ingestService)
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v", cfg.HTTPPort, err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
