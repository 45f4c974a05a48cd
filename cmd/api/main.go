package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/videogen-ai/backend/internal/api"
	"github.com/videogen-ai/backend/internal/config"
	"github.com/videogen-ai/backend/internal/db"
	"github.com/videogen-ai/backend/internal/generator"
	"github.com/videogen-ai/backend/internal/queue"
	"github.com/videogen-ai/backend/internal/services"
	"github.com/videogen-ai/backend/internal/worker"
)

func main() {
	log.Println("Starting VideoGen API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	log.Println("Connected to database")

	// Connect to Redis queue
	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to queue: %v", err)
	}
	defer q.Close()
	log.Println("Connected to Redis queue")

	// Video generation client — the credential may legitimately be missing;
	// the generator then rejects requests until an admin configures it.
	veoSvc := services.NewVeoService(cfg.GeminiKey, services.VeoOptions{
		Fallbacks:     cfg.ModelFallbacks,
		PollBaseDelay: cfg.PollBaseDelay,
		PollStepDelay: cfg.PollStepDelay,
		PollMaxDelay:  cfg.PollMaxDelay,
		MaxPolls:      cfg.MaxPolls,
	})
	if cfg.GeminiKey == "" {
		log.Println("WARNING: No GEMINI_API_KEY set — generation requests will be rejected")
	}

	// Enhancement provider — Gemini preferred, OpenAI as legacy fallback
	var enhancer services.Enhancer
	if cfg.EnhancementEnabled {
		if cfg.GeminiKey != "" {
			enhancer = services.NewGeminiEnhancer(cfg.GeminiKey)
			log.Println("Enhancement provider: Gemini")
		} else if cfg.OpenAIKey != "" {
			enhancer = services.NewOpenAIEnhancer(cfg.OpenAIKey)
			log.Println("Enhancement provider: OpenAI (legacy)")
		} else {
			log.Println("Enhancement enabled but no provider key configured")
		}
	}

	ledger := db.NewLedger(database)
	library := db.NewLibrary(database)
	activity := db.NewActivityRecorder(database)

	orch := generator.New(veoSvc, enhancer, ledger, library, activity, cfg.CostPerVideo, cfg.GeminiKey != "")

	// Create API handler
	handler := api.NewHandler(database, q, orch, activity, cfg.VideoGenerationEnabled, cfg.EnhancementEnabled)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set — API is unprotected (dev mode)")
	}

	// Start HTTP server
	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	// Start worker if enabled
	var workerCancel context.CancelFunc
	if cfg.WorkerEnabled {
		log.Println("Worker enabled, starting background processing...")

		w := worker.New(database, q, orch)

		var workerCtx context.Context
		workerCtx, workerCancel = context.WithCancel(context.Background())
		go w.Start(workerCtx, cfg.MaxConcurrentJobs)
	}

	// Start server in goroutine
	go func() {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Shutdown worker
	if workerCancel != nil {
		workerCancel()
	}

	// Shutdown HTTP server
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
