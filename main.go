package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/csvchat/csvchat/config"
	"github.com/csvchat/csvchat/internal/planner"
	"github.com/csvchat/csvchat/internal/service"
	"github.com/csvchat/csvchat/internal/session"
	"github.com/csvchat/csvchat/internal/tools"
	transport "github.com/csvchat/csvchat/internal/transport/http"
	"github.com/csvchat/csvchat/policy"
	"github.com/csvchat/csvchat/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting csvchat...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("LLM URL: %s (model %s)", cfg.LLMBaseURL, cfg.LLMModel)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize session registry
	registry := session.NewRegistry(cfg.SessionTTL, cfg.SweepInterval)
	defer registry.Close()

	// Initialize tool catalog
	toolReg := tools.NewRegistry()

	// Initialize planner
	p := planner.NewPlanner(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(registry, toolReg, p, policyEngine, db, cfg)

	// Create HTTP server
	server := transport.NewServer(svc, cfg.MaxUploadBytes)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down csvchat...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("csvchat stopped")
}
