package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/systemshift/docgraph/internal/server/api"
	"github.com/systemshift/docgraph/internal/server/graph"
)

func main() {
	// Load configuration from environment
	backend := getEnv("DOCGRAPH_BACKEND", "neo4j")
	port := getEnv("PORT", "8080")

	ctx := context.Background()

	var store graph.Store
	var err error

	switch backend {
	case "sqlite":
		dbPath := getEnv("DOCGRAPH_SQLITE_PATH", "docgraph.db")
		store, err = graph.NewSQLite(ctx, dbPath)
		if err != nil {
			log.Fatalf("Failed to open SQLite store: %v", err)
		}
		log.Printf("Using SQLite store at %s", dbPath)
	case "neo4j":
		store, err = graph.NewNeo4j(ctx, graph.Config{
			URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
			Username: getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", "password"),
			Database: getEnv("NEO4J_DATABASE", "neo4j"),
		})
		if err != nil {
			log.Fatalf("Failed to connect to Neo4j: %v", err)
		}
		log.Println("Connected to Neo4j successfully")
	default:
		log.Fatalf("Unknown backend %q (want neo4j or sqlite)", backend)
	}
	defer store.Close(ctx)

	// Initialize API server
	apiServer := api.New(store)

	// Setup HTTP router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	// Routes
	r.Get("/health", healthCheck)
	r.Mount("/api", apiServer.Routes())

	// HTTP server
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting docgraph server on http://localhost:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
