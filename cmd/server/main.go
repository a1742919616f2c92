package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"polyomino-api/internal/puzzles"
	"polyomino-api/internal/shapes"
	httpTransport "polyomino-api/internal/transport/http"
	"polyomino-api/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	defs, err := shapes.LoadDefinitionsFile(cfg.ShapesFile)
	if err != nil {
		log.Fatalf("Failed to load shape definitions from %s: %v", cfg.ShapesFile, err)
	}
	lib, err := shapes.Build(defs)
	if err != nil {
		log.Fatalf("Failed to build shape library: %v", err)
	}
	log.Printf("Loaded %d shapes from %s", len(lib.IDs()), cfg.ShapesFile)

	// Load a pre-generated puzzle pool, if one is configured; the daily
	// endpoint falls back to on-demand generation when none is present.
	if cfg.PuzzlePoolFile != "" {
		if err := puzzles.LoadGlobal(cfg.PuzzlePoolFile); err != nil {
			log.Printf("Warning: could not load puzzle pool from %s: %v", cfg.PuzzlePoolFile, err)
			log.Println("Falling back to on-demand puzzle generation")
		} else {
			log.Printf("Loaded %d pre-generated puzzles", puzzles.Global().Count())
		}
	}

	r := gin.Default()
	httpTransport.RegisterRoutes(r, cfg, lib)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("Starting server on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
