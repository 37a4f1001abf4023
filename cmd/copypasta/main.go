// Package main is the entry point for CopyPasta, a cross-device
// clipboard relay. This file handles command-line argument parsing,
// configuration loading, and orchestrates the startup of all
// application components.
//
// A small server holds a per-user current clipboard entry and a short
// history; clients push entries to it and long-poll for changes made by
// the user's other devices.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/liskl/copypasta/internal/config"
	"github.com/liskl/copypasta/internal/server"
	"github.com/liskl/copypasta/internal/storage"
)

// Version information set at build time via ldflags:
// go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "none"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.ini", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Handle version flag
	if *showVersion {
		fmt.Printf("CopyPasta %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// Load configuration from INI file and environment variables
	// Environment variables override file settings (12-factor app pattern)
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize the storage backend based on configuration
	// Supports: sqlite3 (default, embedded), postgres, mysql
	store, err := storage.New(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	// Create and configure the HTTP server
	srv, err := server.New(cfg, store)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Start the server in a goroutine so we can handle shutdown gracefully
	go func() {
		log.Printf("%s %s starting on %s", cfg.Main.Name, version, srv.Addr())
		if err := srv.ListenAndServe(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM) for graceful shutdown
	// This ensures in-flight requests complete and resources are cleaned up
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Give outstanding requests up to 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}
