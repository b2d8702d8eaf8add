package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/himanishpuri/CollabMatch/internal/config"
	"github.com/himanishpuri/CollabMatch/pkg/collabmatch"
	"github.com/himanishpuri/CollabMatch/pkg/logger"
)

var (
	port           int
	configFile     string
	entitiesPath   string
	allowedOrigins string
)

func init() {
	flag.IntVar(&port, "port", 8080, "HTTP server port")
	flag.StringVar(&configFile, "config", os.Getenv("COLLAB_CONFIG"), "YAML configuration file")
	flag.StringVar(&entitiesPath, "entities", os.Getenv("COLLAB_ENTITIES"), "Entity table to rank at start-up")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load .env: %v", err)
	}
	if entitiesPath == "" {
		log.Fatal("-entities is required")
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if level, ok := logger.ParseLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	// Parse allowed origins
	var origins []string
	if allowedOrigins == "*" {
		origins = []string{"*"}
	} else {
		origins = strings.Split(allowedOrigins, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	service, err := collabmatch.NewService(
		collabmatch.WithDBPath(cfg.DBPath),
		collabmatch.WithWeights(cfg.Metadata),
		collabmatch.WithConsolidationWeights(cfg.Consolidation),
		collabmatch.WithTopK(cfg.TopK),
		collabmatch.WithWorkers(cfg.Workers),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Rankings are computed once; requests only read them.
	result, err := service.Run(ctx, entitiesPath)
	if err != nil {
		log.Fatalf("Ranking failed: %v", err)
	}

	server := NewServer(result, &ServerConfig{
		Port:           port,
		DBPath:         cfg.DBPath,
		EntitiesPath:   entitiesPath,
		Scheme:         cfg.Scheme,
		AllowedOrigins: origins,
	})
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
