package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/herdwise/livestock-agent/agent"
	"github.com/herdwise/livestock-agent/api"
	"github.com/herdwise/livestock-agent/config"
	"github.com/herdwise/livestock-agent/database"
	"github.com/herdwise/livestock-agent/embeddings"
	"github.com/herdwise/livestock-agent/index"
	"github.com/herdwise/livestock-agent/ingestion"
	"github.com/herdwise/livestock-agent/llm"
	"github.com/herdwise/livestock-agent/retrieval"
	"github.com/herdwise/livestock-agent/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "chat":
		chatCmd(cfg, logger, os.Args[2:])
	case "clear":
		clearCmd(cfg, logger, os.Args[2:])
	default:
		logger.Error().Str("command", os.Args[1]).Msg("unknown command")
		printUsage()
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) zerolog.Logger {
	if cfg.Env == "production" {
		return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
	}
	return zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger().Level(zerolog.DebugLevel)
}

func serveCmd(cfg config.Config, logger zerolog.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "listen address")
	if err := flags.Parse(args); err != nil {
		logger.Fatal().Err(err).Msg("parse serve flags")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection")
	}
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("embedder setup")
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("llm setup")
	}

	var sessions session.Store
	if cfg.RedisURL != "" {
		rdb, redisErr := session.NewRedisClient(ctx, cfg.RedisURL)
		if redisErr != nil {
			logger.Fatal().Err(redisErr).Msg("redis connection")
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, time.Duration(cfg.SessionTTL)*time.Second)
		logger.Info().Msg("using redis session store")
	} else {
		sessions = session.NewMemoryStore()
		logger.Info().Msg("using in-memory session store")
	}

	retriever := retrieval.NewRetriever(embedder, index.NewPostgresIndex(pool), cfg.Agent.ExternalAttempts, logger)
	orchestrator := agent.NewOrchestrator(retriever, llmClient, nil, cfg.Agent, logger)
	server := api.New(orchestrator, sessions, cfg, logger)

	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
	}()

	logger.Info().Str("addr", *addr).Msg("serving livestock-care agent")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("http server")
	}
}

func ingestCmd(cfg config.Config, logger zerolog.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	dataDir := flags.String("dir", cfg.DataDir, "path to directory containing PDF or JSON record files")
	if err := flags.Parse(args); err != nil {
		logger.Fatal().Err(err).Msg("parse ingest flags")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection")
	}
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("embedder setup")
	}

	svc := ingestion.NewService(pool, embedder, ingestion.Options{
		Dimension:    cfg.Embeddings.Dimension,
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		BatchSize:    cfg.Ingest.BatchSize,
	}, logger)

	logger.Info().
		Str("dir", *dataDir).
		Str("provider", cfg.Embeddings.Provider).
		Str("model", cfg.Embeddings.Model).
		Msg("ingesting knowledge base documents")

	if err := svc.IngestDirectory(ctx, *dataDir); err != nil {
		logger.Fatal().Err(err).Msg("ingestion failed")
	}
}

func chatCmd(cfg config.Config, logger zerolog.Logger, args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	question := flags.String("question", "", "question to ask the agent")
	if err := flags.Parse(args); err != nil {
		logger.Fatal().Err(err).Msg("parse chat flags")
	}

	if *question == "" {
		logger.Fatal().Msg("provide a question with --question")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection")
	}
	defer pool.Close()

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("embedder setup")
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("llm setup")
	}

	retriever := retrieval.NewRetriever(embedder, index.NewPostgresIndex(pool), cfg.Agent.ExternalAttempts, logger)
	orchestrator := agent.NewOrchestrator(retriever, llmClient, nil, cfg.Agent, logger)

	result, err := orchestrator.ProcessTurn(ctx, "cli", "cli", *question, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("chat failed")
	}

	fmt.Println(result.Answer)
	if len(result.Evidence) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for i, item := range result.Evidence {
			fmt.Printf("%d. %s", i+1, item.Source)
			if item.Page != "" {
				fmt.Printf(" (page %s)", item.Page)
			}
			fmt.Printf(" [%.2f]\n", item.Score)
		}
	}
}

func clearCmd(cfg config.Config, logger zerolog.Logger, args []string) {
	flags := flag.NewFlagSet("clear", flag.ExitOnError)
	confirmed := flags.Bool("confirm", false, "skip confirmation prompt")
	if err := flags.Parse(args); err != nil {
		logger.Fatal().Err(err).Msg("parse clear flags")
	}

	if !*confirmed {
		logger.Fatal().Msg("clearing deletes all ingested knowledge base data; re-run with --confirm")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection")
	}
	defer pool.Close()

	if err := database.ClearKB(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("clear knowledge base")
	}
	logger.Info().Msg("knowledge base cleared")
}

func printUsage() {
	fmt.Println("Usage: livestock-agent <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Run the HTTP chat service")
	fmt.Println("  ingest   Build the knowledge base from PDF/JSON documents (--dir to override)")
	fmt.Println("  chat     Ask a one-shot question from the command line")
	fmt.Println("  clear    Remove all ingested knowledge base data")
}
