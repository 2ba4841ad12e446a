package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fabfab/docpipe/api"
	"github.com/fabfab/docpipe/config"
	"github.com/fabfab/docpipe/database"
	"github.com/fabfab/docpipe/embeddings"
	"github.com/fabfab/docpipe/ingestion"
	"github.com/fabfab/docpipe/raster"
	"github.com/fabfab/docpipe/search"
	"github.com/fabfab/docpipe/storage"
	"github.com/fabfab/docpipe/store"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "ingest":
		ingestCmd(cfg, logger, os.Args[2:])
	case "search":
		searchCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

type pipeline struct {
	pool      *pgxpool.Pool
	docs      store.DocumentStore
	index     store.EmbeddingIndex
	files     *storage.Store
	ingestSvc *ingestion.Service
	searchSvc *search.Service
}

func newPipeline(ctx context.Context, cfg config.Config, logger *log.Logger) (*pipeline, error) {
	pool, err := database.NewPostgresPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres connection: %w", err)
	}

	if err := database.EnsureSchema(ctx, pool, cfg.Embeddings.Dimension); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("embedder setup: %w", err)
	}

	files, err := storage.NewStore(cfg.StorageDir)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage setup: %w", err)
	}

	var strategy raster.Strategy
	switch cfg.ImageStrategy {
	case config.StrategyRender:
		strategy = raster.NewRenderStrategy(cfg.RenderDPI, logger)
	default:
		strategy = raster.NewEmbeddedStrategy(logger)
	}

	docs := store.NewPostgresStore(pool)
	index := store.NewPostgresIndex(pool)

	ingestSvc := ingestion.NewService(docs, index, embedder, strategy, raster.NewClassifier(), files, logger,
		ingestion.Options{ChunkSize: cfg.ChunkSize})
	searchSvc := search.NewService(index, embedder, logger)

	return &pipeline{
		pool:      pool,
		docs:      docs,
		index:     index,
		files:     files,
		ingestSvc: ingestSvc,
		searchSvc: searchSvc,
	}, nil
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.HTTPAddr, "HTTP listen address")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("pipeline setup: %v", err)
	}
	defer p.pool.Close()

	server := &http.Server{
		Addr:    *addr,
		Handler: api.New(p.ingestSvc, p.searchSvc, p.docs, p.files, logger),
	}

	go func() {
		<-ctx.Done()
		logger.Println("shutting down HTTP server")
		_ = server.Shutdown(context.Background())
	}()

	logger.Printf("listening on %s (%s/%s embeddings, %s image strategy)",
		*addr, cfg.Embeddings.Provider, cfg.Embeddings.Model, cfg.ImageStrategy)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("http server: %v", err)
	}
}

func ingestCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("ingest", flag.ExitOnError)
	file := flags.String("file", "", "path to the document to ingest")
	title := flags.String("title", "", "optional document title")
	description := flags.String("description", "", "optional document description")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse ingest flags: %v", err)
	}
	if *file == "" {
		logger.Fatal("ingest requires -file")
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		logger.Fatalf("read %s: %v", *file, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("pipeline setup: %v", err)
	}
	defer p.pool.Close()

	contentType := mime.TypeByExtension(filepath.Ext(*file))
	doc, err := p.ingestSvc.Ingest(ctx, ingestion.Upload{
		Data:        data,
		Filename:    filepath.Base(*file),
		Title:       *title,
		Description: *description,
		ContentType: contentType,
	})
	if err != nil {
		logger.Fatalf("ingestion failed: %v", err)
	}

	logger.Printf("document %s: status=%s pages=%d", doc.ID, doc.Status, doc.PageCount)
}

func searchCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("search", flag.ExitOnError)
	query := flags.String("query", "", "search query")
	limit := flags.Int("limit", 5, "number of chunks to return")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse search flags: %v", err)
	}
	if *query == "" {
		logger.Fatal("search requires -query")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := newPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("pipeline setup: %v", err)
	}
	defer p.pool.Close()

	matches, err := p.searchSvc.Search(ctx, *query, *limit)
	if err != nil {
		logger.Fatalf("search failed: %v", err)
	}

	for i, m := range matches {
		fmt.Printf("%d. %s (page %d, chunk %d, score %.3f)\n", i+1, m.Title, m.PageNumber, m.ChunkSequence, m.Score)
		snippet := m.Content
		if len(snippet) > 200 {
			snippet = snippet[:200] + "..."
		}
		fmt.Printf("   %s\n", snippet)
	}
}

func printUsage() {
	fmt.Println("Usage: docpipe <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    start the HTTP API")
	fmt.Println("  ingest   ingest a single document from disk")
	fmt.Println("  search   run a similarity query against ingested chunks")
}
