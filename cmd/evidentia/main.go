// Command evidentia runs the tenant-isolated evidence search service:
// ingestion pipeline, retrieval, grounded answers and the surfaces that
// expose them (CLI, HTTP API, MCP server, terminal monitor).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/evidentia-labs/evidentia/internal/adapters/driven/embedding/ollama"
	embeddingopenai "github.com/evidentia-labs/evidentia/internal/adapters/driven/embedding/openai"
	generationopenai "github.com/evidentia-labs/evidentia/internal/adapters/driven/generation/openai"
	"github.com/evidentia-labs/evidentia/internal/adapters/driven/objectstore/fsblob"
	"github.com/evidentia-labs/evidentia/internal/adapters/driven/objectstore/minio"
	"github.com/evidentia-labs/evidentia/internal/adapters/driven/storage/sqlite"
	"github.com/evidentia-labs/evidentia/internal/adapters/driven/vectorindex/memory"
	"github.com/evidentia-labs/evidentia/internal/adapters/driven/vectorindex/qdrant"
	"github.com/evidentia-labs/evidentia/internal/adapters/driving/cli"
	"github.com/evidentia-labs/evidentia/internal/cache"
	"github.com/evidentia-labs/evidentia/internal/config"
	"github.com/evidentia-labs/evidentia/internal/core/ports/driven"
	"github.com/evidentia-labs/evidentia/internal/core/services"
	"github.com/evidentia-labs/evidentia/internal/normalisers"
	"github.com/evidentia-labs/evidentia/internal/normalisers/docx"
	"github.com/evidentia-labs/evidentia/internal/normalisers/eml"
	"github.com/evidentia-labs/evidentia/internal/normalisers/html"
	"github.com/evidentia-labs/evidentia/internal/normalisers/ics"
	"github.com/evidentia-labs/evidentia/internal/normalisers/markdown"
	"github.com/evidentia-labs/evidentia/internal/normalisers/pdf"
	"github.com/evidentia-labs/evidentia/internal/normalisers/plaintext"
	"github.com/evidentia-labs/evidentia/internal/postprocessors/chunker"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, cfgPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx := context.Background()

	store, err := sqlite.NewStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close() //nolint:errcheck

	objects, err := buildObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("building object store: %w", err)
	}

	vectors, err := buildVectorIndex(cfg)
	if err != nil {
		return fmt.Errorf("building vector index: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("building embedding service: %w", err)
	}
	defer embedder.Close() //nolint:errcheck

	registry := buildNormalisers()

	chunks := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)

	ingestor := services.NewIngestor(
		store.DocumentStore(),
		store.StatusStore(),
		objects,
		registry,
		chunks,
		embedder,
		vectors,
		services.IngestorConfig{
			QueueSize: cfg.Ingest.QueueSize,
			Workers:   cfg.Ingest.Workers,
		},
	)

	searcher := services.NewSearcher(
		store.DocumentStore(),
		store.LexicalIndex(),
		vectors,
		embedder,
		cache.New(0, 0),
		services.SearcherConfig{
			TopK:          cfg.Search.DefaultTopK,
			LexicalWeight: cfg.Search.LexicalWeight,
		},
	)

	var generator driven.GenerationService
	if cfg.Generation.Enabled {
		generator, err = generationopenai.NewGenerationService(generationopenai.Config{
			APIKey:    cfg.Generation.ResolveAPIKey(),
			BaseURL:   cfg.Generation.BaseURL,
			Model:     cfg.Generation.Model,
			Timeout:   time.Duration(cfg.Generation.TimeoutSecs) * time.Second,
			MaxTokens: cfg.Generation.MaxTokens,
		})
		if err != nil {
			return fmt.Errorf("building generation service: %w", err)
		}
	}

	answerer := services.NewAnswerer(searcher, generator, services.AnswererConfig{})

	documents := services.NewDocumentService(
		store.DocumentStore(),
		store.StatusStore(),
		objects,
		vectors,
	)

	// Every surface that ingests relies on the worker pool, so it runs
	// for the whole process lifetime.
	if err := ingestor.Start(ctx); err != nil {
		return fmt.Errorf("starting ingestion pipeline: %w", err)
	}
	defer ingestor.Stop() //nolint:errcheck

	cli.SetVersion(version)
	cli.SetConfig(cfg, cfgPath)
	cli.SetServices(cli.Services{
		Ingest:    ingestor,
		Search:    searcher,
		Answer:    answerer,
		Documents: documents,
	})

	return cli.Execute()
}

// loadConfig honours EVIDENTIA_CONFIG before the default path.
func loadConfig() (*config.Config, string, error) {
	if path := os.Getenv("EVIDENTIA_CONFIG"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}
	return config.LoadDefault()
}

func buildObjectStore(ctx context.Context, cfg *config.Config) (driven.ObjectStore, error) {
	switch cfg.Storage.BlobBackend {
	case "minio":
		return minio.New(ctx, minio.Config{
			Endpoint:  cfg.Storage.Minio.Endpoint,
			AccessKey: cfg.Storage.Minio.ResolveAccessKey(),
			SecretKey: cfg.Storage.Minio.ResolveSecretKey(),
			Bucket:    cfg.Storage.Minio.Bucket,
			UseSSL:    cfg.Storage.Minio.UseSSL,
		})
	default:
		return fsblob.New(cfg.Storage.BlobDir)
	}
}

func buildVectorIndex(cfg *config.Config) (driven.VectorIndex, error) {
	switch cfg.Vector.Backend {
	case "qdrant":
		return qdrant.New(qdrant.Config{
			URL:        cfg.Vector.Qdrant.URL,
			APIKey:     cfg.Vector.Qdrant.ResolveAPIKey(),
			Collection: cfg.Vector.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Vector.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return memory.NewIndex(), nil
	}
}

func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	if cfg.Embedding.Provider == "ollama" {
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Timeout:    time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	}

	return embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
		APIKey:            cfg.Embedding.ResolveAPIKey(),
		BaseURL:           cfg.Embedding.BaseURL,
		Model:             cfg.Embedding.Model,
		Timeout:           time.Duration(cfg.Embedding.TimeoutSecs) * time.Second,
		Dimensions:        cfg.Embedding.Dimensions,
		BatchSize:         cfg.Embedding.BatchSize,
		OAuthTokenURL:     cfg.Embedding.OAuthTokenURL,
		OAuthClientID:     cfg.Embedding.OAuthClientID,
		OAuthClientSecret: cfg.Embedding.OAuthClientSecret,
		OAuthScopes:       cfg.Embedding.OAuthClientScopes,
	})
}

// buildNormalisers registers one normaliser per supported evidence
// format. Registration order is the tie-break when MIME types overlap.
func buildNormalisers() *normalisers.Registry {
	registry := normalisers.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(markdown.New())
	registry.Register(html.New())
	registry.Register(pdf.New())
	registry.Register(docx.New())
	registry.Register(eml.New())
	registry.Register(ics.New())
	return registry
}
