package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/docsource"
	"ragchat/internal/logger"
	"ragchat/internal/provider"
	"ragchat/internal/service"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/qdrant"
	"ragchat/internal/vectorstore/sqlite"
)

// ragchat-index embeds a document into the vector store without
// starting an interactive session. Useful for pre-building the store
// on a schedule or in CI.
func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Println("Usage: ragchat-index [--config=config.yaml] document.pdf|document.txt")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New()
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ch, err := chunker.New(cfg.Chunker.ChunkSize, cfg.Chunker.Overlap)
	if err != nil {
		log.Fatalf("invalid chunker config: %v", err)
	}

	var store vectorstore.Store
	switch cfg.Store.Type {
	case "sqlite", "":
		if cfg.Store.Sqlite == nil {
			log.Fatalf("sqlite store config missing")
		}
		store, err = sqlite.Open(cfg.Store.Sqlite.Path)
		if err != nil {
			log.Fatalf("failed to open vector store: %v", err)
		}
	case "qdrant":
		if cfg.Store.Qdrant == nil {
			log.Fatalf("qdrant store config missing")
		}
		store = qdrant.New(qdrant.Config{
			URL:     cfg.Store.Qdrant.URL,
			APIKey:  cfg.Store.Qdrant.APIKey,
			Timeout: time.Duration(cfg.Store.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		log.Fatalf("unknown vector store: %s", cfg.Store.Type)
	}

	doc, err := docsource.ReadDocument(flag.Arg(0))
	if err != nil {
		log.Fatalf("failed to read document: %v", err)
	}

	pcfg := cfg.Providers[cfg.EmbeddingBackend]
	emb, err := provider.New(cfg.EmbeddingBackend, provider.Config{
		APIKeyEnv:      pcfg.APIKeyEnv,
		Model:          pcfg.Model,
		EmbeddingModel: pcfg.EmbeddingModel,
		BaseURL:        pcfg.BaseURL,
		Timeout:        time.Duration(pcfg.TimeoutSecs) * time.Second,
	})
	if err != nil {
		log.Fatalf("failed to build embedding provider: %v", err)
	}

	svc, err := service.New(ch, emb, emb, store, service.Options{
		Table: cfg.Store.Table,
		Dims:  cfg.Retrieval.Dims,
		Limit: cfg.Retrieval.Limit,
	}, zlog)
	if err != nil {
		log.Fatalf("failed to assemble pipeline: %v", err)
	}

	start := time.Now()
	n, err := svc.Index(context.Background(), doc)
	if err != nil {
		log.Fatalf("indexing failed: %v", err)
	}
	fmt.Printf("Indexed %q: %d chunks into table %s (%s)\n",
		doc.Title, n, cfg.Store.Table, time.Since(start).Round(time.Millisecond))
}
