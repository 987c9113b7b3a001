package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/docsource"
	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/provider"
	"ragchat/internal/service"
	"ragchat/internal/tui"
	"ragchat/internal/vectorstore"
	"ragchat/internal/vectorstore/qdrant"
	"ragchat/internal/vectorstore/sqlite"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/ragchat/config.yaml if not provided)")
	flag.Parse()
	if flag.NArg() > 1 {
		fmt.Println("Usage: ragchat [--config=config.yaml] [document.pdf|document.txt]")
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

	store, err := buildStore(cfg)
	if err != nil {
		log.Fatalf("failed to open vector store: %v", err)
	}

	var doc *domain.Document
	if flag.NArg() == 1 {
		d, err := docsource.ReadDocument(flag.Arg(0))
		if err != nil {
			log.Fatalf("failed to read document: %v", err)
		}
		doc = &d
	}

	factory := func(backend string, grounded bool) (*service.Service, error) {
		chatProv, err := provider.New(backend, providerConfig(cfg, backend))
		if err != nil {
			return nil, err
		}
		embProv := chatProv
		if grounded && backend != cfg.EmbeddingBackend {
			embProv, err = provider.New(cfg.EmbeddingBackend, providerConfig(cfg, cfg.EmbeddingBackend))
			if err != nil {
				return nil, err
			}
		}
		return service.New(ch, embProv, chatProv, store, service.Options{
			Table: cfg.Store.Table,
			Dims:  cfg.Retrieval.Dims,
			Limit: cfg.Retrieval.Limit,
		}, zlog)
	}

	m := tui.New(factory, doc)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}

func buildStore(cfg *config.AppConfig) (vectorstore.Store, error) {
	switch cfg.Store.Type {
	case "sqlite", "":
		if cfg.Store.Sqlite == nil {
			return nil, fmt.Errorf("sqlite store config missing")
		}
		return sqlite.Open(cfg.Store.Sqlite.Path)
	case "qdrant":
		if cfg.Store.Qdrant == nil {
			return nil, fmt.Errorf("qdrant store config missing")
		}
		return qdrant.New(qdrant.Config{
			URL:     cfg.Store.Qdrant.URL,
			APIKey:  cfg.Store.Qdrant.APIKey,
			Timeout: time.Duration(cfg.Store.Qdrant.TimeoutSecs) * time.Second,
		}), nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Store.Type)
	}
}

func providerConfig(cfg *config.AppConfig, backend string) provider.Config {
	p := cfg.Providers[backend]
	return provider.Config{
		APIKeyEnv:      p.APIKeyEnv,
		Model:          p.Model,
		EmbeddingModel: p.EmbeddingModel,
		BaseURL:        p.BaseURL,
		Timeout:        time.Duration(p.TimeoutSecs) * time.Second,
	}
}
