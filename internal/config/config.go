package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ProviderConfig configures one chat/embedding backend. API keys are
// read from the named environment variable, never stored here.
type ProviderConfig struct {
	APIKeyEnv      string `yaml:"api_key_env"`
	Model          string `yaml:"model"`
	EmbeddingModel string `yaml:"embedding_model,omitempty"`
	BaseURL        string `yaml:"base_url,omitempty"`
	TimeoutSecs    int    `yaml:"timeout_secs,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// SqliteConfig locates the file-backed vector store.
type SqliteConfig struct {
	Path string `yaml:"path"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty"`
}

// StoreConfig selects and configures the vector store implementation.
type StoreConfig struct {
	Type   string        `yaml:"type"`
	Table  string        `yaml:"table"`
	Sqlite *SqliteConfig `yaml:"sqlite,omitempty"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// RetrievalConfig configures the query phase of RAG sessions.
type RetrievalConfig struct {
	Limit int `yaml:"limit"`
	Dims  int `yaml:"dims"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	// EmbeddingBackend names the provider used for embeddings in RAG
	// mode; the chat backend is chosen interactively per session.
	EmbeddingBackend string                    `yaml:"embedding_backend"`
	Providers        map[string]ProviderConfig `yaml:"providers"`
	Chunker          ChunkerConfig             `yaml:"chunker"`
	Store            StoreConfig               `yaml:"store"`
	Retrieval        RetrievalConfig           `yaml:"retrieval"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/ragchat/config.yaml.
// If neither exists, it writes defaults to ~/.config/ragchat/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ragchat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		EmbeddingBackend: "openai",
		Providers: map[string]ProviderConfig{
			"openai": {
				APIKeyEnv:      "OPENAI_API_KEY",
				Model:          "gpt-4o",
				EmbeddingModel: "text-embedding-3-small",
			},
			"gemini": {
				APIKeyEnv: "GEMINI_API_KEY",
				Model:     "gemini-2.5-flash-lite",
			},
			"groq": {
				APIKeyEnv: "GROQ_API_KEY",
				Model:     "llama-3.3-70b-versatile",
			},
		},
		Chunker: ChunkerConfig{ChunkSize: 1000, Overlap: 50},
		Store: StoreConfig{
			Type:   "sqlite",
			Table:  "docs_embeddings",
			Sqlite: &SqliteConfig{Path: "ragchat.db"},
		},
		Retrieval: RetrievalConfig{Limit: 10, Dims: 1536},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.EmbeddingBackend == "" {
		cfg.EmbeddingBackend = def.EmbeddingBackend
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	for name, defp := range def.Providers {
		p, ok := cfg.Providers[name]
		if !ok {
			cfg.Providers[name] = defp
			continue
		}
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = defp.APIKeyEnv
		}
		if p.Model == "" {
			p.Model = defp.Model
		}
		if p.EmbeddingModel == "" {
			p.EmbeddingModel = defp.EmbeddingModel
		}
		cfg.Providers[name] = p
	}
	if cfg.Chunker.ChunkSize == 0 {
		cfg.Chunker = def.Chunker
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = def.Store.Type
	}
	if cfg.Store.Table == "" {
		cfg.Store.Table = def.Store.Table
	}
	if cfg.Store.Type == "sqlite" && cfg.Store.Sqlite == nil {
		cfg.Store.Sqlite = def.Store.Sqlite
	}
	if cfg.Retrieval.Limit == 0 {
		cfg.Retrieval.Limit = def.Retrieval.Limit
	}
	if cfg.Retrieval.Dims == 0 {
		cfg.Retrieval.Dims = def.Retrieval.Dims
	}
}
