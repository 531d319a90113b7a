package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cbitforge/forge/internal/config"
	"github.com/cbitforge/forge/internal/db"
	"github.com/cbitforge/forge/internal/embeddings"
	"github.com/cbitforge/forge/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `forge init` to create a config file", err)
	}
	return cfg, nil
}

// openDatabase opens the sqlite database under the data directory.
func openDatabase(cfg *config.Config) (*db.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return db.Open(filepath.Join(cfg.DataDir, "forge.db"))
}

// openVectorStore creates a chromem store and loads any persisted
// collections. A missing snapshot is not an error; the store starts
// empty until `forge ingest` runs.
func openVectorStore(cfg *config.Config, embedder embeddings.Embedder) *vectordb.ChromemStore {
	store := vectordb.NewChromemStore(embedder)
	dir := vectorDir(cfg)
	if _, err := os.Stat(filepath.Join(dir, "chromem.gob.gz")); err == nil {
		if err := store.Load(context.Background(), dir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load vector store from %s: %v\n", dir, err)
		}
	}
	return store
}

// persistVectorStore writes the store snapshot under the data directory.
func persistVectorStore(cfg *config.Config, store *vectordb.ChromemStore) error {
	dir := vectorDir(cfg)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating vector dir: %w", err)
	}
	return store.Persist(context.Background(), dir)
}

func vectorDir(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "vectordb")
}
