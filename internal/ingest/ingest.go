package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cbitforge/forge/internal/config"
	"github.com/cbitforge/forge/internal/vectordb"
)

// Stats summarizes an ingestion run.
type Stats struct {
	Files   int
	Chunks  int
	Skipped int
}

// Ingester walks a directory tree and loads its documents into a
// vector-store collection.
type Ingester struct {
	store    vectordb.VectorStore
	cfg      config.IngestConfig
	reporter Reporter
	logger   *log.Logger
}

// NewIngester builds an Ingester over the given store. A nil reporter
// disables progress output.
func NewIngester(store vectordb.VectorStore, cfg config.IngestConfig, reporter Reporter) *Ingester {
	if reporter == nil {
		reporter = silentReporter{}
	}
	return &Ingester{
		store:    store,
		cfg:      cfg,
		reporter: reporter,
		logger:   log.New(os.Stderr, "[ingest] ", log.LstdFlags),
	}
}

// Ingest walks root, chunks every matching file and writes the chunks
// into collection. Files that fail to read or embed are skipped with a
// warning rather than aborting the run.
func (in *Ingester) Ingest(ctx context.Context, root, collection string) (Stats, error) {
	files, err := CollectFiles(root, in.cfg.Include, in.cfg.Exclude)
	if err != nil {
		return Stats{}, fmt.Errorf("collecting files under %s: %w", root, err)
	}
	if len(files) == 0 {
		return Stats{}, fmt.Errorf("no files matched under %s", root)
	}

	in.reporter.Start(len(files))
	defer in.reporter.Finish()

	var stats Stats
	for i, rel := range files {
		in.reporter.Update(i+1, rel)

		docs, err := in.fileDocuments(root, rel)
		if err != nil {
			in.logger.Printf("skipping %s: %v", rel, err)
			stats.Skipped++
			continue
		}
		if len(docs) == 0 {
			stats.Skipped++
			continue
		}
		if err := in.store.AddDocuments(ctx, collection, docs); err != nil {
			in.logger.Printf("skipping %s: %v", rel, err)
			stats.Skipped++
			continue
		}
		stats.Files++
		stats.Chunks += len(docs)
	}

	if stats.Files == 0 {
		return stats, fmt.Errorf("all %d files failed to ingest", len(files))
	}
	return stats, nil
}

// fileDocuments reads one file and converts it into chunk documents.
func (in *Ingester) fileDocuments(root, rel string) ([]vectordb.Document, error) {
	raw, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return nil, err
	}

	text := string(raw)
	title := titleFromPath(rel)
	if strings.EqualFold(filepath.Ext(rel), ".md") {
		plain, h1 := ExtractMarkdown(raw)
		text = plain
		if h1 != "" {
			title = h1
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	hash := sha256.Sum256(raw)
	contentHash := hex.EncodeToString(hash[:])
	now := time.Now().UTC()
	docID := filepath.ToSlash(rel)

	chunks := ChunkText(text, in.cfg.ChunkSize, in.cfg.ChunkOverlap)
	docs := make([]vectordb.Document, 0, len(chunks))
	for i, chunk := range chunks {
		docs = append(docs, vectordb.Document{
			ID:      docID + "#" + strconv.Itoa(i),
			Content: chunk,
			Metadata: vectordb.DocumentMetadata{
				DocumentID:  docID,
				ChunkID:     strconv.Itoa(i),
				Title:       title,
				SourcePath:  docID,
				ContentHash: contentHash,
				LastUpdated: now,
			},
		})
	}
	return docs, nil
}

// titleFromPath derives a fallback title from the file name.
func titleFromPath(rel string) string {
	base := filepath.Base(rel)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.ReplaceAll(base, "-", " ")
	base = strings.ReplaceAll(base, "_", " ")
	return strings.TrimSpace(base)
}
