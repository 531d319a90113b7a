package vectordb

import (
	"context"
	"fmt"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/cbitforge/forge/internal/embeddings"
)

// ChromemStore implements VectorStore using chromem-go, with one chromem
// collection per knowledge base.
type ChromemStore struct {
	mu        sync.Mutex
	db        *chromem.DB
	embedder  embeddings.Embedder
	embedFunc chromem.EmbeddingFunc
}

// NewChromemStore creates a new in-memory ChromemStore.
func NewChromemStore(embedder embeddings.Embedder) *ChromemStore {
	return &ChromemStore{
		db:        chromem.NewDB(),
		embedder:  embedder,
		embedFunc: embeddings.ToChromemFunc(embedder),
	}
}

func (s *ChromemStore) getOrCreate(name string) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, err := s.db.GetOrCreateCollection(name, nil, s.embedFunc)
	if err != nil {
		return nil, fmt.Errorf("collection %q: %w", name, err)
	}
	return col, nil
}

func (s *ChromemStore) AddDocuments(ctx context.Context, collection string, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	col, err := s.getOrCreate(collection)
	if err != nil {
		return err
	}

	chromDocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		chromDocs[i] = chromem.Document{
			ID:       doc.ID,
			Content:  doc.Content,
			Metadata: metadataToMap(doc.Metadata),
		}
	}
	return col.AddDocuments(ctx, chromDocs, 1)
}

func (s *ChromemStore) Search(ctx context.Context, collection string, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	col, err := s.getOrCreate(collection)
	if err != nil {
		return nil, err
	}

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = SearchResult{
			Document: Document{
				ID:       r.ID,
				Content:  r.Content,
				Metadata: mapToMetadata(r.Metadata),
			},
			Similarity: r.Similarity,
		}
	}
	return searchResults, nil
}

func (s *ChromemStore) DeleteByDocumentID(ctx context.Context, collection string, documentID string) error {
	col, err := s.getOrCreate(collection)
	if err != nil {
		return err
	}
	if col.Count() == 0 {
		return nil
	}
	return col.Delete(ctx, map[string]string{"document_id": documentID}, nil)
}

func (s *ChromemStore) DeleteCollection(collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.DeleteCollection(collection)
}

func (s *ChromemStore) Persist(ctx context.Context, dir string) error {
	return s.db.ExportToFile(dir+"/chromem.gob.gz", true, "")
}

func (s *ChromemStore) Load(ctx context.Context, dir string) error {
	if err := s.db.ImportFromFile(dir+"/chromem.gob.gz", ""); err != nil {
		return fmt.Errorf("import from file: %w", err)
	}
	return nil
}

func (s *ChromemStore) Count(collection string) int {
	col := s.db.GetCollection(collection, s.embedFunc)
	if col == nil {
		return 0
	}
	return col.Count()
}

func metadataToMap(m DocumentMetadata) map[string]string {
	return map[string]string{
		"document_id":  m.DocumentID,
		"chunk_id":     m.ChunkID,
		"title":        m.Title,
		"source_path":  m.SourcePath,
		"content_hash": m.ContentHash,
		"last_updated": m.LastUpdated.Format(time.RFC3339),
	}
}

func mapToMetadata(m map[string]string) DocumentMetadata {
	lastUpdated, _ := time.Parse(time.RFC3339, m["last_updated"])
	return DocumentMetadata{
		DocumentID:  m["document_id"],
		ChunkID:     m["chunk_id"],
		Title:       m["title"],
		SourcePath:  m["source_path"],
		ContentHash: m["content_hash"],
		LastUpdated: lastUpdated,
	}
}
