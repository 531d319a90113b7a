package vectordb

import "context"

// VectorStore stores and searches document chunks grouped into named
// collections, one collection per knowledge base.
type VectorStore interface {
	// AddDocuments adds or updates documents in the named collection.
	AddDocuments(ctx context.Context, collection string, docs []Document) error

	// Search performs a semantic search in the named collection.
	Search(ctx context.Context, collection string, query string, limit int) ([]SearchResult, error)

	// DeleteByDocumentID removes all chunks of a document from the collection.
	DeleteByDocumentID(ctx context.Context, collection string, documentID string) error

	// DeleteCollection removes a collection and all its documents.
	DeleteCollection(collection string) error

	// Persist saves the store's data to the given directory.
	Persist(ctx context.Context, dir string) error

	// Load restores the store's data from the given directory.
	Load(ctx context.Context, dir string) error

	// Count returns the number of documents in the named collection.
	Count(collection string) int
}
