package vectordb

import "time"

// Document is one chunk of knowledge-base content.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata holds structured information about a chunk.
type DocumentMetadata struct {
	DocumentID  string
	ChunkID     string
	Title       string
	SourcePath  string
	ContentHash string
	LastUpdated time.Time
}

// SearchResult pairs a document with its raw similarity score.
type SearchResult struct {
	Document   Document
	Similarity float32
}
