// Package index exposes nearest-neighbor lookup over the precomputed
// document-chunk embeddings. The index is built offline by ingestion and is
// read-only at serving time, so implementations must be safe for concurrent
// readers.
package index

import "context"

// ChunkMatch is one nearest-neighbor candidate. Score is cosine similarity
// normalized to [0,1], higher is closer.
type ChunkMatch struct {
	ChunkID string
	Source  string
	Title   string
	Header  string
	Page    string
	Content string
	Score   float64
}

type Index interface {
	// Search returns up to topK candidates ordered by descending score.
	Search(ctx context.Context, embedding []float32, topK int) ([]ChunkMatch, error)
	// Count reports the number of indexed chunks; zero means the knowledge
	// base has not been built yet.
	Count(ctx context.Context) (int64, error)
}
