// Package retrieval turns a query into ranked evidence from the similarity
// index.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/herdwise/livestock-agent/embeddings"
	"github.com/herdwise/livestock-agent/index"
	"github.com/herdwise/livestock-agent/retry"
)

// ErrIndexNotReady signals that the knowledge base has not been built yet.
// It is distinct from an empty retrieval result, which is a valid "nothing
// relevant found" outcome.
var ErrIndexNotReady = errors.New("similarity index is empty")

// UnavailableError wraps a failed embedding or search call after the retry
// budget is spent.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("retrieval unavailable (%s): %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Evidence is the ranked set of chunks retrieved for one query, sorted by
// descending score. Every entry meets the similarity threshold it was
// retrieved with. It is transient and scoped to a single turn.
type Evidence []index.ChunkMatch

type Retriever struct {
	embedder embeddings.Embedder
	idx      index.Index
	attempts uint64
	logger   zerolog.Logger
}

func NewRetriever(embedder embeddings.Embedder, idx index.Index, attempts uint64, logger zerolog.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		idx:      idx,
		attempts: attempts,
		logger:   logger,
	}
}

// Retrieve embeds the query, searches the index for up to topK candidates
// and drops everything below threshold. An empty result is a successful
// outcome; failures after bounded retries surface as *UnavailableError, and
// an unbuilt index as ErrIndexNotReady.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, threshold float64) (Evidence, error) {
	if topK < 1 {
		return nil, fmt.Errorf("topK must be at least 1, got %d", topK)
	}
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold must be in [0,1], got %g", threshold)
	}

	var count int64
	if err := retry.Do(ctx, r.attempts, func() error {
		var countErr error
		count, countErr = r.idx.Count(ctx)
		return countErr
	}); err != nil {
		return nil, &UnavailableError{Op: "index count", Err: err}
	}
	if count == 0 {
		return nil, ErrIndexNotReady
	}

	var vectors [][]float32
	if err := retry.Do(ctx, r.attempts, func() error {
		var embedErr error
		vectors, embedErr = r.embedder.Embed(ctx, []string{query})
		return embedErr
	}); err != nil {
		return nil, &UnavailableError{Op: "embed query", Err: err}
	}
	if len(vectors) == 0 {
		return nil, &UnavailableError{Op: "embed query", Err: errors.New("embedder returned no vectors")}
	}

	var candidates []index.ChunkMatch
	if err := retry.Do(ctx, r.attempts, func() error {
		var searchErr error
		candidates, searchErr = r.idx.Search(ctx, vectors[0], topK)
		return searchErr
	}); err != nil {
		return nil, &UnavailableError{Op: "similarity search", Err: err}
	}

	evidence := make(Evidence, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Score >= threshold {
			evidence = append(evidence, candidate)
		}
	}

	sort.SliceStable(evidence, func(i, j int) bool {
		return evidence[i].Score > evidence[j].Score
	})

	r.trace(query, evidence)

	return evidence, nil
}

// trace is observability only; the debug level keeps it silent in production.
func (r *Retriever) trace(query string, evidence Evidence) {
	event := r.logger.Debug()
	if !event.Enabled() {
		return
	}

	scores := zerolog.Arr()
	for _, item := range evidence {
		scores.Dict(zerolog.Dict().
			Str("source", item.Source).
			Str("page", item.Page).
			Float64("score", item.Score))
	}
	event.Str("query", query).Int("survivors", len(evidence)).Array("candidates", scores).Msg("retrieval trace")
}
