package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/herdwise/livestock-agent/index"
	"github.com/herdwise/livestock-agent/retrieval"
)

type stubEmbedder struct {
	vectors [][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.vectors == nil {
		out := make([][]float32, len(texts))
		for i := range out {
			out[i] = []float32{0.1, 0.2, 0.3}
		}
		return out, nil
	}
	return s.vectors, nil
}

type stubIndex struct {
	matches   []index.ChunkMatch
	count     int64
	searchErr error
	countErr  error
}

func (s *stubIndex) Search(_ context.Context, _ []float32, _ int) ([]index.ChunkMatch, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.matches, nil
}

func (s *stubIndex) Count(_ context.Context) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.count, nil
}

var _ index.Index = (*stubIndex)(nil)

func match(id string, score float64) index.ChunkMatch {
	return index.ChunkMatch{ChunkID: id, Source: "guide.pdf", Content: "content " + id, Score: score}
}

func TestRetrieveFiltersAndSortsByScore(t *testing.T) {
	idx := &stubIndex{
		count: 10,
		matches: []index.ChunkMatch{
			match("a", 0.5),
			match("b", 0.9),
			match("c", 0.3),
			match("d", 0.41),
		},
	}
	r := retrieval.NewRetriever(&stubEmbedder{}, idx, 1, zerolog.Nop())

	evidence, err := r.Retrieve(context.Background(), "cattle fever", 5, 0.4)
	require.NoError(t, err)

	require.Len(t, evidence, 3, "candidates below threshold must be dropped")
	for i := range evidence {
		require.GreaterOrEqual(t, evidence[i].Score, 0.4)
		if i > 0 {
			require.GreaterOrEqual(t, evidence[i-1].Score, evidence[i].Score, "evidence must be sorted descending")
		}
	}
	require.Equal(t, "b", evidence[0].ChunkID)
}

func TestRetrieveEmptyResultIsNotAnError(t *testing.T) {
	idx := &stubIndex{count: 10, matches: []index.ChunkMatch{match("a", 0.1)}}
	r := retrieval.NewRetriever(&stubEmbedder{}, idx, 1, zerolog.Nop())

	evidence, err := r.Retrieve(context.Background(), "unrelated question", 5, 0.4)
	require.NoError(t, err, "nothing relevant found is a valid outcome")
	require.Empty(t, evidence)
}

func TestRetrieveSignalsIndexNotReady(t *testing.T) {
	r := retrieval.NewRetriever(&stubEmbedder{}, &stubIndex{count: 0}, 1, zerolog.Nop())

	_, err := r.Retrieve(context.Background(), "cattle fever", 5, 0.4)
	require.ErrorIs(t, err, retrieval.ErrIndexNotReady)
}

func TestRetrieveWrapsEmbeddingFailure(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("connection refused")}
	r := retrieval.NewRetriever(embedder, &stubIndex{count: 10}, 1, zerolog.Nop())

	_, err := r.Retrieve(context.Background(), "cattle fever", 5, 0.4)

	var unavailable *retrieval.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, "embed query", unavailable.Op)
	require.NotErrorIs(t, err, retrieval.ErrIndexNotReady)
}

func TestRetrieveWrapsSearchFailure(t *testing.T) {
	idx := &stubIndex{count: 10, searchErr: errors.New("db gone")}
	r := retrieval.NewRetriever(&stubEmbedder{}, idx, 1, zerolog.Nop())

	_, err := r.Retrieve(context.Background(), "cattle fever", 5, 0.4)

	var unavailable *retrieval.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, "similarity search", unavailable.Op)
}

func TestRetrieveRetriesTransientEmbedFailures(t *testing.T) {
	embedder := &stubEmbedder{err: errors.New("flaky")}
	r := retrieval.NewRetriever(embedder, &stubIndex{count: 10}, 3, zerolog.Nop())

	_, err := r.Retrieve(context.Background(), "cattle fever", 5, 0.4)
	require.Error(t, err)
	require.Equal(t, 3, embedder.calls, "embed should be attempted up to the retry budget")
}

func TestRetrieveValidatesInputs(t *testing.T) {
	r := retrieval.NewRetriever(&stubEmbedder{}, &stubIndex{count: 10}, 1, zerolog.Nop())

	_, err := r.Retrieve(context.Background(), "q", 0, 0.4)
	require.Error(t, err)

	_, err = r.Retrieve(context.Background(), "q", 5, 1.5)
	require.Error(t, err)

	_, err = r.Retrieve(context.Background(), "q", 5, -0.1)
	require.Error(t, err)
}
