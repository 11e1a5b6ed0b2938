package ingestion_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/herdwise/livestock-agent/ingestion"
)

func TestChunkTextShortInputIsSingleChunk(t *testing.T) {
	chunks := ingestion.ChunkText("Cattle need clean water daily.", 800, 100)
	require.Equal(t, []string{"Cattle need clean water daily."}, chunks)
}

func TestChunkTextEmptyInput(t *testing.T) {
	require.Nil(t, ingestion.ChunkText("   ", 800, 100))
}

func TestChunkTextSplitsAtSentenceBoundaries(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("Goats require balanced minerals in their feed. ", 40))

	chunks := ingestion.ChunkText(text, 200, 0)
	require.Greater(t, len(chunks), 1)

	for _, chunk := range chunks {
		require.NotEmpty(t, chunk)
		require.LessOrEqual(t, len(chunk), 200)
	}

	// Sentence-boundary preference means chunks should start cleanly.
	require.True(t, strings.HasPrefix(chunks[1], "Goats"))
}

func TestChunkTextOverlapCarriesContext(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("Poultry housing must stay dry and ventilated. ", 40))

	withOverlap := ingestion.ChunkText(text, 200, 100)
	withoutOverlap := ingestion.ChunkText(text, 200, 0)

	require.GreaterOrEqual(t, len(withOverlap), len(withoutOverlap))
}

func TestChunkTextHandlesBengaliSentenceEnds(t *testing.T) {
	sentence := "গবাদি পশুর যত্ন নেওয়া জরুরি। "
	text := strings.TrimSpace(strings.Repeat(sentence, 30))

	chunks := ingestion.ChunkText(text, 200, 0)
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.NotEmpty(t, chunk)
	}
}
