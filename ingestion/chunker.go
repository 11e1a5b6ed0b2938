package ingestion

import "strings"

// ChunkText splits text into overlapping windows of roughly size bytes,
// preferring sentence boundaries. The Bengali danda is treated as a sentence
// end alongside the Latin full stop because the source corpus mixes both
// scripts.
func ChunkText(text string, size, overlap int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if size <= 0 || len(text) <= size {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	chunks := make([]string, 0, len(text)/size+1)
	start := 0

	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunk := strings.TrimSpace(text[start:])
			if chunk != "" {
				chunks = append(chunks, chunk)
			}
			break
		}

		split := splitPoint(text, start, end)
		chunk := strings.TrimSpace(text[start:split])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := split - overlap
		if next <= start {
			next = split
		}
		start = next
	}

	return chunks
}

func splitPoint(text string, start, end int) int {
	for _, boundary := range []string{". ", "। ", " "} {
		if idx := strings.LastIndex(text[start:end], boundary); idx != -1 {
			candidate := start + idx + len(boundary)
			// Reject boundaries that would make the chunk degenerate.
			if candidate > start+(end-start)*7/10 {
				return candidate
			}
		}
	}
	return end
}
