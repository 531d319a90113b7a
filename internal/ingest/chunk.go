package ingest

import "strings"

// ChunkText splits text into chunks of roughly size runes with overlap
// runes carried between neighbours. Breaks prefer paragraph, then line,
// then word boundaries near the target size.
func ChunkText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 1200
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		return []string{string(runes)}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}
		end = breakPoint(runes, start, end)
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint scans backwards from end for a natural boundary, giving up
// after a quarter of the chunk.
func breakPoint(runes []rune, start, end int) int {
	limit := end - (end-start)/4
	for _, want := range []func(int) bool{
		func(i int) bool { return runes[i] == '\n' && i > 0 && runes[i-1] == '\n' },
		func(i int) bool { return runes[i] == '\n' },
		func(i int) bool { return runes[i] == ' ' },
	} {
		for i := end - 1; i >= limit; i-- {
			if want(i) {
				return i + 1
			}
		}
	}
	return end
}
