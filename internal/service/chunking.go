package service

import (
	"unicode"
)

const (
	// DefaultChunkSize is the window length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is how many characters consecutive windows share.
	DefaultChunkOverlap = 200
)

// ChunkConfig controls how extracted text is split for embedding.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides the default window and overlap.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    DefaultChunkSize,
		Overlap: DefaultChunkOverlap,
	}
}

// TextChunk is one window of source text. Offsets are rune offsets into the
// source and bound the trimmed Text.
type TextChunk struct {
	Index       int
	StartOffset int
	EndOffset   int
	Text        string
}

// ChunkText splits text into overlapping windows of chunkSize runes. A window
// that would end inside a word is cut back to the last whitespace in its
// second half. Chunks are trimmed, blank chunks are dropped, and indices are
// dense over the chunks returned.
func ChunkText(text string, chunkSize, overlap int) []TextChunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	runes := []rune(text)
	n := len(runes)
	chunks := make([]TextChunk, 0, n/chunkSize+1)

	start := 0
	for start < n {
		end := start + chunkSize
		if end > n {
			end = n
		}

		if end < n && !unicode.IsSpace(runes[end]) && !unicode.IsSpace(runes[end-1]) {
			half := start + chunkSize/2
			for i := end - 1; i > half; i-- {
				if unicode.IsSpace(runes[i]) {
					end = i
					break
				}
			}
		}

		if chunk, ok := trimWindow(runes, start, end); ok {
			chunk.Index = len(chunks)
			chunks = append(chunks, chunk)
		}

		if end >= n {
			break
		}

		// A whitespace cut can pull end back far enough to stall the cursor.
		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}

func trimWindow(runes []rune, start, end int) (TextChunk, bool) {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if start == end {
		return TextChunk{}, false
	}
	return TextChunk{
		StartOffset: start,
		EndOffset:   end,
		Text:        string(runes[start:end]),
	}, true
}
