// Package chunker splits extracted document text into overlapping chunks of
// bounded size.
package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// DefaultSize is the chunk size in characters used when none is configured.
	DefaultSize = 800
	// DefaultOverlap is the overlap in characters used when none is configured.
	DefaultOverlap = 100
)

// separators are tried in order: paragraph, line, sentence, clause, word.
// A piece that is still too long after the last separator is cut by rune count.
var separators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", " "}

// Chunker holds the size limits for splitting. Size and Overlap are measured
// in runes, not bytes.
type Chunker struct {
	Size    int
	Overlap int
}

// New returns a Chunker with normalised limits.
// A non-positive size falls back to DefaultSize; an overlap that is negative
// or not smaller than size is clamped.
func New(size, overlap int) Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return Chunker{Size: size, Overlap: overlap}
}

// Split is shorthand for New(size, overlap).Split(text).
func Split(text string, size, overlap int) []string {
	return New(size, overlap).Split(text)
}

// Split returns the chunks of text in document order.
// Empty or whitespace-only input yields nil.
func (c Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	c = New(c.Size, c.Overlap)
	return c.merge(c.pieces(text, 0))
}

// pieces breaks text into fragments no longer than c.Size, keeping every
// separator attached to the fragment before it so no characters are lost.
func (c Chunker) pieces(text string, level int) []string {
	if runeLen(text) <= c.Size {
		return []string{text}
	}
	if level >= len(separators) {
		return splitRunes(text, c.Size)
	}

	parts := splitKeep(text, separators[level])
	if len(parts) == 1 {
		return c.pieces(text, level+1)
	}

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if runeLen(part) <= c.Size {
			out = append(out, part)
			continue
		}
		out = append(out, c.pieces(part, level+1)...)
	}
	return out
}

// merge packs fragments greedily into chunks. When a chunk is full, the
// trailing fragments that fit in c.Overlap are carried into the next chunk.
func (c Chunker) merge(pieces []string) []string {
	var (
		chunks []string
		window []string
		length int
	)
	for _, piece := range pieces {
		n := runeLen(piece)
		if length+n > c.Size && len(window) > 0 {
			chunks = appendChunk(chunks, window)
			for length > 0 && (length > c.Overlap || length+n > c.Size) {
				length -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		length += n
	}
	if len(window) > 0 {
		chunks = appendChunk(chunks, window)
	}
	return chunks
}

func appendChunk(chunks []string, window []string) []string {
	chunk := strings.TrimSpace(strings.Join(window, ""))
	if chunk == "" {
		return chunks
	}
	return append(chunks, chunk)
}

func splitKeep(text, sep string) []string {
	parts := strings.SplitAfter(text, sep)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func splitRunes(text string, size int) []string {
	runes := []rune(text)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
