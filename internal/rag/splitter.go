package rag

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultChunkSize and DefaultChunkOverlap match the splitter defaults used at indexing time.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 100
)

// Splitter breaks text into overlapping chunks along natural boundaries,
// preferring paragraph breaks, then line breaks, then word breaks, and only
// falling back to raw character positions when nothing else fits. Sizes are
// counted in runes. Separators stay attached to the preceding piece, so
// concatenating the chunks with overlaps removed reconstructs the input.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter builds a splitter with the given chunk size and overlap, both in
// runes. Overlap must be smaller than the chunk size.
func NewSplitter(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be > 0, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: []string{"\n\n", "\n", " ", ""},
	}, nil
}

// Split returns the chunks of text in document order. Empty or whitespace-only
// input yields nil, never an error.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.split(text, s.separators)
}

func (s *Splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var remaining []string
	for i, candidate := range separators {
		if candidate == "" || strings.Contains(text, candidate) {
			sep = candidate
			remaining = separators[i+1:]
			break
		}
	}

	pieces := splitKeepingSeparator(text, sep)

	var chunks []string
	var pending []string
	for _, piece := range pieces {
		if utf8.RuneCountInString(piece) <= s.chunkSize {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending)...)
			pending = nil
		}
		if len(remaining) == 0 || (len(remaining) == 1 && remaining[0] == "") {
			// an indivisible unit larger than the limit (a single word)
			// passes through whole rather than being cut mid-token
			chunks = append(chunks, piece)
			continue
		}
		chunks = append(chunks, s.split(piece, remaining)...)
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.merge(pending)...)
	}
	return chunks
}

// merge greedily joins pieces into chunks no larger than chunkSize, carrying a
// suffix of up to overlap runes into the next chunk.
func (s *Splitter) merge(pieces []string) []string {
	var chunks []string
	var current []string
	total := 0
	for _, piece := range pieces {
		length := utf8.RuneCountInString(piece)
		if total+length > s.chunkSize && len(current) > 0 {
			emitted := strings.Join(current, "")
			chunks = append(chunks, emitted)
			for len(current) > 0 && (total > s.overlap || total+length > s.chunkSize) {
				total -= utf8.RuneCountInString(current[0])
				current = current[1:]
			}
			if len(current) == 0 && s.overlap > 0 {
				// every retained piece was bigger than the overlap budget;
				// carry a raw rune suffix so chunk boundaries still share context
				suffix := runeSuffix(emitted, min(s.overlap, s.chunkSize-length))
				if suffix != "" {
					current = append(current, suffix)
					total = utf8.RuneCountInString(suffix)
				}
			}
		}
		current = append(current, piece)
		total += length
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, ""))
	}
	return chunks
}

// runeSuffix returns the last n runes of s.
func runeSuffix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

// splitKeepingSeparator splits text by sep, re-attaching sep to the end of each
// piece so no characters are lost. An empty sep splits into individual runes.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		runes := []rune(text)
		pieces := make([]string, len(runes))
		for i, r := range runes {
			pieces[i] = string(r)
		}
		return pieces
	}
	parts := strings.Split(text, sep)
	pieces := make([]string, 0, len(parts))
	for i, part := range parts {
		if i < len(parts)-1 {
			part += sep
		}
		if part == "" {
			continue
		}
		pieces = append(pieces, part)
	}
	return pieces
}
