package rag

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewSplitterValidation(t *testing.T) {
	if _, err := NewSplitter(0, 0); err == nil {
		t.Fatal("expected error for zero chunk size")
	}
	if _, err := NewSplitter(100, 100); err == nil {
		t.Fatal("expected error for overlap == chunk size")
	}
	if _, err := NewSplitter(100, -1); err == nil {
		t.Fatal("expected error for negative overlap")
	}
	if _, err := NewSplitter(100, 20); err != nil {
		t.Fatalf("NewSplitter: %v", err)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	s, err := NewSplitter(500, 100)
	if err != nil {
		t.Fatalf("NewSplitter: %v", err)
	}
	if got := s.Split(""); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := s.Split("  \n\n \t "); got != nil {
		t.Fatalf("expected nil for whitespace input, got %v", got)
	}
}

func TestSplitShortInputSingleChunk(t *testing.T) {
	s, _ := NewSplitter(500, 100)
	text := "A short paragraph that easily fits in one chunk."
	chunks := s.Split(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Fatalf("chunk differs from input: %q", chunks[0])
	}
}

func TestSplitRespectsChunkSize(t *testing.T) {
	s, _ := NewSplitter(120, 30)
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("the quick brown fox jumps over the lazy dog. ")
		if i%5 == 4 {
			b.WriteString("\n\n")
		}
	}
	for _, chunk := range s.Split(b.String()) {
		if n := utf8.RuneCountInString(chunk); n > 120 {
			t.Fatalf("chunk of %d runes exceeds limit: %q", n, chunk)
		}
	}
}

func TestSplitOversizeTokenPassesWhole(t *testing.T) {
	s, _ := NewSplitter(20, 5)
	long := strings.Repeat("x", 50)
	text := "short " + long + " tail"
	chunks := s.Split(text)
	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk, long) {
			found = true
		}
	}
	if !found {
		t.Fatalf("oversize token was truncated: %v", chunks)
	}
}

func TestSplitTwelveHundredCharacters(t *testing.T) {
	// 1200 characters with no natural boundaries: the splitter slides a
	// character window of 500 with 100 overlap, giving fragments at
	// 0-500, 400-900 and 800-1200.
	s, _ := NewSplitter(500, 100)
	runes := make([]rune, 1200)
	for i := range runes {
		runes[i] = rune('0' + i%10)
	}
	text := string(runes)

	chunks := s.Split(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[0] != text[:500] || chunks[1] != text[400:900] || chunks[2] != text[800:] {
		t.Fatal("chunk boundaries differ from expected windows")
	}
}

func TestSplitAdjacentChunksOverlap(t *testing.T) {
	s, _ := NewSplitter(500, 100)
	runes := make([]rune, 1200)
	for i := range runes {
		runes[i] = rune('a' + i%26)
	}
	chunks := s.Split(string(runes))
	for i := 1; i < len(chunks); i++ {
		prev, next := chunks[i-1], chunks[i]
		overlap := sharedBoundary(prev, next)
		if overlap == 0 {
			t.Fatalf("chunks %d and %d share no boundary", i-1, i)
		}
		if overlap > 100 {
			t.Fatalf("overlap of %d runes exceeds configured 100", overlap)
		}
	}
}

func TestSplitZeroOverlapIsLossless(t *testing.T) {
	s, _ := NewSplitter(80, 0)
	text := "First paragraph with a few words in it.\n\nSecond paragraph, slightly longer than the first one, with more words.\n\nA third.\nAnd a line.\n\nFinally the fourth paragraph closes the document with a reasonably long sentence."
	chunks := s.Split(text)
	if strings.Join(chunks, "") != text {
		t.Fatalf("concatenated chunks differ from input:\n%q", strings.Join(chunks, ""))
	}
}

// sharedBoundary returns the length in runes of the longest suffix of prev
// that is a prefix of next.
func sharedBoundary(prev, next string) int {
	p, n := []rune(prev), []rune(next)
	max := len(p)
	if len(n) < max {
		max = len(n)
	}
	for k := max; k > 0; k-- {
		if string(p[len(p)-k:]) == string(n[:k]) {
			return k
		}
	}
	return 0
}
