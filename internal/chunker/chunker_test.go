package chunker

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextIsSinglePart(t *testing.T) {
	text := strings.Repeat("word ", 200)
	parts := Split(text, Config{ChunkSize: 1500, MinChunk: 50})

	if len(parts) != 1 {
		t.Fatalf("expected 1 part, got %d", len(parts))
	}
	if parts[0] != strings.TrimSpace(text) {
		t.Errorf("expected part to equal trimmed input")
	}
}

func TestSplit_LargeTextRequiresSplitting(t *testing.T) {
	// ~2700 words -> ~3590 tokens at 1.33 tokens/word.
	largeText := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 300)

	cfg := Config{
		ChunkSize:    500,
		ChunkOverlap: 0,
		MinChunk:     10,
	}
	parts := Split(largeText, cfg)

	if len(parts) < 2 {
		t.Fatalf("expected at least 2 parts for large text, got %d", len(parts))
	}
	for i, p := range parts {
		tokens := EstimateTokens(p)
		// Sentence boundaries allow slight overflow; 2x is a generous ceiling.
		if tokens > cfg.ChunkSize*2 {
			t.Errorf("part %d: %d tokens exceeds 2x target %d", i, tokens, cfg.ChunkSize)
		}
	}
}

func TestSplit_NoContentDropped(t *testing.T) {
	var paras []string
	for i := 0; i < 40; i++ {
		paras = append(paras, strings.Repeat("alpha beta gamma delta. ", 10))
	}
	text := strings.Join(paras, "\n\n")

	parts := Split(text, Config{ChunkSize: 120, MinChunk: 10})
	total := 0
	for _, p := range parts {
		total += len(strings.Fields(p))
	}
	if want := len(strings.Fields(text)); total != want {
		t.Errorf("expected %d words across parts, got %d", want, total)
	}
}

func TestSplit_RuntTailIsMerged(t *testing.T) {
	big := strings.Repeat("lorem ipsum dolor sit amet ", 60) // ~400 tokens
	text := big + "\n\n" + "Tiny tail."

	parts := Split(text, Config{ChunkSize: 400, MinChunk: 50})
	if len(parts) != 1 {
		t.Fatalf("expected runt tail merged into a single part, got %d parts", len(parts))
	}
	if !strings.HasSuffix(parts[0], "Tiny tail.") {
		t.Errorf("expected merged part to end with the tail, got %q", parts[0][len(parts[0])-20:])
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	if parts := Split("   ", DefaultConfig()); len(parts) != 0 {
		t.Errorf("expected 0 parts, got %d", len(parts))
	}
}

func TestSplit_DefaultConfigFallback(t *testing.T) {
	parts := Split(strings.Repeat("word ", 2000), Config{})
	if len(parts) < 2 {
		t.Errorf("expected defaults to split ~2660 tokens, got %d parts", len(parts))
	}
}

func TestSplit_NoSentenceBoundaries(t *testing.T) {
	text := strings.Repeat("word ", 5000)
	parts := Split(text, DefaultConfig())
	if len(parts) < 2 {
		t.Fatalf("expected an unpunctuated run to be split, got %d parts", len(parts))
	}

	words := 0
	for i, p := range parts {
		if tokens := EstimateTokens(p); tokens > DefaultConfig().ChunkSize+DefaultConfig().MinChunk {
			t.Errorf("part %d: expected at most ~%d tokens, got %d", i, DefaultConfig().ChunkSize, tokens)
		}
		words += len(strings.Fields(p))
	}
	if words != 5000 {
		t.Errorf("expected all 5000 words kept, got %d", words)
	}
}

func TestSplit_LongSentenceAmongShortOnes(t *testing.T) {
	text := "Short opener. " + strings.Repeat("clause ", 900) + "end. Short closer."
	parts := Split(text, Config{ChunkSize: 300, MinChunk: 10})
	if len(parts) < 4 {
		t.Fatalf("expected the long sentence cut into windows, got %d parts", len(parts))
	}
	if !strings.HasPrefix(parts[0], "Short opener.") {
		t.Errorf("expected first part to keep the opener, got %q", parts[0])
	}
	if !strings.HasSuffix(parts[len(parts)-1], "Short closer.") {
		t.Errorf("expected last part to keep the closer")
	}
}

func TestSplitWords(t *testing.T) {
	parts := splitWords("a b c d e f g", 4) // 3 words per part
	want := []string{"a b c", "d e f", "g"}
	if len(parts) != len(want) {
		t.Fatalf("expected %d parts, got %q", len(want), parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("part %d: expected %q, got %q", i, want[i], parts[i])
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("expected 0 for empty text, got %d", got)
	}
	if got := EstimateTokens("one"); got != 1 {
		t.Errorf("expected 1 for a single word, got %d", got)
	}
	if got := EstimateTokens(strings.Repeat("w ", 100)); got != 133 {
		t.Errorf("expected 133 for 100 words, got %d", got)
	}
}
