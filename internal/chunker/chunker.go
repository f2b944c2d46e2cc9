// Package chunker splits long section text into smaller parts so that no single
// section overwhelms the navigation context.
package chunker

import (
	"strings"
)

// Config controls splitting behavior.
type Config struct {
	ChunkSize    int // Target part size in tokens.
	ChunkOverlap int // Overlap between consecutive parts in tokens.
	MinChunk     int // Parts smaller than this are merged into the previous part.
}

// DefaultConfig returns sensible defaults for navigable sections.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    800,
		ChunkOverlap: 0,
		MinChunk:     50,
	}
}

// Split breaks text into parts of roughly cfg.ChunkSize tokens, preferring
// paragraph and then sentence boundaries. Text that already fits is returned
// as a single part. No content is dropped.
func Split(text string, cfg Config) []string {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 800
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.MinChunk <= 0 {
		cfg.MinChunk = 50
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if EstimateTokens(text) <= cfg.ChunkSize {
		return []string{text}
	}

	parts := splitText(text, cfg.ChunkSize, cfg.ChunkOverlap)
	// Fold a runt tail into its predecessor.
	if n := len(parts); n > 1 && EstimateTokens(parts[n-1]) < cfg.MinChunk {
		parts[n-2] = parts[n-2] + "\n\n" + parts[n-1]
		parts = parts[:n-1]
	}
	return parts
}

// splitText breaks text into chunks of approximately targetTokens, with overlap.
func splitText(text string, targetTokens, overlapTokens int) []string {
	paragraphs := splitByParagraphs(text)

	var result []string
	var current strings.Builder
	currentTokens := 0

	for _, para := range paragraphs {
		paraTokens := EstimateTokens(para)

		// A paragraph above target is split by sentences on its own.
		if paraTokens > targetTokens {
			if currentTokens > 0 {
				result = append(result, current.String())
				current.Reset()
				currentTokens = 0
			}
			result = append(result, splitBySentences(para, targetTokens, overlapTokens)...)
			continue
		}

		if currentTokens+paraTokens > targetTokens && currentTokens > 0 {
			result = append(result, current.String())

			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
		currentTokens += paraTokens
	}

	if currentTokens > 0 {
		result = append(result, current.String())
	}

	return result
}

// splitByParagraphs splits on double-newlines.
func splitByParagraphs(text string) []string {
	parts := strings.Split(text, "\n\n")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

// splitBySentences breaks a large paragraph into sentence-based chunks. A
// sentence that is itself over target is cut into word windows.
func splitBySentences(text string, targetTokens, overlapTokens int) []string {
	var sentences []string
	for _, sent := range splitSentences(text) {
		if EstimateTokens(sent) > targetTokens {
			sentences = append(sentences, splitWords(sent, targetTokens)...)
			continue
		}
		sentences = append(sentences, sent)
	}

	var result []string
	var current strings.Builder
	currentTokens := 0
	fresh := false // current holds more than carried-over overlap

	for _, sent := range sentences {
		sentTokens := EstimateTokens(sent)

		if currentTokens+sentTokens > targetTokens && fresh {
			result = append(result, current.String())
			overlap := getOverlapText(current.String(), overlapTokens)
			current.Reset()
			currentTokens = 0
			if overlap != "" {
				current.WriteString(overlap)
				currentTokens = EstimateTokens(overlap)
			}
		}

		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sent)
		currentTokens += sentTokens
		fresh = true
	}

	if fresh {
		result = append(result, current.String())
	}

	return result
}

// splitWords cuts text into runs of whole words of at most targetTokens.
func splitWords(text string, targetTokens int) []string {
	words := strings.Fields(text)
	perPart := max(int(float64(targetTokens)/1.33), 1)

	var result []string
	for start := 0; start < len(words); start += perPart {
		end := min(start+perPart, len(words))
		result = append(result, strings.Join(words[start:end], " "))
	}
	return result
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}

// getOverlapText returns the trailing targetTokens worth of words.
func getOverlapText(text string, targetTokens int) string {
	words := strings.Fields(text)
	targetWords := int(float64(targetTokens) / 1.33)
	if targetWords <= 0 || len(words) <= targetWords {
		return ""
	}
	return strings.Join(words[len(words)-targetWords:], " ")
}
