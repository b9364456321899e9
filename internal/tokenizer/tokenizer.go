// Package tokenizer counts tokens the way LLM billing does, so compression
// ratios and cost savings reflect real usage.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
)

// DefaultEncoding is the BPE encoding used when none is configured.
const DefaultEncoding = "cl100k_base"

// Counter measures token counts with a tiktoken BPE encoding, falling back
// to a word-based heuristic when the encoding data is unavailable (for
// example, offline environments). It implements domain.TokenCounter.
type Counter struct {
	encoding *tiktoken.Tiktoken
	logger   zerolog.Logger
}

// NewCounter loads the named encoding. Loading can require a one-time
// download of the BPE ranks; on failure the counter degrades to the
// heuristic instead of erroring.
func NewCounter(encoding string, logger zerolog.Logger) *Counter {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	c := &Counter{logger: logger.With().Str("component", "tokenizer").Logger()}

	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("encoding", encoding).
			Msg("tiktoken encoding unavailable, using heuristic token counts")
		return c
	}
	c.encoding = enc
	return c
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.encoding != nil {
		return len(c.encoding.Encode(text, nil, nil))
	}
	return heuristicCount(text)
}

// Exact reports whether counts come from a real BPE encoding rather than
// the heuristic.
func (c *Counter) Exact() bool {
	return c.encoding != nil
}

// heuristicCount approximates BPE token counts: roughly one token per word
// plus one per standalone punctuation or symbol rune, with long words
// contributing extra tokens per four characters.
func heuristicCount(text string) int {
	total := 0
	for _, word := range strings.Fields(text) {
		letters := 0
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				letters++
			} else {
				total++
			}
		}
		if letters > 0 {
			total += 1 + (letters-1)/4
		}
	}
	return total
}
