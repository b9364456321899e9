package tokenizer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestCount_EmptyTextIsZero(t *testing.T) {
	c := NewCounter(DefaultEncoding, zerolog.Nop())

	assert.Equal(t, 0, c.Count(""))
}

func TestCount_PositiveForText(t *testing.T) {
	c := NewCounter(DefaultEncoding, zerolog.Nop())

	n := c.Count("invoice total: 4200.50")

	assert.Greater(t, n, 0)
}

func TestCount_MonotonicInLength(t *testing.T) {
	c := NewCounter(DefaultEncoding, zerolog.Nop())

	short := c.Count("name:alice")
	long := c.Count("name:alice|income:52000|verified:true\nname:bob|income:48500|verified:false")

	assert.Greater(t, long, short)
}

func TestCount_UnknownEncodingFallsBackToHeuristic(t *testing.T) {
	c := NewCounter("no-such-encoding", zerolog.Nop())

	assert.False(t, c.Exact())
	assert.Greater(t, c.Count("some sample text"), 0)
	assert.Equal(t, 0, c.Count(""))
}

func TestHeuristicCount(t *testing.T) {
	assert.Equal(t, 0, heuristicCount(""))
	assert.Equal(t, 2, heuristicCount("one two"))
	// "compression" is 11 letters: 1 + 10/4 = 3 tokens.
	assert.Equal(t, 3, heuristicCount("compression"))
	// "a:b" is two letters plus one symbol.
	assert.Equal(t, 2, heuristicCount("a:b"))
}
