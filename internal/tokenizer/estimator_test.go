package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("test"))
	assert.Equal(t, 2, EstimateTokens("tests"))
	assert.Equal(t, 15, EstimateTokens("The quick brown fox jumps over the lazy dog. This is a test."))
}

func TestEstimateTokens_Wide(t *testing.T) {
	assert.Equal(t, 5, EstimateTokens("こんにちは"))
	// 2 narrow runes round up to one unit, plus one wide rune.
	assert.Equal(t, 2, EstimateTokens("hiこ"))
	assert.Equal(t, 1, EstimateTokens("🌍"))
}

func TestEstimateTokens_Deterministic(t *testing.T) {
	text := "Summarize this: 環境負荷 and cost."
	assert.Equal(t, EstimateTokens(text), EstimateTokens(text))
}

func TestEstimateTokens_MonotonicOnNarrowAppend(t *testing.T) {
	base := "日本語のテキスト"
	prev := EstimateTokens(base)
	for i := 1; i <= 40; i++ {
		next := EstimateTokens(base + strings.Repeat("a", i))
		assert.GreaterOrEqual(t, next, prev)
		prev = next
	}
}
