package nudge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyze(t *testing.T) {
	tests := []struct {
		text string
		want Rule
	}{
		{"aaaa", Repetition},
		{"  zzzzzz  ", Repetition},
		{"what????", Repetition},
		{"sure!!!!", Repetition},
		{"please fix this!!!!", Repetition},
		{"!!!!!!", SymbolNoise},
		{"??!!!!", SymbolNoise},
		{"?!#", SymbolNoise},
		{"bcdfgh", Gibberish},
		{"qwrtzxcvbnm", Gibberish},
		{"👍", EmojiOnly},
		{"🎉 🙏🏻", EmojiOnly},
		{"👨‍👩‍👧", EmojiOnly},
		{"thanks!", LowValuePhrase},
		{"OK", LowValuePhrase},
		{"ありがとうございます", LowValuePhrase},
		{"why?", TooShort},
		{"go on", TooShort},
		{"", 0},
		{"   \n", 0},
		{"please summarize the quarterly report in three bullet points", 0},
		{"thanks, now rewrite the intro paragraph in a formal tone", 0},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, ok := Analyze(tt.text)
			if tt.want == 0 {
				assert.False(t, ok)
				assert.Empty(t, v.Message)
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.want, v.Rule, "got %s", v.Rule)
			assert.NotEmpty(t, v.Message)
		})
	}
}

func TestAnalyzeRuleOrder(t *testing.T) {
	// "hihi" is a small-talk phrase and short; the phrase rule comes first.
	v, _ := Analyze("hihi")
	assert.Equal(t, LowValuePhrase, v.Rule)

	// repeated letters win over the phrase list
	v, _ = Analyze("okkkk")
	assert.Equal(t, Repetition, v.Rule)

	// digits alone are not emoji
	v, _ = Analyze("1 2 3")
	assert.Equal(t, TooShort, v.Rule)
}

func TestRuleString(t *testing.T) {
	assert.Equal(t, "symbol_noise", SymbolNoise.String())
	assert.Equal(t, "none", Rule(0).String())
}
