// Package nudge flags low-value prompts while they are being typed and
// counts the ones the user withdraws after seeing the warning.
package nudge

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Rule names the check that produced a verdict.
type Rule int

const (
	Repetition Rule = iota + 1
	SymbolNoise
	Gibberish
	EmojiOnly
	LowValuePhrase
	TooShort
)

var ruleNames = map[Rule]string{
	Repetition:     "repetition",
	SymbolNoise:    "symbol_noise",
	Gibberish:      "gibberish",
	EmojiOnly:      "emoji_only",
	LowValuePhrase: "low_value_phrase",
	TooShort:       "too_short",
}

func (r Rule) String() string {
	if s, ok := ruleNames[r]; ok {
		return s
	}
	return "none"
}

// Verdict is the first rule a text tripped and the message to show for it.
type Verdict struct {
	Rule    Rule   `json:"rule"`
	Message string `json:"message"`
}

var messages = map[Rule]string{
	Repetition:     "Mashing the same key gives the model nothing useful to work with.",
	SymbolNoise:    "That is mostly symbols. Say what you need in words.",
	Gibberish:      "This looks like a random string. Type the actual instruction.",
	EmojiOnly:      "An emoji-only message still makes the model reprocess the whole conversation.",
	LowValuePhrase: "Short greetings and thanks still cost energy. Keep the gratitude to yourself!",
	TooShort:       "Very short message. Bundling your instructions into one prompt is greener.",
}

// SmallTalk is the list of acknowledgement and greeting phrases that make a
// short message low value. Matching is a case-insensitive substring test.
var SmallTalk = []string{
	"ありがとう", "ありがとうございます", "サンキュー", "感謝",
	"了解", "承知", "わかった", "ok", "okay", "thx", "thanks",
	"すごい", "なるほど", "はい", "いいえ", "yes", "no",
	"test", "テスト", "こんにちは", "hello", "hi",
}

const (
	minRepeat        = 4
	symbolShareLimit = 0.8
	vowelShareLimit  = 0.1
	lowValueMaxLen   = 20
	tooShortMaxLen   = 5
)

// Analyze runs the rules in order against the trimmed text and returns the
// first match. Empty text never produces a verdict. Lengths are in runes.
func Analyze(text string) (Verdict, bool) {
	s := strings.TrimSpace(text)
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return Verdict{}, false
	}

	rule := classify(s, n)
	if rule == 0 {
		return Verdict{}, false
	}
	return Verdict{Rule: rule, Message: messages[rule]}, true
}

func classify(s string, n int) Rule {
	noisy := n >= 3 && float64(countFunc(s, isASCIISymbol))/float64(n) > symbolShareLimit
	switch {
	case n >= minRepeat && hasRun(s, minRepeat, noisy):
		return Repetition
	case noisy:
		return SymbolNoise
	case n >= 4 && allFunc(s, isASCIIAlnum) && float64(countFunc(s, isVowel))/float64(n) < vowelShareLimit:
		return Gibberish
	case allFunc(s, isEmojiRune):
		return EmojiOnly
	case n < lowValueMaxLen && containsSmallTalk(s):
		return LowValuePhrase
	case n <= tooShortMaxLen:
		return TooShort
	}
	return 0
}

// hasRun reports whether some rune repeats at least limit times in a row.
// With skipSymbols set, runs of ASCII punctuation are left to the symbol rule.
func hasRun(s string, limit int, skipSymbols bool) bool {
	var prev rune = -1
	run := 0
	for _, r := range s {
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= limit && !(skipSymbols && isASCIISymbol(r)) {
			return true
		}
	}
	return false
}

func containsSmallTalk(s string) bool {
	lower := strings.ToLower(s)
	for _, w := range SmallTalk {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func countFunc(s string, f func(rune) bool) int {
	c := 0
	for _, r := range s {
		if f(r) {
			c++
		}
	}
	return c
}

func allFunc(s string, f func(rune) bool) bool {
	for _, r := range s {
		if !f(r) {
			return false
		}
	}
	return true
}

// isASCIISymbol matches the printable ASCII punctuation and symbol ranges.
func isASCIISymbol(r rune) bool {
	return (r >= '!' && r <= '/') || (r >= ':' && r <= '@') ||
		(r >= '[' && r <= '`') || (r >= '{' && r <= '~')
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'A', 'E', 'I', 'O', 'U':
		return true
	}
	return false
}

// isEmojiRune accepts symbols, whitespace and the joiners, selectors and tags
// that glue emoji sequences together. Digits are not treated as emoji.
func isEmojiRune(r rune) bool {
	switch {
	case unicode.IsSpace(r), unicode.IsSymbol(r):
		return true
	case r == 0x200D, r == 0xFE0E, r == 0xFE0F, r == 0x20E3:
		return true
	case r >= 0xE0020 && r <= 0xE007F:
		return true
	}
	return false
}
