// Package tokenizer provides usage estimation, prompt shaping, and daily budget governance.
package tokenizer

import "unicode/utf8"

// EstimateTokens estimates the usage units of a text string.
// Narrow runes (ASCII) cost a quarter unit each, every other rune costs one
// full unit; the sum is rounded up. Not a model tokenizer, only a stable proxy.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	narrow, wide := 0, 0
	for _, r := range text {
		if r < utf8.RuneSelf {
			narrow++
		} else {
			wide++
		}
	}
	return wide + (narrow+3)/4
}
