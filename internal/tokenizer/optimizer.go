package tokenizer

import "strings"

// AppendConcise appends the concise-answer instruction to an in-progress prompt.
// The instruction is added at most once; an empty suffix leaves the prompt unchanged.
func AppendConcise(prompt, suffix string) string {
	suffix = strings.TrimSpace(suffix)
	if suffix == "" {
		return prompt
	}
	trimmed := strings.TrimRight(prompt, " \t\r\n")
	if strings.HasSuffix(trimmed, suffix) {
		return prompt
	}
	if trimmed == "" {
		return suffix
	}
	return trimmed + "\n" + suffix
}
