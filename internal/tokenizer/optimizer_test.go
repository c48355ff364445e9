package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendConcise(t *testing.T) {
	const suffix = "Please answer concisely."

	assert.Equal(t, "Explain DNS.\n"+suffix, AppendConcise("Explain DNS.", suffix))
	assert.Equal(t, "Explain DNS.\n"+suffix, AppendConcise("Explain DNS.  \n", suffix))
	assert.Equal(t, suffix, AppendConcise("", suffix))
}

func TestAppendConcise_Idempotent(t *testing.T) {
	const suffix = "Please answer concisely."
	once := AppendConcise("Explain DNS.", suffix)
	assert.Equal(t, once, AppendConcise(once, suffix))
}

func TestAppendConcise_EmptySuffix(t *testing.T) {
	assert.Equal(t, "keep me", AppendConcise("keep me", "  "))
}
