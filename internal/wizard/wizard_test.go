package wizard

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfirm(t *testing.T) {
	for in, want := range map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		" yes ":   true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"maybe\n": false,
	} {
		var out bytes.Buffer
		assert.Equal(t, want, Confirm(strings.NewReader(in), &out, "Reset all statistics?"), "input %q", in)
		assert.Contains(t, out.String(), "Reset all statistics? [y/N]")
	}
}

func TestPrintEndpoints(t *testing.T) {
	var out bytes.Buffer
	PrintEndpoints(&out, "8090")
	s := out.String()
	assert.Contains(t, s, "/api/v1/stats")
	assert.Contains(t, s, ":8090/ws/observe")
}

func TestColorPlainWhenNotTerminal(t *testing.T) {
	// go test's stdout is not a terminal
	assert.Equal(t, "ok", Color(Green, "ok"))
}
