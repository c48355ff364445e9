package site

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func TestResolve_Builtin(t *testing.T) {
	tbl := Default()

	a := tbl.Resolve("chatgpt.com")
	require.NotNil(t, a)
	assert.Equal(t, "chatgpt", a.Name)

	a = tbl.Resolve("claude.ai")
	require.NotNil(t, a)
	assert.Equal(t, "claude", a.Name)

	a = tbl.Resolve("aistudio.google.com")
	require.NotNil(t, a)
	assert.Equal(t, "aistudio", a.Name)

	assert.Nil(t, tbl.Resolve("example.com"))
	assert.Nil(t, tbl.Resolve(""))
}

func TestAdapter_Selectors(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(`<div id="root">
		<div data-message-author-role="user">hi there</div>
		<div data-message-author-role="assistant"><p>hello</p></div>
		<textarea id="prompt-textarea"></textarea>
	</div>`))
	require.NoError(t, err)

	a := Default().Resolve("chatgpt.com")
	require.NotNil(t, a)
	assert.Len(t, a.UserMessages(doc), 1)
	assert.Len(t, a.AIMessages(doc), 1)

	ai := a.AIMessages(doc)[0]
	assert.True(t, a.IsAIMessage(ai))
	assert.False(t, a.IsUserMessage(ai))
	assert.False(t, a.IsAIMessage(ai.FirstChild), "descendants are not the message itself")
}

func TestCompile_InvalidSelector(t *testing.T) {
	_, err := Compile(Definition{Name: "bad", Match: "x", UserMessageSelector: "div[", AIMessageSelector: "p", InputSelector: "p"})
	assert.Error(t, err)

	_, err = Compile(Definition{Name: "nomatch", UserMessageSelector: "p", AIMessageSelector: "p", InputSelector: "p"})
	assert.Error(t, err)
}

func TestLoad_OverridesAndAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sites:
  - name: claude
    match: claude.ai
    user_message_selector: "[data-testid=user-message]"
    ai_message_selector: ".font-claude-response"
    input_selector: "div.ProseMirror"
  - name: mistral
    domain: chat.mistral.ai
    user_message_selector: ".user"
    ai_message_selector: ".assistant"
    input_selector: "textarea"
`), 0o644))

	tbl, err := Load(path)
	require.NoError(t, err)

	a := tbl.Resolve("claude.ai")
	require.NotNil(t, a)
	assert.Equal(t, "[data-testid=user-message]", a.UserMessageSelector)

	m := tbl.Resolve("chat.mistral.ai")
	require.NotNil(t, m)
	assert.Equal(t, "mistral", m.Name)
	assert.Len(t, tbl.Definitions(), len(Builtin)+1)
}

func TestLoad_EmptyPath(t *testing.T) {
	tbl, err := Load("")
	require.NoError(t, err)
	assert.Len(t, tbl.Definitions(), len(Builtin))
}
