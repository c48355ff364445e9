// Package site maps chat hosts to the selectors that locate user messages,
// assistant messages and the prompt editor on their pages.
package site

import (
	"fmt"
	"os"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"
)

// Definition is the static description of one supported site.
type Definition struct {
	Name                string `yaml:"name" json:"name"`
	Domain              string `yaml:"domain" json:"domain"`
	Match               string `yaml:"match" json:"match"` // host substring
	UserMessageSelector string `yaml:"user_message_selector" json:"user_message_selector"`
	AIMessageSelector   string `yaml:"ai_message_selector" json:"ai_message_selector"`
	InputSelector       string `yaml:"input_selector" json:"input_selector"`
}

// Builtin is the default site table, matched in order.
var Builtin = []Definition{
	{
		Name:                "chatgpt",
		Domain:              "chatgpt.com",
		Match:               "chatgpt",
		UserMessageSelector: `div[data-message-author-role="user"]`,
		AIMessageSelector:   `div[data-message-author-role="assistant"]`,
		InputSelector:       `#prompt-textarea`,
	},
	{
		Name:                "claude",
		Domain:              "claude.ai",
		Match:               "claude",
		UserMessageSelector: `.font-user-message`,
		AIMessageSelector:   `.font-claude-message`,
		InputSelector:       `div[contenteditable="true"]`,
	},
	{
		Name:                "gemini",
		Domain:              "gemini.google.com",
		Match:               "gemini",
		UserMessageSelector: `.user-query`,
		AIMessageSelector:   `.model-response`,
		InputSelector:       `div[contenteditable="true"]`,
	},
	{
		Name:                "aistudio",
		Domain:              "aistudio.google.com",
		Match:               "aistudio",
		UserMessageSelector: `textarea`,
		AIMessageSelector:   `ms-markdown`,
		InputSelector:       `textarea`,
	},
}

// Adapter is a Definition with compiled selectors.
type Adapter struct {
	Definition
	user  cascadia.Selector
	ai    cascadia.Selector
	input cascadia.Selector
}

// Compile validates and compiles a Definition.
func Compile(def Definition) (*Adapter, error) {
	if def.Match == "" {
		def.Match = def.Domain
	}
	if def.Match == "" {
		return nil, fmt.Errorf("site.Compile %q: match or domain is required", def.Name)
	}
	a := &Adapter{Definition: def}
	var err error
	if a.user, err = cascadia.Compile(def.UserMessageSelector); err != nil {
		return nil, fmt.Errorf("site.Compile %q: user selector: %w", def.Name, err)
	}
	if a.ai, err = cascadia.Compile(def.AIMessageSelector); err != nil {
		return nil, fmt.Errorf("site.Compile %q: ai selector: %w", def.Name, err)
	}
	if a.input, err = cascadia.Compile(def.InputSelector); err != nil {
		return nil, fmt.Errorf("site.Compile %q: input selector: %w", def.Name, err)
	}
	return a, nil
}

// MatchesHost reports whether the adapter applies to host.
func (a *Adapter) MatchesHost(host string) bool {
	return strings.Contains(strings.ToLower(host), strings.ToLower(a.Match))
}

// IsUserMessage reports whether n matches the user-message selector.
func (a *Adapter) IsUserMessage(n *html.Node) bool { return a.user.Match(n) }

// IsAIMessage reports whether n matches the assistant-message selector.
func (a *Adapter) IsAIMessage(n *html.Node) bool { return a.ai.Match(n) }

// IsInput reports whether n matches the prompt editor selector.
func (a *Adapter) IsInput(n *html.Node) bool { return a.input.Match(n) }

// UserMessages returns n and its descendants that are user messages.
func (a *Adapter) UserMessages(n *html.Node) []*html.Node { return a.user.MatchAll(n) }

// AIMessages returns n and its descendants that are assistant messages.
func (a *Adapter) AIMessages(n *html.Node) []*html.Node { return a.ai.MatchAll(n) }

// Table is an ordered set of adapters.
type Table struct {
	adapters []*Adapter
}

// NewTable compiles defs into a Table.
func NewTable(defs []Definition) (*Table, error) {
	t := &Table{}
	for _, d := range defs {
		a, err := Compile(d)
		if err != nil {
			return nil, err
		}
		t.adapters = append(t.adapters, a)
	}
	return t, nil
}

// Default returns the Table built from Builtin.
func Default() *Table {
	t, err := NewTable(Builtin)
	if err != nil {
		panic(err) // built-in selectors are constants
	}
	return t
}

// Load builds a Table from Builtin overlaid with the YAML file at path.
// Entries with a known name replace the built-in one; others are appended.
// An empty path returns the built-in table.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("site.Load: %w", err)
	}
	var file struct {
		Sites []Definition `yaml:"sites"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("site.Load: parse %s: %w", path, err)
	}
	return NewTable(Merge(Builtin, file.Sites))
}

// Merge overlays extra onto base by name, preserving base order.
func Merge(base, extra []Definition) []Definition {
	out := append([]Definition(nil), base...)
	for _, e := range extra {
		replaced := false
		for i := range out {
			if out[i].Name != "" && out[i].Name == e.Name {
				out[i] = e
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, e)
		}
	}
	return out
}

// Resolve returns the first adapter matching host, or nil.
func (t *Table) Resolve(host string) *Adapter {
	if t == nil || host == "" {
		return nil
	}
	for _, a := range t.adapters {
		if a.MatchesHost(host) {
			return a
		}
	}
	return nil
}

// Definitions lists the table's entries in match order.
func (t *Table) Definitions() []Definition {
	out := make([]Definition, 0, len(t.adapters))
	for _, a := range t.adapters {
		out = append(out, a.Definition)
	}
	return out
}
