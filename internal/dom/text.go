package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Attr returns the value of attribute name and whether it is present.
func Attr(n *html.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

// TextContent concatenates every descendant text node of n.
func TextContent(n *html.Node) string {
	if n == nil {
		return ""
	}
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		for ; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				sb.WriteString(c.Data)
			case html.ElementNode, html.DocumentNode:
				walk(c.FirstChild)
			}
		}
	}
	walk(n.FirstChild)
	return sb.String()
}

// IsTextControl reports whether n is a <textarea> or <input>.
func IsTextControl(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode && (n.Data == "textarea" || n.Data == "input")
}

// ExtractText returns the text a node contributes to usage: the current
// value of a text control, otherwise the full descendant text.
func ExtractText(n *html.Node) string {
	if IsTextControl(n) {
		if v, ok := Attr(n, "value"); ok {
			return v
		}
		if n.Data == "input" {
			return ""
		}
	}
	return TextContent(n)
}

// IsEditable reports whether n is a text control or inside a contenteditable region.
func IsEditable(n *html.Node) bool {
	if IsTextControl(n) {
		return true
	}
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		v, ok := Attr(cur, "contenteditable")
		if !ok {
			continue
		}
		switch strings.ToLower(v) {
		case "", "true", "plaintext-only":
			return true
		case "false":
			return false
		}
	}
	return false
}

// ElementOf returns n itself for elements and the parent element otherwise.
func ElementOf(n *html.Node) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode {
			return cur
		}
		if cur.Type == html.DocumentNode {
			return nil
		}
	}
	return nil
}

// Closest returns the nearest ancestor-or-self element of n for which match is true.
func Closest(n *html.Node, match func(*html.Node) bool) *html.Node {
	for cur := ElementOf(n); cur != nil; cur = cur.Parent {
		if cur.Type == html.ElementNode && match(cur) {
			return cur
		}
	}
	return nil
}
