package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

type stepKind int

const (
	stepElement stepKind = iota
	stepText
	stepComment
)

// step is one location step: name[index], text()[index] or comment()[index].
// Indexes are 1-based and count only siblings of the same kind (and tag).
type step struct {
	kind  stepKind
	name  string
	index int
}

func parseXPath(xpath string) ([]step, bool) {
	if xpath == "" {
		return nil, true
	}
	if !strings.HasPrefix(xpath, "/") {
		return nil, false
	}
	parts := strings.Split(xpath[1:], "/")
	steps := make([]step, 0, len(parts))
	for _, p := range parts {
		s, ok := parseStep(p)
		if !ok {
			return nil, false
		}
		steps = append(steps, s)
	}
	return steps, true
}

func parseStep(p string) (step, bool) {
	s := step{index: 1}
	if i := strings.IndexByte(p, '['); i >= 0 {
		if !strings.HasSuffix(p, "]") {
			return s, false
		}
		n, err := strconv.Atoi(p[i+1 : len(p)-1])
		if err != nil || n < 1 {
			return s, false
		}
		s.index = n
		p = p[:i]
	}
	switch p {
	case "":
		return s, false
	case "text()":
		s.kind = stepText
	case "comment()":
		s.kind = stepComment
	default:
		if strings.ContainsAny(p, "()@*:") {
			return s, false
		}
		s.kind = stepElement
		s.name = strings.ToLower(p)
	}
	return s, true
}

func (s step) matches(n *html.Node) bool {
	switch s.kind {
	case stepText:
		return n.Type == html.TextNode
	case stepComment:
		return n.Type == html.CommentNode
	default:
		return n.Type == html.ElementNode && n.Data == s.name
	}
}

// child returns the index-th matching child of parent, or nil.
func (s step) child(parent *html.Node) *html.Node {
	i := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if s.matches(c) {
			i++
			if i == s.index {
				return c
			}
		}
	}
	return nil
}

// XPathOf returns the location of n from the document root, in the form Resolve accepts.
// Nodes not attached to a document yield "".
func XPathOf(n *html.Node) string {
	var parts []string
	attached := false
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		var s step
		switch cur.Type {
		case html.ElementNode:
			s = step{kind: stepElement, name: cur.Data}
		case html.TextNode:
			s = step{kind: stepText}
		case html.CommentNode:
			s = step{kind: stepComment}
		default:
			return ""
		}
		idx, total := 0, 0
		for c := cur.Parent.FirstChild; c != nil; c = c.NextSibling {
			if s.matches(c) {
				total++
				if c == cur {
					idx = total
				}
			}
		}
		part := s.name
		switch s.kind {
		case stepText:
			part = "text()"
		case stepComment:
			part = "comment()"
		}
		if total > 1 {
			part += "[" + strconv.Itoa(idx) + "]"
		}
		parts = append(parts, part)
		if cur.Parent.Type == html.DocumentNode {
			attached = true
			break
		}
	}
	if !attached {
		return ""
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return "/" + strings.Join(parts, "/")
}
