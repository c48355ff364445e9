// Package dom keeps an in-memory mirror of an observed page and turns
// relayed mutation batches into the added/changed records the router consumes.
package dom

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/yourusername/ecowatch/internal/mutation"
)

// Kind says whether a Record carries a freshly inserted subtree or a node whose content changed.
type Kind int

const (
	Added Kind = iota
	Changed
)

func (k Kind) String() string {
	if k == Added {
		return "added"
	}
	return "changed"
}

// Record is one mutation as seen by the router.
type Record struct {
	Kind Kind
	Node *html.Node
}

// Document is a mirrored page. It is not safe for concurrent use; a session
// owns exactly one and touches it from a single goroutine.
type Document struct {
	root *html.Node
}

// Load parses a page snapshot.
func Load(src string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("dom.Load: %w", err)
	}
	return &Document{root: root}, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// DocumentElement returns the <html> element, or nil.
func (d *Document) DocumentElement() *html.Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// Attached reports whether n is still part of the mirrored tree.
func (d *Document) Attached(n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == d.root {
			return true
		}
	}
	return false
}

// Resolve walks xpath from the document root. "" is the document itself.
func (d *Document) Resolve(xpath string) *html.Node {
	steps, ok := parseXPath(xpath)
	if !ok {
		return nil
	}
	n := d.root
	for _, s := range steps {
		if n = s.child(n); n == nil {
			return nil
		}
	}
	return n
}

// Apply mutates the mirror with every record of b, in order, and returns the
// resulting router records. Records that cannot be applied are counted in skipped.
func (d *Document) Apply(b *mutation.Batch) (out []Record, skipped int) {
	if b == nil {
		return nil, 0
	}
	for i := range b.Records {
		recs, ok := d.applyOne(&b.Records[i])
		if !ok {
			skipped++
			continue
		}
		out = append(out, recs...)
	}
	return out, skipped
}

func (d *Document) applyOne(r *mutation.Record) (out []Record, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			out, ok = nil, false
		}
	}()

	switch r.Op {
	case mutation.OpInsert:
		return d.insert(r)
	case mutation.OpRemove:
		n := d.Resolve(r.XPath)
		if n == nil || n.Parent == nil {
			return nil, false
		}
		parent := n.Parent
		parent.RemoveChild(n)
		return []Record{{Kind: Changed, Node: parent}}, true
	case mutation.OpText:
		n := d.Resolve(r.XPath)
		if n == nil {
			return nil, false
		}
		switch n.Type {
		case html.TextNode, html.CommentNode:
			n.Data = r.Value
		case html.ElementNode:
			setTextContent(n, r.Value)
		default:
			return nil, false
		}
		return []Record{{Kind: Changed, Node: n}}, true
	case mutation.OpAttr, mutation.OpAttrDel:
		n := d.Resolve(r.XPath)
		if n == nil || n.Type != html.ElementNode || r.Name == "" {
			return nil, false
		}
		if r.Op == mutation.OpAttr {
			SetAttr(n, r.Name, r.Value)
		} else {
			removeAttr(n, r.Name)
		}
		return []Record{{Kind: Changed, Node: n}}, true
	case mutation.OpDocReset:
		if r.HTML == "" {
			return nil, false
		}
		root, err := html.Parse(strings.NewReader(r.HTML))
		if err != nil {
			return nil, false
		}
		d.root = root
		el := d.DocumentElement()
		if el == nil {
			return nil, true
		}
		return []Record{{Kind: Added, Node: el}}, true
	}
	return nil, false
}

// insert places the new node so that it ends up at r.XPath: before the node
// currently occupying that position, or last if there is none.
func (d *Document) insert(r *mutation.Record) ([]Record, bool) {
	steps, ok := parseXPath(r.XPath)
	if !ok || len(steps) == 0 {
		return nil, false
	}
	parent := d.root
	for _, s := range steps[:len(steps)-1] {
		if parent = s.child(parent); parent == nil {
			return nil, false
		}
	}
	last := steps[len(steps)-1]
	before := last.child(parent)

	nodes, err := buildNodes(r, parent, last)
	if err != nil || len(nodes) == 0 {
		return nil, false
	}
	out := make([]Record, 0, len(nodes)+1)
	for _, n := range nodes {
		parent.InsertBefore(n, before)
		if n.Type == html.ElementNode {
			out = append(out, Record{Kind: Added, Node: n})
		}
	}
	return append(out, Record{Kind: Changed, Node: parent}), true
}

func buildNodes(r *mutation.Record, parent *html.Node, last step) ([]*html.Node, error) {
	switch {
	case r.NodeType == 3 || last.kind == stepText:
		v := r.Value
		if v == "" {
			v = r.HTML
		}
		return []*html.Node{{Type: html.TextNode, Data: v}}, nil
	case r.NodeType == 8 || last.kind == stepComment:
		return []*html.Node{{Type: html.CommentNode, Data: r.Value}}, nil
	case r.HTML != "":
		ctx := parent
		if ctx.Type != html.ElementNode {
			ctx = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
		}
		return html.ParseFragment(strings.NewReader(r.HTML), ctx)
	case r.Tag != "":
		tag := strings.ToLower(r.Tag)
		return []*html.Node{{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}}, nil
	}
	return nil, fmt.Errorf("dom.buildNodes: empty insert at %q", r.XPath)
}

// SetAttr sets or replaces an attribute on n.
func SetAttr(n *html.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	n.Attr = attrs
}

func setTextContent(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}
