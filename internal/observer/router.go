// Package observer turns mirrored page mutations into usage deltas and
// drives the per-page nudge engine.
package observer

import (
	"log"

	"golang.org/x/net/html"

	"github.com/yourusername/ecowatch/internal/dom"
	"github.com/yourusername/ecowatch/internal/ledger"
	"github.com/yourusername/ecowatch/internal/site"
	"github.com/yourusername/ecowatch/internal/tokenizer"
)

// Sink receives usage deltas. Enqueue must not block.
type Sink interface {
	Enqueue(requests, tokens int)
}

// Role is the conversational role of a message element.
type Role int

const (
	User Role = iota
	AI
)

func (r Role) String() string {
	if r == User {
		return "user"
	}
	return "ai"
}

// Router classifies mutation records by role and forwards the growth of each
// message's estimated usage to a Sink.
type Router struct {
	adapter *site.Adapter
	ledger  *ledger.Ledger[html.Node]
	sink    Sink
}

// NewRouter creates a Router for one page.
func NewRouter(a *site.Adapter, l *ledger.Ledger[html.Node], sink Sink) *Router {
	if l == nil {
		l = ledger.New[html.Node]()
	}
	return &Router{adapter: a, ledger: l, sink: sink}
}

// Route processes one batch: every Added record first, then every Changed
// record, each in encounter order. Records that are malformed, detached from
// doc, or fault while being processed are skipped and counted.
func (r *Router) Route(doc *dom.Document, recs []dom.Record) (skipped int) {
	if r.adapter == nil {
		return 0
	}
	for _, kind := range []dom.Kind{dom.Added, dom.Changed} {
		for _, rec := range recs {
			if rec.Kind != kind {
				continue
			}
			if !r.routeOne(doc, rec) {
				skipped++
			}
		}
	}
	return skipped
}

func (r *Router) routeOne(doc *dom.Document, rec dom.Record) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("observer.Route: skipped %s record: %v", rec.Kind, p)
			ok = false
		}
	}()

	if rec.Node == nil {
		return false
	}
	if doc != nil && !doc.Attached(rec.Node) {
		return false
	}

	switch rec.Kind {
	case dom.Added:
		if rec.Node.Type != html.ElementNode {
			return false
		}
		for _, n := range r.adapter.UserMessages(rec.Node) {
			r.observe(n, User)
		}
		for _, n := range r.adapter.AIMessages(rec.Node) {
			r.observe(n, AI)
		}
	case dom.Changed:
		target := dom.ElementOf(rec.Node)
		if target == nil {
			return false
		}
		if n := dom.Closest(target, r.adapter.IsUserMessage); n != nil {
			r.observe(n, User)
		}
		if n := dom.Closest(target, r.adapter.IsAIMessage); n != nil {
			r.observe(n, AI)
		}
	default:
		return false
	}
	return true
}

// observe measures n and enqueues its growth. A user message seen for the
// first time also counts as one request.
func (r *Router) observe(n *html.Node, role Role) {
	text := dom.ExtractText(n)
	if text == "" {
		return
	}
	prev := r.ledger.Baseline(n)
	d := r.ledger.Delta(n, tokenizer.EstimateTokens(text))
	if d == 0 {
		return
	}
	req := 0
	if role == User && prev == 0 {
		req = 1
	}
	r.sink.Enqueue(req, d)
}
