package observer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/dom"
	"github.com/yourusername/ecowatch/internal/intent"
	"github.com/yourusername/ecowatch/internal/ledger"
	"github.com/yourusername/ecowatch/internal/mutation"
	"github.com/yourusername/ecowatch/internal/nudge"
	"github.com/yourusername/ecowatch/internal/site"
	"github.com/yourusername/ecowatch/internal/tokenizer"
)

// ErrClosed is returned for frames delivered after a session stopped observing.
var ErrClosed = errors.New("observer: session closed")

// FrameType identifies a relay frame.
type FrameType string

const (
	FrameSnapshot FrameType = "snapshot" // initial page: URL + HTML
	FrameBatch    FrameType = "batch"    // mutation batch
	FrameInput    FrameType = "input"    // editor content changed
	FrameConcise  FrameType = "concise"  // floating "ask for a concise answer" button
	FrameClose    FrameType = "close"
)

// Frame is one message from the browser relay.
type Frame struct {
	Type  FrameType       `json:"type"`
	URL   string          `json:"url,omitempty"`
	HTML  string          `json:"html,omitempty"`
	Batch *mutation.Batch `json:"batch,omitempty"`
	XPath string          `json:"xpath,omitempty"`
	Text  string          `json:"text,omitempty"`
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Sites     *site.Table
	Settings  *config.Live
	Sink      Sink
	Avoided   nudge.AvoidedRecorder
	Presenter intent.Presenter
}

type discard struct{}

func (discard) Enqueue(int, int) {}

// Counters summarise what a session has processed.
type Counters struct {
	Batches int `json:"batches"`
	Records int `json:"records"`
	Skipped int `json:"skipped"`
	Inputs  int `json:"inputs"`
}

// Session is one observed page. All frames must be handled from one goroutine,
// either by calling Handle directly or through Run.
type Session struct {
	ID string

	deps    Deps
	adapter *site.Adapter
	doc     *dom.Document
	ledger  *ledger.Ledger[html.Node]
	router  *Router
	nudge   *nudge.Engine

	resolved bool
	closed   bool
	counters Counters
}

// NewSession creates a session waiting for its snapshot.
func NewSession(d Deps) *Session {
	if d.Sites == nil {
		d.Sites = site.Default()
	}
	if d.Presenter == nil {
		d.Presenter = intent.Discard
	}
	if d.Sink == nil {
		d.Sink = discard{}
	}
	return &Session{
		ID:     uuid.NewString(),
		deps:   d,
		ledger: ledger.New[html.Node](),
	}
}

// Adapter returns the resolved site adapter, nil while inert.
func (s *Session) Adapter() *site.Adapter { return s.adapter }

// Document returns the mirrored page, nil before the snapshot.
func (s *Session) Document() *dom.Document { return s.doc }

// Closed reports whether the session stopped observing.
func (s *Session) Closed() bool { return s.closed }

// Counters returns processing counters.
func (s *Session) Counters() Counters { return s.counters }

// Warning reports whether the nudge warning is visible.
func (s *Session) Warning() bool { return s.nudge != nil && s.nudge.Warning() }

// Run handles frames until the channel closes, a close frame arrives, or ctx
// is cancelled. The session is closed on return.
func (s *Session) Run(ctx context.Context, frames <-chan Frame) error {
	defer s.Close()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if err := s.Handle(f); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				log.Printf("observer.Run %s: %v", s.ID, err)
			}
		}
	}
}

// Handle processes a single frame.
func (s *Session) Handle(f Frame) error {
	if s.closed {
		return ErrClosed
	}
	switch f.Type {
	case FrameSnapshot:
		return s.snapshot(f)
	case FrameBatch:
		s.batch(f.Batch)
	case FrameInput:
		s.input(f.XPath, f.Text)
	case FrameConcise:
		s.concise(f.XPath, f.Text)
	case FrameClose:
		s.Close()
		return ErrClosed
	default:
		return fmt.Errorf("observer.Handle: unknown frame type %q", f.Type)
	}
	return nil
}

// Close stops observation permanently.
func (s *Session) Close() { s.closed = true }

func (s *Session) snapshot(f Frame) error {
	doc, err := dom.Load(f.HTML)
	if err != nil {
		return fmt.Errorf("observer.snapshot: %w", err)
	}
	s.doc = doc

	if s.resolved {
		return nil
	}
	s.resolved = true
	host := f.URL
	if u, err := url.Parse(f.URL); err == nil && u.Host != "" {
		host = u.Hostname()
	}
	s.adapter = s.deps.Sites.Resolve(host)
	if s.adapter == nil {
		log.Printf("observer.snapshot %s: no site adapter for %q, session inert", s.ID, host)
		return nil
	}
	s.router = NewRouter(s.adapter, s.ledger, s.deps.Sink)
	s.nudge = nudge.NewEngine(s.deps.Settings, s.deps.Presenter, s.deps.Avoided)
	log.Printf("observer.snapshot %s: observing %s as %s", s.ID, host, s.adapter.Name)
	return nil
}

func (s *Session) batch(b *mutation.Batch) {
	if s.router == nil || s.doc == nil || b == nil {
		return
	}
	recs, skipped := s.doc.Apply(b)
	skipped += s.router.Route(s.doc, recs)
	s.counters.Batches++
	s.counters.Records += len(b.Records)
	s.counters.Skipped += skipped
}

// input feeds the nudge engine. Targets the mirror knows to be neither
// editable nor the site's prompt editor are ignored.
func (s *Session) input(xpath, text string) {
	if s.nudge == nil {
		return
	}
	if s.doc != nil {
		if n := s.doc.Resolve(xpath); n != nil && !s.isEditor(n) {
			return
		}
	}
	s.counters.Inputs++
	s.nudge.HandleInput(xpath, text)
}

func (s *Session) isEditor(n *html.Node) bool {
	if dom.IsEditable(n) {
		return true
	}
	return dom.Closest(n, s.adapter.IsInput) != nil
}

// concise asks the page to rewrite the prompt with the concise-answer suffix.
func (s *Session) concise(xpath, text string) {
	if s.adapter == nil {
		return
	}
	suffix := config.DefaultSettings().AppendedConciseText
	if s.deps.Settings != nil {
		suffix = s.deps.Settings.Get().AppendedConciseText
	}
	out := tokenizer.AppendConcise(text, suffix)
	if out == text {
		return
	}
	s.deps.Presenter.Present(intent.Intent{Kind: intent.SetInput, Anchor: xpath, Text: out})
}
