// Package ingest accepts browser relay connections and runs one observer
// session per connection.
package ingest

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yourusername/ecowatch/internal/intent"
	"github.com/yourusername/ecowatch/internal/observer"
)

const (
	maxFrameSize = 8 << 20 // snapshots carry a whole page
	pongWait     = 60 * time.Second
	pingPeriod   = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 16 << 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hello is the first message written to a relay: the id of its session.
type Hello struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// peer is one relay connection. send is closed exactly once, under mu.
type peer struct {
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func (p *peer) write(v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.send <- b:
	default:
		log.Printf("ingest: relay send buffer full, dropping message")
	}
}

// Present writes an intent back to the relay.
func (p *peer) Present(in intent.Intent) { p.write(in) }

func (p *peer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.send)
	}
}

// Server runs observer sessions for relay connections.
type Server struct {
	ctx   context.Context
	deps  observer.Deps
	extra intent.Presenter

	mu    sync.RWMutex
	peers map[*peer]*observer.Session
}

// New creates a Server. Sessions use deps for everything except Presenter:
// intents go back to the originating relay and to extra (may be nil).
// Sessions end when ctx is cancelled.
func New(ctx context.Context, deps observer.Deps, extra intent.Presenter) *Server {
	return &Server{ctx: ctx, deps: deps, extra: extra, peers: make(map[*peer]*observer.Session)}
}

// SessionCount returns the number of live relay sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.peers)
}

// Present fans an intent out to every live relay. Used for budget alerts.
func (s *Server) Present(in intent.Intent) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p := range s.peers {
		p.Present(in)
	}
}

// ServeWS upgrades a relay connection and starts its session.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ingest.ServeWS: upgrade: %v", err)
		return
	}
	p := &peer{conn: conn, send: make(chan []byte, 64)}

	deps := s.deps
	deps.Presenter = intent.Multi(p, s.extra)
	sess := observer.NewSession(deps)

	s.mu.Lock()
	s.peers[p] = sess
	s.mu.Unlock()

	p.write(Hello{Type: "session", SessionID: sess.ID})
	log.Printf("ingest: session %s opened from %s", sess.ID, r.RemoteAddr)

	ctx, cancel := context.WithCancel(s.ctx)
	frames := make(chan observer.Frame, 64)

	go s.writePump(p)
	go s.readPump(ctx, p, frames, cancel)
	go func() {
		err := sess.Run(ctx, frames)
		cancel()
		s.mu.Lock()
		delete(s.peers, p)
		s.mu.Unlock()
		p.close()
		c := sess.Counters()
		log.Printf("ingest: session %s closed (batches=%d records=%d skipped=%d inputs=%d, %v)",
			sess.ID, c.Batches, c.Records, c.Skipped, c.Inputs, err)
	}()
}

// readPump decodes relay frames into the session's channel. Undecodable
// frames are logged and dropped; the connection stays up.
func (s *Server) readPump(ctx context.Context, p *peer, frames chan<- observer.Frame, cancel context.CancelFunc) {
	defer func() {
		close(frames)
		cancel()
		p.conn.Close()
	}()
	p.conn.SetReadLimit(maxFrameSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
		var f observer.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			log.Printf("ingest.readPump: bad frame: %v", err)
			continue
		}
		select {
		case frames <- f:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) writePump(p *peer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-p.send:
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
