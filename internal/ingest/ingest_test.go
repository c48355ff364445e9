package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/intent"
	"github.com/yourusername/ecowatch/internal/mutation"
	"github.com/yourusername/ecowatch/internal/observer"
	"github.com/yourusername/ecowatch/internal/site"
)

type sink struct {
	mu     sync.Mutex
	req    int
	tokens int
}

func (s *sink) Enqueue(req, tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.req += req
	s.tokens += tokens
}

func (s *sink) totals() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.req, s.tokens
}

func start(t *testing.T) (*Server, *sink, *websocket.Conn) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	sk := &sink{}
	srv := New(ctx, observer.Deps{
		Sites:    site.Default(),
		Settings: config.NewLive(config.DefaultSettings()),
		Sink:     sk,
	}, nil)
	hs := httptest.NewServer(http.HandlerFunc(srv.ServeWS))
	t.Cleanup(hs.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(hs.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello Hello
	readJSON(t, conn, &hello)
	assert.Equal(t, "session", hello.Type)
	assert.NotEmpty(t, hello.SessionID)
	return srv, sk, conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func send(t *testing.T, conn *websocket.Conn, f observer.Frame) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(f))
}

func TestRelaySession(t *testing.T) {
	srv, sk, conn := start(t)
	assert.Equal(t, 1, srv.SessionCount())

	send(t, conn, observer.Frame{
		Type: observer.FrameSnapshot,
		URL:  "https://chatgpt.com/c/1",
		HTML: `<html><body><main></main><textarea id="prompt-textarea"></textarea></body></html>`,
	})
	send(t, conn, observer.Frame{Type: observer.FrameBatch, Batch: &mutation.Batch{Records: []mutation.Record{{
		Op:    mutation.OpInsert,
		XPath: "/html/body/main/div",
		HTML:  `<div data-message-author-role="user">abcdabcdabcd</div>`,
	}}}})
	send(t, conn, observer.Frame{Type: observer.FrameInput, XPath: "/html/body/textarea", Text: "aaaa"})

	var in intent.Intent
	readJSON(t, conn, &in)
	assert.Equal(t, intent.ShowWarning, in.Kind)
	assert.Equal(t, "/html/body/textarea", in.Anchor)

	req, tokens := sk.totals()
	assert.Equal(t, 1, req)
	assert.Equal(t, 3, tokens)

	srv.Present(intent.Intent{Kind: intent.BudgetAlert, Percent: 90, Zone: "orange"})
	readJSON(t, conn, &in)
	assert.Equal(t, intent.BudgetAlert, in.Kind)
	assert.Equal(t, 90.0, in.Percent)

	send(t, conn, observer.Frame{Type: observer.FrameClose})
	assert.Eventually(t, func() bool { return srv.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBadFrameKeepsConnection(t *testing.T) {
	srv, _, conn := start(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	send(t, conn, observer.Frame{Type: observer.FrameSnapshot, URL: "https://claude.ai/chat", HTML: `<body></body>`})
	send(t, conn, observer.Frame{Type: observer.FrameConcise, XPath: "/html/body", Text: "Summarize"})

	var in intent.Intent
	readJSON(t, conn, &in)
	assert.Equal(t, intent.SetInput, in.Kind)
	assert.Equal(t, "Summarize\nPlease answer concisely.", in.Text)
	assert.Equal(t, 1, srv.SessionCount())
}

func TestClientDisconnectEndsSession(t *testing.T) {
	srv, _, conn := start(t)
	conn.Close()
	assert.Eventually(t, func() bool { return srv.SessionCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
