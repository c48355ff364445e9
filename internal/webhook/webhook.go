// Package webhook fires outbound webhook events to configured URLs.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Target is one webhook URL, optionally limited to some events.
// WEBHOOK_URLS entries take the form "url" or "url#event1|event2".
type Target struct {
	URL    string   `json:"url"`
	Events []string `json:"events,omitempty"`
}

// Status is the outcome of the last delivery to a target.
type Status struct {
	URL        string    `json:"url"`
	LastStatus int       `json:"last_status"`
	LastFired  time.Time `json:"last_fired"`
}

// Dispatcher fires webhooks to a fixed set of targets.
type Dispatcher struct {
	targets []Target
	client  *http.Client
	delays  []time.Duration

	mu     sync.Mutex
	status map[string]Status
	wg     sync.WaitGroup
}

// ParseTargets parses WEBHOOK_URLS entries.
func ParseTargets(entries []string) []Target {
	var out []Target
	for _, e := range entries {
		url, events, _ := strings.Cut(e, "#")
		t := Target{URL: strings.TrimSpace(url)}
		if t.URL == "" {
			continue
		}
		for _, ev := range strings.Split(events, "|") {
			if ev = strings.TrimSpace(ev); ev != "" {
				t.Events = append(t.Events, ev)
			}
		}
		out = append(out, t)
	}
	return out
}

// New creates a Dispatcher with a default HTTP client.
func New(targets []Target) *Dispatcher {
	return &Dispatcher{
		targets: targets,
		client:  &http.Client{Timeout: 10 * time.Second},
		delays:  []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second},
		status:  make(map[string]Status),
	}
}

// Payload is the JSON body sent to webhook URLs.
type Payload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Fire sends an event to every matching target without blocking.
// Each delivery is retried 3x with exponential backoff (500ms, 1s, 2s).
func (d *Dispatcher) Fire(event string, data interface{}) {
	body, err := json.Marshal(Payload{Event: event, Timestamp: time.Now(), Data: data})
	if err != nil {
		log.Printf("webhook.Fire: marshal: %v", err)
		return
	}
	for _, t := range d.targets {
		if !t.matches(event) {
			continue
		}
		d.wg.Add(1)
		go d.fireOne(t.URL, body)
	}
}

// Wait blocks until every in-flight delivery finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// Statuses returns the last delivery outcome per URL.
func (d *Dispatcher) Statuses() []Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Status, 0, len(d.status))
	for _, t := range d.targets {
		if s, ok := d.status[t.URL]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (t Target) matches(event string) bool {
	if len(t.Events) == 0 {
		return true
	}
	for _, e := range t.Events {
		if e == event {
			return true
		}
	}
	return false
}

func (d *Dispatcher) fireOne(url string, body []byte) {
	defer d.wg.Done()
	var lastStatus int
	for i, delay := range d.delays {
		if i > 0 {
			time.Sleep(delay)
		}
		status, err := d.post(context.Background(), url, body)
		lastStatus = status
		if err == nil && status < 400 {
			break
		}
		log.Printf("webhook.fireOne: attempt %d to %s: status=%d err=%v", i+1, url, status, err)
	}
	d.mu.Lock()
	d.status[url] = Status{URL: url, LastStatus: lastStatus, LastFired: time.Now()}
	d.mu.Unlock()
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("webhook.post: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook.post: do: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// TestWebhook fires a test payload to a single URL, synchronously and without retries.
func (d *Dispatcher) TestWebhook(ctx context.Context, url string) error {
	body, _ := json.Marshal(Payload{
		Event:     "webhook.test",
		Timestamp: time.Now(),
		Data:      map[string]string{"message": "This is a test from ecowatch"},
	})
	status, err := d.post(ctx, url, body)
	if err != nil {
		return fmt.Errorf("webhook.TestWebhook: post: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("webhook.TestWebhook: server returned %d", status)
	}
	return nil
}
