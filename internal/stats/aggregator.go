// Package stats buffers usage deltas in memory and reconciles them with the
// persistent store: running totals, per-day buckets, and the avoided counter.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/store"
)

// DayLayout is the calendar-day key format (local time).
const DayLayout = "2006-01-02"

// ErrFlushDisabled is returned by Flush once a persistence failure has
// switched flushing off for the rest of the process.
var ErrFlushDisabled = errors.New("stats: flushing disabled after store failure")

// Delta is a pending request/usage increment.
type Delta struct {
	Requests int `json:"requests"`
	Tokens   int `json:"tokens"`
}

// IsZero reports whether d carries nothing.
func (d Delta) IsZero() bool { return d.Requests == 0 && d.Tokens == 0 }

// DayBucket is one calendar day's counters.
type DayBucket struct {
	Requests int `json:"requests"`
	Tokens   int `json:"tokens"`
}

// Totals are the lifetime counters.
type Totals struct {
	Requests int `json:"total_requests"`
	Tokens   int `json:"total_tokens"`
	Avoided  int `json:"total_avoided"`
}

// Aggregator owns the pending buffer and every read-modify-write against the store.
type Aggregator struct {
	kv       store.KV
	settings *config.Live
	now      func() time.Time

	mu      sync.Mutex // guards pending
	pending Delta

	rmw      sync.Mutex // serializes read-modify-write sequences on kv
	disabled atomic.Bool
	inflight sync.WaitGroup
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the clock used to resolve "today".
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New creates an Aggregator over kv. settings may be nil (defaults apply).
func New(kv store.KV, settings *config.Live, opts ...Option) *Aggregator {
	if settings == nil {
		settings = config.NewLive(config.DefaultSettings())
	}
	a := &Aggregator{kv: kv, settings: settings, now: time.Now}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Enqueue adds to the pending buffer. Negative contributions are clamped to 0.
func (a *Aggregator) Enqueue(requests, tokens int) {
	if requests < 0 {
		requests = 0
	}
	if tokens < 0 {
		tokens = 0
	}
	a.mu.Lock()
	a.pending.Requests += requests
	a.pending.Tokens += tokens
	a.mu.Unlock()
}

// Pending returns the buffered, not yet flushed delta.
func (a *Aggregator) Pending() Delta {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// Disabled reports whether flushing has been switched off.
func (a *Aggregator) Disabled() bool { return a.disabled.Load() }

// Flush drains the buffer into the running totals and today's bucket.
// An empty buffer is a no-op and returns a zero Delta. If the store cannot be
// reached the drained values are dropped and flushing is disabled for good.
func (a *Aggregator) Flush(ctx context.Context) (Delta, error) {
	if a.disabled.Load() {
		return Delta{}, ErrFlushDisabled
	}

	a.mu.Lock()
	d := a.pending
	a.pending = Delta{}
	a.mu.Unlock()

	if d.IsZero() {
		return Delta{}, nil
	}
	if err := a.apply(ctx, d); err != nil {
		a.disabled.Store(true)
		return Delta{}, fmt.Errorf("stats.Flush: %w", err)
	}
	return d, nil
}

func (a *Aggregator) apply(ctx context.Context, d Delta) error {
	a.rmw.Lock()
	defer a.rmw.Unlock()

	vals, err := a.kv.Get(ctx, store.KeyTotalRequests, store.KeyTotalTokens, store.KeyDailyStats)
	if err != nil {
		return err
	}
	daily := decodeDaily(vals[store.KeyDailyStats])
	day := a.now().Format(DayLayout)
	b := daily[day]
	b.Requests += d.Requests
	b.Tokens += d.Tokens
	daily[day] = b

	return a.kv.Set(ctx, map[string]any{
		store.KeyTotalRequests: decodeInt(store.KeyTotalRequests, vals[store.KeyTotalRequests]) + d.Requests,
		store.KeyTotalTokens:   decodeInt(store.KeyTotalTokens, vals[store.KeyTotalTokens]) + d.Tokens,
		store.KeyDailyStats:    daily,
	})
}

// IncrementAvoided adds one to the avoided counter immediately, bypassing the buffer.
func (a *Aggregator) IncrementAvoided(ctx context.Context) error {
	a.rmw.Lock()
	defer a.rmw.Unlock()

	vals, err := a.kv.Get(ctx, store.KeyTotalAvoided)
	if err != nil {
		return fmt.Errorf("stats.IncrementAvoided: %w", err)
	}
	n := decodeInt(store.KeyTotalAvoided, vals[store.KeyTotalAvoided]) + 1
	if err := a.kv.Set(ctx, map[string]any{store.KeyTotalAvoided: n}); err != nil {
		return fmt.Errorf("stats.IncrementAvoided: %w", err)
	}
	log.Printf("stats: waste avoided, count=%d", n)
	return nil
}

// RecordAvoided is the fire-and-forget form of IncrementAvoided.
func (a *Aggregator) RecordAvoided() {
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.IncrementAvoided(ctx); err != nil {
			log.Printf("stats.RecordAvoided: %v", err)
		}
	}()
}

// Wait blocks until every fire-and-forget write has finished.
func (a *Aggregator) Wait() { a.inflight.Wait() }

// Totals reads the lifetime counters.
func (a *Aggregator) Totals(ctx context.Context) (Totals, error) {
	vals, err := a.kv.Get(ctx, store.KeyTotalRequests, store.KeyTotalTokens, store.KeyTotalAvoided)
	if err != nil {
		return Totals{}, fmt.Errorf("stats.Totals: %w", err)
	}
	return Totals{
		Requests: decodeInt(store.KeyTotalRequests, vals[store.KeyTotalRequests]),
		Tokens:   decodeInt(store.KeyTotalTokens, vals[store.KeyTotalTokens]),
		Avoided:  decodeInt(store.KeyTotalAvoided, vals[store.KeyTotalAvoided]),
	}, nil
}

// Daily reads every stored day bucket.
func (a *Aggregator) Daily(ctx context.Context) (map[string]DayBucket, error) {
	vals, err := a.kv.Get(ctx, store.KeyDailyStats)
	if err != nil {
		return nil, fmt.Errorf("stats.Daily: %w", err)
	}
	return decodeDaily(vals[store.KeyDailyStats]), nil
}

// Today returns the current day key and its bucket.
func (a *Aggregator) Today(ctx context.Context) (string, DayBucket, error) {
	daily, err := a.Daily(ctx)
	if err != nil {
		return "", DayBucket{}, err
	}
	day := a.now().Format(DayLayout)
	return day, daily[day], nil
}

// Reset zeroes the lifetime counters and clears the day buckets.
// Settings are left untouched. Pending deltas are discarded as well.
func (a *Aggregator) Reset(ctx context.Context) error {
	a.mu.Lock()
	a.pending = Delta{}
	a.mu.Unlock()

	a.rmw.Lock()
	defer a.rmw.Unlock()
	err := a.kv.Set(ctx, map[string]any{
		store.KeyTotalRequests: 0,
		store.KeyTotalTokens:   0,
		store.KeyTotalAvoided:  0,
		store.KeyDailyStats:    map[string]DayBucket{},
	})
	if err != nil {
		return fmt.Errorf("stats.Reset: %w", err)
	}
	return nil
}

func decodeInt(key string, raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil || f < 0 {
		log.Printf("stats: ignoring malformed %s=%s", key, raw)
		return 0
	}
	return int(f)
}

func decodeDaily(raw json.RawMessage) map[string]DayBucket {
	daily := make(map[string]DayBucket)
	if len(raw) == 0 {
		return daily
	}
	if err := json.Unmarshal(raw, &daily); err != nil {
		log.Printf("stats: ignoring malformed dailyStats: %v", err)
		return make(map[string]DayBucket)
	}
	return daily
}
