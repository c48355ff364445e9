// Package scheduler wraps robfig/cron to run the periodic stats flush.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yourusername/ecowatch/internal/stats"
)

const flushTimeout = 10 * time.Second

// Flusher drains buffered usage into the store.
type Flusher interface {
	Flush(ctx context.Context) (stats.Delta, error)
}

// FlushHook runs after every flush that wrote a non-empty delta.
type FlushHook func(ctx context.Context, d stats.Delta)

// Engine manages the cron scheduler.
type Engine struct {
	cron     *cron.Cron
	flusher  Flusher
	interval time.Duration
	hooks    []FlushHook

	mu      sync.Mutex
	entry   cron.EntryID
	active  bool
	stopped bool
}

// New creates a cron-based Engine flushing every interval.
func New(f Flusher, interval time.Duration, hooks ...FlushHook) *Engine {
	logger := cron.PrintfLogger(log.Default())
	return &Engine{
		cron:     cron.New(cron.WithLogger(logger), cron.WithChain(cron.SkipIfStillRunning(logger))),
		flusher:  f,
		interval: interval,
		hooks:    hooks,
	}
}

// Start registers the flush job and starts the cron engine.
// The engine stops, with a final flush, when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", e.interval)
	id, err := e.cron.AddFunc(spec, e.job(ctx))
	if err != nil {
		return fmt.Errorf("scheduler.Start: %w", err)
	}
	e.mu.Lock()
	e.entry, e.active = id, true
	e.mu.Unlock()

	e.cron.Start()
	go func() {
		<-ctx.Done()
		e.Stop(context.Background())
	}()
	return nil
}

// job runs one flush per tick. Ticks detach from ctx cancellation so a tick
// racing shutdown still writes; Stop owns the last flush.
func (e *Engine) job(ctx context.Context) func() {
	base := context.WithoutCancel(ctx)
	return func() {
		tctx, cancel := context.WithTimeout(base, flushTimeout)
		defer cancel()
		_ = e.RunOnce(tctx)
	}
}

// Active reports whether periodic flushing is still scheduled.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// RunOnce performs one flush and runs the hooks. A failed flush removes the
// periodic job for the rest of the process lifetime.
func (e *Engine) RunOnce(ctx context.Context) error {
	d, err := e.flusher.Flush(ctx)
	if err != nil {
		e.disable(err)
		return err
	}
	if d.IsZero() {
		return nil
	}
	for _, h := range e.hooks {
		h(ctx, d)
	}
	return nil
}

func (e *Engine) disable(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.active {
		return
	}
	e.active = false
	e.cron.Remove(e.entry)
	if errors.Is(err, stats.ErrFlushDisabled) {
		log.Printf("scheduler: flushing already disabled, job removed")
		return
	}
	log.Printf("scheduler: flush failed, periodic flushing disabled: %v", err)
}

// Stop halts the cron engine, waits for a running flush, and flushes once
// more unless flushing was disabled. Safe to call more than once.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	active := e.active
	e.mu.Unlock()

	<-e.cron.Stop().Done()
	if !active {
		return
	}
	if err := e.RunOnce(ctx); err != nil {
		log.Printf("scheduler.Stop: final flush: %v", err)
	}
}
