package stats

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ecowatch/internal/config"
	"github.com/yourusername/ecowatch/internal/db"
	"github.com/yourusername/ecowatch/internal/store"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.Local)

func clock(t time.Time) func() time.Time { return func() time.Time { return t } }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "ecowatch_stats.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, database.Migrate())
	return store.New(database)
}

// failingKV simulates an unreachable store.
type failingKV struct{ calls int }

func (f *failingKV) Get(context.Context, ...string) (map[string]json.RawMessage, error) {
	f.calls++
	return nil, errors.New("store unreachable")
}

func (f *failingKV) Set(context.Context, map[string]any) error {
	f.calls++
	return errors.New("store unreachable")
}

func TestFlush_AddsToExistingTotalsAndToday(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, map[string]any{
		store.KeyTotalRequests: 2,
		store.KeyTotalTokens:   100,
	}))

	a := New(s, nil, WithClock(clock(fixedNow)))
	a.Enqueue(1, 25)
	a.Enqueue(2, 15)

	d, err := a.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, Delta{Requests: 3, Tokens: 40}, d)

	totals, err := a.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, totals.Requests)
	assert.Equal(t, 140, totals.Tokens)

	daily, err := a.Daily(ctx)
	require.NoError(t, err)
	assert.Equal(t, DayBucket{Requests: 3, Tokens: 40}, daily["2026-10-16"])
	assert.True(t, a.Pending().IsZero())
}

func TestFlush_EmptyBufferIsNoop(t *testing.T) {
	kv := &failingKV{}
	a := New(kv, nil)
	d, err := a.Flush(context.Background())
	require.NoError(t, err)
	assert.True(t, d.IsZero())
	assert.Zero(t, kv.calls, "an empty buffer must not touch the store")
}

func TestFlush_DayResolvedAtFlushTime(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := fixedNow
	a := New(s, nil, WithClock(func() time.Time { return now }))

	a.Enqueue(1, 10)
	now = fixedNow.Add(24 * time.Hour)
	_, err := a.Flush(ctx)
	require.NoError(t, err)

	daily, err := a.Daily(ctx)
	require.NoError(t, err)
	assert.NotContains(t, daily, "2026-10-16")
	assert.Equal(t, DayBucket{Requests: 1, Tokens: 10}, daily["2026-10-17"])
}

func TestFlush_FailureDropsBufferAndDisables(t *testing.T) {
	kv := &failingKV{}
	a := New(kv, nil)
	ctx := context.Background()

	a.Enqueue(1, 50)
	_, err := a.Flush(ctx)
	require.Error(t, err)
	assert.True(t, a.Disabled())
	assert.True(t, a.Pending().IsZero(), "drained values are not restored")

	calls := kv.calls
	a.Enqueue(1, 5)
	_, err = a.Flush(ctx)
	assert.ErrorIs(t, err, ErrFlushDisabled)
	assert.Equal(t, calls, kv.calls, "no retry against the store")
}

func TestEnqueue_ClampsNegative(t *testing.T) {
	a := New(&failingKV{}, nil)
	a.Enqueue(-1, -10)
	a.Enqueue(0, 4)
	assert.Equal(t, Delta{Requests: 0, Tokens: 4}, a.Pending())
}

func TestIncrementAvoided(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := New(s, nil)

	require.NoError(t, a.IncrementAvoided(ctx))
	a.RecordAvoided()
	a.RecordAvoided()
	a.Wait()

	totals, err := a.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, totals.Avoided, "serialized read-modify-write loses no increments")
}

func TestIncrementAvoided_ConcurrentWithFlush(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := New(s, nil, WithClock(clock(fixedNow)))

	for i := 0; i < 5; i++ {
		a.Enqueue(1, 10)
		a.RecordAvoided()
		_, err := a.Flush(ctx)
		require.NoError(t, err)
	}
	a.Wait()

	totals, err := a.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{Requests: 5, Tokens: 50, Avoided: 5}, totals)
}

func TestMalformedStoredValuesReadAsZero(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, map[string]any{
		store.KeyTotalTokens: "lots",
		store.KeyDailyStats:  []int{1, 2},
	}))

	a := New(s, nil, WithClock(clock(fixedNow)))
	a.Enqueue(1, 8)
	_, err := a.Flush(ctx)
	require.NoError(t, err)

	totals, err := a.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8, totals.Tokens)
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, map[string]any{store.KeySettings: map[string]any{"whPerRequest": 5}}))

	a := New(s, nil, WithClock(clock(fixedNow)))
	a.Enqueue(2, 20)
	_, err := a.Flush(ctx)
	require.NoError(t, err)
	require.NoError(t, a.IncrementAvoided(ctx))

	require.NoError(t, a.Reset(ctx))

	exp, err := a.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{}, exp.Totals)
	assert.Empty(t, exp.Daily)

	vals, err := s.Get(ctx, store.KeySettings)
	require.NoError(t, err)
	assert.JSONEq(t, `{"whPerRequest":5}`, string(vals[store.KeySettings]), "settings survive a reset")
}

func TestBudgetStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	live := config.NewLive(config.DefaultSettings()) // 18 Wh/request, 0.8 kg/kWh

	a := New(s, live, WithClock(clock(fixedNow)))
	a.Enqueue(5, 100)
	_, err := a.Flush(ctx)
	require.NoError(t, err)

	st, err := a.BudgetStatus(ctx, 144)
	require.NoError(t, err)
	assert.Equal(t, "2026-10-16", st.Date)
	assert.Equal(t, 5, st.Requests)
	assert.InDelta(t, 72.0, st.Co2Grams, 1e-9)
	assert.InDelta(t, 0.5, st.Ratio, 1e-9)
	assert.InDelta(t, 50.0, st.Percent, 1e-9)

	zero, err := a.BudgetStatus(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, zero.Ratio)
}

func TestSummaryAndHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := fixedNow
	a := New(s, nil, WithClock(func() time.Time { return now }))

	a.Enqueue(1, 1000)
	_, err := a.Flush(ctx)
	require.NoError(t, err)
	now = fixedNow.Add(48 * time.Hour)
	a.Enqueue(2, 500)
	_, err = a.Flush(ctx)
	require.NoError(t, err)

	sum, err := a.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Totals.Requests)
	assert.InDelta(t, 5.625, sum.Impact.WaterLiters, 1e-9) // 1500 * 3.75 / 1000
	assert.InDelta(t, 54.0, sum.Impact.ElectricityWh, 1e-9)
	assert.InDelta(t, 0.0432, sum.Impact.Co2Kg, 1e-9)
	assert.Equal(t, "2026-10-18", sum.Today.Date)
	assert.Equal(t, 2, sum.Today.Requests)

	hist, err := a.History(ctx, 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, "2026-10-18", hist[0].Date)
	assert.Equal(t, "2026-10-16", hist[1].Date)

	hist, err = a.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, hist, 1)
}
