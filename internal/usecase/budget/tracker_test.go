package budget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/keywordsense/internal/domain"
)

// --- Mock Store ---

type mockStore struct {
	mu     sync.Mutex
	data   map[string]int64
	getErr error
	setErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]int64)}
}

func (m *mockStore) IncrBy(_ context.Context, key string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] += val
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return 0, m.getErr
	}
	return m.data[key], nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// --- Tests ---

func TestTracker_RejectWhenExceeded(t *testing.T) {
	bt := NewTracker("test", 100, 0, ActionReject, zap.NewNop())
	bt.Record(100)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestTracker_WarnWhenExceeded(t *testing.T) {
	bt := NewTracker("test", 100, 0, ActionWarn, zap.NewNop())
	bt.Record(200)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil for warn action, got %v", err)
	}
}

func TestTracker_MonthlyReject(t *testing.T) {
	bt := NewTracker("test", 0, 500, ActionReject, zap.NewNop())
	bt.Record(500)

	if err := bt.Check(context.Background()); !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded for monthly limit, got %v", err)
	}
}

func TestTracker_Unlimited(t *testing.T) {
	bt := NewTracker("test", 0, 0, ActionReject, zap.NewNop())
	bt.Record(999999999)

	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected nil for unlimited budget, got %v", err)
	}
	if bt.RemainingDaily() != -1 || bt.RemainingMonthly() != -1 {
		t.Errorf("remaining = %d/%d, want -1/-1", bt.RemainingDaily(), bt.RemainingMonthly())
	}
}

func TestTracker_Remaining(t *testing.T) {
	bt := NewTracker("test", 1000, 10000, ActionWarn, zap.NewNop())
	bt.Record(300)

	if got := bt.RemainingDaily(); got != 700 {
		t.Errorf("daily remaining = %d, want 700", got)
	}
	if got := bt.RemainingMonthly(); got != 9700 {
		t.Errorf("monthly remaining = %d, want 9700", got)
	}

	bt.Record(5000)
	if got := bt.RemainingDaily(); got != 0 {
		t.Errorf("daily remaining after overshoot = %d, want 0", got)
	}
}

func TestTracker_DayRollover(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC)}
	bt := NewTracker("test", 100, 1000, ActionReject, zap.NewNop()).WithClock(clock.Now)

	bt.Record(100)
	if err := bt.Check(context.Background()); err == nil {
		t.Fatal("expected rejection before rollover")
	}

	clock.Advance(2 * time.Hour) // 2026-04-01 01:00, new day and new month
	if err := bt.Check(context.Background()); err != nil {
		t.Fatalf("expected counters reset after rollover, got %v", err)
	}
	if bt.DailyUsed() != 0 || bt.MonthlyUsed() != 0 {
		t.Errorf("used = %d/%d after rollover, want 0/0", bt.DailyUsed(), bt.MonthlyUsed())
	}
}

func TestTracker_WithStore_LoadsValues(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	store := newMockStore()
	store.data["keywordsense:budget:prov:daily:2026-10-14"] = 300
	store.data["keywordsense:budget:prov:monthly:2026-10"] = 5000

	bt := NewTracker("prov", 1000, 10000, ActionReject, zap.NewNop()).
		WithClock(clock.Now).
		WithStore(context.Background(), store)

	if bt.DailyUsed() != 300 {
		t.Errorf("daily_used = %d, want 300", bt.DailyUsed())
	}
	if bt.MonthlyUsed() != 5000 {
		t.Errorf("monthly_used = %d, want 5000", bt.MonthlyUsed())
	}
}

func TestTracker_WithStore_WriteBehind(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	store := newMockStore()
	bt := NewTracker("prov", 0, 0, ActionWarn, zap.NewNop()).
		WithClock(clock.Now).
		WithStore(context.Background(), store)

	bt.Record(42)
	bt.Record(8)

	if got := store.data["keywordsense:budget:prov:daily:2026-10-14"]; got != 50 {
		t.Errorf("persisted daily = %d, want 50", got)
	}
	if got := store.data["keywordsense:budget:prov:monthly:2026-10"]; got != 50 {
		t.Errorf("persisted monthly = %d, want 50", got)
	}
}

func TestTracker_StoreErrorsAreNotFatal(t *testing.T) {
	store := newMockStore()
	store.getErr = errors.New("connection refused")
	store.setErr = errors.New("connection refused")

	bt := NewTracker("prov", 1000, 0, ActionReject, zap.NewNop()).WithStore(context.Background(), store)
	bt.Record(10)

	if bt.DailyUsed() != 10 {
		t.Errorf("in-memory counter = %d, want 10", bt.DailyUsed())
	}
	if err := bt.Check(context.Background()); err != nil {
		t.Errorf("Check: %v", err)
	}
}

func TestTracker_PersistFailureLogsCause(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := newMockStore()
	bt := NewTracker("prov", 0, 0, ActionWarn, zap.New(core)).WithStore(context.Background(), store)

	store.setErr = errors.New("READONLY replica")
	bt.Record(5)

	for _, msg := range []string{"Failed to persist daily budget", "Failed to persist monthly budget"} {
		entries := logs.FilterMessage(msg).All()
		if len(entries) != 1 {
			t.Fatalf("%s: expected 1 entry, got %d", msg, len(entries))
		}
		fields := entries[0].ContextMap()
		if fields["error"] != "READONLY replica" {
			t.Errorf("%s: error field = %v", msg, fields["error"])
		}
		if fields["key"] == "" || fields["key"] == nil {
			t.Errorf("%s: missing key field", msg)
		}
	}
}

func TestTracker_ConcurrentRecord(t *testing.T) {
	bt := NewTracker("test", 0, 0, ActionWarn, zap.NewNop())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bt.Record(2)
		}()
	}
	wg.Wait()

	if bt.DailyUsed() != 100 {
		t.Errorf("daily_used = %d, want 100", bt.DailyUsed())
	}
}
