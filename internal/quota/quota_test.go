package quota

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/unnipv/musync/internal/shared"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(opts ...Option) (*Tracker, *clock) {
	c := &clock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	return New("test", append([]Option{WithClock(c.Now)}, opts...)...), c
}

func TestTracker(t *testing.T) {
	t.Run("empty tracker accepts a write", func(t *testing.T) {
		tr, _ := newTestTracker()
		if tr.WouldExceed(Write, 1) {
			t.Error("expected write to fit in an empty budget")
		}
		if err := tr.CheckBeforeOperation(Write, 1); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("safety threshold reached", func(t *testing.T) {
		tr, _ := newTestTracker()
		tr.RecordUnits(int(DefaultDailyBudget * DefaultSafetyThreshold))

		if !tr.WouldExceed(ReadLight, 1) {
			t.Error("expected light read to exceed the safety limit")
		}
		err := tr.CheckBeforeOperation(ReadLight, 1)
		if !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Errorf("expected ErrQuotaExceeded, got %v", err)
		}
	})

	t.Run("record usage by op cost", func(t *testing.T) {
		tc := []struct {
			op    OpType
			count int
			want  int
		}{
			{ReadLight, 1, 1},
			{ReadLight, 0, 1},
			{Search, 2, 200},
			{Write, 3, 150},
			{Delete, 1, 50},
			{OpType("unknown"), 4, 4},
		}
		for _, tt := range tc {
			tr, _ := newTestTracker()
			if got := tr.RecordUsage(tt.op, tt.count); got != tt.want {
				t.Errorf("RecordUsage(%s, %d) = %d, want %d", tt.op, tt.count, got, tt.want)
			}
			if got := tr.Used(); got != tt.want {
				t.Errorf("Used() after %s = %d, want %d", tt.op, got, tt.want)
			}
		}
	})

	t.Run("check does not record", func(t *testing.T) {
		tr, _ := newTestTracker()
		_ = tr.CheckBeforeOperation(Search, 5)
		if tr.Used() != 0 {
			t.Errorf("expected no usage, got %d", tr.Used())
		}
	})

	t.Run("entries expire after window", func(t *testing.T) {
		tr, c := newTestTracker()
		tr.RecordUsage(Search, 1)
		c.Advance(12 * time.Hour)
		tr.RecordUsage(Write, 1)

		if got := tr.Used(); got != 150 {
			t.Fatalf("Used() = %d, want 150", got)
		}

		c.Advance(12*time.Hour + time.Second)
		if got := tr.Used(); got != 50 {
			t.Errorf("Used() after first entry expired = %d, want 50", got)
		}
		if got := len(tr.Entries()); got != 1 {
			t.Errorf("expected 1 entry after prune, got %d", got)
		}
	})

	t.Run("custom budget and costs", func(t *testing.T) {
		tr, _ := newTestTracker(WithBudget(100), WithSafetyThreshold(0.5), WithCosts(map[OpType]int{Write: 10}))
		if tr.Limit() != 50 {
			t.Fatalf("Limit() = %d, want 50", tr.Limit())
		}
		tr.RecordUsage(Write, 5)
		if tr.WouldExceed(ReadLight, 0) != true {
			t.Error("expected any further call to exceed")
		}
		if tr.Remaining() != 0 {
			t.Errorf("Remaining() = %d, want 0", tr.Remaining())
		}
	})

	t.Run("concurrent recording", func(t *testing.T) {
		tr, _ := newTestTracker()
		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				tr.RecordUsage(ReadLight, 1)
				_ = tr.WouldExceed(Search, 1)
			}()
		}
		wg.Wait()
		if got := tr.Used(); got != 50 {
			t.Errorf("Used() = %d, want 50", got)
		}
	})
}
