// Package quota accounts remote API cost units against a rolling daily budget.
//
// A [Tracker] is shared, mutable process state: construct one per platform credential pool and pass it to every
// remote client that draws from that pool.
package quota

import (
	"fmt"
	"sync"
	"time"

	"github.com/unnipv/musync/internal/metrics"
	"github.com/unnipv/musync/internal/shared"
)

// OpType classifies a remote call by cost.
type OpType string

const (
	ReadLight OpType = "read_light"
	ReadHeavy OpType = "read_heavy"
	Search    OpType = "search"
	Write     OpType = "write"
	Delete    OpType = "delete"
)

const (
	DefaultDailyBudget     = 10000
	DefaultSafetyThreshold = 0.9
	Window                 = 24 * time.Hour
)

// DefaultCosts mirrors the published YouTube Data API v3 unit costs.
var DefaultCosts = map[OpType]int{
	ReadLight: 1,
	ReadHeavy: 100,
	Search:    100,
	Write:     50,
	Delete:    50,
}

// Entry is one recorded consumption.
type Entry struct {
	Timestamp time.Time
	Units     int
}

// Tracker holds an append-only log of [Entry] pruned to the trailing [Window].
type Tracker struct {
	mu      sync.Mutex
	name    string
	budget  int
	safety  float64
	costs   map[OpType]int
	entries []Entry
	now     func() time.Time
}

// Option configures a [Tracker].
type Option func(*Tracker)

// WithBudget sets the daily unit budget.
func WithBudget(units int) Option {
	return func(t *Tracker) {
		if units > 0 {
			t.budget = units
		}
	}
}

// WithSafetyThreshold sets the fraction of the budget that may be consumed.
func WithSafetyThreshold(f float64) Option {
	return func(t *Tracker) {
		if f > 0 && f <= 1 {
			t.safety = f
		}
	}
}

// WithCosts overrides per-operation costs; unspecified operations keep their defaults.
func WithCosts(costs map[OpType]int) Option {
	return func(t *Tracker) {
		for op, c := range costs {
			if c >= 0 {
				t.costs[op] = c
			}
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a tracker; name labels its metrics and errors (usually the platform).
func New(name string, opts ...Option) *Tracker {
	t := &Tracker{
		name:   name,
		budget: DefaultDailyBudget,
		safety: DefaultSafetyThreshold,
		costs:  make(map[OpType]int, len(DefaultCosts)),
		now:    time.Now,
	}
	for op, c := range DefaultCosts {
		t.costs[op] = c
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the label the tracker was created with.
func (t *Tracker) Name() string { return t.name }

// Cost returns the units charged for count operations of op. Unknown operations cost as a light read.
func (t *Tracker) Cost(op OpType, count int) int {
	if count < 1 {
		count = 1
	}
	c, ok := t.costs[op]
	if !ok {
		c = t.costs[ReadLight]
	}
	return c * count
}

// Limit is the usable portion of the daily budget.
func (t *Tracker) Limit() int {
	return int(float64(t.budget) * t.safety)
}

// RecordUsage appends the cost of count operations of op and returns the units recorded.
func (t *Tracker) RecordUsage(op OpType, count int) int {
	return t.RecordUnits(t.Cost(op, count))
}

// RecordUnits appends a raw unit amount, used for penalties that do not map to one operation.
func (t *Tracker) RecordUnits(units int) int {
	if units <= 0 {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.prune(now)
	t.entries = append(t.entries, Entry{Timestamp: now, Units: units})
	metrics.QuotaUnits.WithLabelValues(t.name).Add(float64(units))
	return units
}

// Used sums entries within the trailing window.
func (t *Tracker) Used() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.used(t.now())
}

// Remaining is the number of units left under [Tracker.Limit], never negative.
func (t *Tracker) Remaining() int {
	return max(t.Limit()-t.Used(), 0)
}

// WouldExceed reports whether count operations of op would push usage past the safety limit.
func (t *Tracker) WouldExceed(op OpType, count int) bool {
	cost := t.Cost(op, count)

	t.mu.Lock()
	defer t.mu.Unlock()
	return float64(t.used(t.now())+cost) > float64(t.budget)*t.safety
}

// CheckBeforeOperation fails with [shared.ErrQuotaExceeded] when [Tracker.WouldExceed] is true.
// It records nothing; callers record usage only after the call succeeds.
func (t *Tracker) CheckBeforeOperation(op OpType, count int) error {
	if t.WouldExceed(op, count) {
		metrics.QuotaRejections.WithLabelValues(t.name).Inc()
		return fmt.Errorf("%w: %s %s x%d needs %d units, %d of %d left", shared.ErrQuotaExceeded,
			t.name, op, max(count, 1), t.Cost(op, count), t.Remaining(), t.Limit())
	}
	return nil
}

// Entries returns a copy of the in-window log.
func (t *Tracker) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune(t.now())
	return append([]Entry(nil), t.entries...)
}

func (t *Tracker) used(now time.Time) int {
	t.prune(now)
	total := 0
	for _, e := range t.entries {
		total += e.Units
	}
	return total
}

// prune drops entries older than the window. Entries are appended in time order.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-Window)
	i := 0
	for i < len(t.entries) && !t.entries[i].Timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		t.entries = append(t.entries[:0], t.entries[i:]...)
	}
}
