package client

import (
	"sync"

	"github.com/SpaceTransformer/xgoals-framework/internal/metrics"

	"github.com/jonboulle/clockwork"
)

const dayLayout = "2006-01-02"

// DailyQuota counts successful API calls against a per-day ceiling.
// The count resets when the clock crosses into a new calendar day.
type DailyQuota struct {
	mu    sync.Mutex
	clock clockwork.Clock
	limit int
	used  int
	day   string
}

// NewDailyQuota creates a quota. A nil clock uses real time.
func NewDailyQuota(limit int, clock clockwork.Clock) *DailyQuota {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DailyQuota{
		clock: clock,
		limit: limit,
		day:   clock.Now().Format(dayLayout),
	}
}

// rollover must be called with mu held
func (q *DailyQuota) rollover() {
	today := q.clock.Now().Format(dayLayout)
	if today != q.day {
		q.day = today
		q.used = 0
		metrics.UpdateQuotaUsed(0)
	}
}

// Check returns ErrQuotaExceeded once today's ceiling is reached
func (q *DailyQuota) Check() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	if q.used >= q.limit {
		return ErrQuotaExceeded
	}
	return nil
}

// Record counts one successful call and returns today's total
func (q *DailyQuota) Record() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	q.used++
	metrics.UpdateQuotaUsed(q.used)
	return q.used
}

// Reset zeroes today's count
func (q *DailyQuota) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.day = q.clock.Now().Format(dayLayout)
	q.used = 0
	metrics.UpdateQuotaUsed(0)
}

// Used returns today's successful call count
func (q *DailyQuota) Used() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	return q.used
}

// Limit returns the daily ceiling
func (q *DailyQuota) Limit() int {
	return q.limit
}

// Remaining returns how many calls are left today
func (q *DailyQuota) Remaining() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	if q.used >= q.limit {
		return 0
	}
	return q.limit - q.used
}

// Day returns the calendar day the count refers to
func (q *DailyQuota) Day() string {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.rollover()
	return q.day
}
