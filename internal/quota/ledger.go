// Package quota implements the per-user request budget that guards the
// expensive window-sticker fetch.
//
// Every user may hold at most Max reservations inside a rolling Window. A
// reservation is taken before the fetch starts and is either kept (the
// result was delivered) or rolled back (the fetch failed). Rollback is keyed
// by the reservation token so concurrent lookups of the same user cannot
// remove each other's slots.
//
// State is process local and is lost on restart.
package quota

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Window is the rolling period reservations count against.
const Window = 24 * time.Hour

// Reservation is one consumed unit of a user's budget.
type Reservation struct {
	ID     string
	UserID int64
	At     time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// Ledger tracks reservations per user. The zero value is not usable; call
// NewLedger.
type Ledger struct {
	max int
	now func() time.Time

	mu      sync.RWMutex
	entries map[int64]*entry
}

type stamp struct {
	id string
	at time.Time
}

// entry holds one user's reservations in insertion order.
type entry struct {
	mu     sync.Mutex
	stamps []stamp
}

// NewLedger returns a ledger allowing maxRequests reservations per user per
// Window. A non-positive maxRequests denies every reservation.
func NewLedger(maxRequests int, opts ...Option) *Ledger {
	if maxRequests < 0 {
		maxRequests = 0
	}
	l := &Ledger{
		max:     maxRequests,
		now:     time.Now,
		entries: make(map[int64]*entry),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Max returns the per-user limit.
func (l *Ledger) Max() int { return l.max }

// Remaining returns how many reservations userID may still take right now.
// It never mutates state.
func (l *Ledger) Remaining(userID int64) int {
	e := l.lookup(userID)
	if e == nil {
		return l.max
	}
	now := l.now()

	e.mu.Lock()
	live := liveCount(e.stamps, now)
	e.mu.Unlock()

	if r := l.max - live; r > 0 {
		return r
	}
	return 0
}

// TryReserve takes one slot for userID if the budget allows it. The check
// and the append happen under the user's lock, so two concurrent calls can
// never both take the last slot.
func (l *Ledger) TryReserve(userID int64) (Reservation, bool) {
	e := l.getOrCreate(userID)

	e.mu.Lock()
	defer e.mu.Unlock()
	now := l.now()

	e.stamps = purge(e.stamps, now)
	if len(e.stamps) >= l.max {
		reservationsTotal.WithLabelValues("denied").Inc()
		return Reservation{}, false
	}

	r := Reservation{ID: uuid.NewString(), UserID: userID, At: now}
	e.stamps = append(e.stamps, stamp{id: r.ID, at: now})
	reservationsTotal.WithLabelValues("granted").Inc()
	return r, true
}

// Rollback returns the slot held by r. Unknown or already rolled back
// reservations are ignored.
func (l *Ledger) Rollback(r Reservation) {
	if r.ID == "" {
		return
	}
	e := l.lookup(r.UserID)
	if e == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	now := l.now()

	e.stamps = purge(e.stamps, now)
	for i, s := range e.stamps {
		if s.id == r.ID {
			e.stamps = append(e.stamps[:i], e.stamps[i+1:]...)
			reservationsTotal.WithLabelValues("rolled_back").Inc()
			return
		}
	}
}

// ResetAt returns when the oldest live reservation of userID leaves the
// window. It returns the zero time when the user has a free slot.
func (l *Ledger) ResetAt(userID int64) time.Time {
	e := l.lookup(userID)
	if e == nil {
		return time.Time{}
	}
	now := l.now()

	e.mu.Lock()
	defer e.mu.Unlock()

	var oldest time.Time
	live := 0
	for _, s := range e.stamps {
		if now.Sub(s.at) < Window {
			if live == 0 {
				oldest = s.at
			}
			live++
		}
	}
	if live < l.max {
		return time.Time{}
	}
	return oldest.Add(Window)
}

func (l *Ledger) lookup(userID int64) *entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.entries[userID]
}

func (l *Ledger) getOrCreate(userID int64) *entry {
	if e := l.lookup(userID); e != nil {
		return e
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[userID]; ok {
		return e
	}
	e := &entry{}
	l.entries[userID] = e
	return e
}

// purge drops stamps outside the window. Stamps are appended in clock
// order, so the live ones form a suffix.
func purge(stamps []stamp, now time.Time) []stamp {
	i := 0
	for i < len(stamps) && now.Sub(stamps[i].at) >= Window {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}

func liveCount(stamps []stamp, now time.Time) int {
	n := 0
	for _, s := range stamps {
		if now.Sub(s.at) < Window {
			n++
		}
	}
	return n
}
