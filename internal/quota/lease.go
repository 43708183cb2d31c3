package quota

import "sync"

// Lease is a reservation scoped to one lookup. Release rolls the
// reservation back unless Keep was called first, so a deferred Release
// covers every early return and panic.
//
//	lease, ok := ledger.Acquire(userID)
//	if !ok {
//		return limitReached
//	}
//	defer lease.Release()
//	...
//	lease.Keep()
type Lease struct {
	ledger *Ledger
	res    Reservation

	mu   sync.Mutex
	kept bool
	once sync.Once
}

// Acquire reserves one slot for userID and wraps it in a Lease.
func (l *Ledger) Acquire(userID int64) (*Lease, bool) {
	r, ok := l.TryReserve(userID)
	if !ok {
		return nil, false
	}
	return &Lease{ledger: l, res: r}, true
}

// Reservation returns the underlying reservation.
func (le *Lease) Reservation() Reservation { return le.res }

// Keep marks the reservation as charged. Release becomes a no-op.
func (le *Lease) Keep() {
	le.mu.Lock()
	le.kept = true
	le.mu.Unlock()
}

// Release rolls the reservation back unless it was kept. Safe to call more
// than once and on a nil Lease.
func (le *Lease) Release() {
	if le == nil {
		return
	}
	le.once.Do(func() {
		le.mu.Lock()
		kept := le.kept
		le.mu.Unlock()
		if !kept {
			le.ledger.Rollback(le.res)
		}
	})
}
