// Package cache implements the durable VIN result cache.
//
// A VIN maps to the handle of the message that last answered it: either the
// delivered window-sticker document or the "no sticker available"
// notification. Entries are validated lazily. Nothing expires on its own; a
// lookup that finds an entry asks the caller-supplied Probe whether the handle
// still resolves, and an entry whose handle is gone is evicted.
//
// Storage is pluggable through Backend. GormBackend (SQLite) and RedisBackend
// are provided; both survive process restarts.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
)

var (
	// ErrMiss is returned by Lookup when no entry exists for the VIN.
	ErrMiss = errors.New("cache: miss")
	// ErrUnavailable wraps backend failures. Callers must not treat it as a
	// miss.
	ErrUnavailable = errors.New("cache: backend unavailable")
	// ErrHandleGone is returned by a Probe when the handle no longer resolves.
	ErrHandleGone = errors.New("cache: handle gone")
)

// Probe checks whether a handle still resolves. It returns nil when the
// handle is live, an error matching ErrHandleGone when it is definitively
// gone, and any other error when liveness could not be determined.
type Probe func(ctx context.Context, h domain.Handle) error

// Backend persists result records. Get returns ErrMiss when the VIN is
// absent. Put replaces the whole record. Delete of a missing VIN is not an
// error.
type Backend interface {
	Get(ctx context.Context, vin string) (*domain.ResultRecord, error)
	Put(ctx context.Context, rec *domain.ResultRecord) error
	Delete(ctx context.Context, vin string) error
}

// ResultCache is the VIN to handle mapping used by the lookup service.
type ResultCache struct {
	backend Backend
	now     func() time.Time
}

// New returns a ResultCache on top of backend.
func New(backend Backend) *ResultCache {
	return &ResultCache{backend: backend, now: time.Now}
}

// NormalizeVIN trims and upper-cases a VIN so that lookups are case
// insensitive.
func NormalizeVIN(vin string) string {
	return strings.ToUpper(strings.TrimSpace(vin))
}

// Lookup returns the record for vin, ErrMiss when there is none, or an error
// wrapping ErrUnavailable when the backend fails.
func (c *ResultCache) Lookup(ctx context.Context, vin string) (*domain.ResultRecord, error) {
	rec, err := c.backend.Get(ctx, NormalizeVIN(vin))
	switch {
	case err == nil:
		lookupsTotal.WithLabelValues("hit").Inc()
		return rec, nil
	case errors.Is(err, ErrMiss):
		lookupsTotal.WithLabelValues("miss").Inc()
		return nil, ErrMiss
	default:
		lookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: lookup %s: %w", ErrUnavailable, vin, err)
	}
}

// Validate probes rec's handle. It reports true when the handle is live and
// false with a nil error when the handle is gone, in which case the caller
// should Evict the VIN. A probe failure of any other kind is returned as-is
// with false; the entry must then be left in place.
func (c *ResultCache) Validate(ctx context.Context, rec *domain.ResultRecord, probe Probe) (bool, error) {
	if rec == nil {
		return false, nil
	}
	if probe == nil {
		return true, nil
	}
	err := probe(ctx, rec.Handle())
	switch {
	case err == nil:
		probesTotal.WithLabelValues("live").Inc()
		return true, nil
	case errors.Is(err, ErrHandleGone):
		probesTotal.WithLabelValues("gone").Inc()
		return false, nil
	default:
		probesTotal.WithLabelValues("error").Inc()
		return false, err
	}
}

// Store records h as the result for vin, replacing any previous entry.
func (c *ResultCache) Store(ctx context.Context, vin string, h domain.Handle, outcome domain.Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("cache: invalid outcome %q", outcome)
	}
	rec := &domain.ResultRecord{
		VIN:          NormalizeVIN(vin),
		ChatID:       h.ChatID,
		MessageID:    h.MessageID,
		ChatUsername: h.ChatUsername,
		Outcome:      outcome,
		CreatedAt:    c.now().UTC(),
	}
	if err := c.backend.Put(ctx, rec); err != nil {
		return fmt.Errorf("%w: store %s: %w", ErrUnavailable, rec.VIN, err)
	}
	return nil
}

// Evict removes the entry for vin. Evicting a missing VIN succeeds.
func (c *ResultCache) Evict(ctx context.Context, vin string) error {
	if err := c.backend.Delete(ctx, NormalizeVIN(vin)); err != nil {
		return fmt.Errorf("%w: evict %s: %w", ErrUnavailable, vin, err)
	}
	evictionsTotal.Inc()
	return nil
}
