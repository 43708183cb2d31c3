package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var updatesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "telegram_updates_total",
		Help: "Telegram updates handled by kind and result (ok, error, panic).",
	},
	[]string{"kind", "result"},
)

func init() {
	prometheus.MustRegister(updatesTotal)
}

// Runner handles updates concurrently, at most limit at a time, each under
// its own timeout. Handler errors are logged and never stop the runner.
type Runner struct {
	ctx     context.Context
	handler Handler
	timeout time.Duration
	g       errgroup.Group
}

// NewRunner returns a Runner whose update contexts derive from ctx.
// limit <= 0 means unbounded; timeout <= 0 disables the per-update deadline.
func NewRunner(ctx context.Context, h Handler, limit int, timeout time.Duration) *Runner {
	r := &Runner{ctx: ctx, handler: h, timeout: timeout}
	if limit > 0 {
		r.g.SetLimit(limit)
	}
	return r
}

// Submit schedules u, blocking while the runner is at its limit.
func (r *Runner) Submit(u tgbotapi.Update) {
	r.g.Go(func() error {
		r.handle(u)
		return nil
	})
}

// TrySubmit schedules u only if a slot is free.
func (r *Runner) TrySubmit(u tgbotapi.Update) bool {
	return r.g.TryGo(func() error {
		r.handle(u)
		return nil
	})
}

// Poll submits updates from src until ctx is done or src is closed.
func (r *Runner) Poll(ctx context.Context, src tgbotapi.UpdatesChannel) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-src:
			if !ok {
				return nil
			}
			r.Submit(u)
		}
	}
}

// Wait blocks until every submitted update has been handled.
func (r *Runner) Wait() {
	_ = r.g.Wait()
}

func (r *Runner) handle(u tgbotapi.Update) {
	kind := Kind(u)
	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			updatesTotal.WithLabelValues(kind, "panic").Inc()
			log.Error().
				Str("panic", fmt.Sprint(rec)).
				Int("update_id", u.UpdateID).
				Str("kind", kind).
				Msg("update handler panicked")
		}
	}()

	if err := Dispatch(ctx, r.handler, u); err != nil {
		updatesTotal.WithLabelValues(kind, "error").Inc()
		log.Warn().Err(err).Int("update_id", u.UpdateID).Str("kind", kind).Msg("update failed")
		return
	}
	updatesTotal.WithLabelValues(kind, "ok").Inc()
}
