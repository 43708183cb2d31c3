package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-vin-sticker-bot/internal/repo"
)

// runExpiryReaper purges expired processed-update markers every interval
// until ctx is done.
func runExpiryReaper(ctx context.Context, db *gorm.DB, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			reapOnce(db, time.Now())
		}
	}
}

func reapOnce(db *gorm.DB, now time.Time) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	n, err := repo.DeleteExpiredUpdates(ctx, db, now)
	if err != nil {
		log.Warn().Err(err).Msg("reap processed updates")
		return 0
	}
	if n > 0 {
		log.Debug().Int64("deleted", n).Msg("reaped processed updates")
	}
	return n
}
