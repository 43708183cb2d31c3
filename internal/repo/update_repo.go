// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// ProcessedUpdate model used to drop webhook redeliveries.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
)

// ErrDuplicate indicates that the update ID was already marked as processed.
var ErrDuplicate = errors.New("duplicate")

// MarkUpdate records updateID as accepted until now+ttl. It returns
// ErrDuplicate when a live row for the same update already exists. An
// expired row is replaced.
func MarkUpdate(ctx context.Context, db *gorm.DB, updateID int64, kind string, ttl time.Duration) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("update_id = ? AND expires_at <= ?", updateID, now).
			Delete(&domain.ProcessedUpdate{}).Error; err != nil {
			return err
		}
		rec := &domain.ProcessedUpdate{
			UpdateID:  updateID,
			Kind:      kind,
			CreatedAt: now,
			ExpiresAt: now.Add(ttl),
		}
		if err := tx.Create(rec).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	})
}

// UnmarkUpdate removes the marker for updateID so a redelivery is processed
// again. Used when an accepted update could not be scheduled.
func UnmarkUpdate(ctx context.Context, db *gorm.DB, updateID int64) error {
	return db.WithContext(ctx).
		Where("update_id = ?", updateID).
		Delete(&domain.ProcessedUpdate{}).Error
}

// DeleteExpiredUpdates purges markers whose expiry is at or before now and
// returns the number of rows removed.
func DeleteExpiredUpdates(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&domain.ProcessedUpdate{})
	return res.RowsAffected, res.Error
}

func isUniqueViolation(err error) bool {
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique")
}
