// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ResultRecord model that backs the durable VIN result cache.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a record is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Functions:
//
//   - GetResult(ctx, db, vin) -> *domain.ResultRecord, error
//     Fetches the record for a VIN, or ErrNotFound if missing.
//
//   - ReplaceResult(ctx, db, rec) -> error
//     Deletes any existing row for rec.VIN and inserts rec, in one transaction.
//
//   - DeleteResult(ctx, db, vin) -> error
//     Removes the row for a VIN. Deleting a missing VIN is not an error.
//
//   - CountResults(ctx, db) -> (int64, error)
//
//   - ListResultsPage(ctx, db, offset, limit) -> []domain.ResultRecord, error
//     Returns a page of records, newest first.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrInvalidOutcome is returned by ReplaceResult for an unknown outcome.
var ErrInvalidOutcome = errors.New("invalid outcome")

// GetResult returns the record stored for vin. The VIN must already be
// normalised by the caller.
func GetResult(ctx context.Context, db *gorm.DB, vin string) (*domain.ResultRecord, error) {
	var rec domain.ResultRecord
	err := db.WithContext(ctx).
		Where("vin = ?", vin).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReplaceResult stores rec as the only record for rec.VIN. The previous row,
// if any, is removed in the same transaction so readers never observe a
// merged record.
func ReplaceResult(ctx context.Context, db *gorm.DB, rec *domain.ResultRecord) error {
	if !rec.Outcome.Valid() {
		return ErrInvalidOutcome
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("vin = ?", rec.VIN).Delete(&domain.ResultRecord{}).Error; err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
}

// DeleteResult removes the record for vin. Missing rows are ignored.
func DeleteResult(ctx context.Context, db *gorm.DB, vin string) error {
	return db.WithContext(ctx).
		Where("vin = ?", vin).
		Delete(&domain.ResultRecord{}).Error
}

// CountResults returns the total number of cached results.
func CountResults(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.ResultRecord{}).
		Count(&total).Error
	return total, err
}

// ListResultsPage returns a paginated slice of results ordered by creation
// time descending. Use CountResults to obtain the total for pagination
// metadata.
func ListResultsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ResultRecord, error) {
	var out []domain.ResultRecord
	err := db.WithContext(ctx).
		Order("created_at desc").
		Order("vin asc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
