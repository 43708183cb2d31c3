// Package services – AdminService
//
// This file implements AdminService, the read/maintenance view over the
// quota ledger and the result cache exposed by the admin HTTP API.
package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-vin-sticker-bot/internal/cache"
	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
	"github.com/tbourn/go-vin-sticker-bot/internal/quota"
	"github.com/tbourn/go-vin-sticker-bot/internal/utils"
)

// ResultRepo defines the repository contract used for listing results.
// Listing is only available on the SQL backend.
type ResultRepo interface {
	// CountResults returns the total number of cached results.
	CountResults(ctx context.Context, db *gorm.DB) (int64, error)

	// ListResultsPage returns a page of results, newest first.
	ListResultsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.ResultRecord, error)
}

// QuotaStatus is a snapshot of one user's budget.
type QuotaStatus struct {
	UserID    int64      `json:"user_id"`
	Max       int        `json:"max"`
	Remaining int        `json:"remaining"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
}

// AdminService exposes quota and cache state to operators.
type AdminService struct {
	DB    *gorm.DB
	Repo  ResultRepo
	Cache *cache.ResultCache
	Quota *quota.Ledger
}

// QuotaStatus returns the budget of userID. It never reserves.
func (s *AdminService) QuotaStatus(userID int64) (QuotaStatus, error) {
	if userID <= 0 {
		return QuotaStatus{}, ErrInvalidUserID
	}
	st := QuotaStatus{
		UserID:    userID,
		Max:       s.Quota.Max(),
		Remaining: s.Quota.Remaining(userID),
	}
	if at := s.Quota.ResetAt(userID); !at.IsZero() {
		at = at.UTC()
		st.ResetAt = &at
	}
	return st, nil
}

// ListPage returns a page of cached results and the total count.
// Page bounds follow utils.NewPage. Without a Repo it returns
// ErrListUnsupported.
func (s *AdminService) ListPage(ctx context.Context, page, pageSize int) ([]domain.ResultRecord, int64, error) {
	if s.Repo == nil {
		return nil, 0, ErrListUnsupported
	}
	pg := utils.NewPage(page, pageSize)

	total, err := s.Repo.CountResults(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ResultRecord{}, 0, nil
	}

	items, err := s.Repo.ListResultsPage(ctx, s.DB, pg.Offset(), pg.Size)
	return items, total, err
}

// Get returns the cached result for vin.
func (s *AdminService) Get(ctx context.Context, vin string) (*domain.ResultRecord, error) {
	v, err := NormalizeVIN(vin)
	if err != nil {
		return nil, err
	}
	rec, err := s.Cache.Lookup(ctx, v)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, cache.ErrMiss):
		return nil, ErrResultNotFound
	default:
		return nil, errors.Join(ErrCacheUnavailable, err)
	}
}

// Evict drops the cached result for vin so the next request fetches again.
func (s *AdminService) Evict(ctx context.Context, vin string) error {
	v, err := NormalizeVIN(vin)
	if err != nil {
		return err
	}
	if err := s.Cache.Evict(ctx, v); err != nil {
		return errors.Join(ErrCacheUnavailable, err)
	}
	return nil
}
