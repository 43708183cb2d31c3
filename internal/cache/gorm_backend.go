package cache

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-vin-sticker-bot/internal/domain"
	"github.com/tbourn/go-vin-sticker-bot/internal/repo"
)

// GormBackend stores records in the vin_results table.
type GormBackend struct {
	db *gorm.DB
}

var _ Backend = (*GormBackend)(nil)

// NewGormBackend returns a Backend using db. The schema must already be
// migrated (see repo.AutoMigrate).
func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{db: db}
}

func (b *GormBackend) Get(ctx context.Context, vin string) (*domain.ResultRecord, error) {
	rec, err := repo.GetResult(ctx, b.db, vin)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMiss
	}
	return rec, err
}

func (b *GormBackend) Put(ctx context.Context, rec *domain.ResultRecord) error {
	return repo.ReplaceResult(ctx, b.db, rec)
}

func (b *GormBackend) Delete(ctx context.Context, vin string) error {
	return repo.DeleteResult(ctx, b.db, vin)
}
