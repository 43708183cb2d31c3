package main

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-vin-sticker-bot/internal/repo"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestReapOnce_DeletesOnlyExpired(t *testing.T) {
	db := newDB(t)
	ctx := context.Background()
	if err := repo.MarkUpdate(ctx, db, 1, "message", time.Minute); err != nil {
		t.Fatalf("mark 1: %v", err)
	}
	if err := repo.MarkUpdate(ctx, db, 2, "message", 48*time.Hour); err != nil {
		t.Fatalf("mark 2: %v", err)
	}

	if n := reapOnce(db, time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("expected 1 reaped, got %d", n)
	}
	// the live marker still dedups
	if err := repo.MarkUpdate(ctx, db, 2, "message", time.Hour); err != repo.ErrDuplicate {
		t.Fatalf("expected ErrDuplicate for live marker, got %v", err)
	}
	if err := repo.MarkUpdate(ctx, db, 1, "message", time.Hour); err != nil {
		t.Fatalf("reaped id should be markable again: %v", err)
	}
}

func TestRunExpiryReaper_StopsOnCancel(t *testing.T) {
	db := newDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runExpiryReaper(ctx, db, time.Millisecond)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
