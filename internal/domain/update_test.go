package domain

import (
	"testing"
	"time"
)

func TestProcessedUpdate_Migration_AndUniqueUpdateID(t *testing.T) {
	db := newDomainDB(t)
	if err := db.AutoMigrate(&ProcessedUpdate{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	m := db.Migrator()
	if !m.HasTable(&ProcessedUpdate{}) {
		t.Fatalf("expected table %q to exist", ProcessedUpdate{}.TableName())
	}

	now := time.Now().UTC()
	first := &ProcessedUpdate{UpdateID: 1001, Kind: "message", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(first).Error; err != nil {
		t.Fatalf("insert: %v", err)
	}

	again := &ProcessedUpdate{UpdateID: 1001, Kind: "message", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := db.Create(again).Error; err == nil {
		t.Fatalf("expected primary key violation for duplicate update_id")
	}

	var got ProcessedUpdate
	if err := db.First(&got, "update_id = ?", 1001).Error; err != nil {
		t.Fatalf("readback: %v", err)
	}
	if got.Kind != "message" || !got.ExpiresAt.After(now) {
		t.Fatalf("unexpected row: %+v", got)
	}
}
