package domain

import "time"

// ProcessedUpdate records a webhook update that has already been accepted for
// processing. Telegram redelivers updates when a webhook response is slow or
// fails, so the update ID is used as an idempotency key until ExpiresAt.
type ProcessedUpdate struct {
	UpdateID  int64     `gorm:"type:INTEGER NOT NULL;primaryKey;autoIncrement:false"`
	Kind      string    `gorm:"type:TEXT NOT NULL"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (ProcessedUpdate) TableName() string { return "processed_updates" }
