// Package domain defines the persistence models for resolved VIN lookups and
// processed platform updates. These types are mapped with GORM and shared
// across the repository, cache and service layers.
package domain

import "time"

// Outcome classifies what a cached handle points at.
type Outcome string

const (
	// OutcomeDocument means the handle is a delivered window-sticker document.
	OutcomeDocument Outcome = "document"
	// OutcomeUnavailable means the handle is the "no sticker for this VIN"
	// notification. The notification doubles as the negative-cache sentinel.
	OutcomeUnavailable Outcome = "unavailable"
)

// Valid reports whether o is one of the known outcomes.
func (o Outcome) Valid() bool {
	return o == OutcomeDocument || o == OutcomeUnavailable
}

// Handle references a message previously produced by the bot. It is used both
// to redeliver the result and to probe whether the message still exists.
type Handle struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
	// ChatUsername is the public username of ChatID, empty for private groups.
	ChatUsername string `json:"chat_username,omitempty"`
}

// ResultRecord maps a VIN to the handle of its last produced result.
//
// Fields:
//   - VIN: upper-case 17 character VIN, primary key.
//   - ChatID / MessageID: the handle.
//   - ChatUsername: public chat username used to build t.me links.
//   - Outcome: document or unavailable (enforced by DB constraint).
//   - CreatedAt: when the handle was stored.
//
// A record is never patched. Storing a new handle for the same VIN deletes
// the old row first.
type ResultRecord struct {
	VIN          string    `json:"vin"           gorm:"type:varchar(17);primaryKey"`
	ChatID       int64     `json:"chat_id"       gorm:"not null"`
	MessageID    int       `json:"message_id"    gorm:"not null"`
	ChatUsername string    `json:"chat_username" gorm:"type:varchar(64);not null;default:''"`
	Outcome      Outcome   `json:"outcome"       gorm:"type:varchar(16);not null;check:outcome IN ('document','unavailable')"`
	CreatedAt    time.Time `json:"created_at"    gorm:"index"`
}

// TableName returns the database table name for ResultRecord.
func (ResultRecord) TableName() string { return "vin_results" }

// Handle returns the message reference stored in the record.
func (r ResultRecord) Handle() Handle {
	return Handle{ChatID: r.ChatID, MessageID: r.MessageID, ChatUsername: r.ChatUsername}
}
