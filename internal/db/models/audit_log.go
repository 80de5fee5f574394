package models

import (
	"time"
)

// AuditLog is an append-only record of workflow events. Rows are never
// updated or deleted.
type AuditLog struct {
	ID         uint   `gorm:"primaryKey"`
	DocumentID string `gorm:"index;not null"`
	UserID     uint   `gorm:"index;not null"`
	Action     string `gorm:"not null"`
	Details    string
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}
