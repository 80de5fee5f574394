package models

import (
	"gorm.io/gorm"
)

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "PENDING"
	StatusInProgress DocumentStatus = "IN_PROGRESS"
	StatusCompleted  DocumentStatus = "COMPLETED"
	StatusReturned   DocumentStatus = "RETURNED"
)

// Document is an official document moving through an ordered signatory chain.
// Status is derived from the signatories' signed state; only the signing
// transaction (and the creator's return action) ever writes it.
type Document struct {
	gorm.Model
	ID           string `gorm:"primaryKey"`
	Code         string `gorm:"uniqueIndex;not null"` // human-readable tracking code, display only
	Title        string `gorm:"not null"`
	Description  string
	DocumentType string
	Department   string
	Status       DocumentStatus `gorm:"not null;default:'PENDING'"`
	CreatedBy    uint           `gorm:"index;not null"`
	FileURL      string
	ReturnReason string
	Signatories  []Signatory `gorm:"foreignKey:DocumentID"`
}
