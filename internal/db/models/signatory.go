package models

import (
	"time"

	"gorm.io/gorm"
)

// Signatory is one position in a document's approval chain. OrderIndex values
// for a document form a contiguous 0..n-1 set; SignedAt is set at most once
// and never before every lower position has signed.
type Signatory struct {
	gorm.Model
	DocumentID string `gorm:"index:idx_signatory_doc_order,unique;not null"`
	UserID     uint   `gorm:"index;not null"`
	OrderIndex int    `gorm:"index:idx_signatory_doc_order,unique;not null"`
	SignedAt   *time.Time
	Remarks    *string
}

func (s *Signatory) Signed() bool {
	return s.SignedAt != nil
}
