package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore is the database-backed Store. Inside RunInTransaction the
// document and signatory reads take row locks (SELECT ... FOR UPDATE), and
// the signature write is guarded by a signed_at IS NULL condition, so two
// concurrent signing transactions can never both claim the same slot, and a
// signing transaction can never interleave with a return of the same
// document.
type GormStore struct {
	db   *gorm.DB
	inTx bool
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	query := s.db.WithContext(ctx)
	if s.inTx {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var doc models.Document
	if err := query.First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (s *GormStore) GetSignatories(ctx context.Context, documentID string) ([]models.Signatory, error) {
	query := s.db.WithContext(ctx)
	if s.inTx {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var signatories []models.Signatory
	if err := query.
		Where("document_id = ?", documentID).
		Order("order_index ASC").
		Find(&signatories).Error; err != nil {
		return nil, err
	}
	return signatories, nil
}

func (s *GormStore) GetSignatory(ctx context.Context, documentID string, userID uint) (*models.Signatory, error) {
	var signatory models.Signatory
	if err := s.db.WithContext(ctx).
		Where("document_id = ? AND user_id = ?", documentID, userID).
		First(&signatory).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotASignatory
		}
		return nil, err
	}
	return &signatory, nil
}

func (s *GormStore) UpdateSignatory(ctx context.Context, signatoryID uint, signedAt time.Time, remarks string) error {
	updates := map[string]interface{}{"signed_at": signedAt}
	if remarks != "" {
		updates["remarks"] = remarks
	}

	res := s.db.WithContext(ctx).
		Model(&models.Signatory{}).
		Where("id = ? AND signed_at IS NULL", signatoryID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	// Zero rows means another transaction signed this slot first.
	if res.RowsAffected == 0 {
		return ErrConcurrencyConflict
	}
	return nil
}

func (s *GormStore) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	// A returned document is terminal; the derived status must never
	// overwrite it, even if this write races a return that slipped past the
	// row lock.
	res := s.db.WithContext(ctx).
		Model(&models.Document{}).
		Where("id = ? AND status <> ?", id, models.StatusReturned).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrencyConflict
	}
	return nil
}

func (s *GormStore) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) RunInTransaction(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx, inTx: true})
	})
}
