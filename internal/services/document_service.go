package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"github.com/IvanYuichiC/etab-flow-sign/internal/workflow"
	"github.com/IvanYuichiC/etab-flow-sign/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// codeAllocRetries bounds how often a create re-runs after losing a tracking
// code to a concurrent create.
const codeAllocRetries = 3

var (
	ErrTitleRequired      = errors.New("document title is required")
	ErrNoSignatories      = errors.New("at least one signatory is required")
	ErrDuplicateSignatory = errors.New("a user appears more than once in the signatory chain")
	ErrUnknownSignatory   = errors.New("signatory user does not exist")
	ErrNotDocumentOwner   = errors.New("only the document creator may do this")
	ErrDocumentClosed     = errors.New("document is already completed or returned")
)

type DocumentService struct {
	db         *gorm.DB
	logger     *zap.Logger
	metrics    *metrics.MetricsCollector
	codePrefix string
}

func NewDocumentService(db *gorm.DB, logger *zap.Logger, metricsCollector *metrics.MetricsCollector, codePrefix string) *DocumentService {
	return &DocumentService{
		db:         db,
		logger:     logger.With(zap.String("service", "document_service")),
		metrics:    metricsCollector,
		codePrefix: codePrefix,
	}
}

type CreateDocumentInput struct {
	Title            string
	Description      string
	DocumentType     string
	Department       string
	FileURL          string
	CreatedBy        uint
	SignatoryUserIDs []uint
}

// CreateDocument creates the document and its whole signatory chain in one
// transaction. The chain's order indexes are assigned from the input order,
// 0 first.
func (ds *DocumentService) CreateDocument(ctx context.Context, input CreateDocumentInput) (*models.Document, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if len(input.SignatoryUserIDs) == 0 {
		return nil, ErrNoSignatories
	}
	seen := make(map[uint]bool, len(input.SignatoryUserIDs))
	for _, id := range input.SignatoryUserIDs {
		if seen[id] {
			return nil, ErrDuplicateSignatory
		}
		seen[id] = true
	}

	var count int64
	if err := ds.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id IN ?", input.SignatoryUserIDs).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if int(count) != len(input.SignatoryUserIDs) {
		return nil, ErrUnknownSignatory
	}

	doc := &models.Document{
		ID:           uuid.New().String(),
		Title:        input.Title,
		Description:  input.Description,
		DocumentType: input.DocumentType,
		Department:   input.Department,
		FileURL:      input.FileURL,
		Status:       models.StatusPending,
		CreatedBy:    input.CreatedBy,
	}

	// Two concurrent creates can allocate the same tracking code; the unique
	// index catches it and the losing transaction re-reads and retries.
	var err error
	for attempt := 0; attempt < codeAllocRetries; attempt++ {
		err = ds.createOnce(ctx, doc, input)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
		ds.logger.Warn("Document code collided, retrying",
			zap.String("code", doc.Code),
			zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return nil, err
	}

	ds.metrics.IncrementCounter("documents.created", nil)
	ds.logger.Info("Document created",
		zap.String("doc_id", doc.ID),
		zap.String("code", doc.Code),
		zap.Uint("created_by", input.CreatedBy),
		zap.Int("signatories", len(input.SignatoryUserIDs)))

	return doc, nil
}

func (ds *DocumentService) createOnce(ctx context.Context, doc *models.Document, input CreateDocumentInput) error {
	return ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		code, err := ds.nextCode(tx)
		if err != nil {
			return err
		}
		doc.Code = code

		if err := tx.Create(doc).Error; err != nil {
			return err
		}

		for i, userID := range input.SignatoryUserIDs {
			signatory := models.Signatory{
				DocumentID: doc.ID,
				UserID:     userID,
				OrderIndex: i,
			}
			if err := tx.Create(&signatory).Error; err != nil {
				return err
			}
		}

		return tx.Create(&models.AuditLog{
			DocumentID: doc.ID,
			UserID:     input.CreatedBy,
			Action:     "Document Created",
			Details:    fmt.Sprintf("Document %s created with %d signatories", doc.Code, len(input.SignatoryUserIDs)),
		}).Error
	})
}

// nextCode produces the human-readable tracking code, e.g. DOC-2026-0042,
// by advancing the highest code already issued this year. Sequencing
// restarts each year; the code is display-only, uniqueness is enforced by
// the database.
func (ds *DocumentService) nextCode(tx *gorm.DB) (string, error) {
	year := time.Now().Year()
	prefix := fmt.Sprintf("%s-%d-", ds.codePrefix, year)

	var latest string
	if err := tx.Model(&models.Document{}).
		Where("code LIKE ?", prefix+"%").
		Order("code DESC").
		Limit(1).
		Pluck("code", &latest).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, nextSequence(latest)), nil
}

// nextSequence advances the numeric tail of the latest issued code; an
// empty or unparseable code restarts the sequence.
func nextSequence(latest string) int {
	idx := strings.LastIndex(latest, "-")
	if idx < 0 {
		return 1
	}
	n, err := strconv.Atoi(latest[idx+1:])
	if err != nil {
		return 1
	}
	return n + 1
}

func (ds *DocumentService) ListByCreator(ctx context.Context, userID uint) ([]models.Document, error) {
	var docs []models.Document
	if err := ds.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

// ListAwaitingSignature returns documents on which the user has an unsigned
// signatory slot and which are still moving through the chain.
func (ds *DocumentService) ListAwaitingSignature(ctx context.Context, userID uint) ([]models.Document, error) {
	var docs []models.Document
	if err := ds.db.WithContext(ctx).
		Joins("JOIN signatories ON signatories.document_id = documents.id").
		Where("signatories.user_id = ? AND signatories.signed_at IS NULL", userID).
		Where("documents.status IN ?", []models.DocumentStatus{models.StatusPending, models.StatusInProgress}).
		Order("documents.created_at DESC").
		Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

type DashboardStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Returned   int64 `json:"returned"`
}

func (ds *DocumentService) Stats(ctx context.Context, userID uint) (*DashboardStats, error) {
	stats := &DashboardStats{}
	counts := []struct {
		status models.DocumentStatus
		target *int64
	}{
		{models.StatusPending, &stats.Pending},
		{models.StatusInProgress, &stats.InProgress},
		{models.StatusCompleted, &stats.Completed},
		{models.StatusReturned, &stats.Returned},
	}

	for _, c := range counts {
		if err := ds.db.WithContext(ctx).
			Model(&models.Document{}).
			Where("created_by = ? AND status = ?", userID, c.status).
			Count(c.target).Error; err != nil {
			return nil, err
		}
		stats.Total += *c.target
	}
	return stats, nil
}

// ReturnDocument marks a document as returned, the terminal override outside
// the signing flow. Only the creator may return, and only while the chain is
// still open; the signing transaction never reverts a returned document.
func (ds *DocumentService) ReturnDocument(ctx context.Context, docID string, actingUserID uint, reason string) error {
	err := ds.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the document row so the return cannot interleave with a
		// signing transaction reading the same document.
		var doc models.Document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&doc, "id = ?", docID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return workflow.ErrDocumentNotFound
			}
			return err
		}
		if doc.CreatedBy != actingUserID {
			return ErrNotDocumentOwner
		}
		if doc.Status == models.StatusCompleted || doc.Status == models.StatusReturned {
			return ErrDocumentClosed
		}

		if err := tx.Model(&doc).Updates(map[string]interface{}{
			"status":        models.StatusReturned,
			"return_reason": reason,
		}).Error; err != nil {
			return err
		}

		return tx.Create(&models.AuditLog{
			DocumentID: doc.ID,
			UserID:     actingUserID,
			Action:     "Document Returned",
			Details:    reason,
		}).Error
	})
	if err != nil {
		return err
	}

	ds.metrics.IncrementCounter("documents.returned", nil)
	ds.logger.Info("Document returned",
		zap.String("doc_id", docID),
		zap.Uint("user_id", actingUserID))
	return nil
}

// AuditTrail returns a document's audit entries, newest first.
func (ds *DocumentService) AuditTrail(ctx context.Context, docID string) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	if err := ds.db.WithContext(ctx).
		Where("document_id = ?", docID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
