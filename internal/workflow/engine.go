package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"github.com/IvanYuichiC/etab-flow-sign/pkg/metrics"
	"go.uber.org/zap"
)

const defaultMaxRetries = 3

// Engine enforces the signatory approval workflow: who may sign next, how a
// signature mutates document state, and how both are observed. It is the
// only mutator of Signatory.SignedAt/Remarks and of Document.Status within
// the signing flow.
type Engine struct {
	store      Store
	logger     *zap.Logger
	metrics    *metrics.MetricsCollector
	maxRetries int
	now        func() time.Time
}

func NewEngine(store Store, logger *zap.Logger, metricsCollector *metrics.MetricsCollector, maxRetries int) *Engine {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Engine{
		store:      store,
		logger:     logger.With(zap.String("service", "workflow_engine")),
		metrics:    metricsCollector,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// SignResult describes the state after a successful signing transaction.
type SignResult struct {
	Signatory models.Signatory
	Status    models.DocumentStatus
	Completed bool
}

// TrySign records userID's signature on documentID as one atomic unit:
// eligibility re-check on locked rows, the signature write, the status
// recompute, and the audit entry all commit together or not at all. Only
// ErrConcurrencyConflict is retried, a bounded number of times.
func (e *Engine) TrySign(ctx context.Context, documentID string, userID uint, remarks string) (*SignResult, error) {
	var (
		res *SignResult
		err error
	)
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		res, err = e.signOnce(ctx, documentID, userID, remarks)
		if !errors.Is(err, ErrConcurrencyConflict) {
			break
		}
		e.metrics.IncrementCounter("workflow.sign_conflicts", nil)
		e.logger.Warn("Signing transaction conflicted, retrying",
			zap.String("document_id", documentID),
			zap.Uint("user_id", userID),
			zap.Int("attempt", attempt+1))
	}
	return res, err
}

func (e *Engine) signOnce(ctx context.Context, documentID string, userID uint, remarks string) (*SignResult, error) {
	start := e.now()
	var result SignResult

	err := e.store.RunInTransaction(ctx, func(tx Store) error {
		doc, err := tx.GetDocument(ctx, documentID)
		if err != nil {
			return err
		}

		// Fresh read under the transaction lock: two concurrent callers
		// cannot both observe the same slot as eligible.
		signatories, err := tx.GetSignatories(ctx, documentID)
		if err != nil {
			return err
		}

		own, err := checkEligible(doc, signatories, userID)
		if err != nil {
			return err
		}

		signedAt := e.now()
		if err := tx.UpdateSignatory(ctx, own.ID, signedAt, remarks); err != nil {
			return err
		}

		// Recompute over the snapshot including the signature just written.
		for i := range signatories {
			if signatories[i].ID == own.ID {
				signatories[i].SignedAt = &signedAt
			}
		}
		newStatus := DeriveStatus(signatories)
		if newStatus != doc.Status {
			if err := tx.UpdateDocumentStatus(ctx, doc.ID, newStatus); err != nil {
				return err
			}
		}

		if err := tx.AppendAuditLog(ctx, &models.AuditLog{
			DocumentID: doc.ID,
			UserID:     userID,
			Action:     "Document Signed",
			Details:    fmt.Sprintf("Signatory %d signed the document", own.OrderIndex+1),
		}); err != nil {
			return err
		}

		own.SignedAt = &signedAt
		if remarks != "" {
			own.Remarks = &remarks
		}
		result = SignResult{
			Signatory: *own,
			Status:    newStatus,
			Completed: newStatus == models.StatusCompleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.IncrementCounter("workflow.documents_signed", nil)
	e.metrics.ObserveLatency("workflow.sign", time.Since(start))
	if result.Completed {
		e.metrics.IncrementCounter("workflow.documents_completed", nil)
	}

	e.logger.Info("Document signed",
		zap.String("document_id", documentID),
		zap.Uint("user_id", userID),
		zap.Int("order_index", result.Signatory.OrderIndex),
		zap.String("status", string(result.Status)))

	return &result, nil
}
