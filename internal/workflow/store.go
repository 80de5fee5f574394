package workflow

import (
	"context"
	"time"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
)

// Store is the data-access contract the workflow engine runs on. The engine
// never touches the database directly; everything goes through this
// interface so the core rules can be exercised against the gorm store or the
// in-memory store alike.
type Store interface {
	GetDocument(ctx context.Context, id string) (*models.Document, error)

	// GetSignatories returns the document's signatories ordered by
	// OrderIndex. Inside RunInTransaction the rows are locked for the
	// duration of the transaction.
	GetSignatories(ctx context.Context, documentID string) ([]models.Signatory, error)

	GetSignatory(ctx context.Context, documentID string, userID uint) (*models.Signatory, error)

	// UpdateSignatory records the signature. It must fail with
	// ErrConcurrencyConflict if the row's signed_at is already set.
	UpdateSignatory(ctx context.Context, signatoryID uint, signedAt time.Time, remarks string) error

	// UpdateDocumentStatus writes the derived status. It must refuse to
	// overwrite a returned document, failing with ErrConcurrencyConflict,
	// so the terminal override survives any interleaving.
	UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error

	AppendAuditLog(ctx context.Context, entry *models.AuditLog) error

	// RunInTransaction executes fn against a transaction-scoped store. All
	// writes made through that store commit together or not at all.
	RunInTransaction(ctx context.Context, fn func(Store) error) error
}
