package workflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
)

// MemStore is a thread-safe in-memory Store. It backs the workflow tests and
// local development without a database. Transactions are serialized by a
// single mutex and roll back to a snapshot on error, which gives the same
// all-or-nothing and no-interleaving guarantees the gorm store gets from row
// locks.
type MemStore struct {
	mu     sync.Mutex
	docs   map[string]models.Document
	sigs   map[uint]models.Signatory
	audits []models.AuditLog
	nextID uint

	// StatusUpdateErr, when set, fails the next UpdateDocumentStatus and is
	// then cleared. Lets callers exercise transaction rollback.
	StatusUpdateErr error
}

func NewMemStore() *MemStore {
	return &MemStore{
		docs: make(map[string]models.Document),
		sigs: make(map[uint]models.Signatory),
	}
}

// PutDocument inserts or replaces a document record.
func (m *MemStore) PutDocument(doc models.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
}

// PutSignatory inserts a signatory record, assigning an id when absent, and
// returns the stored row.
func (m *MemStore) PutSignatory(s models.Signatory) models.Signatory {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == 0 {
		m.nextID++
		s.ID = m.nextID
	}
	m.sigs[s.ID] = s
	return s
}

// AuditEntries returns the audit rows for a document in append order.
func (m *MemStore) AuditEntries(documentID string) []models.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var entries []models.AuditLog
	for _, e := range m.audits {
		if e.DocumentID == documentID {
			entries = append(entries, e)
		}
	}
	return entries
}

func (m *MemStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getDocumentLocked(id)
}

func (m *MemStore) GetSignatories(ctx context.Context, documentID string) ([]models.Signatory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getSignatoriesLocked(documentID)
}

func (m *MemStore) GetSignatory(ctx context.Context, documentID string, userID uint) (*models.Signatory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getSignatoryLocked(documentID, userID)
}

func (m *MemStore) UpdateSignatory(ctx context.Context, signatoryID uint, signedAt time.Time, remarks string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateSignatoryLocked(signatoryID, signedAt, remarks)
}

func (m *MemStore) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateDocumentStatusLocked(id, status)
}

func (m *MemStore) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendAuditLogLocked(entry)
	return nil
}

func (m *MemStore) RunInTransaction(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapDocs := make(map[string]models.Document, len(m.docs))
	for k, v := range m.docs {
		snapDocs[k] = v
	}
	snapSigs := make(map[uint]models.Signatory, len(m.sigs))
	for k, v := range m.sigs {
		snapSigs[k] = v
	}
	snapAudits := make([]models.AuditLog, len(m.audits))
	copy(snapAudits, m.audits)

	if err := fn(&memTx{store: m}); err != nil {
		m.docs = snapDocs
		m.sigs = snapSigs
		m.audits = snapAudits
		return err
	}
	return nil
}

// memTx routes Store calls back into the MemStore without re-locking; the
// transaction already holds the mutex.
type memTx struct {
	store *MemStore
}

func (t *memTx) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return t.store.getDocumentLocked(id)
}

func (t *memTx) GetSignatories(ctx context.Context, documentID string) ([]models.Signatory, error) {
	return t.store.getSignatoriesLocked(documentID)
}

func (t *memTx) GetSignatory(ctx context.Context, documentID string, userID uint) (*models.Signatory, error) {
	return t.store.getSignatoryLocked(documentID, userID)
}

func (t *memTx) UpdateSignatory(ctx context.Context, signatoryID uint, signedAt time.Time, remarks string) error {
	return t.store.updateSignatoryLocked(signatoryID, signedAt, remarks)
}

func (t *memTx) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	return t.store.updateDocumentStatusLocked(id, status)
}

func (t *memTx) AppendAuditLog(ctx context.Context, entry *models.AuditLog) error {
	t.store.appendAuditLogLocked(entry)
	return nil
}

func (t *memTx) RunInTransaction(ctx context.Context, fn func(Store) error) error {
	return fn(t)
}

func (m *MemStore) getDocumentLocked(id string) (*models.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return &doc, nil
}

func (m *MemStore) getSignatoriesLocked(documentID string) ([]models.Signatory, error) {
	var signatories []models.Signatory
	for _, s := range m.sigs {
		if s.DocumentID == documentID {
			signatories = append(signatories, s)
		}
	}
	sort.Slice(signatories, func(i, j int) bool {
		return signatories[i].OrderIndex < signatories[j].OrderIndex
	})
	return signatories, nil
}

func (m *MemStore) getSignatoryLocked(documentID string, userID uint) (*models.Signatory, error) {
	for _, s := range m.sigs {
		if s.DocumentID == documentID && s.UserID == userID {
			row := s
			return &row, nil
		}
	}
	return nil, ErrNotASignatory
}

func (m *MemStore) updateSignatoryLocked(signatoryID uint, signedAt time.Time, remarks string) error {
	s, ok := m.sigs[signatoryID]
	if !ok {
		return ErrNotASignatory
	}
	if s.SignedAt != nil {
		return ErrConcurrencyConflict
	}
	s.SignedAt = &signedAt
	if remarks != "" {
		s.Remarks = &remarks
	}
	m.sigs[signatoryID] = s
	return nil
}

func (m *MemStore) updateDocumentStatusLocked(id string, status models.DocumentStatus) error {
	if m.StatusUpdateErr != nil {
		err := m.StatusUpdateErr
		m.StatusUpdateErr = nil
		return err
	}
	doc, ok := m.docs[id]
	if !ok {
		return ErrDocumentNotFound
	}
	if doc.Status == models.StatusReturned {
		return ErrConcurrencyConflict
	}
	doc.Status = status
	m.docs[id] = doc
	return nil
}

func (m *MemStore) appendAuditLogLocked(entry *models.AuditLog) {
	e := *entry
	e.ID = uint(len(m.audits) + 1)
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	m.audits = append(m.audits, e)
}
