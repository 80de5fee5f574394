package workflow

import (
	"testing"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"github.com/IvanYuichiC/etab-flow-sign/pkg/metrics"
	"go.uber.org/zap"
)

func newTestEngine(t *testing.T) (*Engine, *MemStore) {
	t.Helper()
	store := NewMemStore()
	engine := NewEngine(store, zap.NewNop(), metrics.NewMetricsCollector(), 3)
	return engine, store
}

// seedChain creates a pending document with users 1..n as its signatory
// chain and returns the document id.
func seedChain(store *MemStore, n int) string {
	const docID = "doc-1"
	store.PutDocument(models.Document{
		ID:           docID,
		Code:         "DOC-2024-0001",
		Title:        "Budget Realignment Request",
		DocumentType: "Memorandum",
		Department:   "Treasury",
		Status:       models.StatusPending,
		CreatedBy:    100,
	})
	for i := 0; i < n; i++ {
		store.PutSignatory(models.Signatory{
			DocumentID: docID,
			UserID:     uint(i + 1),
			OrderIndex: i,
		})
	}
	return docID
}
