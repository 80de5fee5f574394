package workflow

import (
	"context"
	"sort"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
)

// checkEligible decides whether userID may sign now, given the document and
// its full signatory set. The same rule drives both the signing transaction
// and the view projection, so "who can sign" and "who appears actionable"
// never diverge.
func checkEligible(doc *models.Document, signatories []models.Signatory, userID uint) (*models.Signatory, error) {
	if doc.Status == models.StatusReturned {
		return nil, ErrDocumentReturned
	}

	sorted := sortedByOrder(signatories)

	var own *models.Signatory
	for i := range sorted {
		if sorted[i].UserID == userID {
			own = &sorted[i]
			break
		}
	}
	if own == nil {
		return nil, ErrNotASignatory
	}
	if own.Signed() {
		return nil, ErrAlreadySigned
	}

	if own.OrderIndex > 0 {
		for _, s := range sorted {
			if s.OrderIndex == own.OrderIndex-1 && !s.Signed() {
				return nil, ErrPredecessorNotSigned
			}
		}
	}

	return own, nil
}

func sortedByOrder(signatories []models.Signatory) []models.Signatory {
	sorted := make([]models.Signatory, len(signatories))
	copy(sorted, signatories)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].OrderIndex < sorted[j].OrderIndex
	})
	return sorted
}

// CheckEligibility reports whether userID may sign documentID right now. It
// is read-only and safe to call repeatedly; the signing transaction runs the
// same check again on locked rows before mutating anything.
func (e *Engine) CheckEligibility(ctx context.Context, documentID string, userID uint) error {
	doc, err := e.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	signatories, err := e.store.GetSignatories(ctx, documentID)
	if err != nil {
		return err
	}
	_, err = checkEligible(doc, signatories, userID)
	return err
}
