package workflow

import (
	"context"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
)

// SignatoryState is the display state of one position in the chain.
type SignatoryState string

const (
	StateSigned     SignatoryState = "SIGNED"
	StateActionable SignatoryState = "ACTIONABLE_NOW"
	StateWaiting    SignatoryState = "WAITING"
)

type SignatoryView struct {
	Signatory models.Signatory
	State     SignatoryState
}

// WorkflowView is the read-side picture of a document's approval chain. The
// tracker page and the signing page both render from it, so the creator and
// the current signatory always see the same "next to sign".
type WorkflowView struct {
	Document    models.Document
	Signatories []SignatoryView

	// NextUserID is the user who may act now; zero when no one can
	// (completed, returned, or empty chain).
	NextUserID uint
}

// ProjectWorkflowView derives the per-signatory display states for a
// document. Read-only; it never takes locks and tolerates observing either
// side of an in-flight signing transaction.
func (e *Engine) ProjectWorkflowView(ctx context.Context, documentID string) (*WorkflowView, error) {
	doc, err := e.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	signatories, err := e.store.GetSignatories(ctx, documentID)
	if err != nil {
		return nil, err
	}

	return buildView(doc, signatories), nil
}

func buildView(doc *models.Document, signatories []models.Signatory) *WorkflowView {
	sorted := sortedByOrder(signatories)
	view := &WorkflowView{
		Document:    *doc,
		Signatories: make([]SignatoryView, len(sorted)),
	}

	// Nothing is actionable on a returned document.
	halted := doc.Status == models.StatusReturned

	for i, s := range sorted {
		state := StateWaiting
		switch {
		case s.Signed():
			state = StateSigned
		case halted:
			state = StateWaiting
		case i == 0 || sorted[i-1].Signed():
			state = StateActionable
		}
		if state == StateActionable && view.NextUserID == 0 {
			view.NextUserID = s.UserID
		}
		view.Signatories[i] = SignatoryView{Signatory: s, State: state}
	}

	return view
}
