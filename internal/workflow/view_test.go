package workflow

import (
	"context"
	"testing"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectWorkflowView_FreshChain(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 3)

	view, err := engine.ProjectWorkflowView(context.Background(), docID)
	require.NoError(t, err)

	require.Len(t, view.Signatories, 3)
	assert.Equal(t, StateActionable, view.Signatories[0].State)
	assert.Equal(t, StateWaiting, view.Signatories[1].State)
	assert.Equal(t, StateWaiting, view.Signatories[2].State)
	assert.Equal(t, uint(1), view.NextUserID)
}

func TestProjectWorkflowView_TracksChainProgress(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 3)
	ctx := context.Background()

	_, err := engine.TrySign(ctx, docID, 1, "")
	require.NoError(t, err)

	view, err := engine.ProjectWorkflowView(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, StateSigned, view.Signatories[0].State)
	assert.Equal(t, StateActionable, view.Signatories[1].State)
	assert.Equal(t, StateWaiting, view.Signatories[2].State)
	assert.Equal(t, uint(2), view.NextUserID)
	assert.Equal(t, models.StatusInProgress, view.Document.Status)
}

func TestProjectWorkflowView_CompletedChain(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 2)
	ctx := context.Background()

	for _, userID := range []uint{1, 2} {
		_, err := engine.TrySign(ctx, docID, userID, "")
		require.NoError(t, err)
	}

	view, err := engine.ProjectWorkflowView(ctx, docID)
	require.NoError(t, err)
	for _, sv := range view.Signatories {
		assert.Equal(t, StateSigned, sv.State)
	}
	assert.Zero(t, view.NextUserID)
	assert.Equal(t, models.StatusCompleted, view.Document.Status)
}

func TestProjectWorkflowView_ReturnedDocumentHasNoActionable(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 3)
	ctx := context.Background()

	_, err := engine.TrySign(ctx, docID, 1, "")
	require.NoError(t, err)

	doc, err := store.GetDocument(ctx, docID)
	require.NoError(t, err)
	doc.Status = models.StatusReturned
	store.PutDocument(*doc)

	view, err := engine.ProjectWorkflowView(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, StateSigned, view.Signatories[0].State)
	assert.Equal(t, StateWaiting, view.Signatories[1].State)
	assert.Equal(t, StateWaiting, view.Signatories[2].State)
	assert.Zero(t, view.NextUserID)
}

// The projection and the eligibility check must agree on who acts next.
func TestProjectWorkflowView_MatchesEligibility(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 4)
	ctx := context.Background()

	for step := 0; step < 4; step++ {
		view, err := engine.ProjectWorkflowView(ctx, docID)
		require.NoError(t, err)
		require.NotZero(t, view.NextUserID)

		for _, sv := range view.Signatories {
			err := engine.CheckEligibility(ctx, docID, sv.Signatory.UserID)
			if sv.State == StateActionable {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		}

		_, err = engine.TrySign(ctx, docID, view.NextUserID, "")
		require.NoError(t, err)
	}

	view, err := engine.ProjectWorkflowView(ctx, docID)
	require.NoError(t, err)
	assert.Zero(t, view.NextUserID)
}

func TestProjectWorkflowView_NotFound(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, err := engine.ProjectWorkflowView(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}
