package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrySign_EndToEnd(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 3)
	ctx := context.Background()

	// First signatory signs with remarks.
	res, err := engine.TrySign(ctx, docID, 1, "approved")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, res.Status)
	assert.False(t, res.Completed)
	require.NotNil(t, res.Signatory.SignedAt)
	require.NotNil(t, res.Signatory.Remarks)
	assert.Equal(t, "approved", *res.Signatory.Remarks)
	assert.Len(t, store.AuditEntries(docID), 1)

	// Third signatory jumps the queue and is rejected.
	_, err = engine.TrySign(ctx, docID, 3, "")
	assert.ErrorIs(t, err, ErrPredecessorNotSigned)

	// Second signs; still in progress.
	res, err = engine.TrySign(ctx, docID, 2, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, res.Status)

	// Third completes the chain.
	res, err = engine.TrySign(ctx, docID, 3, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, res.Status)
	assert.True(t, res.Completed)

	doc, err := store.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, doc.Status)

	entries := store.AuditEntries(docID)
	require.Len(t, entries, 3)
	assert.Equal(t, "Document Signed", entries[0].Action)
	assert.Equal(t, "Signatory 1 signed the document", entries[0].Details)
	assert.Equal(t, "Signatory 3 signed the document", entries[2].Details)
}

func TestTrySign_Idempotence(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 3)
	ctx := context.Background()

	first, err := engine.TrySign(ctx, docID, 1, "approved")
	require.NoError(t, err)

	_, err = engine.TrySign(ctx, docID, 1, "changed my mind")
	assert.ErrorIs(t, err, ErrAlreadySigned)

	_, err = engine.TrySign(ctx, docID, 1, "third time")
	assert.ErrorIs(t, err, ErrAlreadySigned)

	// Original signature and remarks survive the duplicate attempts.
	row, err := store.GetSignatory(ctx, docID, 1)
	require.NoError(t, err)
	require.NotNil(t, row.SignedAt)
	assert.True(t, row.SignedAt.Equal(*first.Signatory.SignedAt))
	require.NotNil(t, row.Remarks)
	assert.Equal(t, "approved", *row.Remarks)

	assert.Len(t, store.AuditEntries(docID), 1)
}

func TestTrySign_OutOfOrderLeavesStateUnchanged(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 3)
	ctx := context.Background()

	_, err := engine.TrySign(ctx, docID, 3, "sneaking in")
	assert.ErrorIs(t, err, ErrPredecessorNotSigned)

	signatories, err := store.GetSignatories(ctx, docID)
	require.NoError(t, err)
	for _, s := range signatories {
		assert.Nil(t, s.SignedAt)
		assert.Nil(t, s.Remarks)
	}
	doc, err := store.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, doc.Status)
	assert.Empty(t, store.AuditEntries(docID))
}

func TestTrySign_UnknownDocumentAndSignatory(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 2)
	ctx := context.Background()

	_, err := engine.TrySign(ctx, "missing", 1, "")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = engine.TrySign(ctx, docID, 42, "")
	assert.ErrorIs(t, err, ErrNotASignatory)
}

func TestTrySign_NeverTouchesReturnedDocument(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 2)
	ctx := context.Background()

	doc, err := store.GetDocument(ctx, docID)
	require.NoError(t, err)
	doc.Status = models.StatusReturned
	store.PutDocument(*doc)

	_, err = engine.TrySign(ctx, docID, 1, "")
	assert.ErrorIs(t, err, ErrDocumentReturned)

	after, err := store.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturned, after.Status)
}

func TestTrySign_RollsBackWhenStatusWriteFails(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 3)
	ctx := context.Background()

	boom := errors.New("connection reset")
	store.StatusUpdateErr = boom

	_, err := engine.TrySign(ctx, docID, 1, "approved")
	require.ErrorIs(t, err, boom)

	// The signature write must not survive the failed transaction.
	row, err := store.GetSignatory(ctx, docID, 1)
	require.NoError(t, err)
	assert.Nil(t, row.SignedAt)

	doc, err := store.GetDocument(ctx, docID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, doc.Status)
	assert.Empty(t, store.AuditEntries(docID))

	// A clean retry from the caller goes through.
	res, err := engine.TrySign(ctx, docID, 1, "approved")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, res.Status)
}

func TestTrySign_ConcurrentCallersOneWinnerPerSlot(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 2)
	ctx := context.Background()

	_, err := engine.TrySign(ctx, docID, 1, "")
	require.NoError(t, err)

	// Both remaining callers race for the chain: user 2 is eligible, user 1
	// is done. Exactly one signature may land per slot regardless of
	// interleaving.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, userID := range []uint{1, 2} {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, results[i] = engine.TrySign(ctx, docID, userID, "")
		}(i, userID)
	}
	wg.Wait()

	assert.ErrorIs(t, results[0], ErrAlreadySigned)
	assert.NoError(t, results[1])

	assertOrderingInvariant(t, store, docID)
}

func TestTrySign_ConcurrentSameUser(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 3)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.TrySign(ctx, docID, 1, "")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		default:
			assert.True(t,
				errors.Is(err, ErrAlreadySigned) || errors.Is(err, ErrConcurrencyConflict),
				"unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Len(t, store.AuditEntries(docID), 1)
	assertOrderingInvariant(t, store, docID)
}

func TestUpdateSignatory_RejectsSecondWrite(t *testing.T) {
	engine, store := newTestEngine(t)
	docID := seedChain(store, 1)
	ctx := context.Background()

	res, err := engine.TrySign(ctx, docID, 1, "")
	require.NoError(t, err)

	err = store.UpdateSignatory(ctx, res.Signatory.ID, engine.now(), "overwrite")
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
}

// assertOrderingInvariant checks that signatures were never recorded out of
// order: a signed position implies every lower position is signed too.
func assertOrderingInvariant(t *testing.T, store *MemStore, docID string) {
	t.Helper()
	signatories, err := store.GetSignatories(context.Background(), docID)
	require.NoError(t, err)
	seenUnsigned := false
	for _, s := range signatories {
		if s.SignedAt == nil {
			seenUnsigned = true
		} else {
			require.False(t, seenUnsigned,
				"position %d signed after an unsigned predecessor", s.OrderIndex)
		}
	}
}
