package workflow

import "errors"

var (
	// ErrDocumentNotFound is returned when no document exists for the id.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNotASignatory is returned when the acting user has no signatory
	// record on the document.
	ErrNotASignatory = errors.New("user is not a signatory for this document")

	// ErrAlreadySigned is returned on a duplicate sign attempt. The first
	// signature is never overwritten.
	ErrAlreadySigned = errors.New("signatory has already signed")

	// ErrPredecessorNotSigned is returned when an earlier position in the
	// chain is still unsigned.
	ErrPredecessorNotSigned = errors.New("previous signatory has not signed yet")

	// ErrDocumentReturned is returned when the document was returned by its
	// creator; a returned document never re-enters the signing flow.
	ErrDocumentReturned = errors.New("document has been returned")

	// ErrConcurrencyConflict is returned when the store detected a concurrent
	// write to the same signatory row. The signing transaction retries a
	// bounded number of times before surfacing it.
	ErrConcurrencyConflict = errors.New("concurrent signing conflict")
)
