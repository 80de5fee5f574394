package workflow

import (
	"github.com/IvanYuichiC/etab-flow-sign/internal/db/models"
)

// DeriveStatus computes a document's status purely from its signatories'
// signed state. It never yields StatusReturned; that is a terminal override
// set outside the signing flow.
func DeriveStatus(signatories []models.Signatory) models.DocumentStatus {
	if len(signatories) == 0 {
		return models.StatusPending
	}

	signed := 0
	for _, s := range signatories {
		if s.Signed() {
			signed++
		}
	}

	switch {
	case signed == 0:
		return models.StatusPending
	case signed == len(signatories):
		return models.StatusCompleted
	default:
		return models.StatusInProgress
	}
}
