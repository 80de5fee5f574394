package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPAttemptTracker_BlocksAfterRepeatedAttempts(t *testing.T) {
	tracker := NewIPAttemptTracker()

	for i := 0; i < 5; i++ {
		tracker.RecordAttempt("10.0.0.1")
		assert.False(t, tracker.IsBlocked("10.0.0.1"))
	}

	tracker.RecordAttempt("10.0.0.1")
	assert.True(t, tracker.IsBlocked("10.0.0.1"))

	// Other clients are unaffected.
	assert.False(t, tracker.IsBlocked("10.0.0.2"))
}

func TestIPAttemptTracker_CleanupDropsStaleEntries(t *testing.T) {
	tracker := NewIPAttemptTracker()

	for i := 0; i < 6; i++ {
		tracker.RecordAttempt("10.0.0.3")
	}
	assert.True(t, tracker.IsBlocked("10.0.0.3"))

	tracker.mu.Lock()
	tracker.attempts["10.0.0.3"].LastAttempt = time.Now().Add(-time.Minute)
	tracker.mu.Unlock()

	tracker.cleanOldEntries()
	assert.False(t, tracker.IsBlocked("10.0.0.3"))
}
