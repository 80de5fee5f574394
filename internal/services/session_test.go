package services

import (
	"testing"
	"time"

	"github.com/IvanYuichiC/etab-flow-sign/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSessionStore(t *testing.T, timeout time.Duration) *SessionStore {
	t.Helper()
	ss := NewSessionStore(timeout, zap.NewNop(), metrics.NewMetricsCollector())
	t.Cleanup(ss.Close)
	return ss
}

func TestSessionStore_CreateAndValidate(t *testing.T) {
	ss := newTestSessionStore(t, time.Hour)

	token := ss.CreateSession(42, "127.0.0.1", "test-agent")
	require.NotEmpty(t, token)

	userID, ok := ss.IsValidSession(token)
	assert.True(t, ok)
	assert.Equal(t, uint(42), userID)

	_, ok = ss.IsValidSession("no-such-token")
	assert.False(t, ok)
}

// The timeout the store reports is what the login handler feeds into the
// cookie's Max-Age; it must be the configured value, not a constant.
func TestSessionStore_TimeoutMatchesConfigured(t *testing.T) {
	ss := newTestSessionStore(t, 45*time.Minute)
	assert.Equal(t, 45*time.Minute, ss.Timeout())
}

func TestSessionStore_Expiry(t *testing.T) {
	ss := newTestSessionStore(t, time.Millisecond)

	token := ss.CreateSession(7, "127.0.0.1", "test-agent")
	time.Sleep(5 * time.Millisecond)

	_, ok := ss.IsValidSession(token)
	assert.False(t, ok)
}

func TestSessionStore_Delete(t *testing.T) {
	ss := newTestSessionStore(t, time.Hour)

	token := ss.CreateSession(7, "127.0.0.1", "test-agent")
	ss.DeleteSession(token)

	_, ok := ss.IsValidSession(token)
	assert.False(t, ok)
}

func TestSessionStore_TokensAreUnique(t *testing.T) {
	ss := newTestSessionStore(t, time.Hour)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		token := ss.CreateSession(uint(i), "127.0.0.1", "test-agent")
		require.False(t, seen[token])
		seen[token] = true
	}
}
