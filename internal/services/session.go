package services

import (
	"sync"
	"time"

	"github.com/IvanYuichiC/etab-flow-sign/pkg/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type SessionData struct {
	UserID    uint
	ExpiresAt time.Time
	IPAddress string
	UserAgent string
}

// SessionStore holds authenticated sessions in memory. Expired entries are
// swept by a background goroutine until Close is called.
type SessionStore struct {
	sessions map[string]SessionData
	mutex    sync.RWMutex
	timeout  time.Duration
	logger   *zap.Logger
	metrics  *metrics.MetricsCollector
	stopChan chan struct{}
}

func NewSessionStore(timeout time.Duration, logger *zap.Logger, metricsCollector *metrics.MetricsCollector) *SessionStore {
	ss := &SessionStore{
		sessions: make(map[string]SessionData),
		timeout:  timeout,
		logger:   logger.With(zap.String("service", "session_store")),
		metrics:  metricsCollector,
		stopChan: make(chan struct{}),
	}

	go ss.startBackgroundCleanup()

	return ss
}

func (ss *SessionStore) startBackgroundCleanup() {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ss.stopChan:
			return
		case <-ticker.C:
			ss.cleanupExpiredSessions()
		}
	}
}

func (ss *SessionStore) cleanupExpiredSessions() {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()

	now := time.Now()
	for token, session := range ss.sessions {
		if now.After(session.ExpiresAt) {
			delete(ss.sessions, token)
			ss.metrics.IncrementCounter("sessions.expired", nil)
		}
	}
}

func (ss *SessionStore) CreateSession(userID uint, ipAddress, userAgent string) string {
	token := uuid.New().String()

	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	ss.sessions[token] = SessionData{
		UserID:    userID,
		ExpiresAt: time.Now().Add(ss.timeout),
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}

	ss.metrics.IncrementCounter("sessions.created", nil)
	return token
}

// Timeout reports the configured session lifetime, so cookie expiry and
// server-side expiry stay in step.
func (ss *SessionStore) Timeout() time.Duration {
	return ss.timeout
}

// IsValidSession resolves a session token to the authenticated user id.
func (ss *SessionStore) IsValidSession(token string) (uint, bool) {
	ss.mutex.RLock()
	defer ss.mutex.RUnlock()

	session, exists := ss.sessions[token]
	if !exists || time.Now().After(session.ExpiresAt) {
		return 0, false
	}
	return session.UserID, true
}

func (ss *SessionStore) DeleteSession(token string) {
	ss.mutex.Lock()
	defer ss.mutex.Unlock()
	delete(ss.sessions, token)
}

func (ss *SessionStore) Close() {
	close(ss.stopChan)
}
