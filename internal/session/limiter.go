// Package session tracks the per-profile query quota and conversation
// history, persisted across restarts.
//
// The limiter is advisory: it shapes when the client serves a canned fallback
// instead of calling the backend, and is not a security boundary. When the
// store is shared by concurrent processes the record is last-write-wins;
// exact cross-process consistency is not guaranteed.
package session

import (
	"context"
	"fmt"
	"time"

	"brainoutai/internal/models"
)

const (
	// RateLimit is the number of queries allowed per window.
	RateLimit = 10
	// Window is the interval after which the query counter resets.
	Window = time.Hour
)

// Limiter gates completion requests against the rolling window and owns
// persistence of the session record.
type Limiter struct {
	store Store
	now   func() time.Time
}

func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// LoadOrCreate reads the persisted session, creating and persisting a fresh
// one when none exists. A stale window is reset before the session is
// returned so the stored counter never carries over.
func (l *Limiter) LoadOrCreate(ctx context.Context) (*models.Session, error) {
	sess, err := l.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	now := l.now()
	if sess == nil {
		sess = &models.Session{
			SessionID:   models.NewSessionID(now),
			QueryCount:  0,
			WindowStart: now,
			History:     []*models.Message{},
		}
		if err := l.store.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("persist new session: %w", err)
		}
		return sess, nil
	}
	if l.resetIfStale(sess, now) {
		if err := l.store.Save(ctx, sess); err != nil {
			return nil, fmt.Errorf("persist window reset: %w", err)
		}
	}
	return sess, nil
}

// CanProceed reports whether the session still has quota in the current
// window. Pure predicate; the window reset happens on load and on record.
func CanProceed(sess *models.Session) bool {
	return sess != nil && sess.QueryCount < RateLimit
}

// RecordAttempt counts one completed turn: the counter is incremented, both
// messages are appended to the history, and the result is persisted. Fallback
// turns consume quota exactly like real ones. The returned session is a new
// value; the input is not mutated.
func (l *Limiter) RecordAttempt(ctx context.Context, sess *models.Session, userMsg, response *models.Message) (*models.Session, error) {
	next := cloneSession(sess)
	l.resetIfStale(next, l.now())
	next.QueryCount++
	next.History = append(next.History, userMsg, response)
	if err := l.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("persist attempt: %w", err)
	}
	return next, nil
}

// Clear empties the history and persists. Counters and identity are kept so
// clearing the conversation does not refresh quota.
func (l *Limiter) Clear(ctx context.Context, sess *models.Session) (*models.Session, error) {
	next := cloneSession(sess)
	next.History = []*models.Message{}
	if err := l.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("persist clear: %w", err)
	}
	return next, nil
}

func (l *Limiter) resetIfStale(sess *models.Session, now time.Time) bool {
	if now.Sub(sess.WindowStart) > Window {
		sess.QueryCount = 0
		sess.WindowStart = now
		return true
	}
	return false
}

func cloneSession(sess *models.Session) *models.Session {
	next := &models.Session{
		SessionID:   sess.SessionID,
		QueryCount:  sess.QueryCount,
		WindowStart: sess.WindowStart,
		History:     make([]*models.Message, len(sess.History)),
	}
	copy(next.History, sess.History)
	return next
}
