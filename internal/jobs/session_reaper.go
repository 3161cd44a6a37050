package jobs

import (
	"context"
	"log"
	"time"
)

// DefaultSessionTTL is how long a session may sit unused before the
// reaper disposes it.
const DefaultSessionTTL = 2 * time.Hour

// SessionReaperStore is the session-store surface the reaper needs.
type SessionReaperStore interface {
	ReapIdle(ctx context.Context, ttl time.Duration) (int, error)
}

// SessionReaper disposes sessions idle past their ttl. Each reap tears
// the session down completely, index namespace included, so abandoned
// sessions do not accumulate vector rows.
type SessionReaper struct {
	store SessionReaperStore
	ttl   time.Duration
}

// NewSessionReaper creates a SessionReaper instance
func NewSessionReaper(store SessionReaperStore, ttl time.Duration) *SessionReaper {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionReaper{store: store, ttl: ttl}
}

// ProcessJobs implements the JobProcessor interface
func (r *SessionReaper) ProcessJobs(ctx context.Context) error {
	reaped, err := r.store.ReapIdle(ctx, r.ttl)
	if err != nil {
		return err
	}
	if reaped > 0 {
		log.Printf("Reaped %d idle sessions", reaped)
	}
	return nil
}
