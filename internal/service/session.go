package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bidcraft/bidcraft/internal/domain"
	"github.com/bidcraft/bidcraft/internal/telemetry"
)

// IndexManager is the index lifecycle seam of the session store.
type IndexManager interface {
	Build(ctx context.Context, sessionID, text string) (int, error)
	Dispose(ctx context.Context, sessionID string) error
}

// OutlineSeeder produces the synthetic first turn of a new session.
type OutlineSeeder interface {
	SeedOutline(ctx context.Context, sessionID string) (*TurnResult, error)
}

// SnapshotStore optionally archives the raw markup a session was built
// from. Snapshot writes are best-effort and never fail the pipeline.
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, sessionID, markup string) error
	DeleteSnapshot(ctx context.Context, sessionID string) error
	SnapshotURL(ctx context.Context, sessionID string) (string, error)
}

type sessionEntry struct {
	mu      sync.Mutex
	session *domain.Session
	deleted bool
}

// SessionStore owns every session and its index namespace. The registry
// is process-local and not persisted; per-session locks serialize
// operations against one session while cross-session work stays parallel.
type SessionStore struct {
	index     IndexManager
	engine    OutlineSeeder
	snapshots SnapshotStore

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

// NewSessionStore creates a SessionStore without snapshot archiving.
func NewSessionStore(index IndexManager, engine OutlineSeeder) *SessionStore {
	return NewSessionStoreWithSnapshots(index, engine, nil)
}

func NewSessionStoreWithSnapshots(index IndexManager, engine OutlineSeeder, snapshots SnapshotStore) *SessionStore {
	return &SessionStore{
		index:     index,
		engine:    engine,
		snapshots: snapshots,
		sessions:  make(map[string]*sessionEntry),
	}
}

// Create builds a session for an extracted record: index the record
// text, seed the baseline outline, then register. A failure at any step
// disposes whatever was built and leaves the id unreachable, so a
// half-constructed session is never visible.
func (s *SessionStore) Create(ctx context.Context, contractURL string, record *domain.ContractRecord, rawMarkup string) (*domain.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionStore.Create", telemetry.SpanAttributes{
		ContractURL: contractURL,
		Operation:   "create",
	})
	defer span.End()

	sessionID := uuid.NewString()

	if _, err := s.index.Build(ctx, sessionID, record.RawText); err != nil {
		return nil, err
	}

	seed, err := s.engine.SeedOutline(ctx, sessionID)
	if err != nil {
		if disposeErr := s.index.Dispose(ctx, sessionID); disposeErr != nil {
			log.Printf("failed to dispose index after aborted create of session %s: %v", sessionID, disposeErr)
		}
		return nil, err
	}

	if s.snapshots != nil && rawMarkup != "" {
		if err := s.snapshots.PutSnapshot(ctx, sessionID, rawMarkup); err != nil {
			log.Printf("failed to archive markup snapshot for session %s: %v", sessionID, err)
		}
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:          sessionID,
		ContractURL: contractURL,
		Record:      record,
		History: []domain.Message{
			{Role: domain.RoleHuman, Content: SeedOutlineQuestion},
			{Role: domain.RoleAI, Content: seed.Answer},
		},
		CreatedAt:  now,
		LastUsedAt: now,
	}

	s.mu.Lock()
	s.sessions[sessionID] = &sessionEntry{session: session}
	s.mu.Unlock()

	return copySession(session), nil
}

// Get returns a copy of the session; callers never share the stored
// instance.
func (s *SessionStore) Get(id string) (*domain.Session, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return nil, domain.ErrSessionNotFound
	}
	entry.session.LastUsedAt = time.Now().UTC()
	return copySession(entry.session), nil
}

// AppendHistory adds turn entries to the session's history.
func (s *SessionStore) AppendHistory(id string, entries ...domain.Message) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return domain.ErrSessionNotFound
	}
	entry.session.History = append(entry.session.History, entries...)
	entry.session.LastUsedAt = time.Now().UTC()
	return nil
}

// History returns a copy of the session's chat history.
func (s *SessionStore) History(id string) ([]domain.Message, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return session.History, nil
}

// Delete tears a session down: dispose the index namespace first (a
// crash after disposal leaves a session whose idempotent disposal can
// simply run again), then unregister under the session's lock. A second
// delete of the same id reports NOT_FOUND.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	entry, err := s.entry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return domain.ErrSessionNotFound
	}

	if err := s.index.Dispose(ctx, id); err != nil {
		// Session stays registered so teardown can be retried.
		return err
	}

	if s.snapshots != nil {
		if err := s.snapshots.DeleteSnapshot(ctx, id); err != nil {
			log.Printf("failed to delete markup snapshot for session %s: %v", id, err)
		}
	}

	entry.deleted = true
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// ReapIdle deletes sessions unused for longer than ttl and reports how
// many were removed.
//
// Lock order: entry locks are never taken while the registry lock is
// held. Delete acquires them the other way around (entry lock, then
// registry write lock), so nesting here would deadlock against a
// concurrent teardown.
func (s *SessionStore) ReapIdle(ctx context.Context, ttl time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)

	s.mu.RLock()
	entries := make(map[string]*sessionEntry, len(s.sessions))
	for id, entry := range s.sessions {
		entries[id] = entry
	}
	s.mu.RUnlock()

	stale := make([]string, 0)
	for id, entry := range entries {
		entry.mu.Lock()
		idle := !entry.deleted && entry.session.LastUsedAt.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			stale = append(stale, id)
		}
	}

	reaped := 0
	for _, id := range stale {
		err := s.Delete(ctx, id)
		if err == nil {
			reaped++
			continue
		}
		if !domain.IsNotFound(err) {
			return reaped, err
		}
	}
	return reaped, nil
}

// SnapshotURL returns a time-limited link to the session's archived
// markup. Sessions created while archiving was disabled report
// NOT_FOUND, same as an unknown session.
func (s *SessionStore) SnapshotURL(ctx context.Context, id string) (string, error) {
	entry, err := s.entry(id)
	if err != nil {
		return "", err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.deleted {
		return "", domain.ErrSessionNotFound
	}

	if s.snapshots == nil {
		return "", domain.NewDomainError(domain.ErrCodeNotFound, "no snapshot archived for session")
	}

	url, err := s.snapshots.SnapshotURL(ctx, id)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to create snapshot link", err)
	}
	return url, nil
}

// Len reports the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) entry(id string) (*sessionEntry, error) {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return entry, nil
}

func copySession(session *domain.Session) *domain.Session {
	clone := *session
	clone.History = make([]domain.Message, len(session.History))
	copy(clone.History, session.History)
	return &clone
}
