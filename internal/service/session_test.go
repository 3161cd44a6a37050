package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bidcraft/bidcraft/internal/domain"
)

// MockIndexManager is a mock implementation of IndexManager
type MockIndexManager struct {
	mock.Mock
}

func (m *MockIndexManager) Build(ctx context.Context, sessionID, text string) (int, error) {
	args := m.Called(ctx, sessionID, text)
	return args.Int(0), args.Error(1)
}

func (m *MockIndexManager) Dispose(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// MockOutlineSeeder is a mock implementation of OutlineSeeder
type MockOutlineSeeder struct {
	mock.Mock
}

func (m *MockOutlineSeeder) SeedOutline(ctx context.Context, sessionID string) (*TurnResult, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TurnResult), args.Error(1)
}

// MockSnapshotStore is a mock implementation of SnapshotStore
type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) PutSnapshot(ctx context.Context, sessionID, markup string) error {
	args := m.Called(ctx, sessionID, markup)
	return args.Error(0)
}

func (m *MockSnapshotStore) DeleteSnapshot(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockSnapshotStore) SnapshotURL(ctx context.Context, sessionID string) (string, error) {
	args := m.Called(ctx, sessionID)
	return args.String(0), args.Error(1)
}

func testRecord() *domain.ContractRecord {
	return &domain.ContractRecord{
		NoticeID: "ABC-123",
		RawText:  "CONTRACT OPPORTUNITY DETAILS\n\nNotice ID: ABC-123",
	}
}

func TestSessionStore_Create_SeedsOutlinePair(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "1. Executive Summary"}, nil)

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "")

	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "https://sam.gov/opp/abc/view", session.ContractURL)

	history, err := store.History(session.ID)
	require.NoError(t, err)
	require.Len(t, history, 2, "fresh session holds exactly the synthetic outline pair")
	assert.Equal(t, domain.RoleHuman, history[0].Role)
	assert.Equal(t, SeedOutlineQuestion, history[0].Content)
	assert.Equal(t, domain.RoleAI, history[1].Role)
	assert.Equal(t, "1. Executive Summary", history[1].Content)
}

func TestSessionStore_Create_BuildFailureDoesNotRegister(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).
		Return(0, domain.NewDomainError(domain.ErrCodeIndexBuild, "failed to embed chunk"))

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "")

	require.Error(t, err)
	assert.Nil(t, session)
	assert.Equal(t, 0, store.Len())
	engine.AssertNotCalled(t, "SeedOutline", mock.Anything, mock.Anything)
}

func TestSessionStore_Create_SeedFailureDisposesIndex(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(nil, errors.New("model overloaded"))
	index.On("Dispose", mock.Anything, mock.Anything).Return(nil)

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "")

	require.Error(t, err)
	assert.Nil(t, session)
	assert.Equal(t, 0, store.Len())
	index.AssertCalled(t, "Dispose", mock.Anything, mock.Anything)
}

func TestSessionStore_Create_ArchivesSnapshot(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	snapshots := new(MockSnapshotStore)
	store := NewSessionStoreWithSnapshots(index, engine, snapshots)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)
	snapshots.On("PutSnapshot", mock.Anything, mock.Anything, "<html>listing</html>").Return(nil)

	_, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "<html>listing</html>")

	require.NoError(t, err)
	snapshots.AssertExpectations(t)
}

func TestSessionStore_Create_SnapshotFailureIsNonFatal(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	snapshots := new(MockSnapshotStore)
	store := NewSessionStoreWithSnapshots(index, engine, snapshots)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)
	snapshots.On("PutSnapshot", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("bucket unreachable"))

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "<html>listing</html>")

	require.NoError(t, err)
	assert.NotNil(t, session)
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_AppendHistory(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "")
	require.NoError(t, err)

	err = store.AppendHistory(session.ID,
		domain.Message{Role: domain.RoleHuman, Content: "What is the NAICS code?"},
		domain.Message{Role: domain.RoleAI, Content: "541511."},
	)
	require.NoError(t, err)

	history, err := store.History(session.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "What is the NAICS code?", history[2].Content)
}

func TestSessionStore_Get_ReturnsCopy(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "")
	require.NoError(t, err)

	got, err := store.Get(session.ID)
	require.NoError(t, err)
	got.History[0].Content = "mutated"

	fresh, err := store.Get(session.ID)
	require.NoError(t, err)
	assert.Equal(t, SeedOutlineQuestion, fresh.History[0].Content)
}

func TestSessionStore_Delete_ThenHistoryNotFound(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)
	index.On("Dispose", ctx, mock.Anything).Return(nil)

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, session.ID))

	_, err = store.History(session.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestSessionStore_Delete_SecondDeleteNotFound(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)
	index.On("Dispose", ctx, mock.Anything).Return(nil).Once()

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, session.ID))

	err = store.Delete(ctx, session.ID)
	assert.True(t, domain.IsNotFound(err))
	index.AssertExpectations(t)
}

func TestSessionStore_Delete_UnknownSession(t *testing.T) {
	store := NewSessionStore(new(MockIndexManager), new(MockOutlineSeeder))

	err := store.Delete(context.Background(), "no-such-session")
	assert.True(t, domain.IsNotFound(err))
}

func TestSessionStore_Delete_DisposeFailureKeepsSession(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)
	index.On("Dispose", ctx, mock.Anything).Return(errors.New("connection refused")).Once()
	index.On("Dispose", ctx, mock.Anything).Return(nil).Once()

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "")
	require.NoError(t, err)

	require.Error(t, store.Delete(ctx, session.ID))
	assert.Equal(t, 1, store.Len(), "failed teardown keeps the session retryable")

	require.NoError(t, store.Delete(ctx, session.ID))
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_ReapIdle_DuringDeleteDoesNotWedge(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)

	disposeEntered := make(chan struct{})
	disposeRelease := make(chan struct{})
	var once sync.Once
	index.On("Dispose", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		once.Do(func() { close(disposeEntered) })
		<-disposeRelease
	}).Return(nil)

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "")
	require.NoError(t, err)

	store.mu.Lock()
	store.sessions[session.ID].session.LastUsedAt = time.Now().UTC().Add(-2 * time.Hour)
	store.mu.Unlock()

	// Park Delete inside Dispose so it holds the session lock while a
	// reaper scan runs over the registry.
	deleteDone := make(chan error, 1)
	go func() { deleteDone <- store.Delete(ctx, session.ID) }()
	<-disposeEntered

	reapDone := make(chan error, 1)
	go func() {
		_, err := store.ReapIdle(ctx, time.Hour)
		reapDone <- err
	}()

	time.Sleep(50 * time.Millisecond)
	close(disposeRelease)

	select {
	case err := <-deleteDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Delete never finished against a concurrent reaper scan")
	}
	select {
	case err := <-reapDone:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("ReapIdle never finished against an in-flight delete")
	}
	assert.Equal(t, 0, store.Len())
}

func TestSessionStore_SnapshotURL(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	snapshots := new(MockSnapshotStore)
	store := NewSessionStoreWithSnapshots(index, engine, snapshots)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)
	snapshots.On("PutSnapshot", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "<html>listing</html>")
	require.NoError(t, err)

	snapshots.On("SnapshotURL", ctx, session.ID).
		Return("https://minio.local/bidcraft-snapshots/snapshots/"+session.ID+".html?sig=abc", nil)

	url, err := store.SnapshotURL(ctx, session.ID)

	require.NoError(t, err)
	assert.Contains(t, url, session.ID)
}

func TestSessionStore_SnapshotURL_ArchivingDisabled(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)

	session, err := store.Create(ctx, "https://sam.gov/opp/abc/view", testRecord(), "")
	require.NoError(t, err)

	_, err = store.SnapshotURL(ctx, session.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestSessionStore_SnapshotURL_UnknownSession(t *testing.T) {
	store := NewSessionStore(new(MockIndexManager), new(MockOutlineSeeder))

	_, err := store.SnapshotURL(context.Background(), "no-such-session")
	assert.True(t, domain.IsNotFound(err))
}

func TestSessionStore_ReapIdle(t *testing.T) {
	index := new(MockIndexManager)
	engine := new(MockOutlineSeeder)
	store := NewSessionStore(index, engine)

	ctx := context.Background()
	index.On("Build", mock.Anything, mock.Anything, mock.Anything).Return(4, nil)
	engine.On("SeedOutline", mock.Anything, mock.Anything).Return(&TurnResult{Answer: "outline"}, nil)
	index.On("Dispose", ctx, mock.Anything).Return(nil)

	stale, err := store.Create(ctx, "https://sam.gov/opp/old/view", testRecord(), "")
	require.NoError(t, err)
	fresh, err := store.Create(ctx, "https://sam.gov/opp/new/view", testRecord(), "")
	require.NoError(t, err)

	// Backdate the stale session past the ttl.
	store.mu.Lock()
	store.sessions[stale.ID].session.LastUsedAt = time.Now().UTC().Add(-2 * time.Hour)
	store.mu.Unlock()

	reaped, err := store.ReapIdle(ctx, time.Hour)

	require.NoError(t, err)
	assert.Equal(t, 1, reaped)
	_, err = store.Get(stale.ID)
	assert.True(t, domain.IsNotFound(err))
	_, err = store.Get(fresh.ID)
	assert.NoError(t, err)
}
