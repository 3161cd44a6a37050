package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bidcraft/bidcraft/internal/domain"
)

// MockEmbeddingClient is a mock implementation of EmbeddingClient
type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockSessionChunkRepository is a mock implementation of SessionChunkRepositoryInterface
type MockSessionChunkRepository struct {
	mock.Mock
}

func (m *MockSessionChunkRepository) InsertChunks(ctx context.Context, sessionID string, chunks []domain.EmbeddedChunk) error {
	args := m.Called(ctx, sessionID, chunks)
	return args.Error(0)
}

func (m *MockSessionChunkRepository) SearchNearest(ctx context.Context, sessionID string, embedding []float32, k int) ([]domain.Chunk, error) {
	args := m.Called(ctx, sessionID, embedding, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Chunk), args.Error(1)
}

func (m *MockSessionChunkRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func TestSessionIndexService_Build_Success(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSessionChunkRepository)
	svc := NewSessionIndexService(client, repo)

	ctx := context.Background()
	embedding := make([]float32, 1536)
	client.On("GenerateEmbedding", mock.Anything, "contract text").Return(embedding, nil)
	repo.On("InsertChunks", mock.Anything, "session-1", mock.MatchedBy(func(chunks []domain.EmbeddedChunk) bool {
		return len(chunks) == 1 &&
			chunks[0].Chunk.Text == "contract text" &&
			chunks[0].Chunk.SourceID == "session-1"
	})).Return(nil)

	count, err := svc.Build(ctx, "session-1", "contract text")

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	client.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestSessionIndexService_Build_EmbeddingFailureSkipsPersist(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSessionChunkRepository)
	svc := NewSessionIndexService(client, repo)

	ctx := context.Background()
	client.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	_, err := svc.Build(ctx, "session-1", "contract text")

	require.Error(t, err)
	domainErr, ok := err.(*domain.DomainError)
	require.True(t, ok)
	assert.Equal(t, domain.ErrCodeIndexBuild, domainErr.Code)
	repo.AssertNotCalled(t, "InsertChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionIndexService_Build_EmbedsEveryChunk(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSessionChunkRepository)
	svc := NewSessionIndexServiceWithConfig(client, repo, ChunkConfig{Size: 100, Overlap: 20})

	ctx := context.Background()
	text := strings.Repeat("contract deliverables and compliance requirements. ", 10)
	client.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(make([]float32, 1536), nil)

	var persisted int
	repo.On("InsertChunks", mock.Anything, "session-1", mock.Anything).Run(func(args mock.Arguments) {
		persisted = len(args.Get(2).([]domain.EmbeddedChunk))
	}).Return(nil)

	count, err := svc.Build(ctx, "session-1", text)

	require.NoError(t, err)
	assert.Greater(t, count, 1)
	assert.Equal(t, count, persisted)
	client.AssertNumberOfCalls(t, "GenerateEmbedding", count)
}

func TestSessionIndexService_Build_InvalidChunkConfig(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSessionChunkRepository)
	svc := NewSessionIndexServiceWithConfig(client, repo, ChunkConfig{Size: 10, Overlap: 10})

	_, err := svc.Build(context.Background(), "session-1", "text")

	require.Error(t, err)
	domainErr, ok := err.(*domain.DomainError)
	require.True(t, ok)
	assert.Equal(t, domain.ErrCodeConfiguration, domainErr.Code)
}

func TestSessionIndexService_Query_DefaultsK(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSessionChunkRepository)
	svc := NewSessionIndexService(client, repo)

	ctx := context.Background()
	embedding := make([]float32, 1536)
	expected := []domain.Chunk{{Text: "relevant", SourceID: "session-1"}}
	client.On("GenerateEmbedding", mock.Anything, "query").Return(embedding, nil)
	repo.On("SearchNearest", mock.Anything, "session-1", embedding, DefaultRetrieveK).Return(expected, nil)

	chunks, err := svc.Query(ctx, "session-1", "query", 0)

	require.NoError(t, err)
	assert.Equal(t, expected, chunks)
	repo.AssertExpectations(t)
}

func TestSessionIndexService_Query_EmbeddingError(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSessionChunkRepository)
	svc := NewSessionIndexService(client, repo)

	ctx := context.Background()
	client.On("GenerateEmbedding", mock.Anything, "query").Return(nil, errors.New("provider down"))

	chunks, err := svc.Query(ctx, "session-1", "query", 3)

	assert.Error(t, err)
	assert.Nil(t, chunks)
	repo.AssertNotCalled(t, "SearchNearest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSessionIndexService_Dispose(t *testing.T) {
	client := new(MockEmbeddingClient)
	repo := new(MockSessionChunkRepository)
	svc := NewSessionIndexService(client, repo)

	ctx := context.Background()
	repo.On("DeleteBySession", ctx, "session-1").Return(nil).Twice()

	assert.NoError(t, svc.Dispose(ctx, "session-1"))
	assert.NoError(t, svc.Dispose(ctx, "session-1"), "dispose is idempotent")
}
