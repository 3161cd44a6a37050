package service

import (
	"context"

	"github.com/bidcraft/bidcraft/internal/domain"
	"github.com/bidcraft/bidcraft/internal/telemetry"
)

// DefaultRetrieveK is the number of chunks returned by a query when the
// caller does not ask for more.
const DefaultRetrieveK = 3

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SessionChunkRepositoryInterface is the persistence seam for a
// session's vector namespace.
type SessionChunkRepositoryInterface interface {
	InsertChunks(ctx context.Context, sessionID string, chunks []domain.EmbeddedChunk) error
	SearchNearest(ctx context.Context, sessionID string, embedding []float32, k int) ([]domain.Chunk, error)
	DeleteBySession(ctx context.Context, sessionID string) error
}

// SessionIndexService builds, queries, and disposes the per-session
// vector index. Each session's namespace is keyed by its full session id;
// a build is all-or-nothing, so a failed build leaves no namespace rows.
type SessionIndexService struct {
	client   EmbeddingClient
	repo     SessionChunkRepositoryInterface
	chunkCfg ChunkConfig
}

// NewSessionIndexService creates a SessionIndexService with default chunking.
func NewSessionIndexService(client EmbeddingClient, repo SessionChunkRepositoryInterface) *SessionIndexService {
	return NewSessionIndexServiceWithConfig(client, repo, DefaultChunkConfig())
}

func NewSessionIndexServiceWithConfig(client EmbeddingClient, repo SessionChunkRepositoryInterface, cfg ChunkConfig) *SessionIndexService {
	return &SessionIndexService{
		client:   client,
		repo:     repo,
		chunkCfg: cfg,
	}
}

// Build chunks text, embeds every chunk, and persists the session's
// namespace in one transaction. Returns the number of chunks indexed.
func (s *SessionIndexService) Build(ctx context.Context, sessionID, text string) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionIndexService.Build", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "build",
	})
	defer span.End()

	chunks, err := ChunkText(text, s.chunkCfg)
	if err != nil {
		return 0, err
	}

	embedded := make([]domain.EmbeddedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		embedding, err := s.client.GenerateEmbedding(ctx, chunk.Text)
		if err != nil {
			return 0, domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild, "failed to embed chunk", err)
		}
		chunk.SourceID = sessionID
		embedded = append(embedded, domain.EmbeddedChunk{Chunk: chunk, Embedding: embedding})
	}

	if err := s.repo.InsertChunks(ctx, sessionID, embedded); err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeIndexBuild, "failed to persist index", err)
	}

	return len(embedded), nil
}

// Query embeds text and returns the k nearest chunks of the session's
// namespace, ties broken by original chunk order. k defaults to
// DefaultRetrieveK when non-positive.
func (s *SessionIndexService) Query(ctx context.Context, sessionID, text string, k int) ([]domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionIndexService.Query", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "query",
	})
	defer span.End()

	if k <= 0 {
		k = DefaultRetrieveK
	}

	embedding, err := s.client.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	return s.repo.SearchNearest(ctx, sessionID, embedding, k)
}

// Dispose removes the session's namespace. Disposing an already-absent
// namespace succeeds; session teardown relies on that.
func (s *SessionIndexService) Dispose(ctx context.Context, sessionID string) error {
	if err := s.repo.DeleteBySession(ctx, sessionID); err != nil {
		return domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to dispose index", err)
	}
	return nil
}
