package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/bidcraft/bidcraft/internal/domain"
)

// SessionChunkRepository persists per-session chunk vectors. Each session
// owns a disjoint namespace keyed by its full session id, so cross-session
// operations never touch each other's rows.
type SessionChunkRepository struct {
	pool *pgxpool.Pool
}

func NewSessionChunkRepository(pool *pgxpool.Pool) *SessionChunkRepository {
	return &SessionChunkRepository{pool: pool}
}

// InsertChunks writes all chunks for a session inside one transaction.
// Either every chunk lands or none do, so a failed index build leaves no
// partial namespace behind.
func (r *SessionChunkRepository) InsertChunks(ctx context.Context, sessionID string, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, c := range chunks {
		_, err := tx.Exec(ctx,
			`INSERT INTO session_chunks
				(session_id, chunk_index, content, char_offset, embedding)
			 VALUES
				($1, $2, $3, $4, $5)`,
			sessionID,
			i,
			c.Chunk.Text,
			c.Chunk.Offset,
			pgvector.NewVector(c.Embedding),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SearchNearest returns the k chunks of one session closest to the query
// embedding by cosine distance, ties broken by original chunk order.
func (r *SessionChunkRepository) SearchNearest(ctx context.Context, sessionID string, embedding []float32, k int) ([]domain.Chunk, error) {
	if k <= 0 {
		k = 3
	}

	rows, err := r.pool.Query(ctx,
		`SELECT content, char_offset
		 FROM session_chunks
		 WHERE session_id = $1
		 ORDER BY embedding <=> $2, chunk_index
		 LIMIT $3`,
		sessionID,
		pgvector.NewVector(embedding),
		k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks := make([]domain.Chunk, 0, k)
	for rows.Next() {
		var c domain.Chunk
		if err := rows.Scan(&c.Text, &c.Offset); err != nil {
			return nil, err
		}
		c.SourceID = sessionID
		chunks = append(chunks, c)
	}

	return chunks, rows.Err()
}

// DeleteBySession removes the session's namespace. Deleting an absent
// namespace is not an error; session teardown relies on that.
func (r *SessionChunkRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM session_chunks WHERE session_id = $1`, sessionID)
	return err
}

// CountBySession reports how many chunks a session's namespace holds.
func (r *SessionChunkRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM session_chunks WHERE session_id = $1`, sessionID).Scan(&count)
	return count, err
}
