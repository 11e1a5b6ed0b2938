package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

type PostgresIndex struct {
	pool *pgxpool.Pool
}

func NewPostgresIndex(pool *pgxpool.Pool) *PostgresIndex {
	return &PostgresIndex{pool: pool}
}

func (s *PostgresIndex) Search(ctx context.Context, embedding []float32, topK int) ([]ChunkMatch, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if topK <= 0 {
		topK = 5
	}

	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	probes := topK * 10
	if probes < 10 {
		probes = 10
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET ivfflat.probes = %d", probes)); err != nil {
		return nil, fmt.Errorf("set ivfflat probes: %w", err)
	}

	rows, err := conn.Query(ctx, `
        SELECT
            kc.id,
            kd.source,
            COALESCE(kd.title, ''),
            COALESCE(kc.header, ''),
            COALESCE(kc.page, ''),
            kc.content,
            (kc.embedding <=> $1::vector) AS distance
        FROM kb_chunks kc
        JOIN kb_documents kd ON kd.id = kc.document_id
        ORDER BY kc.embedding <=> $1::vector
        LIMIT $2
    `, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	results := make([]ChunkMatch, 0, topK)
	for rows.Next() {
		var item ChunkMatch
		var distance float64
		if scanErr := rows.Scan(&item.ChunkID, &item.Source, &item.Title, &item.Header, &item.Page, &item.Content, &distance); scanErr != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", scanErr)
		}
		// Cosine distance is in [0,2]; clamp so the score stays in [0,1].
		item.Score = 1 - distance
		if item.Score < 0 {
			item.Score = 0
		}
		results = append(results, item)
	}

	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return results, nil
}

func (s *PostgresIndex) Count(ctx context.Context) (int64, error) {
	if s.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM kb_chunks").Scan(&count); err != nil {
		return 0, fmt.Errorf("count indexed chunks: %w", err)
	}
	return count, nil
}

var _ Index = (*PostgresIndex)(nil)
