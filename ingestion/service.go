package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"

	"github.com/herdwise/livestock-agent/database"
	"github.com/herdwise/livestock-agent/embeddings"
)

type Options struct {
	Dimension    int
	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
}

type Service struct {
	pool     *pgxpool.Pool
	embedder embeddings.Embedder
	opts     Options
	logger   zerolog.Logger
}

func NewService(pool *pgxpool.Pool, embedder embeddings.Embedder, opts Options, logger zerolog.Logger) *Service {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 800
	}
	if opts.ChunkOverlap < 0 {
		opts.ChunkOverlap = 0
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}

	return &Service{
		pool:     pool,
		embedder: embedder,
		opts:     opts,
		logger:   logger,
	}
}

// IngestDirectory walks dir for PDF and JSON record files and loads them
// into the knowledge base. Failures in a single document are logged and
// skipped so one broken file does not abort a corpus build.
func (s *Service) IngestDirectory(ctx context.Context, dir string) error {
	if s.embedder == nil {
		return fmt.Errorf("embedder not configured")
	}
	if err := database.EnsureKBSchema(ctx, s.pool, s.opts.Dimension); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	paths := make([]string, 0)
	if err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".pdf", ".json":
			paths = append(paths, path)
		}
		return nil
	}); err != nil {
		return fmt.Errorf("walk data directory: %w", err)
	}

	if len(paths) == 0 {
		s.logger.Warn().Str("dir", dir).Msg("no PDF or JSON record files found")
		return nil
	}

	for _, path := range paths {
		if err := s.IngestFile(ctx, path); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error().Err(err).Str("path", path).Msg("ingest failed")
		}
	}

	return nil
}

func (s *Service) IngestFile(ctx context.Context, path string) error {
	var (
		records []Record
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		records, err = ExtractPDF(path)
	case ".json":
		records, err = LoadRecordFile(path)
	default:
		return fmt.Errorf("unsupported document format: %s", path)
	}
	if err != nil {
		return err
	}

	if len(records) == 0 {
		s.logger.Warn().Str("path", path).Msg("no content-rich records extracted")
		return nil
	}

	source := filepath.Base(path)
	return s.ingestRecords(ctx, source, records)
}

type pendingChunk struct {
	header  string
	page    string
	content string
}

func (s *Service) ingestRecords(ctx context.Context, source string, records []Record) (err error) {
	pending := make([]pendingChunk, 0, len(records))
	for _, record := range records {
		for _, chunk := range ChunkText(record.Content, s.opts.ChunkSize, s.opts.ChunkOverlap) {
			pending = append(pending, pendingChunk{
				header:  record.Header,
				page:    record.Page,
				content: chunk,
			})
		}
	}
	if len(pending) == 0 {
		return nil
	}

	vectors, err := s.embedAll(ctx, pending)
	if err != nil {
		return err
	}

	hash := contentHash(pending)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				s.logger.Error().Err(rbErr).Msg("rollback error")
			}
		}
	}()

	docID, changed, err := upsertDocument(ctx, tx, source, hash)
	if err != nil {
		return err
	}

	if !changed {
		if err = tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		s.logger.Info().Str("source", source).Msg("document unchanged, skipping")
		return nil
	}

	if _, err = tx.Exec(ctx, "DELETE FROM kb_chunks WHERE document_id = $1", docID); err != nil {
		return fmt.Errorf("clear existing chunks: %w", err)
	}

	for idx, chunk := range pending {
		vec := pgvector.NewVector(vectors[idx])
		if _, err = tx.Exec(ctx, `
			INSERT INTO kb_chunks (id, document_id, chunk_index, header, page, content, embedding, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		`, uuid.New(), docID, idx, chunk.header, chunk.page, chunk.content, vec); err != nil {
			return fmt.Errorf("insert chunk %d: %w", idx, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info().Str("source", source).Int("chunks", len(pending)).Msg("document ingested")
	return nil
}

// embedAll embeds the chunk texts in batches. The header is prepended to the
// embedded text so topical context survives chunking.
func (s *Service) embedAll(ctx context.Context, pending []pendingChunk) ([][]float32, error) {
	texts := make([]string, len(pending))
	for i, chunk := range pending {
		if chunk.header != "" {
			texts[i] = chunk.header + ". " + chunk.content
		} else {
			texts[i] = chunk.content
		}
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch starting at %d: %w", start, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: sent %d texts, got %d vectors", end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func upsertDocument(ctx context.Context, tx pgx.Tx, source, sha string) (uuid.UUID, bool, error) {
	var (
		docID        uuid.UUID
		existingHash string
	)

	err := tx.QueryRow(ctx, "SELECT id, sha256 FROM kb_documents WHERE source = $1", source).Scan(&docID, &existingHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			newID := uuid.New()
			_, execErr := tx.Exec(ctx, `
				INSERT INTO kb_documents (id, source, title, sha256, created_at, updated_at)
				VALUES ($1, $2, $3, $4, NOW(), NOW())
			`, newID, source, source, sha)
			if execErr != nil {
				return uuid.Nil, false, fmt.Errorf("insert document: %w", execErr)
			}
			return newID, true, nil
		}
		return uuid.Nil, false, fmt.Errorf("query document: %w", err)
	}

	if existingHash == sha {
		return docID, false, nil
	}

	if _, err := tx.Exec(ctx, `
		UPDATE kb_documents
		SET sha256 = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, docID, sha); err != nil {
		return uuid.Nil, false, fmt.Errorf("update document: %w", err)
	}

	return docID, true, nil
}

func contentHash(pending []pendingChunk) string {
	h := sha256.New()
	for _, chunk := range pending {
		h.Write([]byte(chunk.header))
		h.Write([]byte{0})
		h.Write([]byte(chunk.page))
		h.Write([]byte{0})
		h.Write([]byte(chunk.content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
