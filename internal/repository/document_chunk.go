package repository

import (
	"context"
	"math"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/index"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/samber/lo"
)

// DocumentChunkRepository stores chunk embeddings in pgvector and ranks documents by cosine similarity.
type DocumentChunkRepository struct {
	db dbtx
}

func NewDocumentChunkRepository(pool *pgxpool.Pool) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: pool}
}

func NewDocumentChunkRepositoryWithTx(tx pgx.Tx) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: tx}
}

// ReplaceChunks deletes existing chunks for a document and inserts new ones atomically.
func (r *DocumentChunkRepository) ReplaceChunks(ctx context.Context, documentID string, chunks []domain.DocumentChunk) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID); err != nil {
			return err
		}

		for _, c := range chunks {
			createdAt := c.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO document_chunks
					(id, document_id, chunk_index, start_offset, end_offset, content, embedding, embedding_model, created_at)
				 VALUES
					($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				c.ID,
				documentID,
				c.ChunkIndex,
				c.StartOffset,
				c.EndOffset,
				c.Text,
				pgvector.NewVector(c.Embedding),
				c.EmbeddingModel,
				createdAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *DocumentChunkRepository) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM document_chunks WHERE document_id = $1`, documentID)
	return err
}

// CountChunks returns how many chunks are stored for a document.
func (r *DocumentChunkRepository) CountChunks(ctx context.Context, documentID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`, documentID).Scan(&n)
	return n, err
}

// Search scores each candidate document by its best chunk and returns the ranked survivors.
// Chunks whose dimension differs from the query vector never match.
func (r *DocumentChunkRepository) Search(ctx context.Context, vector []float32, candidates []domain.SearchCandidate, opts domain.SearchOptions) ([]domain.ScoredDocument, error) {
	if len(vector) == 0 || len(candidates) == 0 {
		return nil, nil
	}

	ids := lo.Map(candidates, func(c domain.SearchCandidate, _ int) string { return c.DocumentID })
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT ON (document_id)
		        document_id, id, chunk_index, content, 1 - (embedding <=> $1) AS score
		 FROM document_chunks
		 WHERE document_id = ANY($2) AND vector_dims(embedding) = $3
		 ORDER BY document_id, embedding <=> $1, chunk_index`,
		pgvector.NewVector(vector), ids, len(vector),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	best := make(map[string]domain.ScoredDocument, len(candidates))
	for rows.Next() {
		var s domain.ScoredDocument
		if err := rows.Scan(&s.DocumentID, &s.ChunkID, &s.ChunkIndex, &s.ChunkText, &s.Score); err != nil {
			return nil, err
		}
		// Zero-norm vectors yield NaN distances.
		if math.IsNaN(s.Score) {
			s.Score = 0
		}
		s.Score = math.Max(-1, math.Min(1, s.Score))
		best[s.DocumentID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return index.RankDocuments(best, candidates, opts), nil
}
