package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/pagination"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, display_name, category, access_tier, file_type, size_bytes, storage_key, uploaded_by,
	status, extracted_text, summary, keywords, chunk_count, error_message, is_active,
	created_at, updated_at, processed_at, indexed_at`

// listDocumentColumns skips extracted_text, which list views never show.
const listDocumentColumns = `id, display_name, category, access_tier, file_type, size_bytes, storage_key, uploaded_by,
	status, '' AS extracted_text, summary, keywords, chunk_count, error_message, is_active,
	created_at, updated_at, processed_at, indexed_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		d.ID, d.DisplayName, d.Category, string(d.AccessTier), d.FileType, d.SizeBytes, d.StorageKey, d.UploadedBy,
		string(d.Status), d.ExtractedText, d.Summary, nonNilStrings(d.Keywords), d.ChunkCount, d.ErrorMessage, d.IsActive,
		d.CreatedAt, d.UpdatedAt, d.ProcessedAt, d.IndexedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	d, err := scanDocument(r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return d, nil
}

// GetByIDs returns the documents that exist among ids, in no particular order.
func (r *DocumentRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+listDocumentColumns+` FROM documents WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocumentRows(rows)
}

// Update writes the mutable fields of an active document. It never touches
// is_active, so a run holding a stale copy cannot revive a deactivated row.
func (r *DocumentRepository) Update(ctx context.Context, d *domain.Document) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET display_name = $1, category = $2, access_tier = $3, status = $4, extracted_text = $5,
		     summary = $6, keywords = $7, chunk_count = $8, error_message = $9,
		     updated_at = $10, processed_at = $11, indexed_at = $12
		 WHERE id = $13 AND is_active`,
		d.DisplayName, d.Category, string(d.AccessTier), string(d.Status), d.ExtractedText,
		d.Summary, nonNilStrings(d.Keywords), d.ChunkCount, d.ErrorMessage,
		d.UpdatedAt, d.ProcessedAt, d.IndexedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return r.missingOrInactive(ctx, d.ID)
	}
	return nil
}

// Deactivate clears is_active. It reports false when the row was already inactive.
func (r *DocumentRepository) Deactivate(ctx context.Context, id string, at time.Time) (bool, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents SET is_active = FALSE, updated_at = $2 WHERE id = $1 AND is_active`,
		id, at,
	)
	if err != nil {
		return false, err
	}
	if cmdTag.RowsAffected() == 0 {
		if err := r.missingOrInactive(ctx, id); !errors.Is(err, domain.ErrDocumentInactive) {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *DocumentRepository) missingOrInactive(ctx context.Context, id string) error {
	var active bool
	err := r.db.QueryRow(ctx, `SELECT is_active FROM documents WHERE id = $1`, id).Scan(&active)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrDocumentNotFound
	case err != nil:
		return err
	case !active:
		return domain.ErrDocumentInactive
	default:
		return fmt.Errorf("document %s: update matched no rows", id)
	}
}

// ListSearchCandidates returns active Indexed documents in the given tiers, earliest indexed first.
func (r *DocumentRepository) ListSearchCandidates(ctx context.Context, tiers []domain.AccessTier) ([]domain.SearchCandidate, error) {
	if len(tiers) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, access_tier, status, indexed_at
		 FROM documents
		 WHERE is_active AND status = $1 AND access_tier = ANY($2)
		 ORDER BY indexed_at, id`,
		string(domain.DocumentStatusIndexed), tierStrings(tiers),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []domain.SearchCandidate
	for rows.Next() {
		var c domain.SearchCandidate
		var tier, status string
		var indexedAt *time.Time
		if err := rows.Scan(&c.DocumentID, &tier, &status, &indexedAt); err != nil {
			return nil, err
		}
		c.AccessTier = domain.AccessTier(tier)
		c.Status = domain.DocumentStatus(status)
		if indexedAt != nil {
			c.IndexedAt = *indexedAt
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, tiers []domain.AccessTier, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	limit = pagination.ClampLimit(limit)

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+listDocumentColumns+`
			 FROM documents
			 WHERE is_active AND access_tier = ANY($1) AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			tierStrings(tiers), cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+listDocumentColumns+`
			 FROM documents
			 WHERE is_active AND access_tier = ANY($1)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			tierStrings(tiers), limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	items, nextCursor, hasMore := pagination.Trim(items, limit, func(d *domain.Document) (string, time.Time) {
		return d.ID, d.CreatedAt
	})

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListStaleUploaded returns IDs of active documents left in Uploaded since before the given time.
func (r *DocumentRepository) ListStaleUploaded(ctx context.Context, uploadedBefore time.Time, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id FROM documents
		 WHERE is_active AND status = $1 AND updated_at < $2
		 ORDER BY updated_at
		 LIMIT $3`,
		string(domain.DocumentStatusUploaded), uploadedBefore, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanDocument(row scanner) (*domain.Document, error) {
	var d domain.Document
	var tier, status string
	if err := row.Scan(
		&d.ID, &d.DisplayName, &d.Category, &tier, &d.FileType, &d.SizeBytes, &d.StorageKey, &d.UploadedBy,
		&status, &d.ExtractedText, &d.Summary, &d.Keywords, &d.ChunkCount, &d.ErrorMessage, &d.IsActive,
		&d.CreatedAt, &d.UpdatedAt, &d.ProcessedAt, &d.IndexedAt,
	); err != nil {
		return nil, err
	}
	d.AccessTier = domain.AccessTier(tier)
	d.Status = domain.DocumentStatus(status)
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, d)
	}
	return results, rows.Err()
}
