package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/pagination"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const knowledgeColumns = `id, question, answer, category, access_tier, keywords, priority, active, source, created_by, created_at, updated_at`

type KnowledgeItemRepository struct {
	db dbtx
}

func NewKnowledgeItemRepository(pool *pgxpool.Pool) *KnowledgeItemRepository {
	return &KnowledgeItemRepository{db: pool}
}

func NewKnowledgeItemRepositoryWithTx(tx pgx.Tx) *KnowledgeItemRepository {
	return &KnowledgeItemRepository{db: tx}
}

func (r *KnowledgeItemRepository) Create(ctx context.Context, k *domain.KnowledgeItem) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_items (`+knowledgeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		k.ID, k.Question, k.Answer, k.Category, string(k.AccessTier), nonNilStrings(k.Keywords),
		k.Priority, k.Active, k.Source, k.CreatedBy, k.CreatedAt, k.UpdatedAt,
	)
	return err
}

func (r *KnowledgeItemRepository) GetByID(ctx context.Context, id string) (*domain.KnowledgeItem, error) {
	k, err := scanKnowledgeItem(r.db.QueryRow(ctx,
		`SELECT `+knowledgeColumns+` FROM knowledge_items WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeNotFound
		}
		return nil, err
	}
	return k, nil
}

func (r *KnowledgeItemRepository) Update(ctx context.Context, k *domain.KnowledgeItem) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE knowledge_items
		 SET question = $1, answer = $2, category = $3, access_tier = $4, keywords = $5,
		     priority = $6, active = $7, source = $8, updated_at = $9
		 WHERE id = $10`,
		k.Question, k.Answer, k.Category, string(k.AccessTier), nonNilStrings(k.Keywords),
		k.Priority, k.Active, k.Source, k.UpdatedAt, k.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrKnowledgeNotFound
	}
	return nil
}

// ListActiveByTiers returns active items in the given tiers, oldest first.
func (r *KnowledgeItemRepository) ListActiveByTiers(ctx context.Context, tiers []domain.AccessTier) ([]*domain.KnowledgeItem, error) {
	if len(tiers) == 0 {
		return nil, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+knowledgeColumns+`
		 FROM knowledge_items
		 WHERE active AND access_tier = ANY($1)
		 ORDER BY created_at, id`,
		tierStrings(tiers),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanKnowledgeRows(rows)
}

func (r *KnowledgeItemRepository) ListWithCursor(ctx context.Context, tiers []domain.AccessTier, cursor *pagination.Cursor, limit int) (*service.KnowledgePageResult, error) {
	limit = pagination.ClampLimit(limit)

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeColumns+`
			 FROM knowledge_items
			 WHERE active AND access_tier = ANY($1) AND (updated_at, id) < ($2, $3)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $4`,
			tierStrings(tiers), cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+knowledgeColumns+`
			 FROM knowledge_items
			 WHERE active AND access_tier = ANY($1)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $2`,
			tierStrings(tiers), limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanKnowledgeRows(rows)
	if err != nil {
		return nil, err
	}

	items, nextCursor, hasMore := pagination.Trim(items, limit, func(k *domain.KnowledgeItem) (string, time.Time) {
		return k.ID, k.UpdatedAt
	})

	return &service.KnowledgePageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func scanKnowledgeItem(row scanner) (*domain.KnowledgeItem, error) {
	var k domain.KnowledgeItem
	var tier string
	if err := row.Scan(&k.ID, &k.Question, &k.Answer, &k.Category, &tier, &k.Keywords, &k.Priority,
		&k.Active, &k.Source, &k.CreatedBy, &k.CreatedAt, &k.UpdatedAt); err != nil {
		return nil, err
	}
	k.AccessTier = domain.AccessTier(tier)
	return &k, nil
}

func scanKnowledgeRows(rows pgx.Rows) ([]*domain.KnowledgeItem, error) {
	var results []*domain.KnowledgeItem
	for rows.Next() {
		k, err := scanKnowledgeItem(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, k)
	}
	return results, rows.Err()
}
