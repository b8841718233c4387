package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

// QueryRepository persists questions, answers and citations.
type QueryRepository struct {
	db dbtx
}

func NewQueryRepository(pool *pgxpool.Pool) *QueryRepository {
	return &QueryRepository{db: pool}
}

func NewQueryRepositoryWithTx(tx pgx.Tx) *QueryRepository {
	return &QueryRepository{db: tx}
}

func (r *QueryRepository) CreateQuery(ctx context.Context, q *domain.Query) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO queries
			(id, text, requester_id, requester_role, requester_department, answered, confidence, answer_source, response_time_ms, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		q.ID, q.Text, q.RequesterID, q.RequesterRole, q.RequesterDepartment,
		q.Answered, q.Confidence, nullableString(string(q.AnswerSource)), q.ResponseTimeMs, q.CreatedAt,
	)
	return err
}

func (r *QueryRepository) CompleteQuery(ctx context.Context, q *domain.Query) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE queries SET answered = $1, confidence = $2, answer_source = $3, response_time_ms = $4
		 WHERE id = $5`,
		q.Answered, q.Confidence, nullableString(string(q.AnswerSource)), q.ResponseTimeMs, q.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrQueryNotFound
	}
	return nil
}

// CreateAnswer stores the answer and its citations in one transaction.
func (r *QueryRepository) CreateAnswer(ctx context.Context, a *domain.Answer) error {
	return inTx(ctx, r.db, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO answers (id, query_id, text, source, confidence, from_structured_data, knowledge_item_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, a.QueryID, a.Text, a.Source, a.Confidence, a.FromStructuredData, nullableString(a.KnowledgeItemID), a.CreatedAt,
		)
		if err != nil {
			return err
		}

		for i, c := range a.Citations {
			_, err := tx.Exec(ctx,
				`INSERT INTO citations (answer_id, position, document_id, document_name, chunk_id, relevance_score, cited_text)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
				a.ID, i, c.DocumentID, c.DocumentName, nullableString(c.ChunkID), c.RelevanceScore, c.CitedText,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ListByRequester returns the requester's most recent queries with their answers, newest first.
func (r *QueryRepository) ListByRequester(ctx context.Context, requesterID string, limit int) ([]*domain.QueryRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.db.Query(ctx,
		`SELECT q.id, q.text, q.requester_id, q.requester_role, q.requester_department, q.answered,
		        q.confidence, q.answer_source, q.response_time_ms, q.created_at,
		        a.id, a.text, a.source, a.confidence, a.from_structured_data, a.knowledge_item_id, a.created_at
		 FROM queries q
		 LEFT JOIN answers a ON a.query_id = q.id
		 WHERE q.requester_id = $1
		 ORDER BY q.created_at DESC, q.id DESC
		 LIMIT $2`,
		requesterID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.QueryRecord
	for rows.Next() {
		var q domain.Query
		var source, answerID, answerText, answerSource, knowledgeID *string
		var answerConfidence *float64
		var structured *bool
		var answerCreatedAt *time.Time
		if err := rows.Scan(
			&q.ID, &q.Text, &q.RequesterID, &q.RequesterRole, &q.RequesterDepartment, &q.Answered,
			&q.Confidence, &source, &q.ResponseTimeMs, &q.CreatedAt,
			&answerID, &answerText, &answerSource, &answerConfidence, &structured, &knowledgeID, &answerCreatedAt,
		); err != nil {
			return nil, err
		}
		q.AnswerSource = domain.AnswerSource(derefString(source))

		record := &domain.QueryRecord{Query: &q}
		if answerID != nil {
			record.Answer = &domain.Answer{
				ID:                 *answerID,
				QueryID:            q.ID,
				Text:               derefString(answerText),
				Source:             derefString(answerSource),
				Confidence:         lo.FromPtr(answerConfidence),
				FromStructuredData: lo.FromPtr(structured),
				KnowledgeItemID:    derefString(knowledgeID),
				CreatedAt:          lo.FromPtr(answerCreatedAt),
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachCitations(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *QueryRepository) attachCitations(ctx context.Context, records []*domain.QueryRecord) error {
	answers := lo.FilterMap(records, func(rec *domain.QueryRecord, _ int) (*domain.Answer, bool) {
		return rec.Answer, rec.Answer != nil
	})
	if len(answers) == 0 {
		return nil
	}

	byID := lo.KeyBy(answers, func(a *domain.Answer) string { return a.ID })
	rows, err := r.db.Query(ctx,
		`SELECT answer_id, document_id, document_name, chunk_id, relevance_score, cited_text
		 FROM citations
		 WHERE answer_id = ANY($1)
		 ORDER BY answer_id, position`,
		lo.Keys(byID),
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var answerID string
		var chunkID *string
		var c domain.Citation
		if err := rows.Scan(&answerID, &c.DocumentID, &c.DocumentName, &chunkID, &c.RelevanceScore, &c.CitedText); err != nil {
			return err
		}
		c.ChunkID = derefString(chunkID)
		if a, ok := byID[answerID]; ok {
			a.Citations = append(a.Citations, c)
		}
	}
	return rows.Err()
}
