//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/askdesk/internal/domain"
	"github.com/cloo-solutions/askdesk/internal/pagination"
	"github.com/cloo-solutions/askdesk/internal/service"
	"github.com/cloo-solutions/askdesk/internal/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { _ = pc.Terminate(ctx) })

	return testutil.NewTestPool(ctx, t, pc)
}

func newKnowledgeItem(question string, tier domain.AccessTier, createdAt time.Time) *domain.KnowledgeItem {
	item := domain.NewKnowledgeItem(uuid.NewString(), question, "answer to "+question, "general", tier,
		[]string{"vpn", "remote"}, 1, createdAt.UTC().Truncate(time.Microsecond))
	item.CreatedBy = "admin-1"
	return item
}

func TestKnowledgeItemRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewKnowledgeItemRepository(pool)

	item := newKnowledgeItem("How do I connect to the VPN?", domain.AccessTierIT, time.Now())
	item.Source = "IT Handbook"
	require.NoError(t, repo.Create(ctx, item))

	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, item.Question, got.Question)
	assert.Equal(t, domain.AccessTierIT, got.AccessTier)
	assert.Equal(t, []string{"vpn", "remote"}, got.Keywords)
	assert.Equal(t, "IT Handbook", got.Source)
	assert.True(t, got.Active)
	assert.True(t, item.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrKnowledgeNotFound)
}

func TestKnowledgeItemRepository_UpdateAndRetire(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewKnowledgeItemRepository(pool)

	item := newKnowledgeItem("Where is the holiday calendar?", domain.AccessTierGeneral, time.Now())
	require.NoError(t, repo.Create(ctx, item))

	item.Answer = "On the intranet"
	item.Keywords = nil
	item.Retire(time.Now().UTC())
	require.NoError(t, repo.Update(ctx, item))

	got, err := repo.GetByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "On the intranet", got.Answer)
	assert.Empty(t, got.Keywords)
	assert.False(t, got.Active)

	missing := newKnowledgeItem("ghost", domain.AccessTierGeneral, time.Now())
	assert.ErrorIs(t, repo.Update(ctx, missing), domain.ErrKnowledgeNotFound)
}

func TestKnowledgeItemRepository_ListActiveByTiers(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewKnowledgeItemRepository(pool)

	base := time.Now().Add(-time.Hour)
	older := newKnowledgeItem("older", domain.AccessTierGeneral, base)
	newer := newKnowledgeItem("newer", domain.AccessTierDepartmental, base.Add(time.Minute))
	hidden := newKnowledgeItem("finance only", domain.AccessTierFinance, base)
	retired := newKnowledgeItem("retired", domain.AccessTierGeneral, base)
	retired.Active = false
	for _, k := range []*domain.KnowledgeItem{newer, older, hidden, retired} {
		require.NoError(t, repo.Create(ctx, k))
	}

	items, err := repo.ListActiveByTiers(ctx, []domain.AccessTier{domain.AccessTierGeneral, domain.AccessTierDepartmental})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "older", items[0].Question)
	assert.Equal(t, "newer", items[1].Question)

	items, err = repo.ListActiveByTiers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestKnowledgeItemRepository_ListWithCursor(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	repo := NewKnowledgeItemRepository(pool)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newKnowledgeItem("q"+string(rune('a'+i)), domain.AccessTierGeneral, base.Add(time.Duration(i)*time.Minute))))
	}
	tiers := []domain.AccessTier{domain.AccessTierGeneral}

	page1, err := repo.ListWithCursor(ctx, tiers, nil, 2)
	require.NoError(t, err)
	require.Len(t, page1.Items, 2)
	assert.True(t, page1.HasMore)
	assert.Equal(t, "qe", page1.Items[0].Question)
	assert.Equal(t, "qd", page1.Items[1].Question)

	cursor, err := pagination.DecodeCursor(page1.NextCursor)
	require.NoError(t, err)

	page2, err := repo.ListWithCursor(ctx, tiers, cursor, 10)
	require.NoError(t, err)
	require.Len(t, page2.Items, 3)
	assert.False(t, page2.HasMore)
	assert.Empty(t, page2.NextCursor)
	assert.Equal(t, "qc", page2.Items[0].Question)
}

func TestTxRunner_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	pool := setupPool(ctx, t)
	runner := NewTxRunner(pool)
	repo := NewKnowledgeItemRepository(pool)

	item := newKnowledgeItem("rolled back", domain.AccessTierGeneral, time.Now())
	err := runner.WithTx(ctx, func(repos service.TxRepositories) error {
		require.NoError(t, repos.Knowledge().Create(ctx, item))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = repo.GetByID(ctx, item.ID)
	assert.ErrorIs(t, err, domain.ErrKnowledgeNotFound)
}
