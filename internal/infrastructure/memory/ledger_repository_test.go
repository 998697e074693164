package memory

import (
	"context"
	"testing"
	"time"

	domain "github.com/Zhima-Mochi/travelshop/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerRepository()
	e := domain.NewEntry("pay_1", "o1", "u1", "kakaopay", 280000, "KRW", nil)
	require.NoError(t, repo.Insert(ctx, e))
	assert.ErrorIs(t, repo.Insert(ctx, e), domain.ErrConflict)

	stale, err := repo.Get(ctx, "pay_1")
	require.NoError(t, err)

	fresh, err := repo.Get(ctx, "pay_1")
	require.NoError(t, err)
	require.NoError(t, fresh.Complete("T123", time.Now()))
	require.NoError(t, repo.Update(ctx, fresh))

	require.NoError(t, stale.Fail(domain.CodeDeclined))
	assert.ErrorIs(t, repo.Update(ctx, stale), domain.ErrConflict)

	got, err := repo.Get(ctx, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "T123", got.TransactionID)

	require.NoError(t, repo.Insert(ctx, domain.NewEntry("pay_2", "o1", "u1", "tosspayments", 280000, "KRW", nil)))
	list, err := repo.ListByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
