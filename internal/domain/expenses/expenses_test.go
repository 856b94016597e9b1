package expenses

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiskeyballet/internal/domain/settings"
	"whiskeyballet/internal/storage/memstore"
)

const owner = "admin1"

func newTestService(t *testing.T, spendingLimit float64) *Service {
	t.Helper()
	store := memstore.New()
	cfgService := settings.NewService(store)
	if spendingLimit > 0 {
		cfg, err := cfgService.Get(context.Background(), owner)
		require.NoError(t, err)
		cfg.SpendingLimit = spendingLimit
		require.NoError(t, cfgService.Update(context.Background(), owner, cfg))
	}
	return NewService(store, cfgService)
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 0)

	_, err := svc.Create(ctx, owner, Expense{Amount: 0})
	assert.Error(t, err)

	_, err = svc.Create(ctx, owner, Expense{Amount: 100, Type: "loan"})
	assert.Error(t, err)
}

func TestCreateDefaultsToExpenseType(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 0)

	result, err := svc.Create(ctx, owner, Expense{Amount: 500, Category: "transport"})
	require.NoError(t, err)
	assert.Equal(t, TypeExpense, result.Expense.Type)
	assert.Equal(t, int64(1), result.Expense.ID)
	assert.False(t, result.Expense.Timestamp.IsZero())
}

func TestNoAlertWithoutConfiguredLimit(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 0)

	result, err := svc.Create(ctx, owner, Expense{Amount: 1_000_000})
	require.NoError(t, err)
	assert.False(t, result.OverLimit)
}

func TestSingleExpenseOverLimitFiresAlert(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 1000)

	result, err := svc.Create(ctx, owner, Expense{Amount: 1500})
	require.NoError(t, err)
	assert.True(t, result.OverLimit)

	// The write itself still landed.
	entries, err := svc.List(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMonthTotalBreachFiresAlert(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 1000)

	// Stay under the per-expense limit but push the month past 5x.
	for i := 0; i < 5; i++ {
		result, err := svc.Create(ctx, owner, Expense{Amount: 990})
		require.NoError(t, err)
		assert.False(t, result.OverLimit)
	}

	result, err := svc.Create(ctx, owner, Expense{Amount: 990})
	require.NoError(t, err)
	assert.True(t, result.OverLimit)
}

func TestIncomeNeverFiresAlert(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, 1000)

	result, err := svc.Create(ctx, owner, Expense{Amount: 5000, Type: TypeIncome})
	require.NoError(t, err)
	assert.False(t, result.OverLimit)
}
