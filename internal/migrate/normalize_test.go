package migrate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
	"whiskeyballet/internal/storage/memstore"
)

func TestNormalizeTransaction(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantChange bool
		wantMethod string
		wantStatus string
	}{
		{
			name:       "missing method and status defaults to cash completed",
			payload:    `{"id":1,"total":500}`,
			wantChange: true,
			wantMethod: "cash",
			wantStatus: PaymentStatusCompleted,
		},
		{
			name:       "credit without status becomes pending",
			payload:    `{"id":2,"paymentMethod":"credit"}`,
			wantChange: true,
			wantMethod: "credit",
			wantStatus: PaymentStatusPending,
		},
		{
			name:       "invalid status is rederived",
			payload:    `{"id":3,"paymentMethod":"mpesa","paymentStatus":"done"}`,
			wantChange: true,
			wantMethod: "mpesa",
			wantStatus: PaymentStatusCompleted,
		},
		{
			name:       "already normalized is untouched",
			payload:    `{"id":4,"paymentMethod":"cash","paymentStatus":"completed"}`,
			wantChange: false,
			wantMethod: "cash",
			wantStatus: PaymentStatusCompleted,
		},
		{
			name:       "cancelled survives normalization",
			payload:    `{"id":5,"paymentMethod":"cash","paymentStatus":"cancelled"}`,
			wantChange: false,
			wantMethod: "cash",
			wantStatus: PaymentStatusCancelled,
		},
		{
			name:       "partial is not a recognized status",
			payload:    `{"id":6,"paymentMethod":"credit","paymentStatus":"partial"}`,
			wantChange: true,
			wantMethod: "credit",
			wantStatus: PaymentStatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, changed, err := NormalizeTransaction(json.RawMessage(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.wantChange, changed)

			var m map[string]any
			require.NoError(t, json.Unmarshal(out, &m))
			assert.Equal(t, tt.wantMethod, m["paymentMethod"])
			assert.Equal(t, tt.wantStatus, m["paymentStatus"])
		})
	}
}

func TestNormalizeTransactionIsDeterministic(t *testing.T) {
	first, changed, err := NormalizeTransaction(json.RawMessage(`{"id":1,"paymentMethod":"credit"}`))
	require.NoError(t, err)
	require.True(t, changed)

	second, changed, err := NormalizeTransaction(first)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.JSONEq(t, string(first), string(second))
}

func seedTransaction(t *testing.T, store storage.Collections, owner string, id int64, v map[string]any) {
	t.Helper()
	it, err := document.New(id, v, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), owner, document.Transactions, it))
}

func TestEnsureNormalizedRunsOncePerVersion(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	owner := "admin1"

	seedTransaction(t, store, owner, 1, map[string]any{"total": 500})

	n := NewNormalizer(store, store)
	require.NoError(t, n.EnsureNormalized(ctx, owner))

	it, err := store.Get(ctx, owner, document.Transactions, 1)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, it.Decode(&m))
	assert.Equal(t, "cash", m["paymentMethod"])
	assert.Equal(t, PaymentStatusCompleted, m["paymentStatus"])

	val, err := store.GetFlag(ctx, owner, storage.FlagNormalizationVersion)
	require.NoError(t, err)
	assert.Equal(t, "1", val)

	// A fresh normalizer trusts the persisted flag and skips the pass,
	// so a later non-normalized write stays as written.
	seedTransaction(t, store, owner, 2, map[string]any{"total": 100})
	fresh := NewNormalizer(store, store)
	require.NoError(t, fresh.EnsureNormalized(ctx, owner))

	it2, err := store.Get(ctx, owner, document.Transactions, 2)
	require.NoError(t, err)
	var m2 map[string]any
	require.NoError(t, it2.Decode(&m2))
	assert.NotContains(t, m2, "paymentStatus")
}
