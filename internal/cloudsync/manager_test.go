package cloudsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage/memstore"
)

// syncServer answers the probe and replays pushes through the given
// per-entry result function.
func syncServer(t *testing.T, result func(Entry) ItemResult) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		var req PushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := PushResponse{}
		for _, e := range req.Queue {
			resp.Results = append(resp.Results, result(e))
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func TestManagerDrainsQueueOnOnlineTransition(t *testing.T) {
	ctx := context.Background()
	flags := memstore.New()

	var pushed atomic.Int32
	srv := syncServer(t, func(e Entry) ItemResult {
		pushed.Add(1)
		return ItemResult{Success: true, Action: e.Action, Collection: e.Collection, Status: "synced"}
	})
	defer srv.Close()

	m := NewManager(NewClient(srv.URL, ""), flags, "admin1")
	require.NoError(t, m.Load(ctx))
	require.NoError(t, m.Enqueue(ctx, ActionAdd, document.Inventory, json.RawMessage(`{"id":1}`)))
	require.NoError(t, m.Enqueue(ctx, ActionUpdate, document.Inventory, json.RawMessage(`{"id":1,"price":300}`)))
	require.Equal(t, 2, m.Status().QueueSize)

	m.checkConnectivity(ctx)

	require.Eventually(t, func() bool {
		s := m.Status()
		return s.Online && !s.Syncing && s.QueueSize == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(2), pushed.Load())
	assert.False(t, m.Status().LastSync.IsZero())

	// The drained queue is what a restart sees.
	restarted := NewManager(NewClient(srv.URL, ""), flags, "admin1")
	require.NoError(t, restarted.Load(ctx))
	assert.Zero(t, restarted.Status().QueueSize)
}

func TestManagerKeepsRejectedEntriesQueued(t *testing.T) {
	ctx := context.Background()
	flags := memstore.New()

	// Only adds succeed; the update is reported failed and must stay
	// queued.
	srv := syncServer(t, func(e Entry) ItemResult {
		return ItemResult{Success: e.Action == ActionAdd, Action: e.Action, Collection: e.Collection}
	})
	defer srv.Close()

	m := NewManager(NewClient(srv.URL, ""), flags, "admin1")
	require.NoError(t, m.Load(ctx))
	require.NoError(t, m.Enqueue(ctx, ActionAdd, document.Inventory, json.RawMessage(`{"id":1}`)))
	require.NoError(t, m.Enqueue(ctx, ActionUpdate, document.Inventory, json.RawMessage(`{"id":2}`)))

	m.checkConnectivity(ctx)

	require.Eventually(t, func() bool {
		return m.Status().QueueSize == 1
	}, 2*time.Second, 10*time.Millisecond)

	remaining, err := (&queueStore{flags: flags, owner: "admin1"}).load(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, ActionUpdate, remaining[0].Action)
}

func TestManagerPushFailureRetainsQueueAndGoesOffline(t *testing.T) {
	ctx := context.Background()
	flags := memstore.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	m := NewManager(NewClient(srv.URL, ""), flags, "admin1")
	require.NoError(t, m.Load(ctx))
	require.NoError(t, m.Enqueue(ctx, ActionAdd, document.Inventory, json.RawMessage(`{"id":1}`)))
	require.NoError(t, m.Enqueue(ctx, ActionDelete, document.Inventory, json.RawMessage(`{"id":2}`)))

	m.checkConnectivity(ctx)

	require.Eventually(t, func() bool {
		s := m.Status()
		return !s.Online && s.QueueSize == 2
	}, 2*time.Second, 10*time.Millisecond)

	remaining, err := (&queueStore{flags: flags, owner: "admin1"}).load(ctx)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestObservedStoreMirrorsWritesIntoQueue(t *testing.T) {
	ctx := context.Background()
	flags := memstore.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	m := NewManager(NewClient(srv.URL, ""), flags, "admin1")
	require.NoError(t, m.Load(ctx))

	inner := memstore.New()
	store := NewObservedStore(inner, m)

	live, err := document.New(1, map[string]any{"name": "Tusker"}, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "admin1", document.Inventory, live))

	gone, err := document.New(2, map[string]any{"name": "Guinness"}, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, gone.Tombstone(document.UserRef{}, time.Now()))
	require.NoError(t, store.PutBatch(ctx, "admin1", document.Inventory, []document.Item{gone}))

	// Another tenant's write is not mirrored.
	other, err := document.New(3, map[string]any{"name": "other"}, nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "admin2", document.Inventory, other))

	entries, err := (&queueStore{flags: flags, owner: "admin1"}).load(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionUpdate, entries[0].Action)
	assert.Equal(t, ActionDelete, entries[1].Action)

	// The write itself landed regardless of queue state.
	got, err := inner.Get(ctx, "admin1", document.Inventory, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.ID)
}
