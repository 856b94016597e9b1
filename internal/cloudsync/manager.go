package cloudsync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"whiskeyballet/internal/core/id"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// State is the manager's connectivity/sync state.
type State string

const (
	StateOffline       State = "offline"
	StateOnlineIdle    State = "online-idle"
	StateOnlineSyncing State = "online-syncing"
)

// Status is what listeners observe on every state change.
type Status struct {
	Online    bool      `json:"online"`
	Syncing   bool      `json:"syncing"`
	QueueSize int       `json:"queueSize"`
	LastSync  time.Time `json:"lastSync"`
}

// Listener receives status snapshots. Called synchronously; keep it
// cheap.
type Listener func(Status)

// Manager owns the pending mutation queue for one tenant and drains
// it against the remote endpoint whenever the connection is up.
type Manager struct {
	client *Client
	queue  *queueStore
	owner  string

	probeInterval time.Duration

	mu        sync.Mutex
	state     State
	pending   []Entry
	lastSync  time.Time
	listeners []Listener
}

// NewManager creates a sync manager for one owner. Call Load before
// Run to pick up a persisted queue.
func NewManager(client *Client, flags storage.Flags, owner string) *Manager {
	return &Manager{
		client:        client,
		queue:         &queueStore{flags: flags, owner: owner},
		owner:         owner,
		probeInterval: 30 * time.Second,
		state:         StateOffline,
	}
}

// Load restores the persisted queue.
func (m *Manager) Load(ctx context.Context) error {
	entries, err := m.queue.load(ctx)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.pending = entries
	m.mu.Unlock()
	return nil
}

// Subscribe registers a listener and immediately delivers the current
// status.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	m.listeners = append(m.listeners, l)
	status := m.statusLocked()
	m.mu.Unlock()
	l(status)
}

// Status returns the current snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.statusLocked()
}

func (m *Manager) statusLocked() Status {
	return Status{
		Online:    m.state != StateOffline,
		Syncing:   m.state == StateOnlineSyncing,
		QueueSize: len(m.pending),
		LastSync:  m.lastSync,
	}
}

// Enqueue appends a mutation and, when idle online, starts a drain.
func (m *Manager) Enqueue(ctx context.Context, action Action, collection string, data json.RawMessage) error {
	m.mu.Lock()
	m.pending = append(m.pending, Entry{
		ID:         id.New(),
		Action:     action,
		Collection: collection,
		Data:       data,
	})
	entries := append([]Entry(nil), m.pending...)
	startDrain := m.state == StateOnlineIdle
	m.mu.Unlock()

	if err := m.queue.save(ctx, entries); err != nil {
		return err
	}
	m.notify()

	if startDrain {
		go m.drain(context.WithoutCancel(ctx))
	}
	return nil
}

// Run probes connectivity on an interval until the context ends,
// moving between offline and online states and draining the queue on
// each transition to online.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.probeInterval)
	defer ticker.Stop()

	m.checkConnectivity(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkConnectivity(ctx)
		}
	}
}

func (m *Manager) checkConnectivity(ctx context.Context) {
	online := m.client.Probe(ctx)

	m.mu.Lock()
	wasOffline := m.state == StateOffline
	switch {
	case !online:
		m.state = StateOffline
	case wasOffline:
		m.state = StateOnlineIdle
	}
	hasPending := len(m.pending) > 0
	idle := m.state == StateOnlineIdle
	m.mu.Unlock()

	m.notify()
	if online && wasOffline {
		logger.Info(ctx, "sync connection restored", "owner", m.owner)
	}
	if idle && hasPending {
		go m.drain(ctx)
	}
}

// drain replays the queue in order. A network failure leaves the
// remaining entries queued for the next online transition.
func (m *Manager) drain(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateOnlineIdle || len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	m.state = StateOnlineSyncing
	entries := append([]Entry(nil), m.pending...)
	m.mu.Unlock()
	m.notify()

	results, err := m.client.Push(ctx, m.owner, entries)
	if err != nil {
		logger.Warn(ctx, "sync push failed, queue retained",
			"owner", m.owner, "pending", len(entries), "error", err)
		m.mu.Lock()
		m.state = StateOffline
		m.mu.Unlock()
		m.notify()
		return
	}

	synced := make(map[id.ID]bool, len(results))
	for i, r := range results {
		if r.Success && i < len(entries) {
			synced[entries[i].ID] = true
		}
	}

	m.mu.Lock()
	remaining := m.pending[:0]
	for _, e := range m.pending {
		if !synced[e.ID] {
			remaining = append(remaining, e)
		}
	}
	m.pending = remaining
	m.lastSync = time.Now().UTC()
	m.state = StateOnlineIdle
	persisted := append([]Entry(nil), m.pending...)
	m.mu.Unlock()

	if err := m.queue.save(ctx, persisted); err != nil {
		logger.Error(ctx, "persist sync queue failed", "owner", m.owner, "error", err)
	}
	m.notify()
	logger.Info(ctx, "sync queue drained",
		"owner", m.owner, "synced", len(synced), "remaining", len(persisted))
}

func (m *Manager) notify() {
	m.mu.Lock()
	status := m.statusLocked()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		l(status)
	}
}
