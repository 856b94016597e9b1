// Package migrate holds versioned, idempotent data-shape upgrades
// and the bulk migration between storage backends.
package migrate

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// NormalizationVersion gates the payment-status pass; bump it to
// force a re-run on existing data.
const NormalizationVersion = 1

// Valid payment statuses after normalization.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusCancelled = "cancelled"
)

// Normalizer runs the payment-status upgrade on transactions. The
// pass is gated by a persisted version flag and additionally cached
// per owner for the life of the process, so the first transactions
// read per session pays the check once.
type Normalizer struct {
	store storage.Collections
	flags storage.Flags

	checked sync.Map // map[string]struct{}
}

func NewNormalizer(store storage.Collections, flags storage.Flags) *Normalizer {
	return &Normalizer{store: store, flags: flags}
}

// EnsureNormalized runs the normalization pass for an owner unless
// the persisted version flag says it already ran.
func (n *Normalizer) EnsureNormalized(ctx context.Context, owner string) error {
	if _, done := n.checked.Load(owner); done {
		return nil
	}

	val, err := n.flags.GetFlag(ctx, owner, storage.FlagNormalizationVersion)
	if err != nil {
		return err
	}
	if v, _ := strconv.Atoi(val); v >= NormalizationVersion {
		n.checked.Store(owner, struct{}{})
		return nil
	}

	changed, err := n.Run(ctx, owner)
	if err != nil {
		return err
	}
	if err := n.flags.SetFlag(ctx, owner, storage.FlagNormalizationVersion,
		strconv.Itoa(NormalizationVersion)); err != nil {
		return err
	}
	n.checked.Store(owner, struct{}{})
	if changed > 0 {
		logger.Info(ctx, "normalized transaction payment statuses",
			"owner", owner, "changed", changed)
	}
	return nil
}

// Run normalizes every transaction in place and persists the changed
// ones. Returns how many documents were modified.
func (n *Normalizer) Run(ctx context.Context, owner string) (int, error) {
	items, _, err := n.store.List(ctx, owner, document.Transactions, true)
	if err != nil {
		return 0, err
	}

	var batch []document.Item
	for _, it := range items {
		fixed, changed, err := NormalizeTransaction(it.Payload)
		if err != nil || !changed {
			continue
		}
		it.Payload = fixed
		batch = append(batch, it)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := n.store.PutBatch(ctx, owner, document.Transactions, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// NormalizeTransaction backfills paymentMethod (default cash) and
// derives a missing or invalid paymentStatus: pending for credit,
// completed otherwise. Already-normalized payloads come back
// unchanged.
func NormalizeTransaction(payload json.RawMessage) (json.RawMessage, bool, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return payload, false, err
	}

	changed := false
	method, _ := m["paymentMethod"].(string)
	if method == "" {
		method = "cash"
		m["paymentMethod"] = method
		changed = true
	}

	status, _ := m["paymentStatus"].(string)
	if !validStatus(status) {
		if method == "credit" {
			m["paymentStatus"] = PaymentStatusPending
		} else {
			m["paymentStatus"] = PaymentStatusCompleted
		}
		changed = true
	}

	if !changed {
		return payload, false, nil
	}
	out, err := json.Marshal(m)
	if err != nil {
		return payload, false, err
	}
	return out, true, nil
}

func validStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusCancelled:
		return true
	}
	return false
}
