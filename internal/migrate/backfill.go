package migrate

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// BranchBackfillVersion gates the branch-id backfill pass.
const BranchBackfillVersion = 1

// BranchUser is the lookup row the backfill consults to infer a
// transaction's branch from its cashier.
type BranchUser struct {
	ID       string
	BranchID string
}

// Backfiller stamps a branch id onto transactions that lack one,
// inferring it from the cashier's user record where possible and
// falling back to the NO_BRANCH sentinel so downstream branch
// filters always have a value to match against.
type Backfiller struct {
	store storage.Collections
	flags storage.Flags
}

func NewBackfiller(store storage.Collections, flags storage.Flags) *Backfiller {
	return &Backfiller{store: store, flags: flags}
}

// EnsureBackfilled runs the pass once per owner, gated by the
// persisted version flag.
func (b *Backfiller) EnsureBackfilled(ctx context.Context, owner string, users []BranchUser) error {
	val, err := b.flags.GetFlag(ctx, owner, storage.FlagBranchBackfillVer)
	if err != nil {
		return err
	}
	if v, _ := strconv.Atoi(val); v >= BranchBackfillVersion {
		return nil
	}

	changed, err := b.Run(ctx, owner, users)
	if err != nil {
		return err
	}
	if err := b.flags.SetFlag(ctx, owner, storage.FlagBranchBackfillVer,
		strconv.Itoa(BranchBackfillVersion)); err != nil {
		return err
	}
	if changed > 0 {
		logger.Info(ctx, "backfilled transaction branch ids",
			"owner", owner, "changed", changed)
	}
	return nil
}

// Run backfills every transaction missing a usable branchId and
// persists the changed ones. Returns how many documents changed.
func (b *Backfiller) Run(ctx context.Context, owner string, users []BranchUser) (int, error) {
	byUser := make(map[string]string, len(users))
	for _, u := range users {
		if u.ID != "" && u.BranchID != "" {
			byUser[u.ID] = u.BranchID
		}
	}

	items, _, err := b.store.List(ctx, owner, document.Transactions, true)
	if err != nil {
		return 0, err
	}

	var batch []document.Item
	for _, it := range items {
		if usableBranch(it.BranchID) {
			continue
		}
		branch := inferBranch(it.Payload, byUser)
		fixed, err := stampBranch(it.Payload, branch)
		if err != nil {
			continue
		}
		it.BranchID = branch
		it.Payload = fixed
		batch = append(batch, it)
	}
	if len(batch) == 0 {
		return 0, nil
	}
	if err := b.store.PutBatch(ctx, owner, document.Transactions, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

func usableBranch(branch string) bool {
	trimmed := strings.TrimSpace(branch)
	return trimmed != "" && !strings.EqualFold(trimmed, "undefined") && !strings.EqualFold(trimmed, "null")
}

// inferBranch resolves the transaction's cashier to a branch id,
// returning the NO_BRANCH sentinel when no inference is possible.
func inferBranch(payload json.RawMessage, byUser map[string]string) string {
	var m struct {
		CashierID string `json:"cashierId"`
		UserID    string `json:"userId"`
	}
	if err := json.Unmarshal(payload, &m); err == nil {
		if branch, ok := byUser[m.CashierID]; ok {
			return branch
		}
		if branch, ok := byUser[m.UserID]; ok {
			return branch
		}
	}
	return document.NoBranch
}

func stampBranch(payload json.RawMessage, branch string) (json.RawMessage, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return payload, err
	}
	m["branchId"] = branch
	return json.Marshal(m)
}
