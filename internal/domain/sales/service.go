// Package sales records transactions and serves the sales history.
package sales

import (
	"context"
	"time"

	"whiskeyballet/internal/core/apperror"
	appctx "whiskeyballet/internal/core/context"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/domain"
	"whiskeyballet/internal/domain/inventory"
	"whiskeyballet/internal/migrate"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// BranchUserSource resolves the tenant's users for the branch-id
// backfill. Injected from the composition root to keep this package
// off the auth layer.
type BranchUserSource func(ctx context.Context, owner string) ([]migrate.BranchUser, error)

// Service provides the sales transaction logic.
type Service struct {
	store      storage.Collections
	inventory  *inventory.Service
	normalizer *migrate.Normalizer
	backfiller *migrate.Backfiller
	users      BranchUserSource
}

func NewService(store storage.Collections, inv *inventory.Service, normalizer *migrate.Normalizer) *Service {
	return &Service{store: store, inventory: inv, normalizer: normalizer}
}

// WithBackfill enables the branch-id backfill pass on the read path.
func (s *Service) WithBackfill(b *migrate.Backfiller, users BranchUserSource) *Service {
	s.backfiller = b
	s.users = users
	return s
}

// List returns transactions, with payment statuses normalized and
// branch ids backfilled before the first read per process. Branch
// filter is lenient.
func (s *Service) List(ctx context.Context, owner, branchID string) ([]Transaction, error) {
	if err := s.normalizer.EnsureNormalized(ctx, owner); err != nil {
		return nil, err
	}
	if s.backfiller != nil {
		users, err := s.users(ctx, owner)
		if err != nil {
			logger.Warn(ctx, "branch backfill skipped, user directory unavailable", "error", err)
		} else if err := s.backfiller.EnsureBackfilled(ctx, owner, users); err != nil {
			return nil, err
		}
	}

	items, _, err := s.store.List(ctx, owner, document.Transactions, false)
	if err != nil {
		return nil, err
	}
	if branchID != "" {
		items = document.FilterBranch(items, branchID)
	}

	txs := make([]Transaction, 0, len(items))
	for _, it := range items {
		var t Transaction
		if err := it.Decode(&t); err != nil {
			continue
		}
		t.ID = it.ID
		txs = append(txs, t)
	}
	return txs, nil
}

// Record validates and persists a sale, decrementing stock for each
// line. Missing payment fields get the normalization defaults so new
// writes never need the upgrade pass.
func (s *Service) Record(ctx context.Context, owner string, t Transaction) (Transaction, error) {
	if len(t.Items) == 0 {
		return Transaction{}, apperror.NewValidation("transaction has no items")
	}
	for _, line := range t.Items {
		if line.Quantity <= 0 {
			return Transaction{}, apperror.NewValidation("line quantity must be positive").
				WithDetail("productId", line.ProductID)
		}
	}

	if t.PaymentMethod == "" {
		t.PaymentMethod = MethodCash
	}
	if t.PaymentStatus == "" {
		if t.PaymentMethod == MethodCredit {
			t.PaymentStatus = migrate.PaymentStatusPending
		} else {
			t.PaymentStatus = migrate.PaymentStatusCompleted
		}
	}
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now().UTC()
	}
	if t.CashierID == "" {
		t.CashierID = appctx.GetUserID(ctx)
	}
	if t.BranchID == "" {
		if u := appctx.GetUser(ctx); u != nil {
			t.BranchID = u.BranchID
		}
	}
	if t.BranchID == "" {
		t.BranchID = document.NoBranch
	}

	for _, line := range t.Items {
		if _, err := s.inventory.Adjust(ctx, owner, line.ProductID, -line.Quantity, "sale"); err != nil {
			return Transaction{}, err
		}
	}

	items, _, err := s.store.List(ctx, owner, document.Transactions, true)
	if err != nil {
		return Transaction{}, err
	}
	t.ID = document.NextID(items)

	item, err := document.New(t.ID, t, domain.UserRef(ctx), time.Now())
	if err != nil {
		return Transaction{}, err
	}
	item.BranchID = t.BranchID
	if err := item.SyncPayload(); err != nil {
		return Transaction{}, err
	}
	if err := s.store.Put(ctx, owner, document.Transactions, item); err != nil {
		return Transaction{}, err
	}
	logger.Info(ctx, "transaction recorded",
		"owner", owner, "id", t.ID, "total", t.Total, "method", t.PaymentMethod)
	return t, nil
}

// SettleCredit marks a pending credit sale as completed.
func (s *Service) SettleCredit(ctx context.Context, owner string, id int64) error {
	item, err := s.store.Get(ctx, owner, document.Transactions, id)
	if err != nil {
		return err
	}
	var t Transaction
	if err := item.Decode(&t); err != nil {
		return err
	}
	if t.PaymentStatus != migrate.PaymentStatusPending {
		return apperror.NewBusinessRule("NOT_PENDING", "transaction is not awaiting payment").
			WithDetail("status", t.PaymentStatus)
	}

	t.ID = id
	t.PaymentStatus = migrate.PaymentStatusCompleted
	updated, err := document.New(id, t, domain.UserRef(ctx), time.Now())
	if err != nil {
		return err
	}
	updated.BranchID = item.BranchID
	updated.CreatedAt = item.CreatedAt
	updated.CreatedBy = item.CreatedBy
	if err := updated.SyncPayload(); err != nil {
		return err
	}
	return s.store.Put(ctx, owner, document.Transactions, updated)
}
