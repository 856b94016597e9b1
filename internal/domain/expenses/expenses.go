// Package expenses tracks money going out (and occasional income),
// with a configurable spending alert.
package expenses

import (
	"context"
	"time"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/core/rules"
	"whiskeyballet/internal/domain"
	"whiskeyballet/internal/domain/settings"
	"whiskeyballet/internal/storage"
	"whiskeyballet/pkg/logger"
)

// Entry types.
const (
	TypeExpense = "expense"
	TypeIncome  = "income"
)

// Expense is one cash-flow entry.
type Expense struct {
	ID          int64     `json:"id"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Amount      float64   `json:"amount"`
	BranchID    string    `json:"branchId,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// CreateResult carries the stored expense plus the spending alert.
type CreateResult struct {
	Expense Expense `json:"expense"`
	// OverLimit is set when the tenant's spending rule fired.
	OverLimit bool `json:"overLimit"`
}

// Service provides expense tracking.
type Service struct {
	store    storage.Collections
	settings *settings.Service
}

func NewService(store storage.Collections, cfg *settings.Service) *Service {
	return &Service{store: store, settings: cfg}
}

// List returns active entries, optionally for one branch.
func (s *Service) List(ctx context.Context, owner, branchID string) ([]Expense, error) {
	items, _, err := s.store.List(ctx, owner, document.Expenses, false)
	if err != nil {
		return nil, err
	}
	if branchID != "" {
		items = document.FilterBranch(items, branchID)
	}
	entries := make([]Expense, 0, len(items))
	for _, it := range items {
		var e Expense
		if err := it.Decode(&e); err != nil {
			continue
		}
		e.ID = it.ID
		entries = append(entries, e)
	}
	return entries, nil
}

// Create validates and stores an entry, then evaluates the tenant's
// spending rule against the month's running total. A rule failure
// does not block the write; the alert is simply omitted.
func (s *Service) Create(ctx context.Context, owner string, e Expense) (CreateResult, error) {
	if e.Amount <= 0 {
		return CreateResult{}, apperror.NewValidation("amount must be positive")
	}
	if e.Type == "" {
		e.Type = TypeExpense
	}
	if e.Type != TypeExpense && e.Type != TypeIncome {
		return CreateResult{}, apperror.NewValidation("unknown entry type").WithDetail("type", e.Type)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	items, _, err := s.store.List(ctx, owner, document.Expenses, true)
	if err != nil {
		return CreateResult{}, err
	}
	e.ID = document.NextID(items)

	item, err := document.New(e.ID, e, domain.UserRef(ctx), time.Now())
	if err != nil {
		return CreateResult{}, err
	}
	item.BranchID = e.BranchID
	if err := item.SyncPayload(); err != nil {
		return CreateResult{}, err
	}
	if err := s.store.Put(ctx, owner, document.Expenses, item); err != nil {
		return CreateResult{}, err
	}

	result := CreateResult{Expense: e}
	if e.Type == TypeExpense {
		result.OverLimit = s.checkSpending(ctx, owner, e, items)
	}
	return result, nil
}

// checkSpending evaluates the tenant rule against the entry and the
// month-to-date total of prior expenses.
func (s *Service) checkSpending(ctx context.Context, owner string, e Expense, prior []document.Item) bool {
	rule, limit, err := s.settings.SpendingRule(ctx, owner)
	if err != nil || limit <= 0 {
		return false
	}

	monthTotal := 0.0
	monthStart := time.Date(e.Timestamp.Year(), e.Timestamp.Month(), 1, 0, 0, 0, 0, time.UTC)
	for _, it := range prior {
		if it.IsDeleted() {
			continue
		}
		var prev Expense
		if err := it.Decode(&prev); err != nil || prev.Type != TypeExpense {
			continue
		}
		if !prev.Timestamp.Before(monthStart) {
			monthTotal += prev.Amount
		}
	}

	fired, err := rule.Exceeded(rules.SpendingInput{
		Amount:     e.Amount,
		Category:   e.Category,
		MonthTotal: monthTotal,
		Limit:      limit,
	})
	if err != nil {
		logger.Warn(ctx, "spending rule evaluation failed", "owner", owner, "error", err)
		return false
	}
	if fired {
		logger.Info(ctx, "spending limit exceeded",
			"owner", owner, "amount", e.Amount, "monthTotal", monthTotal, "limit", limit)
	}
	return fired
}
