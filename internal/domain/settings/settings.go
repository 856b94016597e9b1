// Package settings manages the per-tenant configuration singleton.
package settings

import (
	"context"
	"time"

	"whiskeyballet/internal/core/apperror"
	"whiskeyballet/internal/core/document"
	"whiskeyballet/internal/core/rules"
	"whiskeyballet/internal/domain"
	"whiskeyballet/internal/storage"
)

// Settings is the tenant configuration document. Exactly one per
// tenant, stored under a fixed id in the settings collection.
type Settings struct {
	ID            int64   `json:"id"`
	BusinessName  string  `json:"businessName,omitempty"`
	Currency      string  `json:"currency"`
	VATRate       float64 `json:"vatRate"`
	SpendingLimit float64 `json:"spendingLimit,omitempty"`
	// SpendingRule is an optional CEL expression overriding the
	// default over-limit check on expenses.
	SpendingRule  string `json:"spendingRule,omitempty"`
	LowStockLevel int    `json:"lowStockLevel"`
	ReceiptFooter string `json:"receiptFooter,omitempty"`
}

// singletonID keys the one settings document per tenant.
const singletonID = 1

// Default returns the settings a fresh tenant starts with: Kenyan
// shillings and the standard 16% VAT.
func Default() Settings {
	return Settings{
		ID:            singletonID,
		Currency:      "KES",
		VATRate:       16,
		LowStockLevel: 10,
	}
}

// Service reads and writes the settings singleton.
type Service struct {
	store storage.Collections
}

func NewService(store storage.Collections) *Service {
	return &Service{store: store}
}

// Get returns the tenant's settings, falling back to defaults when
// none were saved yet.
func (s *Service) Get(ctx context.Context, owner string) (Settings, error) {
	item, err := s.store.Get(ctx, owner, document.Settings, singletonID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return Default(), nil
		}
		return Settings{}, err
	}
	cfg := Default()
	if err := item.Decode(&cfg); err != nil {
		return Settings{}, err
	}
	cfg.ID = singletonID
	return cfg, nil
}

// Update validates and persists the settings singleton.
func (s *Service) Update(ctx context.Context, owner string, cfg Settings) error {
	if cfg.Currency == "" {
		return apperror.NewValidation("currency is required")
	}
	if cfg.VATRate < 0 || cfg.VATRate > 100 {
		return apperror.NewValidation("vat rate must be between 0 and 100")
	}
	if cfg.SpendingRule != "" {
		if _, err := rules.CompileSpendingRule(cfg.SpendingRule); err != nil {
			return err
		}
	}

	cfg.ID = singletonID
	user := domain.UserRef(ctx)
	item, err := document.New(singletonID, cfg, user, time.Now())
	if err != nil {
		return err
	}
	return s.store.Put(ctx, owner, document.Settings, item)
}

// SpendingRule returns the compiled expense rule for the tenant,
// using the default expression when none is configured.
func (s *Service) SpendingRule(ctx context.Context, owner string) (*rules.SpendingRule, float64, error) {
	cfg, err := s.Get(ctx, owner)
	if err != nil {
		return nil, 0, err
	}
	expr := cfg.SpendingRule
	if expr == "" {
		expr = rules.DefaultSpendingRule
	}
	rule, err := rules.CompileSpendingRule(expr)
	if err != nil {
		return nil, 0, err
	}
	return rule, cfg.SpendingLimit, nil
}
