// Package document provides the schema-less business document model.
// Every stored item is a JSON payload plus an extracted envelope: owner
// scoping, integer id, branch id, soft-delete tombstone and audit fields.
// The payload is authoritative; the envelope exists for indexing and
// filtering.
package document

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"whiskeyballet/internal/core/apperror"
)

// Collection names form a fixed registry. Owner data is partitioned into
// exactly these buckets; unknown names are rejected before any write.
const (
	Inventory          = "inventory"
	Transactions       = "transactions"
	Suppliers          = "suppliers"
	PurchaseOrders     = "purchaseOrders"
	GoodsReceivedNotes = "goodsReceivedNotes"
	SupplierPayments   = "supplierPayments"
	StockAdjustments   = "stockAdjustments"
	Customers          = "customers"
	Expenses           = "expenses"
	Settings           = "settings"
)

// collections lists every registered collection in canonical order.
var collections = []string{
	Inventory,
	Transactions,
	Suppliers,
	PurchaseOrders,
	GoodsReceivedNotes,
	SupplierPayments,
	StockAdjustments,
	Customers,
	Expenses,
	Settings,
}

// All returns the registered collection names in canonical order.
func All() []string {
	out := make([]string, len(collections))
	copy(out, collections)
	return out
}

// IsCollection reports whether name is a registered collection.
func IsCollection(name string) bool {
	for _, c := range collections {
		if c == name {
			return true
		}
	}
	return false
}

// NoBranch is the sentinel stamped on documents whose branch could not be
// resolved, so downstream branch filters have a stable "unknown" bucket.
const NoBranch = "NO_BRANCH"

// UserRef is the embedded snapshot of the acting user stored in audit fields.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Item is a single document: the raw payload plus the envelope extracted
// from it. Envelope mutations must go through the methods below so payload
// and envelope stay consistent.
type Item struct {
	ID        int64
	BranchID  string
	DeletedAt *time.Time
	DeletedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy *UserRef
	UpdatedBy *UserRef

	Payload json.RawMessage
}

// MarshalJSON emits the payload itself. Every mutating method syncs
// the envelope into the payload, so the payload is the complete wire
// form.
func (it Item) MarshalJSON() ([]byte, error) {
	if len(it.Payload) == 0 {
		return []byte("null"), nil
	}
	return it.Payload, nil
}

// UnmarshalJSON accepts a raw payload and re-extracts the envelope.
func (it *Item) UnmarshalJSON(data []byte) error {
	parsed, err := FromPayload(data)
	if err != nil {
		return err
	}
	*it = parsed
	return nil
}

// envelope mirrors the well-known payload fields.
type envelope struct {
	ID        int64      `json:"id"`
	BranchID  string     `json:"branchId,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
	DeletedBy string     `json:"deletedBy,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	CreatedBy *UserRef   `json:"createdBy,omitempty"`
	UpdatedBy *UserRef   `json:"updatedBy,omitempty"`
}

// FromPayload builds an Item by extracting envelope fields from raw JSON.
func FromPayload(raw json.RawMessage) (Item, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Item{}, apperror.NewMalformed("document payload is not a JSON object").WithCause(err)
	}

	it := Item{
		ID:        env.ID,
		BranchID:  env.BranchID,
		DeletedAt: env.DeletedAt,
		DeletedBy: env.DeletedBy,
		CreatedBy: env.CreatedBy,
		UpdatedBy: env.UpdatedBy,
		Payload:   raw,
	}
	if env.CreatedAt != nil {
		it.CreatedAt = *env.CreatedAt
	}
	if env.UpdatedAt != nil {
		it.UpdatedAt = *env.UpdatedAt
	}
	return it, nil
}

// New builds an Item from any marshallable value, assigning id and audit
// fields. The value's own id field, if present, is overwritten.
func New(id int64, v any, by *UserRef, now time.Time) (Item, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Item{}, apperror.NewMalformed("document is not serializable").WithCause(err)
	}
	it, err := FromPayload(raw)
	if err != nil {
		return Item{}, err
	}
	it.ID = id
	it.CreatedAt = now.UTC()
	it.UpdatedAt = now.UTC()
	it.CreatedBy = by
	it.UpdatedBy = by
	if err := it.SyncPayload(); err != nil {
		return Item{}, err
	}
	return it, nil
}

// IsDeleted reports whether the item carries a tombstone.
func (it *Item) IsDeleted() bool {
	return it.DeletedAt != nil
}

// Tombstone marks the item logically deleted in place.
func (it *Item) Tombstone(by UserRef, at time.Time) error {
	t := at.UTC()
	it.DeletedAt = &t
	it.DeletedBy = by.ID
	return it.SyncPayload()
}

// Restore clears exactly the tombstone fields and nothing else.
func (it *Item) Restore() error {
	it.DeletedAt = nil
	it.DeletedBy = ""
	m, err := it.payloadMap()
	if err != nil {
		return err
	}
	delete(m, "deletedAt")
	delete(m, "deletedBy")
	return it.setPayloadMap(m)
}

// Touch updates UpdatedAt and the acting-user snapshot.
func (it *Item) Touch(by *UserRef, at time.Time) error {
	it.UpdatedAt = at.UTC()
	if by != nil {
		it.UpdatedBy = by
	}
	return it.SyncPayload()
}

// SyncPayload writes the envelope fields back into the payload so the
// stored JSON carries them.
func (it *Item) SyncPayload() error {
	m, err := it.payloadMap()
	if err != nil {
		return err
	}

	m["id"] = it.ID
	if it.BranchID != "" {
		m["branchId"] = it.BranchID
	}
	if it.DeletedAt != nil {
		m["deletedAt"] = it.DeletedAt.UTC().Format(time.RFC3339Nano)
		m["deletedBy"] = it.DeletedBy
	} else {
		delete(m, "deletedAt")
		delete(m, "deletedBy")
	}
	if !it.CreatedAt.IsZero() {
		m["createdAt"] = it.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if !it.UpdatedAt.IsZero() {
		m["updatedAt"] = it.UpdatedAt.UTC().Format(time.RFC3339Nano)
	}
	if it.CreatedBy != nil {
		m["createdBy"] = it.CreatedBy
	}
	if it.UpdatedBy != nil {
		m["updatedBy"] = it.UpdatedBy
	}

	return it.setPayloadMap(m)
}

// Decode unmarshals the payload into v.
func (it *Item) Decode(v any) error {
	if err := json.Unmarshal(it.Payload, v); err != nil {
		return apperror.NewMalformed("document payload does not match expected shape").WithCause(err)
	}
	return nil
}

func (it *Item) payloadMap() (map[string]any, error) {
	if len(it.Payload) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(it.Payload, &m); err != nil {
		return nil, apperror.NewMalformed("document payload is not a JSON object").WithCause(err)
	}
	return m, nil
}

func (it *Item) setPayloadMap(m map[string]any) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	it.Payload = raw
	return nil
}

// NextID returns max(existing ids)+1, starting at 1. Uniqueness is scoped
// per owner and collection, not globally.
func NextID(items []Item) int64 {
	var max int64
	for i := range items {
		if items[i].ID > max {
			max = items[i].ID
		}
	}
	return max + 1
}

// FindByID returns the index of the item with the given id, or -1.
func FindByID(items []Item, id int64) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// SameBranch compares branch identifiers the way pre-existing data demands:
// trimmed, case-insensitive string equality. Callers that have a branch
// registry should also try matching on branch name (see inventory service).
func SameBranch(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// FilterBranch returns the items whose branch matches branchID. An empty
// branchID matches everything.
func FilterBranch(items []Item, branchID string) []Item {
	if strings.TrimSpace(branchID) == "" {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if SameBranch(it.BranchID, branchID) {
			out = append(out, it)
		}
	}
	return out
}
