package document

import (
	"encoding/json"
	"time"

	"whiskeyballet/internal/core/apperror"
)

// DataSet is the whole-document view of one owner's data: every registered
// collection plus a per-collection revision counter. The file and memory
// backends persist a DataSet wholesale; the indexed backend assembles one
// on demand for export and migration.
type DataSet struct {
	Collections map[string][]Item
	Revisions   map[string]int64
	UpdatedAt   time.Time
}

// NewDataSet returns a default-shaped data set: all registered collections
// present and empty, all revisions zero.
func NewDataSet() *DataSet {
	ds := &DataSet{
		Collections: make(map[string][]Item, len(collections)),
		Revisions:   make(map[string]int64, len(collections)),
	}
	for _, c := range collections {
		ds.Collections[c] = []Item{}
		ds.Revisions[c] = 0
	}
	return ds
}

// Items returns the named collection (nil-safe).
func (ds *DataSet) Items(collection string) []Item {
	return ds.Collections[collection]
}

// SetItems replaces the named collection and bumps its revision.
func (ds *DataSet) SetItems(collection string, items []Item) {
	ds.Collections[collection] = items
	ds.Revisions[collection]++
}

// Counts returns the number of documents per collection, tombstones
// included.
func (ds *DataSet) Counts() map[string]int {
	counts := make(map[string]int, len(ds.Collections))
	for name, items := range ds.Collections {
		counts[name] = len(items)
	}
	return counts
}

// Validate rejects a data set missing required top-level collections.
// Used before restoring an imported backup, so nothing is written on
// malformed input.
func (ds *DataSet) Validate() error {
	for _, c := range collections {
		if _, ok := ds.Collections[c]; !ok {
			return apperror.NewMalformed("backup is missing a required collection").
				WithDetail("collection", c)
		}
	}
	return nil
}

// dataSetWire is the on-disk JSON shape: collections hold raw payloads.
type dataSetWire struct {
	Collections map[string][]json.RawMessage `json:"collections"`
	Revisions   map[string]int64             `json:"revisions,omitempty"`
	UpdatedAt   time.Time                    `json:"updatedAt,omitempty"`
}

// MarshalJSON persists payloads only; envelopes are re-extracted on read.
func (ds *DataSet) MarshalJSON() ([]byte, error) {
	wire := dataSetWire{
		Collections: make(map[string][]json.RawMessage, len(ds.Collections)),
		Revisions:   ds.Revisions,
		UpdatedAt:   ds.UpdatedAt,
	}
	for name, items := range ds.Collections {
		raws := make([]json.RawMessage, 0, len(items))
		for i := range items {
			it := items[i]
			if err := it.SyncPayload(); err != nil {
				return nil, err
			}
			raws = append(raws, it.Payload)
		}
		wire.Collections[name] = raws
	}
	return json.Marshal(wire)
}

// UnmarshalJSON restores a DataSet from its wire shape, tolerating missing
// collections (legacy documents) by shaping them empty.
func (ds *DataSet) UnmarshalJSON(data []byte) error {
	var wire dataSetWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return apperror.NewMalformed("stored document is not valid JSON").WithCause(err)
	}

	fresh := NewDataSet()
	for name, raws := range wire.Collections {
		if !IsCollection(name) {
			// Unknown buckets from older builds are dropped, not an error.
			continue
		}
		items := make([]Item, 0, len(raws))
		for _, raw := range raws {
			it, err := FromPayload(raw)
			if err != nil {
				return err
			}
			items = append(items, it)
		}
		fresh.Collections[name] = items
	}
	for name, rev := range wire.Revisions {
		if IsCollection(name) {
			fresh.Revisions[name] = rev
		}
	}
	fresh.UpdatedAt = wire.UpdatedAt

	*ds = *fresh
	return nil
}
