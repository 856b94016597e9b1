package recovery

import (
	"sort"
	"time"

	"whiskeyballet/internal/core/document"
)

// SessionWindow is how close two deletion timestamps must be to land
// in the same session.
const SessionWindow = 5 * time.Minute

// Session is a display grouping of items deleted close together.
type Session struct {
	Collection string          `json:"collection"`
	Items      []document.Item `json:"items"`
	// Start and End bound the deletedAt timestamps in the session.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// GroupSessions clusters tombstoned items into sessions. Items are
// processed newest first; an item joins the open session when its
// deletedAt is within SessionWindow of the session's current lower
// bound, otherwise it starts a new session. Items without a deletedAt
// are skipped.
func GroupSessions(collection string, items []document.Item) []Session {
	deleted := make([]document.Item, 0, len(items))
	for _, it := range items {
		if it.DeletedAt != nil {
			deleted = append(deleted, it)
		}
	}
	sort.Slice(deleted, func(i, j int) bool {
		return deleted[i].DeletedAt.After(*deleted[j].DeletedAt)
	})

	var sessions []Session
	for _, it := range deleted {
		at := *it.DeletedAt
		if n := len(sessions); n > 0 && sessions[n-1].Start.Sub(at) <= SessionWindow {
			s := &sessions[n-1]
			s.Items = append(s.Items, it)
			s.Start = at
			continue
		}
		sessions = append(sessions, Session{
			Collection: collection,
			Items:      []document.Item{it},
			Start:      at,
			End:        at,
		})
	}
	return sessions
}

// MergeIntervals is the generic form of the session grouping: sorted
// descending, each timestamp joins the current group while within
// threshold of the group's running minimum.
func MergeIntervals(timestamps []time.Time, threshold time.Duration) [][]time.Time {
	if len(timestamps) == 0 {
		return nil
	}
	sorted := make([]time.Time, len(timestamps))
	copy(sorted, timestamps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].After(sorted[j]) })

	var groups [][]time.Time
	bound := sorted[0]
	current := []time.Time{sorted[0]}
	for _, ts := range sorted[1:] {
		if bound.Sub(ts) <= threshold {
			current = append(current, ts)
			bound = ts
			continue
		}
		groups = append(groups, current)
		current = []time.Time{ts}
		bound = ts
	}
	return append(groups, current)
}
