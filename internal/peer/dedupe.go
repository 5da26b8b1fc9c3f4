package peer

import (
	"sort"
	"time"

	"github.com/meetsig/meetsig-server/internal/proto"
)

// ChatDedup suppresses duplicate chat messages at the consuming
// boundary. A message is a duplicate if its id was already recorded,
// or, for messages without a usable id match, if sender and text
// repeat within a small timestamp tolerance. That makes optimistic
// local rendering safe alongside the relayed echo.
type ChatDedup struct {
	tolerance time.Duration
	byID      map[string]struct{}
	recent    []chatRecord
}

type chatRecord struct {
	sender string
	text   string
	ts     time.Time
}

// NewChatDedup builds a deduper with the given fallback tolerance
// window. Zero defaults to one second.
func NewChatDedup(tolerance time.Duration) *ChatDedup {
	if tolerance <= 0 {
		tolerance = time.Second
	}
	return &ChatDedup{
		tolerance: tolerance,
		byID:      make(map[string]struct{}),
	}
}

// Observe records a message and reports whether it was new. Duplicates
// are not re-recorded.
func (d *ChatDedup) Observe(msg proto.ChatMessageData) bool {
	if msg.ID != "" {
		if _, seen := d.byID[msg.ID]; seen {
			return false
		}
	}

	ts := time.UnixMilli(msg.TS)
	for _, rec := range d.recent {
		if rec.sender != msg.Sender || rec.text != msg.Text {
			continue
		}
		delta := ts.Sub(rec.ts)
		if delta < 0 {
			delta = -delta
		}
		if delta <= d.tolerance {
			return false
		}
	}

	if msg.ID != "" {
		d.byID[msg.ID] = struct{}{}
	}
	d.recent = append(d.recent, chatRecord{sender: msg.Sender, text: msg.Text, ts: ts})
	d.trim(ts)
	return true
}

// trim drops fallback records too old to ever match again.
func (d *ChatDedup) trim(now time.Time) {
	cutoff := now.Add(-2 * d.tolerance)
	i := 0
	for ; i < len(d.recent); i++ {
		if d.recent[i].ts.After(cutoff) {
			break
		}
	}
	d.recent = d.recent[i:]
}

// RosterEntry is one tracked participant on the client side.
type RosterEntry struct {
	ConnID      string
	DisplayName string
	JoinedAt    time.Time
}

// Roster tracks the participant list with duplicate-aware merging:
// join notifications, join acks, and track arrival can each announce
// the same participant, and the merge keeps the earliest JoinedAt so
// the list never reorders on a repeat announcement.
type Roster struct {
	entries map[string]RosterEntry
}

// NewRoster builds an empty roster.
func NewRoster() *Roster {
	return &Roster{entries: make(map[string]RosterEntry)}
}

// Upsert merges an announcement into the roster and reports whether
// the participant was new.
func (r *Roster) Upsert(entry RosterEntry) bool {
	existing, ok := r.entries[entry.ConnID]
	if !ok {
		r.entries[entry.ConnID] = entry
		return true
	}

	if entry.DisplayName != "" {
		existing.DisplayName = entry.DisplayName
	}
	if !entry.JoinedAt.IsZero() && (existing.JoinedAt.IsZero() || entry.JoinedAt.Before(existing.JoinedAt)) {
		existing.JoinedAt = entry.JoinedAt
	}
	r.entries[entry.ConnID] = existing
	return false
}

// Remove drops a participant, reporting whether it was present.
func (r *Roster) Remove(connID string) bool {
	_, ok := r.entries[connID]
	delete(r.entries, connID)
	return ok
}

// Get returns a tracked participant.
func (r *Roster) Get(connID string) (RosterEntry, bool) {
	entry, ok := r.entries[connID]
	return entry, ok
}

// List returns participants ordered by join time, ties broken by
// connection id.
func (r *Roster) List() []RosterEntry {
	out := make([]RosterEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].ConnID < out[j].ConnID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out
}

// Len reports the roster size.
func (r *Roster) Len() int { return len(r.entries) }
