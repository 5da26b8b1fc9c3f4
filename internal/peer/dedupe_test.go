package peer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meetsig/meetsig-server/internal/proto"
)

func TestChatDedupByID(t *testing.T) {
	d := NewChatDedup(time.Second)

	msg := proto.ChatMessageData{ID: "m1", Sender: "Alice", Text: "hi", TS: time.Now().UnixMilli()}
	require.True(t, d.Observe(msg))
	require.False(t, d.Observe(msg), "same id is a duplicate")

	msg.ID = "m2"
	msg.Text = "different"
	require.True(t, d.Observe(msg))
}

func TestChatDedupFallbackWindow(t *testing.T) {
	d := NewChatDedup(time.Second)
	base := time.Now()

	// Optimistic local render has no id; the relayed echo has one.
	require.True(t, d.Observe(proto.ChatMessageData{Sender: "Alice", Text: "hi", TS: base.UnixMilli()}))
	echo := proto.ChatMessageData{ID: "m1", Sender: "Alice", Text: "hi", TS: base.Add(300 * time.Millisecond).UnixMilli()}
	require.False(t, d.Observe(echo), "echo within tolerance is a duplicate")

	// Same text far outside the window is a genuine repeat message.
	later := proto.ChatMessageData{ID: "m2", Sender: "Alice", Text: "hi", TS: base.Add(5 * time.Second).UnixMilli()}
	require.True(t, d.Observe(later))
}

func TestRosterMergeKeepsEarliestJoin(t *testing.T) {
	r := NewRoster()
	early := time.Now()
	late := early.Add(time.Minute)

	require.True(t, r.Upsert(RosterEntry{ConnID: "a1", DisplayName: "Alice", JoinedAt: late}))
	require.False(t, r.Upsert(RosterEntry{ConnID: "a1", JoinedAt: early}), "repeat announcement is not new")

	entry, ok := r.Get("a1")
	require.True(t, ok)
	require.Equal(t, "Alice", entry.DisplayName, "merge must not blank the name")
	require.True(t, entry.JoinedAt.Equal(early), "merge keeps the earliest join time")
}

func TestRosterListOrder(t *testing.T) {
	r := NewRoster()
	base := time.Now()

	r.Upsert(RosterEntry{ConnID: "c3", JoinedAt: base.Add(2 * time.Second)})
	r.Upsert(RosterEntry{ConnID: "b2", JoinedAt: base})
	r.Upsert(RosterEntry{ConnID: "a1", JoinedAt: base})

	list := r.List()
	require.Len(t, list, 3)
	require.Equal(t, "a1", list[0].ConnID, "ties break by connection id")
	require.Equal(t, "b2", list[1].ConnID)
	require.Equal(t, "c3", list[2].ConnID)

	require.True(t, r.Remove("b2"))
	require.False(t, r.Remove("b2"), "second remove is a no-op")
	require.Equal(t, 2, r.Len())
}
