package core

import (
	"testing"
	"time"
)

func TestJoinReturnsExistingAndCreatesRoom(t *testing.T) {
	reg := NewRoomRegistry()

	existing := reg.Join("ABCD1234", "a1", "alice", time.Now())
	if len(existing) != 0 {
		t.Fatalf("first joiner should see empty room, got %v", existing)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 room, got %d", reg.Len())
	}

	existing = reg.Join("ABCD1234", "b2", "bob", time.Now())
	if len(existing) != 1 || existing[0].ConnID != "a1" {
		t.Fatalf("second joiner should see alice, got %v", existing)
	}
}

func TestRejoinReplacesNotDuplicates(t *testing.T) {
	reg := NewRoomRegistry()

	reg.Join("ABCD1234", "a1", "alice", time.Now())
	reg.Join("ABCD1234", "b2", "bob", time.Now())

	// Re-join with the same connection id must replace the stale entry
	// before the existing-participants snapshot is taken, so the joiner
	// never hears about itself.
	existing := reg.Join("ABCD1234", "a1", "alice-2", time.Now())
	if len(existing) != 1 || existing[0].ConnID != "b2" {
		t.Fatalf("rejoining alice should only see bob, got %v", existing)
	}

	others := reg.ListOthers("ABCD1234", "b2")
	if len(others) != 1 {
		t.Fatalf("expected exactly one alice entry, got %v", others)
	}
	if others[0].DisplayName != "alice-2" {
		t.Fatalf("expected replaced entry, got %v", others[0])
	}
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	reg := NewRoomRegistry()

	reg.Join("ABCD1234", "a1", "alice", time.Now())
	reg.Join("ABCD1234", "b2", "bob", time.Now())

	if !reg.Leave("ABCD1234", "a1") {
		t.Fatalf("expected leave to remove alice")
	}
	if reg.Len() != 1 {
		t.Fatalf("room should survive while bob remains")
	}

	// Idempotent: second leave is a no-op.
	if reg.Leave("ABCD1234", "a1") {
		t.Fatalf("second leave should report nothing removed")
	}

	if !reg.Leave("ABCD1234", "b2") {
		t.Fatalf("expected leave to remove bob")
	}
	if reg.Len() != 0 {
		t.Fatalf("empty room must not exist in the registry")
	}
	if reg.Room("ABCD1234") != nil {
		t.Fatalf("room lookup should fail after deletion")
	}
}

func TestFindRoomOf(t *testing.T) {
	reg := NewRoomRegistry()

	reg.Join("ROOM1", "a1", "alice", time.Now())
	reg.Join("ROOM2", "b2", "bob", time.Now())

	if got := reg.FindRoomOf("a1"); got != "ROOM1" {
		t.Fatalf("expected ROOM1, got %q", got)
	}
	if got := reg.FindRoomOf("b2"); got != "ROOM2" {
		t.Fatalf("expected ROOM2, got %q", got)
	}
	if got := reg.FindRoomOf("ghost"); got != "" {
		t.Fatalf("expected empty room for unknown conn, got %q", got)
	}

	reg.Leave("ROOM1", "a1")
	if got := reg.FindRoomOf("a1"); got != "" {
		t.Fatalf("expected binding cleared after leave, got %q", got)
	}
}

func TestListOthersJoinOrder(t *testing.T) {
	reg := NewRoomRegistry()

	base := time.Now()
	reg.Join("ROOM1", "c3", "carol", base)
	reg.Join("ROOM1", "a1", "alice", base.Add(time.Second))
	reg.Join("ROOM1", "b2", "bob", base.Add(2*time.Second))

	others := reg.ListOthers("ROOM1", "a1")
	if len(others) != 2 {
		t.Fatalf("expected 2 others, got %v", others)
	}
	if others[0].ConnID != "c3" || others[1].ConnID != "b2" {
		t.Fatalf("expected join order c3,b2, got %v", others)
	}

	if got := reg.ListOthers("NOPE", "a1"); got != nil {
		t.Fatalf("unknown room should return nil, got %v", got)
	}
}

func TestDeleteClearsMembershipIndex(t *testing.T) {
	reg := NewRoomRegistry()

	reg.Join("ROOM1", "a1", "alice", time.Now())
	reg.Join("ROOM1", "b2", "bob", time.Now())

	reg.Delete("ROOM1")
	if reg.Len() != 0 {
		t.Fatalf("expected no rooms after delete")
	}
	if reg.FindRoomOf("a1") != "" || reg.FindRoomOf("b2") != "" {
		t.Fatalf("expected membership index cleared")
	}
}
