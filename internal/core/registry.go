package core

import "time"

// RoomRegistry owns every live room. Like the connection registry it is
// confined to the hub actor goroutine, which serializes all access and
// keeps the two invariants cheap to hold: no duplicate connection id
// within a room, and no empty room in the map.
type RoomRegistry struct {
	rooms      map[string]*Room
	connToRoom map[string]string
}

// NewRoomRegistry constructs an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{
		rooms:      make(map[string]*Room),
		connToRoom: make(map[string]string),
	}
}

// Join adds a participant to a room, creating the room if absent, and
// returns the participants that were present before this join. A stale
// entry with the same connection id is replaced before the snapshot is
// taken, so the joiner never appears in its own snapshot.
func (r *RoomRegistry) Join(roomID, connID, displayName string, at time.Time) []Participant {
	room, ok := r.rooms[roomID]
	if !ok {
		room = NewRoom(roomID)
		r.rooms[roomID] = room
	}

	// Replace-before-snapshot: drop any stale entry for this connection
	// so the existing-participants list cannot contain the joiner.
	room.Remove(connID)
	existing := room.Others(connID)

	room.Add(&Participant{
		ConnID:      connID,
		DisplayName: displayName,
		JoinedAt:    at,
	})
	r.connToRoom[connID] = roomID

	return existing
}

// Leave removes the participant if present and deletes the room when it
// becomes empty. Idempotent: a second leave is a no-op.
func (r *RoomRegistry) Leave(roomID, connID string) (removed bool) {
	room, ok := r.rooms[roomID]
	if !ok {
		return false
	}
	if !room.Remove(connID) {
		return false
	}
	delete(r.connToRoom, connID)
	if room.Empty() {
		delete(r.rooms, roomID)
	}
	return true
}

// FindRoomOf returns the room a connection is joined to, or "".
func (r *RoomRegistry) FindRoomOf(connID string) string {
	return r.connToRoom[connID]
}

// ListOthers returns the participants of a room excluding one connection
// id, in join order. Returns nil for an unknown room.
func (r *RoomRegistry) ListOthers(roomID, excludeConnID string) []Participant {
	room, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	return room.Others(excludeConnID)
}

// Room returns the live room, or nil.
func (r *RoomRegistry) Room(roomID string) *Room {
	return r.rooms[roomID]
}

// Delete removes a room and all its membership indexes. Used when a
// meeting is ended for everyone at once.
func (r *RoomRegistry) Delete(roomID string) {
	room, ok := r.rooms[roomID]
	if !ok {
		return
	}
	for _, p := range room.Others("") {
		delete(r.connToRoom, p.ConnID)
	}
	delete(r.rooms, roomID)
}

// Len returns the number of live rooms.
func (r *RoomRegistry) Len() int {
	return len(r.rooms)
}
