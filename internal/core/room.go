package core

// Room groups the participants of one meeting.
type Room struct {
	ID string

	participants map[string]*Participant
	order        []string // connection ids in join order

	// ownerConn is the live connection id of the meeting owner, set when
	// the owner joins. Empty while the owner is not connected.
	ownerConn string
}

// NewRoom constructs a room with no participants.
func NewRoom(id string) *Room {
	return &Room{
		ID:           id,
		participants: make(map[string]*Participant),
	}
}

// Add inserts a participant. If an entry with the same connection id is
// already present it is replaced in place, keeping its position; the
// registry relies on this to make re-joins idempotent.
func (r *Room) Add(p *Participant) (replaced bool) {
	if _, exists := r.participants[p.ConnID]; exists {
		r.participants[p.ConnID] = p
		return true
	}
	r.participants[p.ConnID] = p
	r.order = append(r.order, p.ConnID)
	return false
}

// Remove deletes a participant. Returns true if one was removed.
func (r *Room) Remove(connID string) bool {
	if _, exists := r.participants[connID]; !exists {
		return false
	}
	delete(r.participants, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.ownerConn == connID {
		r.ownerConn = ""
	}
	return true
}

// Get returns the participant with the given connection id, or nil.
func (r *Room) Get(connID string) *Participant {
	return r.participants[connID]
}

// Others returns all participants except the excluded connection id,
// in join order.
func (r *Room) Others(excludeConnID string) []Participant {
	out := make([]Participant, 0, len(r.order))
	for _, id := range r.order {
		if id == excludeConnID {
			continue
		}
		out = append(out, *r.participants[id])
	}
	return out
}

// Len returns the number of participants.
func (r *Room) Len() int {
	return len(r.participants)
}

// Empty returns true if no participants remain.
func (r *Room) Empty() bool {
	return len(r.participants) == 0
}

// SetOwnerConn records the owner's live connection id.
func (r *Room) SetOwnerConn(connID string) {
	r.ownerConn = connID
}

// OwnerConn returns the owner's live connection id, or empty.
func (r *Room) OwnerConn() string {
	return r.ownerConn
}
