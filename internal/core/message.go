package core

import "time"

// Participant is a live member of a room as tracked by the registry.
type Participant struct {
	ConnID      string
	DisplayName string
	JoinedAt    time.Time
}

// ChatMessage is the domain model for a relayed chat message.
// Messages are ephemeral: they exist only while being fanned out.
type ChatMessage struct {
	ID        string
	RoomID    string
	Sender    string
	Text      string
	Timestamp time.Time
	IsPrivate bool
	To        string // recipient connection id, empty for public messages
}
