package core

// Client is one live transport connection as seen by the core layer.
type Client struct {
	ConnID string
	UserID int64

	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels.
func NewClient(connID string, userID int64) *Client {
	return &Client{
		ConnID:   connID,
		UserID:   userID,
		Commands: make(chan *Command, 16),
		Events:   make(chan *Event, 16),
	}
}
