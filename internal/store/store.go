package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// User represents a registered or guest account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsGuest      bool
	SessionID    string // For guest user session tracking
	CreatedAt    time.Time
}

// MeetingStatus is the lifecycle state of a meeting record.
type MeetingStatus string

const (
	MeetingStatusActive MeetingStatus = "active"
	MeetingStatusEnded  MeetingStatus = "ended"
)

// Meeting is the persisted record behind a shareable meeting code.
// Live participant state never touches storage; only the record the
// signaling core consults for validity and ownership lives here.
type Meeting struct {
	ID          string // short shareable code, e.g. "X7K2QF0D"
	OwnerUserID int64
	Status      MeetingStatus
	CreatedAt   time.Time
	EndedAt     *time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// CreateGuestUser creates a temporary guest user with session ID.
	CreateGuestUser(ctx context.Context, sessionID string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// MeetingStore handles meeting record persistence.
type MeetingStore interface {
	// CreateMeeting persists a new active meeting.
	CreateMeeting(ctx context.Context, m *Meeting) error

	// GetMeeting retrieves a meeting by its code.
	GetMeeting(ctx context.Context, id string) (*Meeting, error)

	// EndMeeting flips the meeting to ended and stamps the end time.
	// Ending an already-ended meeting is a no-op.
	EndMeeting(ctx context.Context, id string, endedAt time.Time) error
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MeetingStore

	// Close closes the underlying database connection.
	Close() error
}
