package core

import "context"

// MeetingInfo is what the core needs to know about a meeting record.
type MeetingInfo struct {
	Active      bool
	OwnerUserID int64
}

// MeetingDirectory is the external collaborator that owns meeting
// records. The core never stores or recomputes ownership; it only asks
// whether a code is live and which user owns it.
type MeetingDirectory interface {
	Resolve(ctx context.Context, meetingID string) (MeetingInfo, error)
}
