package meeting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/meetsig/meetsig-server/internal/core"
	"github.com/meetsig/meetsig-server/internal/store"
	"github.com/meetsig/meetsig-server/internal/utils"
)

var (
	// ErrNotFound is returned for unknown meeting codes.
	ErrNotFound = errors.New("meeting not found")
	// ErrNotOwner is returned when a non-owner tries to end a meeting.
	ErrNotOwner = errors.New("not the meeting owner")
	// ErrEnded is returned when the meeting is already over.
	ErrEnded = errors.New("meeting has ended")
)

// Service owns meeting records. The signaling core sees it only through
// the core.MeetingDirectory interface; the REST API uses the full type.
type Service struct {
	store store.MeetingStore
	log   *zerolog.Logger
}

// NewService creates a meeting service.
func NewService(st store.MeetingStore, logger *zerolog.Logger) *Service {
	return &Service{store: st, log: logger}
}

// Create mints a fresh meeting code owned by the given user. Collisions
// on the 8-char code are retried a few times before giving up.
func (s *Service) Create(ctx context.Context, ownerUserID int64) (*store.Meeting, error) {
	for attempt := 0; attempt < 5; attempt++ {
		m := &store.Meeting{
			ID:          utils.NewMeetingID(),
			OwnerUserID: ownerUserID,
			Status:      store.MeetingStatusActive,
			CreatedAt:   time.Now().UTC(),
		}
		if err := s.store.CreateMeeting(ctx, m); err != nil {
			s.log.Debug().Err(err).Str("meeting_id", m.ID).Msg("meeting create retry")
			continue
		}
		s.log.Info().Str("meeting_id", m.ID).Int64("owner", ownerUserID).Msg("meeting created")
		return m, nil
	}
	return nil, fmt.Errorf("create meeting: could not allocate a unique code")
}

// Get returns the meeting record for a code.
func (s *Service) Get(ctx context.Context, meetingID string) (*store.Meeting, error) {
	m, err := s.store.GetMeeting(ctx, meetingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get meeting: %w", err)
	}
	return m, nil
}

// End terminates a meeting. Only the owner may end it; ending an
// already-ended meeting returns ErrEnded.
func (s *Service) End(ctx context.Context, meetingID string, byUserID int64) error {
	m, err := s.Get(ctx, meetingID)
	if err != nil {
		return err
	}
	if m.OwnerUserID != byUserID {
		return ErrNotOwner
	}
	if m.Status != store.MeetingStatusActive {
		return ErrEnded
	}
	if err := s.store.EndMeeting(ctx, meetingID, time.Now().UTC()); err != nil {
		return fmt.Errorf("end meeting: %w", err)
	}
	s.log.Info().Str("meeting_id", meetingID).Int64("by", byUserID).Msg("meeting ended")
	return nil
}

// Resolve implements core.MeetingDirectory.
func (s *Service) Resolve(ctx context.Context, meetingID string) (core.MeetingInfo, error) {
	m, err := s.Get(ctx, meetingID)
	if err != nil {
		return core.MeetingInfo{}, err
	}
	return core.MeetingInfo{
		Active:      m.Status == store.MeetingStatusActive,
		OwnerUserID: m.OwnerUserID,
	}, nil
}

var _ core.MeetingDirectory = (*Service)(nil)
