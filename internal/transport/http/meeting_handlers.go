package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/meetsig/meetsig-server/internal/core"
	"github.com/meetsig/meetsig-server/internal/meeting"
	"github.com/meetsig/meetsig-server/internal/store"
)

// MeetingHandlers provides HTTP handlers for meeting lifecycle endpoints.
type MeetingHandlers struct {
	meetings *meeting.Service
	hub      *core.Hub
	log      *zerolog.Logger
}

// NewMeetingHandlers creates a new meeting handlers instance.
func NewMeetingHandlers(meetings *meeting.Service, hub *core.Hub, logger *zerolog.Logger) *MeetingHandlers {
	return &MeetingHandlers{
		meetings: meetings,
		hub:      hub,
		log:      logger,
	}
}

// MeetingResponse represents a meeting in API responses.
type MeetingResponse struct {
	ID          string `json:"id"`
	OwnerUserID int64  `json:"owner_user_id"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	EndedAt     string `json:"ended_at,omitempty"`
}

// CreateMeeting creates a new meeting owned by the caller.
// POST /api/meetings
func (h *MeetingHandlers) CreateMeeting(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	m, err := h.meetings.Create(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to create meeting")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, meetingResponse(m))
}

// GetMeeting returns a meeting record, so a client can check validity
// before opening a signaling connection.
// GET /api/meetings/:id
func (h *MeetingHandlers) GetMeeting(c *gin.Context) {
	m, err := h.meetings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, meeting.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "meeting not found"})
			return
		}
		h.log.Error().Err(err).Str("meeting_id", c.Param("id")).Msg("failed to get meeting")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, meetingResponse(m))
}

// EndMeeting ends a meeting for everyone. Only the owner may end it;
// connected participants are notified and evicted through the hub.
// POST /api/meetings/:id/end
func (h *MeetingHandlers) EndMeeting(c *gin.Context) {
	uid, ok := mustUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	meetingID := c.Param("id")
	if err := h.meetings.End(c.Request.Context(), meetingID, uid); err != nil {
		switch {
		case errors.Is(err, meeting.ErrNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "meeting not found"})
		case errors.Is(err, meeting.ErrNotOwner):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the owner can end the meeting"})
		case errors.Is(err, meeting.ErrEnded):
			c.JSON(http.StatusConflict, ErrorResponse{Error: "meeting already ended"})
		default:
			h.log.Error().Err(err).Str("meeting_id", meetingID).Msg("failed to end meeting")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.hub.CloseRoom(meetingID)

	h.log.Info().Str("meeting_id", meetingID).Int64("by", uid).Msg("meeting ended via api")
	c.JSON(http.StatusOK, gin.H{"status": "ended"})
}

func meetingResponse(m *store.Meeting) MeetingResponse {
	resp := MeetingResponse{
		ID:          m.ID,
		OwnerUserID: m.OwnerUserID,
		Status:      string(m.Status),
		CreatedAt:   m.CreatedAt.Format(time.RFC3339),
	}
	if m.EndedAt != nil {
		resp.EndedAt = m.EndedAt.Format(time.RFC3339)
	}
	return resp
}
