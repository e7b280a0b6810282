package service

import (
	"context"
	"encoding/json"
	"time"

	"ufit/internal/models"
	"ufit/internal/observability"
	"ufit/internal/repository"
)

// NotificationSink receives session snapshots after every mutating support
// operation. internal/notifications.Notifier satisfies it; a nil sink is
// treated as disabled.
type NotificationSink interface {
	PublishUser(ctx context.Context, userID uint, payload string) error
	PublishSupportEvent(ctx context.Context, sessionID uint, payload string) error
}

// SupportService manages the support session lifecycle:
// PENDING -> ACTIVE (moderator assigned) -> CLOSED (terminal).
type SupportService struct {
	supportRepo repository.SupportRepository
	userRepo    repository.UserRepository
	sink        NotificationSink
}

// NewSupportService returns a SupportService with the given collaborators.
func NewSupportService(
	supportRepo repository.SupportRepository,
	userRepo repository.UserRepository,
	sink NotificationSink,
) *SupportService {
	return &SupportService{
		supportRepo: supportRepo,
		userRepo:    userRepo,
		sink:        sink,
	}
}

// supportEvent is the snapshot pushed to participants after each mutation.
type supportEvent struct {
	Event   string                     `json:"event"`
	Session *models.ChatSupportSession `json:"session"`
	Message *models.SupportMessage     `json:"message,omitempty"`
}

// CreateSession opens a PENDING session for a regular user. Elevated roles
// cannot request support. A user with an open (PENDING or ACTIVE) session
// gets that session back instead of a second one.
func (s *SupportService) CreateSession(ctx context.Context, userID uint) (*models.ChatSupportSession, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role.Elevated() {
		return nil, models.NewInvalidStateError("elevated roles cannot open support requests")
	}

	if open, err := s.supportRepo.FindOpenByUser(ctx, userID); err != nil {
		return nil, err
	} else if open != nil {
		return open, nil
	}

	session := &models.ChatSupportSession{
		UserID: userID,
		Status: models.SupportPending,
	}
	if err := s.supportRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	observability.SupportSessionsTotal.WithLabelValues("created").Inc()
	s.notify(ctx, session, "session_created", nil)
	return session, nil
}

// AssignModerator moves a PENDING session to ACTIVE under the given
// moderator. Reassigning an ACTIVE session is allowed and idempotent on
// moderator identity. CLOSED sessions cannot be assigned.
func (s *SupportService) AssignModerator(ctx context.Context, sessionID, moderatorID uint) (*models.ChatSupportSession, error) {
	session, err := s.supportRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	moderator, err := s.userRepo.GetByID(ctx, moderatorID)
	if err != nil {
		return nil, err
	}
	if !moderator.Role.CanModerate() {
		return nil, models.NewInvalidStateError("assignee cannot moderate support sessions")
	}

	switch session.Status {
	case models.SupportClosed:
		return nil, models.NewInvalidStateError("session is closed")
	case models.SupportActive:
		if session.ModeratorID != nil && *session.ModeratorID == moderatorID {
			return session, nil
		}
	}

	session.ModeratorID = &moderatorID
	session.Status = models.SupportActive
	if err := s.supportRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	observability.SupportSessionsTotal.WithLabelValues("assigned").Inc()
	s.notify(ctx, session, "moderator_assigned", nil)
	return session, nil
}

// PostMessage appends a message to the sender's ACTIVE session, resolved by
// role: moderators post into the session they are assigned to, users into the
// session they requested. InvalidState when the sender has no ACTIVE session.
func (s *SupportService) PostMessage(ctx context.Context, senderID uint, content string, isModerator bool) (*models.SupportMessage, error) {
	if content == "" {
		return nil, models.NewValidationError("message content is required")
	}

	session, err := s.resolveActiveSession(ctx, senderID, isModerator)
	if err != nil {
		return nil, err
	}

	msg := &models.SupportMessage{
		SessionID:     session.ID,
		SenderID:      senderID,
		FromModerator: isModerator,
		Content:       content,
	}
	if err := s.supportRepo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	observability.SupportSessionsTotal.WithLabelValues("message").Inc()
	s.notify(ctx, session, "message", msg)
	return msg, nil
}

func (s *SupportService) resolveActiveSession(ctx context.Context, senderID uint, isModerator bool) (*models.ChatSupportSession, error) {
	if isModerator {
		sessions, err := s.supportRepo.ListByModerator(ctx, senderID, models.SupportActive)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return nil, models.NewInvalidStateError("no active support session for moderator")
		}
		// First match when a moderator carries several sessions
		return sessions[0], nil
	}

	session, err := s.supportRepo.FindOpenByUser(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Status != models.SupportActive {
		return nil, models.NewInvalidStateError("no active support session for user")
	}
	return session, nil
}

// CloseSession moves a session to the terminal CLOSED state. Missing ids are
// NotFound. Closing an already CLOSED session is a no-op that still notifies
// both participants.
func (s *SupportService) CloseSession(ctx context.Context, sessionID uint) (*models.ChatSupportSession, error) {
	session, err := s.supportRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.Status != models.SupportClosed {
		now := time.Now()
		session.Status = models.SupportClosed
		session.ClosedAt = &now
		if err := s.supportRepo.Update(ctx, session); err != nil {
			return nil, err
		}
		observability.SupportSessionsTotal.WithLabelValues("closed").Inc()
	}

	s.notify(ctx, session, "session_closed", nil)
	return session, nil
}

// InitiateAdminChat creates a session born ACTIVE with the admin assigned and
// the first message recorded from the moderator side.
func (s *SupportService) InitiateAdminChat(ctx context.Context, userID, adminID uint, message string) (*models.ChatSupportSession, error) {
	if message == "" {
		return nil, models.NewValidationError("message content is required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	admin, err := s.userRepo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin.Role != models.RoleAdmin {
		return nil, models.NewInvalidStateError("only admins can initiate contact")
	}

	session := &models.ChatSupportSession{
		UserID:         user.ID,
		ModeratorID:    &admin.ID,
		Status:         models.SupportActive,
		AdminInitiated: true,
	}
	if err := s.supportRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	msg := &models.SupportMessage{
		SessionID:     session.ID,
		SenderID:      adminID,
		FromModerator: true,
		Content:       message,
	}
	if err := s.supportRepo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}

	observability.SupportSessionsTotal.WithLabelValues("admin_initiated").Inc()
	s.notify(ctx, session, "session_created", msg)
	return session, nil
}

// GetSession returns a session with its ordered message log.
func (s *SupportService) GetSession(ctx context.Context, sessionID uint) (*models.ChatSupportSession, error) {
	return s.supportRepo.GetByIDWithMessages(ctx, sessionID)
}

// ListPending returns the oldest-first queue of unassigned sessions.
func (s *SupportService) ListPending(ctx context.Context, limit, offset int) ([]*models.ChatSupportSession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.supportRepo.ListPending(ctx, limit, offset)
}

// notify pushes a session snapshot to both participants and the session
// channel. Delivery is best effort; failures are logged, never surfaced.
func (s *SupportService) notify(ctx context.Context, session *models.ChatSupportSession, event string, msg *models.SupportMessage) {
	if s.sink == nil {
		return
	}

	payload, err := json.Marshal(supportEvent{Event: event, Session: session, Message: msg})
	if err != nil {
		observability.LogAsyncOperationError(ctx, "support_notify", err, map[string]interface{}{
			"session_id": session.ID,
		})
		return
	}

	recipients := []uint{session.UserID}
	if session.ModeratorID != nil {
		recipients = append(recipients, *session.ModeratorID)
	}
	for _, uid := range recipients {
		if err := s.sink.PublishUser(ctx, uid, string(payload)); err != nil {
			observability.LogAsyncOperationError(ctx, "support_notify", err, map[string]interface{}{
				"session_id": session.ID,
				"user_id":    uid,
			})
		}
	}
	if err := s.sink.PublishSupportEvent(ctx, session.ID, string(payload)); err != nil {
		observability.LogAsyncOperationError(ctx, "support_notify", err, map[string]interface{}{
			"session_id": session.ID,
		})
	}
}
