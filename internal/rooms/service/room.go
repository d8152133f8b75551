package service

import (
	"context"
	"errors"

	bookingserrors "counsel/internal/bookings/errors"
	bookingsrepo "counsel/internal/bookings/repository"
	expertserrors "counsel/internal/experts/errors"
	expertsrepo "counsel/internal/experts/repository"
	sessionserrors "counsel/internal/sessions/errors"
	sessionsrepo "counsel/internal/sessions/repository"
	usersservice "counsel/internal/users/service"
	"counsel/pkg/auth"
	"counsel/pkg/config"
	apperrors "counsel/pkg/errors"
	"counsel/pkg/model"
)

type TokenSigner interface {
	Sign(userID, name, roomID, role string) (*auth.RoomToken, error)
}

type RoomService interface {
	// IssueToken grants the requester access to a live session's room. The
	// owning expert joins as host, students with a live booking as participants.
	IssueToken(ctx context.Context, requester *auth.Identity, sessionID string) (*auth.RoomToken, error)
}

type roomService struct {
	sessions sessionsrepo.SessionRepository
	bookings bookingsrepo.BookingRepository
	experts  expertsrepo.ExpertRepository
	users    usersservice.UserService
	signer   TokenSigner
	cfg      *config.Config
}

func NewRoomService(
	sessions sessionsrepo.SessionRepository,
	bookings bookingsrepo.BookingRepository,
	experts expertsrepo.ExpertRepository,
	users usersservice.UserService,
	signer TokenSigner,
	cfg *config.Config,
) RoomService {
	return &roomService{
		sessions: sessions,
		bookings: bookings,
		experts:  experts,
		users:    users,
		signer:   signer,
		cfg:      cfg,
	}
}

func (s *roomService) IssueToken(ctx context.Context, requester *auth.Identity, sessionID string) (*auth.RoomToken, error) {
	if requester == nil || requester.Subject == "" {
		return nil, apperrors.Unauthorized("Authentication required")
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessionserrors.ErrNotFound) || errors.Is(err, sessionserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Live session", sessionID)
		}
		return nil, apperrors.Internal("Failed to retrieve live session", err)
	}

	role, err := s.roleFor(ctx, requester, session)
	if err != nil {
		return nil, err
	}
	if role == "" {
		s.cfg.Log.Warn("Room access denied", "live_session_id", session.ID, "subject", requester.Subject)
		return nil, apperrors.Forbidden("You are not a participant of this live session")
	}
	if session.Status == model.SessionCancelled {
		return nil, apperrors.InvalidState("Live session was cancelled")
	}

	token, err := s.signer.Sign(requester.Subject, requester.DisplayName(), session.ID, role)
	if err != nil {
		if errors.Is(err, auth.ErrRoomTokensDisabled) {
			return nil, apperrors.Unavailable("Room provisioning")
		}
		return nil, apperrors.Internal("Failed to issue room token", err)
	}

	s.cfg.Log.Info("Room token issued",
		"live_session_id", session.ID,
		"subject", requester.Subject,
		"role", role,
	)
	return token, nil
}

// roleFor returns the room role of requester, or "" when they may not join.
func (s *roomService) roleFor(ctx context.Context, requester *auth.Identity, session *model.LiveSession) (string, error) {
	expert, err := s.experts.FindByExternalID(ctx, requester.Subject)
	switch {
	case err == nil && expert.ID == session.ExpertID:
		return auth.RoomRoleHost, nil
	case err != nil && !errors.Is(err, expertserrors.ErrNotFound):
		return "", apperrors.Internal("Failed to retrieve expert", err)
	}

	student, err := s.users.FindByExternalID(ctx, requester.Subject)
	if err != nil {
		return "", err
	}
	if student == nil {
		return "", nil
	}

	booking, err := s.bookings.FindByStudentAndSession(ctx, student.ID, session.ID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return "", nil
		}
		return "", apperrors.Internal("Failed to retrieve booking", err)
	}
	if !booking.Status.HoldsSeat() {
		return "", nil
	}
	return auth.RoomRoleParticipant, nil
}
