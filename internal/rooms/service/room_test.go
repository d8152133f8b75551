package service

import (
	"context"
	"testing"
	"time"

	"counsel/internal/storetest"
	usersservice "counsel/internal/users/service"
	"counsel/pkg/auth"
	"counsel/pkg/config"
	apperrors "counsel/pkg/errors"
	"counsel/pkg/logger"
	"counsel/pkg/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const roomSecret = "room-secret-room-secret-room-secret!"

type roomFixture struct {
	store   *storetest.Store
	svc     RoomService
	session *model.LiveSession
	host    *auth.Identity
	booked  *auth.Identity
}

func newRoomFixture(t *testing.T, secret string) *roomFixture {
	t.Helper()
	cfg := &config.Config{Log: logger.Discard(), PlaceholderEmailDomain: "students.counsel.local"}
	store := storetest.New()

	expert := store.AddExpert(model.Expert{ExternalID: "expert_1", Email: "e@example.com", IsActive: true})
	session := store.AddSession(model.LiveSession{
		ExpertID:    expert.ID,
		Title:       "Salary negotiation",
		ScheduledAt: time.Now().Add(time.Hour),
		MaxStudents: 5,
		Status:      model.SessionUpcoming,
	})

	booked := store.AddUser(model.User{ExternalID: "student_1", Email: "s1@example.com"})
	store.AddBooking(model.Booking{StudentID: booked.ID, ExpertID: expert.ID, LiveSessionID: session.ID, Status: model.BookingConfirmed})
	cancelled := store.AddUser(model.User{ExternalID: "student_2", Email: "s2@example.com"})
	store.AddBooking(model.Booking{StudentID: cancelled.ID, ExpertID: expert.ID, LiveSessionID: session.ID, Status: model.BookingCancelled})

	svc := NewRoomService(
		store.Sessions(),
		store.Bookings(),
		store.Experts(),
		usersservice.NewUserService(store.Users(), cfg),
		auth.NewRoomTokenSigner(secret, "pk_test", time.Hour),
		cfg,
	)

	return &roomFixture{
		store:   store,
		svc:     svc,
		session: session,
		host:    &auth.Identity{Subject: "expert_1", FirstName: "Eve"},
		booked:  &auth.Identity{Subject: "student_1", FirstName: "Sam", LastName: "Lee"},
	}
}

func TestIssueToken_Roles(t *testing.T) {
	f := newRoomFixture(t, roomSecret)

	hostToken, err := f.svc.IssueToken(context.Background(), f.host, f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoomRoleHost, hostToken.Role)
	assert.Equal(t, "pk_test", hostToken.APIKey)

	participant, err := f.svc.IssueToken(context.Background(), f.booked, f.session.ID)
	require.NoError(t, err)
	assert.Equal(t, auth.RoomRoleParticipant, participant.Role)

	parsed, err := jwt.Parse(participant.Token, func(*jwt.Token) (any, error) { return []byte(roomSecret), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "student_1", claims["user_id"])
	assert.Equal(t, "Sam Lee", claims["name"])
	assert.Equal(t, f.session.ID, claims["room_id"])
}

func TestIssueToken_Denied(t *testing.T) {
	f := newRoomFixture(t, roomSecret)

	tests := []struct {
		name      string
		requester *auth.Identity
		sessionID string
		code      string
	}{
		{"anonymous", nil, f.session.ID, apperrors.CodeUnauthorized},
		{"unknown session", f.host, "65f0000000000000000000ff", apperrors.CodeNotFound},
		{"malformed session id", f.host, "nope", apperrors.CodeNotFound},
		{"cancelled booking", &auth.Identity{Subject: "student_2"}, f.session.ID, apperrors.CodeForbidden},
		{"no booking", &auth.Identity{Subject: "student_9"}, f.session.ID, apperrors.CodeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.IssueToken(context.Background(), tt.requester, tt.sessionID)
			assert.True(t, apperrors.HasCode(err, tt.code), "expected %s, got %v", tt.code, err)
		})
	}
}

func TestIssueToken_OtherExpertIsForbidden(t *testing.T) {
	f := newRoomFixture(t, roomSecret)
	f.store.AddExpert(model.Expert{ExternalID: "expert_2", Email: "other@example.com", IsActive: true})

	_, err := f.svc.IssueToken(context.Background(), &auth.Identity{Subject: "expert_2"}, f.session.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeForbidden))
}

func TestIssueToken_CancelledSessionAndDisabledSigner(t *testing.T) {
	f := newRoomFixture(t, roomSecret)
	f.store.SetSessionStatus(f.session.ID, model.SessionCancelled)
	_, err := f.svc.IssueToken(context.Background(), f.host, f.session.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	disabled := newRoomFixture(t, "")
	_, err = disabled.svc.IssueToken(context.Background(), disabled.host, disabled.session.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
}
