package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoomRoleHost        = "host"
	RoomRoleParticipant = "participant"

	// roomTokenBackdate tolerates clock skew on the media provider side.
	roomTokenBackdate = 60 * time.Second
)

var ErrRoomTokensDisabled = errors.New("room token secret is not configured")

// RoomTokenSigner issues short-lived tokens for joining a session's video/chat room.
type RoomTokenSigner struct {
	secret []byte
	apiKey string
	ttl    time.Duration
	now    func() time.Time
}

type RoomToken struct {
	Token     string    `json:"token"`
	APIKey    string    `json:"api_key"`
	RoomID    string    `json:"room_id"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewRoomTokenSigner(secret, apiKey string, ttl time.Duration) *RoomTokenSigner {
	return &RoomTokenSigner{
		secret: []byte(secret),
		apiKey: apiKey,
		ttl:    ttl,
		now:    time.Now,
	}
}

func (s *RoomTokenSigner) Sign(userID, name, roomID, role string) (*RoomToken, error) {
	if len(s.secret) == 0 {
		return nil, ErrRoomTokensDisabled
	}

	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.MapClaims{
		"user_id": userID,
		"name":    name,
		"room_id": roomID,
		"role":    role,
		"iat":     now.Add(-roomTokenBackdate).Unix(),
		"exp":     expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	return &RoomToken{
		Token:     signed,
		APIKey:    s.apiKey,
		RoomID:    roomID,
		Role:      role,
		ExpiresAt: expiresAt.UTC(),
	}, nil
}
