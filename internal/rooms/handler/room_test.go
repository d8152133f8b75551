package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"counsel/pkg/auth"
	apperrors "counsel/pkg/errors"
	"counsel/pkg/logger"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRoomService struct {
	gotSession string
}

func (s *stubRoomService) IssueToken(_ context.Context, requester *auth.Identity, sessionID string) (*auth.RoomToken, error) {
	s.gotSession = sessionID
	if requester == nil {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	return &auth.RoomToken{Token: "signed", RoomID: sessionID, Role: auth.RoomRoleHost}, nil
}

func TestIssueToken(t *testing.T) {
	svc := &stubRoomService{}
	router := httprouter.New()
	NewRoomHandler(svc, logger.Discard()).RegisterRoutes(router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/id/s42/token", nil)
	req = req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{Subject: "expert_1"}))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s42", svc.gotSession)
	assert.JSONEq(t, `{"data":{"token":"signed","api_key":"","room_id":"s42","role":"host","expires_at":"0001-01-01T00:00:00Z"}}`, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/id/s42/token", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
