package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"counsel/pkg/auth"
	apperrors "counsel/pkg/errors"
	httputil "counsel/pkg/http"
	"counsel/pkg/logger"
	"counsel/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBookingService struct {
	createFunc       func(ctx context.Context, requester *auth.Identity, req *model.BookingRequest) (*model.Booking, error)
	updateStatusFunc func(ctx context.Context, requester *auth.Identity, id string, status model.BookingStatus) (*model.Booking, error)
}

func (m *mockBookingService) Create(ctx context.Context, requester *auth.Identity, req *model.BookingRequest) (*model.Booking, error) {
	return m.createFunc(ctx, requester, req)
}

func (m *mockBookingService) ListForStudent(ctx context.Context, requester *auth.Identity) ([]*model.Booking, error) {
	return []*model.Booking{}, nil
}

func (m *mockBookingService) ListForExpert(ctx context.Context, requester *auth.Identity) (*model.ExpertDashboard, error) {
	return nil, apperrors.Forbidden("Only experts can view expert bookings")
}

func (m *mockBookingService) ListForExpertByID(ctx context.Context, requester *auth.Identity, expertID string) (*model.ExpertDashboard, error) {
	if !requester.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}
	return &model.ExpertDashboard{
		Bookings:     []*model.Booking{},
		LiveSessions: []*model.LiveSession{},
		Expert:       &model.Expert{ID: expertID},
	}, nil
}

func (m *mockBookingService) UpdateStatus(ctx context.Context, requester *auth.Identity, id string, status model.BookingStatus) (*model.Booking, error) {
	return m.updateStatusFunc(ctx, requester, id, status)
}

func serve(t *testing.T, svc *mockBookingService, method, path, body string, identity *auth.Identity) *httptest.ResponseRecorder {
	t.Helper()
	router := httprouter.New()
	NewBookingHandler(svc, logger.Discard()).RegisterRoutes(router)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(req.Context(), identity))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreate(t *testing.T) {
	requester := &auth.Identity{Subject: "student_1"}

	t.Run("group booking", func(t *testing.T) {
		svc := &mockBookingService{
			createFunc: func(_ context.Context, got *auth.Identity, req *model.BookingRequest) (*model.Booking, error) {
				assert.Equal(t, requester, got)
				assert.Equal(t, "65f000000000000000000001", req.LiveSessionID)
				return &model.Booking{ID: "b1", LiveSessionID: req.LiveSessionID, Status: model.BookingConfirmed}, nil
			},
		}

		w := serve(t, svc, http.MethodPost, "/api/v1/bookings", `{"live_session_id":"65f000000000000000000001"}`, requester)
		require.Equal(t, http.StatusCreated, w.Code)

		var body struct {
			Data model.Booking `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, model.BookingConfirmed, body.Data.Status)
	})

	t.Run("domain errors keep their code", func(t *testing.T) {
		for code, status := range map[string]int{
			apperrors.CodeFull:         http.StatusConflict,
			apperrors.CodeDuplicate:    http.StatusConflict,
			apperrors.CodeInvalidState: http.StatusConflict,
		} {
			appErr := apperrors.New(code, "rejected", status)
			svc := &mockBookingService{
				createFunc: func(context.Context, *auth.Identity, *model.BookingRequest) (*model.Booking, error) {
					return nil, appErr
				},
			}

			w := serve(t, svc, http.MethodPost, "/api/v1/bookings", `{"live_session_id":"65f000000000000000000001"}`, requester)
			assert.Equal(t, status, w.Code)

			var body httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, code, body.Code)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := &mockBookingService{
			createFunc: func(context.Context, *auth.Identity, *model.BookingRequest) (*model.Booking, error) {
				t.Fatal("service must not be called")
				return nil, nil
			},
		}
		w := serve(t, svc, http.MethodPost, "/api/v1/bookings", `[`, requester)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAnonymousRequestsAreUnauthorizedBeforeDecoding(t *testing.T) {
	svc := &mockBookingService{
		createFunc: func(context.Context, *auth.Identity, *model.BookingRequest) (*model.Booking, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
		updateStatusFunc: func(context.Context, *auth.Identity, string, model.BookingStatus) (*model.Booking, error) {
			t.Fatal("service must not be called")
			return nil, nil
		},
	}

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		identity *auth.Identity
	}{
		{"create malformed body", http.MethodPost, "/api/v1/bookings", `[`, nil},
		{"create empty subject", http.MethodPost, "/api/v1/bookings", `{"live_session_id":"x"}`, &auth.Identity{}},
		{"update malformed body", http.MethodPatch, "/api/v1/bookings/id/b42", `{"status":`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(t, svc, tt.method, tt.path, tt.body, tt.identity)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body httputil.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, apperrors.CodeUnauthorized, body.Code)
		})
	}
}

func TestUpdateStatus(t *testing.T) {
	var gotID string
	var gotStatus model.BookingStatus
	svc := &mockBookingService{
		updateStatusFunc: func(_ context.Context, _ *auth.Identity, id string, status model.BookingStatus) (*model.Booking, error) {
			gotID, gotStatus = id, status
			return &model.Booking{ID: id, Status: status}, nil
		},
	}

	w := serve(t, svc, http.MethodPatch, "/api/v1/bookings/id/b42", `{"status":"cancelled"}`, &auth.Identity{Subject: "student_1"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b42", gotID)
	assert.Equal(t, model.BookingCancelled, gotStatus)
}

func TestListRoutes(t *testing.T) {
	svc := &mockBookingService{}

	w := serve(t, svc, http.MethodGet, "/api/v1/bookings", "", &auth.Identity{Subject: "student_1"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())

	w = serve(t, svc, http.MethodGet, "/api/v1/expert/bookings", "", &auth.Identity{Subject: "student_1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = serve(t, svc, http.MethodGet, "/api/v1/admin/experts/id/e7/bookings", "", &auth.Identity{Subject: "admin_1", Roles: []string{auth.RoleAdmin}})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data model.ExpertDashboard `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Data.Expert)
	assert.Equal(t, "e7", body.Data.Expert.ID)

	w = serve(t, svc, http.MethodGet, "/api/v1/admin/experts/id/e7/bookings", "", &auth.Identity{Subject: "student_1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
