package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"counsel/internal/experts/service"
	"counsel/internal/experts/validator"
	"counsel/internal/storetest"
	"counsel/pkg/auth"
	"counsel/pkg/config"
	"counsel/pkg/logger"
	"counsel/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = &auth.Identity{Subject: "admin_1", Roles: []string{auth.RoleAdmin}}

func setup(t *testing.T) (*storetest.Store, *httprouter.Router) {
	t.Helper()
	log := logger.Discard()
	store := storetest.New()
	svc := service.NewExpertService(store.Experts(), store.Bookings(), store.Sessions(), validator.NewExpertValidator(log), &config.Config{Log: log})

	router := httprouter.New()
	NewExpertHandler(svc, log).RegisterRoutes(router)
	return store, router
}

func do(router http.Handler, method, path, body string, identity *auth.Identity) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if identity != nil {
		req = req.WithContext(auth.WithIdentity(context.Background(), identity))
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminRoutes(t *testing.T) {
	store, router := setup(t)

	w := do(router, http.MethodPost, "/api/v1/admin/experts",
		`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","specialization":"Math, Computing","experience":"x"}`, admin)
	assert.Equal(t, http.StatusBadRequest, w.Code, "experience must be a number")

	w = do(router, http.MethodPost, "/api/v1/admin/experts",
		`{"first_name":"Ada","last_name":"Lovelace","email":"ada@example.com","specialization":"Math, Computing","experience":7}`, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	experts, _ := store.Experts().FindAll(context.Background(), false)
	require.Len(t, experts, 1)
	assert.Equal(t, []string{"Math", "Computing"}, experts[0].Specialization)
	id := experts[0].ID

	w = do(router, http.MethodPatch, "/api/v1/admin/experts/id/"+id, `{"is_active":false}`, admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.Expert(id).IsActive)

	w = do(router, http.MethodDelete, "/api/v1/admin/experts/id/"+id, "", admin)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.True(t, store.Expert(id).IsDeleted)

	w = do(router, http.MethodGet, "/api/v1/admin/experts?deleted=true", "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ada@example.com")

	w = do(router, http.MethodPost, "/api/v1/admin/experts/id/"+id+"/restore", "", admin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, store.Expert(id).IsDeleted)

	w = do(router, http.MethodDelete, "/api/v1/admin/experts/id/"+id+"?permanent=true", "", admin)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Nil(t, store.Expert(id))
}

func TestPublicAndProfileRoutes(t *testing.T) {
	store, router := setup(t)
	store.AddExpert(model.Expert{ExternalID: "expert_1", Email: "e@example.com", FirstName: "Eve", IsActive: true})

	w := do(router, http.MethodGet, "/api/v1/experts", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sessions_completed":0`)

	w = do(router, http.MethodGet, "/api/v1/expert/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodPatch, "/api/v1/expert/profile", `{"bio":`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodPatch, "/api/v1/expert/profile", `{"experience":-2}`, &auth.Identity{Subject: "expert_1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPatch, "/api/v1/expert/profile", `{"bio":"Ten years in hiring"}`, &auth.Identity{Subject: "expert_1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ten years in hiring")

	w = do(router, http.MethodGet, "/api/v1/admin/experts", "", &auth.Identity{Subject: "expert_1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}
