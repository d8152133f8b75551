package handler

import (
	"net/http"

	"counsel/internal/experts/service"
	"counsel/pkg/auth"
	httputil "counsel/pkg/http"
	"counsel/pkg/logger"
	"counsel/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ExpertHandler struct {
	service service.ExpertService
	log     *logger.Logger
}

func NewExpertHandler(service service.ExpertService, log *logger.Logger) *ExpertHandler {
	return &ExpertHandler{
		service: service,
		log:     log,
	}
}

func (h *ExpertHandler) ListActive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	experts, err := h.service.ListActive(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, experts)
}

func (h *ExpertHandler) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	expert, err := h.service.GetProfile(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, expert)
}

func (h *ExpertHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requester, err := auth.Require(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var update model.ExpertProfileUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		httputil.WriteError(w, err)
		return
	}

	expert, err := h.service.UpdateProfile(r.Context(), requester, &update)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, expert)
}

func (h *ExpertHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requester, err := auth.Require(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req model.CreateExpertRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	expert, err := h.service.Create(r.Context(), requester, &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, expert)
}

func (h *ExpertHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	experts, err := h.service.List(r.Context(), auth.FromContext(r.Context()), httputil.QueryBool(r, "deleted"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, experts)
}

func (h *ExpertHandler) SetFlags(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	requester, err := auth.Require(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var flags model.ExpertFlags
	if err := httputil.DecodeJSON(r, &flags); err != nil {
		httputil.WriteError(w, err)
		return
	}

	expert, err := h.service.SetFlags(r.Context(), requester, ps.ByName("id"), flags)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, expert)
}

func (h *ExpertHandler) Restore(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	expert, err := h.service.Restore(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, expert)
}

func (h *ExpertHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	err := h.service.Delete(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"), httputil.QueryBool(r, "permanent"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *ExpertHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/experts", h.ListActive)
	router.GET("/api/v1/expert/profile", h.GetProfile)
	router.PATCH("/api/v1/expert/profile", h.UpdateProfile)
	router.GET("/api/v1/admin/experts", h.List)
	router.POST("/api/v1/admin/experts", h.Create)
	router.PATCH("/api/v1/admin/experts/id/:id", h.SetFlags)
	router.POST("/api/v1/admin/experts/id/:id/restore", h.Restore)
	router.DELETE("/api/v1/admin/experts/id/:id", h.Delete)
}
