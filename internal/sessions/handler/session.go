package handler

import (
	"net/http"

	"counsel/internal/sessions/service"
	"counsel/pkg/auth"
	httputil "counsel/pkg/http"
	"counsel/pkg/logger"
	"counsel/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type SessionHandler struct {
	service service.SessionService
	log     *logger.Logger
}

func NewSessionHandler(service service.SessionService, log *logger.Logger) *SessionHandler {
	return &SessionHandler{
		service: service,
		log:     log,
	}
}

// ListAvailable is public; it lists bookable slots, optionally for one expert.
func (h *SessionHandler) ListAvailable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessions, err := h.service.ListAvailable(r.Context(), httputil.QueryString(r, "expert_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, sessions)
}

func (h *SessionHandler) CreateForExpert(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requester, err := auth.Require(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var spec model.SlotSpec
	if err := httputil.DecodeJSON(r, &spec); err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.CreateForExpert(r.Context(), requester, &spec)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, session)
}

func (h *SessionHandler) ListForExpert(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessions, err := h.service.ListForExpert(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, sessions)
}

func (h *SessionHandler) CreateForAdmin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requester, err := auth.Require(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var spec model.SlotSpec
	if err := httputil.DecodeJSON(r, &spec); err != nil {
		httputil.WriteError(w, err)
		return
	}

	session, err := h.service.CreateForAdmin(r.Context(), requester, &spec)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, session)
}

func (h *SessionHandler) ListAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sessions, err := h.service.ListAll(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, sessions)
}

func (h *SessionHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/sessions", h.ListAvailable)
	router.GET("/api/v1/expert/sessions", h.ListForExpert)
	router.POST("/api/v1/expert/sessions", h.CreateForExpert)
	router.GET("/api/v1/admin/sessions", h.ListAll)
	router.POST("/api/v1/admin/sessions", h.CreateForAdmin)
}
