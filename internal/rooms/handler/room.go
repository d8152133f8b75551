package handler

import (
	"net/http"

	"counsel/internal/rooms/service"
	"counsel/pkg/auth"
	httputil "counsel/pkg/http"
	"counsel/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type RoomHandler struct {
	service service.RoomService
	log     *logger.Logger
}

func NewRoomHandler(service service.RoomService, log *logger.Logger) *RoomHandler {
	return &RoomHandler{
		service: service,
		log:     log,
	}
}

func (h *RoomHandler) IssueToken(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	token, err := h.service.IssueToken(r.Context(), auth.FromContext(r.Context()), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, token)
}

func (h *RoomHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/sessions/id/:id/token", h.IssueToken)
}
